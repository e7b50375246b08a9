package testutil

import (
	"net/http/httptest"
	"testing"

	"github.com/mateoromerocontreras/django-bookstore/internal/fakeapi"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// FakeAPI is a running in-process storefront API.
type FakeAPI struct {
	*fakeapi.Server
	HTTP *httptest.Server
	// BaseURL is the API root, ending in /api.
	BaseURL string
}

// StartFakeAPI starts a seeded fake API that is shut down with the test.
// Passwords are hashed at the minimum bcrypt cost.
func StartFakeAPI(t *testing.T, opts ...fakeapi.Option) *FakeAPI {
	t.Helper()

	opts = append([]fakeapi.Option{fakeapi.WithPasswordCost(bcrypt.MinCost)}, opts...)
	srv, err := fakeapi.New(opts...)
	require.NoError(t, err)

	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})

	return &FakeAPI{Server: srv, HTTP: ts, BaseURL: ts.URL + "/api"}
}

// Kill closes the listener so later requests fail with a network error.
func (f *FakeAPI) Kill() {
	f.HTTP.CloseClientConnections()
	f.HTTP.Close()
}
