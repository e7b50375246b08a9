package store

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/mateoromerocontreras/django-bookstore/internal/apiclient"
	"github.com/mateoromerocontreras/django-bookstore/internal/domain"
	"github.com/mateoromerocontreras/django-bookstore/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthStore(t *testing.T) (*AuthStore, *testutil.MockAuthAPI, *domain.User) {
	t.Helper()
	user := testutil.NewTestUser(testutil.WithUsername("alice"))
	api := testutil.NewMockAuthAPI(user, "secret")
	return NewAuthStore(api, nil), api, user
}

func TestAuthStore_CheckAuth(t *testing.T) {
	t.Run("anonymous", func(t *testing.T) {
		s, _, _ := newAuthStore(t)

		assert.False(t, s.CheckAuth(context.Background()))
		assert.Equal(t, AuthState{}, s.Snapshot())
	})

	t.Run("existing session", func(t *testing.T) {
		s, api, user := newAuthStore(t)
		api.Current = user

		assert.True(t, s.CheckAuth(context.Background()))
		snap := s.Snapshot()
		assert.True(t, snap.Authenticated)
		assert.Equal(t, user, snap.User)
	})

	t.Run("server unreachable", func(t *testing.T) {
		s, api, user := newAuthStore(t)
		api.Current = user
		s.CheckAuth(context.Background())
		api.CurrentUserFunc = func(ctx context.Context) (*domain.User, error) {
			return nil, testutil.NetworkDown()
		}

		assert.False(t, s.CheckAuth(context.Background()))
		assert.False(t, s.IsAuthenticated())
		assert.Nil(t, s.Snapshot().User)
	})
}

func TestAuthStore_Login(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		s, _, _ := newAuthStore(t)

		user, err := s.Login(context.Background(), domain.LoginCredentials{Username: "alice", Password: "secret"})

		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
		assert.True(t, s.IsAuthenticated())
		assert.Equal(t, "alice", s.Snapshot().User.Username)
	})

	t.Run("rejected leaves state unchanged", func(t *testing.T) {
		s, _, _ := newAuthStore(t)

		user, err := s.Login(context.Background(), domain.LoginCredentials{Username: "alice", Password: "nope"})

		require.Error(t, err)
		assert.Nil(t, user)
		assert.True(t, apiclient.IsStatus(err, http.StatusUnauthorized))
		assert.Equal(t, "Invalid credentials", apiclient.Message(err))
		assert.False(t, s.IsAuthenticated())
	})

	t.Run("rejected keeps an existing session", func(t *testing.T) {
		s, _, _ := newAuthStore(t)
		_, err := s.Login(context.Background(), domain.LoginCredentials{Username: "alice", Password: "secret"})
		require.NoError(t, err)

		_, err = s.Login(context.Background(), domain.LoginCredentials{Username: "alice"})

		require.Error(t, err)
		assert.Equal(t, "Username and password are required", apiclient.Message(err))
		assert.True(t, s.IsAuthenticated())
	})
}

func TestAuthStore_RegisterDoesNotLogIn(t *testing.T) {
	s, _, _ := newAuthStore(t)

	user, err := s.Register(context.Background(), domain.RegisterData{Username: "bob", Email: "bob@example.com", Password: "pw"})

	require.NoError(t, err)
	assert.Equal(t, "bob", user.Username)
	assert.False(t, s.IsAuthenticated())

	_, err = s.Register(context.Background(), domain.RegisterData{Username: "bob", Email: "x@example.com", Password: "pw"})
	assert.Equal(t, "Username already exists", apiclient.Message(err))
}

func TestAuthStore_Logout(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		s, api, _ := newAuthStore(t)
		_, err := s.Login(context.Background(), domain.LoginCredentials{Username: "alice", Password: "secret"})
		require.NoError(t, err)

		require.NoError(t, s.Logout(context.Background()))
		assert.False(t, s.IsAuthenticated())
		assert.Nil(t, api.Current)
	})

	t.Run("failure still clears local state", func(t *testing.T) {
		s, api, _ := newAuthStore(t)
		_, err := s.Login(context.Background(), domain.LoginCredentials{Username: "alice", Password: "secret"})
		require.NoError(t, err)
		boom := errors.New("boom")
		api.LogoutFunc = func(ctx context.Context) error { return boom }

		err = s.Logout(context.Background())

		assert.ErrorIs(t, err, boom)
		assert.Equal(t, AuthState{}, s.Snapshot())
	})
}

func TestAuthStore_SnapshotIsACopy(t *testing.T) {
	s, api, user := newAuthStore(t)
	api.Current = user
	s.CheckAuth(context.Background())

	snap := s.Snapshot()
	snap.User.Username = "mallory"

	assert.Equal(t, "alice", s.Snapshot().User.Username)
}

func TestAuthStore_Subscribe(t *testing.T) {
	s, _, _ := newAuthStore(t)

	var mu sync.Mutex
	var seen []bool
	unsubscribe := s.Subscribe(func(st AuthState) {
		mu.Lock()
		seen = append(seen, st.Authenticated)
		mu.Unlock()
	})

	_, err := s.Login(context.Background(), domain.LoginCredentials{Username: "alice", Password: "secret"})
	require.NoError(t, err)
	require.NoError(t, s.Logout(context.Background()))

	unsubscribe()
	unsubscribe()
	s.CheckAuth(context.Background())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false}, seen)
}

func TestAuthStore_LastDeliveredStateIsCurrent(t *testing.T) {
	s, _, _ := newAuthStore(t)

	var mu sync.Mutex
	var last AuthState
	s.Subscribe(func(st AuthState) {
		mu.Lock()
		last = st
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			s.set(AuthState{Authenticated: true, User: &domain.User{ID: id}})
		}(int64(i))
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, s.Snapshot(), last)
}
