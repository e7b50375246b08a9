package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokenServer issues "tok-1" from /api/csrf-token/ and records the header
// seen by every other request.
type tokenServer struct {
	*httptest.Server
	tokenCalls atomic.Int32
	mu         sync.Mutex
	seen       []http.Header
	tokenDelay time.Duration
}

func newTokenServer(t *testing.T, handler http.HandlerFunc) *tokenServer {
	t.Helper()
	ts := &tokenServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/csrf-token/", func(w http.ResponseWriter, r *http.Request) {
		ts.tokenCalls.Add(1)
		time.Sleep(ts.tokenDelay)
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "tok-1", Path: "/"})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"csrfToken":"tok-1"}`))
	})
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		ts.mu.Lock()
		ts.seen = append(ts.seen, r.Header.Clone())
		ts.mu.Unlock()
		handler(w, r)
	})
	ts.Server = httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func (ts *tokenServer) headers() []http.Header {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]http.Header(nil), ts.seen...)
}

func newTestClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	c, err := New(baseURL, jar, opts...)
	require.NoError(t, err)
	return c
}

func okJSON(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func TestNew_RejectsInvalidBaseURL(t *testing.T) {
	tests := []string{"", "localhost:8000/api", "ftp://example.com/api", "http://"}
	for _, base := range tests {
		t.Run(base, func(t *testing.T) {
			_, err := New(base, nil)
			assert.Error(t, err)
		})
	}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c, err := New("http://localhost:8000/api/", nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/api", c.BaseURL())
}

func TestDo_GetDecodesWithoutToken(t *testing.T) {
	ts := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/books/", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		okJSON(`{"count":1,"results":[{"id":7,"title":"Dune"}]}`)(w, r)
	})
	c := newTestClient(t, ts.URL+"/api")

	var out struct {
		Count   int `json:"count"`
		Results []struct {
			ID    int64  `json:"id"`
			Title string `json:"title"`
		} `json:"results"`
	}
	err := c.Do(context.Background(), http.MethodGet, "/books/?page=2", nil, &out)
	require.NoError(t, err)

	assert.Equal(t, 1, out.Count)
	assert.Equal(t, "Dune", out.Results[0].Title)
	assert.Equal(t, int32(0), ts.tokenCalls.Load())

	h := ts.headers()[0]
	assert.Empty(t, h.Get("X-CSRFToken"))
	assert.Equal(t, "application/json", h.Get("Content-Type"))
	assert.NotEmpty(t, h.Get("X-Request-ID"))
}

func TestDo_MutationBootstrapsTokenOnce(t *testing.T) {
	ts := newTokenServer(t, okJSON(`{"message":"ok"}`))
	c := newTestClient(t, ts.URL+"/api")
	ctx := context.Background()

	require.NoError(t, c.Do(ctx, http.MethodPost, "/cart/add_item/", map[string]int{"book_id": 1, "quantity": 1}, nil))
	require.NoError(t, c.Do(ctx, http.MethodPut, "/cart/update_item/", map[string]int{"book_id": 1, "quantity": 2}, nil))
	require.NoError(t, c.Do(ctx, http.MethodDelete, "/cart/remove_item/?book_id=1", nil, nil))

	assert.Equal(t, int32(1), ts.tokenCalls.Load())
	for _, h := range ts.headers() {
		assert.Equal(t, "tok-1", h.Get("X-CSRFToken"))
	}
}

func TestDo_ConcurrentMutationsShareBootstrap(t *testing.T) {
	ts := newTokenServer(t, okJSON(`{}`))
	ts.tokenDelay = 50 * time.Millisecond
	c := newTestClient(t, ts.URL+"/api")

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- c.Do(context.Background(), http.MethodPost, "/cart/clear/", nil, nil)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), ts.tokenCalls.Load())
	assert.Len(t, ts.headers(), n)
	for _, h := range ts.headers() {
		assert.Equal(t, "tok-1", h.Get("X-CSRFToken"))
	}
}

func TestDo_TokenFailureStillSendsRequest(t *testing.T) {
	var mutations atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/csrf-token/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/api/cart/clear/", func(w http.ResponseWriter, r *http.Request) {
		mutations.Add(1)
		assert.Empty(t, r.Header.Get("X-CSRFToken"))
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"detail":"CSRF Failed: CSRF token missing."}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(t, server.URL+"/api")
	err := c.Do(context.Background(), http.MethodPost, "/cart/clear/", nil, nil)

	var rejected *ServerRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusForbidden, rejected.Status)
	assert.Equal(t, "CSRF Failed: CSRF token missing.", Message(err))
	assert.Equal(t, int32(1), mutations.Load())
}

func TestDo_TokenFromCookieOnly(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/csrf-token/", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "cookie-tok", Path: "/"})
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/api/auth/logout/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "cookie-tok", r.Header.Get("X-CSRFToken"))
		_, _ = w.Write([]byte(`{"message":"Successfully logged out"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(t, server.URL+"/api")
	require.NoError(t, c.Do(context.Background(), http.MethodPost, "/auth/logout/", nil, nil))

	token, ok := c.Tokens().Read()
	assert.True(t, ok)
	assert.Equal(t, "cookie-tok", token)
}

func TestDo_ServerRejections(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"error field", http.StatusBadRequest, `{"error":"Only 3 copies available"}`, "Only 3 copies available"},
		{"errors list", http.StatusBadRequest, `{"errors":["Not enough stock for Dune","Not enough stock for Emma"]}`, "Not enough stock for Dune; Not enough stock for Emma"},
		{"detail", http.StatusForbidden, `{"detail":"Authentication credentials were not provided."}`, "Authentication credentials were not provided."},
		{"serializer field", http.StatusBadRequest, `{"username":["A user with that username already exists."]}`, "username: A user with that username already exists."},
		{"non field errors", http.StatusBadRequest, `{"non_field_errors":["Passwords do not match"]}`, "Passwords do not match"},
		{"html body", http.StatusInternalServerError, `<html>Server Error</html>`, "An error occurred"},
		{"empty body", http.StatusNotFound, ``, "An error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := newTestClient(t, server.URL+"/api")
			err := c.Do(context.Background(), http.MethodGet, "/cart/", nil, nil)

			var rejected *ServerRejectedError
			require.ErrorAs(t, err, &rejected)
			assert.Equal(t, tt.status, rejected.Status)
			assert.Equal(t, tt.message, Message(err))
			assert.True(t, IsStatus(err, tt.status))
			assert.False(t, errors.Is(err, ErrNetworkUnavailable))
		})
	}
}

func TestDo_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL + "/api"
	server.Close()

	c := newTestClient(t, baseURL)
	err := c.Do(context.Background(), http.MethodGet, "/books/", nil, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetworkUnavailable)
	var netErr *NetworkError
	assert.ErrorAs(t, err, &netErr)
	assert.Equal(t, "Network error. Please check your connection.", Message(err))
}

func TestDo_ContextCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	c := newTestClient(t, server.URL+"/api")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.Do(ctx, http.MethodGet, "/cart/", nil, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrNetworkUnavailable)
}

func TestDo_UndecodableResponse(t *testing.T) {
	server := httptest.NewServer(okJSON(`{"id": "not-a-number"}`))
	defer server.Close()

	c := newTestClient(t, server.URL+"/api")
	var out struct {
		ID int64 `json:"id"`
	}
	err := c.Do(context.Background(), http.MethodGet, "/cart/", nil, &out)

	var fault *ClientFaultError
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, "Invalid response from server", Message(err))
}

func TestDo_UnencodableBody(t *testing.T) {
	ts := newTokenServer(t, okJSON(`{}`))
	c := newTestClient(t, ts.URL+"/api")

	err := c.Do(context.Background(), http.MethodPost, "/books/", map[string]any{"bad": make(chan int)}, nil)

	var fault *ClientFaultError
	require.ErrorAs(t, err, &fault)
	assert.Empty(t, ts.headers(), "nothing is sent")
}

func TestMessageOr(t *testing.T) {
	rejectedWithoutMessage := &ServerRejectedError{Status: 400, Body: ErrorBody{}}
	rejected := &ServerRejectedError{Status: 400, Body: ErrorBody{Error: "Cart is empty"}}

	assert.Equal(t, "Failed to checkout", MessageOr(rejectedWithoutMessage, "Failed to checkout"))
	assert.Equal(t, "Cart is empty", MessageOr(rejected, "Failed to checkout"))
	assert.Equal(t, "Failed to checkout", MessageOr(errors.New("plain"), "Failed to checkout"))
	assert.Equal(t, "", Message(nil))
}
