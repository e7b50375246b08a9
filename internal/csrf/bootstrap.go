package csrf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mateoromerocontreras/django-bookstore/internal/observability"

	"golang.org/x/sync/singleflight"
)

// ErrTokenUnavailable is returned when no token could be obtained.
var ErrTokenUnavailable = errors.New("csrf token unavailable")

// flightKey identifies the single bootstrap operation in the in-flight registry.
const flightKey = "csrf-token"

const defaultBootstrapTimeout = 10 * time.Second

// FetchFunc asks the server for a token. It returns the token found in the
// response body, or "" when the server only set the cookie.
type FetchFunc func(ctx context.Context) (string, error)

// Bootstrapper guarantees a token exists before a mutating request while
// keeping at most one bootstrap request in flight.
type Bootstrapper struct {
	cache   TokenReader
	fetch   FetchFunc
	timeout time.Duration
	logger  *slog.Logger
	group   singleflight.Group
}

// BootstrapperOption configures a Bootstrapper.
type BootstrapperOption func(*Bootstrapper)

// WithTimeout bounds a single bootstrap request.
func WithTimeout(d time.Duration) BootstrapperOption {
	return func(b *Bootstrapper) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithLogger sets the logger used for bootstrap events.
func WithLogger(l *slog.Logger) BootstrapperOption {
	return func(b *Bootstrapper) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBootstrapper creates a bootstrapper reading from cache and fetching with fetch.
func NewBootstrapper(cache TokenReader, fetch FetchFunc, opts ...BootstrapperOption) *Bootstrapper {
	b := &Bootstrapper{
		cache:   cache,
		fetch:   fetch,
		timeout: defaultBootstrapTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// EnsureToken returns a cached token without network access, or joins the
// single shared bootstrap request. Failures wrap ErrTokenUnavailable and are
// not retried. A caller whose ctx ends stops waiting; the shared request
// carries on for the remaining waiters.
func (b *Bootstrapper) EnsureToken(ctx context.Context) (string, error) {
	if token, ok := b.cache.Read(); ok {
		return token, nil
	}

	ch := b.group.DoChan(flightKey, func() (any, error) {
		// A flight that finished between the cache read and here already
		// stored the token.
		if token, ok := b.cache.Read(); ok {
			return token, nil
		}
		return b.bootstrap(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", ErrTokenUnavailable, ctx.Err())
	}
}

func (b *Bootstrapper) bootstrap(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	token, err := b.fetch(ctx)
	if err != nil {
		observability.CSRFBootstrapTotal.WithLabelValues("failure").Inc()
		return "", fmt.Errorf("%w: %w", ErrTokenUnavailable, err)
	}

	if token == "" {
		// The server may only have set the cookie.
		var ok bool
		if token, ok = b.cache.Read(); !ok {
			observability.CSRFBootstrapTotal.WithLabelValues("empty").Inc()
			return "", fmt.Errorf("%w: no token in response body or cookie", ErrTokenUnavailable)
		}
	}

	observability.CSRFBootstrapTotal.WithLabelValues("success").Inc()
	b.logger.Debug("csrf token bootstrapped")
	return token, nil
}
