// Package app is the composition root of the storefront client. An App owns
// one cookie jar, one API client and one store of each kind; nothing is kept
// in package-level state.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mateoromerocontreras/django-bookstore/internal/apiclient"
	"github.com/mateoromerocontreras/django-bookstore/internal/config"
	"github.com/mateoromerocontreras/django-bookstore/internal/cookiestore"
	"github.com/mateoromerocontreras/django-bookstore/internal/service"
	"github.com/mateoromerocontreras/django-bookstore/internal/store"
)

type App struct {
	logger *slog.Logger
	jar    *cookiestore.Jar
	client *apiclient.Client

	Auth    *store.AuthStore
	Cart    *store.CartStore
	Books   *service.BookService
	Authors *service.AuthorService

	stopResetOnLogout func()
}

// Option configures New.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	httpClient *http.Client
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithHTTPClient sets the transport used for API calls. The App's cookie jar
// replaces the client's own and cfg.HTTPTimeout replaces its timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// New builds an App for cfg. Saved cookies are loaded from cfg.CookieFile; a
// damaged file is logged and ignored.
func New(cfg config.Config, opts ...Option) (*App, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	jar, err := cookiestore.New(cfg.CookieFile)
	if err != nil {
		return nil, err
	}
	if err := jar.Load(); err != nil {
		o.logger.Warn("ignoring saved cookies",
			slog.String("path", jar.Path()),
			slog.String("error", err.Error()))
	}

	clientOpts := []apiclient.Option{apiclient.WithLogger(o.logger)}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, apiclient.WithHTTPClient(o.httpClient))
	}
	// After WithHTTPClient, which replaces the whole client.
	clientOpts = append(clientOpts, apiclient.WithTimeout(cfg.HTTPTimeout))
	client, err := apiclient.New(cfg.BaseURL(), jar, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create api client: %w", err)
	}

	a := &App{
		logger:  o.logger,
		jar:     jar,
		client:  client,
		Auth:    store.NewAuthStore(service.NewAuthService(client), o.logger),
		Cart:    store.NewCartStore(service.NewCartService(client), o.logger),
		Books:   service.NewBookService(client),
		Authors: service.NewAuthorService(client, o.logger),
	}

	// An anonymous session has no cart.
	a.stopResetOnLogout = a.Auth.Subscribe(func(st store.AuthState) {
		if !st.Authenticated {
			a.Cart.Reset()
		}
	})

	a.logger.Debug("storefront client ready", slog.String("api_url", client.BaseURL()))
	return a, nil
}

// Start warms the CSRF token and restores the session, loading the cart when
// one exists. Only a failed cart load is returned; the token and session
// checks degrade to an anonymous start.
func (a *App) Start(ctx context.Context) error {
	if _, err := a.client.EnsureToken(ctx); err != nil {
		a.logger.Warn("could not prefetch CSRF token", slog.String("error", err.Error()))
	}

	if !a.Auth.CheckAuth(ctx) {
		return nil
	}
	return a.Cart.FetchCart(ctx)
}

// Client exposes the API client, e.g. for raw requests.
func (a *App) Client() *apiclient.Client {
	return a.client
}

// ForgetCookies drops every stored cookie, CSRF token included. Close then
// writes an empty cookie file.
func (a *App) ForgetCookies() error {
	return a.jar.Clear()
}

// Close persists the cookies so the next run resumes the session.
func (a *App) Close() error {
	a.stopResetOnLogout()
	if err := a.jar.Save(); err != nil {
		return fmt.Errorf("save cookies: %w", err)
	}
	return nil
}
