// Package fakeapi is an in-memory stand-in for the storefront API. It
// enforces the rules the client depends on (CSRF tokens, session cookies,
// cart quantity limits, checkout) and is used by tests and local runs. It is
// not a production server.
package fakeapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mateoromerocontreras/django-bookstore/internal/domain"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"
)

const defaultPageSize = 10

// Stats counts requests tests care about.
type Stats struct {
	TokenRequests  int64
	TokensIssued   int64
	CSRFRejections int64
	Logins         int64
}

// Server is the fake API. It is an http.Handler.
type Server struct {
	logger *slog.Logger
	now    func() time.Time

	seed           Seed
	passwordCost   int
	pageSize       int
	allowedOrigins []string
	validate       bool
	tokenDelay     time.Duration
	authRate       float64
	authBurst      int

	latency atomic.Int64

	tokenRequests  atomic.Int64
	tokensIssued   atomic.Int64
	csrfRejections atomic.Int64
	logins         atomic.Int64

	mu         sync.Mutex
	seq        map[string]int64
	users      map[int64]*userRecord
	usernames  map[string]int64
	emails     map[string]int64
	sessions   map[string]int64
	tokens     map[string]struct{}
	authors    map[int64]*domain.Author
	editorials map[int64]*domain.Editorial
	books      map[int64]*bookRecord
	carts      map[int64]*cartRecord

	limiter *RateLimiter
	handler http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithSeed replaces DefaultSeed.
func WithSeed(seed Seed) Option {
	return func(s *Server) { s.seed = seed }
}

// WithPasswordCost sets the bcrypt cost; tests use bcrypt.MinCost.
func WithPasswordCost(cost int) Option {
	return func(s *Server) { s.passwordCost = cost }
}

// WithAuthRateLimit limits login and register per client address.
func WithAuthRateLimit(perSecond float64, burst int) Option {
	return func(s *Server) {
		s.authRate = perSecond
		s.authBurst = burst
	}
}

func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.allowedOrigins = origins }
}

// WithTokenDelay delays every token response, widening the window in which
// concurrent clients wait on the same bootstrap.
func WithTokenDelay(d time.Duration) Option {
	return func(s *Server) { s.tokenDelay = d }
}

// WithRequestValidation toggles validation against the embedded OpenAPI document.
func WithRequestValidation(enabled bool) Option {
	return func(s *Server) { s.validate = enabled }
}

func WithPageSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New builds a seeded server.
func New(opts ...Option) (*Server, error) {
	s := &Server{
		logger:         slog.Default(),
		now:            time.Now,
		seed:           DefaultSeed(),
		passwordCost:   bcrypt.DefaultCost,
		pageSize:       defaultPageSize,
		allowedOrigins: []string{"http://localhost:5173"},
		validate:       true,
		authRate:       5,
		authBurst:      10,
		seq:            make(map[string]int64),
		users:          make(map[int64]*userRecord),
		usernames:      make(map[string]int64),
		emails:         make(map[string]int64),
		sessions:       make(map[string]int64),
		tokens:         make(map[string]struct{}),
		authors:        make(map[int64]*domain.Author),
		editorials:     make(map[int64]*domain.Editorial),
		books:          make(map[int64]*bookRecord),
		carts:          make(map[int64]*cartRecord),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mu.Lock()
	err := s.load(s.seed)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var validator func(http.Handler) http.Handler
	if s.validate {
		validator, err = newRequestValidator(s.logger)
		if err != nil {
			return nil, fmt.Errorf("load api contract: %w", err)
		}
	}

	s.limiter = NewRateLimiter(s.authRate, s.authBurst)
	s.handler = s.routes(validator)
	return s, nil
}

func (s *Server) routes(validator func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(metrics)
	r.Use(cors(s.allowedOrigins))

	r.Get("/health", health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(s.delay)
		r.Use(s.loadSession)
		r.Use(s.csrfProtect)
		if validator != nil {
			r.Use(validator)
		}

		r.Get("/csrf-token/", s.csrfToken)

		r.Route("/auth", func(r chi.Router) {
			r.With(s.limiter.Middleware()).Post("/register/", s.register)
			r.With(s.limiter.Middleware()).Post("/login/", s.login)
			r.With(requireAuth).Post("/logout/", s.logout)
			r.With(requireAuth).Get("/user/", s.currentUser)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", s.getCart)
			r.Post("/add_item/", s.addItem)
			r.Put("/update_item/", s.updateItem)
			r.Patch("/update_item/", s.updateItem)
			r.Delete("/remove_item/", s.removeItem)
			r.Post("/clear/", s.clearCart)
			r.Post("/checkout/", s.checkout)
		})

		r.Route("/books", func(r chi.Router) {
			r.Get("/", s.listBooks)
			r.With(requireAuth).Post("/", s.createBook)
			r.Get("/{id}/", s.getBook)
			r.With(requireAuth).Patch("/{id}/", s.updateBook)
			r.With(requireAuth).Delete("/{id}/", s.deleteBook)
		})

		r.Route("/authors", func(r chi.Router) {
			r.Get("/", s.listAuthors)
			r.With(requireAuth).Post("/", s.createAuthorHandler)
			r.Get("/{id}/", s.getAuthor)
		})
	})

	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close stops background work.
func (s *Server) Close() {
	s.limiter.Stop()
}

func (s *Server) Stats() Stats {
	return Stats{
		TokenRequests:  s.tokenRequests.Load(),
		TokensIssued:   s.tokensIssued.Load(),
		CSRFRejections: s.csrfRejections.Load(),
		Logins:         s.logins.Load(),
	}
}

// SetLatency delays every API response by d.
func (s *Server) SetLatency(d time.Duration) {
	s.latency.Store(int64(d))
}

// SetStock changes the copies in stock of a book, e.g. to simulate another
// buyer between add and checkout.
func (s *Server) SetStock(bookID int64, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[bookID]
	if !ok {
		return fmt.Errorf("book %d not found", bookID)
	}
	b.setQuantity(quantity, s.now())
	return nil
}

// Book returns the current state of a book.
func (s *Server) Book(id int64) (domain.Book, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[id]
	if !ok {
		return domain.Book{}, false
	}
	return s.bookDetail(b), true
}

// Cart returns the cart of username as the API would render it.
func (s *Server) Cart(username string) (domain.Cart, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.usernames[username]
	if !ok {
		return domain.Cart{}, false
	}
	return s.renderCart(s.cartFor(id)), true
}

// nextID returns the next id of kind. The caller holds s.mu.
func (s *Server) nextID(kind string) int64 {
	s.seq[kind]++
	return s.seq[kind]
}

func (s *Server) delay(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d := time.Duration(s.latency.Load()); d > 0 {
			select {
			case <-time.After(d):
			case <-r.Context().Done():
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
