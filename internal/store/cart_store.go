package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mateoromerocontreras/django-bookstore/internal/apiclient"
	"github.com/mateoromerocontreras/django-bookstore/internal/domain"
	"github.com/mateoromerocontreras/django-bookstore/internal/observability"
)

// ErrRefetch marks a failure to reload the cart after the server accepted a
// mutation. The mutation itself took effect.
var ErrRefetch = errors.New("cart changed but could not be reloaded")

// CartAPI is the subset of the cart service the store needs.
type CartAPI interface {
	GetCart(ctx context.Context) (*domain.Cart, error)
	AddItem(ctx context.Context, bookID int64, quantity int) (*domain.CartItem, error)
	UpdateItem(ctx context.Context, bookID int64, quantity int) (*domain.CartItem, error)
	RemoveItem(ctx context.Context, bookID int64) error
	Clear(ctx context.Context) error
	Checkout(ctx context.Context) (*domain.CheckoutResponse, error)
}

// CartState is the local mirror of the server cart. Cart is nil before the
// first fetch and after Reset. Err holds the message of the last failure.
type CartState struct {
	Cart    *domain.Cart
	Loading bool
	Err     string
}

// ItemCount sums the quantities of the cart in s.
func (s CartState) ItemCount() int {
	return s.Cart.ItemCount()
}

// CartStore keeps a local copy of the cart consistent with the server. Every
// mutation is followed by a full refetch; the client never patches the cart
// itself. Operations run one at a time; Snapshot never waits for them.
type CartStore struct {
	api    CartAPI
	logger *slog.Logger

	// op admits one operation at a time.
	op chan struct{}

	mu    sync.RWMutex
	state CartState

	subs listeners[CartState]
}

// NewCartStore returns a store with no cart loaded.
func NewCartStore(api CartAPI, logger *slog.Logger) *CartStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CartStore{
		api:    api,
		logger: logger,
		op:     make(chan struct{}, 1),
	}
}

// FetchCart replaces the local cart with the server's.
func (s *CartStore) FetchCart(ctx context.Context) error {
	return s.run(ctx, "fetch", "Failed to fetch cart", nil)
}

// AddToCart adds quantity copies of a book. Quantities are not checked
// locally; the server decides.
func (s *CartStore) AddToCart(ctx context.Context, bookID int64, quantity int) error {
	return s.run(ctx, "add", "Failed to add item to cart", func(ctx context.Context) error {
		_, err := s.api.AddItem(ctx, bookID, quantity)
		return err
	})
}

// UpdateCartItem sets the quantity of a cart line.
func (s *CartStore) UpdateCartItem(ctx context.Context, bookID int64, quantity int) error {
	return s.run(ctx, "update", "Failed to update cart item", func(ctx context.Context) error {
		_, err := s.api.UpdateItem(ctx, bookID, quantity)
		return err
	})
}

// RemoveFromCart drops the line holding bookID.
func (s *CartStore) RemoveFromCart(ctx context.Context, bookID int64) error {
	return s.run(ctx, "remove", "Failed to remove item from cart", func(ctx context.Context) error {
		return s.api.RemoveItem(ctx, bookID)
	})
}

// ClearCart empties the cart.
func (s *CartStore) ClearCart(ctx context.Context) error {
	return s.run(ctx, "clear", "Failed to clear cart", s.api.Clear)
}

// Checkout places the order and returns the receipt. The cart is refetched
// afterwards, which leaves it empty. When only the refetch fails the order
// stands: the receipt is returned along with an error wrapping ErrRefetch.
func (s *CartStore) Checkout(ctx context.Context) (*domain.CheckoutResponse, error) {
	var receipt *domain.CheckoutResponse
	err := s.run(ctx, "checkout", "Failed to checkout", func(ctx context.Context) error {
		var err error
		receipt, err = s.api.Checkout(ctx)
		return err
	})
	if err != nil && !errors.Is(err, ErrRefetch) {
		return nil, err
	}
	return receipt, err
}

// ItemCount returns the number of copies in the last known cart.
func (s *CartStore) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Cart.ItemCount()
}

// Snapshot returns a copy of the current state.
func (s *CartStore) Snapshot() CartState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to receive every new state, in order. The returned
// function removes it.
func (s *CartStore) Subscribe(fn func(CartState)) func() {
	return s.subs.add(fn)
}

// Reset forgets the local cart, e.g. when the session ends.
func (s *CartStore) Reset() {
	s.update(func(st *CartState) {
		st.Cart = nil
		st.Err = ""
	})
}

// run executes mutate, when given, then refetches the cart. On any failure
// the previous cart is kept and Err is set.
func (s *CartStore) run(ctx context.Context, operation, fallback string, mutate func(context.Context) error) error {
	select {
	case s.op <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("%s cart: %w", operation, ctx.Err())
	}
	defer func() { <-s.op }()

	s.update(func(st *CartState) {
		st.Loading = true
		st.Err = ""
	})

	if mutate != nil {
		if err := mutate(ctx); err != nil {
			return s.fail(operation, fallback, err)
		}
	}

	cart, err := s.api.GetCart(ctx)
	if err != nil {
		if mutate != nil {
			err = fmt.Errorf("%w: %w", ErrRefetch, err)
			fallback = "Failed to fetch cart"
		}
		return s.fail(operation, fallback, err)
	}

	s.update(func(st *CartState) {
		st.Cart = cart
		st.Loading = false
	})
	observability.CartOperationsTotal.WithLabelValues(operation, "success").Inc()
	return nil
}

func (s *CartStore) fail(operation, fallback string, err error) error {
	msg := apiclient.MessageOr(err, fallback)
	s.update(func(st *CartState) {
		st.Loading = false
		st.Err = msg
	})
	observability.CartOperationsTotal.WithLabelValues(operation, "failure").Inc()
	s.logger.Debug("cart operation failed",
		slog.String("operation", operation),
		slog.String("error", err.Error()))
	return fmt.Errorf("%s cart: %w", operation, err)
}

func (s *CartStore) update(fn func(*CartState)) {
	s.subs.publish(func() CartState {
		s.mu.Lock()
		defer s.mu.Unlock()
		fn(&s.state)
		return s.snapshotLocked()
	})
}

func (s *CartStore) snapshotLocked() CartState {
	snap := s.state
	snap.Cart = s.state.Cart.Clone()
	return snap
}
