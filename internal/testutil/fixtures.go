package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/mateoromerocontreras/django-bookstore/internal/domain"
)

// Counter for generating unique IDs
var idCounter atomic.Int64

func nextID() int64 {
	return idCounter.Add(1)
}

// UserOptions allows customizing user fixture creation
type UserOptions struct {
	ID        int64
	Username  string
	Email     string
	FirstName string
	LastName  string
}

// NewTestUser creates a test user with sensible defaults
// Pass options to override specific fields
func NewTestUser(opts ...func(*UserOptions)) *domain.User {
	id := nextID()
	o := &UserOptions{
		ID:       id,
		Username: fmt.Sprintf("testuser%d", id),
	}

	for _, opt := range opts {
		opt(o)
	}

	// Set email based on username if not provided
	if o.Email == "" {
		o.Email = o.Username + "@example.com"
	}

	return &domain.User{
		ID:        o.ID,
		Username:  o.Username,
		Email:     o.Email,
		FirstName: o.FirstName,
		LastName:  o.LastName,
	}
}

// WithUserID sets the user ID
func WithUserID(id int64) func(*UserOptions) {
	return func(o *UserOptions) {
		o.ID = id
	}
}

// WithUsername sets the username
func WithUsername(username string) func(*UserOptions) {
	return func(o *UserOptions) {
		o.Username = username
	}
}

// BookOptions allows customizing book fixture creation
type BookOptions struct {
	ID         int64
	Title      string
	PriceCents int64
	Quantity   int
	Condition  domain.Condition
	Author     string
}

// NewTestBook creates an in-stock book priced at 10.00
func NewTestBook(opts ...func(*BookOptions)) domain.Book {
	id := nextID()
	o := &BookOptions{
		ID:         id,
		Title:      fmt.Sprintf("Test Book %d", id),
		PriceCents: 1000,
		Quantity:   5,
		Condition:  domain.ConditionGood,
		Author:     "Test Author",
	}

	for _, opt := range opts {
		opt(o)
	}

	now := time.Now()
	return domain.Book{
		ID:          o.ID,
		Title:       o.Title,
		ISBN:        fmt.Sprintf("978%010d", o.ID),
		Price:       Money(o.PriceCents),
		Condition:   o.Condition,
		Language:    "en",
		Author:      domain.Author{ID: 1, Name: o.Author},
		Quantity:    o.Quantity,
		IsAvailable: o.Quantity > 0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// WithBookID sets the book ID
func WithBookID(id int64) func(*BookOptions) {
	return func(o *BookOptions) {
		o.ID = id
	}
}

// WithTitle sets the book title
func WithTitle(title string) func(*BookOptions) {
	return func(o *BookOptions) {
		o.Title = title
	}
}

// WithPriceCents sets the price
func WithPriceCents(cents int64) func(*BookOptions) {
	return func(o *BookOptions) {
		o.PriceCents = cents
	}
}

// WithStock sets the copies in stock
func WithStock(quantity int) func(*BookOptions) {
	return func(o *BookOptions) {
		o.Quantity = quantity
	}
}

// NewTestCart builds a cart for userID from (book, quantity) lines. Totals
// are computed the way the server renders them.
func NewTestCart(userID int64, lines ...CartLine) *domain.Cart {
	now := time.Now()
	cart := &domain.Cart{
		ID:        nextID(),
		User:      userID,
		Items:     []domain.CartItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	var total int64
	for _, line := range lines {
		subtotal := MustCents(line.Book.Price) * int64(line.Quantity)
		total += subtotal
		cart.Items = append(cart.Items, domain.CartItem{
			ID:        nextID(),
			Book:      line.Book,
			Quantity:  line.Quantity,
			Subtotal:  domain.Money(Money(subtotal)),
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	cart.Total = domain.Money(Money(total))
	return cart
}

// CartLine is one line given to NewTestCart.
type CartLine struct {
	Book     domain.Book
	Quantity int
}

// Money renders cents as a two decimal string.
func Money(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

// MustCents parses a price rendered by Money. It panics on malformed input.
func MustCents(price string) int64 {
	var whole, frac int64
	if _, err := fmt.Sscanf(price, "%d.%02d", &whole, &frac); err != nil {
		panic(fmt.Sprintf("testutil: bad price %q: %v", price, err))
	}
	return whole*100 + frac
}
