// Package testutil provides shared test utilities, mocks, and fixtures
// for testing the storefront client.
package testutil

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/mateoromerocontreras/django-bookstore/internal/apiclient"
	"github.com/mateoromerocontreras/django-bookstore/internal/domain"
)

// Rejected builds the error the API client returns for a 4xx/5xx answer
// carrying {"error": msg}.
func Rejected(status int, msg string) error {
	return &apiclient.ServerRejectedError{
		Method: http.MethodPost,
		Path:   "/mock/",
		Status: status,
		Body:   apiclient.ErrorBody{Error: msg},
	}
}

// NetworkDown builds the error the API client returns when the server is
// unreachable.
func NetworkDown() error {
	return &apiclient.NetworkError{Method: http.MethodGet, Path: "/mock/", Err: fmt.Errorf("connection refused")}
}

// MockAuthAPI implements store.AuthAPI for testing
type MockAuthAPI struct {
	mu sync.Mutex

	// Function overrides - set these to customize behavior
	LoginFunc       func(ctx context.Context, creds domain.LoginCredentials) (*domain.User, error)
	RegisterFunc    func(ctx context.Context, data domain.RegisterData) (*domain.User, error)
	LogoutFunc      func(ctx context.Context) error
	CurrentUserFunc func(ctx context.Context) (*domain.User, error)

	// In-memory accounts keyed by username, and the session owner.
	Passwords map[string]string
	Users     map[string]*domain.User
	Current   *domain.User
}

// NewMockAuthAPI creates a MockAuthAPI knowing the given user.
func NewMockAuthAPI(user *domain.User, password string) *MockAuthAPI {
	return &MockAuthAPI{
		Passwords: map[string]string{user.Username: password},
		Users:     map[string]*domain.User{user.Username: user},
	}
}

func (m *MockAuthAPI) Login(ctx context.Context, creds domain.LoginCredentials) (*domain.User, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, creds)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if creds.Username == "" || creds.Password == "" {
		return nil, Rejected(http.StatusBadRequest, "Username and password are required")
	}
	if pw, ok := m.Passwords[creds.Username]; !ok || pw != creds.Password {
		return nil, Rejected(http.StatusUnauthorized, "Invalid credentials")
	}
	u := *m.Users[creds.Username]
	m.Current = &u
	return &u, nil
}

func (m *MockAuthAPI) Register(ctx context.Context, data domain.RegisterData) (*domain.User, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, data)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.Users[data.Username]; ok {
		return nil, Rejected(http.StatusBadRequest, "Username already exists")
	}
	user := NewTestUser(WithUsername(data.Username))
	if m.Users == nil {
		m.Users = make(map[string]*domain.User)
		m.Passwords = make(map[string]string)
	}
	m.Users[data.Username] = user
	m.Passwords[data.Username] = data.Password
	return user, nil
}

func (m *MockAuthAPI) Logout(ctx context.Context) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Current = nil
	return nil
}

func (m *MockAuthAPI) CurrentUser(ctx context.Context) (*domain.User, error) {
	if m.CurrentUserFunc != nil {
		return m.CurrentUserFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Current == nil {
		return nil, &apiclient.ServerRejectedError{
			Method: http.MethodGet,
			Path:   "/auth/user/",
			Status: http.StatusForbidden,
			Body:   apiclient.ErrorBody{Detail: "Authentication credentials were not provided."},
		}
	}
	u := *m.Current
	return &u, nil
}

// MockCartAPI implements store.CartAPI for testing. Without overrides it
// behaves like a small server cart over Books.
type MockCartAPI struct {
	mu sync.Mutex

	// Function overrides - set these to customize behavior
	GetCartFunc    func(ctx context.Context) (*domain.Cart, error)
	AddItemFunc    func(ctx context.Context, bookID int64, quantity int) (*domain.CartItem, error)
	UpdateItemFunc func(ctx context.Context, bookID int64, quantity int) (*domain.CartItem, error)
	RemoveItemFunc func(ctx context.Context, bookID int64) error
	ClearFunc      func(ctx context.Context) error
	CheckoutFunc   func(ctx context.Context) (*domain.CheckoutResponse, error)

	UserID int64
	Books  map[int64]domain.Book
	Lines  []CartLine

	// Calls records method names in call order.
	Calls []string
}

// NewMockCartAPI creates a MockCartAPI selling books.
func NewMockCartAPI(books ...domain.Book) *MockCartAPI {
	m := &MockCartAPI{UserID: 1, Books: make(map[int64]domain.Book)}
	for _, b := range books {
		m.Books[b.ID] = b
	}
	return m
}

// CallLog returns a copy of Calls.
func (m *MockCartAPI) CallLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Calls...)
}

func (m *MockCartAPI) record(name string) {
	m.mu.Lock()
	m.Calls = append(m.Calls, name)
	m.mu.Unlock()
}

func (m *MockCartAPI) GetCart(ctx context.Context) (*domain.Cart, error) {
	m.record("GetCart")
	if m.GetCartFunc != nil {
		return m.GetCartFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return NewTestCart(m.UserID, m.Lines...), nil
}

func (m *MockCartAPI) AddItem(ctx context.Context, bookID int64, quantity int) (*domain.CartItem, error) {
	m.record("AddItem")
	if m.AddItemFunc != nil {
		return m.AddItemFunc(ctx, bookID, quantity)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	book, ok := m.Books[bookID]
	if !ok {
		return nil, Rejected(http.StatusNotFound, "Book not found")
	}
	if quantity <= 0 {
		return nil, Rejected(http.StatusBadRequest, "Quantity must be greater than 0")
	}
	idx := m.line(bookID)
	have := 0
	if idx >= 0 {
		have = m.Lines[idx].Quantity
	}
	if have+quantity > book.Quantity {
		return nil, Rejected(http.StatusBadRequest, fmt.Sprintf("Only %d copies available", book.Quantity))
	}
	if idx >= 0 {
		m.Lines[idx].Quantity += quantity
	} else {
		m.Lines = append(m.Lines, CartLine{Book: book, Quantity: quantity})
		idx = len(m.Lines) - 1
	}
	return &domain.CartItem{Book: book, Quantity: m.Lines[idx].Quantity}, nil
}

func (m *MockCartAPI) UpdateItem(ctx context.Context, bookID int64, quantity int) (*domain.CartItem, error) {
	m.record("UpdateItem")
	if m.UpdateItemFunc != nil {
		return m.UpdateItemFunc(ctx, bookID, quantity)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if quantity <= 0 {
		return nil, Rejected(http.StatusBadRequest, "Quantity must be greater than 0")
	}
	idx := m.line(bookID)
	if idx < 0 {
		return nil, Rejected(http.StatusNotFound, "Item not found in cart")
	}
	if quantity > m.Lines[idx].Book.Quantity {
		return nil, Rejected(http.StatusBadRequest, fmt.Sprintf("Only %d copies available", m.Lines[idx].Book.Quantity))
	}
	m.Lines[idx].Quantity = quantity
	return &domain.CartItem{Book: m.Lines[idx].Book, Quantity: quantity}, nil
}

func (m *MockCartAPI) RemoveItem(ctx context.Context, bookID int64) error {
	m.record("RemoveItem")
	if m.RemoveItemFunc != nil {
		return m.RemoveItemFunc(ctx, bookID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.line(bookID)
	if idx < 0 {
		return Rejected(http.StatusNotFound, "Item not found in cart")
	}
	m.Lines = append(m.Lines[:idx], m.Lines[idx+1:]...)
	return nil
}

func (m *MockCartAPI) Clear(ctx context.Context) error {
	m.record("Clear")
	if m.ClearFunc != nil {
		return m.ClearFunc(ctx)
	}
	m.mu.Lock()
	m.Lines = nil
	m.mu.Unlock()
	return nil
}

func (m *MockCartAPI) Checkout(ctx context.Context) (*domain.CheckoutResponse, error) {
	m.record("Checkout")
	if m.CheckoutFunc != nil {
		return m.CheckoutFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.Lines) == 0 {
		return nil, Rejected(http.StatusBadRequest, "Cart is empty")
	}
	cart := NewTestCart(m.UserID, m.Lines...)
	resp := &domain.CheckoutResponse{Message: "Checkout successful", Total: cart.Total.String()}
	for _, item := range cart.Items {
		resp.PurchasedItems = append(resp.PurchasedItems, domain.PurchasedItem{
			Book:     item.Book.Title,
			Quantity: item.Quantity,
			Price:    item.Book.Price,
			Subtotal: item.Subtotal.String(),
		})
	}
	m.Lines = nil
	return resp, nil
}

// line returns the index of bookID in Lines or -1. The caller holds m.mu.
func (m *MockCartAPI) line(bookID int64) int {
	for i, l := range m.Lines {
		if l.Book.ID == bookID {
			return i
		}
	}
	return -1
}
