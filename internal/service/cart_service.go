package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mateoromerocontreras/django-bookstore/internal/domain"
)

type cartItemRequest struct {
	BookID   int64 `json:"book_id"`
	Quantity int   `json:"quantity"`
}

type CartService struct {
	api Requester
}

func NewCartService(api Requester) *CartService {
	return &CartService{api: api}
}

func (s *CartService) GetCart(ctx context.Context) (*domain.Cart, error) {
	var cart domain.Cart
	if err := s.api.Do(ctx, http.MethodGet, "/cart/", nil, &cart); err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return &cart, nil
}

// AddItem adds quantity copies of a book; the server accumulates onto an
// existing line.
func (s *CartService) AddItem(ctx context.Context, bookID int64, quantity int) (*domain.CartItem, error) {
	var item domain.CartItem
	body := cartItemRequest{BookID: bookID, Quantity: quantity}
	if err := s.api.Do(ctx, http.MethodPost, "/cart/add_item/", body, &item); err != nil {
		return nil, fmt.Errorf("add item %d: %w", bookID, err)
	}
	return &item, nil
}

// UpdateItem sets the quantity of an existing line.
func (s *CartService) UpdateItem(ctx context.Context, bookID int64, quantity int) (*domain.CartItem, error) {
	var item domain.CartItem
	body := cartItemRequest{BookID: bookID, Quantity: quantity}
	if err := s.api.Do(ctx, http.MethodPut, "/cart/update_item/", body, &item); err != nil {
		return nil, fmt.Errorf("update item %d: %w", bookID, err)
	}
	return &item, nil
}

func (s *CartService) RemoveItem(ctx context.Context, bookID int64) error {
	q := url.Values{"book_id": {strconv.FormatInt(bookID, 10)}}
	if err := s.api.Do(ctx, http.MethodDelete, "/cart/remove_item/?"+q.Encode(), nil, nil); err != nil {
		return fmt.Errorf("remove item %d: %w", bookID, err)
	}
	return nil
}

func (s *CartService) Clear(ctx context.Context) error {
	if err := s.api.Do(ctx, http.MethodPost, "/cart/clear/", nil, nil); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (s *CartService) Checkout(ctx context.Context) (*domain.CheckoutResponse, error) {
	var resp domain.CheckoutResponse
	if err := s.api.Do(ctx, http.MethodPost, "/cart/checkout/", nil, &resp); err != nil {
		return nil, fmt.Errorf("checkout: %w", err)
	}
	return &resp, nil
}
