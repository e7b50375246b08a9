package fakeapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/mateoromerocontreras/django-bookstore/internal/domain"
)

type cartItemRequest struct {
	BookID   *int64 `json:"book_id"`
	Quantity *int   `json:"quantity"`
}

func (req cartItemRequest) quantity() int {
	if req.Quantity == nil {
		return 1
	}
	return *req.Quantity
}

var maxQuantityMessage = fmt.Sprintf("You can order at most %d copies of a book", domain.MaxOrderQuantity)

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	uid, _ := userID(r.Context())

	s.mu.Lock()
	cart := s.renderCart(s.cartFor(uid))
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, cart)
}

// addItem adds copies to the cart, accumulating onto an existing line.
func (s *Server) addItem(w http.ResponseWriter, r *http.Request) {
	uid, _ := userID(r.Context())

	var req cartItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.BookID == nil || *req.BookID == 0 {
		writeError(w, http.StatusBadRequest, "book_id is required")
		return
	}
	quantity := req.quantity()

	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[*req.BookID]
	if !ok {
		writeError(w, http.StatusNotFound, "Book not found")
		return
	}
	if quantity <= 0 {
		writeError(w, http.StatusBadRequest, "Quantity must be greater than 0")
		return
	}
	if book.quantity < quantity {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Only %d copies available", book.quantity))
		return
	}
	if quantity > domain.MaxOrderQuantity {
		writeError(w, http.StatusBadRequest, maxQuantityMessage)
		return
	}

	now := s.now()
	cart := s.cartFor(uid)
	line, _ := cart.line(book.id)
	status := http.StatusOK

	if line == nil {
		line = &cartLine{id: s.nextID("cart_item"), bookID: book.id, quantity: quantity, createdAt: now, updatedAt: now}
		cart.lines = append(cart.lines, line)
		status = http.StatusCreated
	} else {
		total := line.quantity + quantity
		if total > book.quantity {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("Cannot add %d more. Only %d available", quantity, book.quantity-line.quantity))
			return
		}
		if total > domain.MaxOrderQuantity {
			writeError(w, http.StatusBadRequest, maxQuantityMessage)
			return
		}
		line.quantity = total
		line.updatedAt = now
	}
	cart.updatedAt = now

	writeJSON(w, status, s.renderLine(line))
}

// updateItem replaces the quantity of an existing line.
func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	uid, _ := userID(r.Context())

	var req cartItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.BookID == nil || *req.BookID == 0 {
		writeError(w, http.StatusBadRequest, "book_id is required")
		return
	}
	quantity := req.quantity()
	if quantity <= 0 {
		writeError(w, http.StatusBadRequest, "Quantity must be greater than 0")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[*req.BookID]
	if !ok {
		writeError(w, http.StatusNotFound, "Book not found")
		return
	}

	cart := s.cartFor(uid)
	line, _ := cart.line(book.id)
	if line == nil {
		writeError(w, http.StatusNotFound, "Item not found in cart")
		return
	}
	if quantity > book.quantity {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Only %d copies available", book.quantity))
		return
	}
	if quantity > domain.MaxOrderQuantity {
		writeError(w, http.StatusBadRequest, maxQuantityMessage)
		return
	}

	now := s.now()
	line.quantity = quantity
	line.updatedAt = now
	cart.updatedAt = now

	writeJSON(w, http.StatusOK, s.renderLine(line))
}

func (s *Server) removeItem(w http.ResponseWriter, r *http.Request) {
	uid, _ := userID(r.Context())

	raw := r.URL.Query().Get("book_id")
	if raw == "" {
		var req cartItemRequest
		if err := decodeBody(r, &req); err == nil && req.BookID != nil {
			raw = strconv.FormatInt(*req.BookID, 10)
		}
	}
	if raw == "" {
		writeError(w, http.StatusBadRequest, "book_id is required")
		return
	}
	bookID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "Book not found")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[bookID]; !ok {
		writeError(w, http.StatusNotFound, "Book not found")
		return
	}

	cart := s.cartFor(uid)
	_, idx := cart.line(bookID)
	if idx < 0 {
		writeError(w, http.StatusNotFound, "Item not found in cart")
		return
	}
	cart.lines = append(cart.lines[:idx], cart.lines[idx+1:]...)
	cart.updatedAt = s.now()

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	uid, _ := userID(r.Context())

	s.mu.Lock()
	cart := s.cartFor(uid)
	cart.lines = nil
	cart.updatedAt = s.now()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"message": "Cart cleared"})
}

// checkout validates every line against stock, then decrements stock and
// empties the cart in one step.
func (s *Server) checkout(w http.ResponseWriter, r *http.Request) {
	uid, _ := userID(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.cartFor(uid)
	if len(cart.lines) == 0 {
		writeError(w, http.StatusBadRequest, "Cart is empty")
		return
	}

	var problems []string
	for _, line := range cart.lines {
		book := s.books[line.bookID]
		if line.quantity > book.quantity {
			problems = append(problems, fmt.Sprintf("Not enough copies of %q. Available: %d, Requested: %d",
				book.title, book.quantity, line.quantity))
		}
	}
	if len(problems) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"errors": problems})
		return
	}

	now := s.now()
	resp := domain.CheckoutResponse{Message: "Checkout successful"}
	var total int64
	for _, line := range cart.lines {
		book := s.books[line.bookID]
		subtotal := book.priceCents * int64(line.quantity)
		total += subtotal
		book.setQuantity(book.quantity-line.quantity, now)

		resp.PurchasedItems = append(resp.PurchasedItems, domain.PurchasedItem{
			Book:     book.title,
			Quantity: line.quantity,
			Price:    formatCents(book.priceCents),
			Subtotal: formatCents(subtotal),
		})
	}
	resp.Total = formatCents(total)
	cart.lines = nil
	cart.updatedAt = now

	writeJSON(w, http.StatusOK, resp)
}

// cartFor returns the cart of a user, creating it on first use. The caller
// holds s.mu.
func (s *Server) cartFor(userID int64) *cartRecord {
	if c, ok := s.carts[userID]; ok {
		return c
	}
	now := s.now()
	c := &cartRecord{id: s.nextID("cart"), userID: userID, createdAt: now, updatedAt: now}
	s.carts[userID] = c
	return c
}

// renderCart builds the API view of a cart. The caller holds s.mu.
func (s *Server) renderCart(c *cartRecord) domain.Cart {
	out := domain.Cart{
		ID:        c.id,
		User:      c.userID,
		Items:     make([]domain.CartItem, 0, len(c.lines)),
		CreatedAt: c.createdAt,
		UpdatedAt: c.updatedAt,
	}
	var total int64
	for _, line := range c.lines {
		total += s.books[line.bookID].priceCents * int64(line.quantity)
		out.Items = append(out.Items, s.renderLine(line))
	}
	out.Total = domain.Money(formatCents(total))
	return out
}

// renderLine builds the API view of a cart line. The caller holds s.mu.
func (s *Server) renderLine(l *cartLine) domain.CartItem {
	book := s.books[l.bookID]
	return domain.CartItem{
		ID:        l.id,
		Book:      s.bookDetail(book),
		Quantity:  l.quantity,
		Subtotal:  domain.Money(formatCents(book.priceCents * int64(l.quantity))),
		CreatedAt: l.createdAt,
		UpdatedAt: l.updatedAt,
	}
}
