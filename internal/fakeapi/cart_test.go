package fakeapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/mateoromerocontreras/django-bookstore/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type itemBody struct {
	BookID   int64 `json:"book_id"`
	Quantity int   `json:"quantity"`
}

func getCart(t *testing.T, c *testClient) domain.Cart {
	t.Helper()
	status, body := c.do(http.MethodGet, "/api/cart/", nil, false)
	require.Equal(t, http.StatusOK, status, string(body))

	var cart domain.Cart
	require.NoError(t, json.Unmarshal(body, &cart))
	return cart
}

func TestCart_RequiresAuthentication(t *testing.T) {
	_, c := newTestServer(t)

	status, body := c.do(http.MethodGet, "/api/cart/", nil, false)

	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Authentication credentials were not provided.", errorField(t, body, "detail"))
}

func TestCart_EmptyCart(t *testing.T) {
	_, c := newTestServer(t)
	c.login(DemoUsername, DemoPassword)

	cart := getCart(t, c)

	assert.Empty(t, cart.Items)
	assert.Equal(t, "0.00", cart.Total.String())
}

func TestCart_AddItem(t *testing.T) {
	tests := []struct {
		name    string
		first   *itemBody
		body    any
		status  int
		message string
	}{
		{
			name:   "new line",
			body:   itemBody{BookID: 1, Quantity: 2},
			status: http.StatusCreated,
		},
		{
			name:   "quantity defaults to one",
			body:   map[string]int64{"book_id": 1},
			status: http.StatusCreated,
		},
		{
			name:    "missing book id",
			body:    map[string]int{"quantity": 1},
			status:  http.StatusBadRequest,
			message: "book_id is required",
		},
		{
			name:    "unknown book",
			body:    itemBody{BookID: 999, Quantity: 1},
			status:  http.StatusNotFound,
			message: "Book not found",
		},
		{
			name:    "zero quantity",
			body:    itemBody{BookID: 1, Quantity: 0},
			status:  http.StatusBadRequest,
			message: "Quantity must be greater than 0",
		},
		{
			name:    "more than stock",
			body:    itemBody{BookID: 2, Quantity: 4},
			status:  http.StatusBadRequest,
			message: "Only 3 copies available",
		},
		{
			name:    "out of stock",
			body:    itemBody{BookID: 5, Quantity: 1},
			status:  http.StatusBadRequest,
			message: "Only 0 copies available",
		},
		{
			name:    "over the cap",
			body:    itemBody{BookID: 3, Quantity: 11},
			status:  http.StatusBadRequest,
			message: maxQuantityMessage,
		},
		{
			name:   "accumulates",
			first:  &itemBody{BookID: 1, Quantity: 2},
			body:   itemBody{BookID: 1, Quantity: 3},
			status: http.StatusOK,
		},
		{
			name:    "accumulated beyond stock",
			first:   &itemBody{BookID: 1, Quantity: 4},
			body:    itemBody{BookID: 1, Quantity: 2},
			status:  http.StatusBadRequest,
			message: "Cannot add 2 more. Only 1 available",
		},
		{
			name:    "accumulated beyond the cap",
			first:   &itemBody{BookID: 3, Quantity: 8},
			body:    itemBody{BookID: 3, Quantity: 3},
			status:  http.StatusBadRequest,
			message: maxQuantityMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, c := newTestServer(t)
			c.login(DemoUsername, DemoPassword)

			if tt.first != nil {
				status, _ := c.do(http.MethodPost, "/api/cart/add_item/", tt.first, true)
				require.Equal(t, http.StatusCreated, status)
			}

			status, body := c.do(http.MethodPost, "/api/cart/add_item/", tt.body, true)
			assert.Equal(t, tt.status, status, string(body))
			if tt.message != "" {
				assert.Equal(t, tt.message, errorField(t, body, "error"))
			}
		})
	}
}

func TestCart_AddItemRendersLine(t *testing.T) {
	_, c := newTestServer(t)
	c.login(DemoUsername, DemoPassword)

	status, body := c.do(http.MethodPost, "/api/cart/add_item/", itemBody{BookID: 1, Quantity: 2}, true)
	require.Equal(t, http.StatusCreated, status)

	var item domain.CartItem
	require.NoError(t, json.Unmarshal(body, &item))
	assert.Equal(t, "Dune", item.Book.Title)
	assert.Equal(t, 2, item.Quantity)
	assert.Equal(t, "30.00", item.Subtotal.String())

	cart := getCart(t, c)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "30.00", cart.Total.String())
	assert.Equal(t, 2, cart.ItemCount())
}

func TestCart_UpdateItem(t *testing.T) {
	tests := []struct {
		name    string
		body    itemBody
		status  int
		message string
	}{
		{"replaces quantity", itemBody{BookID: 1, Quantity: 4}, http.StatusOK, ""},
		{"zero quantity", itemBody{BookID: 1, Quantity: 0}, http.StatusBadRequest, "Quantity must be greater than 0"},
		{"unknown book", itemBody{BookID: 999, Quantity: 1}, http.StatusNotFound, "Book not found"},
		{"book not in cart", itemBody{BookID: 2, Quantity: 1}, http.StatusNotFound, "Item not found in cart"},
		{"more than stock", itemBody{BookID: 1, Quantity: 6}, http.StatusBadRequest, "Only 5 copies available"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, c := newTestServer(t)
			c.login(DemoUsername, DemoPassword)
			status, _ := c.do(http.MethodPost, "/api/cart/add_item/", itemBody{BookID: 1, Quantity: 2}, true)
			require.Equal(t, http.StatusCreated, status)

			status, body := c.do(http.MethodPut, "/api/cart/update_item/", tt.body, true)
			assert.Equal(t, tt.status, status, string(body))
			if tt.message != "" {
				assert.Equal(t, tt.message, errorField(t, body, "error"))
				return
			}

			item, ok := func() (domain.CartItem, bool) {
				cart := getCart(t, c)
				return cart.Item(tt.body.BookID)
			}()
			require.True(t, ok)
			assert.Equal(t, tt.body.Quantity, item.Quantity)
		})
	}
}

func TestCart_RemoveAndClear(t *testing.T) {
	_, c := newTestServer(t)
	c.login(DemoUsername, DemoPassword)

	for _, id := range []int64{1, 2, 3} {
		status, _ := c.do(http.MethodPost, "/api/cart/add_item/", itemBody{BookID: id, Quantity: 1}, true)
		require.Equal(t, http.StatusCreated, status)
	}

	status, _ := c.do(http.MethodDelete, "/api/cart/remove_item/?book_id=2", nil, true)
	assert.Equal(t, http.StatusNoContent, status)

	status, body := c.do(http.MethodDelete, "/api/cart/remove_item/?book_id=2", nil, true)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Item not found in cart", errorField(t, body, "error"))

	status, body = c.do(http.MethodDelete, "/api/cart/remove_item/", nil, true)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "book_id is required", errorField(t, body, "error"))

	assert.Len(t, getCart(t, c).Items, 2)

	status, body = c.do(http.MethodPost, "/api/cart/clear/", nil, true)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Cart cleared", errorField(t, body, "message"))
	assert.Empty(t, getCart(t, c).Items)
}

func TestCart_Checkout(t *testing.T) {
	t.Run("empty cart", func(t *testing.T) {
		_, c := newTestServer(t)
		c.login(DemoUsername, DemoPassword)

		status, body := c.do(http.MethodPost, "/api/cart/checkout/", nil, true)

		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "Cart is empty", errorField(t, body, "error"))
	})

	t.Run("stock dropped after adding", func(t *testing.T) {
		srv, c := newTestServer(t)
		c.login(DemoUsername, DemoPassword)
		status, _ := c.do(http.MethodPost, "/api/cart/add_item/", itemBody{BookID: 1, Quantity: 3}, true)
		require.Equal(t, http.StatusCreated, status)
		require.NoError(t, srv.SetStock(1, 1))

		status, body := c.do(http.MethodPost, "/api/cart/checkout/", nil, true)

		assert.Equal(t, http.StatusBadRequest, status)
		var resp struct {
			Errors []string `json:"errors"`
		}
		require.NoError(t, json.Unmarshal(body, &resp))
		assert.Equal(t, []string{`Not enough copies of "Dune". Available: 1, Requested: 3`}, resp.Errors)
		assert.Len(t, getCart(t, c).Items, 1, "a failed checkout keeps the cart")
	})

	t.Run("success", func(t *testing.T) {
		srv, c := newTestServer(t)
		c.login(DemoUsername, DemoPassword)
		for _, item := range []itemBody{{BookID: 1, Quantity: 2}, {BookID: 2, Quantity: 1}} {
			status, _ := c.do(http.MethodPost, "/api/cart/add_item/", item, true)
			require.Equal(t, http.StatusCreated, status)
		}

		status, body := c.do(http.MethodPost, "/api/cart/checkout/", nil, true)
		require.Equal(t, http.StatusOK, status, string(body))

		var receipt domain.CheckoutResponse
		require.NoError(t, json.Unmarshal(body, &receipt))
		assert.Equal(t, "Checkout successful", receipt.Message)
		assert.Equal(t, "39.50", receipt.Total)
		require.Len(t, receipt.PurchasedItems, 2)
		assert.Equal(t, domain.PurchasedItem{Book: "Dune", Quantity: 2, Price: "15.00", Subtotal: "30.00"}, receipt.PurchasedItems[0])

		assert.Empty(t, getCart(t, c).Items)

		dune, ok := srv.Book(1)
		require.True(t, ok)
		assert.Equal(t, 3, dune.Quantity)
		emma, ok := srv.Book(2)
		require.True(t, ok)
		assert.Equal(t, 2, emma.Quantity)
	})
}

func TestCart_PerUser(t *testing.T) {
	srv, alice := newTestServer(t)
	alice.login(DemoUsername, DemoPassword)
	bob := newTestClient(t, alice.base.String())
	bob.login("reader2", "password123")

	status, _ := alice.do(http.MethodPost, "/api/cart/add_item/", itemBody{BookID: 1, Quantity: 1}, true)
	require.Equal(t, http.StatusCreated, status)

	assert.Len(t, getCart(t, alice).Items, 1)
	assert.Empty(t, getCart(t, bob).Items)

	cart, ok := srv.Cart(DemoUsername)
	require.True(t, ok)
	assert.Len(t, cart.Items, 1)
}
