package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

// MaxOrderQuantity caps the copies of a single book that can sit in a cart.
const MaxOrderQuantity = 10

// Cart is the server-side cart of the logged in user. It is always treated
// as authoritative: the client never recomputes Total or item subtotals.
type Cart struct {
	ID        int64      `json:"id"`
	User      int64      `json:"user"`
	Items     []CartItem `json:"items"`
	Total     Money      `json:"total"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartItem is one line of a cart.
type CartItem struct {
	ID        int64     `json:"id"`
	Book      Book      `json:"book"`
	Quantity  int       `json:"quantity"`
	Subtotal  Money     `json:"subtotal"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Money is a decimal amount kept as the text the server sent. Cart totals
// arrive either as strings ("30.00") or as bare numbers (0, 25.98); both
// decode to the same textual form. It always encodes as a JSON string.
type Money string

func (m *Money) UnmarshalJSON(data []byte) error {
	v := gjson.ParseBytes(data)
	switch v.Type {
	case gjson.String:
		*m = Money(v.Str)
	case gjson.Number:
		*m = Money(v.Raw)
	case gjson.Null:
		*m = ""
	default:
		return fmt.Errorf("money: unexpected JSON %s", string(data))
	}
	return nil
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(m))
}

func (m Money) String() string { return string(m) }

// ItemCount returns the sum of quantities over all items. A nil cart has
// zero items.
func (c *Cart) ItemCount() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// Item returns the line holding bookID, if any.
func (c *Cart) Item(bookID int64) (CartItem, bool) {
	if c == nil {
		return CartItem{}, false
	}
	for _, item := range c.Items {
		if item.Book.ID == bookID {
			return item, true
		}
	}
	return CartItem{}, false
}

// Clone returns a copy that shares no slice storage with c.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	out := *c
	out.Items = append([]CartItem(nil), c.Items...)
	return &out
}

// PurchasedItem is one line of a checkout receipt.
type PurchasedItem struct {
	Book     string `json:"book"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
	Subtotal string `json:"subtotal"`
}

// CheckoutResponse is the receipt returned by a successful checkout.
type CheckoutResponse struct {
	Message        string          `json:"message"`
	PurchasedItems []PurchasedItem `json:"purchased_items"`
	Total          string          `json:"total"`
}

// QuantityBounds returns the range a caller may offer for a book with the
// given stock: [1, min(stock, MaxOrderQuantity)]. When nothing is in stock
// max is 0 and the range is empty.
func QuantityBounds(stock int) (min, max int) {
	max = stock
	if max > MaxOrderQuantity {
		max = MaxOrderQuantity
	}
	if max < 0 {
		max = 0
	}
	return 1, max
}

// ClampQuantity pulls q into QuantityBounds(stock). It returns 0 when the
// book is out of stock.
func ClampQuantity(q, stock int) int {
	lo, hi := QuantityBounds(stock)
	if hi < lo {
		return 0
	}
	if q < lo {
		return lo
	}
	if q > hi {
		return hi
	}
	return q
}
