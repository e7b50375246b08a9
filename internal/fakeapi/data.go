package fakeapi

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mateoromerocontreras/django-bookstore/internal/domain"
)

type userRecord struct {
	user domain.User
	hash []byte
}

type bookRecord struct {
	id              int64
	title           string
	isbn            string
	description     string
	publicationDate string
	priceCents      int64
	condition       domain.Condition
	pages           int
	language        string
	authorID        int64
	editorialID     int64
	sellerID        int64
	quantity        int
	createdAt       time.Time
	updatedAt       time.Time
}

func (b *bookRecord) setQuantity(q int, now time.Time) {
	b.quantity = q
	b.updatedAt = now
}

type cartLine struct {
	id        int64
	bookID    int64
	quantity  int
	createdAt time.Time
	updatedAt time.Time
}

type cartRecord struct {
	id        int64
	userID    int64
	lines     []*cartLine
	createdAt time.Time
	updatedAt time.Time
}

func (c *cartRecord) line(bookID int64) (*cartLine, int) {
	for i, l := range c.lines {
		if l.bookID == bookID {
			return l, i
		}
	}
	return nil, -1
}

// formatCents renders an amount the way a two decimal place field does.
func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// parseCents reads a non-negative decimal amount with at most two decimals.
func parseCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has more than 2 decimal places", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	if whole == "" {
		whole = "0"
	}
	w, err := strconv.ParseUint(whole, 10, 63)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	f, err := strconv.ParseUint(frac, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return int64(w)*100 + int64(f), nil
}
