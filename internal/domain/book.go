package domain

import "time"

// Condition is the physical state of a listed copy.
type Condition string

const (
	ConditionNew     Condition = "new"
	ConditionLikeNew Condition = "like_new"
	ConditionGood    Condition = "good"
	ConditionFair    Condition = "fair"
	ConditionPoor    Condition = "poor"
)

// Valid reports whether c is one of the known conditions.
func (c Condition) Valid() bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// Author represents a book author
type Author struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Bio         string    `json:"bio,omitempty"`
	BirthDate   string    `json:"birth_date,omitempty"`
	Nationality string    `json:"nationality,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Editorial represents a publisher
type Editorial struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	Website   string    `json:"website,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Book is the full detail representation of a listing. Price is a decimal
// string as rendered by the server; Quantity is the copies in stock.
type Book struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	ISBN            string    `json:"isbn"`
	Description     string    `json:"description,omitempty"`
	PublicationDate string    `json:"publication_date,omitempty"`
	Price           string    `json:"price"`
	Condition       Condition `json:"condition"`
	Pages           int       `json:"pages,omitempty"`
	Language        string    `json:"language"`
	Author          Author    `json:"author"`
	Editorial       Editorial `json:"editorial"`
	Seller          User      `json:"seller"`
	Quantity        int       `json:"quantity"`
	IsAvailable     bool      `json:"is_available"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BookList is the reduced projection used by the catalog listing.
type BookList struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	ISBN           string    `json:"isbn"`
	Price          string    `json:"price"`
	Condition      Condition `json:"condition"`
	Quantity       int       `json:"quantity"`
	IsAvailable    bool      `json:"is_available"`
	AuthorName     string    `json:"author_name"`
	EditorialName  string    `json:"editorial_name"`
	SellerUsername string    `json:"seller_username"`
	CreatedAt      time.Time `json:"created_at"`
}

// BookInput carries the writable fields of a book. Nil fields are left out
// of the request so it can be used for partial updates.
type BookInput struct {
	Title           *string    `json:"title,omitempty"`
	ISBN            *string    `json:"isbn,omitempty"`
	Description     *string    `json:"description,omitempty"`
	PublicationDate *string    `json:"publication_date,omitempty"`
	Price           *string    `json:"price,omitempty"`
	Condition       *Condition `json:"condition,omitempty"`
	Pages           *int       `json:"pages,omitempty"`
	Language        *string    `json:"language,omitempty"`
	AuthorID        *int64     `json:"author_id,omitempty"`
	EditorialID     *int64     `json:"editorial_id,omitempty"`
	Quantity        *int       `json:"quantity,omitempty"`
}

// AuthorInput carries the writable fields of an author.
type AuthorInput struct {
	Name        string `json:"name"`
	Bio         string `json:"bio,omitempty"`
	BirthDate   string `json:"birth_date,omitempty"`
	Nationality string `json:"nationality,omitempty"`
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Count    int    `json:"count"`
	Next     string `json:"next,omitempty"`
	Previous string `json:"previous,omitempty"`
	Results  []T    `json:"results"`
}
