package fakeapi

import (
	"fmt"
	"time"

	"github.com/mateoromerocontreras/django-bookstore/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

// Demo account present in DefaultSeed.
const (
	DemoUsername = "booklover1"
	DemoPassword = "password123"
)

// Seed is the initial content of a Server. Authors, editorials and books get
// ids 1..n in slice order.
type Seed struct {
	Users      []SeedUser
	Authors    []domain.AuthorInput
	Editorials []string
	Books      []SeedBook
}

type SeedUser struct {
	Username  string
	Password  string
	Email     string
	FirstName string
	LastName  string
}

type SeedBook struct {
	Title       string
	ISBN        string
	Price       string
	Condition   domain.Condition
	Stock       int
	AuthorID    int64
	EditorialID int64
	Seller      string
}

// DefaultSeed returns a small classic-books catalog: 12 books over two
// pages, one out of stock, and one with more stock than the per-book cap.
func DefaultSeed() Seed {
	return Seed{
		Users: []SeedUser{
			{Username: DemoUsername, Password: DemoPassword, Email: "booklover1@example.com", FirstName: "Alice", LastName: "Johnson"},
			{Username: "reader2", Password: "password123", Email: "reader2@example.com", FirstName: "Bob", LastName: "Smith"},
			{Username: "bibliophile", Password: "password123", Email: "bibliophile@example.com", FirstName: "Carol", LastName: "Williams"},
		},
		Authors: []domain.AuthorInput{
			{Name: "Frank Herbert", Nationality: "American", BirthDate: "1920-10-08"},
			{Name: "Jane Austen", Nationality: "British", BirthDate: "1775-12-16"},
			{Name: "Ursula K. Le Guin", Nationality: "American", BirthDate: "1929-10-21"},
			{Name: "Gabriel García Márquez", Nationality: "Colombian", BirthDate: "1927-03-06"},
		},
		Editorials: []string{"Penguin Classics", "Vintage Books"},
		Books: []SeedBook{
			{Title: "Dune", ISBN: "9780441013593", Price: "15.00", Condition: domain.ConditionLikeNew, Stock: 5, AuthorID: 1, EditorialID: 1, Seller: "bibliophile"},
			{Title: "Emma", ISBN: "9780141439587", Price: "9.50", Condition: domain.ConditionGood, Stock: 3, AuthorID: 2, EditorialID: 1, Seller: "bibliophile"},
			{Title: "The Left Hand of Darkness", ISBN: "9780441478125", Price: "12.25", Condition: domain.ConditionGood, Stock: 20, AuthorID: 3, EditorialID: 2, Seller: "bibliophile"},
			{Title: "One Hundred Years of Solitude", ISBN: "9780060883287", Price: "18.00", Condition: domain.ConditionNew, Stock: 1, AuthorID: 4, EditorialID: 2, Seller: "reader2"},
			{Title: "Persuasion", ISBN: "9780141439686", Price: "7.00", Condition: domain.ConditionFair, Stock: 0, AuthorID: 2, EditorialID: 1, Seller: "reader2"},
			{Title: "Dune Messiah", ISBN: "9780593098233", Price: "11.00", Condition: domain.ConditionGood, Stock: 4, AuthorID: 1, EditorialID: 1, Seller: "bibliophile"},
			{Title: "Children of Dune", ISBN: "9780593098240", Price: "11.50", Condition: domain.ConditionGood, Stock: 4, AuthorID: 1, EditorialID: 1, Seller: "bibliophile"},
			{Title: "Pride and Prejudice", ISBN: "9780141439518", Price: "8.99", Condition: domain.ConditionLikeNew, Stock: 12, AuthorID: 2, EditorialID: 1, Seller: "reader2"},
			{Title: "Sense and Sensibility", ISBN: "9780141439662", Price: "8.49", Condition: domain.ConditionPoor, Stock: 2, AuthorID: 2, EditorialID: 1, Seller: "reader2"},
			{Title: "The Dispossessed", ISBN: "9780061054884", Price: "13.75", Condition: domain.ConditionGood, Stock: 6, AuthorID: 3, EditorialID: 2, Seller: "bibliophile"},
			{Title: "A Wizard of Earthsea", ISBN: "9780547773742", Price: "10.00", Condition: domain.ConditionNew, Stock: 8, AuthorID: 3, EditorialID: 2, Seller: "bibliophile"},
			{Title: "Love in the Time of Cholera", ISBN: "9780307389732", Price: "14.20", Condition: domain.ConditionGood, Stock: 3, AuthorID: 4, EditorialID: 2, Seller: "reader2"},
		},
	}
}

// load replaces the server content with seed. The caller holds s.mu.
func (s *Server) load(seed Seed) error {
	now := s.now()

	for _, u := range seed.Users {
		if _, err := s.createUser(u.Username, u.Email, u.Password, u.FirstName, u.LastName); err != nil {
			return fmt.Errorf("seed user %q: %w", u.Username, err)
		}
	}

	for _, a := range seed.Authors {
		s.createAuthor(a, now)
	}

	for _, name := range seed.Editorials {
		id := s.nextID("editorial")
		s.editorials[id] = &domain.Editorial{ID: id, Name: name, CreatedAt: now, UpdatedAt: now}
	}

	for _, b := range seed.Books {
		sellerID, ok := s.usernames[b.Seller]
		if !ok {
			return fmt.Errorf("seed book %q: unknown seller %q", b.Title, b.Seller)
		}
		if _, ok := s.authors[b.AuthorID]; !ok {
			return fmt.Errorf("seed book %q: unknown author %d", b.Title, b.AuthorID)
		}
		if _, ok := s.editorials[b.EditorialID]; !ok {
			return fmt.Errorf("seed book %q: unknown editorial %d", b.Title, b.EditorialID)
		}
		cents, err := parseCents(b.Price)
		if err != nil {
			return fmt.Errorf("seed book %q: %w", b.Title, err)
		}
		condition := b.Condition
		if condition == "" {
			condition = domain.ConditionGood
		}

		id := s.nextID("book")
		s.books[id] = &bookRecord{
			id:          id,
			title:       b.Title,
			isbn:        b.ISBN,
			priceCents:  cents,
			condition:   condition,
			language:    "en",
			authorID:    b.AuthorID,
			editorialID: b.EditorialID,
			sellerID:    sellerID,
			quantity:    b.Stock,
			createdAt:   now,
			updatedAt:   now,
		}
	}
	return nil
}

// createUser stores a new account. The caller holds s.mu.
func (s *Server) createUser(username, email, password, firstName, lastName string) (domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.passwordCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	id := s.nextID("user")
	rec := &userRecord{
		user: domain.User{
			ID:        id,
			Username:  username,
			Email:     email,
			FirstName: firstName,
			LastName:  lastName,
		},
		hash: hash,
	}
	s.users[id] = rec
	s.usernames[username] = id
	s.emails[email] = id
	return rec.user, nil
}

// createAuthor stores a new author. The caller holds s.mu.
func (s *Server) createAuthor(in domain.AuthorInput, now time.Time) domain.Author {
	id := s.nextID("author")
	a := &domain.Author{
		ID:          id,
		Name:        in.Name,
		Bio:         in.Bio,
		BirthDate:   in.BirthDate,
		Nationality: in.Nationality,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.authors[id] = a
	return *a
}
