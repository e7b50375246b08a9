package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mateoromerocontreras/django-bookstore/internal/domain"
)

// BookQuery filters the catalog listing. Zero values are omitted.
type BookQuery struct {
	Page      int
	Search    string
	Author    int64
	Condition domain.Condition
	MinPrice  string
	MaxPrice  string
}

// Values encodes q as query parameters.
func (q BookQuery) Values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Author > 0 {
		v.Set("author", strconv.FormatInt(q.Author, 10))
	}
	if q.Condition != "" {
		v.Set("condition", string(q.Condition))
	}
	if q.MinPrice != "" {
		v.Set("min_price", q.MinPrice)
	}
	if q.MaxPrice != "" {
		v.Set("max_price", q.MaxPrice)
	}
	return v
}

type BookService struct {
	api Requester
}

func NewBookService(api Requester) *BookService {
	return &BookService{api: api}
}

func (s *BookService) List(ctx context.Context, q BookQuery) (*domain.Page[domain.BookList], error) {
	path := "/books/"
	if v := q.Values(); len(v) > 0 {
		path += "?" + v.Encode()
	}

	var page domain.Page[domain.BookList]
	if err := s.api.Do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return &page, nil
}

func (s *BookService) Get(ctx context.Context, id int64) (*domain.Book, error) {
	var book domain.Book
	if err := s.api.Do(ctx, http.MethodGet, bookPath(id), nil, &book); err != nil {
		return nil, fmt.Errorf("get book %d: %w", id, err)
	}
	return &book, nil
}

func (s *BookService) Create(ctx context.Context, in domain.BookInput) (*domain.Book, error) {
	var book domain.Book
	if err := s.api.Do(ctx, http.MethodPost, "/books/", in, &book); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}
	return &book, nil
}

// Update sends a partial update; nil fields of in are left unchanged.
func (s *BookService) Update(ctx context.Context, id int64, in domain.BookInput) (*domain.Book, error) {
	var book domain.Book
	if err := s.api.Do(ctx, http.MethodPatch, bookPath(id), in, &book); err != nil {
		return nil, fmt.Errorf("update book %d: %w", id, err)
	}
	return &book, nil
}

func (s *BookService) Delete(ctx context.Context, id int64) error {
	if err := s.api.Do(ctx, http.MethodDelete, bookPath(id), nil, nil); err != nil {
		return fmt.Errorf("delete book %d: %w", id, err)
	}
	return nil
}

func bookPath(id int64) string {
	return "/books/" + strconv.FormatInt(id, 10) + "/"
}
