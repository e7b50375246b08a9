package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mateoromerocontreras/django-bookstore/internal/domain"

	"github.com/tidwall/gjson"
)

type AuthorService struct {
	api    Requester
	logger *slog.Logger
}

func NewAuthorService(api Requester, logger *slog.Logger) *AuthorService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthorService{api: api, logger: logger}
}

// List returns every author. The endpoint answers with a bare array when
// pagination is off and with a page object otherwise; any other shape is
// logged and treated as empty.
func (s *AuthorService) List(ctx context.Context) ([]domain.Author, error) {
	var raw json.RawMessage
	if err := s.api.Do(ctx, http.MethodGet, "/authors/", nil, &raw); err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}

	var list json.RawMessage
	switch parsed := gjson.ParseBytes(raw); {
	case parsed.IsArray():
		list = raw
	case parsed.Get("results").IsArray():
		list = json.RawMessage(parsed.Get("results").Raw)
	default:
		s.logger.Warn("unexpected authors response format", slog.String("body", parsed.Raw))
		return []domain.Author{}, nil
	}

	var authors []domain.Author
	if err := json.Unmarshal(list, &authors); err != nil {
		return nil, fmt.Errorf("decode authors: %w", err)
	}
	return authors, nil
}

func (s *AuthorService) Get(ctx context.Context, id int64) (*domain.Author, error) {
	var author domain.Author
	path := "/authors/" + strconv.FormatInt(id, 10) + "/"
	if err := s.api.Do(ctx, http.MethodGet, path, nil, &author); err != nil {
		return nil, fmt.Errorf("get author %d: %w", id, err)
	}
	return &author, nil
}

func (s *AuthorService) Create(ctx context.Context, in domain.AuthorInput) (*domain.Author, error) {
	var author domain.Author
	if err := s.api.Do(ctx, http.MethodPost, "/authors/", in, &author); err != nil {
		return nil, fmt.Errorf("create author: %w", err)
	}
	return &author, nil
}
