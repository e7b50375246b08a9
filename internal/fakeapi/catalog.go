package fakeapi

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/mateoromerocontreras/django-bookstore/internal/domain"

	"github.com/go-chi/chi/v5"
)

// bookDetail builds the full API view of a book. The caller holds s.mu.
func (s *Server) bookDetail(b *bookRecord) domain.Book {
	out := domain.Book{
		ID:              b.id,
		Title:           b.title,
		ISBN:            b.isbn,
		Description:     b.description,
		PublicationDate: b.publicationDate,
		Price:           formatCents(b.priceCents),
		Condition:       b.condition,
		Pages:           b.pages,
		Language:        b.language,
		Quantity:        b.quantity,
		IsAvailable:     b.quantity > 0,
		CreatedAt:       b.createdAt,
		UpdatedAt:       b.updatedAt,
	}
	if a, ok := s.authors[b.authorID]; ok {
		out.Author = *a
	}
	if e, ok := s.editorials[b.editorialID]; ok {
		out.Editorial = *e
	}
	if u, ok := s.users[b.sellerID]; ok {
		out.Seller = u.user
	}
	return out
}

func (s *Server) bookListItem(b *bookRecord) domain.BookList {
	out := domain.BookList{
		ID:          b.id,
		Title:       b.title,
		ISBN:        b.isbn,
		Price:       formatCents(b.priceCents),
		Condition:   b.condition,
		Quantity:    b.quantity,
		IsAvailable: b.quantity > 0,
		CreatedAt:   b.createdAt,
	}
	if a, ok := s.authors[b.authorID]; ok {
		out.AuthorName = a.Name
	}
	if e, ok := s.editorials[b.editorialID]; ok {
		out.EditorialName = e.Name
	}
	if u, ok := s.users[b.sellerID]; ok {
		out.SellerUsername = u.user.Username
	}
	return out
}

type bookFilter struct {
	search    string
	author    int64
	condition domain.Condition
	minCents  int64
	maxCents  int64
}

func parseBookFilter(q url.Values) bookFilter {
	f := bookFilter{
		search:    strings.ToLower(strings.TrimSpace(q.Get("search"))),
		condition: domain.Condition(q.Get("condition")),
		minCents:  -1,
		maxCents:  -1,
	}
	if id, err := strconv.ParseInt(q.Get("author"), 10, 64); err == nil {
		f.author = id
	}
	if c, err := parseCents(q.Get("min_price")); err == nil {
		f.minCents = c
	}
	if c, err := parseCents(q.Get("max_price")); err == nil {
		f.maxCents = c
	}
	return f
}

// match reports whether b passes the filter. The caller holds s.mu.
func (s *Server) match(f bookFilter, b *bookRecord) bool {
	if f.author != 0 && b.authorID != f.author {
		return false
	}
	if f.condition != "" && b.condition != f.condition {
		return false
	}
	if f.minCents >= 0 && b.priceCents < f.minCents {
		return false
	}
	if f.maxCents >= 0 && b.priceCents > f.maxCents {
		return false
	}
	if f.search == "" {
		return true
	}
	haystack := []string{b.title, b.isbn}
	if a, ok := s.authors[b.authorID]; ok {
		haystack = append(haystack, a.Name)
	}
	for _, h := range haystack {
		if strings.Contains(strings.ToLower(h), f.search) {
			return true
		}
	}
	return false
}

func (s *Server) listBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := 1
	if raw := q.Get("page"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p < 1 {
			writeDetail(w, http.StatusNotFound, "Invalid page.")
			return
		}
		page = p
	}
	filter := parseBookFilter(q)

	s.mu.Lock()
	ids := make([]int64, 0, len(s.books))
	for id, b := range s.books {
		if s.match(filter, b) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	start := (page - 1) * s.pageSize
	if start > 0 && start >= len(ids) {
		s.mu.Unlock()
		writeDetail(w, http.StatusNotFound, "Invalid page.")
		return
	}
	end := min(start+s.pageSize, len(ids))

	resp := domain.Page[domain.BookList]{Count: len(ids), Results: make([]domain.BookList, 0, end-start)}
	for _, id := range ids[start:end] {
		resp.Results = append(resp.Results, s.bookListItem(s.books[id]))
	}
	s.mu.Unlock()

	if end < len(ids) {
		resp.Next = pageURL(r, page+1)
	}
	if page > 1 {
		resp.Previous = pageURL(r, page-1)
	}
	writeJSON(w, http.StatusOK, resp)
}

func pageURL(r *http.Request, page int) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	q := r.URL.Query()
	q.Set("page", strconv.Itoa(page))
	u := url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path, RawQuery: q.Encode()}
	return u.String()
}

func (s *Server) getBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)

	s.mu.Lock()
	b, exists := s.books[id]
	var book domain.Book
	if exists {
		book = s.bookDetail(b)
	}
	s.mu.Unlock()

	if !ok || !exists {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) createBook(w http.ResponseWriter, r *http.Request) {
	uid, _ := userID(r.Context())

	var in domain.BookInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	b := &bookRecord{
		id:        0,
		condition: domain.ConditionGood,
		language:  "en",
		quantity:  1,
		sellerID:  uid,
		createdAt: now,
		updatedAt: now,
	}
	if errs := s.applyBookInput(b, in, true); len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}
	b.id = s.nextID("book")
	s.books[b.id] = b

	writeJSON(w, http.StatusCreated, s.bookDetail(b))
}

func (s *Server) updateBook(w http.ResponseWriter, r *http.Request) {
	uid, _ := userID(r.Context())
	id, _ := pathID(r)

	var in domain.BookInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	if b.sellerID != uid {
		writeDetail(w, http.StatusForbidden, "You do not have permission to perform this action.")
		return
	}

	updated := *b
	if errs := s.applyBookInput(&updated, in, false); len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}
	updated.updatedAt = s.now()
	*b = updated

	writeJSON(w, http.StatusOK, s.bookDetail(b))
}

func (s *Server) deleteBook(w http.ResponseWriter, r *http.Request) {
	uid, _ := userID(r.Context())
	id, _ := pathID(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	if b.sellerID != uid {
		writeDetail(w, http.StatusForbidden, "You do not have permission to perform this action.")
		return
	}

	delete(s.books, id)
	for _, cart := range s.carts {
		if _, idx := cart.line(id); idx >= 0 {
			cart.lines = append(cart.lines[:idx], cart.lines[idx+1:]...)
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// applyBookInput copies the set fields of in onto b and returns serializer
// style field errors. create requires the fields a new book must have. The
// caller holds s.mu.
func (s *Server) applyBookInput(b *bookRecord, in domain.BookInput, create bool) map[string][]string {
	errs := map[string][]string{}
	required := func(field string) {
		errs[field] = append(errs[field], "This field is required.")
	}

	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			errs["title"] = append(errs["title"], "This field may not be blank.")
		}
		b.title = *in.Title
	} else if create {
		required("title")
	}

	if in.ISBN != nil {
		switch {
		case *in.ISBN == "":
			errs["isbn"] = append(errs["isbn"], "This field may not be blank.")
		case len(*in.ISBN) > 13:
			errs["isbn"] = append(errs["isbn"], "Ensure this field has no more than 13 characters.")
		default:
			for id, other := range s.books {
				if id != b.id && other.isbn == *in.ISBN {
					errs["isbn"] = append(errs["isbn"], "book with this isbn already exists.")
					break
				}
			}
		}
		b.isbn = *in.ISBN
	} else if create {
		required("isbn")
	}

	if in.Price != nil {
		cents, err := parseCents(*in.Price)
		if err != nil {
			errs["price"] = append(errs["price"], "A valid number is required.")
		}
		b.priceCents = cents
	} else if create {
		required("price")
	}

	if in.AuthorID != nil {
		if _, ok := s.authors[*in.AuthorID]; !ok {
			errs["author_id"] = append(errs["author_id"], fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", *in.AuthorID))
		}
		b.authorID = *in.AuthorID
	} else if create {
		required("author_id")
	}

	if in.EditorialID != nil {
		if _, ok := s.editorials[*in.EditorialID]; !ok {
			errs["editorial_id"] = append(errs["editorial_id"], fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", *in.EditorialID))
		}
		b.editorialID = *in.EditorialID
	} else if create {
		required("editorial_id")
	}

	if in.Condition != nil {
		if !in.Condition.Valid() {
			errs["condition"] = append(errs["condition"], fmt.Sprintf("\"%s\" is not a valid choice.", *in.Condition))
		}
		b.condition = *in.Condition
	}

	if in.Quantity != nil {
		b.quantity = *in.Quantity
	}
	if in.Pages != nil {
		b.pages = *in.Pages
	}
	if in.Language != nil {
		b.language = *in.Language
	}
	if in.Description != nil {
		b.description = *in.Description
	}
	if in.PublicationDate != nil {
		b.publicationDate = *in.PublicationDate
	}

	return errs
}

// listAuthors answers with a bare array: the author listing is not paginated.
func (s *Server) listAuthors(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	authors := make([]domain.Author, 0, len(s.authors))
	for _, a := range s.authors {
		authors = append(authors, *a)
	}
	s.mu.Unlock()

	sort.Slice(authors, func(i, j int) bool { return authors[i].ID < authors[j].ID })
	writeJSON(w, http.StatusOK, authors)
}

func (s *Server) getAuthor(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)

	s.mu.Lock()
	a, ok := s.authors[id]
	var author domain.Author
	if ok {
		author = *a
	}
	s.mu.Unlock()

	if !ok {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	writeJSON(w, http.StatusOK, author)
}

func (s *Server) createAuthorHandler(w http.ResponseWriter, r *http.Request) {
	var in domain.AuthorInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		writeFieldErrors(w, map[string][]string{"name": {"This field is required."}})
		return
	}

	s.mu.Lock()
	author := s.createAuthor(in, s.now())
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, author)
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}
