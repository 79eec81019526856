package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/openshelf/booksapi/internal/booksapi/domain"
	"github.com/openshelf/booksapi/internal/booksapi/service"
	"github.com/openshelf/booksapi/pkg/httpx"
	"github.com/openshelf/booksapi/pkg/slogx"
)

const defaultListLimit = 100

type BooksHandler struct {
	BookService *service.BookService
}

type createBookRequest struct {
	Title         string  `json:"title"`
	Author        string  `json:"author"`
	Genre         string  `json:"genre"`
	PublishedDate *string `json:"published_date"`
	Summary       *string `json:"summary"`
}

type updateBookRequest struct {
	Title         *string `json:"title"`
	Author        *string `json:"author"`
	Genre         *string `json:"genre"`
	PublishedDate *string `json:"published_date"`
	Summary       *string `json:"summary"`
}

func writeBookNotFound(w http.ResponseWriter, id string) {
	httpx.WriteError(w, http.StatusNotFound,
		fmt.Sprintf("Book with id '%s' not found.", id))
}

// HandleCreate adds a book to the catalogue
//
//	@Summary		Create book
//	@Tags			Books
//	@Accept			json
//	@Produce		json
//	@Param			book	body		createBookRequest	true	"Book fields"
//	@Success		201		{object}	domain.Book
//	@Failure		401		{object}	httpx.ErrorResponse	"Invalid token"
//	@Failure		403		{object}	httpx.ErrorResponse	"No token presented"
//	@Failure		422		{object}	httpx.ErrorResponse	"Invalid body"
//	@Security		BearerAuth
//	@Router			/books [post].
func (h *BooksHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req createBookRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if req.Title == "" {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "title is required")
		return
	}
	if req.Author == "" {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "author is required")
		return
	}
	if req.Genre == "" {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "genre is required")
		return
	}

	book, err := h.BookService.CreateBook(ctx, domain.Book{
		Title:         req.Title,
		Author:        req.Author,
		Genre:         req.Genre,
		PublishedDate: req.PublishedDate,
		Summary:       req.Summary,
	}, httpx.UsernameFromCtx(ctx))
	if err != nil {
		log.Error("failed to create book", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, book)
}

// HandleList returns a page of the catalogue
//
//	@Summary		List books
//	@Description	Offset pagination ordered by id: skip records, then return at most limit.
//	@Tags			Books
//	@Produce		json
//	@Param			skip	query		int	false	"Records to skip"			default(0)
//	@Param			limit	query		int	false	"Maximum records returned"	default(100)
//	@Success		200		{array}		domain.Book
//	@Failure		422		{object}	httpx.ErrorResponse	"Invalid query parameter"
//	@Security		BearerAuth
//	@Router			/books [get].
func (h *BooksHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "skip must be an integer")
		return
	}
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "limit must be an integer")
		return
	}

	books, err := h.BookService.ListBooks(ctx, skip, limit)
	if err != nil {
		log.Error("failed to list books", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if books == nil {
		books = []domain.Book{}
	}

	httpx.WriteJSON(w, http.StatusOK, books)
}

// HandleGet returns one book by id
//
//	@Summary		Get book
//	@Tags			Books
//	@Produce		json
//	@Param			id	path		string	true	"Book id"
//	@Success		200	{object}	domain.Book
//	@Failure		404	{object}	httpx.ErrorResponse	"Unknown id"
//	@Security		BearerAuth
//	@Router			/books/{id} [get].
func (h *BooksHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	id := r.PathValue("id")

	book, err := h.BookService.GetBook(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrBookNotFound) {
			writeBookNotFound(w, id)
			return
		}
		log.Error("failed to get book", "error", err, "book_id", id)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, book)
}

// HandlePatch applies a partial update to a book
//
//	@Summary		Update book
//	@Description	Only the fields present in the body are changed. The change event carries exactly those fields.
//	@Tags			Books
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Book id"
//	@Param			patch	body		updateBookRequest	true	"Fields to change"
//	@Success		200		{object}	domain.Book
//	@Failure		404		{object}	httpx.ErrorResponse	"Unknown id"
//	@Failure		422		{object}	httpx.ErrorResponse	"Invalid body"
//	@Security		BearerAuth
//	@Router			/books/{id} [patch].
func (h *BooksHandler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	id := r.PathValue("id")

	var req updateBookRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	patch := domain.BookPatch{
		Title:         req.Title,
		Author:        req.Author,
		Genre:         req.Genre,
		PublishedDate: req.PublishedDate,
		Summary:       req.Summary,
	}

	book, err := h.BookService.UpdateBook(ctx, id, patch, httpx.UsernameFromCtx(ctx))
	if err != nil {
		if errors.Is(err, service.ErrBookNotFound) {
			writeBookNotFound(w, id)
			return
		}
		log.Error("failed to update book", "error", err, "book_id", id)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, book)
}

// HandleDelete removes a book
//
//	@Summary		Delete book
//	@Tags			Books
//	@Param			id	path	string	true	"Book id"
//	@Success		204	"Deleted"
//	@Failure		404	{object}	httpx.ErrorResponse	"Unknown id, including repeat deletes"
//	@Security		BearerAuth
//	@Router			/books/{id} [delete].
func (h *BooksHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	id := r.PathValue("id")

	err := h.BookService.DeleteBook(ctx, id, httpx.UsernameFromCtx(ctx))
	if err != nil {
		if errors.Is(err, service.ErrBookNotFound) {
			writeBookNotFound(w, id)
			return
		}
		log.Error("failed to delete book", "error", err, "book_id", id)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
