package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openshelf/booksapi/internal/booksapi/domain"
	"github.com/openshelf/booksapi/internal/booksapi/events"
	"github.com/openshelf/booksapi/internal/booksapi/store"
	"github.com/openshelf/booksapi/pkg/idx"
)

var ErrBookNotFound = errors.New("book_not_found")

// BookService orchestrates book mutations: persistence inside a transaction
// first, then a best-effort change event once the transaction has committed.
// A failed publish is logged and swallowed; it never unwinds the mutation.
type BookService struct {
	Store   store.Store
	Events  events.Publisher
	Channel string
	Logger  *slog.Logger
}

// CreateBook persists a new book with a server-assigned id and announces it.
func (s *BookService) CreateBook(ctx context.Context, book domain.Book, username string) (domain.Book, error) {
	now := time.Now().UTC()
	book.ID = idx.New().String()
	book.CreatedAt = now
	book.UpdatedAt = now

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Books().CreateBook(ctx, book)
	})
	if err != nil {
		return domain.Book{}, fmt.Errorf("create book: %w", err)
	}

	data := map[string]any{
		"id":     book.ID,
		"title":  book.Title,
		"author": book.Author,
		"genre":  book.Genre,
	}
	if book.PublishedDate != nil {
		data["published_date"] = *book.PublishedDate
	}
	if book.Summary != nil {
		data["summary"] = *book.Summary
	}
	s.notify(ctx, domain.EventBookCreated, data, username)

	return book, nil
}

// GetBook returns the book or ErrBookNotFound.
func (s *BookService) GetBook(ctx context.Context, id string) (domain.Book, error) {
	book, err := s.Store.Books().GetBook(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Book{}, ErrBookNotFound
		}
		return domain.Book{}, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

// ListBooks returns a window of the collection ordered by id.
func (s *BookService) ListBooks(ctx context.Context, skip, limit int) ([]domain.Book, error) {
	books, err := s.Store.Books().ListBooks(ctx, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// UpdateBook overlays the patch onto the stored book and announces only the
// fields the caller actually set.
func (s *BookService) UpdateBook(ctx context.Context, id string, patch domain.BookPatch, username string) (domain.Book, error) {
	var updated domain.Book
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Books().UpdateBook(ctx, id, patch); err != nil {
			return err
		}
		var err error
		updated, err = tx.Books().GetBook(ctx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Book{}, ErrBookNotFound
		}
		return domain.Book{}, fmt.Errorf("update book: %w", err)
	}

	data := patch.Fields()
	data["id"] = id
	s.notify(ctx, domain.EventBookUpdated, data, username)

	return updated, nil
}

// DeleteBook removes the book and announces the deletion.
func (s *BookService) DeleteBook(ctx context.Context, id string, username string) error {
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Books().DeleteBook(ctx, id)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrBookNotFound
		}
		return fmt.Errorf("delete book: %w", err)
	}

	s.notify(ctx, domain.EventBookDeleted, map[string]any{"id": id}, username)
	return nil
}

// notify publishes a change event after the mutation has committed. Errors
// are logged and dropped.
func (s *BookService) notify(ctx context.Context, name string, data map[string]any, username string) {
	if s.Events == nil {
		return
	}

	event := domain.NewEvent(name, data, username, time.Now().UTC())
	if err := s.Events.Publish(ctx, s.Channel, event); err != nil {
		s.logger().WarnContext(ctx, "failed to publish change event",
			slog.String("event", name),
			slog.Any("error", err),
		)
	}
}

func (s *BookService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
