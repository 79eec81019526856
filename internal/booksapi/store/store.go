package store

import (
	"context"
	"errors"

	"github.com/openshelf/booksapi/internal/booksapi/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable.
type Store interface {
	Users() Users
	Books() Books

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. This is the
	// recommended way to scope a request's persistence work.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// CreateUser inserts a new user. The username uniqueness check is the
	// insert itself - the UNIQUE constraint at the storage layer makes
	// check-and-insert atomic, and a violation surfaces as ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	// GetUserByUsername returns ErrNotFound when the username is absent.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
}

type Books interface {
	// CreateBook inserts a new book (id is provided by app via ULID).
	CreateBook(ctx context.Context, b domain.Book) error

	// GetBook returns ErrNotFound when no book has this id.
	GetBook(ctx context.Context, id string) (domain.Book, error)

	// ListBooks returns a window of books ordered by id (offset pagination).
	ListBooks(ctx context.Context, skip, limit int) ([]domain.Book, error)

	// UpdateBook overlays the set patch fields onto the stored row and bumps
	// updated_at. ErrNotFound when the book does not exist.
	UpdateBook(ctx context.Context, id string, p domain.BookPatch) error

	// DeleteBook removes the row. ErrNotFound when it was already gone, so a
	// repeated delete fails the same way as the first miss.
	DeleteBook(ctx context.Context, id string) error
}
