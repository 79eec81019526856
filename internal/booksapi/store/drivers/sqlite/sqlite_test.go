package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/openshelf/booksapi/internal/booksapi/domain"
	"github.com/openshelf/booksapi/internal/booksapi/store"
	"github.com/openshelf/booksapi/internal/booksapi/store/drivers/sqlite"
	"github.com/openshelf/booksapi/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func newBook(title string) domain.Book {
	now := time.Now().UTC()
	summary := "a summary"
	return domain.Book{
		ID:        idx.New().String(),
		Title:     title,
		Author:    "Some Author",
		Genre:     "fiction",
		Summary:   &summary,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestUsersCreateIsAtomic(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	u := domain.User{
		ID:           idx.New().String(),
		Username:     "alice",
		PasswordHash: "$argon2id$...",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, st.Users().CreateUser(ctx, u))

	// Same username, fresh id: the UNIQUE constraint must reject it.
	u.ID = idx.New().String()
	err := st.Users().CreateUser(ctx, u)
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestUsersGetByUsername(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	_, err := st.Users().GetUserByUsername(ctx, "nobody")
	require.ErrorIs(t, err, store.ErrNotFound)

	u := domain.User{
		ID:           idx.New().String(),
		Username:     "bob",
		PasswordHash: "hash",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, st.Users().CreateUser(ctx, u))

	got, err := st.Users().GetUserByUsername(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, "hash", got.PasswordHash)
}

func TestBooksCRUD(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	b := newBook("The Left Hand of Darkness")
	require.NoError(t, st.Books().CreateBook(ctx, b))

	got, err := st.Books().GetBook(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, b.Title, got.Title)
	require.Equal(t, b.Author, got.Author)
	require.Equal(t, b.Genre, got.Genre)
	require.NotNil(t, got.Summary)
	require.Equal(t, *b.Summary, *got.Summary)
	require.Nil(t, got.PublishedDate)

	newTitle := "The Dispossessed"
	require.NoError(t, st.Books().UpdateBook(ctx, b.ID, domain.BookPatch{Title: &newTitle}))

	got, err = st.Books().GetBook(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, newTitle, got.Title)
	// Untouched fields survive a partial update
	require.Equal(t, b.Author, got.Author)

	require.NoError(t, st.Books().DeleteBook(ctx, b.ID))

	_, err = st.Books().GetBook(ctx, b.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	// Repeated delete fails the same way, it does not crash.
	require.ErrorIs(t, st.Books().DeleteBook(ctx, b.ID), store.ErrNotFound)
}

func TestBooksUpdateMissing(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	title := "x"
	err := st.Books().UpdateBook(ctx, idx.New().String(), domain.BookPatch{Title: &title})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestBooksListOrderAndPagination(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	var ids []string
	for _, title := range []string{"one", "two", "three", "four"} {
		b := newBook(title)
		require.NoError(t, st.Books().CreateBook(ctx, b))
		ids = append(ids, b.ID)
	}

	all, err := st.Books().ListBooks(ctx, 0, 100)
	require.NoError(t, err)
	require.Len(t, all, 4)
	// ULIDs are monotonic, so id order is creation order.
	for i, b := range all {
		require.Equal(t, ids[i], b.ID)
	}

	window, err := st.Books().ListBooks(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, window, 2)
	require.Equal(t, ids[1], window[0].ID)
	require.Equal(t, ids[2], window[1].ID)

	empty, err := st.Books().ListBooks(ctx, 10, 5)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	b := newBook("rollback me")
	err := st.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Books().CreateBook(ctx, b); err != nil {
			return err
		}
		return context.Canceled // force rollback
	})
	require.ErrorIs(t, err, context.Canceled)

	_, err = st.Books().GetBook(ctx, b.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestWithTxCommits(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	b := newBook("commit me")
	err := st.WithTx(ctx, func(tx store.Tx) error {
		return tx.Books().CreateBook(ctx, b)
	})
	require.NoError(t, err)

	got, err := st.Books().GetBook(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, b.Title, got.Title)
}
