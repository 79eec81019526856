package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/openshelf/booksapi/internal/booksapi/domain"
	"github.com/openshelf/booksapi/internal/booksapi/store"
)

type booksRepo struct {
	db DBTX
}

func (r *booksRepo) CreateBook(ctx context.Context, b domain.Book) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO books (id, title, author, genre, published_date, summary, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Title, b.Author, b.Genre,
		mapOptionalString(b.PublishedDate), mapOptionalString(b.Summary),
		formatTime(b.CreatedAt), formatTime(b.UpdatedAt),
	)
	return mapConstraint(err)
}

func (r *booksRepo) GetBook(ctx context.Context, id string) (domain.Book, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, title, author, genre, published_date, summary, created_at, updated_at
		 FROM books WHERE id = ?`,
		id,
	)
	return scanBook(row)
}

func (r *booksRepo) ListBooks(ctx context.Context, skip, limit int) ([]domain.Book, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, author, genre, published_date, summary, created_at, updated_at
		 FROM books ORDER BY id LIMIT ? OFFSET ?`,
		limit, skip,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := make([]domain.Book, 0)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func (r *booksRepo) UpdateBook(ctx context.Context, id string, p domain.BookPatch) error {
	sets := make([]string, 0, 6)
	args := make([]any, 0, 7)

	if p.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *p.Title)
	}
	if p.Author != nil {
		sets = append(sets, "author = ?")
		args = append(args, *p.Author)
	}
	if p.Genre != nil {
		sets = append(sets, "genre = ?")
		args = append(args, *p.Genre)
	}
	if p.PublishedDate != nil {
		sets = append(sets, "published_date = ?")
		args = append(args, *p.PublishedDate)
	}
	if p.Summary != nil {
		sets = append(sets, "summary = ?")
		args = append(args, *p.Summary)
	}

	// An empty patch still has to report whether the book exists, so it
	// degrades to a bare updated_at bump.
	sets = append(sets, "updated_at = ?")
	args = append(args, formatTime(nowUTC()))
	args = append(args, id)

	res, err := r.db.ExecContext(ctx,
		`UPDATE books SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *booksRepo) DeleteBook(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanBook(s scanner) (domain.Book, error) {
	var (
		b                    domain.Book
		publishedDate        sql.NullString
		summary              sql.NullString
		createdAt, updatedAt string
	)
	if err := s.Scan(&b.ID, &b.Title, &b.Author, &b.Genre,
		&publishedDate, &summary, &createdAt, &updatedAt); err != nil {
		return domain.Book{}, mapNotFound(err)
	}
	b.PublishedDate = mapNullString(publishedDate)
	b.Summary = mapNullString(summary)
	b.CreatedAt = parseTime(createdAt)
	b.UpdatedAt = parseTime(updatedAt)
	return b, nil
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
