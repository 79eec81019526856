package books_test

import (
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/openshelf/booksapi/internal/booksapi/domain"
	"github.com/stretchr/testify/require"
)

// TestBooksCRUDFlow walks the whole catalogue lifecycle through the public
// API: create, read, list, partial update, delete.
func TestBooksCRUDFlow(t *testing.T) {
	env := setupEnv(t)
	token := env.registerAndLogin(t, "librarian")

	resp := env.request(t, http.MethodPost, "/books", token, map[string]any{
		"title":          "Dune",
		"author":         "Frank Herbert",
		"genre":          "Science Fiction",
		"published_date": "1965-08-01",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created domain.Book
	decodeBody(t, resp, &created)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "Dune", created.Title)
	require.NotNil(t, created.PublishedDate)
	require.Nil(t, created.Summary)

	resp = env.request(t, http.MethodGet, "/books/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fetched domain.Book
	decodeBody(t, resp, &fetched)
	require.Equal(t, created, fetched)

	resp = env.request(t, http.MethodPatch, "/books/"+created.ID, token, map[string]string{
		"summary": "Desert planet politics.",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var patched domain.Book
	decodeBody(t, resp, &patched)
	require.Equal(t, "Dune", patched.Title)
	require.NotNil(t, patched.Summary)
	require.Equal(t, "Desert planet politics.", *patched.Summary)

	resp = env.request(t, http.MethodDelete, "/books/"+created.ID, token, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.request(t, http.MethodGet, "/books/"+created.ID, token, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t,
		fmt.Sprintf("Book with id '%s' not found.", created.ID),
		errorDetail(t, resp))

	// Deleting an already deleted book fails exactly like the first miss.
	resp = env.request(t, http.MethodDelete, "/books/"+created.ID, token, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// TestBooksPagination checks the skip/limit window over an id-ordered list.
func TestBooksPagination(t *testing.T) {
	env := setupEnv(t)
	token := env.registerAndLogin(t, "librarian")

	var ids []string
	for i := range 5 {
		resp := env.request(t, http.MethodPost, "/books", token, map[string]string{
			"title":  fmt.Sprintf("Volume %d", i+1),
			"author": "author",
			"genre":  "genre",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var book domain.Book
		decodeBody(t, resp, &book)
		ids = append(ids, book.ID)
	}

	resp := env.request(t, http.MethodGet, "/books?skip=1&limit=2", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page []domain.Book
	decodeBody(t, resp, &page)
	require.Len(t, page, 2)
	require.Equal(t, ids[1], page[0].ID)
	require.Equal(t, ids[2], page[1].ID)

	// Default window returns everything here.
	resp = env.request(t, http.MethodGet, "/books", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &page)
	require.Len(t, page, 5)
}

// TestConcurrentCreates verifies that parallel creates all succeed with
// distinct ids.
func TestConcurrentCreates(t *testing.T) {
	env := setupEnv(t)
	token := env.registerAndLogin(t, "librarian")

	const writers = 8

	var wg sync.WaitGroup
	idCh := make(chan string, writers)
	errCh := make(chan error, writers)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := createBookRaw(env, token, fmt.Sprintf("Concurrent %d", i))
			if err != nil {
				errCh <- err
				return
			}
			idCh <- id
		}()
	}
	wg.Wait()
	close(idCh)
	close(errCh)

	for err := range errCh {
		require.NoError(t, err)
	}

	seen := make(map[string]bool)
	for id := range idCh {
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	require.Len(t, seen, writers)
}

// TestRegisterValidation covers the register endpoint's error surface.
func TestRegisterValidation(t *testing.T) {
	env := setupEnv(t)

	resp := env.request(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "alice",
		"password": "short",
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Equal(t, "Password must be at least 8 characters long", errorDetail(t, resp))

	resp = env.request(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "alice",
		"password": testPassword,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.request(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "alice",
		"password": "some other password",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "User 'alice' already exists.", errorDetail(t, resp))
}

// TestLoginErrorSplit pins the deliberate difference between an unknown
// username (404) and a wrong password (401).
func TestLoginErrorSplit(t *testing.T) {
	env := setupEnv(t)
	env.registerAndLogin(t, "alice")

	resp := env.request(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "ghost",
		"password": testPassword,
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "User 'ghost' not found.", errorDetail(t, resp))

	resp = env.request(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "alice",
		"password": "wrong password",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "Incorrect username or password", errorDetail(t, resp))
}
