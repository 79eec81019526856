package books_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/openshelf/booksapi/internal/booksapi/domain"
	"github.com/openshelf/booksapi/internal/booksapi/events"
	booksapihttp "github.com/openshelf/booksapi/internal/booksapi/http"
	"github.com/openshelf/booksapi/internal/booksapi/service"
	"github.com/openshelf/booksapi/internal/booksapi/store"
	"github.com/openshelf/booksapi/internal/booksapi/store/drivers/sqlite"
	"github.com/openshelf/booksapi/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const testPassword = "a long enough password"

// testEnv is a fully wired in-process deployment: real router, real sqlite
// store, real event bus, served over a loopback listener.
type testEnv struct {
	server *httptest.Server
	signer *jwtx.HS256
	store  store.Store
	bus    *events.Bus
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	signer, err := jwtx.NewHS256([]byte("e2e-test-secret"))
	require.NoError(t, err)

	logger := slog.New(slog.DiscardHandler)
	bus := events.NewBus("", logger)

	router := booksapihttp.NewRouter(signer, "e2e", st, bus, logger)
	router.AuthService = &service.AuthService{
		Store:     st,
		Tokens:    signer,
		AccessTTL: jwtx.DefaultAccessTokenTTL,
	}
	router.BookService = &service.BookService{
		Store:   st,
		Events:  bus,
		Channel: "books",
		Logger:  logger,
	}
	router.ApplyRoutes()

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testEnv{
		server: server,
		signer: signer,
		store:  st,
		bus:    bus,
	}
}

// request performs a JSON request against the test server. A non-empty token
// is sent as a bearer Authorization header.
func (env *testEnv) request(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, env.server.URL+path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := env.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func errorDetail(t *testing.T, resp *http.Response) string {
	t.Helper()

	var body struct {
		Detail string `json:"detail"`
	}
	decodeBody(t, resp, &body)
	return body.Detail
}

// registerAndLogin provisions an account and returns its bearer token.
func (env *testEnv) registerAndLogin(t *testing.T, username string) string {
	t.Helper()

	resp := env.request(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": username,
		"password": testPassword,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.request(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": username,
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var token domain.TokenResponse
	decodeBody(t, resp, &token)
	require.Equal(t, "bearer", token.TokenType)
	require.NotEmpty(t, token.AccessToken)
	return token.AccessToken
}

// createBookRaw creates a book without touching testing.T, so it is safe to
// call from concurrent goroutines. It returns the new book's id.
func createBookRaw(env *testEnv, token, title string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"title":  title,
		"author": "author",
		"genre":  "genre",
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/books", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := env.server.Client().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var book domain.Book
	if err := json.NewDecoder(resp.Body).Decode(&book); err != nil {
		return "", err
	}
	return book.ID, nil
}

// sseEvent is one decoded server-sent-events frame.
type sseEvent struct {
	ID   string
	Name string
	Data map[string]any
}

// eventStream reads SSE frames off an open response body. A single reader
// goroutine feeds the lines channel so consecutive readEvent calls never
// compete for the underlying reader.
type eventStream struct {
	lines chan string
	errs  chan error
}

// openStream connects to the updates stream for a channel. Once it returns,
// the subscription is live: events published afterwards will be delivered.
func (env *testEnv) openStream(t *testing.T, channel string) *eventStream {
	t.Helper()

	req, err := http.NewRequestWithContext(t.Context(),
		http.MethodGet, env.server.URL+"/sse/updates/"+channel, nil)
	require.NoError(t, err)

	resp, err := env.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	stream := &eventStream{
		lines: make(chan string, 64),
		errs:  make(chan error, 1),
	}
	go func() {
		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				stream.errs <- err
				return
			}
			stream.lines <- strings.TrimRight(line, "\n")
		}
	}()

	return stream
}

// readEvent blocks until the next full SSE frame arrives and decodes it.
func readEvent(t *testing.T, stream *eventStream) sseEvent {
	t.Helper()

	var ev sseEvent
	deadline := time.After(10 * time.Second)

	for {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for SSE event")
		case err := <-stream.errs:
			if err == io.EOF {
				t.Fatal("stream closed before a full event arrived")
			}
			require.NoError(t, err)
		case line := <-stream.lines:
			switch {
			case strings.HasPrefix(line, "id: "):
				ev.ID = strings.TrimPrefix(line, "id: ")
			case strings.HasPrefix(line, "event: "):
				ev.Name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				payload := strings.TrimPrefix(line, "data: ")
				var event domain.Event
				require.NoError(t, json.Unmarshal([]byte(payload), &event))
				ev.Data = event.Data
			case line == "":
				// Blank line terminates the frame.
				if ev.Name != "" {
					return ev
				}
			}
		}
	}
}

// noPendingEvents asserts that nothing is waiting on the stream.
func noPendingEvents(t *testing.T, stream *eventStream) {
	t.Helper()

	select {
	case line := <-stream.lines:
		t.Fatalf("unexpected data on stream: %q", line)
	case <-time.After(100 * time.Millisecond):
	}
}
