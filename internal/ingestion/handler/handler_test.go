package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/ingestion/publisher"
)

type recordingProducer struct {
	mu     sync.Mutex
	keys   []string
	events []any
	err    error
}

func (p *recordingProducer) Publish(_ context.Context, key string, value any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, key)
	p.events = append(p.events, value)
	return nil
}

type countingIngests struct{ n int }

func (c *countingIngests) ObserveIngest() { c.n++ }

func newMux(store *catalog.Memory, prod *recordingProducer, counter *countingIngests) *http.ServeMux {
	h := New(publisher.New(store, prod, counter), store, 3, 1<<20)
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

func post(mux *http.ServeMux, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/books", strings.NewReader(body)))
	return rec
}

func TestIngestStoresAndPublishes(t *testing.T) {
	store := catalog.NewMemory()
	prod := &recordingProducer{}
	counter := &countingIngests{}
	mux := newMux(store, prod, counter)

	rec := post(mux, `{"title":"Moby Dick","content":"Call me   Ishmael today","gutenberg_id":2701}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp ingestion.IngestResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, int64(1), resp.BookID)
	assert.Equal(t, 4, resp.WordCount)
	assert.Equal(t, catalog.StatusPending, resp.Status)
	assert.Equal(t, 1, counter.n)

	require.Len(t, prod.events, 1)
	assert.Equal(t, "1", prod.keys[0])
	ev := prod.events[0].(ingestion.IngestEvent)
	assert.Equal(t, int64(2701), ev.GutenbergID)

	book, err := store.GetBook(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Call me Ishmael today", book.Content)
	assert.Equal(t, ingestion.DefaultAuthor, book.Author)

	get := httptest.NewRecorder()
	mux.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/api/v1/books/1", nil))
	require.Equal(t, http.StatusOK, get.Code)
	assert.Contains(t, get.Body.String(), `"content":"Call me Ishmael today"`)
}

func TestIngestIsIdempotent(t *testing.T) {
	store := catalog.NewMemory()
	prod := &recordingProducer{}
	mux := newMux(store, prod, &countingIngests{})
	body := `{"title":"A","content":"one two three","idempotency_key":"abc"}`

	require.Equal(t, http.StatusAccepted, post(mux, body).Code)
	rec := post(mux, body)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ingestion.IngestResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Duplicate)
	assert.Equal(t, int64(1), resp.BookID)
	assert.Len(t, prod.events, 1)
}

func TestIngestRejectsInvalidBooks(t *testing.T) {
	mux := newMux(catalog.NewMemory(), &recordingProducer{}, &countingIngests{})

	assert.Equal(t, http.StatusBadRequest, post(mux, `{`).Code)

	rec := post(mux, `{"title":"","content":"too short"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"title"`)
	assert.Contains(t, rec.Body.String(), `"content"`)
}

func TestIngestDuplicateGutenbergIDConflicts(t *testing.T) {
	mux := newMux(catalog.NewMemory(), &recordingProducer{}, &countingIngests{})
	require.Equal(t, http.StatusAccepted, post(mux, `{"title":"A","content":"one two three","gutenberg_id":5}`).Code)
	assert.Equal(t, http.StatusConflict, post(mux, `{"title":"B","content":"one two three","gutenberg_id":5}`).Code)
}

func TestIngestSurvivesPublishFailure(t *testing.T) {
	store := catalog.NewMemory()
	prod := &recordingProducer{err: errors.New("broker down")}
	mux := newMux(store, prod, &countingIngests{})

	require.Equal(t, http.StatusAccepted, post(mux, `{"title":"A","content":"one two three"}`).Code)
	status, ok := store.Status(1)
	require.True(t, ok)
	assert.Equal(t, catalog.StatusPending, status)
}

func TestIngestBodyLimit(t *testing.T) {
	store := catalog.NewMemory()
	h := New(publisher.New(store, &recordingProducer{}, nil), store, 0, 16)
	mux := http.NewServeMux()
	h.Register(mux)

	rec := post(mux, `{"title":"A","content":"one two three four five"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestGetBookErrors(t *testing.T) {
	mux := newMux(catalog.NewMemory(), &recordingProducer{}, &countingIngests{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/books/9", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/books/x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
