package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/errors"
)

type stubIndexer struct {
	ids []int64
	err error
}

func (s *stubIndexer) IndexBook(_ context.Context, id int64) (int, error) {
	s.ids = append(s.ids, id)
	return 3, s.err
}

func message(t *testing.T, ev ingestion.IngestEvent) []byte {
	t.Helper()
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return b
}

func TestHandleMessageIndexesBook(t *testing.T) {
	ix := &stubIndexer{}
	h := HandleMessage(ix)
	require.NoError(t, h(context.Background(), []byte("7"), message(t, ingestion.IngestEvent{BookID: 7})))
	assert.Equal(t, []int64{7}, ix.ids)
}

func TestHandleMessageSkipsPoisonMessages(t *testing.T) {
	ix := &stubIndexer{}
	h := HandleMessage(ix)
	require.NoError(t, h(context.Background(), nil, []byte("{broken")))
	require.NoError(t, h(context.Background(), nil, message(t, ingestion.IngestEvent{})))
	assert.Empty(t, ix.ids)
}

func TestHandleMessageErrors(t *testing.T) {
	ix := &stubIndexer{err: apperrors.New(apperrors.ErrBookNotFound, http.StatusNotFound, "gone")}
	require.NoError(t, HandleMessage(ix)(context.Background(), nil, message(t, ingestion.IngestEvent{BookID: 1})))

	boom := errors.New("db down")
	ix = &stubIndexer{err: boom}
	err := HandleMessage(ix)(context.Background(), nil, message(t, ingestion.IngestEvent{BookID: 1}))
	assert.ErrorIs(t, err, boom)
}
