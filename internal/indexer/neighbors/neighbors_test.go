package neighbors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/search"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b search.OccurrenceIndex
		want float64
	}{
		{"both empty", nil, nil, 1},
		{"identical", search.OccurrenceIndex{"a": 2}, search.OccurrenceIndex{"a": 2}, 0},
		{"disjoint", search.OccurrenceIndex{"a": 1}, search.OccurrenceIndex{"b": 3}, 1},
		// diff = |2-1| + 3 = 4, top = 2 + 3 = 5
		{"partial", search.OccurrenceIndex{"a": 2, "c": 3}, search.OccurrenceIndex{"a": 1}, 0.8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Distance(tt.a, tt.b), 1e-12)
			assert.InDelta(t, tt.want, Distance(tt.b, tt.a), 1e-12)
		})
	}
}

func TestCompute(t *testing.T) {
	books := []search.IndexedBook{
		{BookID: 1, Occurrences: search.OccurrenceIndex{"whale": 4, "sea": 1}},
		{BookID: 2, Occurrences: search.OccurrenceIndex{"whale": 3, "sea": 1}},
		{BookID: 3, Occurrences: search.OccurrenceIndex{"garden": 5}},
	}
	hoods, err := New(WithWorkers(2)).Compute(context.Background(), books)
	require.NoError(t, err)
	require.Len(t, hoods, 3)

	// d(1,2) = 1/5 = 0.2, d(1,3) = d(2,3) = 1
	assert.Equal(t, []int64{2}, hoods[0].Neighbors)
	assert.Equal(t, []int64{1}, hoods[1].Neighbors)
	assert.Empty(t, hoods[2].Neighbors)
	assert.NotNil(t, hoods[2].Neighbors)

	assert.InDelta(t, 2/1.2, hoods[0].RankScore, 1e-6)
	assert.InDelta(t, 2/1.2, hoods[1].RankScore, 1e-6)
	assert.InDelta(t, 1.0, hoods[2].RankScore, 1e-6)
}

func TestComputeThreshold(t *testing.T) {
	books := []search.IndexedBook{
		{BookID: 1, Occurrences: search.OccurrenceIndex{"a": 1, "b": 1}},
		{BookID: 2, Occurrences: search.OccurrenceIndex{"a": 1}},
	}
	// d = 0.5
	hoods, err := New(WithThreshold(0.4)).Compute(context.Background(), books)
	require.NoError(t, err)
	assert.Empty(t, hoods[0].Neighbors)

	hoods, err = New(WithThreshold(0.6)).Compute(context.Background(), books)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, hoods[0].Neighbors)
}

func TestComputeSingleBook(t *testing.T) {
	hoods, err := New().Compute(context.Background(), []search.IndexedBook{{BookID: 9, Occurrences: search.OccurrenceIndex{"x": 1}}})
	require.NoError(t, err)
	require.Len(t, hoods, 1)
	assert.Zero(t, hoods[0].RankScore)
	assert.Empty(t, hoods[0].Neighbors)
}

func TestComputeKeepsInputOrderUnderConcurrency(t *testing.T) {
	books := make([]search.IndexedBook, 50)
	for i := range books {
		books[i] = search.IndexedBook{
			BookID:      int64(i + 1),
			Occurrences: search.OccurrenceIndex{"common": 10, fmt.Sprintf("w%d", i): 1},
		}
	}
	hoods, err := New(WithWorkers(4)).Compute(context.Background(), books)
	require.NoError(t, err)
	for i, h := range hoods {
		assert.Equal(t, int64(i+1), h.BookID)
		assert.Len(t, h.Neighbors, 49)
	}
}

func TestComputeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Compute(ctx, []search.IndexedBook{{BookID: 1}, {BookID: 2}})
	assert.ErrorIs(t, err, context.Canceled)
}

type announcements struct{ reasons []string }

func (a *announcements) Announce(_ context.Context, reason string) {
	a.reasons = append(a.reasons, reason)
}

func TestRunPersistsAndAnnounces(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewMemory()
	store.PutIndex(1, search.OccurrenceIndex{"whale": 4, "sea": 1})
	store.PutIndex(2, search.OccurrenceIndex{"whale": 3, "sea": 1})

	ann := &announcements{}
	n, err := New().Run(ctx, store, ann, "ranked")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"ranked"}, ann.reasons)

	list, ok, err := store.FetchNeighborList(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []int64{2}, list)
}

func TestRunEmptyCatalog(t *testing.T) {
	ann := &announcements{}
	n, err := New().Run(context.Background(), catalog.NewMemory(), ann, "ranked")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, ann.reasons)
}
