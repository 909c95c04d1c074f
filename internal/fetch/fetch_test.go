package fetch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/groupmeal/internal/domain"
	"github.com/roach88/groupmeal/internal/store"
)

// fakeQuerier serves entities from a map and records every query it sees.
type fakeQuerier struct {
	mu       sync.Mutex
	entities map[string]domain.Entity
	queries  []store.Query
	failOn   string
}

func newFakeQuerier(kind domain.EntityKind, ids ...string) *fakeQuerier {
	q := &fakeQuerier{entities: map[string]domain.Entity{}}
	for _, id := range ids {
		q.entities[id] = domain.NewEntity(id, kind)
	}
	return q
}

func (q *fakeQuerier) Query(ctx context.Context, sq store.Query) ([]domain.Entity, error) {
	q.mu.Lock()
	q.queries = append(q.queries, sq)
	q.mu.Unlock()

	var out []domain.Entity
	for _, id := range sq.IDs {
		if id == q.failOn {
			return nil, errors.New("storage unavailable")
		}
		if e, ok := q.entities[id]; ok && (sq.Kind == "" || e.Type == sq.Kind) {
			out = append(out, e)
		}
	}
	return out, nil
}

func ids(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("id-%03d", i)
	}
	return out
}

func keys(entities []domain.Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.Key()
	}
	sort.Strings(out)
	return out
}

func TestChunk(t *testing.T) {
	tests := []struct {
		n, size int
		want    []int
	}{
		{0, 100, nil},
		{1, 100, []int{1}},
		{100, 100, []int{100}},
		{101, 100, []int{100, 1}},
		{250, 100, []int{100, 100, 50}},
		{5, 2, []int{2, 2, 1}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_by_%d", tt.n, tt.size), func(t *testing.T) {
			chunks := Chunk(ids(tt.n), tt.size)
			var sizes []int
			for _, c := range chunks {
				sizes = append(sizes, len(c))
			}
			assert.Equal(t, tt.want, sizes)
		})
	}
}

func TestUnique(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Unique([]string{"a", "", "b", "a", "c", "b"}))
}

func TestNew_ClampsBatchSize(t *testing.T) {
	assert.Equal(t, MaxBatchSize, New(nil, 0).batchSize)
	assert.Equal(t, MaxBatchSize, New(nil, 500).batchSize)
	assert.Equal(t, 10, New(nil, 10).batchSize)
}

func TestFetch_ChunksOfAtMost100(t *testing.T) {
	all := ids(250)
	q := newFakeQuerier(domain.KindListing, all...)
	f := New(q, MaxBatchSize)

	got, err := f.Listings(context.Background(), all)
	require.NoError(t, err)
	assert.Len(t, got, 250)

	require.Len(t, q.queries, 3)
	for _, sq := range q.queries {
		assert.LessOrEqual(t, len(sq.IDs), MaxBatchSize)
		assert.Equal(t, domain.KindListing, sq.Kind)
	}
}

func TestFetch_DeduplicatesAndToleratesMisses(t *testing.T) {
	q := newFakeQuerier(domain.KindUser, "m-1", "m-2")
	f := New(q, 1)

	got, err := f.Users(context.Background(), []string{"m-1", "m-1", "ghost", "m-2", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"m-1", "m-2"}, keys(got))
	assert.Len(t, q.queries, 3, "one query per distinct non-empty id")
}

func TestFetch_KindFilter(t *testing.T) {
	q := newFakeQuerier(domain.KindUser, "m-1")
	f := New(q, MaxBatchSize)

	got, err := f.Listings(context.Background(), []string{"m-1"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFetch_Empty(t *testing.T) {
	q := newFakeQuerier(domain.KindUser)
	got, err := New(q, MaxBatchSize).Users(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Empty(t, q.queries)
}

func TestFetch_QueryErrorFailsFetch(t *testing.T) {
	all := ids(30)
	q := newFakeQuerier(domain.KindListing, all...)
	q.failOn = "id-015"

	_, err := New(q, 10).Listings(context.Background(), all)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage unavailable")
}

func TestFetch_AgainstStore(t *testing.T) {
	s, err := store.Open(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	for _, id := range ids(120) {
		require.NoError(t, s.Put(ctx, domain.NewEntity(id, domain.KindListing)))
	}

	got, err := New(s, MaxBatchSize).Listings(ctx, append(ids(130), "id-000"))
	require.NoError(t, err)
	assert.Len(t, got, 120)
}
