// Package fetch retrieves entities by id in bounded, concurrent batches.
package fetch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/groupmeal/internal/domain"
	"github.com/roach88/groupmeal/internal/store"
)

// MaxBatchSize is the largest number of ids sent in one query.
const MaxBatchSize = 100

// Querier is the storage query the fetcher fans out over.
type Querier interface {
	Query(ctx context.Context, q store.Query) ([]domain.Entity, error)
}

// Fetcher splits id lists into chunks and queries them concurrently.
//
// Ids that match nothing are not an error: callers get back fewer entities
// than ids and must cope with the gap.
type Fetcher struct {
	q         Querier
	batchSize int
}

// New creates a Fetcher. A batchSize outside 1..MaxBatchSize uses MaxBatchSize.
func New(q Querier, batchSize int) *Fetcher {
	if batchSize <= 0 || batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}
	return &Fetcher{q: q, batchSize: batchSize}
}

// Listings fetches listing entities by id.
func (f *Fetcher) Listings(ctx context.Context, ids []string) ([]domain.Entity, error) {
	return f.Fetch(ctx, domain.KindListing, ids)
}

// Users fetches user entities by id.
func (f *Fetcher) Users(ctx context.Context, ids []string) ([]domain.Entity, error) {
	return f.Fetch(ctx, domain.KindUser, ids)
}

// Fetch returns the entities of the given kind whose id is in ids. The result
// is de-duplicated and carries no particular order. The first failing chunk
// query cancels the others and its error is returned.
func (f *Fetcher) Fetch(ctx context.Context, kind domain.EntityKind, ids []string) ([]domain.Entity, error) {
	chunks := Chunk(Unique(ids), f.batchSize)
	if len(chunks) == 0 {
		return []domain.Entity{}, nil
	}

	results := make([][]domain.Entity, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		g.Go(func() error {
			entities, err := f.q.Query(gctx, store.Query{IDs: chunk, Kind: kind})
			if err != nil {
				return fmt.Errorf("fetch %s chunk %d: %w", kind, i, err)
			}
			results[i] = entities
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(ids))
	out := make([]domain.Entity, 0, len(ids))
	for _, entities := range results {
		for _, e := range entities {
			if _, dup := seen[e.Key()]; dup {
				continue
			}
			seen[e.Key()] = struct{}{}
			out = append(out, e)
		}
	}
	return out, nil
}

// Unique drops empty and repeated ids, keeping first occurrences in order.
func Unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Chunk partitions ids into consecutive slices of at most size elements.
func Chunk(ids []string, size int) [][]string {
	if size <= 0 {
		size = MaxBatchSize
	}
	var chunks [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
