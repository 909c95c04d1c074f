package store

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/groupmeal/internal/domain"
)

// createTestStore creates a fresh store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestListing builds a listing with the given metadata.
func createTestListing(t *testing.T, id string, metadata map[string]any) domain.Entity {
	t.Helper()
	e := domain.NewEntity(id, domain.KindListing)
	e.Attributes.Title = "title " + id
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		require.NoError(t, err)
		e.Attributes.Metadata = raw
	}
	return e
}

// pragma reads the current value of a pragma.
func pragma(t *testing.T, s *Store, name string) string {
	t.Helper()
	var value string
	require.NoError(t, s.db.QueryRow("PRAGMA "+name).Scan(&value), "query pragma %s", name)
	return value
}
