package digest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/TechBrief/internal/database"
)

type brokenStore struct{}

func (brokenStore) UpsertDigest(string, []string) (bool, error) {
	return false, errors.New("read-only filesystem")
}

type countingStore struct{ calls int }

func (s *countingStore) UpsertDigest(string, []string) (bool, error) {
	s.calls++
	return true, nil
}

func TestAssembleRejectsMalformedDate(t *testing.T) {
	store := &countingStore{}
	err := NewAssembler(store).Assemble(context.Background(), "02/07/2026", []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "02/07/2026")
	assert.Zero(t, store.calls)
}

func TestAssembleTwiceKeepsOneRecord(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	a := NewAssembler(db)
	ctx := context.Background()
	require.NoError(t, a.Assemble(ctx, "2026-02-06", []string{"a", "b", "c"}))
	require.NoError(t, a.Assemble(ctx, "2026-02-06", []string{"d", "e"}))

	d, err := db.GetDigest("2026-02-06")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, []string{"d", "e"}, d.StoryIDs)
	assert.Equal(t, database.DigestReady, d.Status)

	all, err := db.GetDigestsSince("2026-01-01")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAssemblePropagatesWriteFailure(t *testing.T) {
	err := NewAssembler(brokenStore{}).Assemble(context.Background(), "2026-02-06", []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2026-02-06")
}

func TestAssembleCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewAssembler(brokenStore{}).Assemble(ctx, "2026-02-06", nil)
	assert.ErrorIs(t, err, context.Canceled)
}
