package notes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsert_LastWriteWins(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.Upsert("k", "a"))
	require.NoError(t, s.Upsert("k", "b"))

	snap := s.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "k", snap[0].Key)
	assert.Equal(t, "b", snap[0].Value)
}

func TestSnapshot_SortedByKey(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.Upsert("zebra", "1"))
	require.NoError(t, s.Upsert("apple", "2"))
	require.NoError(t, s.Upsert("mango", "3"))

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "apple", snap[0].Key)
	assert.Equal(t, "mango", snap[1].Key)
	assert.Equal(t, "zebra", snap[2].Key)
}

func TestFileStore_Persistence(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir, true)
	require.NoError(t, err)
	require.NoError(t, s.Upsert("browser", "firefox is open on tab 2"))
	require.NoError(t, s.Upsert("login", "already signed in"))

	reopened, err := Open(dir, false)
	require.NoError(t, err)

	snap := reopened.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "browser", snap[0].Key)
	assert.Equal(t, "firefox is open on tab 2", snap[0].Value)
}

func TestFileStore_ResetDiscards(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir, true)
	require.NoError(t, err)
	require.NoError(t, s.Upsert("k", "v"))

	reset, err := Open(dir, true)
	require.NoError(t, err)
	assert.Empty(t, reset.Snapshot())

	// The file on disk is cleared too, not just the in-memory view.
	reopened, err := Open(dir, false)
	require.NoError(t, err)
	assert.Empty(t, reopened.Snapshot())
}

func TestOpen_NoFileStartsEmpty(t *testing.T) {
	s, err := Open(t.TempDir(), false)
	require.NoError(t, err)
	assert.Empty(t, s.Snapshot())
}

func TestClear(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.Upsert("k", "v"))
	require.NoError(t, s.Clear())
	assert.Empty(t, s.Snapshot())
}
