package badger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjanec/simhost/internal/ids"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMappingRoundTrip(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetMapping(42)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.PutMapping(42, ids.Entity{Index: 3, Generation: 1}))

	e, err := s.GetMapping(42)
	require.NoError(t, err)
	assert.Equal(t, ids.Entity{Index: 3, Generation: 1}, e)
}

func TestDeleteMappingRemovesOwnership(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.PutMapping(7, ids.Entity{Index: 1, Generation: 1}))
	require.NoError(t, s.PutOwnership(7, 1, 0, "node-a"))
	require.NoError(t, s.PutOwnership(7, 1, 1, "node-b"))

	require.NoError(t, s.DeleteMapping(7))

	_, err := s.GetMapping(7)
	assert.ErrorIs(t, err, ErrNotFound)

	recs, err := s.LoadOwnership(7)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestOwnershipLoadReturnsEveryInstance(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.PutOwnership(100, 1, 0, "node-a"))
	require.NoError(t, s.PutOwnership(100, 1, 1, "node-b"))
	require.NoError(t, s.PutOwnership(200, 1, 0, "node-c"))

	recs, err := s.LoadOwnership(100)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	byInstance := map[uint32]string{}
	for _, r := range recs {
		byInstance[r.InstanceID] = r.Owner
	}
	assert.Equal(t, "node-a", byInstance[0])
	assert.Equal(t, "node-b", byInstance[1])
}

func TestPendingPeersRoundTrip(t *testing.T) {
	s := openTestStore(t)

	peers, err := s.LoadPendingPeers(5)
	require.NoError(t, err)
	assert.Empty(t, peers)

	require.NoError(t, s.PutPendingPeers(5, []string{"a", "b", "c"}))
	peers, err = s.LoadPendingPeers(5)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, peers)

	require.NoError(t, s.PutPendingPeers(5, []string{"c"}))
	peers, err = s.LoadPendingPeers(5)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, peers)
}
