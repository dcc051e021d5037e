package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjanec/simhost/internal/ids"
)

const positionTypeID = 1

func TestCreateSetGetComponent(t *testing.T) {
	w := New()
	e := w.CreateEntity()

	require.NoError(t, w.SetComponent(e, positionTypeID, "pos-value"))
	v, ok := w.GetComponent(e, positionTypeID)
	require.True(t, ok)
	assert.Equal(t, "pos-value", v)
	assert.True(t, w.HasComponent(e, positionTypeID))
}

func TestStaleHandleAfterDestroyAndRecycle(t *testing.T) {
	w := New()
	e1 := w.CreateEntity()
	require.NoError(t, w.DestroyEntity(e1))

	_, err := w.State(e1)
	assert.Error(t, err)
	var staleErr *ErrStaleEntityHandle
	assert.ErrorAs(t, err, &staleErr)

	e2 := w.CreateEntity() // recycles e1's index with a bumped generation
	assert.Equal(t, e1.Index, e2.Index)
	assert.NotEqual(t, e1.Generation, e2.Generation)
	assert.True(t, w.IsAlive(e2))
	assert.False(t, w.IsAlive(e1))
}

func TestGhostExcludedFromDefaultQuery(t *testing.T) {
	w := New()
	ghost := w.CreateEntity()
	require.NoError(t, w.SetState(ghost, Ghost))
	active := w.CreateEntity()
	require.NoError(t, w.SetState(active, Active))

	var seen []ids.Entity
	w.Each(ids.Mask{}, false, func(e ids.Entity, h Header) {
		seen = append(seen, e)
	})
	require.Len(t, seen, 1)
	assert.Equal(t, active, seen[0])

	seen = nil
	w.Each(ids.Mask{}, true, func(e ids.Entity, h Header) {
		seen = append(seen, e)
	})
	assert.Len(t, seen, 2)
}

func TestEachFiltersByMask(t *testing.T) {
	w := New()
	e1 := w.CreateEntity()
	require.NoError(t, w.SetState(e1, Active))
	require.NoError(t, w.SetComponent(e1, positionTypeID, 1))

	e2 := w.CreateEntity()
	require.NoError(t, w.SetState(e2, Active))

	var required ids.Mask
	required = required.Set(positionTypeID)

	var seen []ids.Entity
	w.Each(required, false, func(e ids.Entity, h Header) {
		seen = append(seen, e)
	})
	require.Len(t, seen, 1)
	assert.Equal(t, e1, seen[0])
}
