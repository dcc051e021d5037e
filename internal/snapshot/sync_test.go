package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjanec/simhost/internal/ids"
	"github.com/pjanec/simhost/internal/world"
)

const velocityTypeID = 2

func TestSyncCopiesComponentsAndState(t *testing.T) {
	src := world.New()
	dst := world.New()

	e := src.CreateEntity()
	require.NoError(t, src.SetComponent(e, positionTypeID, "pos"))
	require.NoError(t, src.SetState(e, world.Active))

	state := NewSyncState()
	Sync(src, dst, syncOptions{state: state})

	var seen int
	dst.Each(ids.Mask{}, true, func(de ids.Entity, h world.Header) {
		seen++
		v, ok := dst.GetComponent(de, positionTypeID)
		assert.True(t, ok)
		assert.Equal(t, "pos", v)
		assert.Equal(t, world.Active, h.State)
	})
	assert.Equal(t, 1, seen)
}

func TestSyncFilterByMaskExcludesUninterestingColumns(t *testing.T) {
	src := world.New()
	dst := world.New()

	e := src.CreateEntity()
	require.NoError(t, src.SetComponent(e, positionTypeID, "pos"))
	require.NoError(t, src.SetComponent(e, velocityTypeID, "vel"))
	require.NoError(t, src.SetState(e, world.Active))

	mask := ids.Mask{}.Set(positionTypeID)
	state := NewSyncState()
	Sync(src, dst, syncOptions{mask: mask, filterByMask: true, state: state})

	de := state.destEntity(dst, e.Index)
	assert.True(t, dst.HasComponent(de, positionTypeID))
	assert.False(t, dst.HasComponent(de, velocityTypeID))
}

func TestSyncTransientExclusionAndOverride(t *testing.T) {
	src := world.New()
	dst := world.New()

	e := src.CreateEntity()
	require.NoError(t, src.SetComponent(e, velocityTypeID, "vel"))
	require.NoError(t, src.SetState(e, world.Active))

	transient := NewTransientSet(velocityTypeID)

	state1 := NewSyncState()
	Sync(src, dst, syncOptions{transient: transient, state: state1})
	de := state1.destEntity(dst, e.Index)
	assert.False(t, dst.HasComponent(de, velocityTypeID))

	dst2 := world.New()
	state2 := NewSyncState()
	Sync(src, dst2, syncOptions{transient: transient, includeTransient: true, state: state2})
	de2 := state2.destEntity(dst2, e.Index)
	assert.True(t, dst2.HasComponent(de2, velocityTypeID))
}

func TestSyncSkipsUnchangedVersionsDirtyChunkAcceleration(t *testing.T) {
	src := world.New()
	dst := world.New()
	e := src.CreateEntity()
	require.NoError(t, src.SetComponent(e, positionTypeID, "pos-1"))

	state := NewSyncState()
	Sync(src, dst, syncOptions{state: state})
	de := state.destEntity(dst, e.Index)
	require.NoError(t, dst.SetComponent(de, velocityTypeID, "sentinel"))

	// Sync again with no changes to src: the entity's version hasn't
	// advanced, so Sync must skip it and must not touch dst's extra column.
	Sync(src, dst, syncOptions{state: state})
	assert.True(t, dst.HasComponent(de, velocityTypeID))

	require.NoError(t, src.SetComponent(e, positionTypeID, "pos-2"))
	Sync(src, dst, syncOptions{state: state})
	v, _ := dst.GetComponent(de, positionTypeID)
	assert.Equal(t, "pos-2", v)
}

func TestSyncPreservesSourceEntityMappingAcrossCalls(t *testing.T) {
	src := world.New()
	dst := world.New()
	e1 := src.CreateEntity()
	e2 := src.CreateEntity()
	require.NoError(t, src.SetComponent(e1, positionTypeID, "a"))
	require.NoError(t, src.SetComponent(e2, positionTypeID, "b"))

	state := NewSyncState()
	Sync(src, dst, syncOptions{state: state})
	d1 := state.destEntity(dst, e1.Index)
	d2 := state.destEntity(dst, e2.Index)
	assert.NotEqual(t, d1, d2)

	require.NoError(t, src.SetComponent(e1, positionTypeID, "a2"))
	Sync(src, dst, syncOptions{state: state})
	assert.Equal(t, d1, state.destEntity(dst, e1.Index))
}
