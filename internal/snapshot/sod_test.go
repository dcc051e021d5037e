package snapshot

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjanec/simhost/internal/events"
	"github.com/pjanec/simhost/internal/ids"
	"github.com/pjanec/simhost/internal/world"
)

func TestSoDProviderPrewarmsPool(t *testing.T) {
	mask := ids.Mask{}.Set(positionTypeID)
	p := NewSoDProvider(zerolog.Nop(), mask, nil, 3, nil)
	assert.NotNil(t, p.pool.pop())
	assert.NotNil(t, p.pool.pop())
	assert.NotNil(t, p.pool.pop())
	assert.Nil(t, p.pool.pop())
}

func TestSoDProviderAcquireViewFilterSyncsAndFlushesEvents(t *testing.T) {
	live := world.New()
	e := live.CreateEntity()
	require.NoError(t, live.SetComponent(e, positionTypeID, "pos"))
	require.NoError(t, live.SetComponent(e, velocityTypeID, "vel"))
	require.NoError(t, live.SetState(e, world.Active))

	liveBus := world.NewBus()
	acc := events.NewAccumulator(zerolog.Nop(), liveBus, 8)
	liveBus.PublishNative(9, 4, []byte{9, 9, 9, 9})
	acc.CaptureFrame(1)

	mask := ids.Mask{}.Set(positionTypeID)
	p := NewSoDProvider(zerolog.Nop(), mask, nil, 0, nil)
	p.Update(live, acc, 1)

	view := p.AcquireView(1, 0, nil)
	require.NotNil(t, view.owner)

	assert.True(t, view.IsAlive(e))
	assert.True(t, view.HasComponent(e, positionTypeID))
	assert.False(t, view.HasComponent(e, velocityTypeID))

	evts := view.ConsumeEvents(9)
	require.Len(t, evts, 1)

	p.ReleaseView(view)
	assert.NotNil(t, p.pool.pop())
}

func TestSoDProviderFiltersFlushedEventsByEventMask(t *testing.T) {
	live := world.New()
	liveBus := world.NewBus()
	acc := events.NewAccumulator(zerolog.Nop(), liveBus, 8)
	liveBus.PublishNative(9, 4, []byte{9, 9, 9, 9})
	liveBus.PublishNative(10, 4, []byte{1, 1, 1, 1})
	acc.CaptureFrame(1)

	mask := ids.Mask{}
	p := NewSoDProvider(zerolog.Nop(), mask, nil, 0, world.NewTypeMask(9))
	p.Update(live, acc, 1)

	view := p.AcquireView(1, 0, nil)

	assert.Len(t, view.ConsumeEvents(9), 1)
	assert.Empty(t, view.ConsumeEvents(10))

	p.ReleaseView(view)
}

func TestSoDProviderReusesPooledReplicaAfterRelease(t *testing.T) {
	live := world.New()
	liveBus := world.NewBus()
	acc := events.NewAccumulator(zerolog.Nop(), liveBus, 8)

	mask := ids.Mask{}
	p := NewSoDProvider(zerolog.Nop(), mask, nil, 1, nil)
	p.Update(live, acc, 1)

	v1 := p.AcquireView(1, 0, nil)
	entry1 := v1.owner
	p.ReleaseView(v1)

	v2 := p.AcquireView(1, 0, nil)
	assert.Same(t, entry1, v2.owner)
}

func TestSoDProviderTransientOverride(t *testing.T) {
	live := world.New()
	e := live.CreateEntity()
	require.NoError(t, live.SetComponent(e, velocityTypeID, "vel"))
	require.NoError(t, live.SetState(e, world.Active))

	liveBus := world.NewBus()
	acc := events.NewAccumulator(zerolog.Nop(), liveBus, 8)

	transient := NewTransientSet(velocityTypeID)
	mask := ids.Mask{}.Set(velocityTypeID)
	p := NewSoDProvider(zerolog.Nop(), mask, transient, 0, nil).WithTransientOverride(true)
	p.Update(live, acc, 1)

	view := p.AcquireView(1, 0, nil)
	assert.True(t, view.HasComponent(e, velocityTypeID))
}
