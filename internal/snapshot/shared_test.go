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

func TestSharedProviderReusesSnapshotWhileReferenced(t *testing.T) {
	live := world.New()
	e := live.CreateEntity()
	require.NoError(t, live.SetComponent(e, positionTypeID, "pos"))
	require.NoError(t, live.SetState(e, world.Active))

	liveBus := world.NewBus()
	acc := events.NewAccumulator(zerolog.Nop(), liveBus, 8)

	mask := ids.Mask{}.Set(positionTypeID)
	p := NewSharedProvider(zerolog.Nop(), mask, nil, nil)
	p.Update(live, acc, 1)

	v1 := p.AcquireView(1, 0, nil)
	v2 := p.AcquireView(1, 0, nil)
	assert.Same(t, v1.replica, v2.replica)
	assert.Equal(t, 2, p.refs)
}

func TestSharedProviderDisposesOnlyAfterLastRelease(t *testing.T) {
	live := world.New()
	liveBus := world.NewBus()
	acc := events.NewAccumulator(zerolog.Nop(), liveBus, 8)

	p := NewSharedProvider(zerolog.Nop(), ids.Mask{}, nil, nil)
	p.Update(live, acc, 1)

	v1 := p.AcquireView(1, 0, nil)
	v2 := p.AcquireView(1, 0, nil)

	p.ReleaseView(v1)
	assert.NotNil(t, p.entry)

	p.ReleaseView(v2)
	assert.Nil(t, p.entry)
}

func TestSharedProviderResyncsAfterFullDispose(t *testing.T) {
	live := world.New()
	e := live.CreateEntity()
	require.NoError(t, live.SetComponent(e, positionTypeID, "v1"))
	require.NoError(t, live.SetState(e, world.Active))

	liveBus := world.NewBus()
	acc := events.NewAccumulator(zerolog.Nop(), liveBus, 8)

	mask := ids.Mask{}.Set(positionTypeID)
	p := NewSharedProvider(zerolog.Nop(), mask, nil, nil)
	p.Update(live, acc, 1)

	v1 := p.AcquireView(1, 0, nil)
	p.ReleaseView(v1)

	require.NoError(t, live.SetComponent(e, positionTypeID, "v2"))
	p.Update(live, acc, 2)

	v2 := p.AcquireView(2, 0, nil)
	val, ok := v2.GetComponentRO(e, positionTypeID)
	require.True(t, ok)
	assert.Equal(t, "v2", val)
}
