package kernel

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjanec/simhost/internal/breaker"
	"github.com/pjanec/simhost/internal/ids"
	"github.com/pjanec/simhost/internal/snapshot"
	"github.com/pjanec/simhost/internal/timectrl"
	"github.com/pjanec/simhost/internal/world"
)

const positionTypeID = 1

type countingModule struct {
	name        string
	ticks       int32
	fail        bool
	panicOnTick bool
}

func (m *countingModule) Name() string { return m.name }

func (m *countingModule) EventRequirements() world.TypeMask { return nil }

func (m *countingModule) Tick(v *snapshot.View, d Delta) error {
	atomic.AddInt32(&m.ticks, 1)
	if m.panicOnTick {
		panic("boom")
	}
	if m.fail {
		return errors.New("module failure")
	}
	e := ids.Entity{Index: 0, Generation: 1}
	_ = v.IsAlive(e)
	buf := v.GetCommandBuffer()
	t := buf.CreateEntity()
	buf.AddComponentDeferred(t, positionTypeID, "written-by-"+m.name)
	return nil
}

func newTestKernel(t *testing.T) *Kernel {
	clock := timectrl.NewCoordinator(zerolog.Nop(), timectrl.NewContinuousMaster(1, nil))
	return New(zerolog.Nop(), nil, clock, 8)
}

func TestKernelRunsFastModuleEveryFrame(t *testing.T) {
	k := newTestKernel(t)
	mod := &countingModule{name: "fast-mod"}
	require.NoError(t, k.Register(&Registration{
		Module:   mod,
		Tier:     Fast,
		Provider: snapshot.NewGDBProvider(zerolog.Nop()),
	}))
	require.NoError(t, k.Build())

	require.NoError(t, k.Update(0.016))
	require.NoError(t, k.Update(0.016))
	require.NoError(t, k.Update(0.016))

	assert.EqualValues(t, 3, atomic.LoadInt32(&mod.ticks))
}

func TestKernelRunsSlowModuleOnCadence(t *testing.T) {
	k := newTestKernel(t)
	mod := &countingModule{name: "slow-mod"}
	mask := ids.Mask{}.Set(positionTypeID)
	require.NoError(t, k.Register(&Registration{
		Module:          mod,
		Tier:            Slow,
		UpdateFrequency: 3,
		Provider:        snapshot.NewSoDProvider(zerolog.Nop(), mask, nil, 1, nil),
	}))
	require.NoError(t, k.Build())

	for i := 0; i < 7; i++ {
		require.NoError(t, k.Update(0.016))
	}
	// frames 1 (first run), 4, 7 -> three ticks
	assert.EqualValues(t, 3, atomic.LoadInt32(&mod.ticks))
}

func TestKernelPlaysBackCommandBufferOnMainThread(t *testing.T) {
	k := newTestKernel(t)
	mod := &countingModule{name: "writer"}
	require.NoError(t, k.Register(&Registration{
		Module:   mod,
		Tier:     Fast,
		Provider: snapshot.NewGDBProvider(zerolog.Nop()),
	}))
	require.NoError(t, k.Build())
	require.NoError(t, k.Update(0.016))

	assert.Equal(t, 1, k.LiveWorld().EntityCount())
}

func TestKernelSkipsModuleWhenBreakerOpen(t *testing.T) {
	k := newTestKernel(t)
	mod := &countingModule{name: "flaky", fail: true}
	b := breaker.New(1, 0) // trips open after a single failure
	require.NoError(t, k.Register(&Registration{
		Module:   mod,
		Tier:     Fast,
		Provider: snapshot.NewGDBProvider(zerolog.Nop()),
		Breaker:  b,
	}))
	require.NoError(t, k.Build())

	require.NoError(t, k.Update(0.016))
	require.NoError(t, k.Update(0.016))
	require.NoError(t, k.Update(0.016))

	assert.EqualValues(t, 1, atomic.LoadInt32(&mod.ticks)) // second/third frame skipped
	assert.Equal(t, breaker.Open, b.State())
}

func TestKernelRecoversPanickingModuleAndRecordsFailure(t *testing.T) {
	k := newTestKernel(t)
	mod := &countingModule{name: "panicky", panicOnTick: true}
	require.NoError(t, k.Register(&Registration{
		Module:   mod,
		Tier:     Fast,
		Provider: snapshot.NewGDBProvider(zerolog.Nop()),
	}))
	require.NoError(t, k.Build())

	require.NoError(t, k.Update(0.016)) // must not propagate the panic
	assert.Equal(t, breaker.Closed, k.order[0].Breaker.State())
}

// TestKernelPlaybackIsDeterministicByRegistrationOrder exercises the
// guarantee that, although module ticks run concurrently, playback
// itself replays each module's buffer on the main thread strictly in
// registration order — so two modules racing to set the same live
// component always resolve to whichever was registered last.
func TestKernelPlaybackIsDeterministicByRegistrationOrder(t *testing.T) {
	k := newTestKernel(t)
	live := k.LiveWorld()
	target := live.CreateEntity()

	first := &writerModule{name: "first", target: target, value: "first-value"}
	second := &writerModule{name: "second", target: target, value: "second-value"}

	require.NoError(t, k.Register(&Registration{Module: first, Tier: Fast, Provider: snapshot.NewGDBProvider(zerolog.Nop())}))
	require.NoError(t, k.Register(&Registration{Module: second, Tier: Fast, Provider: snapshot.NewGDBProvider(zerolog.Nop())}))
	require.NoError(t, k.Build())
	require.NoError(t, k.Update(0.016))

	v, ok := live.GetComponent(target, positionTypeID)
	require.True(t, ok)
	assert.Equal(t, "second-value", v)
}

type writerModule struct {
	name   string
	target ids.Entity
	value  string
}

func (m *writerModule) Name() string { return m.name }

func (m *writerModule) EventRequirements() world.TypeMask { return nil }
func (m *writerModule) Tick(v *snapshot.View, d Delta) error {
	v.GetCommandBuffer().SetComponent(m.target, positionTypeID, m.value)
	return nil
}
