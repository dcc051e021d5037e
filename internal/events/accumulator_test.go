package events

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjanec/simhost/internal/world"
)

func TestCaptureFrameIsNonDestructive(t *testing.T) {
	bus := world.NewBus()
	acc := NewAccumulator(zerolog.Nop(), bus, 10)

	bus.PublishNative(1, 4, []byte{1, 2, 3, 4})
	acc.CaptureFrame(5)

	// the live bus must still show the event after capture
	assert.Len(t, bus.ConsumeNative(1), 1)
	assert.Equal(t, 1, acc.HistoryLen())
}

func TestFlushToReplicaIsAppendOnlyAndAdvancesHighWater(t *testing.T) {
	bus := world.NewBus()
	acc := NewAccumulator(zerolog.Nop(), bus, 10)

	bus.PublishNative(1, 4, []byte{0xAA})
	acc.CaptureFrame(1)
	bus.Clear()

	bus.PublishNative(1, 4, []byte{0xBB})
	acc.CaptureFrame(2)
	bus.Clear()

	replica := world.NewBus()
	replica.PublishNative(1, 4, []byte{0xFF}) // pre-existing event from another source

	hw := acc.FlushToReplica(replica, 0, nil)
	require.Equal(t, uint32(2), hw)

	got := replica.ConsumeNative(1)
	require.Len(t, got, 3) // pre-existing + frame1 + frame2, in append order
	assert.Equal(t, byte(0xFF), got[0].Data[0])
	assert.Equal(t, byte(0xAA), got[1].Data[0])
	assert.Equal(t, byte(0xBB), got[2].Data[0])
}

func TestFlushToReplicaRespectsLastSeenTick(t *testing.T) {
	bus := world.NewBus()
	acc := NewAccumulator(zerolog.Nop(), bus, 10)

	for f := uint32(1); f <= 3; f++ {
		bus.PublishNative(1, 1, []byte{byte(f)})
		acc.CaptureFrame(f)
		bus.Clear()
	}

	replica := world.NewBus()
	hw := acc.FlushToReplica(replica, 1, nil)
	require.Equal(t, uint32(3), hw)
	got := replica.ConsumeNative(1)
	require.Len(t, got, 2) // frame 2 and 3 only, frame 1 excluded by last-seen-tick
	assert.Equal(t, byte(2), got[0].Data[0])
	assert.Equal(t, byte(3), got[1].Data[0])
}

func TestHistoryTrimsToMaxFrames(t *testing.T) {
	bus := world.NewBus()
	acc := NewAccumulator(zerolog.Nop(), bus, 2)

	for f := uint32(1); f <= 5; f++ {
		acc.CaptureFrame(f)
	}
	assert.Equal(t, 2, acc.HistoryLen())

	replica := world.NewBus()
	hw := acc.FlushToReplica(replica, 0, nil)
	// only the two most recent frames (4, 5) survive trimming
	assert.Equal(t, uint32(5), hw)
}
