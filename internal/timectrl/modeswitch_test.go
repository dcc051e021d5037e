package timectrl

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestCoordinatorSwapsOnlyAtBarrierFrame(t *testing.T) {
	master := NewContinuousMaster(1, nil)
	c := NewCoordinator(zerolog.Nop(), master)

	det := NewDeterministicMaster(zerolog.Nop(), nil, nil)
	msg := c.RequestSwitch(3, ModeDeterministic, 0.02, det)
	assert.Equal(t, ModeDeterministic, msg.Target)

	for i := 0; i < int(msg.Barrier)-1; i++ {
		c.Update(1.0)
		assert.Equal(t, ModeContinuous, c.Active().Mode())
	}

	c.Update(1.0) // reaches the barrier frame
	assert.Equal(t, ModeDeterministic, c.Active().Mode())
}

func TestCoordinatorSlaveSwapsImmediatelyWhenBarrierAlreadyPassed(t *testing.T) {
	master := NewContinuousMaster(1, nil)
	c := NewCoordinator(zerolog.Nop(), master)
	c.Update(1.0)
	c.Update(1.0) // local frame is now 2

	det := NewDeterministicSlave("node-a", nil)
	c.HandleSwitchMessage(SwitchTimeMode{Target: ModeDeterministic, Barrier: 1}, det)
	assert.Equal(t, ModeDeterministic, c.Active().Mode())
}

func TestCoordinatorUnpauseIsImmediateAndCancelsPendingBarrier(t *testing.T) {
	master := NewContinuousMaster(1, nil)
	c := NewCoordinator(zerolog.Nop(), master)

	det := NewDeterministicMaster(zerolog.Nop(), nil, nil)
	c.RequestSwitch(10, ModeDeterministic, 0.02, det)

	unpauseTarget := NewContinuousMaster(1, nil)
	c.RequestSwitch(0, ModeContinuous, 0, unpauseTarget)
	assert.Same(t, unpauseTarget, c.Active())

	// the barrier that would have swapped to det must not fire later
	for i := 0; i < 20; i++ {
		c.Update(1.0)
	}
	assert.Equal(t, ModeContinuous, c.Active().Mode())
}
