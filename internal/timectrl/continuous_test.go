package timectrl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingPulisher struct {
	pulses []TimePulse
}

func (r *recordingPulisher) PublishPulse(p TimePulse) { r.pulses = append(r.pulses, p) }

func TestContinuousMasterAdvancesSimTime(t *testing.T) {
	m := NewContinuousMaster(1, nil)
	gt := m.Update(0.1)
	assert.InDelta(t, 0.1, gt.Total, 0.0001)
	assert.Equal(t, uint32(1), gt.Frame)

	gt = m.Update(0.1)
	assert.InDelta(t, 0.2, gt.Total, 0.0001)
}

func TestContinuousMasterSetTimeScaleRebasesWithoutDiscontinuity(t *testing.T) {
	m := NewContinuousMaster(1, nil)
	m.Update(1.0) // sim time now 1.0

	before := m.CurrentState().Total
	require := assert.New(t)
	require.InDelta(1.0, before, 0.0001)

	m.SetTimeScale(2)
	after := m.CurrentState().Total
	require.InDelta(before, after, 0.0001) // no jump at the instant of rescale

	gt := m.Update(1.0)
	require.InDelta(before+2.0, gt.Total, 0.0001) // now advancing at 2x
}

func TestContinuousMasterPublishesPulseAt1HzAndOnScaleChange(t *testing.T) {
	pub := &recordingPulisher{}
	m := NewContinuousMaster(1, pub)

	m.Update(0.5)
	assert.Len(t, pub.pulses, 0)
	m.Update(0.6) // crosses the 1.0s mark
	assert.Len(t, pub.pulses, 1)

	m.SetTimeScale(2)
	assert.Len(t, pub.pulses, 2)
}

func TestContinuousSlaveTracksPulseWithoutPulsesIsIdentity(t *testing.T) {
	s := NewContinuousSlave(0, 0.5, 0.5)
	gt := s.Update(0.1)
	assert.InDelta(t, 0.1, gt.Total, 0.0001)
}

func TestContinuousSlaveHardSnapsOnLargeError(t *testing.T) {
	s := NewContinuousSlave(0, 0.5, 0.1) // snap threshold 100ms
	s.Update(0.1) // virtual ticks now 0.1, no pulse yet

	// Pulse claims wall ticks far ahead of virtual ticks: the slave's
	// very next Update should pull hard instead of drifting in slowly.
	s.OnPulse(TimePulse{WallTicks: 5000, Scale: 1})
	gt := s.Update(0.1)
	assert.InDelta(t, 5.1, gt.Total, 0.05)
}

func TestContinuousSlaveCannotSetScale(t *testing.T) {
	s := NewContinuousSlave(0, 0, 0)
	err := s.SetTimeScale(2)
	assert.ErrorIs(t, err, ErrSlaveCannotSetScale)
}

func TestContinuousSlaveRebasesOnPulseScaleChange(t *testing.T) {
	s := NewContinuousSlave(0, 0, 0.5)
	s.OnPulse(TimePulse{WallTicks: 0, Scale: 1})
	s.Update(1.0)
	before := s.CurrentState().Total

	s.OnPulse(TimePulse{WallTicks: 1000, Scale: 2})
	after := s.CurrentState().Total
	assert.InDelta(t, before, after, 0.0001)
}
