package timectrl

import (
	"errors"
	"sort"
	"sync"
)

// ContinuousMaster owns the wall clock. Simulation time is computed as
// base + (now - scale_change_ticks)*scale, which lets SetTimeScale
// rebase base/scale_change_ticks to preserve continuity instead of
// producing a jump.
type ContinuousMaster struct {
	mu sync.Mutex

	base             float32
	scaleChangeTicks float32
	scale            float32
	nowTicks         float32
	totalUnscaled    float32
	frame            uint32

	pulseSeq       uint64
	lastPulseTicks float32
	pulseInterval  float32
	publisher      PulsePublisher
}

// NewContinuousMaster constructs a master at the given initial scale,
// publishing TimePulse messages through publisher at 1 Hz (and
// immediately on any scale change).
func NewContinuousMaster(scale float32, publisher PulsePublisher) *ContinuousMaster {
	if scale <= 0 {
		scale = 1
	}
	return &ContinuousMaster{scale: scale, pulseInterval: 1.0, publisher: publisher}
}

func (m *ContinuousMaster) Update(wallDeltaSeconds float32) GlobalTime {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nowTicks += wallDeltaSeconds
	m.totalUnscaled += wallDeltaSeconds
	m.frame++

	simTime := m.base + (m.nowTicks-m.scaleChangeTicks)*m.scale
	gt := GlobalTime{
		Frame:         m.frame,
		Delta:         wallDeltaSeconds * m.scale,
		Total:         simTime,
		Scale:         m.scale,
		UnscaledDelta: wallDeltaSeconds,
		UnscaledTotal: m.totalUnscaled,
	}

	if m.nowTicks-m.lastPulseTicks >= m.pulseInterval {
		m.lastPulseTicks = m.nowTicks
		m.publish(simTime)
	}
	return gt
}

// SetTimeScale rebases base/scale_change_ticks so the sim-time curve
// stays continuous across the scale change, then publishes a pulse
// immediately.
func (m *ContinuousMaster) SetTimeScale(f float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	simTimeNow := m.base + (m.nowTicks-m.scaleChangeTicks)*m.scale
	m.base = simTimeNow
	m.scaleChangeTicks = m.nowTicks
	m.scale = f
	m.publish(simTimeNow)
	return nil
}

func (m *ContinuousMaster) publish(simTime float32) {
	if m.publisher == nil {
		return
	}
	m.pulseSeq++
	m.publisher.PublishPulse(TimePulse{
		WallTicks: uint64(m.nowTicks * 1000),
		SimTime:   simTime,
		Scale:     m.scale,
		Seq:       m.pulseSeq,
	})
}

func (m *ContinuousMaster) TimeScale() float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scale
}

func (m *ContinuousMaster) Mode() Mode { return ModeContinuous }

func (m *ContinuousMaster) CurrentState() GlobalTime {
	m.mu.Lock()
	defer m.mu.Unlock()
	return GlobalTime{
		Frame:         m.frame,
		Total:         m.base + (m.nowTicks-m.scaleChangeTicks)*m.scale,
		Scale:         m.scale,
		UnscaledTotal: m.totalUnscaled,
	}
}

func (m *ContinuousMaster) SeedState(gt GlobalTime) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frame = gt.Frame
	m.base = gt.Total
	m.scaleChangeTicks = m.nowTicks
	m.totalUnscaled = gt.UnscaledTotal
	if gt.Scale > 0 {
		m.scale = gt.Scale
	}
}

// ErrSlaveCannotSetScale is returned by ContinuousSlave.SetTimeScale:
// scale is a master-only property, received via TimePulse.
var ErrSlaveCannotSetScale = errors.New("timectrl: slave cannot set its own time scale")

const defaultMedianWindow = 5

// ContinuousSlave maintains a virtual wall clock advanced each frame by
// raw_delta*(1+correction). Correction comes from a P-controller over a
// median-filtered error window between a reconstructed target (from the
// most recent pulse plus a one-way latency estimate) and the slave's own
// virtual ticks. An error beyond snapThreshold hard-snaps instead of
// correcting gradually.
type ContinuousSlave struct {
	mu sync.Mutex

	virtualTicks     float32
	base             float32
	scaleChangeTicks float32
	scale            float32
	totalUnscaled    float32
	frame            uint32

	latencyEstimate float32
	kp              float32
	snapThreshold   float32
	window          []float32
	windowSize      int
	lastCorrection  float32

	havePulse            bool
	lastPulse            TimePulse
	pulseReceivedVirtual float32
}

// NewContinuousSlave builds a slave with the given one-way latency
// estimate (seconds), P-controller gain, and hard-snap threshold
// (seconds). snapThreshold defaults to 0.5s (500ms) when <= 0.
func NewContinuousSlave(latencyEstimate, kp, snapThreshold float32) *ContinuousSlave {
	if snapThreshold <= 0 {
		snapThreshold = 0.5
	}
	return &ContinuousSlave{
		scale:           1,
		latencyEstimate: latencyEstimate,
		kp:              kp,
		snapThreshold:   snapThreshold,
		windowSize:      defaultMedianWindow,
	}
}

// OnPulse records the most recent master pulse. If the pulse carries a
// new scale, base/scale_change_ticks are rebased to avoid a
// discontinuity, mirroring the master's own rebase-on-scale-change rule.
func (s *ContinuousSlave) OnPulse(p TimePulse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.havePulse && p.Scale != s.scale {
		simTimeNow := s.base + (s.virtualTicks-s.scaleChangeTicks)*s.scale
		s.base = simTimeNow
		s.scaleChangeTicks = s.virtualTicks
		s.scale = p.Scale
	} else if !s.havePulse {
		s.scale = p.Scale
	}

	s.havePulse = true
	s.lastPulse = p
	s.pulseReceivedVirtual = s.virtualTicks
}

func (s *ContinuousSlave) targetTicks() float32 {
	return float32(s.lastPulse.WallTicks)/1000.0 + s.latencyEstimate + (s.virtualTicks - s.pulseReceivedVirtual)
}

func (s *ContinuousSlave) pushError(e float32) {
	s.window = append(s.window, e)
	if len(s.window) > s.windowSize {
		s.window = s.window[len(s.window)-s.windowSize:]
	}
}

func (s *ContinuousSlave) medianError() float32 {
	if len(s.window) == 0 {
		return 0
	}
	sorted := append([]float32(nil), s.window...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted[len(sorted)/2]
}

func (s *ContinuousSlave) Update(wallDeltaSeconds float32) GlobalTime {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.virtualTicks += wallDeltaSeconds * (1 + s.lastCorrection)
	s.totalUnscaled += wallDeltaSeconds
	s.frame++

	if s.havePulse {
		target := s.targetTicks()
		errVal := target - s.virtualTicks
		s.pushError(errVal)
		medianErr := s.medianError()
		if absf(medianErr) > s.snapThreshold {
			s.virtualTicks = target
			s.window = s.window[:0]
			medianErr = 0
		}
		s.lastCorrection = s.kp * medianErr
	}

	simTime := s.base + (s.virtualTicks-s.scaleChangeTicks)*s.scale
	return GlobalTime{
		Frame:         s.frame,
		Delta:         wallDeltaSeconds * s.scale,
		Total:         simTime,
		Scale:         s.scale,
		UnscaledDelta: wallDeltaSeconds,
		UnscaledTotal: s.totalUnscaled,
	}
}

func (s *ContinuousSlave) SetTimeScale(float32) error { return ErrSlaveCannotSetScale }

func (s *ContinuousSlave) TimeScale() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scale
}

func (s *ContinuousSlave) Mode() Mode { return ModeContinuous }

func (s *ContinuousSlave) CurrentState() GlobalTime {
	s.mu.Lock()
	defer s.mu.Unlock()
	return GlobalTime{
		Frame:         s.frame,
		Total:         s.base + (s.virtualTicks-s.scaleChangeTicks)*s.scale,
		Scale:         s.scale,
		UnscaledTotal: s.totalUnscaled,
	}
}

func (s *ContinuousSlave) SeedState(gt GlobalTime) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = gt.Frame
	s.base = gt.Total
	s.scaleChangeTicks = s.virtualTicks
	s.totalUnscaled = gt.UnscaledTotal
	if gt.Scale > 0 {
		s.scale = gt.Scale
	}
}
