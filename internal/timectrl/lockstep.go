package timectrl

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pjanec/simhost/internal/errs"
)

// ErrPendingAcks is returned by DeterministicMaster.Step when the
// previous frame's acks have not all arrived and force was not set.
var ErrPendingAcks = errors.New("timectrl: previous frame order still has outstanding acks")

// DeterministicMaster advances only on an explicit Step call, never on
// Update's wall-clock delta (Update is a no-op read of current state, to
// satisfy the common Controller interface uniformly across variants).
// Step refuses to advance again until every expected node has acked the
// previous FrameOrder, unless force is set.
type DeterministicMaster struct {
	mu  sync.Mutex
	log zerolog.Logger

	frame   uint32
	total   float32
	scale   float32
	seq     uint64
	nodeIDs []string
	pending map[string]struct{}

	publisher FrameOrderPublisher
}

func NewDeterministicMaster(log zerolog.Logger, nodeIDs []string, publisher FrameOrderPublisher) *DeterministicMaster {
	return &DeterministicMaster{
		log:       log.With().Str("component", "deterministic_master").Logger(),
		scale:     1,
		nodeIDs:   append([]string(nil), nodeIDs...),
		publisher: publisher,
	}
}

// Step advances one fixed tick and publishes a FrameOrder. If acks from
// the previous step are still outstanding, it logs a warning; force
// overrides the refusal, allowing the caller to proceed anyway.
func (m *DeterministicMaster) Step(fixedDelta float32, force bool) (GlobalTime, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.pending) > 0 {
		m.log.Warn().Err(errs.ErrLockstepStall).Int("outstanding", len(m.pending)).Msg("stepping with unacked frame order outstanding")
		if !force {
			return m.currentStateLocked(), ErrPendingAcks
		}
	}

	m.seq++
	m.frame++
	m.total += fixedDelta * m.scale

	order := FrameOrder{FrameID: m.frame, FixedDelta: fixedDelta, Seq: m.seq}
	m.pending = make(map[string]struct{}, len(m.nodeIDs))
	for _, id := range m.nodeIDs {
		m.pending[id] = struct{}{}
	}
	if m.publisher != nil {
		m.publisher.PublishFrameOrder(order)
	}

	return m.currentStateLocked(), nil
}

// RecordAck clears one node's outstanding ack for the current frame.
func (m *DeterministicMaster) RecordAck(ack FrameAck) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ack.FrameID != m.frame {
		return
	}
	delete(m.pending, ack.NodeID)
}

// PendingAcks reports how many expected nodes have not yet acked the
// current frame.
func (m *DeterministicMaster) PendingAcks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Update is a no-op read: deterministic advancement happens only via
// Step.
func (m *DeterministicMaster) Update(float32) GlobalTime {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentStateLocked()
}

func (m *DeterministicMaster) currentStateLocked() GlobalTime {
	return GlobalTime{Frame: m.frame, Total: m.total, Scale: m.scale, UnscaledTotal: m.total}
}

func (m *DeterministicMaster) SetTimeScale(f float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scale = f
	return nil
}

func (m *DeterministicMaster) TimeScale() float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scale
}

func (m *DeterministicMaster) Mode() Mode { return ModeDeterministic }

func (m *DeterministicMaster) CurrentState() GlobalTime {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentStateLocked()
}

func (m *DeterministicMaster) SeedState(gt GlobalTime) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frame = gt.Frame
	m.total = gt.Total
	if gt.Scale > 0 {
		m.scale = gt.Scale
	}
}

// DeterministicSlave applies FrameOrders strictly in sequence. Orders
// that arrive ahead of turn are stashed; a missing next-in-sequence
// order stalls the slave by design (lockstep) — Update simply returns
// the unchanged current state until it arrives.
type DeterministicSlave struct {
	mu sync.Mutex

	log zerolog.Logger

	nodeID     string
	frame      uint32
	nextFrame  uint32
	total      float32
	scale      float32
	stashed    map[uint32]FrameOrder
	acker      FrameAckPublisher
}

// SetLog attaches a logger used to report lockstep stalls (§7: "logged
// repeatedly until unblocked"). Safe to skip; the zero value discards
// these warnings.
func (s *DeterministicSlave) SetLog(log zerolog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = log.With().Str("component", "deterministic_slave").Logger()
}

func NewDeterministicSlave(nodeID string, acker FrameAckPublisher) *DeterministicSlave {
	return &DeterministicSlave{
		log:       zerolog.Nop(),
		nodeID:    nodeID,
		nextFrame: 1,
		scale:     1,
		stashed:   make(map[uint32]FrameOrder),
		acker:     acker,
	}
}

// EnqueueOrder stashes an incoming FrameOrder for later application by
// Update, regardless of arrival order.
func (s *DeterministicSlave) EnqueueOrder(o FrameOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stashed[o.FrameID] = o
}

// Update applies the next-in-sequence stashed order, if present, and
// acks it. If it is not yet available the slave stalls: Update returns
// its unchanged current state.
func (s *DeterministicSlave) Update(float32) GlobalTime {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.stashed[s.nextFrame]
	if !ok {
		s.log.Warn().Err(errs.ErrLockstepStall).Uint32("waiting_for_frame", s.nextFrame).
			Msg("stalled: next-in-sequence frame order has not arrived")
		return GlobalTime{Frame: s.frame, Total: s.total, Scale: s.scale, UnscaledTotal: s.total}
	}
	delete(s.stashed, s.nextFrame)

	s.frame = order.FrameID
	s.nextFrame++
	s.total += order.FixedDelta * s.scale

	if s.acker != nil {
		s.acker.PublishFrameAck(FrameAck{FrameID: s.frame, NodeID: s.nodeID})
	}

	return GlobalTime{
		Frame:         s.frame,
		Delta:         order.FixedDelta * s.scale,
		Total:         s.total,
		Scale:         s.scale,
		UnscaledDelta: order.FixedDelta,
		UnscaledTotal: s.total,
	}
}

func (s *DeterministicSlave) SetTimeScale(f float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scale = f
	return nil
}

func (s *DeterministicSlave) TimeScale() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scale
}

func (s *DeterministicSlave) Mode() Mode { return ModeDeterministic }

func (s *DeterministicSlave) CurrentState() GlobalTime {
	s.mu.Lock()
	defer s.mu.Unlock()
	return GlobalTime{Frame: s.frame, Total: s.total, Scale: s.scale, UnscaledTotal: s.total}
}

func (s *DeterministicSlave) SeedState(gt GlobalTime) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = gt.Frame
	s.nextFrame = gt.Frame + 1
	s.total = gt.Total
	if gt.Scale > 0 {
		s.scale = gt.Scale
	}
}
