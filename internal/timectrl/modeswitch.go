package timectrl

import (
	"sync"

	"github.com/rs/zerolog"
)

// SwitchPublisher delivers SwitchTimeMode broadcasts to the network
// egress path.
type SwitchPublisher interface {
	PublishSwitch(SwitchTimeMode)
}

type pendingSwitch struct {
	msg  SwitchTimeMode
	next Controller
}

// Coordinator owns the single Controller the kernel actually calls into,
// and arranges for it to be swapped only at a frame boundary, at or past
// a barrier frame, so no in-flight tick ever observes two different time
// regimes.
//
// On the master side, RequestSwitch picks the barrier and broadcasts it.
// On a slave, HandleSwitchMessage decides whether the barrier has
// already passed (swap immediately, with a warning) or is still ahead
// (stash it for Update to apply once reached).
type Coordinator struct {
	mu      sync.Mutex
	log     zerolog.Logger
	active  Controller
	pending *pendingSwitch
}

func NewCoordinator(log zerolog.Logger, initial Controller) *Coordinator {
	return &Coordinator{log: log.With().Str("component", "time_coordinator").Logger(), active: initial}
}

// Active returns the controller currently in effect.
func (c *Coordinator) Active() Controller {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Update runs the active controller and, if a pending switch's barrier
// frame has now been reached, swaps in its replacement before returning.
// Unpausing (switching to Continuous) never has a pending barrier to
// honour, so any pending Deterministic-bound switch is cancelled by an
// unpause — the spec's "unpause cancels pending barrier" rule.
func (c *Coordinator) Update(wallDeltaSeconds float32) GlobalTime {
	c.mu.Lock()
	defer c.mu.Unlock()

	gt := c.active.Update(wallDeltaSeconds)

	if c.pending != nil && gt.Frame >= c.pending.Barrier() {
		c.log.Info().Uint32("barrier", c.pending.Barrier()).Msg("mode switch barrier reached, swapping controller")
		c.active = c.pending.next
		c.active.SeedState(gt)
		c.pending = nil
	}
	return gt
}

func (p *pendingSwitch) Barrier() uint32 { return p.msg.Barrier }

// RequestSwitch is called on the master side: it picks barrierFrame =
// currentFrame + lookahead (the caller is responsible for sizing
// lookahead to at least worst-case one-way latency * fps), stashes the
// pending switch, and returns the SwitchTimeMode broadcast for the
// caller to publish over the network.
func (c *Coordinator) RequestSwitch(lookaheadFrames uint32, target Mode, fixedDelta float32, next Controller) SwitchTimeMode {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.active.CurrentState()
	msg := SwitchTimeMode{Target: target, Barrier: current.Frame + lookaheadFrames, FixedDelta: fixedDelta}

	if target == ModeContinuous {
		// Unpausing is immediate: no barrier to honour, any switch
		// already in flight is superseded.
		c.active = next
		c.active.SeedState(current)
		c.pending = nil
		return msg
	}

	c.pending = &pendingSwitch{msg: msg, next: next}
	return msg
}

// HandleSwitchMessage is called on a slave side when a SwitchTimeMode
// broadcast arrives. If the barrier has already passed locally, the
// slave swaps immediately (with a warning, since it missed the
// synchronised point); otherwise it stashes the switch for Update to
// apply once the barrier frame is reached.
func (c *Coordinator) HandleSwitchMessage(msg SwitchTimeMode, next Controller) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.active.CurrentState()

	if msg.Target == ModeContinuous {
		c.active = next
		c.active.SeedState(current)
		c.pending = nil
		return
	}

	if current.Frame >= msg.Barrier {
		c.log.Warn().Uint32("barrier", msg.Barrier).Uint32("frame", current.Frame).
			Msg("switch message arrived after its barrier frame, swapping immediately")
		c.active = next
		c.active.SeedState(current)
		c.pending = nil
		return
	}

	c.pending = &pendingSwitch{msg: msg, next: next}
}
