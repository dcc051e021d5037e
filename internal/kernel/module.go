package kernel

import (
	"github.com/pjanec/simhost/internal/breaker"
	"github.com/pjanec/simhost/internal/cmdbuf"
	"github.com/pjanec/simhost/internal/events"
	"github.com/pjanec/simhost/internal/snapshot"
	"github.com/pjanec/simhost/internal/world"
)

// Tier selects which snapshot strategy a registered module runs with and
// how often it is dispatched.
type Tier int

const (
	// Fast modules are handed a full-replica (GDB) provider and run
	// every frame.
	Fast Tier = iota
	// Slow modules are handed a filtered on-demand (SoD or Shared)
	// provider and run every UpdateFrequency frames.
	Slow
)

func (t Tier) String() string {
	if t == Fast {
		return "Fast"
	}
	return "Slow"
}

// Provider is the common contract shared by every snapshot strategy
// (GDB, SoD, Shared): update from the live world, acquire a view, and
// release it.
type Provider interface {
	Update(live *world.World, acc *events.Accumulator, nowTick uint32)
	AcquireView(nowTick uint32, simTime float32, cmds *cmdbuf.Buffer) *snapshot.View
	ReleaseView(v *snapshot.View)
}

// Delta is the timing information passed into one Tick call.
type Delta struct {
	// AccumulatedDelta is frames_skipped_plus_one * base_delta: a
	// Slow-tier module sees the cumulative time elapsed since its own
	// last run, so simulation stays time-accurate at any frequency.
	AccumulatedDelta float32
	Frame            uint32
	SimTime          float32
}

// Module is one unit of per-frame simulation logic. Tick receives a
// read-only View and must route every mutation through the View's
// command buffer; Tick must never touch the live world directly.
//
// EventRequirements declares the event types this module reads, per
// §6's "event_requirements -> EventTypeMask (for SoD bandwidth
// filtering)". A host wires the same mask into the module's SoD/Shared
// provider (NewSoDProvider/NewSharedProvider's eventMask parameter) so
// that provider's flushes never carry event types the module never
// consumes; a Fast-tier module's GDB provider ignores this, since a
// full replica is never bandwidth-filtered. Returning nil means "every
// event type".
type Module interface {
	Name() string
	EventRequirements() world.TypeMask
	Tick(v *snapshot.View, d Delta) error
}

// Registration binds a Module to its tier and snapshot strategy. A
// Module that itself groups several in-process systems orders them
// internally with the scheduler package; the kernel dispatches whole
// modules concurrently and makes no ordering guarantee between them
// beyond the frame pipeline's own phase barriers (provider update before
// any tick, every tick before playback).
type Registration struct {
	Module          Module
	Tier            Tier
	Provider        Provider
	UpdateFrequency uint32           // frames between runs for a Slow module; ignored for Fast. Default 1.
	Breaker         *breaker.Breaker // defaults to breaker.New(0, 0) if nil

	lastRunFrame uint32
	hasRun       bool
	cmds         *cmdbuf.Buffer
}

func (r *Registration) shouldRun(frame uint32) bool {
	if r.Tier == Fast {
		return true
	}
	freq := r.UpdateFrequency
	if freq == 0 {
		freq = 1
	}
	return !r.hasRun || frame-r.lastRunFrame >= freq
}

func (r *Registration) accumulatedDelta(frame uint32, baseDelta float32) float32 {
	if !r.hasRun {
		return baseDelta
	}
	skipped := frame - r.lastRunFrame
	if skipped == 0 {
		skipped = 1
	}
	return float32(skipped) * baseDelta
}

const initialCommandBufferBytes = 4096
