// Package events implements the event accumulator described in the
// spec: a non-destructive history of per-frame event batches, deep
// enough that any view, read at any frame, can observe every event
// produced since it last ran. It is grounded on the teacher's
// tracker.Storage discipline in module/executiondatasync/tracker/storage.go
// — bounded retention, pool-returned buffers, and a high-water mark —
// adapted from "blob CIDs pruned below a height" to "event batches
// trimmed below a frame count".
package events

import (
	"github.com/rs/zerolog"

	"github.com/pjanec/simhost/internal/world"
)

// Accumulator owns a bounded history of frame batches. The runtime owns
// exactly one Accumulator alongside the live world; it is written only
// from the kernel's capture phase and read (via FlushToReplica) by the
// providers: in the main-thread provider-update phase (GDB) and inside
// AcquireView on module goroutines during dispatch (SoD, Shared). Capture
// never overlaps dispatch, so readers never meet a writer and it needs no
// internal lock.
type Accumulator struct {
	log            zerolog.Logger
	bus            *world.Bus
	pool           *world.BatchPool
	history        []*world.Batch // ordered oldest-first
	maxHistory     int
	capturedFrames int
}

func NewAccumulator(log zerolog.Logger, bus *world.Bus, maxHistoryFrames int) *Accumulator {
	return &Accumulator{
		log:        log.With().Str("component", "event_accumulator").Logger(),
		bus:        bus,
		pool:       world.NewBatchPool(),
		maxHistory: maxHistoryFrames,
	}
}

// CaptureFrame snapshots the live bus's currently visible buffers into a
// new batch tagged frameIndex, appends it to history, and trims the
// history to at most maxHistoryFrames batches — oldest batches are
// returned to the pool rather than left for the GC.
func (a *Accumulator) CaptureFrame(frameIndex uint32) {
	b := a.pool.Get(frameIndex)
	a.bus.Snapshot(b)
	a.history = append(a.history, b)
	a.capturedFrames++

	for len(a.history) > a.maxHistory {
		dropped := a.history[0]
		a.history = a.history[1:]
		a.pool.Put(dropped)
	}
}

// FlushToReplica appends every batch with FrameIndex > lastSeenTick into
// replicaBus, preserving whatever replicaBus already holds (append-only:
// it must not clobber events placed there by other sources), filtering
// each batch's events through mask — the SoD bandwidth-filtering the
// spec's Module.event_requirements exists to drive (§6). A nil mask
// flushes every type, matching the GDB provider's unfiltered full
// replica. It returns the new high-water mark — the highest FrameIndex
// flushed, or lastSeenTick unchanged if nothing qualified.
func (a *Accumulator) FlushToReplica(replicaBus *world.Bus, lastSeenTick uint32, mask world.TypeMask) uint32 {
	highWater := lastSeenTick
	for _, b := range a.history {
		if b.FrameIndex <= lastSeenTick {
			continue
		}
		world.AppendBatchInto(b, replicaBus, mask)
		if b.FrameIndex > highWater {
			highWater = b.FrameIndex
		}
	}
	return highWater
}

// HistoryLen reports the number of retained batches, for diagnostics and
// tests.
func (a *Accumulator) HistoryLen() int {
	return len(a.history)
}

// Bus returns the live bus this accumulator captures from. The kernel
// uses it to publish events ahead of a frame's capture phase.
func (a *Accumulator) Bus() *world.Bus {
	return a.bus
}
