package world

import "sync"

// NativeEvent is a fixed-layout event: raw bytes plus the per-element
// size and the event type id, matching the spec's "native events are raw
// bytes plus element size and type id" contract.
type NativeEvent struct {
	TypeID   int
	ElemSize int
	Data     []byte
}

// ManagedEvent is a heap-allocated event: an object reference plus its
// type id.
type ManagedEvent struct {
	TypeID int
	Object interface{}
}

// Batch groups the events captured (or to be flushed) for a single frame,
// bucketed by event-type id.
type Batch struct {
	FrameIndex uint32
	Native     map[int][]NativeEvent
	Managed    map[int][]ManagedEvent
}

func newBatch(frame uint32) *Batch {
	return &Batch{
		FrameIndex: frame,
		Native:     make(map[int][]NativeEvent),
		Managed:    make(map[int][]ManagedEvent),
	}
}

func (b *Batch) reset(frame uint32) {
	b.FrameIndex = frame
	for k := range b.Native {
		delete(b.Native, k)
	}
	for k := range b.Managed {
		delete(b.Managed, k)
	}
}

// BatchPool recycles Batch allocations across frames, in service of the
// "zero per-frame allocations in steady state after pool warm-up"
// allocation target.
type BatchPool struct {
	pool sync.Pool
}

func NewBatchPool() *BatchPool {
	return &BatchPool{
		pool: sync.Pool{New: func() interface{} { return newBatch(0) }},
	}
}

func (p *BatchPool) Get(frame uint32) *Batch {
	b := p.pool.Get().(*Batch)
	b.reset(frame)
	return b
}

func (p *BatchPool) Put(b *Batch) {
	p.pool.Put(b)
}

// TypeMask is a set of native/managed event type ids a reader is
// interested in, matching the spec's EventTypeMask used "for SoD
// bandwidth filtering" (§6 External Interfaces, Module.event_requirements).
// A nil TypeMask matches every type id — the GDB full-replica provider
// passes nil since a Fast-tier module's replica is never bandwidth-
// filtered, only SoD/Shared narrow what they flush.
type TypeMask map[int]struct{}

// NewTypeMask builds a TypeMask from the given event type ids.
func NewTypeMask(typeIDs ...int) TypeMask {
	m := make(TypeMask, len(typeIDs))
	for _, id := range typeIDs {
		m[id] = struct{}{}
	}
	return m
}

// Has reports whether typeID passes the mask. A nil mask passes
// everything.
func (m TypeMask) Has(typeID int) bool {
	if m == nil {
		return true
	}
	_, ok := m[typeID]
	return ok
}

// Bus is the live event bus that modules publish into (via deferred
// command-buffer playback) during a frame. It is not itself the history:
// the event accumulator reads a non-destructive Snapshot of it once per
// frame and the kernel clears it afterwards so the next frame's publishes
// start from empty buffers.
type Bus struct {
	mu      sync.Mutex
	native  map[int][]NativeEvent
	managed map[int][]ManagedEvent
}

func NewBus() *Bus {
	return &Bus{
		native:  make(map[int][]NativeEvent),
		managed: make(map[int][]ManagedEvent),
	}
}

// PublishNative appends a native event. Only called from command-buffer
// playback on the world's single-writer thread.
func (b *Bus) PublishNative(typeID, elemSize int, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.native[typeID] = append(b.native[typeID], NativeEvent{TypeID: typeID, ElemSize: elemSize, Data: data})
}

// PublishManaged appends a managed event.
func (b *Bus) PublishManaged(typeID int, obj interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.managed[typeID] = append(b.managed[typeID], ManagedEvent{TypeID: typeID, Object: obj})
}

// Snapshot copies the bus's currently visible buffers into dst without
// draining them — capture_frame's non-destructive-read contract.
func (b *Bus) Snapshot(dst *Batch) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for t, evs := range b.native {
		if len(evs) == 0 {
			continue
		}
		cp := make([]NativeEvent, len(evs))
		copy(cp, evs)
		dst.Native[t] = cp
	}
	for t, evs := range b.managed {
		if len(evs) == 0 {
			continue
		}
		cp := make([]ManagedEvent, len(evs))
		copy(cp, evs)
		dst.Managed[t] = cp
	}
}

// Clear empties the bus so the next frame's publishes start fresh. Called
// by the kernel once capture has snapshotted the bus for the frame.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k := range b.native {
		delete(b.native, k)
	}
	for k := range b.managed {
		delete(b.managed, k)
	}
}

// AppendBatchInto appends every event in a batch whose type id passes mask
// into a destination bus, preserving whatever the destination bus
// already holds — the append-only contract required by
// flush_to_replica. A nil mask appends every type, matching a Fast-tier
// module's unfiltered full replica.
func AppendBatchInto(b *Batch, dst *Bus, mask TypeMask) {
	dst.mu.Lock()
	defer dst.mu.Unlock()
	for t, evs := range b.Native {
		if !mask.Has(t) {
			continue
		}
		dst.native[t] = append(dst.native[t], evs...)
	}
	for t, evs := range b.Managed {
		if !mask.Has(t) {
			continue
		}
		dst.managed[t] = append(dst.managed[t], evs...)
	}
}

// ConsumeNative returns the current contents for typeID without clearing
// them — views are read-only, so "consumption" here means "read the
// slice for this run", matching the spec's View.consume_events<T>()
// semantics (a finite, already-filtered slice, not a draining read).
func (b *Bus) ConsumeNative(typeID int) []NativeEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.native[typeID]
}

func (b *Bus) ConsumeManaged(typeID int) []ManagedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.managed[typeID]
}
