// Package world defines the live-world and view surface that the rest of
// simhost is built against. The underlying ECS storage engine (chunked
// tables, archetypes, queries) is explicitly out of scope for this
// module — production hosts plug in their own. This package gives that
// external engine a concrete shape to satisfy: a minimal, single-writer,
// in-memory store good enough to exercise the kernel, the snapshot
// providers, and the lifecycle protocol end to end.
package world

import (
	"fmt"

	"github.com/pjanec/simhost/internal/ids"
)

// LifecycleState is a point in the entity lifecycle lattice described by
// the spec: Uninitialised -> Ghost -> Constructing -> Active ->
// (Destroying) -> Destroyed. Ghost is optional; no other state may be
// skipped.
type LifecycleState int

const (
	Uninitialised LifecycleState = iota
	Ghost
	Constructing
	Active
	Destroying
	Destroyed
)

func (s LifecycleState) String() string {
	switch s {
	case Uninitialised:
		return "Uninitialised"
	case Ghost:
		return "Ghost"
	case Constructing:
		return "Constructing"
	case Active:
		return "Active"
	case Destroying:
		return "Destroying"
	case Destroyed:
		return "Destroyed"
	default:
		return "Unknown"
	}
}

// Header is the per-entity metadata maintained by the ECS on behalf of
// every other component in this module.
type Header struct {
	Mask       ids.Mask
	State      LifecycleState
	Generation int32
	Version    uint64
}

// ErrStaleEntityHandle is returned whenever an Entity's generation does
// not match the live header at that index — the handle was captured
// before the slot was recycled.
type ErrStaleEntityHandle struct {
	Entity ids.Entity
}

func (e *ErrStaleEntityHandle) Error() string {
	return fmt.Sprintf("stale entity handle: %s", e.Entity)
}

// World is the live, mutable simulation world. Exactly one goroutine (the
// kernel's main thread, by convention) may call any mutating method; all
// other readers go through a snapshot (see package snapshot). World
// itself performs no internal locking — that is the single-writer
// discipline the rest of the runtime is built to preserve.
type World struct {
	headers    []Header
	freeList   []int32
	// components is indexed directly by component type id (0..MaxComponents),
	// not by a hashed/dictionary type registry, matching the "direct
	// per-type-id lookup array" discipline required of command-buffer
	// playback elsewhere in this module.
	components [ids.MaxComponents]map[int32]interface{}
	frame      uint32
}

func New() *World {
	return &World{}
}

// Frame returns the frame index last recorded via SetFrame. The kernel
// calls SetFrame once per Update before running any module.
func (w *World) Frame() uint32 { return w.frame }

func (w *World) SetFrame(f uint32) { w.frame = f }

// CreateEntity allocates a new entity, recycling a free index when
// available. The returned entity starts in Uninitialised state with an
// empty mask.
func (w *World) CreateEntity() ids.Entity {
	if n := len(w.freeList); n > 0 {
		idx := w.freeList[n-1]
		w.freeList = w.freeList[:n-1]
		h := &w.headers[idx]
		h.Mask = ids.Mask{}
		h.State = Uninitialised
		h.Version++
		return ids.Entity{Index: idx, Generation: h.Generation}
	}
	idx := int32(len(w.headers))
	w.headers = append(w.headers, Header{State: Uninitialised, Generation: 1})
	return ids.Entity{Index: idx, Generation: 1}
}

// resolve returns a pointer to the live header for e, or an
// ErrStaleEntityHandle if e's generation no longer matches.
func (w *World) resolve(e ids.Entity) (*Header, error) {
	if e.Index < 0 || int(e.Index) >= len(w.headers) {
		return nil, &ErrStaleEntityHandle{Entity: e}
	}
	h := &w.headers[e.Index]
	if h.Generation != e.Generation || h.State == Destroyed {
		return nil, &ErrStaleEntityHandle{Entity: e}
	}
	return h, nil
}

// IsAlive reports whether e resolves to a live (non-destroyed, matching
// generation) header. It never errors.
func (w *World) IsAlive(e ids.Entity) bool {
	_, err := w.resolve(e)
	return err == nil
}

// SetState transitions e's lifecycle state. Callers are responsible for
// only issuing legal lattice transitions; World does not itself validate
// the lattice (that is the spawner's and lifecycle manager's job) beyond
// refusing to operate on a stale handle.
func (w *World) SetState(e ids.Entity, s LifecycleState) error {
	h, err := w.resolve(e)
	if err != nil {
		return err
	}
	h.State = s
	h.Version++
	return nil
}

func (w *World) State(e ids.Entity) (LifecycleState, error) {
	h, err := w.resolve(e)
	if err != nil {
		return Uninitialised, err
	}
	return h.State, nil
}

func (w *World) Mask(e ids.Entity) (ids.Mask, error) {
	h, err := w.resolve(e)
	if err != nil {
		return ids.Mask{}, err
	}
	return h.Mask, nil
}

// SetComponent adds or overwrites the component of the given type id on
// e, setting the corresponding mask bit.
func (w *World) SetComponent(e ids.Entity, typeID int, value interface{}) error {
	h, err := w.resolve(e)
	if err != nil {
		return err
	}
	bucket := w.components[typeID]
	if bucket == nil {
		bucket = make(map[int32]interface{})
		w.components[typeID] = bucket
	}
	bucket[e.Index] = value
	h.Mask = h.Mask.Set(typeID)
	h.Version++
	return nil
}

// RemoveComponent clears the mask bit and drops the stored value, if any.
func (w *World) RemoveComponent(e ids.Entity, typeID int) error {
	h, err := w.resolve(e)
	if err != nil {
		return err
	}
	if bucket := w.components[typeID]; bucket != nil {
		delete(bucket, e.Index)
	}
	h.Mask = h.Mask.Clear(typeID)
	h.Version++
	return nil
}

func (w *World) HasComponent(e ids.Entity, typeID int) bool {
	h, err := w.resolve(e)
	if err != nil {
		return false
	}
	return h.Mask.Has(typeID)
}

// GetComponent returns the stored value for typeID on e, and whether it
// was present.
func (w *World) GetComponent(e ids.Entity, typeID int) (interface{}, bool) {
	if _, err := w.resolve(e); err != nil {
		return nil, false
	}
	bucket := w.components[typeID]
	if bucket == nil {
		return nil, false
	}
	v, ok := bucket[e.Index]
	return v, ok
}

// DestroyEntity marks e Destroyed, drops all its component values, and
// recycles its index for reuse by a future CreateEntity (bumping
// generation so stale handles are detectable).
func (w *World) DestroyEntity(e ids.Entity) error {
	h, err := w.resolve(e)
	if err != nil {
		return err
	}
	for _, bucket := range w.components {
		if bucket != nil {
			delete(bucket, e.Index)
		}
	}
	h.State = Destroyed
	h.Mask = ids.Mask{}
	h.Generation++
	h.Version++
	w.freeList = append(w.freeList, e.Index)
	return nil
}

// EntityCount returns the number of live (non-destroyed) entities. It is
// O(n) and intended for diagnostics/tests, not the hot path.
func (w *World) EntityCount() int {
	n := 0
	for i := range w.headers {
		if w.headers[i].State != Destroyed {
			n++
		}
	}
	return n
}

// Each calls fn for every live entity whose mask contains required.
// Ghosts are skipped unless includeGhosts is true, matching the spec's
// "Ghost excluded from normal queries; visible only via an explicit
// include-all query" rule.
func (w *World) Each(required ids.Mask, includeGhosts bool, fn func(ids.Entity, Header)) {
	for i := range w.headers {
		h := w.headers[i]
		if h.State == Destroyed {
			continue
		}
		if h.State == Ghost && !includeGhosts {
			continue
		}
		if !h.Mask.ContainsAll(required) {
			continue
		}
		fn(ids.Entity{Index: int32(i), Generation: h.Generation}, h)
	}
}
