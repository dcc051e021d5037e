package snapshot

import (
	"github.com/pjanec/simhost/internal/ids"
	"github.com/pjanec/simhost/internal/world"
)

// SyncState is owned by one destination replica and tracks, per source
// entity index: the last-seen source header version (dirty-chunk
// acceleration) and the corresponding destination entity. Real chunked
// ECS engines version whole chunks; this reference world has no chunk
// concept, so tracking happens at entity granularity, using the same
// cache-line-padded counter type so the technique carries over unchanged
// if the backing store is later swapped for a true chunked engine.
type SyncState struct {
	seen    []ids.PaddedCounter
	mapped  map[int32]ids.Entity
}

func NewSyncState() *SyncState {
	return &SyncState{mapped: make(map[int32]ids.Entity)}
}

func (t *SyncState) ensure(n int) {
	for len(t.seen) < n {
		t.seen = append(t.seen, ids.PaddedCounter{})
	}
}

func (t *SyncState) lastSeen(index int32) uint64 {
	if int(index) >= len(t.seen) {
		return 0
	}
	return t.seen[index].Load()
}

func (t *SyncState) mark(index int32, version uint64) {
	t.ensure(int(index) + 1)
	t.seen[index].Store(version)
}

// destEntity returns the destination entity mirroring srcIndex, creating
// one in dst on first sight.
func (t *SyncState) destEntity(dst *world.World, srcIndex int32) ids.Entity {
	if e, ok := t.mapped[srcIndex]; ok && dst.IsAlive(e) {
		return e
	}
	e := dst.CreateEntity()
	t.mapped[srcIndex] = e
	return e
}

// TransientSet names component type ids considered "network-visible
// transient" (NetworkSpawnRequest, PendingNetworkAck, ForceNetworkPublish,
// ...): excluded from snapshots by default, included when a caller opts
// in (debug/diagnostic modules).
type TransientSet map[int]struct{}

func NewTransientSet(typeIDs ...int) TransientSet {
	s := make(TransientSet, len(typeIDs))
	for _, id := range typeIDs {
		s[id] = struct{}{}
	}
	return s
}

func (s TransientSet) has(typeID int) bool {
	_, ok := s[typeID]
	return ok
}

// syncOptions configures one Sync call.
type syncOptions struct {
	mask             ids.Mask // used only when filterByMask is true ("all columns" otherwise)
	filterByMask     bool
	transient        TransientSet
	includeTransient bool
	state            *SyncState // nil disables dirty-chunk skip (always resync, and no stable entity mapping)
}

// Sync copies entities from src into dst according to opts, auto-
// registering any component type present on src but never before seen on
// dst (the "schema synchronisation" contract — no pre-registration
// required, since dst.SetComponent creates the column on first write).
// Entities whose source version has not advanced since the last sync
// (per opts.state) are skipped entirely, approximating the spec's >=70%
// steady-state skip-rate target.
func Sync(src, dst *world.World, opts syncOptions) {
	src.Each(ids.Mask{}, true, func(e ids.Entity, h world.Header) {
		if opts.state != nil && opts.state.lastSeen(e.Index) == h.Version {
			return // unchanged since last sync: skip (dirty-chunk acceleration)
		}

		var dstEntity ids.Entity
		if opts.state != nil {
			dstEntity = opts.state.destEntity(dst, e.Index)
		} else {
			dstEntity = dst.CreateEntity()
		}

		for typeID := 0; typeID < ids.MaxComponents; typeID++ {
			if !h.Mask.Has(typeID) {
				continue
			}
			if opts.filterByMask && !opts.mask.Has(typeID) {
				continue
			}
			if opts.transient.has(typeID) && !opts.includeTransient {
				continue
			}
			v, ok := src.GetComponent(e, typeID)
			if !ok {
				continue
			}
			_ = dst.SetComponent(dstEntity, typeID, v)
		}

		if state, err := src.State(e); err == nil {
			_ = dst.SetState(dstEntity, state)
		}

		if opts.state != nil {
			opts.state.mark(e.Index, h.Version)
		}
	})
}
