package lifecycle

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/pjanec/simhost/internal/ids"
)

// IDStore is the durability hook a Registry persists through. It is
// satisfied by internal/storage/badger.Store; Registry itself never
// imports a concrete storage engine, only this narrow interface, so the
// core lifecycle package stays storage-agnostic and testable without a
// database.
type IDStore interface {
	PutMapping(networkID uint64, e ids.Entity) error
	DeleteMapping(networkID uint64) error
}

// Registry maps network entity ids to local entity handles. It is shared
// by every ingress translator, so lookups and binds are mutex-guarded
// even though, in the current kernel, at most one translator instance
// runs per network_id namespace at a time.
//
// A real deployment persists this mapping through store (a badger-backed
// storage.Store), so a restarted node does not orphan ids it already owns
// a local entity for; Registry's own in-memory map stays the frame
// pipeline's source of truth, the store is an async-looking best-effort
// mirror, a failed write never blocks the frame.
type Registry struct {
	mu    sync.RWMutex
	byID  map[uint64]ids.Entity
	store IDStore
	log   zerolog.Logger
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[uint64]ids.Entity)}
}

// WithStore attaches a durable backing store. Every subsequent Bind/
// Unbind also persists through store; Bind/Unbind calls already made
// before WithStore are not retroactively persisted.
func (r *Registry) WithStore(store IDStore, log zerolog.Logger) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store = store
	r.log = log.With().Str("component", "id_registry").Logger()
	return r
}

// Lookup returns the local entity bound to networkID, if any.
func (r *Registry) Lookup(networkID uint64) (ids.Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[networkID]
	return e, ok
}

// Bind records the mapping. Translators call this during ingress, right
// after creating the entity directly on the live world, so the entity
// always exists by the time it is bound.
func (r *Registry) Bind(networkID uint64, e ids.Entity) {
	r.mu.Lock()
	store := r.store
	r.byID[networkID] = e
	r.mu.Unlock()

	if store != nil {
		if err := store.PutMapping(networkID, e); err != nil {
			r.log.Error().Err(err).Uint64("network_id", networkID).Msg("failed to persist id mapping")
		}
	}
}

// Unbind erases the mapping, e.g. when EntityMaster reports the instance
// Disposed.
func (r *Registry) Unbind(networkID uint64) {
	r.mu.Lock()
	store := r.store
	delete(r.byID, networkID)
	r.mu.Unlock()

	if store != nil {
		if err := store.DeleteMapping(networkID); err != nil {
			r.log.Error().Err(err).Uint64("network_id", networkID).Msg("failed to delete persisted id mapping")
		}
	}
}
