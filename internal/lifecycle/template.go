package lifecycle

import (
	"fmt"
	"sync"

	"github.com/pjanec/simhost/internal/ids"
	"github.com/pjanec/simhost/internal/world"
)

// ApplyFunc stamps a template's component values onto e. When
// preserveExisting is true (the entity was a Ghost), fields the Ghost
// already carries must survive; only fields absent from the Ghost are
// added. When false, the template overwrites unconditionally.
type ApplyFunc func(w *world.World, e ids.Entity, preserveExisting bool) error

// InstanceCounterFunc returns how many instances of descriptorType exist
// on an entity spawned from a given dis_type. Left pluggable per the
// spec's open question: the long-term home for this is a template
// database field, not a hardcoded heuristic.
type InstanceCounterFunc func(disType uint32, descriptorType uint32) int

// TemplateEntry describes one dis_type's spawn recipe: how to apply its
// components, which descriptor types it exposes for per-instance
// ownership assignment, and how many instances each descriptor type has.
type TemplateEntry struct {
	DisType         uint32
	Descriptors     []uint32
	InstanceCounter InstanceCounterFunc
	Apply           ApplyFunc
}

// TemplateDatabase resolves a dis_type to its spawn recipe. Real
// deployments back this with an asset database (explicitly out of
// scope); this is the narrow interface the spawner needs from it.
type TemplateDatabase struct {
	mu      sync.RWMutex
	entries map[uint32]TemplateEntry
}

func NewTemplateDatabase() *TemplateDatabase {
	return &TemplateDatabase{entries: make(map[uint32]TemplateEntry)}
}

func (db *TemplateDatabase) Register(e TemplateEntry) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if e.InstanceCounter == nil {
		e.InstanceCounter = func(uint32, uint32) int { return 1 }
	}
	db.entries[e.DisType] = e
}

func (db *TemplateDatabase) Lookup(disType uint32) (TemplateEntry, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	e, ok := db.entries[disType]
	return e, ok
}

// ErrMissingTemplate is returned (and logged, per §4.6.4 step 1) when a
// spawn request names a dis_type with no registered recipe.
type ErrMissingTemplate struct {
	DisType uint32
}

func (e *ErrMissingTemplate) Error() string {
	return fmt.Sprintf("lifecycle: no template registered for dis_type %d", e.DisType)
}

// OwnershipStrategy decides the initial owner of one descriptor instance
// at spawn time. Returning ok=false leaves the packed key absent from
// DescriptorOwnership, so resolution falls back to the entity's primary
// owner — the spec's documented fallback behaviour.
type OwnershipStrategy interface {
	InitialOwner(disType, descriptorType, instanceID uint32, primaryOwner NodeID) (owner NodeID, ok bool)
}

// PrimaryOwnerStrategy never grants a per-descriptor override: every
// descriptor instance falls back to the entity's primary owner. This is
// the default, and a safe choice for templates with only one
// descriptor-bearing authority.
type PrimaryOwnerStrategy struct{}

func (PrimaryOwnerStrategy) InitialOwner(uint32, uint32, uint32, NodeID) (NodeID, bool) {
	return "", false
}

// StaticOwnershipStrategy assigns fixed owners looked up by
// (disType, descriptorType, instanceID), falling through to the primary
// owner for anything not explicitly listed. Good enough for tests and
// for deployments where descriptor ownership is configured up front
// rather than negotiated at runtime.
type StaticOwnershipStrategy struct {
	assignments map[[3]uint32]NodeID
}

func NewStaticOwnershipStrategy() *StaticOwnershipStrategy {
	return &StaticOwnershipStrategy{assignments: make(map[[3]uint32]NodeID)}
}

func (s *StaticOwnershipStrategy) Assign(disType, descriptorType, instanceID uint32, owner NodeID) {
	s.assignments[[3]uint32{disType, descriptorType, instanceID}] = owner
}

func (s *StaticOwnershipStrategy) InitialOwner(disType, descriptorType, instanceID uint32, _ NodeID) (NodeID, bool) {
	owner, ok := s.assignments[[3]uint32{disType, descriptorType, instanceID}]
	return owner, ok
}
