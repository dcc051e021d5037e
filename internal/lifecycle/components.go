package lifecycle

// Component type ids used by the lifecycle package. They are offset well
// clear of the low ids a host application is expected to use for its own
// simulation components, the same way the kernel's test fixtures reserve
// a handful of ids starting at 1.
const (
	ComponentNetworkIdentity     = 200
	ComponentNetworkTarget       = 201
	ComponentNetworkSpawnRequest = 202
	ComponentNetworkOwnership    = 203
	ComponentDescriptorOwnership = 204
	ComponentPendingNetworkAck   = 205
	ComponentForceNetworkPublish = 206
)

// NetworkIdentity pins a local entity to the network id it was created
// from. Attached once, at first sight, and never overwritten.
type NetworkIdentity struct {
	NetworkID uint64
}

// GhostSpawn records the frame a Ghost was materialised on, so the
// ghost reaper (§4.9/Open Questions) can measure how long an entity has
// sat unclaimed. Attached only to entities created as a Ghost; removed
// once the spawner promotes the entity past Ghost.
type GhostSpawn struct {
	Frame uint32
}

const ComponentGhostSpawn = 208

// NetworkTarget is where a replicated entity is headed, as reported by
// the last EntityState sample. Local systems read this and smooth
// Position toward it on their own schedule; the translator never writes
// Position directly.
type NetworkTarget struct {
	Location  [3]float32
	Velocity  [3]float32
	Timestamp float64
}

// NetworkSpawnRequest is the hand-off from the master translator to the
// spawner system: "this entity needs a template applied and a lifecycle
// kicked off".
type NetworkSpawnRequest struct {
	NetworkID      uint64
	DisType        uint32
	PrimaryOwnerID NodeID
	Flags          MasterFlags
}

// NetworkOwnership records which node is this entity's primary (the
// EntityMaster owner) versus which node is local.
type NetworkOwnership struct {
	LocalNodeID    NodeID
	PrimaryOwnerID NodeID
}

// DescriptorOwnership is the per-descriptor-instance ownership ledger for
// one entity. Map is never mutated in place by a translator: every
// change is read-copy-write (withOwner builds a new map, which is then
// set on the live world during ingress), so the value
// reachable from a concurrently running View is always a complete,
// immutable snapshot.
type DescriptorOwnership struct {
	Map map[uint64]NodeID
}

// Owner looks up the current owner of (descriptorType, instanceID),
// returning ok=false if no grant has ever been recorded (the primary
// owner fallback applies in that case).
func (d DescriptorOwnership) Owner(descriptorType, instanceID uint32) (NodeID, bool) {
	if d.Map == nil {
		return "", false
	}
	n, ok := d.Map[PackDescriptorKey(descriptorType, instanceID)]
	return n, ok
}

// withOwner returns a copy of d with (descriptorType, instanceID) set to
// owner — a new map, never a mutation of d.Map.
func (d DescriptorOwnership) withOwner(descriptorType, instanceID uint32, owner NodeID) DescriptorOwnership {
	out := make(map[uint64]NodeID, len(d.Map)+1)
	for k, v := range d.Map {
		out[k] = v
	}
	out[PackDescriptorKey(descriptorType, instanceID)] = owner
	return DescriptorOwnership{Map: out}
}

// PendingNetworkAck is attached by the spawner when an entity's
// EntityMaster requested reliable_init. Its presence is what the
// reliable-init gateway watches for.
type PendingNetworkAck struct {
	StartFrame   uint32
	PendingPeers map[NodeID]struct{}
}

// ForceNetworkPublish is a one-shot marker: the next egress pass
// republishes the descriptor instances named in Targets even though
// OwnsDescriptor would otherwise skip them — a transfer's new owner gets
// one guaranteed sample out before normal per-instance ownership gating
// resumes. A nil Targets forces the whole entity (EntityMaster and
// EntityState). The egress system removes the marker itself once it has
// been applied.
type ForceNetworkPublish struct {
	Targets map[uint64]struct{}
}

// ForcesEntity reports whether this marker forces the whole-entity
// publishes (EntityMaster/EntityState) rather than only specific
// descriptor instances.
func (f ForceNetworkPublish) ForcesEntity() bool {
	return f.Targets == nil
}

// ForcesDescriptor reports whether this marker forces republishing
// (descriptorType, instanceID) specifically.
func (f ForceNetworkPublish) ForcesDescriptor(descriptorType, instanceID uint32) bool {
	if f.Targets == nil {
		return true
	}
	_, ok := f.Targets[PackDescriptorKey(descriptorType, instanceID)]
	return ok
}

// withTarget returns a copy of f with (descriptorType, instanceID) added
// to Targets — a new map, never a mutation of f.Targets. Adding a target
// to an entity-wide force (Targets == nil) leaves it entity-wide, since a
// whole-entity force already implies every descriptor instance.
func (f ForceNetworkPublish) withTarget(descriptorType, instanceID uint32) ForceNetworkPublish {
	if f.Targets == nil {
		return f
	}
	out := make(map[uint64]struct{}, len(f.Targets)+1)
	for k := range f.Targets {
		out[k] = struct{}{}
	}
	out[PackDescriptorKey(descriptorType, instanceID)] = struct{}{}
	return ForceNetworkPublish{Targets: out}
}

// Position and Velocity stand in for the application-defined spatial
// components the spec describes Ghosts as carrying. The real component
// types belong to the host simulation (out of scope per the original
// spec's §1); this module keeps a minimal pair so the translator and
// spawner preserve-existing logic has something concrete to operate on
// in its own tests.
const (
	ComponentPosition = 210
	ComponentVelocity = 211
)

type Position struct {
	X, Y, Z float32
}

type Velocity struct {
	X, Y, Z float32
}

// DescriptorTypeWeapon is the example multi-instance descriptor type id
// used by WeaponStates, matching the spec's "WeaponState (example
// multi-instance)" wire descriptor.
const DescriptorTypeWeapon = 1

const ComponentWeaponStates = 207

// WeaponState is one turret's replicated state, addressed within
// WeaponStates by instance id.
type WeaponState struct {
	Status    int32
	Azimuth   float32
	Elevation float32
	Ammo      int32
}

// WeaponStates is the example multi-instance managed component: several
// weapon instances on one entity, each independently ownable through
// DescriptorOwnership keyed by (DescriptorTypeWeapon, instance).
type WeaponStates struct {
	Weapons map[uint32]WeaponState
}

func (w WeaponStates) withInstance(instanceID uint32, state WeaponState) WeaponStates {
	out := make(map[uint32]WeaponState, len(w.Weapons)+1)
	for k, v := range w.Weapons {
		out[k] = v
	}
	out[instanceID] = state
	return WeaponStates{Weapons: out}
}

// ResolveOwner resolves the owner of (descriptorType, instanceID): the
// per-descriptor override if one has ever been accepted, else the
// entity's primary owner.
func ResolveOwner(d DescriptorOwnership, primaryOwner NodeID, descriptorType, instanceID uint32) NodeID {
	if owner, ok := d.Owner(descriptorType, instanceID); ok {
		return owner
	}
	return primaryOwner
}

// OwnsDescriptor reports whether own.LocalNodeID resolves as the owner
// of (descriptorType, instanceID) under d, falling back to own's primary
// owner when no override has been recorded.
func OwnsDescriptor(d DescriptorOwnership, own NetworkOwnership, descriptorType, instanceID uint32) bool {
	return ResolveOwner(d, own.PrimaryOwnerID, descriptorType, instanceID) == own.LocalNodeID
}
