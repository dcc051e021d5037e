package lifecycle

import "github.com/pjanec/simhost/internal/ids"

// Event type ids published by this package onto the live bus. Host
// modules consume them the same way they consume any other managed
// event, through View.ConsumeManagedEvents.
const (
	EventConstructionOrder          = 300
	EventDestructionOrder           = 301
	EventDescriptorAuthorityChanged = 302
)

// ConstructionOrder is published when the spawner hands a freshly
// templated entity to the lifecycle manager. The reliable-init gateway
// watches for these to decide whether e may progress straight to Active
// or must wait on peer acks.
type ConstructionOrder struct {
	Entity    ids.Entity
	NetworkID uint64
	DisType   uint32
	Frame     uint32
}

// DestructionOrder is published when the lifecycle manager tears an
// entity down while it may still have pending ack-barrier state; the
// gateway discards that state on receipt so a stale timeout never fires
// against an entity that no longer exists.
type DestructionOrder struct {
	Entity    ids.Entity
	NetworkID uint64
}

// DescriptorAuthorityChanged is published by the ownership-update
// translator whenever an OwnershipUpdate crosses the local-node boundary
// in either direction (gained or lost local authority over one
// descriptor instance).
type DescriptorAuthorityChanged struct {
	Entity         ids.Entity
	DescriptorType uint32
	InstanceID     uint32
	IsNowOwner     bool
	NewOwnerID     NodeID
}
