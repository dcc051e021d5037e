package lifecycle

import (
	"github.com/rs/zerolog"

	"github.com/pjanec/simhost/internal/ids"
	"github.com/pjanec/simhost/internal/world"
)

// Manager is the distributed lifecycle manager referenced throughout
// §4.6: the spawner hands it freshly-templated entities via
// BeginConstruction, and it is responsible for driving them from
// Constructing to Active, deferring to the reliable-init gateway for
// entities that requested a peer-ack barrier.
type Manager struct {
	log          zerolog.Logger
	gateway      *ReliableInitGateway
	statusWriter DataWriter
	localNode    NodeID
}

// NewManager wires m to gateway, setting gateway's ack-cleared callback
// to m.activate. The two types are constructed in this order (gateway
// first) so neither package-level type needs to import the other by
// interface just to close the loop.
func NewManager(log zerolog.Logger, gateway *ReliableInitGateway, statusWriter DataWriter, localNode NodeID) *Manager {
	m := &Manager{
		log:          log.With().Str("component", "lifecycle_manager").Logger(),
		gateway:      gateway,
		statusWriter: statusWriter,
		localNode:    localNode,
	}
	gateway.onAckCleared = m.activate
	return m
}

// BeginConstruction publishes a ConstructionOrder and hands e to the
// gateway for resolution on its next Tick. This always defers by at
// least one frame, even for an entity with no PendingNetworkAck: the
// gateway's next Tick sees no PendingNetworkAck component and acks it
// immediately (fast mode), but that ack still lands a frame after the
// order was issued, the same lag every other consumer of a
// just-published event sees.
func (m *Manager) BeginConstruction(w *world.World, bus *world.Bus, e ids.Entity, networkID uint64, disType uint32, frame uint32) {
	bus.PublishManaged(EventConstructionOrder, ConstructionOrder{
		Entity:    e,
		NetworkID: networkID,
		DisType:   disType,
		Frame:     frame,
	})
	m.gateway.enqueue(e, networkID, disType)
}

// activate promotes e to Active, clears PendingNetworkAck if present,
// and broadcasts this node's own EntityLifecycleStatus as the local ack
// other peers' gateways are waiting on.
func (m *Manager) activate(w *world.World, e ids.Entity, networkID uint64) {
	if !w.IsAlive(e) {
		return
	}
	_ = w.SetState(e, world.Active)
	_ = w.RemoveComponent(e, ComponentPendingNetworkAck)

	if m.statusWriter != nil {
		_ = m.statusWriter.Write(DataSample{
			NetworkID: networkID,
			Data: EntityLifecycleStatus{
				NetworkID: networkID,
				Node:      m.localNode,
				State:     RemoteActive,
			},
		})
	}
}

// Destroy publishes a DestructionOrder, tells the gateway to drop any
// pending ack state for e (subsequent acks for it are then dropped as a
// no-op), and destroys the entity.
func (m *Manager) Destroy(w *world.World, bus *world.Bus, e ids.Entity, networkID uint64) {
	bus.PublishManaged(EventDestructionOrder, DestructionOrder{Entity: e, NetworkID: networkID})
	m.gateway.discard(e)
	_ = w.DestroyEntity(e)
}
