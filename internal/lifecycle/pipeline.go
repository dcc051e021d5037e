package lifecycle

import (
	"github.com/rs/zerolog"

	"github.com/pjanec/simhost/internal/kernel"
	"github.com/pjanec/simhost/internal/timectrl"
	"github.com/pjanec/simhost/internal/trace"
	"github.com/pjanec/simhost/internal/world"
)

// Pipeline bundles one node's full distributed-entity-lifecycle wiring:
// the three ingress translators, the spawner, the reliable-init gateway,
// and the egress scan. It is the thing a host registers with the kernel
// via Kernel.OnIngress / Kernel.OnEgress; Pipeline itself never touches
// a goroutine pool, since every piece of §4.6 runs on the world's
// single-writer main thread.
type Pipeline struct {
	Registry *Registry
	Manager  *Manager
	Gateway  *ReliableInitGateway
	Reaper   *GhostReaper

	state     *StateTranslator
	master    *MasterTranslator
	ownership *OwnershipTranslator
	spawner   *Spawner
	egress    *Egress
}

// NewPipeline wires a complete node-local lifecycle stack. Readers may
// be nil for a translator the host does not use (e.g. a node that never
// receives OwnershipUpdate); writers may be nil the same way.
func NewPipeline(
	log zerolog.Logger,
	localNode NodeID,
	topology Topology,
	reliableInitTimeoutFrames uint32,
	templates *TemplateDatabase,
	strategy OwnershipStrategy,
	stateReader, masterReader, ownershipReader, statusReader DataReader,
	statusWriter, masterWriter, stateWriter, weaponWriter DataWriter,
) *Pipeline {
	return NewPipelineWithGhostTimeout(log, localNode, topology, reliableInitTimeoutFrames, 0, templates, strategy,
		stateReader, masterReader, ownershipReader, statusReader,
		statusWriter, masterWriter, stateWriter, weaponWriter)
}

// NewPipelineWithGhostTimeout is NewPipeline plus an explicit
// ghostTimeoutFrames (0 selects DefaultGhostTimeoutFrames), for hosts
// that need to tune how long an unclaimed Ghost survives.
func NewPipelineWithGhostTimeout(
	log zerolog.Logger,
	localNode NodeID,
	topology Topology,
	reliableInitTimeoutFrames uint32,
	ghostTimeoutFrames uint32,
	templates *TemplateDatabase,
	strategy OwnershipStrategy,
	stateReader, masterReader, ownershipReader, statusReader DataReader,
	statusWriter, masterWriter, stateWriter, weaponWriter DataWriter,
) *Pipeline {
	registry := NewRegistry()
	gateway := NewReliableInitGateway(log, topology, localNode, statusReader, reliableInitTimeoutFrames)
	manager := NewManager(log, gateway, statusWriter, localNode)

	return &Pipeline{
		Registry:  registry,
		Manager:   manager,
		Gateway:   gateway,
		Reaper:    NewGhostReaper(log, ghostTimeoutFrames),
		state:     NewStateTranslator(log, stateReader, registry),
		master:    NewMasterTranslator(log, masterReader, registry, manager, localNode),
		ownership: NewOwnershipTranslator(log, ownershipReader, registry, localNode),
		spawner:   NewSpawner(log, templates, strategy, manager),
		egress:    NewEgress(log, localNode, masterWriter, stateWriter, weaponWriter),
	}
}

// Ingress runs the gateway's Tick first, resolving whatever
// ConstructionOrders last frame's spawner pass queued (acks, pending
// registration, timeouts), then the state, master, ownership
// translators (so a spawn request or an ownership grant arriving in the
// same batch as other samples is visible to the spawner this same
// frame), then the spawner. An order the spawner queues this frame is
// deliberately left for the next Tick: an entity always spends at least
// one full frame in Constructing, fast-ack or not.
func (p *Pipeline) Ingress(w *world.World, bus *world.Bus, frame uint32) {
	p.Gateway.Tick(w, p.Registry, frame)
	p.state.Ingress(w, frame)
	p.master.Ingress(w, bus, frame)
	p.ownership.Ingress(w, bus)
	p.spawner.Ingress(w, bus, frame)
	p.Reaper.Tick(w, p.Registry, frame)
}

// SetTracer wires t into the gateway's spawn/ack-barrier spans. Must be
// called before the first Ingress; the zero value is a no-op tracer.
func (p *Pipeline) SetTracer(t trace.Tracer) {
	p.Gateway.SetTracer(t)
}

// Egress runs the network egress scan.
func (p *Pipeline) Egress(w *world.World, frame uint32) {
	p.egress.ScanAndPublish(w, frame)
}

// Wire registers p's Ingress and Egress against k, the normal way a host
// binds the distributed entity-lifecycle protocol to the frame kernel.
func (p *Pipeline) Wire(k *kernel.Kernel) {
	k.OnIngress(func(live *world.World, bus *world.Bus, frame uint32) {
		p.Ingress(live, bus, frame)
	})
	k.OnEgress(func(gt timectrl.GlobalTime) {
		p.Egress(k.LiveWorld(), gt.Frame)
	})
}
