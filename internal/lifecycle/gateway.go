package lifecycle

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/pjanec/simhost/internal/errs"
	"github.com/pjanec/simhost/internal/ids"
	"github.com/pjanec/simhost/internal/trace"
	"github.com/pjanec/simhost/internal/world"
)

// DefaultReliableInitTimeoutFrames is the spec's documented default for
// how long the gateway waits for peer acks before degrading reliability
// to liveness and force-acking.
const DefaultReliableInitTimeoutFrames = 300

type pendingAck struct {
	networkID  uint64
	startFrame uint32
	peers      map[NodeID]struct{}
}

type constructionOrder struct {
	entity    ids.Entity
	networkID uint64
	disType   uint32
}

// ReliableInitGateway implements the peer-ack barrier (§4.6.6): an
// entity whose EntityMaster requested reliable_init may not progress
// past Constructing until every expected peer has announced Active, or
// until reliableInitTimeoutFrames have elapsed, whichever comes first.
// Each pending entity's state is independent; one entity's timeout never
// affects another's.
//
// ConstructionOrders the lifecycle manager hands in during a frame's
// spawner pass are queued and only resolved at the *start* of the next
// Tick — mirroring the one-frame lag every other consumer of a
// just-published event sees (the event accumulator never makes a
// frame's own events visible to that same frame's producer). An entity
// therefore always spends at least one full frame in Constructing,
// fast-ack or not, before the gateway can clear it to Active.
type ReliableInitGateway struct {
	log           zerolog.Logger
	topology      Topology
	localNode     NodeID
	statusReader  DataReader
	timeoutFrames uint32
	tracer        trace.Tracer

	onAckCleared func(w *world.World, e ids.Entity, networkID uint64)

	mu        sync.Mutex
	newOrders []constructionOrder
	pending   map[ids.Entity]*pendingAck
}

func NewReliableInitGateway(log zerolog.Logger, topology Topology, localNode NodeID, statusReader DataReader, timeoutFrames uint32) *ReliableInitGateway {
	if timeoutFrames == 0 {
		timeoutFrames = DefaultReliableInitTimeoutFrames
	}
	return &ReliableInitGateway{
		log:           log.With().Str("component", "reliable_init_gateway").Logger(),
		topology:      topology,
		localNode:     localNode,
		statusReader:  statusReader,
		timeoutFrames: timeoutFrames,
		tracer:        trace.NewOpenTracingTracer(nil),
		pending:       make(map[ids.Entity]*pendingAck),
	}
}

// SetTracer replaces the gateway's tracer. Must be called before Tick is
// first invoked; the zero value is a no-op tracer.
func (g *ReliableInitGateway) SetTracer(t trace.Tracer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tracer = t
}

// enqueue records a ConstructionOrder the manager just issued, for
// resolution on a later Tick.
func (g *ReliableInitGateway) enqueue(e ids.Entity, networkID uint64, disType uint32) {
	g.mu.Lock()
	g.newOrders = append(g.newOrders, constructionOrder{entity: e, networkID: networkID, disType: disType})
	g.mu.Unlock()
}

func (g *ReliableInitGateway) ack(w *world.World, e ids.Entity, networkID uint64) {
	g.mu.Lock()
	delete(g.pending, e)
	g.mu.Unlock()
	g.tracer.FinishSpan(e, trace.SpanGhostLifetime)
	g.onAckCleared(w, e, networkID)
}

// discard drops e's pending state without acking it, used when e is
// destroyed while still waiting on peers. Subsequent acks or timeouts
// for it are then no-ops.
func (g *ReliableInitGateway) discard(e ids.Entity) {
	g.mu.Lock()
	delete(g.pending, e)
	g.mu.Unlock()
	g.tracer.FinishSpan(e, trace.SpanGhostLifetime)
}

// Tick resolves orders queued by an earlier frame's spawner pass, drains
// inbound EntityLifecycleStatus acks, and force-acks any entity whose
// wait has exceeded the configured timeout. It must run once per frame
// on the world's single-writer thread, before this frame's translators
// and spawner run.
func (g *ReliableInitGateway) Tick(w *world.World, registry *Registry, frame uint32) {
	g.mu.Lock()
	orders := g.newOrders
	g.newOrders = nil
	g.mu.Unlock()

	for _, o := range orders {
		g.resolveOrder(w, o, frame)
	}

	if g.statusReader != nil {
		for _, sample := range g.statusReader.TakeSamples() {
			msg, ok := sample.Data.(EntityLifecycleStatus)
			if !ok || msg.State != RemoteActive {
				continue
			}
			g.onPeerActive(w, registry, msg)
		}
	}

	g.mu.Lock()
	var timedOut []ids.Entity
	for e, p := range g.pending {
		if frame-p.startFrame >= g.timeoutFrames {
			timedOut = append(timedOut, e)
		}
	}
	g.mu.Unlock()

	for _, e := range timedOut {
		g.mu.Lock()
		p, ok := g.pending[e]
		g.mu.Unlock()
		if !ok {
			continue
		}
		g.log.Warn().Err(errs.ErrReliableInitTimeout).Str("entity", e.String()).Msg("reliable-init timeout: force-acking, reliability degraded to liveness")
		g.ack(w, e, p.networkID)
	}
}

func (g *ReliableInitGateway) resolveOrder(w *world.World, o constructionOrder, frame uint32) {
	if !w.IsAlive(o.entity) {
		return
	}
	if !w.HasComponent(o.entity, ComponentPendingNetworkAck) {
		g.ack(w, o.entity, o.networkID)
		return
	}

	peers := g.topology.ExpectedPeers(o.disType)
	set := make(map[NodeID]struct{}, len(peers))
	for _, p := range peers {
		if p == g.localNode {
			continue
		}
		set[p] = struct{}{}
	}
	if len(set) == 0 {
		g.ack(w, o.entity, o.networkID)
		return
	}

	g.mu.Lock()
	g.pending[o.entity] = &pendingAck{networkID: o.networkID, startFrame: frame, peers: set}
	g.mu.Unlock()

	g.tracer.StartSpan(o.entity, trace.SpanGhostLifetime)
	g.syncComponent(w, o.entity, frame, set)
}

// syncComponent mirrors the gateway's in-memory pending set onto the
// entity's PendingNetworkAck component, so a badger-backed persistence
// layer or the diagnostics CLI can observe which peers are still
// outstanding without reaching into gateway internals.
func (g *ReliableInitGateway) syncComponent(w *world.World, e ids.Entity, startFrame uint32, peers map[NodeID]struct{}) {
	out := make(map[NodeID]struct{}, len(peers))
	for p := range peers {
		out[p] = struct{}{}
	}
	_ = w.SetComponent(e, ComponentPendingNetworkAck, PendingNetworkAck{StartFrame: startFrame, PendingPeers: out})
}

func (g *ReliableInitGateway) onPeerActive(w *world.World, registry *Registry, msg EntityLifecycleStatus) {
	e, ok := registry.Lookup(msg.NetworkID)
	if !ok {
		return
	}

	g.mu.Lock()
	p, pending := g.pending[e]
	if !pending {
		g.mu.Unlock()
		return
	}
	delete(p.peers, msg.Node)
	cleared := len(p.peers) == 0
	remaining := make(map[NodeID]struct{}, len(p.peers))
	for k := range p.peers {
		remaining[k] = struct{}{}
	}
	startFrame := p.startFrame
	if cleared {
		delete(g.pending, e)
	}
	networkID := p.networkID
	g.mu.Unlock()

	if cleared {
		g.tracer.FinishSpan(e, trace.SpanGhostLifetime)
		g.onAckCleared(w, e, networkID)
		return
	}
	g.syncComponent(w, e, startFrame, remaining)
}
