package snapshot

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/pjanec/simhost/internal/cmdbuf"
	"github.com/pjanec/simhost/internal/events"
	"github.com/pjanec/simhost/internal/ids"
	"github.com/pjanec/simhost/internal/world"
)

// pooledReplica is one entry in a SoDProvider's pool: a replica world, its
// own event bus, and its own dirty-chunk sync state (each pool entry
// tracks dirtiness independently, since different entries may have gone
// stale for different numbers of frames while parked in the pool).
type pooledReplica struct {
	world     *world.World
	bus       *world.Bus
	state     *SyncState
	lastFlush uint32
}

// SoDProvider (Snapshot on Demand) maintains a pool of mask-filtered
// replicas for one Slow-tier module. Each AcquireView pops (or creates) a
// pooled replica, filter-syncs only the columns in interestMask from the
// live world, flushes events filtered by the module's event-type
// interest, and hands it out. ReleaseView soft-clears the replica and
// returns it to the pool.
//
// Unlike GDB, the sync work happens inside AcquireView itself, not in
// Update — a snapshot only needs to be fresh at the moment a module
// checks it out, not every frame regardless of demand.
type SoDProvider struct {
	log              zerolog.Logger
	pool             *replicaPool
	interestMask     ids.Mask
	eventMask        world.TypeMask
	transient        TransientSet
	includeTransient bool

	mu   sync.Mutex // guards live/acc captured by the most recent Update call
	live *world.World
	acc  *events.Accumulator
}

// NewSoDProvider pre-warms the pool with prewarm replicas. eventMask
// narrows which event types this provider's flushes carry — the spec's
// "flushes accumulated events filtered by the module's event-type mask"
// (§4.3), normally a module's own EventRequirements(). A nil eventMask
// flushes every type.
func NewSoDProvider(log zerolog.Logger, interestMask ids.Mask, transient TransientSet, prewarm int, eventMask world.TypeMask) *SoDProvider {
	p := &SoDProvider{
		log:          log.With().Str("component", "sod_provider").Logger(),
		pool:         newReplicaPool(),
		interestMask: interestMask,
		eventMask:    eventMask,
		transient:    transient,
	}
	for i := 0; i < prewarm; i++ {
		p.pool.push(p.newEntry())
	}
	return p
}

func (p *SoDProvider) newEntry() *pooledReplica {
	return &pooledReplica{
		world: world.New(),
		bus:   world.NewBus(),
		state: NewSyncState(),
	}
}

// WithTransientOverride allows debug/diagnostic modules to opt into
// seeing transient components that are excluded from snapshots by
// default.
func (p *SoDProvider) WithTransientOverride(include bool) *SoDProvider {
	p.includeTransient = include
	return p
}

// Update records the live world and accumulator this provider should
// sync from on the next AcquireView; it performs no copying itself.
func (p *SoDProvider) Update(live *world.World, acc *events.Accumulator, nowTick uint32) {
	p.mu.Lock()
	p.live = live
	p.acc = acc
	p.mu.Unlock()
}

// AcquireView pops a replica from the pool (creating one if empty),
// filter-syncs it from the live world recorded by the last Update,
// flushes events since that entry's own last flush, and returns a View
// over it.
func (p *SoDProvider) AcquireView(nowTick uint32, simTime float32, cmds *cmdbuf.Buffer) *View {
	entry := p.pool.pop()
	if entry == nil {
		entry = p.newEntry()
	}

	p.mu.Lock()
	live, acc := p.live, p.acc
	p.mu.Unlock()

	if live != nil {
		Sync(live, entry.world, syncOptions{
			mask:             p.interestMask,
			filterByMask:     true,
			transient:        p.transient,
			includeTransient: p.includeTransient,
			state:            entry.state,
		})
		entry.world.SetFrame(nowTick)
	}
	if acc != nil {
		entry.bus.Clear()
		entry.lastFlush = acc.FlushToReplica(entry.bus, entry.lastFlush, p.eventMask)
	}

	return &View{replica: entry.world, bus: entry.bus, tick: nowTick, time: simTime, cmds: cmds, owner: entry}
}

// ReleaseView returns the replica to the pool. The replica's contents
// (and its SyncState / lastFlush bookkeeping) are retained so the next
// acquisition's dirty-chunk skip and event high-water mark stay correct;
// only the checked-out/checked-in bookkeeping is "soft cleared" by virtue
// of simply being pooled again.
func (p *SoDProvider) ReleaseView(v *View) {
	if entry, ok := v.owner.(*pooledReplica); ok {
		p.pool.push(entry)
	}
}
