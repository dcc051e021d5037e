package snapshot

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/pjanec/simhost/internal/cmdbuf"
	"github.com/pjanec/simhost/internal/events"
	"github.com/pjanec/simhost/internal/ids"
	"github.com/pjanec/simhost/internal/world"
)

// SharedProvider (convoy) syncs exactly one filtered replica per frame,
// the same way SoD does, but instead of pooling N replicas it hands the
// same one out to every caller and disposes it only when the last
// borrower releases it. It suits several modules with identical interest
// masks that would otherwise each pay for their own redundant copy.
type SharedProvider struct {
	log              zerolog.Logger
	interestMask     ids.Mask
	eventMask        world.TypeMask
	transient        TransientSet
	includeTransient bool

	mu       sync.Mutex
	live     *world.World
	acc      *events.Accumulator
	entry    *pooledReplica
	refs     int
	lastTick uint32
	lastTime float32
}

// NewSharedProvider constructs a convoy provider. eventMask narrows
// which event types the shared snapshot's flushes carry, the same
// bandwidth-filtering role it plays for SoDProvider; a nil eventMask
// flushes every type.
func NewSharedProvider(log zerolog.Logger, interestMask ids.Mask, transient TransientSet, eventMask world.TypeMask) *SharedProvider {
	return &SharedProvider{
		log:          log.With().Str("component", "shared_provider").Logger(),
		interestMask: interestMask,
		eventMask:    eventMask,
		transient:    transient,
	}
}

func (p *SharedProvider) WithTransientOverride(include bool) *SharedProvider {
	p.includeTransient = include
	return p
}

// Update records the live world and accumulator the next fresh snapshot
// (first AcquireView since the prior one was fully released) should sync
// from.
func (p *SharedProvider) Update(live *world.World, acc *events.Accumulator, nowTick uint32) {
	p.mu.Lock()
	p.live = live
	p.acc = acc
	p.lastTick = nowTick
	p.mu.Unlock()
}

// AcquireView increments the refcount and returns the shared snapshot,
// syncing it fresh from the live world the first time it is acquired
// since the previous full release.
func (p *SharedProvider) AcquireView(nowTick uint32, simTime float32, cmds *cmdbuf.Buffer) *View {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.entry == nil {
		p.entry = &pooledReplica{world: world.New(), bus: world.NewBus(), state: NewSyncState()}
		if p.live != nil {
			Sync(p.live, p.entry.world, syncOptions{
				mask:             p.interestMask,
				filterByMask:     true,
				transient:        p.transient,
				includeTransient: p.includeTransient,
				state:            p.entry.state,
			})
			p.entry.world.SetFrame(nowTick)
		}
		if p.acc != nil {
			p.entry.bus.Clear()
			p.entry.lastFlush = p.acc.FlushToReplica(p.entry.bus, p.entry.lastFlush, p.eventMask)
		}
	}
	p.refs++
	p.lastTime = simTime

	return &View{replica: p.entry.world, bus: p.entry.bus, tick: nowTick, time: simTime, cmds: cmds, owner: p}
}

// ReleaseView decrements the refcount; the snapshot is disposed (so the
// next AcquireView re-syncs) only when the last borrower releases it.
func (p *SharedProvider) ReleaseView(v *View) {
	owner, ok := v.owner.(*SharedProvider)
	if !ok || owner != p {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refs > 0 {
		p.refs--
	}
	if p.refs == 0 {
		p.entry = nil
	}
}
