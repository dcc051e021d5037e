package snapshot

import (
	"github.com/rs/zerolog"

	"github.com/pjanec/simhost/internal/cmdbuf"
	"github.com/pjanec/simhost/internal/events"
	"github.com/pjanec/simhost/internal/world"
)

// GDBProvider maintains one persistent replica, fully synced from the
// live world every frame. AcquireView returns a shared reference to that
// replica — zero-copy, zero allocation per acquisition — which makes it
// the right strategy for Fast-tier modules that run every frame.
type GDBProvider struct {
	log       zerolog.Logger
	replica   *world.World
	bus       *world.Bus
	state     *SyncState
	lastFlush uint32
}

func NewGDBProvider(log zerolog.Logger) *GDBProvider {
	return &GDBProvider{
		log:     log.With().Str("component", "gdb_provider").Logger(),
		replica: world.New(),
		bus:     world.NewBus(),
		state:   NewSyncState(),
	}
}

// Update runs on the main thread between capture and dispatch: it fully
// syncs the replica from the live world, then flushes every event batch
// since the last flush into the replica's bus.
func (p *GDBProvider) Update(live *world.World, acc *events.Accumulator, nowTick uint32) {
	Sync(live, p.replica, syncOptions{state: p.state})
	p.replica.SetFrame(nowTick)
	p.bus.Clear()
	p.lastFlush = acc.FlushToReplica(p.bus, p.lastFlush, nil)
}

// AcquireView returns a view over the shared, always-fresh replica.
func (p *GDBProvider) AcquireView(nowTick uint32, simTime float32, cmds *cmdbuf.Buffer) *View {
	return newView(p.replica, p.bus, nowTick, simTime, cmds)
}

// ReleaseView is a no-op for GDB: the replica is shared and owned by the
// provider, not checked out.
func (p *GDBProvider) ReleaseView(*View) {}
