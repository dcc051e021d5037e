// Package snapshot implements the two read-only view strategies a module
// can be handed each frame: a persistent, always-fresh full replica
// (GDB — Global Double Buffer) for Fast modules, and a pooled, mask- and
// event-filtered on-demand snapshot (SoD — Snapshot on Demand) for Slow
// modules. A reference-counted Shared variant lets several modules with
// identical filters share one snapshot.
package snapshot

import (
	"github.com/pjanec/simhost/internal/cmdbuf"
	"github.com/pjanec/simhost/internal/ids"
	"github.com/pjanec/simhost/internal/world"
)

// View is the read-only surface handed to a module for the duration of
// one Tick call. It wraps a replica world plus the module's own
// thread-local command buffer — the only writable thing a module may
// touch.
type View struct {
	tick    uint32
	time    float32
	replica *world.World
	bus     *world.Bus
	cmds    *cmdbuf.Buffer

	// owner is opaque to View itself: a provider that checks out a pooled
	// resource (SoDProvider) stashes its pool entry here so ReleaseView can
	// find it again; providers with nothing to check back in (GDBProvider)
	// leave it nil.
	owner interface{}
}

func newView(replica *world.World, bus *world.Bus, tick uint32, time float32, cmds *cmdbuf.Buffer) *View {
	return &View{replica: replica, bus: bus, tick: tick, time: time, cmds: cmds}
}

func (v *View) Tick() uint32 { return v.tick }
func (v *View) Time() float32 { return v.time }

func (v *View) GetComponentRO(e ids.Entity, typeID int) (interface{}, bool) {
	return v.replica.GetComponent(e, typeID)
}

func (v *View) HasComponent(e ids.Entity, typeID int) bool {
	return v.replica.HasComponent(e, typeID)
}

func (v *View) IsAlive(e ids.Entity) bool {
	return v.replica.IsAlive(e)
}

func (v *View) ConsumeEvents(typeID int) []world.NativeEvent {
	return v.bus.ConsumeNative(typeID)
}

func (v *View) ConsumeManagedEvents(typeID int) []world.ManagedEvent {
	return v.bus.ConsumeManaged(typeID)
}

// Query returns every live entity (Ghosts excluded) whose mask contains
// required. It is a finite, non-restartable iteration: destroyed entities
// are already skipped by the underlying world.
func (v *View) Query(required ids.Mask, fn func(ids.Entity)) {
	v.replica.Each(required, false, func(e ids.Entity, _ world.Header) {
		fn(e)
	})
}

// QueryIncludeGhosts is the "include-all" query variant used by the
// lifecycle translators to observe Ghosts.
func (v *View) QueryIncludeGhosts(required ids.Mask, fn func(ids.Entity)) {
	v.replica.Each(required, true, func(e ids.Entity, _ world.Header) {
		fn(e)
	})
}

// GetCommandBuffer returns the module's thread-local command buffer for
// queuing mutations. It is the only mutation path available through a
// View.
func (v *View) GetCommandBuffer() *cmdbuf.Buffer {
	return v.cmds
}
