package lifecycle

import (
	"github.com/rs/zerolog"

	"github.com/pjanec/simhost/internal/ids"
	"github.com/pjanec/simhost/internal/world"
)

// DefaultGhostTimeoutFrames is the spec's documented default for how
// long an out-of-order-created Ghost may wait for its EntityMaster
// before the reaper gives up on it (§9 Open Questions: left a
// configurable knob, not exercised by a hardcoded policy).
const DefaultGhostTimeoutFrames = 300

// GhostReaper destroys Ghosts that never got claimed by a matching
// EntityMaster within timeoutFrames, releasing the registry binding and
// the entity index back to the world's free list. A Ghost that the
// spawner promotes past Ghost has its GhostSpawn marker removed (see
// spawner.go) and is never visited here again.
type GhostReaper struct {
	log           zerolog.Logger
	timeoutFrames uint32
	ghostMask     ids.Mask
}

func NewGhostReaper(log zerolog.Logger, timeoutFrames uint32) *GhostReaper {
	if timeoutFrames == 0 {
		timeoutFrames = DefaultGhostTimeoutFrames
	}
	return &GhostReaper{
		log:           log.With().Str("component", "ghost_reaper").Logger(),
		timeoutFrames: timeoutFrames,
		ghostMask:     ids.Mask{}.Set(ComponentGhostSpawn),
	}
}

// Tick scans every Ghost carrying a GhostSpawn marker and destroys the
// ones that have outlived timeoutFrames. It must run on the world's
// single-writer thread; callers typically run it once per frame, after
// the spawner (so an entity the spawner just promoted this frame is
// never seen here with a stale Ghost state).
func (r *GhostReaper) Tick(w *world.World, registry *Registry, frame uint32) {
	var expired []ids.Entity
	w.Each(r.ghostMask, true, func(e ids.Entity, h world.Header) {
		if h.State != world.Ghost {
			return
		}
		raw, ok := w.GetComponent(e, ComponentGhostSpawn)
		if !ok {
			return
		}
		spawn := raw.(GhostSpawn)
		if frame-spawn.Frame >= r.timeoutFrames {
			expired = append(expired, e)
		}
	})

	for _, e := range expired {
		identRaw, _ := w.GetComponent(e, ComponentNetworkIdentity)
		ident, _ := identRaw.(NetworkIdentity)
		registry.Unbind(ident.NetworkID)
		_ = w.DestroyEntity(e)
		r.log.Warn().Uint64("network_id", ident.NetworkID).Str("entity", e.String()).
			Msg("ghost timeout: no EntityMaster arrived in time, destroying")
	}
}
