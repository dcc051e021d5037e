package lifecycle

import (
	"github.com/rs/zerolog"

	"github.com/pjanec/simhost/internal/world"
)

// StateTranslator is the ingress path for EntityState samples (§4.6.2).
// It never claims authority and never writes Position directly: a
// not-yet-known network id materialises a Ghost carrying only the
// network-observed fields; a known id only refreshes NetworkTarget,
// leaving whatever smooths Position toward it to another system.
type StateTranslator struct {
	log      zerolog.Logger
	reader   DataReader
	registry *Registry
}

func NewStateTranslator(log zerolog.Logger, reader DataReader, registry *Registry) *StateTranslator {
	return &StateTranslator{
		log:      log.With().Str("component", "state_translator").Logger(),
		reader:   reader,
		registry: registry,
	}
}

// Ingress drains the translator's reader and applies every EntityState
// sample directly to the live world. It must run on the world's
// single-writer thread, before any provider sync for the frame.
func (t *StateTranslator) Ingress(w *world.World, frame uint32) {
	if t.reader == nil {
		return
	}
	for _, sample := range t.reader.TakeSamples() {
		msg, ok := sample.Data.(EntityState)
		if !ok {
			t.log.Warn().Msg("state translator: malformed sample, skipping")
			continue
		}
		t.apply(w, msg, frame)
	}
}

func (t *StateTranslator) apply(w *world.World, msg EntityState, frame uint32) {
	target := NetworkTarget{Location: msg.Location, Velocity: msg.Velocity, Timestamp: msg.Timestamp}

	if e, ok := t.registry.Lookup(msg.NetworkID); ok {
		if !w.IsAlive(e) {
			t.registry.Unbind(msg.NetworkID)
		} else {
			_ = w.SetComponent(e, ComponentNetworkTarget, target)
			return
		}
	}

	e := w.CreateEntity()
	_ = w.SetState(e, world.Ghost)
	_ = w.SetComponent(e, ComponentNetworkIdentity, NetworkIdentity{NetworkID: msg.NetworkID})
	_ = w.SetComponent(e, ComponentGhostSpawn, GhostSpawn{Frame: frame})
	_ = w.SetComponent(e, ComponentNetworkTarget, target)
	_ = w.SetComponent(e, ComponentPosition, Position{X: msg.Location[0], Y: msg.Location[1], Z: msg.Location[2]})
	_ = w.SetComponent(e, ComponentVelocity, Velocity{X: msg.Velocity[0], Y: msg.Velocity[1], Z: msg.Velocity[2]})
	t.registry.Bind(msg.NetworkID, e)
	t.log.Debug().Uint64("network_id", msg.NetworkID).Msg("materialised ghost from out-of-order state sample")
}
