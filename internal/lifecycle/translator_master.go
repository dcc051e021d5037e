package lifecycle

import (
	"github.com/rs/zerolog"

	"github.com/pjanec/simhost/internal/world"
)

// MasterTranslator is the ingress path for EntityMaster samples
// (§4.6.3). It hands newly- or previously-Ghosted entities off to the
// spawner via NetworkSpawnRequest, and tears entities down on Disposed.
type MasterTranslator struct {
	log       zerolog.Logger
	reader    DataReader
	registry  *Registry
	manager   *Manager
	localNode NodeID
}

func NewMasterTranslator(log zerolog.Logger, reader DataReader, registry *Registry, manager *Manager, localNode NodeID) *MasterTranslator {
	return &MasterTranslator{
		log:       log.With().Str("component", "master_translator").Logger(),
		reader:    reader,
		registry:  registry,
		manager:   manager,
		localNode: localNode,
	}
}

// Ingress drains the translator's reader and applies every EntityMaster
// sample. Multiple samples for different ids in one batch are handled
// independently; a malformed payload is logged and skipped rather than
// aborting the rest of the batch.
func (t *MasterTranslator) Ingress(w *world.World, bus *world.Bus, frame uint32) {
	if t.reader == nil {
		return
	}
	for _, sample := range t.reader.TakeSamples() {
		msg, ok := sample.Data.(EntityMaster)
		if !ok {
			t.log.Warn().Msg("master translator: malformed sample, skipping")
			continue
		}
		if sample.InstanceState == InstanceDisposed {
			t.dispose(w, bus, msg.NetworkID)
			continue
		}
		t.apply(w, msg)
	}
}

func (t *MasterTranslator) apply(w *world.World, msg EntityMaster) {
	e, existed := t.registry.Lookup(msg.NetworkID)
	fresh := !existed || !w.IsAlive(e)
	if fresh {
		e = w.CreateEntity()
		_ = w.SetComponent(e, ComponentNetworkIdentity, NetworkIdentity{NetworkID: msg.NetworkID})
		t.registry.Bind(msg.NetworkID, e)
	}

	_ = w.SetComponent(e, ComponentNetworkOwnership, NetworkOwnership{
		LocalNodeID:    t.localNode,
		PrimaryOwnerID: msg.PrimaryOwnerID,
	})

	// EntityMaster is typically a heartbeat: a repeat delivery for an
	// entity that has already left Ghost must not re-arm a spawn request
	// and restart construction. Only a brand new entity or one still
	// sitting in Ghost (promotion) gets spawned.
	state, err := w.State(e)
	if !fresh && err == nil && state != world.Ghost {
		return
	}

	_ = w.SetComponent(e, ComponentNetworkSpawnRequest, NetworkSpawnRequest{
		NetworkID:      msg.NetworkID,
		DisType:        msg.DisType,
		PrimaryOwnerID: msg.PrimaryOwnerID,
		Flags:          msg.Flags,
	})
}

func (t *MasterTranslator) dispose(w *world.World, bus *world.Bus, networkID uint64) {
	e, ok := t.registry.Lookup(networkID)
	if !ok {
		return
	}
	t.registry.Unbind(networkID)
	if !w.IsAlive(e) {
		return
	}
	t.manager.Destroy(w, bus, e, networkID)
}
