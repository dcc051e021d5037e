package lifecycle

import (
	"github.com/rs/zerolog"

	"github.com/pjanec/simhost/internal/ids"
	"github.com/pjanec/simhost/internal/world"
)

// Spawner implements §4.6.4: for every entity carrying
// NetworkSpawnRequest this frame, resolve its template, apply it,
// assign initial per-descriptor ownership, arm PendingNetworkAck when
// requested, promote the entity to Constructing, and hand it to the
// lifecycle manager. It runs directly against the live world on the
// ingress phase (the same main-thread-only footing as the egress scan),
// not as a dispatched Module: it must observe entities the translators
// created earlier in the very same frame, before any provider sync has
// run.
type Spawner struct {
	log       zerolog.Logger
	templates *TemplateDatabase
	strategy  OwnershipStrategy
	manager   *Manager

	spawnRequestMask ids.Mask
}

func NewSpawner(log zerolog.Logger, templates *TemplateDatabase, strategy OwnershipStrategy, manager *Manager) *Spawner {
	if strategy == nil {
		strategy = PrimaryOwnerStrategy{}
	}
	return &Spawner{
		log:              log.With().Str("component", "spawner").Logger(),
		templates:        templates,
		strategy:         strategy,
		manager:          manager,
		spawnRequestMask: ids.Mask{}.Set(ComponentNetworkSpawnRequest),
	}
}

// Ingress scans every entity (Ghosts included, since a freshly
// out-of-order-created Ghost is exactly what the master translator
// hands off for spawning) carrying NetworkSpawnRequest and spawns each
// one independently.
func (s *Spawner) Ingress(w *world.World, bus *world.Bus, frame uint32) {
	var pending []ids.Entity
	w.Each(s.spawnRequestMask, true, func(e ids.Entity, _ world.Header) {
		pending = append(pending, e)
	})
	for _, e := range pending {
		s.spawnOne(w, bus, e, frame)
	}
}

func (s *Spawner) spawnOne(w *world.World, bus *world.Bus, e ids.Entity, frame uint32) {
	defer func() {
		_ = w.RemoveComponent(e, ComponentNetworkSpawnRequest)
	}()
	defer func() {
		if p := recover(); p != nil {
			s.log.Error().Interface("panic", p).Str("entity", e.String()).Msg("spawner: recovered panic, dropping spawn request")
		}
	}()

	raw, ok := w.GetComponent(e, ComponentNetworkSpawnRequest)
	if !ok {
		return
	}
	req := raw.(NetworkSpawnRequest)

	tmpl, ok := s.templates.Lookup(req.DisType)
	if !ok {
		s.log.Error().Uint32("dis_type", req.DisType).Msg((&ErrMissingTemplate{DisType: req.DisType}).Error())
		return
	}

	state, err := w.State(e)
	if err != nil {
		return
	}
	preserveExisting := state == world.Ghost

	if err := tmpl.Apply(w, e, preserveExisting); err != nil {
		s.log.Error().Err(err).Str("entity", e.String()).Msg("spawner: template application failed")
		return
	}

	for _, descType := range tmpl.Descriptors {
		count := tmpl.InstanceCounter(req.DisType, descType)
		for inst := uint32(0); inst < uint32(count); inst++ {
			owner, ok := s.strategy.InitialOwner(req.DisType, descType, inst, req.PrimaryOwnerID)
			if !ok {
				continue
			}
			curRaw, _ := w.GetComponent(e, ComponentDescriptorOwnership)
			cur, _ := curRaw.(DescriptorOwnership)
			_ = w.SetComponent(e, ComponentDescriptorOwnership, cur.withOwner(descType, inst, owner))
		}
	}

	if req.Flags.ReliableInit {
		_ = w.SetComponent(e, ComponentPendingNetworkAck, PendingNetworkAck{StartFrame: frame})
	}

	_ = w.SetState(e, world.Constructing)
	_ = w.RemoveComponent(e, ComponentGhostSpawn)

	identRaw, _ := w.GetComponent(e, ComponentNetworkIdentity)
	ident, _ := identRaw.(NetworkIdentity)

	s.manager.BeginConstruction(w, bus, e, ident.NetworkID, req.DisType, frame)
}
