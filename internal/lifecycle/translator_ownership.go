package lifecycle

import (
	"github.com/rs/zerolog"

	"github.com/pjanec/simhost/internal/world"
)

// OwnershipTranslator is the ingress path for OwnershipUpdate samples
// (§4.6.5): grants or transfers authority over one descriptor instance,
// emitting DescriptorAuthorityChanged only when the change actually
// crosses the local-node boundary, and arming ForceNetworkPublish when
// this node just became the owner.
type OwnershipTranslator struct {
	log       zerolog.Logger
	reader    DataReader
	registry  *Registry
	localNode NodeID
}

func NewOwnershipTranslator(log zerolog.Logger, reader DataReader, registry *Registry, localNode NodeID) *OwnershipTranslator {
	return &OwnershipTranslator{
		log:       log.With().Str("component", "ownership_translator").Logger(),
		reader:    reader,
		registry:  registry,
		localNode: localNode,
	}
}

func (t *OwnershipTranslator) Ingress(w *world.World, bus *world.Bus) {
	if t.reader == nil {
		return
	}
	for _, sample := range t.reader.TakeSamples() {
		msg, ok := sample.Data.(OwnershipUpdate)
		if !ok {
			t.log.Warn().Msg("ownership translator: malformed sample, skipping")
			continue
		}
		t.apply(w, bus, msg)
	}
}

func (t *OwnershipTranslator) apply(w *world.World, bus *world.Bus, msg OwnershipUpdate) {
	e, ok := t.registry.Lookup(msg.NetworkID)
	if !ok || !w.IsAlive(e) {
		return
	}

	ownRaw, _ := w.GetComponent(e, ComponentNetworkOwnership)
	ownership, _ := ownRaw.(NetworkOwnership)

	descRaw, _ := w.GetComponent(e, ComponentDescriptorOwnership)
	descOwnership, _ := descRaw.(DescriptorOwnership)

	wasOwner := ResolveOwner(descOwnership, ownership.PrimaryOwnerID, msg.DescriptorType, msg.InstanceID) == t.localNode

	newOwnership := descOwnership.withOwner(msg.DescriptorType, msg.InstanceID, msg.NewOwner)
	_ = w.SetComponent(e, ComponentDescriptorOwnership, newOwnership)

	isNowOwner := msg.NewOwner == t.localNode
	if wasOwner == isNowOwner {
		// Idempotent under duplicate delivery: the boundary didn't move,
		// so no authority-change event and no forced republish.
		return
	}

	bus.PublishManaged(EventDescriptorAuthorityChanged, DescriptorAuthorityChanged{
		Entity:         e,
		DescriptorType: msg.DescriptorType,
		InstanceID:     msg.InstanceID,
		IsNowOwner:     isNowOwner,
		NewOwnerID:     msg.NewOwner,
	})

	if isNowOwner {
		forceRaw, hasForce := w.GetComponent(e, ComponentForceNetworkPublish)
		force, ok := forceRaw.(ForceNetworkPublish)
		if !hasForce || !ok {
			force = ForceNetworkPublish{Targets: map[uint64]struct{}{}}
		}
		force = force.withTarget(msg.DescriptorType, msg.InstanceID)
		_ = w.SetComponent(e, ComponentForceNetworkPublish, force)
	}
}
