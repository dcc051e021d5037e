package lifecycle

import (
	"github.com/rs/zerolog"

	"github.com/pjanec/simhost/internal/ids"
	"github.com/pjanec/simhost/internal/world"
)

// Egress implements §4.6.7: after command-buffer playback, scan the live
// world and publish the authoritative state of every entity this node
// owns (in whole, via primary ownership, or per-descriptor-instance via
// DescriptorOwnership). Only Active entities are published; a
// ForceNetworkPublish marker forces one unconditional publish of either
// the whole entity or only the specific descriptor instances it names
// (§4.6.7(b) — a transfer's new owner forces just its own instance, never
// instances it still doesn't own), and is then removed by this same scan,
// matching the spec's "egress system itself" removal rule.
type Egress struct {
	log          zerolog.Logger
	localNode    NodeID
	masterWriter DataWriter
	stateWriter  DataWriter
	weaponWriter DataWriter

	ownershipMask ids.Mask
}

func NewEgress(log zerolog.Logger, localNode NodeID, masterWriter, stateWriter, weaponWriter DataWriter) *Egress {
	return &Egress{
		log:           log.With().Str("component", "egress").Logger(),
		localNode:     localNode,
		masterWriter:  masterWriter,
		stateWriter:   stateWriter,
		weaponWriter:  weaponWriter,
		ownershipMask: ids.Mask{}.Set(ComponentNetworkOwnership),
	}
}

// ScanAndPublish runs the egress pass. It must run on the main thread
// after playback, per the frame kernel's phase ordering.
func (eg *Egress) ScanAndPublish(w *world.World, frame uint32) {
	var active []ids.Entity
	w.Each(eg.ownershipMask, false, func(e ids.Entity, h world.Header) {
		if h.State == world.Active {
			active = append(active, e)
		}
	})
	for _, e := range active {
		eg.publishOne(w, e, frame)
	}
}

func (eg *Egress) publishOne(w *world.World, e ids.Entity, frame uint32) {
	ownRaw, _ := w.GetComponent(e, ComponentNetworkOwnership)
	ownership, _ := ownRaw.(NetworkOwnership)

	identRaw, ok := w.GetComponent(e, ComponentNetworkIdentity)
	if !ok {
		return
	}
	identity := identRaw.(NetworkIdentity)

	descRaw, _ := w.GetComponent(e, ComponentDescriptorOwnership)
	descOwnership, _ := descRaw.(DescriptorOwnership)

	forceRaw, hasForce := w.GetComponent(e, ComponentForceNetworkPublish)
	force, _ := forceRaw.(ForceNetworkPublish)
	forceEntity := hasForce && force.ForcesEntity()

	if eg.masterWriter != nil && (ownership.PrimaryOwnerID == eg.localNode || forceEntity) {
		_ = eg.masterWriter.Write(DataSample{
			NetworkID: identity.NetworkID,
			Data: EntityMaster{
				NetworkID:      identity.NetworkID,
				PrimaryOwnerID: ownership.PrimaryOwnerID,
			},
		})
	}

	if eg.stateWriter != nil {
		if posRaw, ok := w.GetComponent(e, ComponentPosition); ok && (ownership.PrimaryOwnerID == eg.localNode || forceEntity) {
			pos := posRaw.(Position)
			var vel Velocity
			if velRaw, ok := w.GetComponent(e, ComponentVelocity); ok {
				vel = velRaw.(Velocity)
			}
			_ = eg.stateWriter.Write(DataSample{
				NetworkID: identity.NetworkID,
				Data: EntityState{
					NetworkID: identity.NetworkID,
					OwnerID:   eg.localNode,
					Location:  [3]float32{pos.X, pos.Y, pos.Z},
					Velocity:  [3]float32{vel.X, vel.Y, vel.Z},
				},
			})
		}
	}

	if eg.weaponWriter != nil {
		if wsRaw, ok := w.GetComponent(e, ComponentWeaponStates); ok {
			weapons := wsRaw.(WeaponStates)
			for inst, state := range weapons.Weapons {
				forced := hasForce && force.ForcesDescriptor(DescriptorTypeWeapon, inst)
				if !forced && !OwnsDescriptor(descOwnership, ownership, DescriptorTypeWeapon, inst) {
					continue
				}
				_ = eg.weaponWriter.Write(DataSample{
					NetworkID:  identity.NetworkID,
					InstanceID: uint64(inst),
					Data: WeaponState{
						Status:    state.Status,
						Azimuth:   state.Azimuth,
						Elevation: state.Elevation,
						Ammo:      state.Ammo,
					},
				})
			}
		}
	}

	if hasForce {
		_ = w.RemoveComponent(e, ComponentForceNetworkPublish)
	}
}
