// Package cmdbuf implements the deferred command buffer: thread-local
// recording of world mutations and event publications, replayed
// deterministically on the owning thread. One buffer exists per module
// thread; it is never aliased across threads.
package cmdbuf

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pjanec/simhost/internal/errs"
	"github.com/pjanec/simhost/internal/ids"
	"github.com/pjanec/simhost/internal/world"
)

type opcode byte

const (
	opCreateEntity opcode = iota
	opAddComponent
	opSetComponent
	opRemoveComponent
	opDestroyEntity
	opSetState
	opPublishEvent
	opPublishManagedEvent
	opCallback
)

// DeferredEntity is a ticket referring to an entity created earlier in
// the same, not-yet-replayed buffer. It lets a module create an entity
// and immediately queue component writes against it in the same tick,
// before the real ids.Entity exists.
type DeferredEntity int32

// target is either an already-live entity or a ticket for one created
// earlier in this buffer.
type target struct {
	isTicket bool
	ticket   DeferredEntity
	entity   ids.Entity
}

type op struct {
	code     opcode
	tgt      target
	typeID   int
	value    interface{} // component value, for AddComponent/SetComponent
	dataOff  int         // offset into the byte arena, for PublishEvent
	dataLen  int
	elemSize int
	objIdx   int // index into objects, for PublishManagedEvent
}

// Buffer is the thread-local command buffer. It is not safe for
// concurrent use — each module goroutine owns exactly one.
type Buffer struct {
	log zerolog.Logger

	ops     []op
	arena   []byte        // raw bytes for unmanaged event payloads
	objects []interface{} // object references for managed events/components

	nextTicket   DeferredEntity
	initialBytes int
	grew         bool
}

// NewBuffer pre-sizes the buffer's byte arena to initialBytes, per the
// capacity-management guidance (>= 320 KB recommended for high-ingress
// nodes). Growth beyond this is allowed but logged once as a performance
// event.
func NewBuffer(log zerolog.Logger, initialBytes int) *Buffer {
	return &Buffer{
		log:          log.With().Str("component", "command_buffer").Logger(),
		arena:        make([]byte, 0, initialBytes),
		initialBytes: initialBytes,
	}
}

// CreateEntity records a deferred entity creation and returns a ticket
// that can be used to queue further ops against it within this buffer.
func (b *Buffer) CreateEntity() DeferredEntity {
	t := b.nextTicket
	b.nextTicket++
	b.ops = append(b.ops, op{code: opCreateEntity, tgt: target{isTicket: true, ticket: t}})
	return t
}

func liveTarget(e ids.Entity) target {
	return target{entity: e}
}

func ticketTarget(t DeferredEntity) target {
	return target{isTicket: true, ticket: t}
}

// AddComponent queues adding typeID with value to the live entity e. For
// a ticket from CreateEntity in this same buffer, use AddComponentDeferred.
func (b *Buffer) AddComponent(e ids.Entity, typeID int, value interface{}) {
	b.ops = append(b.ops, op{code: opAddComponent, tgt: liveTarget(e), typeID: typeID, value: value})
}

func (b *Buffer) AddComponentDeferred(e DeferredEntity, typeID int, value interface{}) {
	b.ops = append(b.ops, op{code: opAddComponent, tgt: ticketTarget(e), typeID: typeID, value: value})
}

// SetComponent queues overwriting typeID's value on e.
func (b *Buffer) SetComponent(e ids.Entity, typeID int, value interface{}) {
	b.ops = append(b.ops, op{code: opSetComponent, tgt: liveTarget(e), typeID: typeID, value: value})
}

// RemoveComponent queues removing typeID from e.
func (b *Buffer) RemoveComponent(e ids.Entity, typeID int) {
	b.ops = append(b.ops, op{code: opRemoveComponent, tgt: liveTarget(e), typeID: typeID})
}

// DestroyEntity queues destruction of e.
func (b *Buffer) DestroyEntity(e ids.Entity) {
	b.ops = append(b.ops, op{code: opDestroyEntity, tgt: liveTarget(e)})
}

// SetState queues a lifecycle state transition on e.
func (b *Buffer) SetState(e ids.Entity, s world.LifecycleState) {
	b.ops = append(b.ops, op{code: opSetState, tgt: liveTarget(e), typeID: int(s)})
}

func (b *Buffer) SetStateDeferred(e DeferredEntity, s world.LifecycleState) {
	b.ops = append(b.ops, op{code: opSetState, tgt: ticketTarget(e), typeID: int(s)})
}

// OnCreated registers a callback invoked during Playback once t resolves to
// a live entity, after the entity has actually been created but in the same
// replay pass — letting a caller that needs the real ids.Entity (e.g. the
// lifecycle package's network-id registry) learn it without ever touching
// the live world directly itself.
func (b *Buffer) OnCreated(t DeferredEntity, fn func(ids.Entity)) {
	idx := len(b.objects)
	b.objects = append(b.objects, fn)
	b.ops = append(b.ops, op{code: opCallback, tgt: ticketTarget(t), objIdx: idx})
}

// PublishEvent queues an unmanaged (native) event publication. data is
// copied into the buffer's byte arena immediately so the caller's slice
// can be reused or discarded after this call returns.
func (b *Buffer) PublishEvent(typeID, elemSize int, data []byte) {
	before := len(b.arena)
	cap0 := cap(b.arena)
	b.arena = append(b.arena, data...)
	if cap(b.arena) != cap0 && !b.grew {
		b.grew = true
		b.log.Warn().Err(errs.ErrCommandBufferOverflow).
			Int("initial_bytes", b.initialBytes).
			Int("grown_to", cap(b.arena)).
			Msg("command buffer byte arena grew beyond its initial capacity")
	}
	b.ops = append(b.ops, op{
		code:     opPublishEvent,
		typeID:   typeID,
		elemSize: elemSize,
		dataOff:  before,
		dataLen:  len(data),
	})
}

// PublishManagedEvent queues a heap-allocated (managed) event.
func (b *Buffer) PublishManagedEvent(typeID int, obj interface{}) {
	idx := len(b.objects)
	b.objects = append(b.objects, obj)
	b.ops = append(b.ops, op{code: opPublishManagedEvent, typeID: typeID, objIdx: idx})
}

// Len reports the number of recorded ops, mostly for tests/diagnostics.
func (b *Buffer) Len() int { return len(b.ops) }

// Playback replays every recorded op, in recording order, into w and bus,
// then clears the buffer so it can be reused. Playback must run only on
// the thread that owns w; it is not reentrant, and replaying an
// already-cleared buffer is a correct no-op.
func (b *Buffer) Playback(w *world.World, bus *world.Bus) error {
	if len(b.ops) == 0 {
		return nil
	}

	tickets := make(map[DeferredEntity]ids.Entity, b.nextTicket)
	resolve := func(t target) (ids.Entity, error) {
		if !t.isTicket {
			return t.entity, nil
		}
		e, ok := tickets[t.ticket]
		if !ok {
			return ids.NilEntity, fmt.Errorf("command buffer playback: ticket %d not yet created", t.ticket)
		}
		return e, nil
	}

	for _, o := range b.ops {
		switch o.code {
		case opCreateEntity:
			tickets[o.tgt.ticket] = w.CreateEntity()

		case opAddComponent, opSetComponent:
			e, err := resolve(o.tgt)
			if err != nil {
				return err
			}
			if err := w.SetComponent(e, o.typeID, o.value); err != nil {
				return fmt.Errorf("command buffer playback: %w", err)
			}

		case opRemoveComponent:
			e, err := resolve(o.tgt)
			if err != nil {
				return err
			}
			if err := w.RemoveComponent(e, o.typeID); err != nil {
				return fmt.Errorf("command buffer playback: %w", err)
			}

		case opDestroyEntity:
			e, err := resolve(o.tgt)
			if err != nil {
				return err
			}
			if err := w.DestroyEntity(e); err != nil {
				return fmt.Errorf("command buffer playback: %w", err)
			}

		case opSetState:
			e, err := resolve(o.tgt)
			if err != nil {
				return err
			}
			if err := w.SetState(e, world.LifecycleState(o.typeID)); err != nil {
				return fmt.Errorf("command buffer playback: %w", err)
			}

		case opCallback:
			e, err := resolve(o.tgt)
			if err != nil {
				return err
			}
			fn := b.objects[o.objIdx].(func(ids.Entity))
			fn(e)

		case opPublishEvent:
			data := b.arena[o.dataOff : o.dataOff+o.dataLen]
			cp := make([]byte, len(data))
			copy(cp, data)
			bus.PublishNative(o.typeID, o.elemSize, cp)

		case opPublishManagedEvent:
			bus.PublishManaged(o.typeID, b.objects[o.objIdx])

		default:
			return fmt.Errorf("command buffer playback: unknown opcode %d", o.code)
		}
	}

	b.clear()
	return nil
}

// clear empties the buffer's recorded stream for reuse. The byte arena's
// backing array is kept (capacity retained) so steady-state frames do not
// re-allocate it.
func (b *Buffer) clear() {
	b.ops = b.ops[:0]
	b.arena = b.arena[:0]
	b.objects = b.objects[:0]
	b.nextTicket = 0
}
