// Package pubsub is the concrete, testable transport for the distributed
// entity lifecycle protocol: lifecycle.DataReader/DataWriter backed by
// go-libp2p-pubsub topic subscriptions and publications, one topic per
// descriptor message type (EntityMaster, EntityState, OwnershipUpdate,
// EntityLifecycleStatus). Transport semantics modelled are ordering
// (none guaranteed), delivery (at-least-once, duplicates possible — see
// the lifecycle package's idempotent translators), and no global total
// order across topics; the wire encoding of a message's payload stays
// opaque, as in the original spec's non-goals.
//
// Grounded on the teacher's engine/consensus/provider Engine: a
// kernel.Unit-supervised goroutine instead of engine.Unit, an unbounded
// inbound sample slice instead of network.Conduit, and Submit/Process-style
// decoupling between "a packet arrived" and "a translator consumed it".
package pubsub

import (
	"context"
	"fmt"

	libp2pPubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/rs/zerolog"

	"github.com/pjanec/simhost/internal/lifecycle"
)

// Codec encodes/decodes one topic's DataSample to/from the opaque bytes
// carried over a pubsub topic. Concrete wire formats are out of scope
// (original spec non-goals); a host supplies whatever codec it wants
// (JSON, protobuf, a hand-rolled format) per topic, one topic per
// message type so a codec never needs to discriminate payload kind.
type Codec interface {
	Encode(sample lifecycle.DataSample) ([]byte, error)
	Decode(b []byte) (lifecycle.DataSample, error)
}

// Topic wraps one libp2p-pubsub topic: a Writer publishes onto it, a
// Reader drains messages received on a subscription to it. Both share
// the same *libp2pPubsub.Topic so a node that both produces and consumes
// a message type (e.g. OwnershipUpdate round-tripping through a
// multi-node cluster) only joins the topic mesh once.
type Topic struct {
	log   zerolog.Logger
	topic *libp2pPubsub.Topic
	name  string
	codec Codec
	self  peer.ID
}

// NewTopic joins name on ps and wraps it for lifecycle transport use.
// self is this node's own peer id, used so a Reader subscribed to the
// same topic it also publishes on can drop messages it sees echoed back
// to itself (Message.ReceivedFrom == self).
func NewTopic(log zerolog.Logger, ps *libp2pPubsub.PubSub, name string, codec Codec, self peer.ID) (*Topic, error) {
	t, err := ps.Join(name)
	if err != nil {
		return nil, fmt.Errorf("pubsub: could not join topic %q: %w", name, err)
	}
	return &Topic{
		log:   log.With().Str("component", "pubsub_topic").Str("topic", name).Logger(),
		topic: t,
		name:  name,
		codec: codec,
		self:  self,
	}, nil
}

// Close leaves the underlying topic.
func (t *Topic) Close() error {
	return t.topic.Close()
}

// publish encodes sample and broadcasts it to every peer subscribed to
// the topic.
func (t *Topic) publish(ctx context.Context, sample lifecycle.DataSample) error {
	payload, err := t.codec.Encode(sample)
	if err != nil {
		return fmt.Errorf("pubsub: encode failed: %w", err)
	}
	if err := t.topic.Publish(ctx, payload); err != nil {
		return fmt.Errorf("pubsub: publish failed: %w", err)
	}
	return nil
}

// subscribe opens a new subscription to the topic. Each Reader owns
// exactly one; a topic may have more than one active subscription (a
// node that both writes and reads a topic, or two translators on the
// same message type for tests).
func (t *Topic) subscribe() (*libp2pPubsub.Subscription, error) {
	sub, err := t.topic.Subscribe()
	if err != nil {
		return nil, fmt.Errorf("pubsub: subscribe failed: %w", err)
	}
	return sub, nil
}
