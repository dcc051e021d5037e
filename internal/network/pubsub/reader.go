package pubsub

import (
	"fmt"
	"sync"

	libp2pPubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/rs/zerolog"

	"github.com/pjanec/simhost/internal/errs"
	"github.com/pjanec/simhost/internal/kernel"
	"github.com/pjanec/simhost/internal/lifecycle"
)

// Reader implements lifecycle.DataReader over one pubsub subscription. A
// kernel.Unit-supervised goroutine drains the subscription continuously;
// TakeSamples hands the translator everything received since its last
// call, mirroring the spec's non-blocking, non-destructive-to-the-sender
// drain contract.
type Reader struct {
	log  zerolog.Logger
	unit *kernel.Unit
	sub  *libp2pPubsub.Subscription
	self peer.ID

	mu      sync.Mutex
	samples []lifecycle.DataSample

	codec Codec
}

// NewReader subscribes to t and starts its read loop. Call Close to stop
// it.
func NewReader(log zerolog.Logger, t *Topic) (*Reader, error) {
	sub, err := t.subscribe()
	if err != nil {
		return nil, err
	}
	r := &Reader{
		log:   log.With().Str("component", "pubsub_reader").Str("topic", t.name).Logger(),
		unit:  kernel.NewUnit(),
		sub:   sub,
		self:  t.self,
		codec: t.codec,
	}
	r.unit.Launch(r.run)
	return r, nil
}

func (r *Reader) run() {
	ctx := r.unit.Ctx()
	for {
		msg, err := r.sub.Next(ctx)
		if err != nil {
			// ctx cancelled (shutdown) or the subscription was closed;
			// either way, there is nothing left to read.
			return
		}
		if msg.ReceivedFrom == r.self {
			continue
		}
		sample, err := r.codec.Decode(msg.Data)
		if err != nil {
			r.log.Warn().Err(fmt.Errorf("%w: %v", errs.ErrTransportError, err)).
				Msg("pubsub reader: malformed message, dropping")
			continue
		}
		r.mu.Lock()
		r.samples = append(r.samples, sample)
		r.mu.Unlock()
	}
}

// TakeSamples implements lifecycle.DataReader.
func (r *Reader) TakeSamples() []lifecycle.DataSample {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.samples
	r.samples = nil
	return out
}

// Close stops the read loop and unsubscribes.
func (r *Reader) Close() {
	r.sub.Cancel()
	<-r.unit.Done()
}
