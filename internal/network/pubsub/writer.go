package pubsub

import (
	"context"
	"fmt"

	"github.com/pjanec/simhost/internal/errs"
	"github.com/pjanec/simhost/internal/lifecycle"
)

// Writer implements lifecycle.DataWriter over one pubsub topic's
// publish side.
type Writer struct {
	topic *Topic
}

func NewWriter(t *Topic) *Writer {
	return &Writer{topic: t}
}

// Write implements lifecycle.DataWriter. It publishes synchronously;
// the egress scan that calls Write already runs off the hot frame-join
// path (after playback), so blocking on gossipsub's local validation is
// acceptable here the same way it is for the teacher's conduit Submit.
func (w *Writer) Write(sample lifecycle.DataSample) error {
	if err := w.topic.publish(context.Background(), sample); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrTransportError, err)
	}
	return nil
}
