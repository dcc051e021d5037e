package pubsub

import (
	"encoding/json"
	"fmt"

	"github.com/pjanec/simhost/internal/lifecycle"
)

// JSONCodec is a reasonable default Codec: it marshals the whole
// DataSample as JSON, with Data carried through an interface{} populated
// by unmarshalling into a caller-supplied zero value for the concrete
// message type. It exists mainly for tests and small deployments; a
// production node is free to supply a tighter binary Codec instead, the
// wire format itself being out of scope per the original spec.
type JSONCodec struct {
	// New returns a fresh zero value for this topic's payload type
	// (e.g. func() interface{} { return &lifecycle.EntityMaster{} }),
	// so Decode has something concrete to unmarshal into.
	New func() interface{}
}

type jsonEnvelope struct {
	NetworkID     uint64                  `json:"network_id"`
	InstanceID    uint64                  `json:"instance_id"`
	InstanceState lifecycle.InstanceState `json:"instance_state"`
	Data          json.RawMessage         `json:"data"`
}

func (c JSONCodec) Encode(sample lifecycle.DataSample) ([]byte, error) {
	data, err := json.Marshal(sample.Data)
	if err != nil {
		return nil, fmt.Errorf("jsoncodec: encode data: %w", err)
	}
	return json.Marshal(jsonEnvelope{
		NetworkID:     sample.NetworkID,
		InstanceID:    sample.InstanceID,
		InstanceState: sample.InstanceState,
		Data:          data,
	})
}

func (c JSONCodec) Decode(b []byte) (lifecycle.DataSample, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return lifecycle.DataSample{}, fmt.Errorf("jsoncodec: decode envelope: %w", err)
	}
	payload := c.New()
	if err := json.Unmarshal(env.Data, payload); err != nil {
		return lifecycle.DataSample{}, fmt.Errorf("jsoncodec: decode data: %w", err)
	}
	// Callers register payload as a pointer (New returns &T{}) so
	// json.Unmarshal has an addressable target; dereference it back to
	// the value type DataSample.Data carries elsewhere in this package.
	return lifecycle.DataSample{
		NetworkID:     env.NetworkID,
		InstanceID:    env.InstanceID,
		InstanceState: env.InstanceState,
		Data:          deref(payload),
	}, nil
}

func deref(v interface{}) interface{} {
	switch p := v.(type) {
	case *lifecycle.EntityMaster:
		return *p
	case *lifecycle.EntityState:
		return *p
	case *lifecycle.OwnershipUpdate:
		return *p
	case *lifecycle.EntityLifecycleStatus:
		return *p
	default:
		return v
	}
}
