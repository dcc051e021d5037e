package pubsub

import (
	"context"
	"testing"
	"time"

	libp2p "github.com/libp2p/go-libp2p"
	libp2pPubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pjanec/simhost/internal/lifecycle"
)

// TestWriterReaderRoundTrip joins two in-process libp2p hosts on the
// same topic over a direct connection, and checks a sample published by
// one host's Writer arrives at the other host's Reader. This mirrors
// go-libp2p-pubsub's own floodsub test pattern (direct Connect, no DHT).
func TestWriterReaderRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hostA, err := libp2p.New()
	require.NoError(t, err)
	defer hostA.Close()

	hostB, err := libp2p.New()
	require.NoError(t, err)
	defer hostB.Close()

	require.NoError(t, hostB.Connect(ctx, peer.AddrInfo{
		ID:    hostA.ID(),
		Addrs: hostA.Addrs(),
	}))

	psA, err := libp2pPubsub.NewFloodSub(ctx, hostA)
	require.NoError(t, err)
	psB, err := libp2pPubsub.NewFloodSub(ctx, hostB)
	require.NoError(t, err)

	codec := JSONCodec{New: func() interface{} { return &lifecycle.EntityMaster{} }}

	topicA, err := NewTopic(zerolog.Nop(), psA, "entity-master", codec, hostA.ID())
	require.NoError(t, err)
	defer topicA.Close()

	topicB, err := NewTopic(zerolog.Nop(), psB, "entity-master", codec, hostB.ID())
	require.NoError(t, err)
	defer topicB.Close()

	reader, err := NewReader(zerolog.Nop(), topicB)
	require.NoError(t, err)
	defer reader.Close()

	// Give floodsub's peer-discovery gossip a moment to wire hostB's
	// subscription into hostA's view of the topic mesh.
	time.Sleep(200 * time.Millisecond)

	writer := NewWriter(topicA)
	require.NoError(t, writer.Write(lifecycle.DataSample{
		NetworkID: 1000,
		Data:      lifecycle.EntityMaster{NetworkID: 1000, DisType: 5, PrimaryOwnerID: "node-a"},
	}))

	require.Eventually(t, func() bool {
		return len(reader.TakeSamples()) > 0
	}, 5*time.Second, 50*time.Millisecond, "expected hostB's reader to observe the published sample")
}
