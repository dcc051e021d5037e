package lifecycle

// DataReader abstracts one inbound sample stream. Each translator owns
// exactly one reader for the message type it cares about. TakeSamples
// returns and clears whatever has arrived since the last call — a
// non-blocking, non-destructive-to-the-sender drain, matching the spec's
// transport-agnostic DataReader.take_samples() contract.
type DataReader interface {
	TakeSamples() []DataSample
}

// DataWriter abstracts one outbound publication stream.
type DataWriter interface {
	Write(sample DataSample) error
}

// Topology answers "which peers does dis_type X expect to hear from"
// for the reliable-init gateway. A real deployment backs this with
// cluster membership/discovery; tests back it with a fixed map.
type Topology interface {
	ExpectedPeers(disType uint32) []NodeID
}

// StaticTopology is a fixed-membership Topology, good enough for a
// single-cluster deployment and for tests.
type StaticTopology struct {
	peers map[uint32][]NodeID
}

func NewStaticTopology(peers map[uint32][]NodeID) *StaticTopology {
	return &StaticTopology{peers: peers}
}

func (t *StaticTopology) ExpectedPeers(disType uint32) []NodeID {
	return t.peers[disType]
}
