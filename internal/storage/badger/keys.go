// Package badger is the durable-persistence wrapper for the distributed
// entity lifecycle's bookkeeping: the network-id-to-entity-handle map and
// the per-descriptor ownership ledger. It never persists simulation
// content (component data), only the identity and authority records a
// restarted node needs to avoid re-accepting ownership it had already
// been granted. Key layout and batching discipline are grounded on the
// teacher's storage/badger/operation package and
// module/executiondatasync/tracker/storage.go.
package badger

import (
	"encoding/binary"
	"errors"

	"github.com/dgraph-io/badger/v2"
)

// badger key prefixes. Each record family gets its own prefix byte so a
// single shared DB can host the id map, the ownership ledger, and the
// pending-ack snapshot without key collisions.
const (
	prefixIDMapping   byte = iota + 1 // networkID -> Entity{Index,Generation}
	prefixOwnership                   // (networkID, descType, instanceID) -> owner NodeID
	prefixPendingPeer                 // (networkID, peer) -> presence marker for a pending ack barrier
)

const idMappingKeyLength = 1 + 8

func makeIDMappingKey(networkID uint64) []byte {
	key := make([]byte, idMappingKeyLength)
	key[0] = prefixIDMapping
	binary.BigEndian.PutUint64(key[1:], networkID)
	return key
}

const ownershipKeyLength = 1 + 8 + 4 + 4

func makeOwnershipKey(networkID uint64, descriptorType, instanceID uint32) []byte {
	key := make([]byte, ownershipKeyLength)
	key[0] = prefixOwnership
	binary.BigEndian.PutUint64(key[1:9], networkID)
	binary.BigEndian.PutUint32(key[9:13], descriptorType)
	binary.BigEndian.PutUint32(key[13:17], instanceID)
	return key
}

func ownershipPrefixForEntity(networkID uint64) []byte {
	key := make([]byte, 1+8)
	key[0] = prefixOwnership
	binary.BigEndian.PutUint64(key[1:], networkID)
	return key
}

func parseOwnershipKey(key []byte) (networkID uint64, descriptorType, instanceID uint32) {
	networkID = binary.BigEndian.Uint64(key[1:9])
	descriptorType = binary.BigEndian.Uint32(key[9:13])
	instanceID = binary.BigEndian.Uint32(key[13:17])
	return
}

func makePendingPeerKey(networkID uint64, peer string) []byte {
	key := make([]byte, 1+8+len(peer))
	key[0] = prefixPendingPeer
	binary.BigEndian.PutUint64(key[1:9], networkID)
	copy(key[9:], peer)
	return key
}

func pendingPeerPrefixForEntity(networkID uint64) []byte {
	key := make([]byte, 1+8)
	key[0] = prefixPendingPeer
	binary.BigEndian.PutUint64(key[1:], networkID)
	return key
}

// retryOnConflict retries fn against an optimistic-concurrency conflict,
// the same pattern the teacher's tracker storage uses around
// db.Update.
func retryOnConflict(db *badger.DB, fn func(txn *badger.Txn) error) error {
	for {
		err := db.Update(fn)
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		return err
	}
}
