package badger

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v2"
	"github.com/rs/zerolog"

	"github.com/pjanec/simhost/internal/ids"
)

// ErrNotFound is returned by a lookup that finds no record, mirroring the
// teacher's storage.ErrNotFound sentinel so callers can use errors.Is
// instead of comparing against badger's own error type.
var ErrNotFound = errors.New("badger: not found")

// Store persists the distributed entity lifecycle's identity and
// ownership bookkeeping: the network-id-to-Entity map and the
// per-descriptor ownership ledger. It never stores component data; the
// live World remains the sole source of truth for simulation content,
// per the original spec's non-goals.
type Store struct {
	mu     sync.RWMutex
	db     *badger.DB
	logger zerolog.Logger
}

// Open opens (or creates) a badger database at dbPath.
func Open(dbPath string, logger zerolog.Logger) (*Store, error) {
	db, err := badger.Open(badger.LSMOnlyOptions(dbPath))
	if err != nil {
		return nil, fmt.Errorf("could not open lifecycle store: %w", err)
	}
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "lifecycle_store").Logger(),
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// PutMapping records that networkID resolves to e. Called (through
// Registry.Bind) from the translators' ingress path once an entity has
// actually been created, the
// same "record durably, then continue" ordering as the teacher's
// InsertHeader/IndexBlockHeight operations.
func (s *Store) PutMapping(networkID uint64, e ids.Entity) error {
	value := make([]byte, 8)
	binary.BigEndian.PutUint32(value[0:4], uint32(e.Index))
	binary.BigEndian.PutUint32(value[4:8], uint32(e.Generation))

	return retryOnConflict(s.db, func(txn *badger.Txn) error {
		return txn.Set(makeIDMappingKey(networkID), value)
	})
}

// GetMapping looks up the Entity bound to networkID. Returns ErrNotFound
// if no record exists.
func (s *Store) GetMapping(networkID uint64) (ids.Entity, error) {
	var e ids.Entity
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(makeIDMappingKey(networkID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to find id mapping: %w", err)
		}
		value, err := item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("failed to read id mapping value: %w", err)
		}
		e = ids.Entity{
			Index:      int32(binary.BigEndian.Uint32(value[0:4])),
			Generation: int32(binary.BigEndian.Uint32(value[4:8])),
		}
		return nil
	})
	return e, err
}

// DeleteMapping removes networkID's id mapping and every ownership record
// held for it, used when the lifecycle manager destroys an entity.
func (s *Store) DeleteMapping(networkID uint64) error {
	return retryOnConflict(s.db, func(txn *badger.Txn) error {
		if err := txn.Delete(makeIDMappingKey(networkID)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to delete id mapping: %w", err)
		}
		return deletePrefix(txn, ownershipPrefixForEntity(networkID))
	})
}

// PutOwnership records that owner holds (descriptorType, instanceID) on
// networkID.
func (s *Store) PutOwnership(networkID uint64, descriptorType, instanceID uint32, owner string) error {
	return retryOnConflict(s.db, func(txn *badger.Txn) error {
		return txn.Set(makeOwnershipKey(networkID, descriptorType, instanceID), []byte(owner))
	})
}

// OwnershipRecord is one durable descriptor-ownership grant, returned by
// LoadOwnership for replay into an in-memory DescriptorOwnership map on
// startup.
type OwnershipRecord struct {
	DescriptorType uint32
	InstanceID     uint32
	Owner          string
}

// LoadOwnership returns every ownership record held for networkID, the
// restart-recovery path a node uses to rebuild its in-memory
// DescriptorOwnership before accepting any new network traffic.
func (s *Store) LoadOwnership(networkID uint64) ([]OwnershipRecord, error) {
	var out []OwnershipRecord
	prefix := ownershipPrefixForEntity(networkID)

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, Prefix: prefix})
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			_, descriptorType, instanceID := parseOwnershipKey(item.Key())
			value, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("failed to read ownership value: %w", err)
			}
			out = append(out, OwnershipRecord{
				DescriptorType: descriptorType,
				InstanceID:     instanceID,
				Owner:          string(value),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PutPendingPeers overwrites the set of peers a reliable-init barrier is
// still waiting on for networkID, so a restarted gateway can resume
// waiting on exactly the right peer set instead of either re-waiting on
// everyone or force-acking early.
func (s *Store) PutPendingPeers(networkID uint64, peers []string) error {
	return retryOnConflict(s.db, func(txn *badger.Txn) error {
		prefix := pendingPeerPrefixForEntity(networkID)
		if err := deletePrefix(txn, prefix); err != nil {
			return err
		}
		for _, p := range peers {
			if err := txn.Set(makePendingPeerKey(networkID, p), nil); err != nil {
				return fmt.Errorf("failed to set pending peer record: %w", err)
			}
		}
		return nil
	})
}

// LoadPendingPeers returns the peers still outstanding for networkID's
// reliable-init barrier, or nil if none are recorded.
func (s *Store) LoadPendingPeers(networkID uint64) ([]string, error) {
	var out []string
	prefix := pendingPeerPrefixForEntity(networkID)

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false, Prefix: prefix})
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			out = append(out, string(key[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// deletePrefix removes every key under prefix within txn. No errors are
// expected during normal operation even if no keys match, matching the
// teacher's BatchRemoveBlockIDByChunkID contract.
func deletePrefix(txn *badger.Txn, prefix []byte) error {
	it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false, Prefix: prefix})
	defer it.Close()

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	for _, k := range keys {
		if err := txn.Delete(k); err != nil {
			return fmt.Errorf("failed to delete key under prefix: %w", err)
		}
	}
	return nil
}
