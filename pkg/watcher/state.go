package watcher

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketState = []byte("watch_state")

const stateKey = "current"

// State is the persisted identity of a watcher: its session id and the
// last journal sequence number it handed out.
type State struct {
	Session string `json:"session"`
	Seq     uint64 `json:"seq"`
}

// StateStore persists watcher state across process restarts.
type StateStore interface {
	// Load returns the stored state, or the zero State when none
	// has been saved yet.
	Load() (State, error)

	// Save stores the state.
	Save(State) error

	// Close releases store resources.
	Close() error
}

// boltStateStore implements StateStore using BoltDB.
type boltStateStore struct {
	db *bolt.DB
	mu sync.Mutex
}

// NewBoltStateStore opens (or creates) a BoltDB-backed state store at
// path. The gitdir is the conventional location for the file so the
// state travels with the repository.
func NewBoltStateStore(path string) (StateStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open state database %s: %w", path, err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, createErr := tx.CreateBucketIfNotExists(bucketState)
		return createErr
	}); err != nil {
		_ = db.Close() // nolint:errcheck
		return nil, fmt.Errorf("failed to create state bucket: %w", err)
	}

	return &boltStateStore{db: db}, nil
}

// Load implements StateStore.Load.
func (s *boltStateStore) Load() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var state State
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketState).Get([]byte(stateKey))
		if data == nil {
			return nil
		}
		if unmarshalErr := json.Unmarshal(data, &state); unmarshalErr != nil {
			return fmt.Errorf("failed to unmarshal watcher state: %w", unmarshalErr)
		}
		return nil
	})
	if err != nil {
		return State{}, err
	}
	return state, nil
}

// Save implements StateStore.Save.
func (s *boltStateStore) Save(state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("failed to marshal watcher state: %w", err)
		}
		if putErr := tx.Bucket(bucketState).Put([]byte(stateKey), data); putErr != nil {
			return fmt.Errorf("failed to store watcher state: %w", putErr)
		}
		return nil
	})
}

// Close implements StateStore.Close.
func (s *boltStateStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// memoryStateStore implements StateStore using a plain struct.
// Useful for testing and for callers that do not need persistence.
type memoryStateStore struct {
	mu    sync.Mutex
	state State
}

// NewMemoryStateStore creates an in-memory state store.
func NewMemoryStateStore() StateStore {
	return &memoryStateStore{}
}

// Load implements StateStore.Load.
func (s *memoryStateStore) Load() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, nil
}

// Save implements StateStore.Save.
func (s *memoryStateStore) Save(state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	return nil
}

// Close implements StateStore.Close.
func (s *memoryStateStore) Close() error {
	return nil
}
