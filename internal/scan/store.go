package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

const (
	// CollectionKey is the slot holding the JSON array of scan records
	CollectionKey = "scannedPests"

	// corruptKey receives the raw bytes of a collection that failed to decode, before it is overwritten
	corruptKey = CollectionKey + ".corrupt"
)

// Store is the scan history: an append-only JSON collection in a single KV slot.
// Every write replaces the whole collection. Writes are serialized within the process
// but not across processes sharing the same backing file.
type Store struct {
	kv        KV
	mu        sync.Mutex
	onCorrupt func(error)
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithCorruptionHandler is called whenever the persisted collection cannot be decoded.
// The store then behaves as if the collection were empty.
func WithCorruptionHandler(fn func(error)) StoreOption {
	return func(s *Store) {
		s.onCorrupt = fn
	}
}

// NewStore creates a Store over kv
func NewStore(kv KV, opts ...StoreOption) *Store {
	s := &Store{
		kv: kv,
		onCorrupt: func(err error) {
			slog.Warn("Scan history is corrupt, treating it as empty", "key", CollectionKey, "error", err)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// load reads the collection. An absent key is an empty collection.
// raw is returned alongside an empty collection when the stored bytes are corrupt.
func (s *Store) load(ctx context.Context) (records []ScanRecord, raw []byte, err error) {
	data, ok, err := s.kv.Get(ctx, CollectionKey)
	if err != nil {
		return nil, nil, &StorageError{Kind: StorageUnavailable, Err: err}
	}
	if !ok {
		return []ScanRecord{}, nil, nil
	}

	if err := json.Unmarshal(data, &records); err != nil {
		s.onCorrupt(&StorageError{Kind: CorruptData, Err: err})
		return []ScanRecord{}, data, nil
	}
	if records == nil {
		records = []ScanRecord{}
	}
	return records, nil, nil
}

// save replaces the collection, first preserving any corrupt content it is about to overwrite
func (s *Store) save(ctx context.Context, records []ScanRecord, corrupt []byte) error {
	if corrupt != nil {
		if err := s.kv.Set(ctx, corruptKey, corrupt); err != nil {
			return &StorageError{Kind: StorageUnavailable, Err: fmt.Errorf("preserving corrupt history: %w", err)}
		}
		slog.Warn("Preserved corrupt scan history before overwriting", "key", corruptKey, "size", len(corrupt))
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshaling scan history: %w", err)
	}
	if err := s.kv.Set(ctx, CollectionKey, data); err != nil {
		return &StorageError{Kind: StorageUnavailable, Err: err}
	}
	return nil
}

// ListAll returns every record in storage order
func (s *Store) ListAll(ctx context.Context) ([]ScanRecord, error) {
	records, _, err := s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing scans: %w", err)
	}
	return records, nil
}

// Get returns the record with id
func (s *Store) Get(ctx context.Context, id string) (*ScanRecord, error) {
	records, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID == id {
			return &records[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
}

// Append adds record to the end of the collection
func (s *Store) Append(ctx context.Context, record ScanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, corrupt, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("appending scan: %w", err)
	}
	for _, r := range records {
		if r.ID == record.ID {
			return fmt.Errorf("appending scan: %w: %s", ErrDuplicateID, record.ID)
		}
	}

	if err := s.save(ctx, append(records, record), corrupt); err != nil {
		return fmt.Errorf("appending scan: %w", err)
	}
	return nil
}

// DeleteByID removes the record with id. An unknown id is a no-op.
func (s *Store) DeleteByID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, corrupt, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("deleting scan: %w", err)
	}

	kept := make([]ScanRecord, 0, len(records))
	for _, r := range records {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(records) {
		return nil
	}

	if err := s.save(ctx, kept, corrupt); err != nil {
		return fmt.Errorf("deleting scan: %w", err)
	}
	return nil
}

// Clear empties the collection. It cannot be undone.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Remove(ctx, CollectionKey); err != nil {
		return fmt.Errorf("clearing scans: %w", &StorageError{Kind: StorageUnavailable, Err: err})
	}
	return nil
}
