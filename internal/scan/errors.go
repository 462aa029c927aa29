package scan

import (
	"errors"
	"fmt"
)

// StorageKind classifies history storage failures
type StorageKind int

const (
	// StorageUnavailable means the storage medium could not be read or written
	StorageUnavailable StorageKind = iota + 1
	// CorruptData means persisted content could not be deserialized
	CorruptData
)

func (k StorageKind) String() string {
	switch k {
	case StorageUnavailable:
		return "storage unavailable"
	case CorruptData:
		return "corrupt data"
	default:
		return "storage error"
	}
}

var (
	ErrStorageUnavailable = errors.New("scan history storage unavailable")
	ErrCorruptData        = errors.New("scan history data is corrupt")
	ErrDuplicateID        = errors.New("scan record id already exists")
	ErrRecordNotFound     = errors.New("scan record not found")
	ErrLocationRequired   = errors.New("location is required")
)

// StorageError wraps a failure of the history's underlying key-value store
type StorageError struct {
	Kind StorageKind
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	switch target {
	case ErrStorageUnavailable:
		return e.Kind == StorageUnavailable
	case ErrCorruptData:
		return e.Kind == CorruptData
	}
	return false
}
