package shared

import (
	"errors"
	"fmt"
)

// ErrNotFound marks an absent key. It is not treated as a real error by
// the coordinator: Get returns (nil, false, nil) rather than wrapping it.
var ErrNotFound = errors.New("lsmkv: not found")

// ErrInvalidArgument marks a caller mistake: a reserved sentinel key or a
// value colliding with the tombstone literal. memtable.SkipList.Scan does
// not report it: an inverted range (lo > hi) returns an empty result.
var ErrInvalidArgument = errors.New("lsmkv: invalid argument")

// CorruptSSTableError is returned when an SSTable's header fields are
// inconsistent with the file actually on disk. It is fatal: the caller
// MUST NOT continue to rely on the file it names.
type CorruptSSTableError struct {
	Path   string
	Reason string
}

func (e *CorruptSSTableError) Error() string {
	return fmt.Sprintf("lsmkv: corrupt sstable %s: %s", e.Path, e.Reason)
}
