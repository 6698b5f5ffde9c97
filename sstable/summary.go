package sstable

import "lsmkv/sstable/filter"

// Summary is an in-memory projection of a persisted SSTable: everything
// needed to decide, without touching the file's value region, whether a
// key might live in this run and at what offset. It holds no value bytes.
type Summary struct {
	Layer       uint32
	Serial      uint64
	Timestamp   uint64
	MinKey      uint64
	MaxKey      uint64
	KVPairCount uint64
	Bloom       *filter.Bloom
	KeyOffset   []DirEntry
}
