package sstable

import "lsmkv/sstable/filter"

// HeaderSize is the width, in bytes, of the five fixed uint64 fields that
// open every SSTable file: timestamp, lenOfAllValues, minKey, maxKey,
// kvPairCount.
const HeaderSize = 5 * 8

// BloomBytesSize is the width, in bytes, of the persisted bloom filter.
const BloomBytesSize = filter.Size / 8

// FixedHeaderSize is HeaderSize plus the bloom filter — everything that
// precedes the key/offset directory.
const FixedHeaderSize = HeaderSize + BloomBytesSize

// DirEntrySize is the width, in bytes, of one (key, offset) directory
// entry: an 8-byte key followed by an 8-byte little-endian offset.
const DirEntrySize = 16

// DirEntry is one key/value-offset pair from an SSTable's directory.
// Offsets are relative to the start of the packed value region, not to
// the start of the file.
type DirEntry struct {
	Key    uint64
	Offset uint64
}
