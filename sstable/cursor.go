package sstable

import (
	"fmt"
	"io"
	"os"

	"lsmkv/shared"
)

// Record is one (key, value) pair streamed out of a run during a full
// scan, tagged with the provenance (layer, serial) of the file it came
// from so the caller can break ties during a k-way merge.
type Record struct {
	Layer  uint32
	Serial uint64
	Key    shared.Key
	Value  []byte
}

// Cursor is a lazy, ordered, forward-only reader over every (key, value)
// pair in one SSTable file, used by compaction's k-way merge so that no
// single file's entire value region needs to be resident in memory.
type Cursor struct {
	f         *os.File
	dir       []DirEntry
	lenAll    uint64
	valueBase int64
	idx       int
	layer     uint32
	serial    uint64
}

// FilterAll opens an SSTable for a full, ordered scan: it materializes
// the directory into memory up front, then streams the packed value
// region lazily as Next is called.
func FilterAll(path string, layer uint32, serial uint64) (*Cursor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sstable: open %q: %w", path, err)
	}

	hdr, err := readHeader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.Seek(int64(BloomBytesSize), io.SeekCurrent); err != nil {
		f.Close()
		return nil, fmt.Errorf("sstable: skip bloom in %q: %w", path, err)
	}

	dir, err := readDirectory(f, hdr.kvPairCount)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("sstable: %q: %w", path, err)
	}

	valueBase := int64(FixedHeaderSize) + int64(hdr.kvPairCount)*int64(DirEntrySize)
	return &Cursor{
		f:         f,
		dir:       dir,
		lenAll:    hdr.lenOfAllValues,
		valueBase: valueBase,
		layer:     layer,
		serial:    serial,
	}, nil
}

// Next returns the next record in key-ascending order, or ok=false once
// the run is exhausted.
func (c *Cursor) Next() (rec Record, ok bool, err error) {
	if c.idx >= len(c.dir) {
		return Record{}, false, nil
	}
	entry := c.dir[c.idx]

	var length uint64
	if c.idx+1 < len(c.dir) {
		length = c.dir[c.idx+1].Offset - entry.Offset
	} else {
		length = c.lenAll - entry.Offset
	}

	if _, err := c.f.Seek(c.valueBase+int64(entry.Offset), io.SeekStart); err != nil {
		return Record{}, false, fmt.Errorf("sstable: seek value: %w", err)
	}
	value := make([]byte, length)
	if _, err := io.ReadFull(c.f, value); err != nil {
		return Record{}, false, fmt.Errorf("sstable: read value: %w", err)
	}

	c.idx++
	return Record{Layer: c.layer, Serial: c.serial, Key: entry.Key, Value: value}, true, nil
}

// Close releases the underlying file handle.
func (c *Cursor) Close() error {
	if err := c.f.Close(); err != nil {
		return fmt.Errorf("sstable: close cursor: %w", err)
	}
	return nil
}
