package sstable

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"

	"lsmkv/memtable"
	"lsmkv/shared"
	"lsmkv/sstable/filter"
)

// Builder takes a snapshot of a populated skip list and computes the
// bloom filter, key/offset directory, and packed value region needed to
// write one immutable SSTable file.
type Builder struct {
	minKey, maxKey shared.Key
	kvPairCount    uint64
	lenOfAllValues uint64
	bloom          *filter.Bloom
	dir            []DirEntry
	values         [][]byte
}

// Build scans list in key order and computes everything Builder needs.
// list MUST be non-empty; the coordinator never flushes an empty memtable.
func Build(list *memtable.SkipList[shared.Key]) (*Builder, error) {
	entries := list.All()
	if len(entries) == 0 {
		return nil, fmt.Errorf("sstable: build: memtable is empty")
	}

	b := &Builder{
		bloom:       filter.New(),
		kvPairCount: uint64(len(entries)),
		minKey:      entries[0].Key,
		maxKey:      entries[len(entries)-1].Key,
	}

	var offset uint64
	for _, kv := range entries {
		b.dir = append(b.dir, DirEntry{Key: kv.Key, Offset: offset})
		b.values = append(b.values, kv.Value)
		b.bloom.Add(kv.Key)
		offset += uint64(len(kv.Value))
	}
	b.lenOfAllValues = offset
	return b, nil
}

// WriteFile writes the built table to path, atomically (via a temp file
// plus rename, so a crash mid-write never leaves a partial file visible
// at the final name), tagged with the given timestamp. It returns the
// in-memory Summary for the written run; callers set Layer/Serial.
func (b *Builder) WriteFile(path string, timestamp uint64) (*Summary, error) {
	tmp := fmt.Sprintf("%s.tmp.%d", path, timestamp)
	f, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("sstable: create %q: %w", tmp, err)
	}

	if err := b.writeTo(f, timestamp); err != nil {
		f.Close()
		os.Remove(tmp)
		return nil, err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return nil, fmt.Errorf("sstable: sync %q: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("sstable: close %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("sstable: rename %q to %q: %w", tmp, path, err)
	}

	return &Summary{
		Timestamp:   timestamp,
		MinKey:      b.minKey,
		MaxKey:      b.maxKey,
		KVPairCount: b.kvPairCount,
		Bloom:       b.bloom,
		KeyOffset:   append([]DirEntry(nil), b.dir...),
	}, nil
}

func (b *Builder) writeTo(f *os.File, timestamp uint64) error {
	w := bufio.NewWriter(f)

	header := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint64(header[0:8], timestamp)
	binary.LittleEndian.PutUint64(header[8:16], b.lenOfAllValues)
	binary.LittleEndian.PutUint64(header[16:24], b.minKey)
	binary.LittleEndian.PutUint64(header[24:32], b.maxKey)
	binary.LittleEndian.PutUint64(header[32:40], b.kvPairCount)
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("sstable: write header: %w", err)
	}

	if _, err := w.Write(b.bloom.Bytes()); err != nil {
		return fmt.Errorf("sstable: write bloom: %w", err)
	}

	entry := make([]byte, DirEntrySize)
	for _, d := range b.dir {
		binary.LittleEndian.PutUint64(entry[0:8], d.Key)
		binary.LittleEndian.PutUint64(entry[8:16], d.Offset)
		if _, err := w.Write(entry); err != nil {
			return fmt.Errorf("sstable: write directory entry: %w", err)
		}
	}

	for _, v := range b.values {
		if _, err := w.Write(v); err != nil {
			return fmt.Errorf("sstable: write value: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("sstable: flush: %w", err)
	}
	return nil
}
