package sstable

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"lsmkv/shared"
	"lsmkv/sstable/filter"
)

// fileHeader is the parsed form of the five fixed fields at the start of
// every SSTable file. Unlike Summary, it carries lenOfAllValues — needed
// internally to derive the final entry's value length — which the public
// Summary shape deliberately omits.
type fileHeader struct {
	timestamp      uint64
	lenOfAllValues uint64
	minKey         shared.Key
	maxKey         shared.Key
	kvPairCount    uint64
}

func readHeader(r io.Reader) (fileHeader, error) {
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return fileHeader{}, fmt.Errorf("sstable: read header: %w", err)
	}
	return fileHeader{
		timestamp:      binary.LittleEndian.Uint64(buf[0:8]),
		lenOfAllValues: binary.LittleEndian.Uint64(buf[8:16]),
		minKey:         binary.LittleEndian.Uint64(buf[16:24]),
		maxKey:         binary.LittleEndian.Uint64(buf[24:32]),
		kvPairCount:    binary.LittleEndian.Uint64(buf[32:40]),
	}, nil
}

func readDirectory(r io.Reader, count uint64) ([]DirEntry, error) {
	dir := make([]DirEntry, count)
	entry := make([]byte, DirEntrySize)
	for i := range dir {
		if _, err := io.ReadFull(r, entry); err != nil {
			return nil, fmt.Errorf("sstable: read directory entry %d: %w", i, err)
		}
		dir[i] = DirEntry{
			Key:    binary.LittleEndian.Uint64(entry[0:8]),
			Offset: binary.LittleEndian.Uint64(entry[8:16]),
		}
	}
	return dir, nil
}

// ReadSummary loads only the header, bloom filter, and directory of the
// SSTable at path — never the value region — into an in-memory Summary
// tagged with the given layer and serial.
func ReadSummary(path string, layer uint32, serial uint64) (*Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sstable: open %q: %w", path, err)
	}
	defer f.Close()

	hdr, err := readHeader(f)
	if err != nil {
		return nil, err
	}

	bloomBytes := make([]byte, BloomBytesSize)
	if _, err := io.ReadFull(f, bloomBytes); err != nil {
		return nil, fmt.Errorf("sstable: read bloom from %q: %w", path, err)
	}
	bloom, err := filter.Decode(bloomBytes)
	if err != nil {
		return nil, fmt.Errorf("sstable: %q: %w", path, err)
	}

	dir, err := readDirectory(f, hdr.kvPairCount)
	if err != nil {
		return nil, fmt.Errorf("sstable: %q: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("sstable: stat %q: %w", path, err)
	}
	wantSize := int64(FixedHeaderSize) + int64(hdr.kvPairCount)*int64(DirEntrySize) + int64(hdr.lenOfAllValues)
	if info.Size() != wantSize {
		return nil, &shared.CorruptSSTableError{
			Path:   path,
			Reason: fmt.Sprintf("file size %d bytes does not match header-implied size %d bytes", info.Size(), wantSize),
		}
	}

	return &Summary{
		Layer:       layer,
		Serial:      serial,
		Timestamp:   hdr.timestamp,
		MinKey:      hdr.minKey,
		MaxKey:      hdr.maxKey,
		KVPairCount: hdr.kvPairCount,
		Bloom:       bloom,
		KeyOffset:   dir,
	}, nil
}

// ReadValueAt reads the single value stored at the given value-region
// offset within the SSTable at path. It fails with a CorruptSSTableError
// if no directory entry names that exact offset.
func ReadValueAt(path string, offset uint64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sstable: open %q: %w", path, err)
	}
	defer f.Close()

	hdr, err := readHeader(f)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(int64(BloomBytesSize), io.SeekCurrent); err != nil {
		return nil, fmt.Errorf("sstable: skip bloom in %q: %w", path, err)
	}

	entry := make([]byte, DirEntrySize)
	var length uint64
	found := false
	for i := uint64(0); i < hdr.kvPairCount; i++ {
		if _, err := io.ReadFull(f, entry); err != nil {
			return nil, fmt.Errorf("sstable: read directory entry %d from %q: %w", i, path, err)
		}
		entryOffset := binary.LittleEndian.Uint64(entry[8:16])
		if entryOffset != offset {
			continue
		}
		found = true
		if i+1 < hdr.kvPairCount {
			var next [DirEntrySize]byte
			if _, err := io.ReadFull(f, next[:]); err != nil {
				return nil, fmt.Errorf("sstable: read directory entry %d from %q: %w", i+1, path, err)
			}
			length = binary.LittleEndian.Uint64(next[8:16]) - offset
		} else {
			length = hdr.lenOfAllValues - offset
		}
		break
	}
	if !found {
		return nil, &shared.CorruptSSTableError{
			Path:   path,
			Reason: fmt.Sprintf("no directory entry at value offset %d", offset),
		}
	}

	valueStart := int64(FixedHeaderSize) + int64(hdr.kvPairCount)*int64(DirEntrySize) + int64(offset)
	if _, err := f.Seek(valueStart, io.SeekStart); err != nil {
		return nil, fmt.Errorf("sstable: seek value in %q: %w", path, err)
	}
	value := make([]byte, length)
	if _, err := io.ReadFull(f, value); err != nil {
		return nil, fmt.Errorf("sstable: read value from %q: %w", path, err)
	}
	return value, nil
}
