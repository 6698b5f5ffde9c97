// Package wal implements the write-ahead log the coordinator appends to
// before every memtable insert, and replays on open to recover writes that
// were acknowledged but never reached a flushed SSTable.
package wal

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"lsmkv/shared"
)

// Record is one durable (key, value) pair read back during replay.
type Record struct {
	Key   shared.Key
	Value []byte
}

// Log is an append-only file of records, each the concatenation of the
// key's native-width bytes, an 8-byte little-endian value length, and the
// value bytes themselves.
type Log struct {
	path string
	f    *os.File
}

// Open opens (creating if necessary) the WAL file at path for appending.
// It does not read or replay existing content; call Replay separately.
func Open(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("wal: open %q: %w", path, err)
	}
	return &Log{path: path, f: f}, nil
}

// Append durably writes one record. The record is flushed to the
// underlying file before Append returns, so a crash immediately after a
// successful Append leaves the record recoverable.
func (l *Log) Append(key shared.Key, value []byte) error {
	buf := make([]byte, 8+8+len(value))
	binary.LittleEndian.PutUint64(buf[0:8], key)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(len(value)))
	copy(buf[16:], value)

	if _, err := l.f.Write(buf); err != nil {
		return fmt.Errorf("wal: append to %q: %w", l.path, err)
	}
	return l.f.Sync()
}

// Clear truncates the log to empty, keeping it open for further appends.
func (l *Log) Clear() error {
	if err := l.f.Truncate(0); err != nil {
		return fmt.Errorf("wal: truncate %q: %w", l.path, err)
	}
	if _, err := l.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("wal: seek %q: %w", l.path, err)
	}
	return nil
}

// Close releases the underlying file handle.
func (l *Log) Close() error {
	if err := l.f.Close(); err != nil {
		return fmt.Errorf("wal: close %q: %w", l.path, err)
	}
	return nil
}

// Replay reads every complete record from the WAL at path, in append
// order. A short/torn record at end-of-file — a crash mid-append — is
// dropped silently rather than reported as an error, since its put was
// never acknowledged to any caller.
func Replay(path string) ([]Record, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("wal: open %q for replay: %w", path, err)
	}
	defer f.Close()

	r := io.Reader(f)
	var records []Record
	header := make([]byte, 16)
	for {
		if _, err := io.ReadFull(r, header); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return nil, fmt.Errorf("wal: read header from %q: %w", path, err)
		}
		key := binary.LittleEndian.Uint64(header[0:8])
		length := binary.LittleEndian.Uint64(header[8:16])

		value := make([]byte, length)
		if _, err := io.ReadFull(r, value); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return nil, fmt.Errorf("wal: read value from %q: %w", path, err)
		}
		records = append(records, Record{Key: key, Value: value})
	}
	return records, nil
}
