// Package lsm implements the coordinator: the single entry point that
// owns the memtable, the write-ahead log, and the per-level summary
// caches, and drives flush-on-threshold and tiered compaction.
package lsm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"lsmkv/levelcache"
	"lsmkv/memtable"
	"lsmkv/shared"
	"lsmkv/sstable"
	"lsmkv/wal"
)

// Engine is the embedded storage engine. The zero value is not usable;
// construct one with Open. An Engine is single-threaded and cooperative:
// every public method is guarded by an internal mutex, so concurrent
// callers serialize rather than race, but there is no attempt at
// fairness, cancellation, or partial progress under contention.
type Engine struct {
	mu sync.Mutex

	dataDir string
	log     Logger
	seed    int64

	memTable   *memtable.SkipList[shared.Key]
	mergeTable *memtable.SkipList[shared.Key]
	wal        *wal.Log

	diskCache       [shared.LSMMaxLayer]*levelcache.LevelCache
	availableSerial [shared.LSMMaxLayer]uint64
	curTimestamp    uint64
	depth           int
}

// Option configures an Engine at Open time.
type Option func(*Engine)

// WithLogger overrides the default zap-backed Logger.
func WithLogger(l Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithSeed fixes the memtable PRNG seed, for reproducible tower shapes in
// tests. Production callers should not need this.
func WithSeed(seed int64) Option {
	return func(e *Engine) { e.seed = seed }
}

// Open constructs an engine rooted at dataDir, creating the directory
// layout if needed, loading existing run summaries, and replaying any
// pending WAL records left by a prior process that never closed cleanly.
func Open(dataDir string, opts ...Option) (*Engine, error) {
	e := &Engine{
		dataDir: dataDir,
		log:     defaultLogger(),
		seed:    0x12345678,
	}
	for _, opt := range opts {
		opt(e)
	}

	for i := range e.diskCache {
		e.diskCache[i] = levelcache.New()
	}
	e.memTable = memtable.New[shared.Key](e.seed)
	e.mergeTable = memtable.New[shared.Key](e.seed + 1)

	if err := os.MkdirAll(shared.DataDir(dataDir), 0755); err != nil {
		return nil, fmt.Errorf("lsm: create data dir: %w", err)
	}
	if err := os.MkdirAll(shared.LogDir(dataDir), 0755); err != nil {
		return nil, fmt.Errorf("lsm: create log dir: %w", err)
	}

	if err := e.loadSummaries(); err != nil {
		return nil, err
	}

	walLog, err := wal.Open(shared.WALPath(dataDir))
	if err != nil {
		return nil, err
	}
	e.wal = walLog

	if err := e.replayWAL(); err != nil {
		return nil, err
	}

	e.log.Infow("engine opened", "dataDir", dataDir, "depth", e.depth)
	return e, nil
}

// loadSummaries scans dataDir/data/level-<L> for each L in order, loading
// every run's header+bloom+directory into the level's cache. It must run
// before replayWAL, so replay-induced flushes see the disk state that
// existed before the crash.
func (e *Engine) loadSummaries() error {
	for level := 0; level < shared.LSMMaxLayer; level++ {
		dir := shared.LevelDir(e.dataDir, level)
		entries, err := os.ReadDir(dir)
		if errors.Is(err, os.ErrNotExist) {
			break
		}
		if err != nil {
			return fmt.Errorf("lsm: read %q: %w", dir, err)
		}

		var serials []uint64
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			serial, ok := shared.ParseSSTableSerial(entry.Name())
			if !ok {
				continue
			}
			serials = append(serials, serial)
		}
		// Ascending, so that Insert's front-push leaves the highest
		// serial at the front — matching the "front is newest" invariant
		// levelcache.Search relies on. See DESIGN.md for why the naive
		// "sort descending, then front-push" order inverts this.
		sort.Slice(serials, func(i, j int) bool { return serials[i] < serials[j] })

		for _, serial := range serials {
			path := filepath.Join(dir, shared.SSTableName(serial))
			summary, err := sstable.ReadSummary(path, uint32(level), serial)
			if err != nil {
				return err
			}
			e.diskCache[level].Insert(summary)
			if summary.Timestamp >= e.curTimestamp {
				e.curTimestamp = summary.Timestamp + 1
			}
		}
		if len(serials) > 0 {
			e.availableSerial[level] = serials[len(serials)-1] + 1
			e.depth = level
		}
	}
	return nil
}

// replayWAL reads every complete record left in the WAL from a prior
// session and applies each as an ordinary put, then truncates the log.
func (e *Engine) replayWAL() error {
	records, err := wal.Replay(shared.WALPath(e.dataDir))
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	e.log.Infow("replaying wal records", "count", len(records))
	for _, rec := range records {
		if _, err := e.putLocked(rec.Key, rec.Value); err != nil {
			return fmt.Errorf("lsm: replay wal: %w", err)
		}
	}
	return e.wal.Clear()
}

// Put inserts or overwrites key with value, returning true iff this
// created a new entry (false for an overwrite — either case is success).
func (e *Engine) Put(key shared.Key, value []byte) (bool, error) {
	if key == shared.MinKey || key == shared.MaxKey {
		return false, fmt.Errorf("lsm: put: key %d: %w", key, shared.ErrInvalidArgument)
	}
	if shared.IsTombstone(value) {
		return false, fmt.Errorf("lsm: put: value collides with tombstone sentinel: %w", shared.ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.putLocked(key, value)
}

func (e *Engine) putLocked(key shared.Key, value []byte) (bool, error) {
	needed := e.memTable.MemSize() + shared.KeySize + uint64(len(value))
	if needed >= shared.MemLimit {
		if err := e.flushAndCompact(); err != nil {
			return false, err
		}
	}

	if err := e.wal.Append(key, value); err != nil {
		return false, err
	}
	return e.memTable.Insert(key, value), nil
}

// Get returns the value stored at key, if it is live (not absent, not
// tombstoned).
func (e *Engine) Get(key shared.Key) ([]byte, bool, error) {
	if key == shared.MinKey || key == shared.MaxKey {
		return nil, false, fmt.Errorf("lsm: get: key %d: %w", key, shared.ErrInvalidArgument)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.getLocked(key)
}

func (e *Engine) getLocked(key shared.Key) ([]byte, bool, error) {
	value, found, err := e.lookupRaw(key)
	if err != nil || !found {
		return nil, false, err
	}
	if shared.IsTombstone(value) {
		return nil, false, nil
	}
	return value, true, nil
}

// lookupRaw finds the most recent record for key without interpreting a
// tombstone as absence — Del needs this distinction to be idempotent.
func (e *Engine) lookupRaw(key shared.Key) ([]byte, bool, error) {
	if value, found := e.memTable.Search(key); found {
		return value, true, nil
	}
	for level := 0; level <= e.depth; level++ {
		result, ok := e.diskCache[level].Search(level, key)
		if !ok {
			continue
		}
		path := filepath.Join(shared.LevelDir(e.dataDir, int(result.Layer)), shared.SSTableName(result.Serial))
		value, err := sstable.ReadValueAt(path, result.Offset)
		if err != nil {
			return nil, false, err
		}
		return value, true, nil
	}
	return nil, false, nil
}

// Del marks key deleted. It returns true iff the key logically existed
// (live or already tombstoned) immediately before the call — so two
// consecutive Del calls on the same key both return true, even though
// Get returns (nil, false, nil) both before and after.
func (e *Engine) Del(key shared.Key) (bool, error) {
	if key == shared.MinKey || key == shared.MaxKey {
		return false, fmt.Errorf("lsm: del: key %d: %w", key, shared.ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	_, found, err := e.lookupRaw(key)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	e.memTable.Remove(key)
	if _, err := e.putLocked(key, shared.Tombstone); err != nil {
		return false, err
	}
	return true, nil
}

// Close flushes any remaining in-memory writes to disk and releases the
// WAL file handle.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.memTable.Len() > 0 {
		if err := e.flushAndCompact(); err != nil {
			return err
		}
	}
	return e.wal.Close()
}

// flushAndCompact flushes the memtable to level 0, runs tiered
// compaction, then clears the WAL — the flush's SSTable now holds every
// write the WAL recorded, which is what lets the WAL be safely discarded.
func (e *Engine) flushAndCompact() error {
	if err := e.flush(); err != nil {
		return err
	}
	if err := e.compact(); err != nil {
		return err
	}
	return e.wal.Clear()
}

// flush builds one SSTable from the current memtable and installs it at
// level 0.
func (e *Engine) flush() error {
	if e.memTable.Len() == 0 {
		return nil
	}

	builder, err := sstable.Build(e.memTable)
	if err != nil {
		return fmt.Errorf("lsm: flush: %w", err)
	}

	const level = 0
	if err := os.MkdirAll(shared.LevelDir(e.dataDir, level), 0755); err != nil {
		return fmt.Errorf("lsm: create level-%d dir: %w", level, err)
	}
	serial := e.availableSerial[level]
	path := filepath.Join(shared.LevelDir(e.dataDir, level), shared.SSTableName(serial))

	summary, err := builder.WriteFile(path, e.curTimestamp)
	if err != nil {
		return err
	}
	summary.Layer = level
	summary.Serial = serial

	e.diskCache[level].Insert(summary)
	e.availableSerial[level]++
	e.curTimestamp++
	if e.depth < level {
		e.depth = level
	}

	e.log.Infow("flushed memtable", "level", level, "serial", serial, "kvPairCount", summary.KVPairCount)
	e.memTable.Clear()
	return nil
}
