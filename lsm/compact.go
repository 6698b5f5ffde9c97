package lsm

import (
	"container/heap"
	"fmt"
	"os"
	"path/filepath"

	"lsmkv/shared"
	"lsmkv/sstable"
)

// compact drives tiered compaction across every level that currently
// exceeds its capacity. Levels are processed L = 0, 1, 2, … in order;
// because each round can push the next level over its own capacity, the
// loop keeps going until no level is oversized.
func (e *Engine) compact() error {
	for level := 0; level < shared.LSMMaxLayer-1; level++ {
		for e.diskCache[level].Len() > shared.LevelCapacity(level) {
			if err := e.compactLevel(level); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) compactLevel(level int) error {
	var selected []*sstable.Summary
	if level == 0 {
		selected = e.diskCache[level].RemoveTail(0)
	} else {
		selected = e.diskCache[level].RemoveTail(shared.LevelCapacity(level))
	}
	if len(selected) == 0 {
		return nil
	}

	lo, hi := spanOf(selected)
	nextLevel := level + 1
	overlapping := e.diskCache[nextLevel].RemoveOverlapping(lo, hi)

	// Bottom-level-ness is decided against depth as it stood before this
	// compaction writes anything: if nextLevel was already the deepest
	// level with any run (or deeper than any existing run), there is
	// nothing below it left to shadow, so tombstones merged into it can
	// be dropped for good.
	bottomLevel := nextLevel >= e.depth

	all := append(append([]*sstable.Summary(nil), selected...), overlapping...)
	curMaxTimestamp := maxTimestamp(all)

	cursors := make([]*sstable.Cursor, 0, len(all))
	defer func() {
		for _, c := range cursors {
			c.Close()
		}
	}()
	for _, s := range all {
		path := filepath.Join(shared.LevelDir(e.dataDir, int(s.Layer)), shared.SSTableName(s.Serial))
		c, err := sstable.FilterAll(path, s.Layer, s.Serial)
		if err != nil {
			return err
		}
		cursors = append(cursors, c)
	}

	if err := e.mergeInto(cursors, nextLevel, curMaxTimestamp, bottomLevel); err != nil {
		return err
	}

	for _, s := range all {
		path := filepath.Join(shared.LevelDir(e.dataDir, int(s.Layer)), shared.SSTableName(s.Serial))
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("lsm: remove %q: %w", path, err)
		}
	}

	e.log.Infow("compacted level", "level", level, "nextLevel", nextLevel,
		"selected", len(selected), "overlapping", len(overlapping), "bottomLevel", bottomLevel)
	return nil
}

func spanOf(summaries []*sstable.Summary) (lo, hi shared.Key) {
	lo, hi = summaries[0].MinKey, summaries[0].MaxKey
	for _, s := range summaries[1:] {
		if s.MinKey < lo {
			lo = s.MinKey
		}
		if s.MaxKey > hi {
			hi = s.MaxKey
		}
	}
	return lo, hi
}

func maxTimestamp(summaries []*sstable.Summary) uint64 {
	max := summaries[0].Timestamp
	for _, s := range summaries[1:] {
		if s.Timestamp > max {
			max = s.Timestamp
		}
	}
	return max
}

// heapItem is one still-open cursor's current record, ordered so that
// the heap root is always the version that should win a key tie: primary
// by key ascending; on a tie, smaller layer wins; on a same-layer tie,
// larger serial (the newer run) wins. This is an N-way merge built on
// the container/heap idiom.
type heapItem struct {
	cursor *sstable.Cursor
	rec    sstable.Record
}

type mergeHeap []*heapItem

func (h mergeHeap) Len() int { return len(h) }
func (h mergeHeap) Less(i, j int) bool {
	a, b := h[i].rec, h[j].rec
	if a.Key != b.Key {
		return a.Key < b.Key
	}
	if a.Layer != b.Layer {
		return a.Layer < b.Layer
	}
	return a.Serial > b.Serial
}
func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *mergeHeap) Push(x any)   { *h = append(*h, x.(*heapItem)) }
func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// mergeInto runs a k-way merge over cursors, writing survivors into
// mergeTable and flushing it to level targetLevel whenever the next
// insert would bring it to MEM_LIMIT or beyond, tagging every emitted
// SSTable with timestamp.
func (e *Engine) mergeInto(cursors []*sstable.Cursor, targetLevel int, timestamp uint64, bottomLevel bool) error {
	h := &mergeHeap{}
	heap.Init(h)
	for _, c := range cursors {
		if err := pushNext(h, c); err != nil {
			return err
		}
	}

	for h.Len() > 0 {
		winner := heap.Pop(h).(*heapItem)
		rec := winner.rec
		if err := pushNext(h, winner.cursor); err != nil {
			return err
		}

		// Older duplicates of the same key: discard, advancing each of
		// their cursors so the merge keeps making progress.
		for h.Len() > 0 && (*h)[0].rec.Key == rec.Key {
			dup := heap.Pop(h).(*heapItem)
			if err := pushNext(h, dup.cursor); err != nil {
				return err
			}
		}

		if bottomLevel && shared.IsTombstone(rec.Value) {
			continue
		}

		needed := e.mergeTable.MemSize() + shared.KeySize + uint64(len(rec.Value))
		if needed >= shared.MemLimit {
			if err := e.emitMergeTable(targetLevel, timestamp); err != nil {
				return err
			}
		}
		e.mergeTable.Insert(rec.Key, rec.Value)
	}

	if e.mergeTable.Len() > 0 {
		if err := e.emitMergeTable(targetLevel, timestamp); err != nil {
			return err
		}
	}
	return nil
}

func pushNext(h *mergeHeap, c *sstable.Cursor) error {
	rec, ok, err := c.Next()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	heap.Push(h, &heapItem{cursor: c, rec: rec})
	return nil
}

func (e *Engine) emitMergeTable(level int, timestamp uint64) error {
	builder, err := sstable.Build(e.mergeTable)
	if err != nil {
		return fmt.Errorf("lsm: compact: %w", err)
	}

	dir := shared.LevelDir(e.dataDir, level)
	_, statErr := os.Stat(dir)
	wasNew := os.IsNotExist(statErr)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("lsm: create level-%d dir: %w", level, err)
	}

	serial := e.availableSerial[level]
	path := filepath.Join(dir, shared.SSTableName(serial))
	summary, err := builder.WriteFile(path, timestamp)
	if err != nil {
		return err
	}
	summary.Layer = uint32(level)
	summary.Serial = serial

	e.diskCache[level].Insert(summary)
	e.availableSerial[level]++
	if wasNew && level > e.depth {
		e.depth = level
	}

	e.mergeTable.Clear()
	return nil
}
