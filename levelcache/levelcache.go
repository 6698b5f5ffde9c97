// Package levelcache implements the per-level ordered collection of
// SSTable summaries that lets a point lookup decide, without touching
// disk, whether a candidate run might hold a key — and if so, at what
// value-region offset.
package levelcache

import (
	"container/list"

	"lsmkv/sstable"
)

// Result is the outcome of a successful Search: the run that owns the
// key, and the value-region offset within it.
type Result struct {
	Layer  uint32
	Serial uint64
	Offset uint64
}

// LevelCache holds the summaries of every persisted run at one level,
// newest run at the front. There is no uniqueness invariant on keys
// across summaries within a level: overlapping ranges are possible only
// at level 0 (flush output); deeper levels hold pairwise-disjoint ranges
// once compaction has run.
type LevelCache struct {
	runs *list.List
}

// New returns an empty cache.
func New() *LevelCache {
	return &LevelCache{runs: list.New()}
}

// Insert adds a newly written or newly discovered summary at the front.
func (c *LevelCache) Insert(s *sstable.Summary) {
	c.runs.PushFront(s)
}

// Len returns the number of runs currently cached at this level.
func (c *LevelCache) Len() int {
	return c.runs.Len()
}

// DeleteByTimestamp removes the first summary whose timestamp matches ts,
// reporting whether one was found.
func (c *LevelCache) DeleteByTimestamp(ts uint64) bool {
	for e := c.runs.Front(); e != nil; e = e.Next() {
		if e.Value.(*sstable.Summary).Timestamp == ts {
			c.runs.Remove(e)
			return true
		}
	}
	return false
}

// Search looks up key among this level's runs, front (newest) to back
// (oldest). level is the index this cache is installed at: at level 0,
// where flush output may leave overlapping ranges, a bloom-accept whose
// directory disagrees does NOT end the search — older level-0 runs may
// still hold the key. At level > 0, the compaction invariant guarantees
// disjoint ranges, so the first range-and-bloom match is conclusive and
// the search stops there whether or not its directory agrees.
func (c *LevelCache) Search(level int, key uint64) (Result, bool) {
	for e := c.runs.Front(); e != nil; e = e.Next() {
		s := e.Value.(*sstable.Summary)
		if key < s.MinKey || key > s.MaxKey {
			continue
		}
		if !s.Bloom.Contains(key) {
			continue
		}
		if offset, ok := searchDirectory(s.KeyOffset, key); ok {
			return Result{Layer: s.Layer, Serial: s.Serial, Offset: offset}, true
		}
		if level == 0 {
			continue
		}
		return Result{}, false
	}
	return Result{}, false
}

func searchDirectory(dir []sstable.DirEntry, key uint64) (uint64, bool) {
	lo, hi := 0, len(dir)
	for lo < hi {
		mid := (lo + hi) / 2
		if dir[mid].Key < key {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(dir) && dir[lo].Key == key {
		return dir[lo].Offset, true
	}
	return 0, false
}

// RemoveTail removes and returns every run from index keepFront (0-based,
// counted from the newest front) to the end of the level, oldest-leaning
// runs last. Passing keepFront=0 selects the whole level, which is what
// compaction does at level 0.
func (c *LevelCache) RemoveTail(keepFront int) []*sstable.Summary {
	e := c.runs.Front()
	for i := 0; i < keepFront && e != nil; i++ {
		e = e.Next()
	}

	var selected []*sstable.Summary
	for e != nil {
		next := e.Next()
		selected = append(selected, e.Value.(*sstable.Summary))
		c.runs.Remove(e)
		e = next
	}
	return selected
}

// RemoveOverlapping removes and returns every run whose [MinKey, MaxKey]
// range intersects [lo, hi].
func (c *LevelCache) RemoveOverlapping(lo, hi uint64) []*sstable.Summary {
	var selected []*sstable.Summary
	for e := c.runs.Front(); e != nil; {
		next := e.Next()
		s := e.Value.(*sstable.Summary)
		if s.MaxKey >= lo && s.MinKey <= hi {
			selected = append(selected, s)
			c.runs.Remove(e)
		}
		e = next
	}
	return selected
}
