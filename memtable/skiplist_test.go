package memtable

import "testing"

func TestSkipListBasicOperations(t *testing.T) {
	sl := New[uint64](1)

	if !sl.Insert(1, []byte("one")) {
		t.Fatal("expected first insert of key 1 to report inserted")
	}
	if sl.Insert(1, []byte("one-updated")) {
		t.Fatal("expected second insert of key 1 to report updated, not inserted")
	}

	value, found := sl.Search(1)
	if !found || string(value) != "one-updated" {
		t.Fatalf("Search(1) = (%q, %v), want (\"one-updated\", true)", value, found)
	}

	if _, found := sl.Search(2); found {
		t.Fatal("expected key 2 to be absent")
	}
}

func TestSkipListOrderedScan(t *testing.T) {
	sl := New[uint64](1)
	for _, k := range []uint64{5, 1, 3, 2, 4} {
		sl.Insert(k, []byte{byte(k)})
	}

	all := sl.All()
	if len(all) != 5 {
		t.Fatalf("All() returned %d entries, want 5", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Key >= all[i].Key {
			t.Fatalf("All() not ascending at index %d: %d >= %d", i, all[i-1].Key, all[i].Key)
		}
	}

	scanned := sl.Scan(2, 4)
	if len(scanned) != 3 {
		t.Fatalf("Scan(2,4) returned %d entries, want 3", len(scanned))
	}
	for i, kv := range scanned {
		want := uint64(2 + i)
		if kv.Key != want {
			t.Errorf("Scan(2,4)[%d].Key = %d, want %d", i, kv.Key, want)
		}
	}
}

func TestSkipListRemove(t *testing.T) {
	sl := New[uint64](1)
	sl.Insert(1, []byte("a"))
	sl.Insert(2, []byte("b"))
	sl.Insert(3, []byte("c"))

	if !sl.Remove(2) {
		t.Fatal("expected Remove(2) to report present")
	}
	if sl.Remove(2) {
		t.Fatal("expected second Remove(2) to report absent")
	}
	if _, found := sl.Search(2); found {
		t.Fatal("expected key 2 to be gone after removal")
	}
	if sl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", sl.Len())
	}
}

func TestSkipListMaxKeyAfterRemovingMax(t *testing.T) {
	sl := New[uint64](1)
	sl.Insert(10, []byte("a"))
	sl.Insert(30, []byte("b"))
	sl.Insert(20, []byte("c"))

	if max, ok := sl.MaxKey(); !ok || max != 30 {
		t.Fatalf("MaxKey() = (%d, %v), want (30, true)", max, ok)
	}

	sl.Remove(30)
	if max, ok := sl.MaxKey(); !ok || max != 20 {
		t.Fatalf("MaxKey() after removing 30 = (%d, %v), want (20, true)", max, ok)
	}

	if min, ok := sl.MinKey(); !ok || min != 10 {
		t.Fatalf("MinKey() = (%d, %v), want (10, true)", min, ok)
	}
}

func TestSkipListMemSizeTracksOverwrites(t *testing.T) {
	sl := New[uint64](1)
	sl.Insert(1, []byte("short"))
	afterInsert := sl.MemSize()

	sl.Insert(1, []byte("a-much-longer-value"))
	afterOverwrite := sl.MemSize()

	if afterOverwrite <= afterInsert {
		t.Fatalf("expected MemSize to grow after overwriting with a longer value: %d -> %d", afterInsert, afterOverwrite)
	}
}

func TestSkipListClear(t *testing.T) {
	sl := New[uint64](1)
	sl.Insert(1, []byte("a"))
	sl.Insert(2, []byte("b"))

	sl.Clear()

	if sl.Len() != 0 {
		t.Fatalf("Len() after Clear() = %d, want 0", sl.Len())
	}
	if sl.MemSize() != 0 {
		t.Fatalf("MemSize() after Clear() = %d, want 0", sl.MemSize())
	}
	if _, found := sl.Search(1); found {
		t.Fatal("expected no keys to survive Clear()")
	}
}
