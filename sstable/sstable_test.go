package sstable

import (
	"fmt"
	"path/filepath"
	"testing"

	"lsmkv/memtable"
	"lsmkv/shared"
)

func buildTable(t *testing.T, n int) *memtable.SkipList[shared.Key] {
	t.Helper()
	sl := memtable.New[shared.Key](1)
	for i := 1; i <= n; i++ {
		sl.Insert(uint64(i), []byte(fmt.Sprintf("key = %d, value = %d", i, i)))
	}
	return sl
}

// TestRoundTrip builds a 127-entry skip list, writes it to disk, and
// reads it back by exact offset.
func TestRoundTrip(t *testing.T) {
	sl := buildTable(t, 127)

	builder, err := Build(sl)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "sst_0.sst")
	summary, err := builder.WriteFile(path, 1)
	if err != nil {
		t.Fatal(err)
	}

	if summary.MinKey != 1 || summary.MaxKey != 127 {
		t.Fatalf("summary min/max = %d/%d, want 1/127", summary.MinKey, summary.MaxKey)
	}

	first, err := ReadValueAt(path, summary.KeyOffset[0].Offset)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != "key = 1, value = 1" {
		t.Errorf("ReadValueAt(offset 0) = %q, want %q", first, "key = 1, value = 1")
	}

	second, err := ReadValueAt(path, summary.KeyOffset[1].Offset)
	if err != nil {
		t.Fatal(err)
	}
	if string(second) != "key = 2, value = 2" {
		t.Errorf("ReadValueAt(second offset) = %q, want %q", second, "key = 2, value = 2")
	}

	lastEntry := summary.KeyOffset[len(summary.KeyOffset)-1]
	last, err := ReadValueAt(path, lastEntry.Offset)
	if err != nil {
		t.Fatal(err)
	}
	if string(last) != "key = 127, value = 127" {
		t.Errorf("ReadValueAt(last offset) = %q, want %q", last, "key = 127, value = 127")
	}
}

func TestFilterAllYieldsOriginalSequenceByteForByte(t *testing.T) {
	sl := buildTable(t, 32)
	builder, err := Build(sl)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "sst_0.sst")
	if _, err := builder.WriteFile(path, 1); err != nil {
		t.Fatal(err)
	}

	cursor, err := FilterAll(path, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer cursor.Close()

	want := sl.All()
	for i, wantKV := range want {
		rec, ok, err := cursor.Next()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatalf("cursor exhausted early at index %d", i)
		}
		if rec.Key != wantKV.Key || string(rec.Value) != string(wantKV.Value) {
			t.Fatalf("entry %d = (%d, %q), want (%d, %q)", i, rec.Key, rec.Value, wantKV.Key, wantKV.Value)
		}
		if rec.Layer != 0 || rec.Serial != 0 {
			t.Fatalf("entry %d provenance = (layer=%d, serial=%d), want (0, 0)", i, rec.Layer, rec.Serial)
		}
	}
	if _, ok, err := cursor.Next(); err != nil || ok {
		t.Fatalf("expected cursor to be exhausted, got ok=%v err=%v", ok, err)
	}
}

func TestReadValueAtUnknownOffsetFails(t *testing.T) {
	sl := buildTable(t, 4)
	builder, err := Build(sl)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "sst_0.sst")
	if _, err := builder.WriteFile(path, 1); err != nil {
		t.Fatal(err)
	}

	if _, err := ReadValueAt(path, 999999); err == nil {
		t.Error("expected ReadValueAt with an offset that matches no directory entry to fail")
	}
}

func TestReadSummaryMatchesBuilder(t *testing.T) {
	sl := buildTable(t, 16)
	builder, err := Build(sl)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "sst_3.sst")
	built, err := builder.WriteFile(path, 7)
	if err != nil {
		t.Fatal(err)
	}

	summary, err := ReadSummary(path, 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Layer != 2 || summary.Serial != 3 {
		t.Fatalf("summary provenance = (%d, %d), want (2, 3)", summary.Layer, summary.Serial)
	}
	if summary.Timestamp != 7 {
		t.Fatalf("summary.Timestamp = %d, want 7", summary.Timestamp)
	}
	if summary.MinKey != built.MinKey || summary.MaxKey != built.MaxKey {
		t.Fatalf("summary min/max = %d/%d, want %d/%d", summary.MinKey, summary.MaxKey, built.MinKey, built.MaxKey)
	}
	if len(summary.KeyOffset) != len(built.KeyOffset) {
		t.Fatalf("summary directory has %d entries, want %d", len(summary.KeyOffset), len(built.KeyOffset))
	}
	for _, key := range []uint64{1, 8, 16} {
		if !summary.Bloom.Contains(key) {
			t.Errorf("reloaded bloom filter rejects key %d, which was inserted", key)
		}
	}
}

func TestBuildRejectsEmptyMemtable(t *testing.T) {
	sl := memtable.New[shared.Key](1)
	if _, err := Build(sl); err == nil {
		t.Error("expected Build to reject an empty memtable")
	}
}
