package filter

import "testing"

func TestNoFalseNegatives(t *testing.T) {
	b := New()
	keys := []uint64{0, 1, 2, 100, 65535, 1 << 40}
	for _, k := range keys {
		b.Add(k)
	}
	for _, k := range keys {
		if !b.Contains(k) {
			t.Errorf("Contains(%d) = false after Add(%d), want true (no false negatives allowed)", k, k)
		}
	}
}

func TestAbsentKeysAreOftenRejected(t *testing.T) {
	b := New()
	for i := uint64(0); i < 100; i++ {
		b.Add(i * 2)
	}

	rejected := 0
	for i := uint64(1); i < 200; i += 2 {
		if !b.Contains(i) {
			rejected++
		}
	}
	if rejected == 0 {
		t.Error("expected at least some odd keys to be rejected by a filter populated only with even keys")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	b := New()
	b.Add(7)
	b.Add(9001)

	decoded, err := Decode(b.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if !decoded.Contains(7) || !decoded.Contains(9001) {
		t.Error("decoded filter lost membership of keys present before encoding")
	}
}

func TestDecodeRejectsWrongSize(t *testing.T) {
	if _, err := Decode(make([]byte, 4)); err == nil {
		t.Error("expected Decode to reject a buffer of the wrong size")
	}
}
