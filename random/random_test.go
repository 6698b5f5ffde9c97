package random

import "testing"

func TestUniformBounds(t *testing.T) {
	s := New(1)
	for i := 0; i < 1000; i++ {
		v := s.Uniform(16)
		if v < 0 || v >= 16 {
			t.Fatalf("Uniform(16) = %d, out of range", v)
		}
	}
}

func TestSameSeedSameSequence(t *testing.T) {
	a := New(42)
	b := New(42)
	for i := 0; i < 100; i++ {
		if a.Uniform(16) != b.Uniform(16) {
			t.Fatalf("two sources seeded with 42 diverged at step %d", i)
		}
	}
}

func TestDifferentSeedsUsuallyDiverge(t *testing.T) {
	a := New(1)
	b := New(2)
	same := 0
	for i := 0; i < 50; i++ {
		if a.Uniform(16) == b.Uniform(16) {
			same++
		}
	}
	if same == 50 {
		t.Error("expected sources seeded differently to diverge at least once")
	}
}
