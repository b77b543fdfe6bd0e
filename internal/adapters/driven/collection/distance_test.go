package collection

import (
	"math"
	"testing"
)

func TestCosineDistance(t *testing.T) {
	t.Run("identical vectors", func(t *testing.T) {
		d := CosineDistance([]float32{1, 2, 3}, []float32{1, 2, 3})
		if math.Abs(d) > 1e-9 {
			t.Errorf("expected distance 0, got %f", d)
		}
	})

	t.Run("orthogonal vectors", func(t *testing.T) {
		d := CosineDistance([]float32{1, 0}, []float32{0, 1})
		if math.Abs(d-1) > 1e-9 {
			t.Errorf("expected distance 1, got %f", d)
		}
	})

	t.Run("opposite vectors", func(t *testing.T) {
		d := CosineDistance([]float32{1, 0}, []float32{-1, 0})
		if math.Abs(d-2) > 1e-9 {
			t.Errorf("expected distance 2, got %f", d)
		}
	})

	t.Run("mismatched lengths are maximally distant", func(t *testing.T) {
		if d := CosineDistance([]float32{1}, []float32{1, 2}); d != 2 {
			t.Errorf("expected distance 2, got %f", d)
		}
	})

	t.Run("zero vector is maximally distant", func(t *testing.T) {
		if d := CosineDistance([]float32{0, 0}, []float32{1, 2}); d != 2 {
			t.Errorf("expected distance 2, got %f", d)
		}
	})

	t.Run("never negative", func(t *testing.T) {
		d := CosineDistance([]float32{1, 1}, []float32{1, 1.0000001})
		if d < 0 {
			t.Errorf("distance must be clamped at 0, got %f", d)
		}
	})
}

func TestEqualScalar(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"strings equal", "x", "x", true},
		{"strings differ", "x", "y", false},
		{"int vs float64", 3, 3.0, true},
		{"int64 vs int", int64(7), 7, true},
		{"bools", true, true, true},
		{"number vs string", 1, "1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EqualScalar(tt.a, tt.b); got != tt.want {
				t.Errorf("EqualScalar(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestMatchesFilter(t *testing.T) {
	metadata := map[string]any{"dataType": "Institution", "chunk_index": 2.0}

	if !MatchesFilter(metadata, map[string]any{"dataType": "Institution"}) {
		t.Error("single key must match")
	}
	if !MatchesFilter(metadata, map[string]any{"dataType": "Institution", "chunk_index": 2}) {
		t.Error("conjunction must match across numeric representations")
	}
	if MatchesFilter(metadata, map[string]any{"dataType": "Personal"}) {
		t.Error("mismatched value must not match")
	}
	if MatchesFilter(metadata, map[string]any{"missing": 1}) {
		t.Error("absent key must not match")
	}
	if !MatchesFilter(metadata, nil) {
		t.Error("empty filter matches everything")
	}
}
