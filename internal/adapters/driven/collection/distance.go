package collection

import "math"

// CosineDistance returns 1 minus the cosine similarity of a and b,
// clamped to be non-negative so it satisfies the Collection contract
// (smaller = closer, never below zero). Mismatched or zero-magnitude
// vectors are treated as maximally distant.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 2
	}
	d := 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
	if d < 0 {
		return 0
	}
	return d
}

// EqualScalar compares two metadata values for filter equality,
// normalizing across the numeric types JSON round-trips produce.
func EqualScalar(a, b any) bool {
	if na, ok := toFloat(a); ok {
		nb, okb := toFloat(b)
		return okb && na == nb
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// MatchesFilter reports whether metadata satisfies every filter entry.
func MatchesFilter(metadata map[string]any, filter map[string]any) bool {
	for k, want := range filter {
		got, ok := metadata[k]
		if !ok || !EqualScalar(got, want) {
			return false
		}
	}
	return true
}
