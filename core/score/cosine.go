package score

import "math"

// Cosine returns the cosine similarity of two vectors in [-1, 1].
// Components beyond the shorter vector's length are treated as 0, and the
// similarity of a zero-magnitude vector is defined as 0 instead of failing.
func Cosine(a, b []float32) float64 {
	var dot, magA, magB float64
	for i, v := range a {
		av := float64(v)
		magA += av * av
		if i < len(b) {
			dot += av * float64(b[i])
		}
	}
	for _, v := range b {
		bv := float64(v)
		magB += bv * bv
	}

	if magA == 0 || magB == 0 {
		return 0
	}

	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
