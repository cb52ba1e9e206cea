package knowledge

import "math"

// CosineSimilarity returns dot(a, b) / (|a| * |b|), or 0 when either vector
// has zero magnitude. Vectors of different length are compared over the
// shorter prefix.
func CosineSimilarity(a, b []float32) float64 {
	n := min(len(a), len(b))

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	for _, x := range a[n:] {
		normA += float64(x) * float64(x)
	}
	for _, y := range b[n:] {
		normB += float64(y) * float64(y)
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
