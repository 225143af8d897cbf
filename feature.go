package bytetrack

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/x448/float16"
)

// Feature is an appearance embedding vector
type Feature []float32

// NormalizeVec normalizes the input vector to unit length and returns a new
// slice. If the input vector has zero magnitude, it returns the original
// slice unchanged.
func NormalizeVec(v Feature) Feature {

	norm := float32(0.0)

	for _, x := range v {
		norm += x * x
	}

	if norm == 0 {
		return v // avoid division by zero
	}

	norm = float32(math.Sqrt(float64(norm)))

	out := make(Feature, len(v))

	for i, x := range v {
		out[i] = x / norm
	}

	return out
}

// CosineSimilarity returns the cosine of the angle between vectors a and b.
// Assumes len(a)==len(b) and that both are already L2 normalized, so this
// is just their dot product.
func CosineSimilarity(a, b Feature) float32 {

	var dot float32

	for i := range a {
		dot += a[i] * b[i]
	}

	return dot
}

// CosineDistance returns 1 - cosine similarity. For L2-normalized vectors
// this is in [0,2], and small values mean "very similar".
func CosineDistance(a, b Feature) float32 {
	return 1 - CosineSimilarity(a, b)
}

// EuclideanDistance returns the L2 distance between two vectors.
// Lower means "more similar" when the features are L2-normalized.
func EuclideanDistance(a, b Feature) float32 {
	var sum float32

	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}

	return float32(math.Sqrt(float64(sum)))
}

// FeatureFromFloat16 decodes a raw little-endian IEEE 754 half precision
// buffer, as produced by embedding models that emit float16 tensors, into
// a Feature.
func FeatureFromFloat16(raw []byte) (Feature, error) {

	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("float16 buffer has odd length %d", len(raw))
	}

	out := make(Feature, len(raw)/2)

	for i := range out {
		bits := binary.LittleEndian.Uint16(raw[i*2:])
		out[i] = float16.Frombits(bits).Float32()
	}

	return out, nil
}
