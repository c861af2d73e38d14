package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"sync/atomic"
)

// Embedder is a deterministic in-process embedding provider for tests.
//
// By default it derives a unit vector from a SHA-256 hash of the text, so
// identical inputs always embed identically and distinct inputs almost
// never collide. Tests that need controlled similarities can register
// exact vectors per input with SetVector.
type Embedder struct {
	// Dimension of produced vectors. Defaults to 768 via NewEmbedder.
	Dimension int

	vectors    map[string][]float32
	embedCalls atomic.Int64
	readyCalls atomic.Int64
	readyErr   error
	embedErr   error
}

// NewEmbedder creates a deterministic embedder producing 768-dimension
// vectors.
func NewEmbedder() *Embedder {
	return &Embedder{
		Dimension: 768,
		vectors:   make(map[string][]float32),
	}
}

// SetVector registers an exact vector for the given text.
func (e *Embedder) SetVector(text string, vec []float32) {
	e.vectors[text] = vec
}

// FailReadyWith makes Ready return err.
func (e *Embedder) FailReadyWith(err error) { e.readyErr = err }

// FailEmbedWith makes Embed return err.
func (e *Embedder) FailEmbedWith(err error) { e.embedErr = err }

// Ready implements the embedder contract.
func (e *Embedder) Ready(context.Context) error {
	e.readyCalls.Add(1)
	return e.readyErr
}

// Embed implements the embedder contract.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.embedCalls.Add(1)
	if e.embedErr != nil {
		return nil, e.embedErr
	}
	if vec, ok := e.vectors[text]; ok {
		return vec, nil
	}
	return hashVector(text, e.Dimension), nil
}

// Dim implements the embedder contract.
func (e *Embedder) Dim() int { return e.Dimension }

// EmbedCalls returns how many times Embed was invoked.
func (e *Embedder) EmbedCalls() int64 { return e.embedCalls.Load() }

// hashVector expands a SHA-256 digest into a normalized vector of the
// given dimension.
func hashVector(text string, dim int) []float32 {
	digest := sha256.Sum256([]byte(text))

	vec := make([]float32, dim)
	var norm float64
	for i := range vec {
		// Re-hash the digest with the index to stretch 32 bytes over dim
		// components.
		var buf [40]byte
		copy(buf[:32], digest[:])
		binary.LittleEndian.PutUint64(buf[32:], uint64(i))
		h := sha256.Sum256(buf[:])

		v := float32(int64(binary.LittleEndian.Uint64(h[:8]))%1000) / 1000
		vec[i] = v
		norm += float64(v) * float64(v)
	}

	// Normalize so cosine comparisons behave like real embeddings.
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}

// UnitVector returns a dim-length unit vector with a single 1 at index i.
// Handy for constructing vectors of exactly known cosine similarity.
func UnitVector(dim, i int) []float32 {
	vec := make([]float32, dim)
	vec[i] = 1
	return vec
}

// BlendVectors returns the normalized weighted sum a*wa + b*wb, letting
// tests build vectors at controlled angles from one another.
func BlendVectors(a, b []float32, wa, wb float32) []float32 {
	vec := make([]float32, len(a))
	var norm float64
	for i := range vec {
		vec[i] = a[i]*wa + b[i]*wb
		norm += float64(vec[i]) * float64(vec[i])
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}
