package platform

import (
	"context"
	"crypto/sha256"
	"fmt"
	"math"
)

// embeddingDim is the fixed vector length produced by the hash embedder.
const embeddingDim = 32

// HashEmbedder produces deterministic hash-based embeddings for novelty
// scoring. It detects near-duplicate content only; a semantic embedding
// provider can be swapped in behind the same method set.
type HashEmbedder struct{}

// NewHashEmbedder returns a ready embedder.
func NewHashEmbedder() *HashEmbedder { return &HashEmbedder{} }

// EmbedText returns the normalized embedding of one text.
func (e *HashEmbedder) EmbedText(ctx context.Context, text string) ([]float64, error) {
	vecs, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedTexts returns normalized embeddings for each text.
func (e *HashEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	vecs := make([][]float64, len(texts))
	for i, text := range texts {
		sum := sha256.Sum256([]byte(text))
		vec := make([]float64, embeddingDim)
		var norm float64
		for j := 0; j < embeddingDim; j++ {
			vec[j] = float64(sum[j]) / 255.0
			norm += vec[j] * vec[j]
		}
		norm = math.Sqrt(norm)
		if norm > 0 {
			for j := range vec {
				vec[j] /= norm
			}
		}
		vecs[i] = vec
	}
	return vecs, nil
}

// CosineSimilarity computes the cosine similarity of two equal-length vectors.
// Zero vectors yield zero similarity.
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector length mismatch: %d vs %d", len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
