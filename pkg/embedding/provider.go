package embedding

import (
	"context"
	"errors"
	"math"
)

// ErrUnavailable is returned when the external embedding capability is
// unreachable or errors. Callers treat it as transient for a query and
// fatal for an ingestion build.
var ErrUnavailable = errors.New("embedding: provider unavailable")

// Provider defines the interface for generating text embeddings.
// All embeddings for one session must come from the same provider/model so
// dimensionality stays consistent with the session's index.
type Provider interface {
	// Embed converts one text into a unit-normalized vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts texts in order; the result has the same length
	// and ordering as the input.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// normalizeVector normalizes a vector to unit length (magnitude = 1).
// Cosine similarity over normalized vectors reduces to a dot product.
func normalizeVector(vec []float32) []float32 {
	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)

	if magnitude == 0 {
		return vec
	}

	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = float32(float64(v) / magnitude)
	}
	return normalized
}
