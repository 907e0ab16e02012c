// Package suggest matches transaction notes against category names by
// embedding both and picking the closest by cosine similarity.
package suggest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
)

// ErrNoCandidates is returned when there are no categories to match.
var ErrNoCandidates = errors.New("no candidate categories")

// Embedder generates vector embeddings for texts.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Service ranks candidate category names against a note.
type Service struct {
	embedder Embedder
	logger   *slog.Logger
}

// New creates a suggestion service.
func New(embedder Embedder, logger *slog.Logger) *Service {
	return &Service{embedder: embedder, logger: logger}
}

// Best returns the candidate most similar to the note and its cosine
// similarity. The note and all candidates go out in one batch call.
func (s *Service) Best(ctx context.Context, note string, candidates []string) (string, float64, error) {
	if len(candidates) == 0 {
		return "", 0, ErrNoCandidates
	}

	texts := append([]string{note}, candidates...)
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return "", 0, fmt.Errorf("embed note and candidates: %w", err)
	}
	if len(vectors) != len(texts) {
		return "", 0, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vectors))
	}

	noteVec := vectors[0]
	best, bestScore := "", math.Inf(-1)
	for i, candidate := range candidates {
		score := cosineSimilarity(noteVec, vectors[i+1])
		if score > bestScore {
			best, bestScore = candidate, score
		}
	}

	s.logger.Debug("category suggested",
		"component", "suggest", "action", "suggest", "category", best, "score", bestScore)
	return best, bestScore, nil
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Returns 0 for mismatched lengths or zero vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
