package recognize

import (
	"context"
	"math"
)

// Match is the outcome of a single recognition call. An empty PersonID means
// no enrolled person matched; Distance is then +Inf.
type Match struct {
	PersonID string
	Distance float64
}

// NoMatch is the degraded result used for adapter errors and timeouts.
func NoMatch() Match {
	return Match{Distance: math.Inf(1)}
}

// Known reports whether the match carries an identity. Threshold application
// happens later, in the resolver; a Match may be "known" here and still
// resolve to an unknown face.
func (m Match) Known() bool { return m.PersonID != "" }

// Adapter performs face recognition on a JPEG crop.
type Adapter interface {
	Match(ctx context.Context, crop []byte) (Match, error)
}

// LocalAdapter combines the embedding service with the enrollment index.
type LocalAdapter struct {
	embedder *EmbeddingClient
	index    *EnrollmentIndex
}

// NewLocalAdapter wires the embedding client and enrollment index together.
func NewLocalAdapter(embedder *EmbeddingClient, index *EnrollmentIndex) *LocalAdapter {
	return &LocalAdapter{embedder: embedder, index: index}
}

// Match embeds the crop and returns the nearest enrolled identity. An empty
// enrollment index yields NoMatch without calling the embedding service.
func (a *LocalAdapter) Match(ctx context.Context, crop []byte) (Match, error) {
	if a.index.Len() == 0 {
		return NoMatch(), nil
	}

	embedding, err := a.embedder.Embed(ctx, crop)
	if err != nil {
		return NoMatch(), err
	}

	personID, distance, ok := a.index.Nearest(embedding)
	if !ok {
		return NoMatch(), nil
	}
	return Match{PersonID: personID, Distance: distance}, nil
}
