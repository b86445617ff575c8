package retrieval

import (
	"sort"

	"github.com/potatoman03/shopmcp/internal/catalog"
)

const rrfK = 60

// ScoredID is one product ID and its fused rank score.
type ScoredID struct {
	ProductID string
	Score     float64
}

// Fuse combines one or more independent rankings (e.g. lexical and
// vector candidate lists) with Reciprocal Rank Fusion and returns the
// top `limit` IDs, sorted by score descending then product ID ascending
// for determinism.
func Fuse(rankings [][]catalog.RankedCandidate, limit int) []ScoredID {
	scores := make(map[string]float64)
	for _, ranking := range rankings {
		for _, c := range ranking {
			scores[c.ProductID] += 1.0 / float64(rrfK+c.Rank)
		}
	}

	out := make([]ScoredID, 0, len(scores))
	for id, score := range scores {
		out = append(out, ScoredID{ProductID: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ProductID < out[j].ProductID
	})

	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
