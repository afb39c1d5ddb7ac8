// Package rank fuses independently ranked result lists into a single
// ordering using Reciprocal Rank Fusion.
package rank

import "sort"

// DefaultK is the standard RRF constant; it keeps top ranks from
// dominating the combined score.
const DefaultK = 60

// Hit is one entry of a ranked list. Rank is the 1-based position within
// the producing index's own ordering.
type Hit struct {
	ID   string
	Rank int
}

// Merged is a fused result, ordered descending by Score.
type Merged struct {
	ID    string
	Score float64
}

// MergeRRF combines a full-text ranked list and a vector ranked list.
// Each list a document appears in contributes 1/(k+rank) to its score; a
// document absent from a list contributes nothing from it. Ties are broken
// by ascending ID so the ordering is reproducible regardless of input
// order. k <= 0 falls back to DefaultK.
func MergeRRF(fullText, vector []Hit, k int) []Merged {
	if k <= 0 {
		k = DefaultK
	}

	scores := make(map[string]float64)
	for _, h := range fullText {
		scores[h.ID] += 1.0 / float64(k+h.Rank)
	}
	for _, h := range vector {
		scores[h.ID] += 1.0 / float64(k+h.Rank)
	}

	merged := make([]Merged, 0, len(scores))
	for id, score := range scores {
		merged = append(merged, Merged{ID: id, Score: score})
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].ID < merged[j].ID
	})
	return merged
}
