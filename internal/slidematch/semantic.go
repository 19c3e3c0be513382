package slidematch

import (
	"context"
	"math"
	"sort"
)

const (
	// semanticThreshold is the minimum cosine similarity for an embedding
	// match to count as a hit.
	semanticThreshold = 0.7
	// semanticTopK bounds how many nearest slides semantic search returns,
	// to keep the combiner's per-utterance work bounded regardless of
	// presentation size.
	semanticTopK = 5
)

// semanticMatch embeds the utterance and scores it against the index's
// slide embeddings. When the index implements [VectorSearcher] (as
// semanticindex does), the nearest-neighbour search is delegated to its
// SearchSimilar; otherwise similarity is computed by linear scan over the
// in-memory matrix from Embeddings, and an index reporting ok=false there
// yields no semantic results.
func semanticMatch(ctx context.Context, index SlideIndex, utterance string) (map[int]*SignalResult, error) {
	vec, err := index.Embed(ctx, utterance)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, nil
	}

	type scored struct {
		slideID int
		sim     float64
	}
	var scores []scored

	if searcher, ok := index.(VectorSearcher); ok {
		results, err := searcher.SearchSimilar(ctx, vec, semanticTopK)
		if err != nil {
			return nil, err
		}
		for _, r := range results {
			if r.Similarity >= semanticThreshold {
				scores = append(scores, scored{slideID: r.SlideID, sim: r.Similarity})
			}
		}
	} else {
		matrix, slideIDs, ok := index.Embeddings()
		if !ok || len(matrix) == 0 {
			return nil, nil
		}
		for i, row := range matrix {
			sim := cosineSimilarity(vec, row)
			if sim >= semanticThreshold {
				scores = append(scores, scored{slideID: slideIDs[i], sim: sim})
			}
		}
		sort.Slice(scores, func(i, j int) bool { return scores[i].sim > scores[j].sim })
		if len(scores) > semanticTopK {
			scores = scores[:semanticTopK]
		}
	}

	out := make(map[int]*SignalResult, len(scores))
	for _, s := range scores {
		out[s.slideID] = &SignalResult{Score: s.sim}
	}
	return out, nil
}

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
