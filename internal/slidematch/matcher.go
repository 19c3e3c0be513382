package slidematch

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/slidestream/sessioncore/internal/session"
)

// IndexProvider resolves the SlideIndex backing one presentation. Looking
// this up per presentationID rather than per Session lets many concurrent
// Sessions over the same presentation share one index and its embedding
// cache.
type IndexProvider interface {
	Index(presentationID string) (SlideIndex, bool)
}

// Matcher implements [session.SlideMatcher] by running the exact, fuzzy,
// and semantic signals for an utterance against the presentation's
// SlideIndex and combining them through a Session-scoped Combiner.
type Matcher struct {
	indexes   IndexProvider
	tokenizer Tokenizer

	mu        sync.Mutex
	combiners map[session.ID]*Combiner
}

// NewMatcher returns a Matcher sourcing slide data from indexes.
func NewMatcher(indexes IndexProvider) *Matcher {
	return &Matcher{
		indexes:   indexes,
		tokenizer: NewTokenizer(),
		combiners: make(map[session.ID]*Combiner),
	}
}

// Match implements [session.SlideMatcher]. at is accepted for interface
// compatibility and future use (e.g. recency-weighted history) but the
// combiner's temporal smoothing currently operates purely on match order,
// not wall-clock time.
func (m *Matcher) Match(ctx context.Context, sessionID session.ID, presentationID, utterance string, at time.Time) (session.MatchResult, bool) {
	_ = at
	index, ok := m.indexes.Index(presentationID)
	if !ok {
		return session.MatchResult{}, false
	}

	tokens := m.tokenizer.Tokenize(utterance)

	exact := exactMatch(index, tokens)
	fuzzy := fuzzyMatch(index, tokens)
	semanticResults, err := semanticMatch(ctx, index, utterance)
	if err != nil {
		semanticResults = nil
	}

	meta := collectMetadata(index, exact, fuzzy, semanticResults)

	combiner := m.combinerFor(sessionID)
	result, ok := combiner.Combine(exact, fuzzy, semanticResults, meta)
	if !ok {
		return session.MatchResult{}, false
	}

	return session.MatchResult{
		SlideID:         strconv.Itoa(result.SlideID),
		Score:           result.Score,
		Confidence:      result.Confidence,
		MatchedKeywords: result.MatchedKeywords,
	}, true
}

// Forget releases a Session's Combiner once the Session closes, so
// per-session temporal state doesn't accumulate forever in a long-running
// process.
func (m *Matcher) Forget(sessionID session.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.combiners, sessionID)
}

func (m *Matcher) combinerFor(sessionID session.ID) *Combiner {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.combiners[sessionID]
	if !ok {
		c = NewCombiner()
		m.combiners[sessionID] = c
	}
	return c
}

func collectMetadata(index SlideIndex, results ...map[int]*SignalResult) map[int]SlideMetadata {
	meta := make(map[int]SlideMetadata)
	for _, r := range results {
		for slideID := range r {
			if _, ok := meta[slideID]; ok {
				continue
			}
			if m, ok := index.Metadata(slideID); ok {
				meta[slideID] = m
			}
		}
	}
	return meta
}
