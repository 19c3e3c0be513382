// Package slidematch implements C3: aligning a final transcribed utterance
// to the most likely slide in a presentation, by combining three
// independent signals — exact keyword matches, fuzzy/phonetic matches, and
// semantic embedding similarity — with temporal smoothing so the reported
// slide does not flicker between near-tied candidates.
package slidematch

import (
	"context"
	"strings"
	"unicode"
)

// Signal identifies which matcher contributed to a slide's combined score.
type Signal int

const (
	SignalExact Signal = iota
	SignalFuzzy
	SignalSemantic
)

func (s Signal) String() string {
	switch s {
	case SignalExact:
		return "exact"
	case SignalFuzzy:
		return "fuzzy"
	case SignalSemantic:
		return "semantic"
	default:
		return "unknown"
	}
}

// KeywordRef names one keyword belonging to a slide, used for the flat
// fuzzy/phonetic candidate lists.
type KeywordRef struct {
	SlideID int
	Keyword string
}

// KeywordHit is one exact keyword occurrence returned by [SlideIndex.Lookup].
type KeywordHit struct {
	SlideID   int
	Keyword   string
	Positions []int
	IsTitle   bool
}

// SlideMetadata carries the per-slide facts the combiner needs beyond raw
// signal scores: its text length for score normalization, and which
// keywords belong to its title block for the title-boost rule.
type SlideMetadata struct {
	SlideID       int
	TextLength    int
	TitleKeywords map[string]bool
}

// SlideIndex is the presentation-side data source every C3 signal reads
// from. Implementations may be in-memory (see memindex) or backed by a
// store with a real ANN index (see semanticindex).
type SlideIndex interface {
	// Lookup returns every slide containing keyword, exact string match.
	Lookup(keyword string) []KeywordHit
	// AllKeywordsFlat returns every (slide, keyword) pair for fuzzy scoring.
	AllKeywordsFlat() []KeywordRef
	// AllPhoneticFlat returns the subset of keywords worth phonetic
	// comparison (typically the same set as AllKeywordsFlat, but an index
	// may narrow it to named entities or jargon).
	AllPhoneticFlat() []KeywordRef
	// Embed computes (or looks up a cached) embedding vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Embeddings returns the full embedding matrix for linear-scan cosine
	// similarity, with ok=false when the index has no in-memory matrix
	// (e.g. it delegates nearest-neighbour search to a database instead).
	Embeddings() (matrix [][]float32, slideIDs []int, ok bool)
	Metadata(slideID int) (SlideMetadata, bool)
}

// ScoredSlide is one nearest-neighbour result from a [VectorSearcher].
type ScoredSlide struct {
	SlideID    int
	Similarity float64
}

// VectorSearcher is an optional capability a SlideIndex can implement when
// it delegates nearest-neighbour search to an external store (e.g. pgvector)
// instead of exposing its full embedding matrix in process memory via
// Embeddings. When a SlideIndex implements this, semantic matching prefers
// it over a linear scan.
type VectorSearcher interface {
	SearchSimilar(ctx context.Context, vec []float32, topK int) ([]ScoredSlide, error)
}

// MatchResult is C3's final, combined output for one utterance.
type MatchResult struct {
	SlideID         int
	Score           float64
	Confidence      float64
	MatchedKeywords []string
	Signals         map[Signal]bool
	IsHighConfidence bool
}

// SignalResult is one signal matcher's contribution for a single slide,
// before combination.
type SignalResult struct {
	Score           float64
	MatchedKeywords []string
	Positions       []int
	TitleMatched    bool
}

// Tokenizer splits an utterance into the words signals match against.
type Tokenizer interface {
	Tokenize(text string) []string
}

// defaultTokenizer is a simple Unicode-aware word splitter: runs of
// letters/digits are tokens, everything else is a separator. Good enough
// for the mixed Latin/CJK utterances this module's example presentations
// use — CJK scripts have no inter-word spaces, so this still only splits on
// non-letter/digit boundaries and relies on the index's own keyword
// granularity (whole words or short phrases) rather than a dictionary-based
// segmenter.
type defaultTokenizer struct{}

// NewTokenizer returns the package's default [Tokenizer].
func NewTokenizer() Tokenizer { return defaultTokenizer{} }

func (defaultTokenizer) Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
