// Package memindex is the default in-memory [slidematch.SlideIndex]:
// presentations small enough to keep entirely in process memory, with no
// external embedding store or database dependency.
package memindex

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/slidestream/sessioncore/internal/slidematch"
)

// Slide is one slide's source data as loaded from a presentation, before
// indexing.
type Slide struct {
	ID        int
	Title     string
	Body      string
	Keywords  []string
	Embedding []float32
}

// Embedder computes an embedding vector for arbitrary query text at match
// time; slide embeddings are supplied up front via Slide.Embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index is a read-only, in-memory SlideIndex built once per presentation
// and shared across every Session matching against it.
type Index struct {
	embedder Embedder

	mu         sync.RWMutex
	keywords   map[string][]slidematch.KeywordHit
	flat       []slidematch.KeywordRef
	meta       map[int]slidematch.SlideMetadata
	matrix     [][]float32
	slideIDs   []int
	embedCache map[string][]float32
}

// New builds an Index from slides, tokenizing each slide's title and body
// into its exact-lookup and fuzzy-candidate tables.
func New(slides []Slide, embedder Embedder) *Index {
	idx := &Index{
		embedder:   embedder,
		keywords:   make(map[string][]slidematch.KeywordHit),
		meta:       make(map[int]slidematch.SlideMetadata),
		embedCache: make(map[string][]float32),
	}

	for _, slide := range slides {
		titleKeywords := make(map[string]bool)
		for _, kw := range tokenize(slide.Title) {
			titleKeywords[kw] = true
		}

		seen := make(map[string]bool)
		for pos, kw := range append(tokenize(slide.Title), tokenize(slide.Body)...) {
			if seen[kw] {
				continue
			}
			seen[kw] = true
			isTitle := titleKeywords[kw]
			idx.keywords[kw] = append(idx.keywords[kw], slidematch.KeywordHit{
				SlideID: slide.ID, Keyword: kw, Positions: []int{pos}, IsTitle: isTitle,
			})
			idx.flat = append(idx.flat, slidematch.KeywordRef{SlideID: slide.ID, Keyword: kw})
		}
		for _, kw := range slide.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" || seen[kw] {
				continue
			}
			seen[kw] = true
			idx.keywords[kw] = append(idx.keywords[kw], slidematch.KeywordHit{
				SlideID: slide.ID, Keyword: kw, IsTitle: titleKeywords[kw],
			})
			idx.flat = append(idx.flat, slidematch.KeywordRef{SlideID: slide.ID, Keyword: kw})
		}

		idx.meta[slide.ID] = slidematch.SlideMetadata{
			SlideID:       slide.ID,
			TextLength:    len(slide.Title) + len(slide.Body),
			TitleKeywords: titleKeywords,
		}

		if len(slide.Embedding) > 0 {
			idx.matrix = append(idx.matrix, slide.Embedding)
			idx.slideIDs = append(idx.slideIDs, slide.ID)
		}
	}

	sort.Slice(idx.flat, func(i, j int) bool { return idx.flat[i].SlideID < idx.flat[j].SlideID })

	return idx
}

func (idx *Index) Lookup(keyword string) []slidematch.KeywordHit {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.keywords[strings.ToLower(keyword)]
}

func (idx *Index) AllKeywordsFlat() []slidematch.KeywordRef {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.flat
}

// AllPhoneticFlat returns the same candidate set as AllKeywordsFlat; this
// default index has no separate named-entity list to narrow against.
func (idx *Index) AllPhoneticFlat() []slidematch.KeywordRef {
	return idx.AllKeywordsFlat()
}

func (idx *Index) Embed(ctx context.Context, text string) ([]float32, error) {
	if idx.embedder == nil {
		return nil, nil
	}
	idx.mu.RLock()
	if v, ok := idx.embedCache[text]; ok {
		idx.mu.RUnlock()
		return v, nil
	}
	idx.mu.RUnlock()

	v, err := idx.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	idx.mu.Lock()
	idx.embedCache[text] = v
	idx.mu.Unlock()
	return v, nil
}

func (idx *Index) Embeddings() ([][]float32, []int, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if len(idx.matrix) == 0 {
		return nil, nil, false
	}
	return idx.matrix, idx.slideIDs, true
}

func (idx *Index) Metadata(slideID int) (slidematch.SlideMetadata, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	m, ok := idx.meta[slideID]
	return m, ok
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9' || r > 127)
	})
}
