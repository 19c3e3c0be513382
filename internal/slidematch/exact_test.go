package slidematch

import (
	"context"
	"testing"
)

type fakeIndex struct {
	hits      map[string][]KeywordHit
	flat      []KeywordRef
	phonetic  []KeywordRef
	meta      map[int]SlideMetadata
	embedFn   func(text string) ([]float32, error)
	matrix    [][]float32
	matrixIDs []int
	matrixOK  bool
}

func (f *fakeIndex) Lookup(keyword string) []KeywordHit     { return f.hits[keyword] }
func (f *fakeIndex) AllKeywordsFlat() []KeywordRef           { return f.flat }
func (f *fakeIndex) AllPhoneticFlat() []KeywordRef           { return f.phonetic }
func (f *fakeIndex) Metadata(id int) (SlideMetadata, bool)  { m, ok := f.meta[id]; return m, ok }
func (f *fakeIndex) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.embedFn != nil {
		return f.embedFn(text)
	}
	return nil, nil
}
func (f *fakeIndex) Embeddings() ([][]float32, []int, bool) { return f.matrix, f.matrixIDs, f.matrixOK }

func TestExactMatch_AccumulatesHitsPerSlide(t *testing.T) {
	idx := &fakeIndex{
		hits: map[string][]KeywordHit{
			"kubernetes": {{SlideID: 1, Keyword: "kubernetes", IsTitle: true}},
			"pod":        {{SlideID: 1, Keyword: "pod"}, {SlideID: 2, Keyword: "pod"}},
		},
	}

	results := exactMatch(idx, []string{"kubernetes", "pod", "unknown"})
	if results[1].Score != 2 {
		t.Errorf("slide 1 score = %v, want 2", results[1].Score)
	}
	if !results[1].TitleMatched {
		t.Error("slide 1 TitleMatched = false, want true")
	}
	if results[2].Score != 1 {
		t.Errorf("slide 2 score = %v, want 1", results[2].Score)
	}
	if _, ok := results[3]; ok {
		t.Error("slide 3 should not appear, no keywords matched")
	}
}

func TestExactMatch_NoTokensNoResults(t *testing.T) {
	idx := &fakeIndex{hits: map[string][]KeywordHit{"a": {{SlideID: 1, Keyword: "a"}}}}
	results := exactMatch(idx, nil)
	if len(results) != 0 {
		t.Errorf("results = %v, want empty", results)
	}
}
