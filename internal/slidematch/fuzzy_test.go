package slidematch

import "testing"

func TestFuzzyMatch_PhoneticMatchWinsOverPlainTypo(t *testing.T) {
	idx := &fakeIndex{
		flat: []KeywordRef{
			{SlideID: 1, Keyword: "kubernetes"},
			{SlideID: 2, Keyword: "kubernetez"},
		},
		phonetic: []KeywordRef{
			{SlideID: 1, Keyword: "kubernetes"},
		},
	}

	results := fuzzyMatch(idx, []string{"kubernetes"})
	if _, ok := results[1]; !ok {
		t.Fatal("expected a fuzzy hit for slide 1")
	}
	if results[1].Score <= 0 {
		t.Errorf("slide 1 score = %v, want > 0", results[1].Score)
	}
}

func TestFuzzyMatch_BelowThresholdIsIgnored(t *testing.T) {
	idx := &fakeIndex{
		flat: []KeywordRef{{SlideID: 1, Keyword: "completely-different-word"}},
	}
	results := fuzzyMatch(idx, []string{"xyz"})
	if len(results) != 0 {
		t.Errorf("results = %v, want empty for dissimilar token", results)
	}
}

func TestFuzzyMatch_NoKeywordsReturnsNil(t *testing.T) {
	idx := &fakeIndex{}
	if results := fuzzyMatch(idx, []string{"anything"}); results != nil {
		t.Errorf("results = %v, want nil", results)
	}
}

func TestFuzzyMatch_NonPhoneticFallbackIsDiscounted(t *testing.T) {
	idx := &fakeIndex{
		flat: []KeywordRef{{SlideID: 1, Keyword: "orchestration"}},
	}
	// "orchestraton" (missing an i) shares no phonetic code overlap setup
	// here (phonetic list is empty), so any match must come from the plain
	// Jaro-Winkler fallback and thus be discounted.
	results := fuzzyMatch(idx, []string{"orchestraton"})
	if r, ok := results[1]; ok && r.Score >= fuzzyThreshold {
		t.Errorf("discounted fallback score %v should be below raw fuzzyThreshold %v", r.Score, fuzzyThreshold)
	}
}
