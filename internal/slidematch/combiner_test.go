package slidematch

import "testing"

func TestCombiner_NoMatchesReturnsFalse(t *testing.T) {
	c := NewCombiner()
	_, ok := c.Combine(nil, nil, nil, nil)
	if ok {
		t.Fatal("Combine() with no signal results, want ok=false")
	}
}

func TestCombiner_BelowThresholdReturnsFalse(t *testing.T) {
	c := NewCombiner()
	exact := map[int]*SignalResult{1: {Score: 0.5, MatchedKeywords: []string{"foo"}}}
	_, ok := c.Combine(exact, nil, nil, nil)
	if ok {
		t.Fatal("Combine() with score below min_score_threshold, want ok=false")
	}
}

func TestCombiner_ExactMatchAboveThresholdWins(t *testing.T) {
	c := NewCombiner()
	exact := map[int]*SignalResult{
		1: {Score: 2, MatchedKeywords: []string{"kubernetes"}},
	}
	result, ok := c.Combine(exact, nil, nil, nil)
	if !ok {
		t.Fatal("Combine() want ok=true")
	}
	if result.SlideID != 1 {
		t.Errorf("SlideID = %d, want 1", result.SlideID)
	}
	if !result.Signals[SignalExact] {
		t.Errorf("Signals = %v, want SignalExact set", result.Signals)
	}
	if got, want := result.Score, 2.0; got != want {
		t.Errorf("Score = %v, want %v", got, want)
	}
}

func TestCombiner_TitleBoostMultipliesScore(t *testing.T) {
	withTitle := NewCombiner()
	exactTitle := map[int]*SignalResult{1: {Score: 2, TitleMatched: true}}
	withoutTitle := NewCombiner()
	exactPlain := map[int]*SignalResult{1: {Score: 2}}

	boosted, ok := withTitle.Combine(exactTitle, nil, nil, nil)
	if !ok {
		t.Fatal("Combine() (titled) want ok=true")
	}
	plain, ok := withoutTitle.Combine(exactPlain, nil, nil, nil)
	if !ok {
		t.Fatal("Combine() (plain) want ok=true")
	}
	if boosted.Score <= plain.Score {
		t.Errorf("titled score %v should exceed plain score %v", boosted.Score, plain.Score)
	}
	if got, want := boosted.Score, plain.Score*defaultTitleBoost; got != want {
		t.Errorf("boosted score = %v, want %v (title_boost applied)", got, want)
	}
}

func TestCombiner_LengthNormalizationPenalizesLongSlides(t *testing.T) {
	c := NewCombiner()
	exact := map[int]*SignalResult{1: {Score: 20}}
	meta := map[int]SlideMetadata{1: {SlideID: 1, TextLength: 1000}}

	result, ok := c.Combine(exact, nil, nil, meta)
	if !ok {
		t.Fatal("Combine() want ok=true")
	}
	// score / max(1000/100, 1) == 20 / 10 == 2.0, still above min_score_threshold.
	if result.Score != 2.0 {
		t.Errorf("Score = %v, want 2.0 after length normalization", result.Score)
	}
}

func TestCombiner_TemporalSmoothingKeepsCurrentSlideOnCloseScore(t *testing.T) {
	c := NewCombiner()

	// First utterance: slide 1 wins outright.
	first := map[int]*SignalResult{1: {Score: 3}}
	r1, ok := c.Combine(first, nil, nil, nil)
	if !ok || r1.SlideID != 1 {
		t.Fatalf("first Combine() = %+v, ok=%v, want slide 1", r1, ok)
	}

	// Second utterance: slide 2 scores only slightly higher than slide 1's
	// unboosted score — not enough to clear switch_multiplier, so slide 1
	// should stick.
	second := map[int]*SignalResult{
		1: {Score: 3},
		2: {Score: 3.1},
	}
	r2, ok := c.Combine(second, nil, nil, nil)
	if !ok {
		t.Fatal("second Combine() want ok=true")
	}
	if r2.SlideID != 1 {
		t.Errorf("SlideID = %d, want 1 (temporal smoothing should resist switching)", r2.SlideID)
	}
}

func TestCombiner_TemporalSmoothingSwitchesOnDecisiveLead(t *testing.T) {
	c := NewCombiner()

	first := map[int]*SignalResult{1: {Score: 3}}
	if _, ok := c.Combine(first, nil, nil, nil); !ok {
		t.Fatal("first Combine() want ok=true")
	}

	second := map[int]*SignalResult{
		1: {Score: 3},
		2: {Score: 10},
	}
	r2, ok := c.Combine(second, nil, nil, nil)
	if !ok {
		t.Fatal("second Combine() want ok=true")
	}
	if r2.SlideID != 2 {
		t.Errorf("SlideID = %d, want 2 (decisive lead should switch)", r2.SlideID)
	}
}

func TestCombiner_TieBreakPrefersMoreKeywordsThenLowerID(t *testing.T) {
	c := NewCombiner()
	results := map[int]*SignalResult{
		5: {Score: 2, MatchedKeywords: []string{"a"}},
		2: {Score: 2, MatchedKeywords: []string{"a", "b"}},
		3: {Score: 2, MatchedKeywords: []string{"a", "b"}},
	}
	result, ok := c.Combine(results, nil, nil, nil)
	if !ok {
		t.Fatal("Combine() want ok=true")
	}
	if result.SlideID != 2 {
		t.Errorf("SlideID = %d, want 2 (more matched keywords, then lower slide_id)", result.SlideID)
	}
}

func TestCombiner_HighConfidenceFlag(t *testing.T) {
	c := NewCombiner()
	exact := map[int]*SignalResult{1: {Score: defaultMinScoreThreshold * highConfidenceMultiplier}}
	result, ok := c.Combine(exact, nil, nil, nil)
	if !ok {
		t.Fatal("Combine() want ok=true")
	}
	if !result.IsHighConfidence {
		t.Errorf("IsHighConfidence = false, want true at score %v", result.Score)
	}
}

func TestCombiner_ResetClearsTemporalState(t *testing.T) {
	c := NewCombiner()
	first := map[int]*SignalResult{1: {Score: 3}}
	if _, ok := c.Combine(first, nil, nil, nil); !ok {
		t.Fatal("Combine() want ok=true")
	}

	c.Reset()

	stats := c.Stats()
	if stats.HasCurrent {
		t.Errorf("Stats().HasCurrent = true after Reset, want false")
	}
	if stats.TotalMatches != 0 {
		t.Errorf("Stats().TotalMatches = %d after Reset, want 0", stats.TotalMatches)
	}
}

func TestCombiner_StatsTracksHistory(t *testing.T) {
	c := NewCombiner()
	c.Combine(map[int]*SignalResult{1: {Score: 3}}, nil, nil, nil)
	c.Combine(map[int]*SignalResult{1: {Score: 4}}, nil, nil, nil)

	stats := c.Stats()
	if stats.TotalMatches != 2 {
		t.Errorf("TotalMatches = %d, want 2", stats.TotalMatches)
	}
	if stats.UniqueSlides != 1 {
		t.Errorf("UniqueSlides = %d, want 1", stats.UniqueSlides)
	}
}

func TestCombiner_AdjustWeightsChangesContribution(t *testing.T) {
	c := NewCombiner()
	c.AdjustWeights(2.0, 0, 0)

	result, ok := c.Combine(map[int]*SignalResult{1: {Score: 1}}, nil, nil, nil)
	if !ok {
		t.Fatal("Combine() want ok=true")
	}
	if result.Score != 2.0 {
		t.Errorf("Score = %v, want 2.0 after exact_weight adjusted to 2.0", result.Score)
	}
}
