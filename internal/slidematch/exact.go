package slidematch

// exactMatch scans an utterance's tokens against the index's exact keyword
// table and accumulates, per slide, every keyword hit and whether any of
// those hits land in the slide's title.
func exactMatch(index SlideIndex, tokens []string) map[int]*SignalResult {
	out := make(map[int]*SignalResult)
	for pos, tok := range tokens {
		for _, hit := range index.Lookup(tok) {
			r, ok := out[hit.SlideID]
			if !ok {
				r = &SignalResult{}
				out[hit.SlideID] = r
			}
			r.Score++
			r.MatchedKeywords = append(r.MatchedKeywords, hit.Keyword)
			r.Positions = append(r.Positions, pos)
			if hit.IsTitle {
				r.TitleMatched = true
			}
		}
	}
	return out
}
