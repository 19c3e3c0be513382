package slidematch

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	// fuzzyThreshold is the minimum Jaro-Winkler similarity a token must
	// reach against a keyword to count as a fuzzy hit.
	fuzzyThreshold = 0.8
	// fuzzyDiscount scales down matches found only via the plain
	// string-similarity fallback (no phonetic code overlap) — a mishear
	// that merely looks similar in spelling is weaker evidence than one
	// that also sounds alike.
	fuzzyDiscount = 0.7
)

// fuzzyMatch scores each utterance token against the index's flat keyword
// list using Double Metaphone phonetic filtering plus Jaro-Winkler ranking,
// in two stages: a token whose phonetic code overlaps a keyword's is preferred over one
// that merely looks similar, and is scored at full strength; a token with
// no phonetic overlap can still match on pure string similarity, but at
// fuzzyDiscount.
func fuzzyMatch(index SlideIndex, tokens []string) map[int]*SignalResult {
	refs := index.AllKeywordsFlat()
	phoneticRefs := index.AllPhoneticFlat()
	if len(refs) == 0 || len(tokens) == 0 {
		return nil
	}

	phoneticCodes := make([]map[string]struct{}, len(phoneticRefs))
	for i, ref := range phoneticRefs {
		phoneticCodes[i] = codesFor(ref.Keyword)
	}

	out := make(map[int]*SignalResult)
	for pos, tok := range tokens {
		tokCodes := codesFor(tok)

		type candidate struct {
			ref      KeywordRef
			score    float64
			phonetic bool
		}
		var best candidate

		for i, ref := range phoneticRefs {
			if !codesOverlap(tokCodes, phoneticCodes[i]) {
				continue
			}
			score := matchr.JaroWinkler(tok, strings.ToLower(ref.Keyword), false)
			if score >= fuzzyThreshold && (!best.phonetic || score > best.score) {
				best = candidate{ref: ref, score: score, phonetic: true}
			}
		}
		if !best.phonetic {
			for _, ref := range refs {
				score := matchr.JaroWinkler(tok, strings.ToLower(ref.Keyword), false)
				if score >= fuzzyThreshold && score > best.score {
					best = candidate{ref: ref, score: score, phonetic: false}
				}
			}
		}
		if best.ref.Keyword == "" {
			continue
		}

		contribution := best.score
		if !best.phonetic {
			contribution *= fuzzyDiscount
		}

		r, ok := out[best.ref.SlideID]
		if !ok {
			r = &SignalResult{}
			out[best.ref.SlideID] = r
		}
		r.Score += contribution
		r.MatchedKeywords = append(r.MatchedKeywords, best.ref.Keyword)
		r.Positions = append(r.Positions, pos)
	}
	return out
}

func codesFor(word string) map[string]struct{} {
	codes := make(map[string]struct{}, 2)
	p, s := matchr.DoubleMetaphone(strings.ToLower(word))
	if p != "" {
		codes[p] = struct{}{}
	}
	if s != "" {
		codes[s] = struct{}{}
	}
	return codes
}

func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}
