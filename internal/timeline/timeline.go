// Package timeline normalises raw ASR output into an ordered word timeline
// and derives speech and filler intervals from it.
//
// ASR backends make no ordering or consistency promises, so normalisation is
// defensive: tokens are sorted, clipped to the track, de-overlapped and
// de-duplicated before anything downstream sees them. Filler words are
// tagged here, at the single place that knows about token text.
package timeline

import (
	"sort"
	"strings"
	"time"

	"github.com/antzucaro/matchr"

	"quickcut/pkg/asr"
)

// Word is a normalised, filler-tagged recognition token.
type Word struct {
	Text  string
	Start time.Duration
	End   time.Duration

	// IsFiller marks disfluencies ("um", "uh") to be excised from
	// otherwise-kept speech.
	IsFiller bool
}

// Interval is a half-open [Start, End) time range with Start < End.
type Interval struct {
	Start time.Duration
	End   time.Duration
}

// Duration returns the interval length.
func (iv Interval) Duration() time.Duration { return iv.End - iv.Start }

// FillerMatcher classifies token text as filler. The zero value matches
// nothing; construct with NewFillerMatcher.
type FillerMatcher struct {
	words          []string
	exact          map[string]struct{}
	fuzzyThreshold float64
}

// NewFillerMatcher builds a matcher over the given lexicon. Matching is
// case-insensitive; when fuzzyThreshold > 0, tokens whose Jaro-Winkler
// similarity to any lexicon word meets the threshold also count, which
// catches stretched spellings like "ummm" or "uhhh".
func NewFillerMatcher(words []string, fuzzyThreshold float64) *FillerMatcher {
	m := &FillerMatcher{
		exact:          make(map[string]struct{}, len(words)),
		fuzzyThreshold: fuzzyThreshold,
	}
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		m.words = append(m.words, w)
		m.exact[w] = struct{}{}
	}
	return m
}

// Match reports whether text is a filler word.
func (m *FillerMatcher) Match(text string) bool {
	if m == nil || len(m.words) == 0 {
		return false
	}
	word := normalizeWord(text)
	if word == "" {
		return false
	}
	if _, ok := m.exact[word]; ok {
		return true
	}
	if m.fuzzyThreshold <= 0 {
		return false
	}
	for _, w := range m.words {
		if matchr.JaroWinkler(word, w, true) >= m.fuzzyThreshold {
			return true
		}
	}
	return false
}

// normalizeWord lowercases text and strips surrounding punctuation so that
// "Um," and "um" compare equal.
func normalizeWord(text string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(text)), ".,!?;:'\"()-")
}

// Normalize converts raw ASR tokens into an ordered, de-overlapped word
// timeline clipped to [0, duration]. Tokens with start >= end (before or
// after clipping) are dropped. When two tokens overlap, the later token's
// start is clamped to the earlier token's end; a token fully contained in
// its predecessor is dropped. Fillers are tagged via matcher (nil disables
// tagging).
func Normalize(tokens []asr.Token, duration time.Duration, matcher *FillerMatcher) []Word {
	sorted := make([]asr.Token, len(tokens))
	copy(sorted, tokens)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	words := make([]Word, 0, len(sorted))
	var lastEnd time.Duration
	for _, tok := range sorted {
		start, end := tok.Start, tok.End
		if start < 0 {
			start = 0
		}
		if end > duration {
			end = duration
		}
		if start < lastEnd {
			start = lastEnd
		}
		if start >= end {
			continue
		}
		words = append(words, Word{
			Text:     tok.Text,
			Start:    start,
			End:      end,
			IsFiller: matcher.Match(tok.Text),
		})
		lastEnd = end
	}
	return words
}

// SpeechIntervals merges word time ranges into continuous speech intervals,
// bridging gaps up to mergeGap. Filler words still count as speech here;
// their excision is a later, segment-level pass.
func SpeechIntervals(words []Word, mergeGap time.Duration) []Interval {
	ranges := make([]Interval, 0, len(words))
	for _, w := range words {
		ranges = append(ranges, Interval{Start: w.Start, End: w.End})
	}
	return mergeAdjacent(ranges, mergeGap)
}

// FillerIntervals returns the merged time ranges of filler words, bridging
// gaps up to mergeGap so that a stuttered "um, um" is one cut.
func FillerIntervals(words []Word, mergeGap time.Duration) []Interval {
	var ranges []Interval
	for _, w := range words {
		if w.IsFiller {
			ranges = append(ranges, Interval{Start: w.Start, End: w.End})
		}
	}
	return mergeAdjacent(ranges, mergeGap)
}

// mergeAdjacent merges sorted-or-not intervals whose gap is at most maxGap.
func mergeAdjacent(ranges []Interval, maxGap time.Duration) []Interval {
	if len(ranges) == 0 {
		return nil
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Start < ranges[j].Start })

	merged := make([]Interval, 0, len(ranges))
	cur := ranges[0]
	for _, r := range ranges[1:] {
		if r.Start <= cur.End+maxGap {
			if r.End > cur.End {
				cur.End = r.End
			}
			continue
		}
		merged = append(merged, cur)
		cur = r
	}
	return append(merged, cur)
}
