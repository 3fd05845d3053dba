package pipeline

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"tarifario/internal"
	"tarifario/internal/catalog"
	"tarifario/internal/util"
)

// Searcher replaces a record set with the records matching query on the given fields.
type Searcher interface {
	Search(query string, records []internal.FeeRecord, fields []internal.SearchField) []internal.FeeRecord
}

const subsequenceScore = 0.7

type FuzzySearcher struct {
	index     *catalog.Index
	threshold float64
}

func NewFuzzySearcher(index *catalog.Index, threshold float64) *FuzzySearcher {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.6
	}
	return &FuzzySearcher{index: index, threshold: threshold}
}

type scored struct {
	record internal.FeeRecord
	score  float64
}

// fieldSource exposes every (record, field) text to sahilm/fuzzy.
type fieldSource struct {
	texts  []string
	owners []int
}

func (s fieldSource) String(i int) string { return s.texts[i] }
func (s fieldSource) Len() int            { return len(s.texts) }

// Search ranks records by their best field score. Folded substring hits score 1, typos are
// scored by bigram similarity per query word, and compact subsequence hits ("matrcula" in
// "matricula") score subsequenceScore. Ties keep collection order.
func (s *FuzzySearcher) Search(query string, records []internal.FeeRecord, fields []internal.SearchField) []internal.FeeRecord {
	q := util.Fold(query)
	if q == "" {
		return append([]internal.FeeRecord(nil), records...)
	}
	qTokens := util.Tokenize(query)

	scores := make([]float64, len(records))
	src := fieldSource{}
	for i, r := range records {
		for _, f := range fields {
			text := s.index.Folded(r, f)
			if text == "" {
				continue
			}
			if score := fieldScore(q, qTokens, text, s.index.Tokens(r, f)); score > scores[i] {
				scores[i] = score
			}
			src.texts = append(src.texts, text)
			src.owners = append(src.owners, i)
		}
	}

	qLen := len([]rune(q))
	if qLen >= 4 {
		for _, m := range fuzzy.FindFrom(q, src) {
			if len(m.MatchedIndexes) == 0 {
				continue
			}
			span := m.MatchedIndexes[len(m.MatchedIndexes)-1] - m.MatchedIndexes[0] + 1
			owner := src.owners[m.Index]
			if span <= qLen+2 && scores[owner] < subsequenceScore {
				scores[owner] = subsequenceScore
			}
		}
	}

	hits := make([]scored, 0, len(records))
	for i, r := range records {
		if scores[i] >= s.threshold {
			hits = append(hits, scored{record: r, score: scores[i]})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]internal.FeeRecord, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.record)
	}
	return out
}

func fieldScore(query string, queryTokens []string, text string, textTokens []string) float64 {
	if strings.Contains(text, query) {
		return 1
	}
	if len(queryTokens) == 0 || len(textTokens) == 0 {
		return util.DiceCoefficient(query, text)
	}

	set := map[string]struct{}{}
	for _, t := range textTokens {
		set[t] = struct{}{}
	}
	overlap := 0
	sum := 0.0
	for _, qt := range queryTokens {
		if _, ok := set[qt]; ok {
			overlap++
		}
		best := 0.0
		for _, tt := range textTokens {
			sim := util.DiceCoefficient(qt, tt)
			if strings.HasPrefix(tt, qt) {
				sim = 1
			}
			if sim > best {
				best = sim
			}
		}
		sum += best
	}

	perToken := sum / float64(len(queryTokens))
	blended := 0.65*util.DiceCoefficient(query, text) + 0.35*float64(overlap)/float64(len(queryTokens))
	if blended > perToken {
		return blended
	}
	return perToken
}
