package catalog

import (
	"tarifario/internal"
	"tarifario/internal/util"
)

// Index keeps the folded text and tokens of every searchable field, keyed by record ID.
type Index struct {
	FoldedByID map[int]map[internal.SearchField]string
	TokensByID map[int]map[internal.SearchField][]string
}

func BuildIndex(records []internal.FeeRecord) *Index {
	idx := &Index{
		FoldedByID: map[int]map[internal.SearchField]string{},
		TokensByID: map[int]map[internal.SearchField][]string{},
	}

	for _, r := range records {
		folded := map[internal.SearchField]string{}
		tokens := map[internal.SearchField][]string{}
		for _, f := range internal.SearchFields {
			folded[f] = util.Fold(r.Field(f))
			tokens[f] = util.Tokenize(r.Field(f))
		}
		idx.FoldedByID[r.ID] = folded
		idx.TokensByID[r.ID] = tokens
	}

	return idx
}

// Folded returns the folded field text, computing it when the record is not indexed.
func (idx *Index) Folded(r internal.FeeRecord, f internal.SearchField) string {
	if idx != nil {
		if byField, ok := idx.FoldedByID[r.ID]; ok {
			if s, ok := byField[f]; ok {
				return s
			}
		}
	}
	return util.Fold(r.Field(f))
}

func (idx *Index) Tokens(r internal.FeeRecord, f internal.SearchField) []string {
	if idx != nil {
		if byField, ok := idx.TokensByID[r.ID]; ok {
			if t, ok := byField[f]; ok {
				return t
			}
		}
	}
	return util.Tokenize(r.Field(f))
}
