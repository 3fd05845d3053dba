package pipeline

import (
	"sort"
	"strings"

	"tarifario/internal"
	"tarifario/internal/util"
)

const minSearchRunes = 2

const priorityOrigin = "tupa"

// Filter applies search, unit facet and amount filters in that order and moves "tupa" records to
// the front with a stable sort. records is never modified.
func Filter(records []internal.FeeRecord, query internal.QueryState, searcher Searcher) []internal.FeeRecord {
	working := records
	if text := strings.TrimSpace(query.SearchText); len([]rune(text)) >= minSearchRunes && searcher != nil {
		working = searcher.Search(text, records, internal.SearchFields)
	}

	out := make([]internal.FeeRecord, 0, len(working))
	unit := ""
	if query.SelectedUnit != nil {
		unit = util.Fold(*query.SelectedUnit)
	}
	for _, r := range working {
		if query.SelectedUnit != nil && util.Fold(r.Unit) != unit {
			continue
		}
		if query.FreeOnly {
			if !r.Amount.IsZero() {
				continue
			}
		} else if query.MaxAmount != nil && r.Amount.GreaterThan(*query.MaxAmount) {
			continue
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return isPriority(out[i]) && !isPriority(out[j])
	})
	return out
}

func isPriority(r internal.FeeRecord) bool {
	return util.Fold(r.Origin) == priorityOrigin
}

// Label describes the active facet and search for document headers.
func Label(query internal.QueryState) string {
	parts := []string{}
	if query.SelectedUnit != nil && strings.TrimSpace(*query.SelectedUnit) != "" {
		parts = append(parts, "Unidad: "+strings.TrimSpace(*query.SelectedUnit))
	} else {
		parts = append(parts, "Todas las unidades")
	}
	if text := strings.TrimSpace(query.SearchText); text != "" {
		parts = append(parts, `Búsqueda: "`+text+`"`)
	}
	if query.FreeOnly {
		parts = append(parts, "Solo gratuitos")
	} else if query.MaxAmount != nil {
		parts = append(parts, "Monto hasta S/ "+query.MaxAmount.StringFixed(2))
	}
	return strings.Join(parts, " | ")
}

// QueryKey identifies the result set a query selects, for caching. Unlike Label it keeps the
// exact max amount and folds the unit the way Filter compares it.
func QueryKey(query internal.QueryState) string {
	unit := "*"
	if query.SelectedUnit != nil {
		unit = "=" + util.Fold(*query.SelectedUnit)
	}
	search := strings.TrimSpace(query.SearchText)
	if len([]rune(search)) < minSearchRunes {
		search = ""
	}
	amount := "any"
	switch {
	case query.FreeOnly:
		amount = "free"
	case query.MaxAmount != nil:
		amount = "max=" + query.MaxAmount.String()
	}
	return strings.Join([]string{unit, search, amount}, "|")
}
