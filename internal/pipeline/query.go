package pipeline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"tarifario/internal"
	"tarifario/internal/config"
)

var ErrInvalidQuery = errors.New("invalid query")

// QueryParams is the textual form of a query as it arrives from flags or URL parameters.
type QueryParams struct {
	Search string
	Unit   string
	Free   string
	Max    string
}

// ParseQuery builds a QueryState. A max at or above the configured upper bound means no bound
// and a max below the lower bound is raised to it.
func ParseQuery(p QueryParams, cfg config.Config) (internal.QueryState, error) {
	q := internal.QueryState{SearchText: strings.TrimSpace(p.Search)}

	if unit := strings.TrimSpace(p.Unit); unit != "" {
		q.SelectedUnit = &unit
	}

	if free := strings.TrimSpace(p.Free); free != "" {
		v, err := strconv.ParseBool(free)
		if err != nil {
			return internal.QueryState{}, fmt.Errorf("%w: free=%q", ErrInvalidQuery, p.Free)
		}
		q.FreeOnly = v
	}

	if raw := strings.TrimSpace(p.Max); raw != "" {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return internal.QueryState{}, fmt.Errorf("%w: max=%q", ErrInvalidQuery, p.Max)
		}
		lower := decimal.NewFromFloat(cfg.AmountMinDefault)
		upper := decimal.NewFromFloat(cfg.AmountMaxDefault)
		if v.LessThan(lower) {
			v = lower
		}
		if cfg.AmountMaxDefault <= 0 || v.LessThan(upper) {
			q.MaxAmount = &v
		}
	}

	return q, nil
}

// ParsePage reads a 1-based page number; empty means the first page.
func ParsePage(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: page=%q", ErrInvalidQuery, s)
	}
	return n, nil
}
