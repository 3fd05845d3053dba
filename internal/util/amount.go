package util

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	reCurrencyMarker = regexp.MustCompile(`(?i)s/\.?|soles|sol`)
	reAmountJunk     = regexp.MustCompile(`[^0-9.]`)
	reLeadingNumber  = regexp.MustCompile(`^[0-9]*\.?[0-9]*`)
	reCommaGroups    = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+$`)
)

// ParseAmount extracts a non-negative amount from free-form currency text such as "S/ 45.50",
// "25,50 soles" or "Gratuito". Anything it cannot read is 0.
func ParseAmount(text string) decimal.Decimal {
	s := reCurrencyMarker.ReplaceAllString(text, "")
	s = normalizeSeparators(s)
	s = reAmountJunk.ReplaceAllString(s, "")

	token := strings.TrimSuffix(reLeadingNumber.FindString(s), ".")
	if token == "" {
		return decimal.Zero
	}
	if strings.HasPrefix(token, ".") {
		token = "0" + token
	}
	value, err := decimal.NewFromString(token)
	if err != nil || value.IsNegative() {
		return decimal.Zero
	}
	return value
}

// normalizeSeparators rewrites s so that the only decimal separator left is a period.
func normalizeSeparators(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma < 0:
		return s
	case lastDot < 0:
		compact := strings.TrimSpace(strings.ReplaceAll(s, " ", ""))
		if strings.Count(compact, ",") > 1 && reCommaGroups.MatchString(compact) {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)
	case lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		i := strings.LastIndex(s, ",")
		return strings.ReplaceAll(s[:i], ",", "") + "." + s[i+1:]
	default:
		return strings.ReplaceAll(s, ",", "")
	}
}

// FormatMoney renders an amount rounded to two decimals, e.g. "S/ 101.80".
func FormatMoney(d decimal.Decimal) string {
	return "S/ " + d.StringFixed(2)
}
