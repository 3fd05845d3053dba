package catalog

import (
	"errors"
	"sort"
	"strings"
	"time"

	"tarifario/internal"
	"tarifario/internal/util"
)

const (
	colOrigin       = "origen"
	colUnit         = "unidad"
	colCostCenter   = "cxc"
	colArea         = "area"
	colProcess      = "proceso"
	colTariff       = "tarifa"
	colAmount       = "monto"
	colRequirements = "requisitos"
	colEmail        = "correo"
	colPhone        = "celular"
)

// RequiredColumns are the folded header names every source must publish.
var RequiredColumns = []string{
	colOrigin, colUnit, colCostCenter, colArea, colProcess,
	colTariff, colAmount, colRequirements, colEmail, colPhone,
}

var paymentCodeColumns = []string{"codigos", "codigos de pago", "codigo de pago", "codigo pago"}

var ErrEmptyDataset = errors.New("dataset has no usable rows")

type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "missing required columns: " + strings.Join(e.Columns, ", ")
}

// Catalog is a loaded, normalized collection. It is built once and never mutated.
type Catalog struct {
	Records  []internal.FeeRecord
	Units    []string
	Index    *Index
	Source   string
	Format   internal.SourceFormat
	Dropped  int
	LoadedAt time.Time
}

func (c *Catalog) Record(id int) (internal.FeeRecord, bool) {
	if c == nil || id < 1 || id > len(c.Records) {
		return internal.FeeRecord{}, false
	}
	return c.Records[id-1], true
}

// NormalizeRow maps a raw row with arbitrary header casing and accents onto a FeeRecord.
// It never fails; missing values default to "" and 0. Headers folding to the same name are
// resolved in sorted header order; BuildCatalog uses the published header order instead.
func NormalizeRow(raw map[string]string) internal.FeeRecord {
	return normalizeRow(nil, raw)
}

// normalizeRow reads raw in headers order, then any remaining keys sorted. The first non-empty
// value per folded name wins.
func normalizeRow(headers []string, raw map[string]string) internal.FeeRecord {
	order := make([]string, 0, len(raw))
	listed := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		if _, ok := raw[h]; ok {
			if _, dup := listed[h]; !dup {
				order = append(order, h)
				listed[h] = struct{}{}
			}
		}
	}
	rest := make([]string, 0, len(raw))
	for k := range raw {
		if _, ok := listed[k]; !ok {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	order = append(order, rest...)

	fields := make(map[string]string, len(raw))
	for _, k := range order {
		key := util.Fold(k)
		if key == "" {
			continue
		}
		if prev, ok := fields[key]; ok && prev != "" {
			continue
		}
		fields[key] = strings.TrimSpace(raw[k])
	}

	amountRaw := fields[colAmount]
	return internal.FeeRecord{
		Origin:        fields[colOrigin],
		Unit:          fields[colUnit],
		CostCenter:    fields[colCostCenter],
		Area:          fields[colArea],
		ProcessName:   fields[colProcess],
		TariffName:    fields[colTariff],
		Amount:        util.ParseAmount(amountRaw),
		AmountRawText: amountRaw,
		Requirements:  fields[colRequirements],
		Email:         fields[colEmail],
		PhoneDigits:   util.DigitsOnly(fields[colPhone]),
		PaymentCodes:  splitPaymentCodes(firstField(fields, paymentCodeColumns)),
	}
}

// BuildCatalog validates the header set and normalizes every row. Rows without a process and
// tariff name are dropped.
func BuildCatalog(table internal.Table) (*Catalog, error) {
	if len(table.Headers) == 0 && len(table.Rows) == 0 {
		return nil, ErrEmptyDataset
	}
	if missing := MissingColumns(table.Headers); len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	records := make([]internal.FeeRecord, 0, len(table.Rows))
	dropped := 0
	for _, raw := range table.Rows {
		rec := normalizeRow(table.Headers, raw)
		if rec.ProcessName == "" && rec.TariffName == "" {
			dropped++
			continue
		}
		rec.ID = len(records) + 1
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}

	return &Catalog{
		Records: records,
		Units:   distinctUnits(records),
		Index:   BuildIndex(records),
		Dropped: dropped,
	}, nil
}

func MissingColumns(headers []string) []string {
	present := map[string]struct{}{}
	for _, h := range headers {
		present[util.Fold(h)] = struct{}{}
	}
	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := present[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}

func distinctUnits(records []internal.FeeRecord) []string {
	seen := map[string]string{}
	for _, r := range records {
		key := util.Fold(r.Unit)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; !ok {
			seen[key] = r.Unit
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, seen[k])
	}
	return out
}

func firstField(fields map[string]string, names []string) string {
	for _, n := range names {
		if v := fields[n]; v != "" {
			return v
		}
	}
	return ""
}

// splitPaymentCodes keeps blank lines as empty positions so later channels keep their index.
func splitPaymentCodes(raw string) []string {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, "\r\n", "\n"))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, "\n")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}
