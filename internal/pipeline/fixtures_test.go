package pipeline

import (
	"github.com/shopspring/decimal"

	"tarifario/internal"
)

func rec(id int, origin, unit, process, tariff, amount string) internal.FeeRecord {
	return internal.FeeRecord{
		ID:          id,
		Origin:      origin,
		Unit:        unit,
		ProcessName: process,
		TariffName:  tariff,
		Amount:      decimal.RequireFromString(amount),
	}
}

func sampleRecords() []internal.FeeRecord {
	return []internal.FeeRecord{
		rec(1, "Otros", "Biblioteca", "Carné de biblioteca", "Duplicado de carné", "5"),
		rec(2, "TUPA", "Rectorado", "Constancia", "Constancia de estudios", "45.50"),
		rec(3, "Otros", "Facultad de Educación", "Matrícula", "Matrícula extemporánea", "200"),
		rec(4, "tupa", "Rectorado", "Certificado", "Certificado de notas", "0"),
		rec(5, "Otros", "rectorado", "Trámite", "Solicitud simple", "0"),
		rec(6, "TUPÁ", "Facultad de Educación", "Grados", "Bachiller", "350"),
	}
}

func ids(records []internal.FeeRecord) []int {
	out := make([]int, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func strp(v string) *string { return &v }

func decp(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}
