package pipeline

import (
	"reflect"
	"testing"

	"tarifario/internal"
	"tarifario/internal/catalog"
)

func TestFuzzySearcher(t *testing.T) {
	records := sampleRecords()
	searcher := NewFuzzySearcher(catalog.BuildIndex(records), 0.6)

	cases := []struct {
		name  string
		query string
		want  []int
	}{
		{name: "accentless prefix", query: "matric", want: []int{3}},
		{name: "typo", query: "constancai", want: []int{2}},
		{name: "dropped letter", query: "matrcula", want: []int{3}},
		{name: "unit field", query: "RECTORADO", want: []int{2, 4, 5}},
		{name: "accented unit", query: "educacion", want: []int{3, 6}},
		{name: "no match", query: "zzzz", want: []int{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := searcher.Search(tc.query, records, internal.SearchFields)
			if !reflect.DeepEqual(ids(got), tc.want) {
				t.Fatalf("got %v want %v", ids(got), tc.want)
			}
		})
	}
}

func TestFuzzySearcherRanksExactHitsFirst(t *testing.T) {
	records := []internal.FeeRecord{
		rec(1, "Otros", "Tesorería", "Constansia", "Pago", "1"),
		rec(2, "Otros", "Tesorería", "Constancia", "Pago", "1"),
	}
	got := NewFuzzySearcher(nil, 0.6).Search("constancia", records, internal.SearchFields)
	if want := []int{2, 1}; !reflect.DeepEqual(ids(got), want) {
		t.Fatalf("got %v want %v", ids(got), want)
	}
}

func TestFuzzySearcherRestrictsFields(t *testing.T) {
	records := sampleRecords()
	got := NewFuzzySearcher(nil, 0.6).Search("rectorado", records, []internal.SearchField{internal.FieldTariff})
	if len(got) != 0 {
		t.Fatalf("unit matched while only tariff searched: %v", ids(got))
	}
}
