package catalog

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/xuri/excelize/v2"

	"tarifario/internal"
	"tarifario/internal/util"
)

// DetectFormat resolves the configured format. "auto" looks at the response content type first
// and then at the source location.
func DetectFormat(configured string, doc Document) internal.SourceFormat {
	switch internal.SourceFormat(strings.ToLower(strings.TrimSpace(configured))) {
	case internal.FormatCSV:
		return internal.FormatCSV
	case internal.FormatHTML:
		return internal.FormatHTML
	case internal.FormatXLSX:
		return internal.FormatXLSX
	}

	ct := strings.ToLower(doc.ContentType)
	switch {
	case strings.Contains(ct, "spreadsheetml"):
		return internal.FormatXLSX
	case strings.Contains(ct, "text/html"):
		return internal.FormatHTML
	case strings.Contains(ct, "text/csv"):
		return internal.FormatCSV
	}

	loc := strings.ToLower(doc.Location)
	switch {
	case strings.Contains(loc, "output=xlsx") || strings.HasSuffix(loc, ".xlsx"):
		return internal.FormatXLSX
	case strings.Contains(loc, "pubhtml") || strings.HasSuffix(loc, ".html") || strings.HasSuffix(loc, ".htm"):
		return internal.FormatHTML
	}
	return internal.FormatCSV
}

func DecodeTable(format internal.SourceFormat, body []byte) (internal.Table, error) {
	switch format {
	case internal.FormatCSV, internal.FormatAuto, "":
		return decodeCSV(body)
	case internal.FormatHTML:
		return decodeHTML(body)
	case internal.FormatXLSX:
		return decodeXLSX(body)
	default:
		return internal.Table{}, fmt.Errorf("unsupported source format: %s", format)
	}
}

func decodeCSV(body []byte) (internal.Table, error) {
	body = bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var grid [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return internal.Table{}, fmt.Errorf("parse csv: %w", err)
		}
		grid = append(grid, record)
	}
	return tableFromGrid(grid, 0), nil
}

func decodeHTML(body []byte) (internal.Table, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return internal.Table{}, fmt.Errorf("parse html: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return internal.Table{}, nil
	}

	var grid [][]string
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := []string{}
		row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			cell.Find("br").ReplaceWithHtml("\n")
			cells = append(cells, cell.Text())
		})
		grid = append(grid, cells)
	})

	// Published sheets prefix the data with a row of column letters and each row with its number.
	headerAt := 0
	for i, cells := range grid {
		if looksLikeHeader(cells) {
			headerAt = i
			break
		}
	}
	return tableFromGrid(grid, headerAt), nil
}

func decodeXLSX(body []byte) (internal.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(body))
	if err != nil {
		return internal.Table{}, fmt.Errorf("parse xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return internal.Table{}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return internal.Table{}, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return tableFromGrid(rows, 0), nil
}

func looksLikeHeader(cells []string) bool {
	for _, c := range cells {
		key := util.Fold(c)
		if key == colProcess || key == colTariff {
			return true
		}
	}
	return false
}

// tableFromGrid uses the first non-blank row at or after headerAt as the header and keys every
// later non-blank row by it. Duplicate and empty header cells are ignored.
func tableFromGrid(grid [][]string, headerAt int) internal.Table {
	out := internal.Table{}
	start := -1
	for i := headerAt; i < len(grid); i++ {
		if !isBlankRow(grid[i]) {
			start = i
			break
		}
	}
	if start < 0 {
		return out
	}

	headers := make([]string, len(grid[start]))
	for i, h := range grid[start] {
		headers[i] = strings.TrimSpace(h)
	}
	out.Headers = headers

	for _, cells := range grid[start+1:] {
		if isBlankRow(cells) {
			continue
		}
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if h == "" || i >= len(cells) {
				continue
			}
			if _, exists := row[h]; exists {
				continue
			}
			row[h] = strings.TrimSpace(cells[i])
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
