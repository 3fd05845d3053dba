package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"

	"tarifario/internal"
	"tarifario/internal/util"
)

var ErrEmptyExport = errors.New("no records to export")

const DocumentTitle = "Tarifario de procesos y servicios"

type ExportMeta struct {
	Label       string
	GeneratedAt time.Time
}

type exportColumn struct {
	header string
	width  float64
	align  string
	value  func(internal.FeeRecord) string
}

var exportColumns = []exportColumn{
	{header: "Proceso", width: 50, align: "L", value: func(r internal.FeeRecord) string { return r.ProcessName }},
	{header: "Tarifa", width: 60, align: "L", value: func(r internal.FeeRecord) string { return r.TariffName }},
	{header: "Monto", width: 22, align: "R", value: func(r internal.FeeRecord) string { return util.FormatMoney(r.Amount) }},
	{header: "Origen", width: 20, align: "L", value: func(r internal.FeeRecord) string { return r.Origin }},
	{header: "Unidad", width: 40, align: "L", value: func(r internal.FeeRecord) string { return r.Unit }},
	{header: "Requisitos", width: 85, align: "L", value: func(r internal.FeeRecord) string {
		return strings.Join(util.SplitRequirements(r.Requirements), "\n")
	}},
}

const (
	pdfMargin     = 10.0
	pdfLineHeight = 4.5
)

// WritePDF renders records as a landscape A4 table. The column header is repeated on every page.
func WritePDF(w io.Writer, records []internal.FeeRecord, meta ExportMeta) error {
	if len(records) == 0 {
		return ErrEmptyExport
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	pdf.SetTitle(DocumentTitle, true)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-pdfMargin)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("Página %d/{nb}", pdf.PageNo())), "", 0, "C", false, 0, "")
	})

	tableHeader := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for _, col := range exportColumns {
			pdf.CellFormat(col.width, 7, tr(col.header), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 8)
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, tr(DocumentTitle), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, tr("Generado: "+meta.GeneratedAt.Format("02/01/2006 15:04")), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, tr(latin1(meta.Label)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, tr(fmt.Sprintf("Registros: %d", len(records))), "", 1, "L", false, 0, "")
	pdf.Ln(2)
	tableHeader()

	_, pageHeight := pdf.GetPageSize()
	for _, r := range records {
		cells := make([][]string, len(exportColumns))
		maxLines := 1
		for i, col := range exportColumns {
			cells[i] = pdf.SplitText(latin1(col.value(r)), col.width)
			if len(cells[i]) > maxLines {
				maxLines = len(cells[i])
			}
		}
		rowHeight := float64(maxLines)*pdfLineHeight + 1

		if pdf.GetY()+rowHeight > pageHeight-pdfMargin-6 {
			pdf.AddPage()
			tableHeader()
		}

		x, y := pdf.GetX(), pdf.GetY()
		for i, col := range exportColumns {
			pdf.Rect(x, y, col.width, rowHeight, "D")
			for li, line := range cells[i] {
				pdf.SetXY(x, y+0.5+float64(li)*pdfLineHeight)
				pdf.CellFormat(col.width, pdfLineHeight, tr(line), "", 0, col.align, false, 0, "")
			}
			x += col.width
		}
		pdf.SetXY(pdfMargin, y+rowHeight)
	}

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

func ExportPDF(records []internal.FeeRecord, meta ExportMeta, outputPath string) error {
	buf := bytes.NewBuffer(nil)
	if err := WritePDF(buf, records, meta); err != nil {
		return err
	}
	return writeFile(outputPath, buf.Bytes())
}

func WriteXLSX(w io.Writer, records []internal.FeeRecord, meta ExportMeta) error {
	if len(records) == 0 {
		return ErrEmptyExport
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	_ = f.SetCellValue(sheet, "A1", DocumentTitle)
	_ = f.SetCellValue(sheet, "A2", "Generado: "+meta.GeneratedAt.Format("02/01/2006 15:04"))
	_ = f.SetCellValue(sheet, "A3", meta.Label)

	const headerRow = 5
	for i, col := range exportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, headerRow)
		_ = f.SetCellValue(sheet, cell, col.header)
	}

	for i, r := range records {
		row := headerRow + 1 + i
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, r.ProcessName)
		set(2, r.TariffName)
		set(3, r.Amount.InexactFloat64())
		set(4, r.Origin)
		set(5, r.Unit)
		set(6, strings.Join(util.SplitRequirements(r.Requirements), "\n"))
	}

	_, err := f.WriteTo(w)
	return err
}

func ExportXLSX(records []internal.FeeRecord, meta ExportMeta, outputPath string) error {
	buf := bytes.NewBuffer(nil)
	if err := WriteXLSX(buf, records, meta); err != nil {
		return err
	}
	return writeFile(outputPath, buf.Bytes())
}

func writeFile(path string, blob []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, blob, 0o644)
}

var latin1Replacer = strings.NewReplacer(
	"‘", "'", "’", "'", "“", `"`, "”", `"`,
	"–", "-", "—", "-", "…", "...", "•", "-", "\t", " ", "\r", "",
)

// latin1 keeps text inside the range the core PDF fonts can measure and draw.
func latin1(s string) string {
	s = latin1Replacer.Replace(s)
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n':
			return r
		case r < 32:
			return ' '
		case r > 255:
			return '?'
		default:
			return r
		}
	}, s)
}
