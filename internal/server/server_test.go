package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"tarifario/internal"
	"tarifario/internal/catalog"
	"tarifario/internal/config"
	"tarifario/internal/storage"
)

type loaderFunc func(ctx context.Context) (*catalog.Catalog, error)

func (f loaderFunc) Load(ctx context.Context) (*catalog.Catalog, error) { return f(ctx) }

var headers = []string{"Origen", "Unidad", "CxC", "Área", "Proceso", "Tarifa", "Monto", "Requisitos", "Correo", "Celular", "Códigos de pago"}

func row(values ...string) map[string]string {
	out := map[string]string{}
	for i, h := range headers {
		if i < len(values) {
			out[h] = values[i]
		}
	}
	return out
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.BuildCatalog(internal.Table{
		Headers: headers,
		Rows: []map[string]string{
			row("Otros", "Biblioteca", "01", "Lectura", "Carné", "Duplicado de carné", "S/ 5.00", "Solicitud", "", ""),
			row("TUPA", "Rectorado", "02", "Secretaría", "Constancia", "Constancia de estudios", "S/ 100", "Solicitud.\nDNI", "mesa@unh.edu.pe", "964 123 456", "C-01\nB-22\nR-33"),
			row("TUPA", "Facultad de Educación", "03", "Secretaría", "Matrícula", "Matrícula extemporánea", "200", "", "", ""),
			row("Otros", "Rectorado", "02", "Secretaría", "Trámite", "Solicitud simple", "Gratuito", "", "", ""),
		},
	})
	if err != nil {
		t.Fatalf("BuildCatalog: %v", err)
	}
	return cat
}

func testConfig() config.Config {
	return config.Config{
		PageSize:          20,
		AmountMaxDefault:  3000,
		SearchThreshold:   0.6,
		PhoneCountryCode:  "51",
		MessagingBaseURL:  "https://wa.me",
		ExportCacheTTLSec: 60,
	}
}

func readyServer(t *testing.T, cfg config.Config, db *storage.DB) *Server {
	t.Helper()
	s := New(cfg, db)
	cat := testCatalog(t)
	s.Load(context.Background(), loaderFunc(func(context.Context) (*catalog.Catalog, error) { return cat, nil }))
	return s
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestLoadingAndFailedStates(t *testing.T) {
	s := New(testConfig(), nil)
	h := s.Router()

	if rec := get(t, h, "/api/records"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("loading status=%d", rec.Code)
	}
	var health healthResponse
	decode(t, get(t, h, "/healthz"), &health)
	if health.Status != StatusLoading {
		t.Fatalf("health=%+v", health)
	}

	s.Load(context.Background(), loaderFunc(func(context.Context) (*catalog.Catalog, error) {
		return nil, &catalog.MissingColumnsError{Columns: []string{"monto"}}
	}))
	rec := get(t, h, "/api/units")
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "missing required columns: monto") {
		t.Fatalf("failed load: %d %s", rec.Code, rec.Body.String())
	}
	decode(t, get(t, h, "/healthz"), &health)
	if health.Status != StatusFailed || health.Error == "" {
		t.Fatalf("health=%+v", health)
	}
}

func TestRecordsEndpoint(t *testing.T) {
	h := readyServer(t, testConfig(), nil).Router()

	var page internal.Page
	rec := get(t, h, "/api/records")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	decode(t, rec, &page)
	if page.TotalItems != 4 || page.TotalPages != 1 || page.Items[0].Origin != "TUPA" {
		t.Fatalf("page=%+v", page)
	}

	decode(t, get(t, h, "/api/records?unit=rectorado&free=true"), &page)
	if page.TotalItems != 1 || page.Items[0].ProcessName != "Trámite" {
		t.Fatalf("free rectorado page=%+v", page)
	}

	decode(t, get(t, h, "/api/records?q=matric"), &page)
	if page.TotalItems != 1 || page.Items[0].ProcessName != "Matrícula" {
		t.Fatalf("search page=%+v", page)
	}

	decode(t, get(t, h, "/api/records?page=9"), &page)
	if len(page.Items) != 0 || page.TotalPages != 1 {
		t.Fatalf("out of range page=%+v", page)
	}

	if rec := get(t, h, "/api/records?max=lots"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad max status=%d", rec.Code)
	}
}

func TestUnitsAndDetail(t *testing.T) {
	h := readyServer(t, testConfig(), nil).Router()

	var units map[string][]string
	decode(t, get(t, h, "/api/units"), &units)
	if strings.Join(units["units"], ",") != "Biblioteca,Facultad de Educación,Rectorado" {
		t.Fatalf("units=%v", units)
	}

	var detail internal.Detail
	decode(t, get(t, h, "/api/records/2"), &detail)
	if detail.Record.TariffName != "Constancia de estudios" || len(detail.Requirements) != 2 {
		t.Fatalf("detail=%+v", detail)
	}
	if detail.MessagingURL == nil || *detail.MessagingURL != "https://wa.me/51964123456" {
		t.Fatalf("messaging=%v", detail.MessagingURL)
	}

	if rec := get(t, h, "/api/records/99"); rec.Code != http.StatusNotFound {
		t.Fatalf("missing status=%d", rec.Code)
	}
	if rec := get(t, h, "/api/records/abc"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status=%d", rec.Code)
	}
}

func TestChannelsAndEstimate(t *testing.T) {
	h := readyServer(t, testConfig(), nil).Router()

	var channels map[string][]internal.ChannelState
	decode(t, get(t, h, "/api/records/2/channels"), &channels)
	if len(channels["channels"]) != 6 {
		t.Fatalf("channels=%+v", channels)
	}

	var est estimateResponse
	rec := get(t, h, "/api/records/2/estimate?channel=bank-fixed")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	decode(t, rec, &est)
	if est.TotalText != "S/ 101.80" || est.CommissionText != "S/ 1.80" || est.Code == nil || *est.Code != "B-22" {
		t.Fatalf("estimate=%+v", est)
	}

	rec = get(t, h, "/api/records/3/estimate?channel=bank-fixed")
	if rec.Code != http.StatusUnprocessableEntity || strings.Contains(rec.Body.String(), "total") {
		t.Fatalf("ineligible: %d %s", rec.Code, rec.Body.String())
	}
}

func TestExportEndpoints(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	s := readyServer(t, testConfig(), db)
	s.now = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }
	h := s.Router()

	rec := get(t, h, "/api/export.pdf?unit=Rectorado")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("pdf: %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.HasPrefix(rec.Body.String(), "%PDF-") {
		t.Fatalf("body is not a pdf")
	}
	if again := get(t, h, "/api/export.pdf?unit=Rectorado"); again.Body.String() != rec.Body.String() {
		t.Fatalf("cached export differs")
	}

	if rec := get(t, h, "/api/export.xlsx"); rec.Code != http.StatusOK || rec.Body.Len() == 0 {
		t.Fatalf("xlsx: %d", rec.Code)
	}

	rec = get(t, h, "/api/export.pdf?q=zzzzzz")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty export status=%d", rec.Code)
	}

	runs, err := db.ListExports(10)
	if err != nil {
		t.Fatalf("list exports: %v", err)
	}
	if len(runs) != 2 || runs[0].Format != formatXLSX || runs[1].Label != "Unidad: Rectorado" {
		t.Fatalf("export runs=%+v", runs)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.HTTPRateLimitRPS = 1
	cfg.HTTPRateBurst = 1
	h := readyServer(t, cfg, nil).Router()

	if rec := get(t, h, "/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("first status=%d", rec.Code)
	}
	if rec := get(t, h, "/healthz"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status=%d", rec.Code)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.HTTPAddr = "127.0.0.1:0"
	s := New(cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, loaderFunc(func(context.Context) (*catalog.Catalog, error) {
			return nil, errors.New("offline")
		}))
	}()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not stop")
	}
}

func xlsxRecordCount(t *testing.T, rec *httptest.ResponseRecorder) int {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	return len(rows) - 5
}

func TestExportCacheDistinguishesNearbyAmounts(t *testing.T) {
	cat, err := catalog.BuildCatalog(internal.Table{
		Headers: headers,
		Rows: []map[string]string{
			row("Otros", "Rectorado", "01", "Mesa", "Copia", "Copia simple", "5.003"),
			row("Otros", "Rectorado", "01", "Mesa", "Consulta", "Consulta", "Gratuito"),
		},
	})
	if err != nil {
		t.Fatalf("BuildCatalog: %v", err)
	}
	s := New(testConfig(), nil)
	s.Load(context.Background(), loaderFunc(func(context.Context) (*catalog.Catalog, error) { return cat, nil }))
	h := s.Router()

	if n := xlsxRecordCount(t, get(t, h, "/api/export.xlsx?max=5")); n != 1 {
		t.Fatalf("max=5 records=%d", n)
	}
	if n := xlsxRecordCount(t, get(t, h, "/api/export.xlsx?max=5.004")); n != 2 {
		t.Fatalf("max=5.004 records=%d", n)
	}
}

func TestExportCacheFollowsGenerationMinute(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	s := readyServer(t, testConfig(), db)
	now := time.Date(2025, 3, 1, 10, 0, 5, 0, time.UTC)
	s.now = func() time.Time { return now }
	h := s.Router()

	get(t, h, "/api/export.xlsx")
	now = now.Add(40 * time.Second)
	get(t, h, "/api/export.xlsx")
	now = now.Add(time.Minute)
	get(t, h, "/api/export.xlsx")

	runs, err := db.ListExports(10)
	if err != nil {
		t.Fatalf("list exports: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("generated %d documents, want 2", len(runs))
	}
}

func TestEstimateRejectsUnknownChannel(t *testing.T) {
	h := readyServer(t, testConfig(), nil).Router()

	rec := get(t, h, "/api/records/2/estimate?channel=carrier-pigeon")
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "unknown channel") {
		t.Fatalf("unknown channel: %d %s", rec.Code, rec.Body.String())
	}
	if rec := get(t, h, "/api/records/2/estimate"); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing channel status=%d", rec.Code)
	}
}
