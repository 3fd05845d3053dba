package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tarifario/internal"
	"tarifario/internal/commission"
	"tarifario/internal/logger"
	"tarifario/internal/pipeline"
	"tarifario/internal/util"
)

const (
	formatPDF  = "pdf"
	formatXLSX = "xlsx"
)

var exportContentTypes = map[string]string{
	formatPDF:  "application/pdf",
	formatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

type healthResponse struct {
	Status   string `json:"status"`
	Records  int    `json:"records"`
	Source   string `json:"source,omitempty"`
	LoadedAt string `json:"loadedAt,omitempty"`
	Error    string `json:"error,omitempty"`
}

type estimateResponse struct {
	internal.Estimate
	Label          string `json:"label"`
	CommissionText string `json:"commissionText"`
	TotalText      string `json:"totalText"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func sendJSONError(w http.ResponseWriter, r *http.Request, message string, status int) {
	logger.FromContext(r.Context()).Warn("sending JSON error to client", "message", message, "statusCode", status)
	writeJSON(w, status, map[string]string{"error": message})
}

// ready returns the published catalog or answers 503 with the load status.
func (s *Server) ready(w http.ResponseWriter, r *http.Request) (*snapshot, bool) {
	snap := s.state.Load()
	switch snap.status {
	case StatusReady:
		return snap, true
	case StatusFailed:
		sendJSONError(w, r, "catalog load failed: "+snap.err.Error(), http.StatusServiceUnavailable)
	default:
		sendJSONError(w, r, "catalog loading", http.StatusServiceUnavailable)
	}
	return nil, false
}

func (s *Server) record(w http.ResponseWriter, r *http.Request) (internal.FeeRecord, bool) {
	snap, ok := s.ready(w, r)
	if !ok {
		return internal.FeeRecord{}, false
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		sendJSONError(w, r, "invalid record id", http.StatusBadRequest)
		return internal.FeeRecord{}, false
	}
	rec, found := snap.catalog.Record(id)
	if !found {
		sendJSONError(w, r, fmt.Sprintf("record %d not found", id), http.StatusNotFound)
		return internal.FeeRecord{}, false
	}
	return rec, true
}

func (s *Server) query(w http.ResponseWriter, r *http.Request) (internal.QueryState, bool) {
	v := r.URL.Query()
	q, err := pipeline.ParseQuery(pipeline.QueryParams{
		Search: v.Get("q"),
		Unit:   v.Get("unit"),
		Free:   v.Get("free"),
		Max:    v.Get("max"),
	}, s.cfg)
	if err != nil {
		sendJSONError(w, r, err.Error(), http.StatusBadRequest)
		return internal.QueryState{}, false
	}
	return q, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.state.Load()
	resp := healthResponse{Status: snap.status}
	status := http.StatusServiceUnavailable
	switch snap.status {
	case StatusReady:
		status = http.StatusOK
		resp.Records = len(snap.catalog.Records)
		resp.Source = snap.catalog.Source
		resp.LoadedAt = snap.catalog.LoadedAt.UTC().Format(time.RFC3339)
	case StatusFailed:
		resp.Error = snap.err.Error()
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleUnits(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.ready(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"units": snap.catalog.Units})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.ready(w, r)
	if !ok {
		return
	}
	q, ok := s.query(w, r)
	if !ok {
		return
	}
	page, err := pipeline.ParsePage(r.URL.Query().Get("page"))
	if err != nil {
		sendJSONError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	results := pipeline.Filter(snap.catalog.Records, q, snap.searcher)
	writeJSON(w, http.StatusOK, pipeline.Paginate(results, s.cfg.PageSize, page))
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.record(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, pipeline.BuildDetail(rec, s.cfg))
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.record(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string][]internal.ChannelState{"channels": commission.Availability(rec)})
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.record(w, r)
	if !ok {
		return
	}
	channel := internal.ChannelID(r.URL.Query().Get("channel"))
	if !commission.Known(channel) {
		sendJSONError(w, r, fmt.Sprintf("unknown channel %q", channel), http.StatusBadRequest)
		return
	}

	sel := commission.NewSelector()
	sel.SetRecord(rec)
	est, err := sel.Select(channel)
	if errors.Is(err, commission.ErrChannelDisabled) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error":   est.Reason,
			"channel": string(est.Channel),
		})
		return
	}
	if err != nil {
		sendJSONError(w, r, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, estimateResponse{
		Estimate:       est,
		Label:          commission.Label(channel),
		CommissionText: util.FormatMoney(est.Commission),
		TotalText:      util.FormatMoney(est.Total),
	})
}

func (s *Server) handleExport(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := s.ready(w, r)
		if !ok {
			return
		}
		q, ok := s.query(w, r)
		if !ok {
			return
		}

		// The document header shows the generation time to the minute, so entries are scoped
		// to the minute they were generated in.
		label := pipeline.Label(q)
		generatedAt := s.now()
		key := strings.Join([]string{format, generatedAt.Truncate(time.Minute).Format(time.RFC3339), pipeline.QueryKey(q)}, "|")
		if blob, found := s.exports.Get(key); found {
			sendDocument(w, format, blob.([]byte))
			return
		}

		results := pipeline.Filter(snap.catalog.Records, q, snap.searcher)
		meta := pipeline.ExportMeta{Label: label, GeneratedAt: generatedAt}
		buf := bytes.NewBuffer(nil)
		var err error
		switch format {
		case formatPDF:
			err = pipeline.WritePDF(buf, results, meta)
		default:
			err = pipeline.WriteXLSX(buf, results, meta)
		}
		if errors.Is(err, pipeline.ErrEmptyExport) {
			sendJSONError(w, r, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		if err != nil {
			logger.FromContext(r.Context()).Error("export failed", "format", format, "error", err)
			sendJSONError(w, r, "export failed", http.StatusInternalServerError)
			return
		}

		blob := buf.Bytes()
		s.exports.Set(key, blob, 0)
		s.recordExport(r, internal.ExportRun{
			TraceID: uuid.NewString(),
			Format:  format,
			Label:   label,
			Rows:    len(results),
		})
		sendDocument(w, format, blob)
	}
}

func (s *Server) recordExport(r *http.Request, run internal.ExportRun) {
	if s.db == nil {
		return
	}
	if err := s.db.InsertExport(run); err != nil {
		logger.FromContext(r.Context()).Warn("record export run", "error", err)
	}
}

func sendDocument(w http.ResponseWriter, format string, blob []byte) {
	w.Header().Set("Content-Type", exportContentTypes[format])
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="tarifario.%s"`, format))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, bytes.NewReader(blob))
}
