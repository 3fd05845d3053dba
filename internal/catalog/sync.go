package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tarifario/internal"
	"tarifario/internal/config"
	"tarifario/internal/logger"
	"tarifario/internal/storage"
)

type SyncService struct {
	db     *storage.DB
	client *Client
	cfg    config.Config
	now    func() time.Time
}

// NewSyncService wires the source client and the audit log. db may be nil.
func NewSyncService(db *storage.DB, cfg config.Config) *SyncService {
	return &SyncService{db: db, client: NewClient(cfg), cfg: cfg, now: time.Now}
}

// Load fetches, decodes and normalizes the source once. No partial catalog is returned on error.
func (s *SyncService) Load(ctx context.Context) (*Catalog, error) {
	log := logger.FromContext(ctx)
	run := internal.LoadRun{
		TraceID:  uuid.NewString(),
		Source:   s.cfg.SheetSource,
		Format:   internal.SourceFormat(s.cfg.SourceFormat),
		LoadedAt: s.now(),
	}

	cat, err := s.load(ctx, &run)
	if err != nil {
		run.Status = "failed"
		run.Error = err.Error()
		log.Error("catalog load failed", "traceID", run.TraceID, "source", run.Source, "error", err)
		s.record(ctx, run)
		return nil, err
	}

	run.Status = "ok"
	run.Rows = len(cat.Records)
	run.Dropped = cat.Dropped
	s.record(ctx, run)
	if s.db != nil {
		_ = s.db.SetMetadata("catalog.last_load", run.LoadedAt.UTC().Format(time.RFC3339))
	}
	log.Info("catalog loaded", "traceID", run.TraceID, "format", run.Format, "records", run.Rows, "dropped", run.Dropped)
	return cat, nil
}

func (s *SyncService) load(ctx context.Context, run *internal.LoadRun) (*Catalog, error) {
	doc, err := s.client.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch source: %w", err)
	}

	run.Format = DetectFormat(s.cfg.SourceFormat, doc)
	table, err := DecodeTable(run.Format, doc.Body)
	if err != nil {
		return nil, err
	}

	cat, err := BuildCatalog(table)
	if err != nil {
		return nil, err
	}
	cat.Source = doc.Location
	cat.Format = run.Format
	cat.LoadedAt = run.LoadedAt
	return cat, nil
}

func (s *SyncService) record(ctx context.Context, run internal.LoadRun) {
	if s.db == nil {
		return
	}
	if err := s.db.InsertLoad(run); err != nil {
		logger.FromContext(ctx).Warn("record load run", "error", err)
	}
}
