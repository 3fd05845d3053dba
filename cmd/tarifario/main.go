package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"tarifario/internal"
	"tarifario/internal/catalog"
	"tarifario/internal/commission"
	"tarifario/internal/config"
	"tarifario/internal/logger"
	"tarifario/internal/pipeline"
	"tarifario/internal/server"
	"tarifario/internal/storage"
	"tarifario/internal/util"
)

func main() {
	cfg, err := config.Load()
	must(err)
	logger.InitWriter(os.Stderr, cfg.LogLevel)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "list":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		qf := queryFlags(fs)
		page := fs.Int("page", 1, "page number")
		_ = fs.Parse(os.Args[2:])
		cat := load(cfg, db)
		results := filter(cfg, cat, qf)
		p := pipeline.Paginate(results, cfg.PageSize, *page)
		for _, r := range p.Items {
			fmt.Printf("%4d  %-10s  %12s  %s / %s  [%s]\n", r.ID, r.Origin, util.FormatMoney(r.Amount), r.ProcessName, r.TariffName, r.Unit)
		}
		fmt.Printf("page %d/%d total=%d\n", p.PageNumber, p.TotalPages, p.TotalItems)
	case "units":
		cat := load(cfg, db)
		for _, u := range cat.Units {
			fmt.Println(u)
		}
	case "show":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.Int("id", 0, "record id")
		_ = fs.Parse(os.Args[2:])
		rec := record(load(cfg, db), *id)
		d := pipeline.BuildDetail(rec, cfg)
		fmt.Printf("%s\n%s\n", rec.ProcessName, rec.TariffName)
		fmt.Printf("unidad=%s area=%s cxc=%s origen=%s\n", rec.Unit, rec.Area, rec.CostCenter, rec.Origin)
		fmt.Printf("monto=%s\n", util.FormatMoney(rec.Amount))
		for _, req := range d.Requirements {
			fmt.Printf("  - %s\n", req)
		}
		if d.MailtoURL != nil {
			fmt.Println(*d.MailtoURL)
		}
		if d.MessagingURL != nil {
			fmt.Println(*d.MessagingURL)
		}
	case "channels":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.Int("id", 0, "record id")
		_ = fs.Parse(os.Args[2:])
		rec := record(load(cfg, db), *id)
		for _, st := range commission.NewSelector().SetRecord(rec) {
			state := "disabled"
			if st.Enabled {
				state = "enabled"
			}
			fmt.Printf("%-20s %-9s %s\n", st.Channel, state, st.Label)
		}
	case "estimate":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.Int("id", 0, "record id")
		channel := fs.String("channel", "", strings.Join(channelNames(), "|"))
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*channel) == "" {
			must(fmt.Errorf("--channel is required"))
		}
		if !commission.Known(internal.ChannelID(*channel)) {
			must(fmt.Errorf("unknown channel %q", *channel))
		}
		sel := commission.NewSelector()
		sel.SetRecord(record(load(cfg, db), *id))
		est, err := sel.Select(internal.ChannelID(*channel))
		if errors.Is(err, commission.ErrChannelDisabled) {
			must(fmt.Errorf("channel %s not available: %s", *channel, est.Reason))
		}
		must(err)
		fmt.Printf("monto=%s comision=%s total=%s\n", util.FormatMoney(est.Amount), util.FormatMoney(est.Commission), util.FormatMoney(est.Total))
		switch {
		case est.Code != nil:
			fmt.Printf("codigo=%s\n", *est.Code)
		case est.CodePending:
			fmt.Println("codigo pendiente de asignacion")
		}
		if est.Message != "" {
			fmt.Println(est.Message)
		}
	case "export:pdf", "export:xlsx":
		format := strings.TrimPrefix(cmd, "export:")
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", "", "output path")
		qf := queryFlags(fs)
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*out) == "" {
			*out = filepath.Join(cfg.OutputDir, fmt.Sprintf("tarifario-%s.%s", time.Now().Format("20060102-150405"), format))
		}

		cat := load(cfg, db)
		q := parseQuery(cfg, qf)
		results := pipeline.Filter(cat.Records, q, pipeline.NewFuzzySearcher(cat.Index, cfg.SearchThreshold))
		meta := pipeline.ExportMeta{Label: pipeline.Label(q), GeneratedAt: time.Now()}
		if format == "pdf" {
			err = pipeline.ExportPDF(results, meta, *out)
		} else {
			err = pipeline.ExportXLSX(results, meta, *out)
		}
		if errors.Is(err, pipeline.ErrEmptyExport) {
			must(fmt.Errorf("nothing to export for %q", meta.Label))
		}
		must(err)
		must(db.InsertExport(internal.ExportRun{
			TraceID: uuid.NewString(),
			Format:  format,
			Label:   meta.Label,
			Rows:    len(results),
			Path:    *out,
		}))
		fmt.Printf("exported %d records to %s\n", len(results), *out)
	case "history":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		limit := fs.Int("limit", 10, "max entries")
		_ = fs.Parse(os.Args[2:])
		last, err := db.GetMetadata("catalog.last_load")
		must(err)
		if last != nil {
			fmt.Printf("last successful load: %s\n", *last)
		}
		loads, err := db.ListLoads(*limit)
		must(err)
		for _, l := range loads {
			fmt.Printf("load %s %s format=%s rows=%d dropped=%d %s %s\n", l.LoadedAt.Format(time.RFC3339), l.Status, l.Format, l.Rows, l.Dropped, l.Source, l.Error)
		}
		exports, err := db.ListExports(*limit)
		must(err)
		for _, e := range exports {
			fmt.Printf("export %s rows=%d %q %s\n", e.Format, e.Rows, e.Label, e.Path)
		}
	case "serve":
		logger.Init(cfg.LogLevel)
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		must(server.New(cfg, db).Run(ctx, catalog.NewSyncService(db, cfg)))
	default:
		usage()
		os.Exit(1)
	}
}

type queryFlagSet struct {
	search, unit, max *string
	free              *bool
}

func queryFlags(fs *flag.FlagSet) queryFlagSet {
	return queryFlagSet{
		search: fs.String("q", "", "search text"),
		unit:   fs.String("unit", "", "unit facet"),
		free:   fs.Bool("free", false, "only free fees"),
		max:    fs.String("max", "", "max amount"),
	}
}

func parseQuery(cfg config.Config, qf queryFlagSet) internal.QueryState {
	free := ""
	if *qf.free {
		free = "true"
	}
	q, err := pipeline.ParseQuery(pipeline.QueryParams{Search: *qf.search, Unit: *qf.unit, Free: free, Max: *qf.max}, cfg)
	must(err)
	return q
}

func filter(cfg config.Config, cat *catalog.Catalog, qf queryFlagSet) []internal.FeeRecord {
	return pipeline.Filter(cat.Records, parseQuery(cfg, qf), pipeline.NewFuzzySearcher(cat.Index, cfg.SearchThreshold))
}

func load(cfg config.Config, db *storage.DB) *catalog.Catalog {
	must(cfg.Require("SHEET_SOURCE", cfg.SheetSource))
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.SourceTimeoutMs)*time.Millisecond*time.Duration(cfg.SourceMaxAttempts+1))
	defer cancel()
	cat, err := catalog.NewSyncService(db, cfg).Load(ctx)
	must(err)
	return cat
}

func record(cat *catalog.Catalog, id int) internal.FeeRecord {
	rec, ok := cat.Record(id)
	if !ok {
		must(fmt.Errorf("record %d not found", id))
	}
	return rec
}

func channelNames() []string {
	out := []string{}
	for _, c := range commission.Channels() {
		out = append(out, string(c))
	}
	return out
}

func usage() {
	fmt.Println("usage: tarifario <command>")
	fmt.Println("commands:")
	fmt.Println("  list [--q=...] [--unit=...] [--free] [--max=100] [--page=1]")
	fmt.Println("  units")
	fmt.Println("  show --id=1")
	fmt.Println("  channels --id=1")
	fmt.Println("  estimate --id=1 --channel=" + strings.Join(channelNames(), "|"))
	fmt.Println("  export:pdf [--out=./out/tarifario.pdf] [--q=...] [--unit=...] [--free] [--max=...]")
	fmt.Println("  export:xlsx [--out=./out/tarifario.xlsx] [--q=...] [--unit=...] [--free] [--max=...]")
	fmt.Println("  history [--limit=10]")
	fmt.Println("  serve")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
