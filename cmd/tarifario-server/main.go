package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tarifario/internal/catalog"
	"tarifario/internal/config"
	"tarifario/internal/logger"
	"tarifario/internal/server"
	"tarifario/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)
	logger.Init(cfg.LogLevel)
	must(cfg.Require("SHEET_SOURCE", cfg.SheetSource))

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	must(server.New(cfg, db).Run(ctx, catalog.NewSyncService(db, cfg)))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
