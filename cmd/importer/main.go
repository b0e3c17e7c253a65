package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/auditops/findings-assistant/internal/bootstrap"
	"github.com/auditops/findings-assistant/internal/config"
	"github.com/auditops/findings-assistant/internal/infrastructure/importer/excel"
)

func main() {
	var (
		workbookPath = flag.String("file", "", "path to the findings workbook (.xlsx)")
		sheet        = flag.String("sheet", "", "sheet name, defaults to the first sheet")
	)
	flag.Parse()
	if *workbookPath == "" {
		log.Fatal("usage: importer -file findings.xlsx [-sheet Sheet1]")
	}

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	f, err := os.Open(*workbookPath)
	if err != nil {
		log.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := excel.NewReader(*sheet).Read(f)
	if err != nil {
		log.Fatalf("read workbook: %v", err)
	}

	importCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	report, err := app.ImportUC.Import(importCtx, rows)
	if err != nil {
		log.Fatalf("import aborted after %d findings: %v", report.Imported, err)
	}

	for _, rowErr := range report.RowErrors {
		app.Logger.Warn("row skipped", "row", rowErr.Row, "reason", rowErr.Message)
	}
	app.Logger.Info("import finished",
		"imported", report.Imported,
		"skipped", len(report.RowErrors),
		"file", *workbookPath,
	)
}
