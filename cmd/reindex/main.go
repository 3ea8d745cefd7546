package main

import (
	"context"
	"log"
	"os"

	"doc-domains-be/internal/bootstrap"
	"doc-domains-be/internal/config"
	"doc-domains-be/pkg/database"

	"github.com/fatih/color"
	"gorm.io/gorm"
)

// Rebuilds a domain's collection from the stored files.
//
//	go run ./cmd/reindex <domain> [<domain>...]
func main() {
	if len(os.Args) < 2 {
		color.Yellow("Usage: reindex <domain> [<domain>...]")
		os.Exit(1)
	}

	cfg := config.Load()

	var gormDB *gorm.DB
	if cfg.Database.Connection != "" {
		db, err := database.NewGormDB(cfg.Database.Connection)
		if err != nil {
			log.Fatalf("Unable to connect to GORM DB: %v", err)
		}
		gormDB = db
	}

	container := bootstrap.NewContainer(gormDB, cfg)
	ctx := context.Background()

	failed := false
	for _, domain := range os.Args[1:] {
		color.Cyan("Reindexing %q...", domain)
		resp, err := container.Ingest.ReindexDomain(ctx, domain)
		if err != nil {
			color.Red("  %s: %v", domain, err)
			failed = true
			continue
		}
		color.Green("  %s: %d indexed, %d failed", domain, resp.Report.Succeeded, resp.Report.Failed)
		for _, file := range resp.Report.Files {
			if file.Status == "error" {
				color.Red("    %s: %s", file.Filename, file.Error)
			}
		}
	}

	if failed {
		os.Exit(1)
	}
}
