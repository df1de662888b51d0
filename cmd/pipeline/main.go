// Die Pipeline fährt den kompletten Analyse-Lauf in einem Prozess:
// Schema-Reset, Extraktion aller PDFs, rekursive Konsolidierung, Abschluss-
// Zusammenfassung. ACHTUNG: Der Reset verwirft alle bisherigen Ergebnisse.
//
// Ein Interrupt (SIGINT/SIGTERM) stoppt das Starten neuer Dokumente und
// Chunks; bereits committete Merges bleiben bestehen.
package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"theme-miner/config"
	"theme-miner/oracle"
	"theme-miner/providers/unpaywall"
	"theme-miner/reader"
	"theme-miner/services"
	"theme-miner/storage"
	"theme-miner/store"
)

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}

	oracleClient, err := oracle.NewClient(cfg, logging)
	if err != nil {
		logging.Fatal("Oracle client creation failed", zap.Error(err))
	}

	s3Client, err := storage.NewS3Client(cfg)
	if err != nil {
		logging.Fatal("S3 client creation failed", zap.Error(err))
	}

	st := store.New(db, logging)
	source := reader.New(cfg.PapersDir, logging)
	uw := unpaywall.NewFetcher(cfg, logging)
	analyzer := services.NewAnalyzer(cfg, st, oracleClient, source, uw, s3Client, logging)
	consolidator := services.NewConsolidator(cfg, st, oracleClient, logging)

	started := time.Now()
	logging.Info("Starte Analyse-Pipeline", zap.String("papers_dir", cfg.PapersDir))

	// Schritt 0: kompletter Schema-Reset (destruktiv!)
	if err := st.Reset(); err != nil {
		logging.Fatal("Schema-Reset fehlgeschlagen", zap.Error(err))
	}

	// Schritt 1: Extraktion
	stats, err := analyzer.Run(ctx)
	if err != nil {
		logging.Fatal("Extraktions-Batch fehlgeschlagen", zap.Error(err))
	}

	// Schritt 2: rekursive Konsolidierung auf dem committeten Stand
	mergeStats, err := consolidator.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Fatal("Konsolidierung fehlgeschlagen", zap.Error(err))
	}

	// Schritt 3: Abschluss-Zusammenfassung
	counts, err := st.CountAll()
	if err != nil {
		logging.Fatal("Abschluss-Zählung fehlgeschlagen", zap.Error(err))
	}

	logging.Info("Pipeline abgeschlossen",
		zap.Duration("duration", time.Since(started).Round(time.Second)),
		zap.Int("processed", stats.Processed),
		zap.Int("succeeded", stats.Succeeded),
		zap.Int("failed", stats.Failed),
		zap.Int("success_rate_percent", stats.SuccessRate()),
		zap.Int("themes_merged", mergeStats.ThemesMerged),
		zap.Int("subthemes_merged", mergeStats.SubthemesMerged),
		zap.Int64("papers", counts.Papers),
		zap.Int64("themes", counts.Themes),
		zap.Int64("subthemes", counts.Subthemes),
		zap.Int64("codes", counts.Codes))
}
