// Package main is the entry point for the Insight scoring and narrative
// inference engine. It evaluates companies against peer-relative sector
// benchmarks, archives the resulting reports and serves them over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aristath/insight/internal/config"
	"github.com/aristath/insight/internal/database"
	"github.com/aristath/insight/internal/evaluation"
	"github.com/aristath/insight/internal/evaluation/workers"
	"github.com/aristath/insight/internal/events"
	"github.com/aristath/insight/internal/modules/benchmarks"
	"github.com/aristath/insight/internal/modules/reports"
	reportshandlers "github.com/aristath/insight/internal/modules/reports/handlers"
	"github.com/aristath/insight/internal/reliability"
	"github.com/aristath/insight/internal/scheduler"
	"github.com/aristath/insight/internal/server"
	"github.com/aristath/insight/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	log.Info().Msg("Starting Insight")

	// Two databases: an append-only report archive and an ephemeral
	// benchmark cache.
	evaluationsDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "evaluations.db"),
		Profile: database.ProfileArchive,
		Name:    "evaluations",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open evaluations database")
	}
	defer evaluationsDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	for _, db := range []*database.DB{evaluationsDB, cacheDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", db.Name()).Msg("Failed to run migrations")
		}
	}

	bus := events.NewBus(log)

	reportRepo := reports.NewRepository(evaluationsDB.Conn(), log)
	benchmarkCache := benchmarks.NewCache(cacheDB.Conn(), log)
	benchmarkResolver := benchmarks.NewResolver(benchmarkCache, bus, log)

	evaluator := evaluation.New(log)
	pool := workers.NewWorkerPool(cfg.EvalWorkers, evaluator)

	reportHandlers := reportshandlers.NewHandler(reportRepo, evaluator, benchmarkResolver, bus, log)

	srv := server.New(server.Config{
		Log:            log,
		Cfg:            cfg,
		EvaluationsDB:  evaluationsDB,
		CacheDB:        cacheDB,
		EventBus:       bus,
		ReportHandlers: reportHandlers,
	})

	// Background jobs. Re-evaluation runs nightly after market data has
	// settled, maintenance and backups in the quiet early morning hours.
	sched := scheduler.New(log)

	// Re-evaluation replays the stored request snapshot with a fresh
	// as-of date; the engine never fetches market data itself.
	requestFor := func(entityID string) (*evaluation.Request, error) {
		req, err := reportRepo.GetLatestRequest(entityID)
		if err != nil {
			return nil, fmt.Errorf("no stored request snapshot for %s: %w", entityID, err)
		}
		req.AsOf = time.Now().UTC()
		return req, nil
	}

	reevalJob := scheduler.NewReevaluationJob(reportRepo, requestFor, pool, bus, log)
	if err := sched.AddJob("0 2 * * *", reevalJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register re-evaluation job")
	}

	maintenanceJob := scheduler.NewMaintenanceJob(evaluationsDB, cacheDB, reportRepo, benchmarkCache, 0, bus, log)
	if err := sched.AddJob("0 4 * * *", maintenanceJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register maintenance job")
	}

	if cfg.Backup != nil && cfg.Backup.Enabled {
		s3Client, err := reliability.NewS3Client(context.Background(), cfg.Backup, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create backup client")
		}

		backupService := reliability.NewBackupService(
			s3Client,
			[]*database.DB{evaluationsDB, cacheDB},
			cfg.DataDir,
			bus,
			log,
		)

		backupJob := scheduler.NewBackupJob(backupService, cfg.Backup.RetentionDays, log)
		if err := sched.AddJob("0 5 * * *", backupJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to register backup job")
		}
	} else {
		log.Info().Msg("Backups disabled, no bucket configured")
	}

	sched.Start()

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
