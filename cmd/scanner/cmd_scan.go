package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pulsedeck/scanner/internal/detect"
	"github.com/pulsedeck/scanner/internal/features"
	"github.com/pulsedeck/scanner/internal/options"
	"github.com/pulsedeck/scanner/internal/scan"
	"github.com/pulsedeck/scanner/internal/scanconfig"
	"github.com/pulsedeck/scanner/internal/store"
	"github.com/pulsedeck/scanner/internal/store/filesource"
	"github.com/pulsedeck/scanner/internal/store/postgres"
	"github.com/pulsedeck/scanner/internal/store/rediscache"

	goredis "github.com/go-redis/redis/v8"
)

const repoTimeout = 5 * time.Second

func newScanCmd() *cobra.Command {
	var snapshotsPath string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a single scan pass over a snapshot file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			orch, cleanup, err := buildOrchestrator()
			if err != nil {
				return err
			}
			defer cleanup()

			snapshots, err := loadSnapshots(snapshotsPath)
			if err != nil {
				return err
			}

			summary, err := orch.Scan(ctx, snapshots)
			if err != nil {
				return err
			}
			return json.NewEncoder(os.Stdout).Encode(summary)
		},
	}

	cmd.Flags().StringVar(&snapshotsPath, "snapshots", "snapshots.json", "feature snapshot file from the market pipeline")
	return cmd
}

// buildOrchestrator wires the engine from configuration. Postgres is the
// signal store; without SCANNER_DATABASE_URL the command refuses to run,
// since the uniqueness constraint is the idempotency mechanism and an
// in-memory stand-in would silently drop that guarantee.
func buildOrchestrator() (*scan.Orchestrator, func(), error) {
	cfg, err := scanconfig.Load(rootFlags.configPath)
	if err != nil {
		return nil, nil, err
	}

	registry := detect.MustNewRegistry(detect.DefaultDetectors()...)

	dsn := os.Getenv("SCANNER_DATABASE_URL")
	if dsn == "" {
		return nil, nil, fmt.Errorf("SCANNER_DATABASE_URL is required")
	}
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	cleanup := func() { _ = db.Close() }

	signals := postgres.NewSignalsRepo(db, repoTimeout)

	var strategies store.StrategyRepo
	strategies, err = filesource.Load(rootFlags.strategiesPath)
	if err != nil {
		log.Warn().Err(err).Msg("strategies file unavailable, using database strategies")
		strategies = postgres.NewStrategiesRepo(db, repoTimeout)
	}

	var opts []scan.Option
	if redisURL := os.Getenv("SCANNER_REDIS_URL"); redisURL != "" {
		redisOpts, err := goredis.ParseURL(redisURL)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := goredis.NewClient(redisOpts)
		prev := cleanup
		cleanup = func() { _ = client.Close(); prev() }
		opts = append(opts, scan.WithCooldownCache(rediscache.New(client)))
	}

	if baseURL := os.Getenv("SCANNER_OPTIONS_URL"); baseURL != "" {
		client := options.NewClient(options.ClientConfig{
			BaseURL:        baseURL,
			APIKey:         os.Getenv("SCANNER_OPTIONS_API_KEY"),
			RequestTimeout: 5 * time.Second,
			RatePerSecond:  5,
			RateBurst:      10,
		})
		opts = append(opts, scan.WithOptionsProvider(client))
	}

	return scan.NewOrchestrator(cfg, registry, strategies, signals, opts...), cleanup, nil
}

// loadSnapshots reads the symbol -> snapshot mapping handed over by the
// feature pipeline. The engine never fetches raw bars itself.
func loadSnapshots(path string) (map[string]*features.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshots %s: %w", path, err)
	}
	var snapshots map[string]*features.Snapshot
	if err := json.Unmarshal(data, &snapshots); err != nil {
		return nil, fmt.Errorf("parse snapshots %s: %w", path, err)
	}
	for symbol, snap := range snapshots {
		if snap != nil && snap.Symbol == "" {
			snap.Symbol = symbol
		}
	}
	return snapshots, nil
}
