package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pulsedeck/scanner/internal/httpapi"
)

func newServeCmd() *cobra.Command {
	var (
		snapshotsPath string
		interval      time.Duration
		opsAddr       string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run periodic scans with the ops HTTP surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			orch, cleanup, err := buildOrchestrator()
			if err != nil {
				return err
			}
			defer cleanup()

			ops := httpapi.NewServer(opsAddr)
			go func() {
				if err := ops.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error().Err(err).Msg("ops server stopped")
				}
			}()
			defer ops.Close()

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			runOnce := func() {
				snapshots, err := loadSnapshots(snapshotsPath)
				if err != nil {
					log.Error().Err(err).Msg("snapshot load failed, skipping cycle")
					return
				}
				summary, err := orch.Scan(ctx, snapshots)
				if err != nil {
					log.Error().Err(err).Msg("scan cycle failed")
					return
				}
				ops.RecordSummary(summary)
			}

			runOnce()
			for {
				select {
				case <-ctx.Done():
					log.Info().Msg("shutting down")
					return nil
				case <-ticker.C:
					runOnce()
				}
			}
		},
	}

	cmd.Flags().StringVar(&snapshotsPath, "snapshots", "snapshots.json", "feature snapshot file refreshed by the market pipeline")
	cmd.Flags().DurationVar(&interval, "interval", time.Minute, "scan cycle interval")
	cmd.Flags().StringVar(&opsAddr, "ops-addr", ":9180", "ops HTTP listen address")
	return cmd
}
