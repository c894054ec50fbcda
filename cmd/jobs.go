package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-payments-reconciler/config"
)

var (
	workerMode bool
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove pending payments abandoned before the shopper returned",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"purge_stale",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.PurgeInterval },
			func(deps *dependencies, ctx context.Context) error {
				return deps.purge.RunPurgeStale(ctx)
			},
		)
	},
}

func init() {
	rootCmd.AddCommand(purgeCmd)

	purgeCmd.Flags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
}

func runCommand(
	name string,
	intervalResolver func(cfg *config.Config) time.Duration,
	fn func(deps *dependencies, ctx context.Context) error,
) {
	deps, cleanup := mustCreateDependencies()
	defer cleanup()

	if workerMode {
		runWorker(name, intervalResolver(deps.cfg), deps, fn)
		return
	}

	ctx := context.Background()
	runJob(name, func() error { return fn(deps, ctx) })
}

func runWorker(
	name string,
	interval time.Duration,
	deps *dependencies,
	fn func(deps *dependencies, ctx context.Context) error,
) {
	if interval <= 0 {
		logrus.WithField("job", name).Fatal("invalid worker interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runJob(name, func() error { return fn(deps, ctx) })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case <-quit:
			logrus.WithField("job", name).Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(name, func() error { return fn(deps, ctx) })
		}
	}
}

func runJob(name string, fn func() error) {
	start := time.Now()
	if err := fn(); err != nil {
		logrus.WithError(err).WithField("job", name).Error("Job failed")
		return
	}
	logrus.WithFields(logrus.Fields{
		"job":      name,
		"duration": time.Since(start).String(),
	}).Info("Job completed")
}
