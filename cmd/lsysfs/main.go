package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"lsysfs/internal/config"
	"lsysfs/internal/fs"
	"lsysfs/internal/logging"
	"lsysfs/internal/metrics"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"sigs.k8s.io/release-utils/version"
)

var (
	logger = logging.GetLogger()
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lsysfs [mount point]",
		Short: "Mount a flat in-memory filesystem",
		Long: `lsysfs mounts an in-memory filesystem whose root holds files and empty
directories. Nothing is persisted; all content is lost on unmount.`,
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if err := cmd.Flags().Set(config.MountPointKey, args[0]); err != nil {
					return err
				}
			}
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	config.RegisterFlags(cmd.Flags())
	cmd.AddCommand(version.Version())
	return cmd
}

func run(ctx context.Context, cfg config.Config) error {
	if err := logger.Configure(cfg.Log); err != nil {
		return fmt.Errorf("unable to configure logging: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("Starting lsysfs %s...", version.GetVersionInfo().GitVersion)

	mountPoint := filepath.Clean(cfg.MountPoint)
	logger.Debug("Mount point: %s", mountPoint)
	logger.Debug("Capacity: %d", cfg.Capacity)

	vfs, err := fs.NewLsysFS(fs.Options{
		Capacity: cfg.Capacity,
		UID:      cfg.UID,
		GID:      cfg.GID,
	})
	if err != nil {
		return fmt.Errorf("unable to create filesystem: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := vfs.Mount(mountPoint, fs.MountOptions{
		FSName:     cfg.FSName,
		AllowOther: cfg.AllowOther,
	}); err != nil {
		return err
	}
	logger.Info("Filesystem mounted and ready")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Address != "" {
		srv := &http.Server{
			Addr:              cfg.Metrics.Address,
			Handler:           metricsMux(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("Serving metrics on %s", cfg.Metrics.Address)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelShutdown()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		defer cancel()
		return serveUntilDone(gctx, vfs, mountPoint, cfg.UnmountTimeout)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Shutdown error: %v", err)
		return err
	}
	logger.Info("Clean shutdown complete")
	return nil
}

// serveUntilDone returns once the FUSE server stops. When ctx ends first the
// filesystem is unmounted and the server gets timeout to wind down.
func serveUntilDone(ctx context.Context, vfs *fs.LsysFS, mountPoint string, timeout time.Duration) error {
	served := make(chan error, 1)
	go func() {
		served <- vfs.Wait(context.Background())
	}()

	select {
	case err := <-served:
		logger.Info("Filesystem was unmounted externally")
		return err
	case <-ctx.Done():
	}

	logger.Info("Received shutdown request, unmounting %s", mountPoint)
	if err := vfs.Unmount(mountPoint); err != nil {
		return fmt.Errorf("unmount %s: %w", mountPoint, err)
	}

	select {
	case err := <-served:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("FUSE server did not stop within %s", timeout)
	}
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return mux
}
