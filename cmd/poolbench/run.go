package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pavanmanishd/objpool"
	"github.com/pavanmanishd/objpool/block"
	"github.com/pavanmanishd/objpool/internal/logging"
	"github.com/pavanmanishd/objpool/internal/workload"
	"github.com/pavanmanishd/objpool/poolprom"
)

const shutdownTimeout = 5 * time.Second

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a workload and print the report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runBench(ctx, cfg, cmd.OutOrStdout())
		},
	}
	addRunFlags(cmd.Flags())
	return cmd
}

func runBench(ctx context.Context, cfg benchConfig, out io.Writer) error {
	log, err := logging.New(logging.Config{Level: cfg.LogLevel})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	counting := block.NewCounting(cfg.system())
	opts := []objpool.Option[workload.Order]{
		objpool.WithSystem[workload.Order](counting),
		objpool.WithLogger[workload.Order](log.Named("pool")),
	}
	if cfg.DebugChecks {
		opts = append(opts, objpool.WithDebugChecks[workload.Order]())
	}
	pool, err := objpool.NewSafe[workload.Order](cfg.Batch, opts...)
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}

	log.Info("starting workload",
		zap.Int("batch", cfg.Batch),
		zap.Int("objects", cfg.Objects),
		zap.Int("rounds", cfg.Rounds),
		zap.String("order", cfg.Order),
		zap.String("system", cfg.System))

	var rep workload.Report
	if cfg.MetricsAddr == "" {
		rep, err = workload.Run(ctx, cfg.workload(), pool)
	} else {
		var ln net.Listener
		ln, err = net.Listen("tcp", cfg.MetricsAddr)
		if err != nil {
			_ = pool.Release()
			return fmt.Errorf("listen: %w", err)
		}
		rep, err = serveWhileRunning(ctx, ln, cfg.workload(), pool, log)
	}
	if relErr := pool.Release(); relErr != nil {
		err = errors.Join(err, relErr)
	}
	if err != nil {
		return err
	}

	stats := counting.Stats()
	rep.System = &stats
	log.Info("workload finished",
		zap.Int("rounds", rep.Rounds),
		zap.Duration("elapsed", rep.Elapsed),
		zap.Int("system_allocs", stats.Allocs))
	return rep.Encode(out, cfg.Format)
}

// serveWhileRunning runs the workload while exposing the pool on ln, then
// keeps serving until ctx is cancelled. Cancellation is not an error.
func serveWhileRunning(ctx context.Context, ln net.Listener, cfg workload.Config, pool *objpool.SafePool[workload.Order], log *zap.Logger) (workload.Report, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		poolprom.NewCollector("poolbench", pool),
		collectors.NewGoCollector(),
	)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: shutdownTimeout}

	var rep workload.Report
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("serving metrics", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve metrics: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		rep, err = workload.Run(gctx, cfg, pool)
		if err != nil && ctx.Err() == nil {
			return err
		}
		log.Info("workload done, serving until interrupted")
		<-gctx.Done()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	err := g.Wait()
	return rep, err
}
