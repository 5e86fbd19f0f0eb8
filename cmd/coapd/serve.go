// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"os/signal"
	"syscall"
	"time"

	"github.com/absmach/mcoap"
	"github.com/absmach/mcoap/examples/simple"
	"github.com/absmach/mcoap/pkg/coap"
	"github.com/absmach/mcoap/pkg/health"
	"github.com/absmach/mcoap/pkg/manifest"
	"github.com/absmach/mcoap/pkg/mdns"
	"github.com/absmach/mcoap/pkg/metrics"
	"github.com/absmach/mcoap/pkg/ratelimit"
	"github.com/absmach/mcoap/pkg/transport/udp"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const simulateInterval = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the CoAP server",
	Long: `Start the CoAP server.

The server will:
  - Register the resources of the manifest and/or the example sensors
  - Serve CoAP on MCOAP_HOST:MCOAP_PORT
  - Expose Prometheus metrics on MCOAP_METRICS_PORT at /metrics
  - Expose probes on MCOAP_HEALTH_PORT at /health, /ready and /live
  - Advertise _coap._udp over mDNS when MCOAP_MDNS_ENABLED is set

The server runs until interrupted (Ctrl+C) or receives SIGTERM.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("manifest", "m", "", "path to a resource manifest (overrides MCOAP_MANIFEST)")
	serveCmd.Flags().Bool("examples", false, "register the example sensors and actuators")
}

func runServe(cmd *cobra.Command, args []string) error {
	// .env file is optional
	_ = godotenv.Load()

	cfg, err := mcoap.NewConfig(env.Options{Prefix: mcoap.EnvPrefix})
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if path, _ := cmd.Flags().GetString("manifest"); path != "" {
		cfg.Manifest = path
	}
	withExamples, _ := cmd.Flags().GetBool("examples")

	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)

	m := metrics.New("mcoap", prometheus.DefaultRegisterer)

	var limiter *ratelimit.Limiter
	if cfg.RateLimitCapacity > 0 {
		limiter = ratelimit.NewLimiter(cfg.RateLimitCapacity, cfg.RateLimitRefill, cfg.RateLimitClients)
	}
	t := udp.New(udp.Config{
		Host:       cfg.Host,
		BufferSize: cfg.BufferSize,
		QueueSize:  cfg.QueueSize,
		Limiter:    limiter,
		OnDrop: func(_ netip.AddrPort, err error) {
			m.Drop(err)
		},
		Logger: logger,
	})

	srv := coap.New(coap.Config{
		Port:         cfg.Port,
		PollInterval: cfg.PollInterval,
		Logger:       logger,
	}, t, metrics.NewHandler(simple.New(logger), m))
	defer srv.Close()

	if cfg.Manifest != "" {
		mf, err := manifest.Load(cfg.Manifest)
		if err != nil {
			return err
		}
		paths := mf.Apply(srv)
		logger.Info("manifest loaded",
			slog.String("path", cfg.Manifest),
			slog.Int("resources", len(paths)))
	}
	var examples *simple.Resources
	if withExamples {
		examples = simple.Register(srv)
	}
	if len(srv.Resources()) == 0 {
		return errors.New("no resources configured: pass --manifest or --examples")
	}

	m.Gauge("observers_active", "Number of registered observers", func() float64 {
		return float64(srv.ObserverCount(""))
	})
	m.Gauge("resources_registered", "Number of registered resources", func() float64 {
		return float64(len(srv.Resources()))
	})
	m.Counter("transport_dropped_total", "Datagrams dropped by the UDP transport", func() float64 {
		return float64(t.Dropped())
	})

	checker := health.NewChecker(10 * time.Second)
	checker.Register("transport", health.ListenerCheck(t.LocalAddr))
	checker.Register("resources", health.ResourcesCheck(srv.Resources))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.ListenAndServe(ctx)
	})

	if cfg.MetricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		g.Go(func() error {
			return serveHTTP(ctx, "metrics", cfg.MetricsPort, mux, cfg.ShutdownTimeout, logger)
		})
	}

	if cfg.HealthPort > 0 {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", checker.HTTPHandler())
		mux.HandleFunc("/ready", checker.HTTPHandler())
		mux.HandleFunc("/live", health.LivenessHandler())
		g.Go(func() error {
			return serveHTTP(ctx, "health", cfg.HealthPort, mux, cfg.ShutdownTimeout, logger)
		})
	}

	if examples != nil {
		g.Go(func() error {
			return examples.Simulate(ctx, simulateInterval)
		})
	}

	if cfg.MDNSEnabled {
		var paths []string
		for _, r := range srv.Resources() {
			paths = append(paths, r.Name())
		}
		adv, err := mdns.Advertise(mdns.Info{
			Instance: cfg.MDNSInstance,
			Port:     srv.Port(),
			ServerID: srv.ID(),
			Paths:    paths,
		}, logger)
		if err != nil {
			logger.Warn("mDNS advertisement not started", slog.String("error", err.Error()))
		} else {
			defer adv.Shutdown()
		}
	}

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("coapd terminated with error: %s", err))
		return err
	}
	logger.Info("coapd stopped")
	return nil
}

// serveHTTP runs an HTTP server until ctx is done, then shuts it down
// within timeout.
func serveHTTP(ctx context.Context, name string, port int, h http.Handler, timeout time.Duration, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      h,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting "+name+" server", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("%s server: %w", name, err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s server shutdown: %w", name, err)
	}
	return nil
}
