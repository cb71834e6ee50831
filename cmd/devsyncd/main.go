package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rcarver/devsync/internal/backoff"
	"github.com/rcarver/devsync/internal/bridge"
	"github.com/rcarver/devsync/internal/config"
	"github.com/rcarver/devsync/internal/database"
	"github.com/rcarver/devsync/internal/endpoint"
	"github.com/rcarver/devsync/internal/history"
	"github.com/rcarver/devsync/internal/keepalive"
	"github.com/rcarver/devsync/internal/manager"
	"github.com/rcarver/devsync/internal/model"
	"github.com/rcarver/devsync/internal/registry"
	"github.com/rcarver/devsync/internal/session"
	"github.com/rcarver/devsync/internal/version"
	"github.com/rcarver/devsync/internal/wire"
)

func main() {
	configPath := flag.String("config", "configs/devsync.local.yaml", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting sync daemon",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"server_origin", cfg.Server.Origin,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Resolve the push endpoint from the configured origin
	wsURL, err := endpoint.Resolve(cfg.Server.Origin, cfg.Server.Path)
	if err != nil {
		logger.Error("failed to resolve push endpoint", "error", err)
		os.Exit(1)
	}
	logger.Info("push endpoint resolved", "url", wsURL)

	// Listener registry and dashboard state
	reg := registry.New(logger)
	store := newLatestStore()

	// Update history (optional)
	var pool *pgxpool.Pool
	var recorder *history.Recorder
	bridgeOpts := []bridge.Option{bridge.WithLogger(logger)}

	if cfg.History.Enabled {
		logger.Info("connecting to history database",
			"host", cfg.Database.History.Host,
			"port", cfg.Database.History.Port,
			"database", cfg.Database.History.Name,
		)

		pool, err = database.Connect(ctx, cfg.Database.History)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		recorder = history.New(history.Config{
			BatchSize:     cfg.History.BatchSize,
			FlushInterval: cfg.History.FlushInterval,
			BufferSize:    cfg.History.BufferSize,
		}, pool, logger)

		if err := recorder.Start(ctx); err != nil {
			logger.Error("failed to start history recorder", "error", err)
			os.Exit(1)
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			recorder.Stop(stopCtx)
		}()

		bridgeOpts = append(bridgeOpts, bridge.WithRecorder(recorder))
		logger.Info("history recorder started")
	}

	// Bridge pushed updates into the dashboard store
	br := bridge.New(store, bridgeOpts...)
	br.Attach(reg)

	// Connection manager
	mgr := manager.New(manager.Config{
		URL: wsURL,
		Backoff: backoff.Policy{
			Base:        cfg.Reconnect.BaseDelay,
			Cap:         cfg.Reconnect.MaxDelay,
			MaxAttempts: cfg.Reconnect.MaxAttempts,
		},
		Session: session.Config{
			HandshakeTimeout: cfg.Session.HandshakeTimeout,
			WriteTimeout:     cfg.Session.WriteTimeout,
			PingInterval:     cfg.Session.PingInterval,
			StaleTimeout:     cfg.Session.StaleTimeout,
		},
	}, reg,
		manager.WithLogger(logger),
		manager.WithIndicator(logIndicator{logger}),
		manager.WithNotifier(logNotifier{logger}),
	)

	// Log device reachability changes as they arrive
	mgr.Subscribe(wire.KindDeviceStatus, func(kind string, payload json.RawMessage, ts time.Time) {
		var u model.DeviceStatusUpdate
		if err := json.Unmarshal(payload, &u); err != nil {
			logger.Warn("malformed device-status payload", "error", err)
			return
		}
		online := 0
		for _, d := range u.Devices {
			if d.Online {
				online++
			}
		}
		logger.Debug("device status received",
			"devices", len(u.Devices),
			"online", online,
		)
	})

	mgr.Connect(ctx)

	// Application-level keepalive
	ka := keepalive.New(keepalive.Config{Interval: cfg.Keepalive.Interval}, mgr, logger)
	if err := ka.Start(ctx); err != nil {
		logger.Error("failed to start keepalive", "error", err)
		os.Exit(1)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		ka.Stop(stopCtx)
	}()

	// Health server
	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Health.Port),
		Handler: createHealthHandler(mgr, store, pool),
	}

	go func() {
		logger.Info("starting health server", "port", cfg.Health.Port)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	logger.Info("sync daemon running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Health.Port),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	mgr.Disconnect()

	// Graceful shutdown of health server
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	healthServer.Shutdown(shutdownCtx)

	logger.Info("sync daemon stopped")
}

// logIndicator mirrors the dashboard's online/offline indicator onto
// the log stream.
type logIndicator struct {
	logger *slog.Logger
}

func (i logIndicator) Online()  { i.logger.Info("indicator", "connection", "online") }
func (i logIndicator) Offline() { i.logger.Info("indicator", "connection", "offline") }

// logNotifier surfaces one-shot user notices as log lines.
type logNotifier struct {
	logger *slog.Logger
}

func (n logNotifier) Notify(msg string) { n.logger.Warn("notice", "message", msg) }

// createHealthHandler creates the HTTP handler for health checks.
func createHealthHandler(mgr *manager.Manager, store *latestStore, pool *pgxpool.Pool) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		stats := mgr.Stats()

		health := struct {
			Status     string                 `json:"status"`
			Components map[string]interface{} `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]interface{}),
		}

		// Check connection
		health.Components["connection"] = map[string]interface{}{
			"state":         stats.State.String(),
			"attempt":       stats.Attempt,
			"dispatched":    stats.Dispatched,
			"decode_errors": stats.DecodeErrors,
			"stale_events":  stats.StaleEvents,
		}
		switch stats.State {
		case manager.StateConnected:
			// healthy
		case manager.StateAbandoned:
			health.Status = "unhealthy"
		default:
			health.Status = "degraded"
		}

		// Check database
		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				health.Status = "unhealthy"
				health.Components["timescaledb"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components["timescaledb"] = "connected"
			}
		}

		// Set response
		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("/debug/targets", func(w http.ResponseWriter, r *http.Request) {
		targets := store.Snapshot()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"count":   len(targets),
			"targets": targets,
		})
	})

	return mux
}
