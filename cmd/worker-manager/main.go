// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"pos-interpreter/internal/api"
	"pos-interpreter/internal/bootstrap"
	"pos-interpreter/internal/common/camunda"
	"pos-interpreter/internal/common/config"
	"pos-interpreter/internal/common/logger"
	"pos-interpreter/internal/common/observability"

	ic "pos-interpreter/internal/workers/pos/interpret-command"
	lpm "pos-interpreter/internal/workers/pos/list-payment-methods"
	ri "pos-interpreter/internal/workers/pos/resolve-item"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.NewWithFile(cfg.Logging.Level, cfg.Logging.Format, logger.FileConfig{
		Path:       cfg.Logging.File.Path,
		MaxSize:    cfg.Logging.File.MaxSize,
		MaxBackups: cfg.Logging.File.MaxBackups,
		MaxAge:     cfg.Logging.File.MaxAge,
		Compress:   cfg.Logging.File.Compress,
	})
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)
	zapLog.Info("Starting POS interpreter...", zap.String("version", cfg.App.Version))

	obs := observability.New("pos-interpreter")
	defer obs.Shutdown()

	ctx := context.Background()

	container, err := bootstrap.NewContainer(ctx, cfg, bootstrap.Options{}, log)
	if err != nil {
		zapLog.Fatal("bootstrap failed", zap.Error(err))
	}
	defer container.Close()

	// --- Zeebe workers (optional) ---
	var zeebe *camunda.Client
	var workers []*camunda.CamundaWorker
	if cfg.Camunda.BrokerAddress != "" {
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClient(cfg.Camunda.BrokerAddress)
			return err
		}, 5, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Error("zeebe unavailable, running the HTTP bridge only", zap.Error(err))
			zeebe = nil
		}
	}

	if zeebe != nil {
		workers = registerWorkers(zeebe, cfg, container, obs, log, zapLog)
		zapLog.Info("workers registered", zap.Int("count", len(workers)))
	}

	// --- HTTP bridge ---
	deps := api.Dependencies{
		Interpreter: container.Interpreter,
		Blend:       container.Blend,
	}
	if container.Payments != nil {
		deps.Payments = container.Payments
	}
	if container.Resolver != nil {
		deps.Resolver = container.Resolver
	}
	server := api.New(deps, api.Options{
		Warehouse:  cfg.APIs.ERP.Warehouse,
		POSProfile: cfg.APIs.ERP.Profile,
	}, log)

	go func() {
		if err := server.Listen(cfg.Server.Address); err != nil {
			zapLog.Error("bridge server failed", zap.Error(err))
		}
	}()

	// --- Health & Metrics Server ---
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			status, code := "ready", http.StatusOK
			if container.Provider == nil {
				status, code = "degraded", http.StatusServiceUnavailable
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(code)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":  status,
				"zeebe":   zeebe != nil,
				"erp":     container.ERP != nil,
				"search":  container.Search != nil,
				"audit":   container.Audit != nil,
				"workers": len(workers),
				"time":    time.Now().Format(time.RFC3339),
			})
		})
		mux.Handle("/metrics", promhttp.Handler())
		mux.Handle("/debug/pprof/", http.DefaultServeMux)
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping bridge server", zap.Error(err))
	}
	for _, w := range workers {
		w.Stop()
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}

	zapLog.Info("POS interpreter stopped gracefully")
}

func registerWorkers(
	zeebe *camunda.Client,
	cfg *config.Config,
	c *bootstrap.Container,
	obs *observability.Observability,
	log logger.Logger,
	zapLog *zap.Logger,
) []*camunda.CamundaWorker {
	var workers []*camunda.CamundaWorker
	add := func(w *camunda.CamundaWorker) {
		if w != nil {
			workers = append(workers, w)
		}
	}

	if config.IsWorkerEnabled(cfg, ic.TaskType) {
		wcfg := config.GetWorkerConfig(cfg, ic.TaskType)
		icCfg := ic.LoadConfig()
		if wcfg.Timeout > 0 {
			icCfg.Timeout = config.GetDuration(wcfg.Timeout)
		}
		handler := ic.NewHandler(icCfg, c.Interpreter, &interpretLoggerAdapter{log})
		add(camunda.NewWorker(zeebe.GetClient(), ic.TaskType, wcfg, handler.Handle, obs, zapLog))
	}

	if config.IsWorkerEnabled(cfg, ri.TaskType) {
		wcfg := config.GetWorkerConfig(cfg, ri.TaskType)
		if c.Resolver == nil {
			zapLog.Warn("no catalog source, worker not started", zap.String("taskType", ri.TaskType))
		} else {
			riCfg := ri.LoadConfig()
			riCfg.Blend = c.Blend
			if wcfg.Timeout > 0 {
				riCfg.Timeout = config.GetDuration(wcfg.Timeout)
			}
			handler := ri.NewHandler(riCfg, c.Resolver, &resolveLoggerAdapter{log})
			add(camunda.NewWorker(zeebe.GetClient(), ri.TaskType, wcfg, handler.Handle, obs, zapLog))
		}
	}

	if config.IsWorkerEnabled(cfg, lpm.TaskType) {
		wcfg := config.GetWorkerConfig(cfg, lpm.TaskType)
		if c.Payments == nil {
			zapLog.Warn("ERP not configured, worker not started", zap.String("taskType", lpm.TaskType))
		} else {
			lpmCfg := lpm.LoadConfig()
			if wcfg.Timeout > 0 {
				lpmCfg.Timeout = config.GetDuration(wcfg.Timeout)
			}
			handler := lpm.NewHandler(lpmCfg, c.Payments, &paymentsLoggerAdapter{log})
			add(camunda.NewWorker(zeebe.GetClient(), lpm.TaskType, wcfg, handler.Handle, obs, zapLog))
		}
	}

	return workers
}

// Logger adapters for workers that declare their own Logger interfaces
type interpretLoggerAdapter struct {
	logger.Logger
}

func (a *interpretLoggerAdapter) With(fields map[string]interface{}) ic.Logger {
	return &interpretLoggerAdapter{a.Logger.With(fields)}
}

type resolveLoggerAdapter struct {
	logger.Logger
}

func (a *resolveLoggerAdapter) With(fields map[string]interface{}) ri.Logger {
	return &resolveLoggerAdapter{a.Logger.With(fields)}
}

type paymentsLoggerAdapter struct {
	logger.Logger
}

func (a *paymentsLoggerAdapter) With(fields map[string]interface{}) lpm.Logger {
	return &paymentsLoggerAdapter{a.Logger.With(fields)}
}
