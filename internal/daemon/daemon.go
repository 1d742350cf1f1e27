package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/partflow-io/partflow/internal/api"
	"github.com/partflow-io/partflow/internal/domain"
	"github.com/partflow-io/partflow/internal/infra/inventory"
	"github.com/partflow-io/partflow/internal/infra/journal"
	"github.com/partflow-io/partflow/internal/intake"
)

// Run starts the station daemon and blocks until SIGINT/SIGTERM.
func Run(cfg Config) error {
	log, err := buildLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	workflow := domain.Workflow(cfg.Workflow)

	var jrnl domain.Journal
	if cfg.Journal.Enabled {
		db, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer db.Close()
		jrnl = db
		log.Info("journal open", zap.String("path", cfg.Journal.Path))
	}

	svc := inventory.New(inventory.Config{
		BaseURL: cfg.Inventory.BaseURL,
		APIKey:  cfg.Inventory.APIKey,
		Timeout: time.Duration(cfg.Inventory.TimeoutMS) * time.Millisecond,
	})

	engine := intake.New(cfg.ScannerFor(workflow), workflow, svc, jrnl, intake.Hooks{}, log)

	server := api.NewServer(engine, log)
	if cfg.API.Metrics {
		server.EnableMetrics()
	}

	addr := net.JoinHostPort(cfg.API.Host, strconv.Itoa(cfg.API.Port))
	httpSrv := &http.Server{
		Addr:    addr,
		Handler: server.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("station listening",
			zap.String("addr", addr),
			zap.String("workflow", cfg.Workflow))
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-stop:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func buildLogger(cfg LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
