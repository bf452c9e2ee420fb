package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/uptimeworker/internal/auditlog"
	"github.com/hamed0406/uptimeworker/internal/config"
	"github.com/hamed0406/uptimeworker/internal/httpapi"
	"github.com/hamed0406/uptimeworker/internal/logging"
	"github.com/hamed0406/uptimeworker/internal/notify"
	"github.com/hamed0406/uptimeworker/internal/probe"
	"github.com/hamed0406/uptimeworker/internal/repo/stores"
	"github.com/hamed0406/uptimeworker/internal/scheduler"
)

func main() {
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("worker_exit", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	store, err := stores.Open(ctx, cfg.StoreURL, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	audit, err := auditlog.New(cfg.AuditDir, logger)
	if err != nil {
		return err
	}

	gw := gateway(cfg, logger)
	scanner := scheduler.NewScanner(
		logger,
		store,
		probe.NewExecutor(probe.WithLogger(logger)),
		audit,
		notify.NewDispatcher(gw, logger),
		cfg.MaxConcurrentChecks,
	)
	worker := scheduler.NewWorker(logger, scanner, audit, cfg.CheckInterval, cfg.RotateInterval)

	logger.Info("worker_config",
		zap.String("env", string(cfg.Env)),
		zap.String("audit_dir", cfg.AuditDir),
		zap.Int("max_concurrent_checks", cfg.MaxConcurrentChecks),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})

	if cfg.Addr != "" {
		srv := &http.Server{
			Addr:              cfg.Addr,
			Handler:           httpapi.NewServer(logger, worker, audit, store).Router(cfg.OpsRPM, cfg.OpsBurst),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("api_listen", zap.String("addr", cfg.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// gateway picks the alert channels that have credentials. With none, alerts
// only reach the service log.
func gateway(cfg config.Config, logger *zap.Logger) notify.Gateway {
	var gws notify.Multi
	if tw := notify.NewTwilio(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromPhone); tw != nil {
		gws = append(gws, tw)
	}
	if sl := notify.NewSlack(cfg.SlackWebhookURL); sl != nil {
		gws = append(gws, sl)
	}
	switch len(gws) {
	case 0:
		logger.Warn("no_alert_gateway", zap.String("fallback", "log"))
		return notify.LogGateway{Logger: logger}
	case 1:
		return gws[0]
	default:
		return gws
	}
}
