// cmd/library/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"librarydesk/internal/audit"
	"librarydesk/internal/auth"
	"librarydesk/internal/catalog"
	"librarydesk/internal/circulation"
	"librarydesk/internal/clients"
	"librarydesk/internal/config"
	"librarydesk/internal/database"
	"librarydesk/internal/logging"
	"librarydesk/internal/membership"
	"librarydesk/internal/notify"
	"librarydesk/internal/server"
	"librarydesk/internal/telemetry"
	"librarydesk/pkg/eventstore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "librarydesk: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("set up telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	db, err := database.Open(ctx, database.Options{
		Driver:          cfg.DatabaseDriver,
		URL:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	es := eventstore.NewEventStore(db)
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)

	members := membership.NewService(db, es, logger)
	if cfg.Admin.Username != "" {
		if err := members.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	notifier, err := buildNotifier(cfg, logger)
	if err != nil {
		return err
	}

	books := catalog.NewService(es, db, logger)
	loans := circulation.NewService(
		circulation.NewPostgresStore(db, es),
		members,
		notifier,
		logger,
		circulation.WithMaxOpenLoans(cfg.MaxOpenLoans),
	)

	auditor := audit.NewAuditor(logger, audit.PostgresChecks(db)...)
	if report := auditor.Run(ctx); !report.Healthy {
		logger.Warn("startup audit found inconsistencies", zap.Int("violations", len(report.Violations())))
	}

	router := server.NewRouter(server.Deps{
		Tokens:      tokens,
		Catalog:     catalog.NewHandler(books, logger),
		Membership:  membership.NewHandler(members, tokens, logger),
		Circulation: circulation.NewHandler(loans, logger),
		Audit:       audit.NewHandler(auditor),
		Logger:      logger,
		Ready:       db.PingContext,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("library service listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server shut down")
	return nil
}

// buildNotifier picks the delivery channel for return notifications and guards it with a breaker.
func buildNotifier(cfg config.Config, logger *zap.Logger) (circulation.Notifier, error) {
	var next notify.Notifier
	switch cfg.Notifier {
	case "smtp":
		n, err := notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
		if err != nil {
			return nil, fmt.Errorf("build smtp notifier: %w", err)
		}
		next = n
	case "webhook":
		next = clients.NewNotificationClient(cfg.WebhookURL)
	default:
		next = notify.NewLogNotifier(logger)
	}
	return notify.NewBreaker(cfg.Notifier, next, 30*time.Second, logger), nil
}
