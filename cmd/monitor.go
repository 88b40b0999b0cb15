package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"domainstack/internal/api"
	"domainstack/internal/catalog"
	"domainstack/internal/config"
	"domainstack/internal/monitor"
	"domainstack/internal/notify"
	"domainstack/internal/probe"
	"domainstack/internal/verify"
	"domainstack/internal/worker"
	"domainstack/pkg/logger"
)

// setupServer starts the operational HTTP server (metrics, pprof, health) in
// the background and returns a function that shuts it down.
func setupServer(ctx context.Context, cfg *config.Config) func(ctx context.Context) {
	server := api.NewServer(api.NewOptions(cfg))

	go func() {
		logger.Info(ctx, "starting ops webserver...", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logger.Error(ctx, "could not start ops webserver", zap.Error(err))
			}
		}
	}()

	return func(ctx context.Context) {
		logger.Info(ctx, "stopping ops webserver...")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(ctx, "could not stop ops webserver", zap.Error(err))
		}
	}
}

// newMailer picks the email transport: SMTP when a relay is configured,
// otherwise a no-op so only in-app notification records are produced.
func newMailer(cfg *config.Config) notify.Mailer {
	if cfg.SMTP.Addr == "" {
		return notify.NopMailer{}
	}

	return notify.NewSMTPMailer(cfg.SMTP.Addr, cfg.SMTP.From, cfg.SMTP.Username, cfg.SMTP.Password)
}

func monitorCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Starts background workers and the operational HTTP server",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, _ := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

			stopWebserver := setupServer(ctx, cfg)

			strg, closeStrg := getPostgres(ctx, cfg)
			defer closeStrg()

			providers, err := strg.Providers(ctx)
			if err != nil {
				logger.Fatal(ctx, "could not load provider catalog", zap.Error(err))
			}
			cat := catalog.New(ctx, providers)

			resolver := probe.NewDNSResolver(cfg.Probe.DNSTimeout)
			fetcher := probe.NewHTTPFetcher(cfg.Probe.HTTPTimeout)
			certs := probe.NewTLSGrabber(cfg.Probe.TLSTimeout)
			registration := probe.NewRDAPClient(&http.Client{Timeout: cfg.Probe.HTTPTimeout})

			dispatcher := notify.NewDispatcher(strg, newMailer(cfg),
				notify.StaticRecipients{Email: cfg.SMTP.RecipientEmail})
			service := verify.NewService(strg,
				verify.NewVerifier(resolver, fetcher),
				dispatcher,
				verify.Options{
					ScheduleBase:      cfg.Verification.ScheduleBase,
					ScheduleCap:       cfg.Verification.ScheduleCap,
					ScheduleWindow:    cfg.Verification.ScheduleWindow,
					GracePeriod:       cfg.Verification.GracePeriod,
					ManualMinInterval: cfg.Verification.ManualMinInterval,
				})
			detector := monitor.NewDetector(strg, cat, dispatcher, resolver, certs, fetcher, registration)

			riverClient, err := worker.Start(ctx, strg.Pool, strg, service, detector, worker.Options{
				MaxWorkers:         cfg.Worker.MaxWorkers,
				MonitorInterval:    cfg.Worker.MonitorInterval,
				GraceSweepInterval: cfg.Worker.GraceSweepInterval,
			})
			if err != nil {
				logger.Fatal(ctx, "could not start workers", zap.Error(err))
			}

			// wait for interrupt
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulShutdownTimeout)
			defer cancel()

			logger.Info(shutdownCtx, "stopping workers...")
			if err := riverClient.Stop(shutdownCtx); err != nil {
				logger.Error(shutdownCtx, "could not stop workers", zap.Error(err))
			}

			stopWebserver(shutdownCtx)
		},
	}

	return cmd
}
