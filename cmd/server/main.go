package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/rl1809/medkit/internal/adapter/handler"
	"github.com/rl1809/medkit/internal/adapter/scheduler"
	"github.com/rl1809/medkit/internal/config"
	"github.com/rl1809/medkit/internal/core/domain"
	"github.com/rl1809/medkit/internal/core/service"
	"github.com/rl1809/medkit/internal/util"
)

const sessionSweepInterval = 5 * time.Minute

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "medkit",
		Short:         "Inventory bot that warns before items expire",
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", config.ConfigPath, "path to config.yaml")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the chat endpoints and the daily expiration scan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	})
	root.AddCommand(newScanCmd(&configPath))
	return root
}

// writerNotifier hands the digest to the command output; a one-off scan has
// no chat connections to fan out to.
type writerNotifier struct {
	w io.Writer
}

func (n writerNotifier) Dispatch(ctx context.Context, text string) service.DispatchReport {
	if _, err := fmt.Fprintln(n.w, text); err != nil {
		return service.DispatchReport{Attempted: 1, Failed: 1}
	}
	return service.DispatchReport{Attempted: 1, Delivered: 1}
}

func newScanCmd(configPath *string) *cobra.Command {
	var (
		day    string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one expiration scan immediately",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := util.InitLogger(cfg.LogLevel)

			a, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			today := a.now()
			if day != "" {
				if today, err = time.Parse(domain.DateLayout, day); err != nil {
					return fmt.Errorf("--date: %w", err)
				}
			}

			out := cmd.OutOrStdout()
			scanner := service.NewScannerService(a.records, writerNotifier{w: out}, cfg.LookAheadDays, a.now, logger)

			var digest domain.Digest
			if dryRun {
				if digest, err = scanner.Digest(cmd.Context(), today); err != nil {
					return err
				}
				if !digest.Empty() {
					fmt.Fprintln(out, digest.Render())
				}
			} else {
				result, err := scanner.Scan(cmd.Context(), today)
				if err != nil {
					return err
				}
				digest = result.Digest
			}
			if digest.Empty() {
				fmt.Fprintln(out, "Nothing expires in the window.")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&day, "date", "", "reference day (YYYY-MM-DD), defaults to today")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the digest without recording a scan")
	return cmd
}

func runServe(parent context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := util.InitLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	// Initialize services
	commands := service.NewCommandService(a.records, cfg.OwnerScoped, a.now)
	dialogs := service.NewDialogService(a.records, a.sessions, cfg.OwnerScoped, a.now)
	bot := service.NewBotService(commands, dialogs, a.registry, logger)

	hub := handler.NewChatHub(bot, cfg.MessagesPerSecond, cfg.MessageBurst, logger)
	dispatcher := service.NewDispatcher(a.registry, hub, cfg.DeliveryConcurrency, logger)
	scanner := service.NewScannerService(a.records, dispatcher, cfg.LookAheadDays, a.now, logger)

	hour, minute, err := scheduler.ParseClock(cfg.ScanTime)
	if err != nil {
		return err
	}
	daily, err := scheduler.NewDaily(hour, minute, a.loc, logger)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := daily.Run(ctx, scanner.ScanNow); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("scheduler stopped", "error", err)
		}
	}()
	logger.Info("daily expiration scan scheduled", "at", cfg.ScanTime, "tz", a.loc.String())

	if a.memSessions != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sweepSessions(ctx, a)
		}()
	}

	// Initialize gRPC server
	grpcServer, healthServer := handler.NewGRPCServer()
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}
	go func() {
		logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", "error", err)
		}
	}()

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(bot, logger)
	mux := http.NewServeMux()
	mux.HandleFunc("/health", httpHandler.HealthCheck)
	mux.HandleFunc("/api/messages", httpHandler.Message)
	mux.Handle("/ws", hub)
	mux.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}
	logger.Info("shutting down...")

	healthServer.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	logger.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	cancel()
	wg.Wait()
	logger.Info("scheduler stopped")
	return nil
}

func sweepSessions(ctx context.Context, a *app) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.memSessions.Sweep(); n > 0 {
				a.logger.Debug("expired dialog sessions removed", "count", n)
			}
		}
	}
}
