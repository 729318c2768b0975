package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openclaw/forager/internal/api"
	"github.com/openclaw/forager/internal/app"
	"github.com/openclaw/forager/internal/audit"
)

// newServeCmd creates the 'serve' subcommand: the long-running API server
// with the dead-link sweep on a cron schedule.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Starts the catalog API server",
		Long: `Serves search, browse, and retrieval endpoints over HTTP and runs
the dead-link audit on the configured cron schedule until interrupted.`,
		RunE: runServeCommand,
	}
}

func runServeCommand(cmd *cobra.Command, _ []string) error {
	a, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	server := api.NewServer(a.Catalog, a.Retrieval, a.Tracker, a.Cfg.Search.MaxLimit, a.Logger)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.Cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	scheduler, err := startAuditSchedule(cmd.Context(), a)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("http server listening", zap.Int("port", a.Cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-stop:
		a.Logger.Info("shutting down", zap.String("signal", sig.String()))
	case <-cmd.Context().Done():
		a.Logger.Info("shutting down", zap.String("reason", "context canceled"))
	}

	if scheduler != nil {
		schedCtx := scheduler.Stop()
		<-schedCtx.Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

// startAuditSchedule registers the dead-link sweep with a cron scheduler.
// An empty schedule disables the sweep.
func startAuditSchedule(ctx context.Context, a *app.App) (*cron.Cron, error) {
	schedule := a.Cfg.Audit.Schedule
	if schedule == "" {
		a.Logger.Info("audit schedule empty, sweep disabled")
		return nil, nil
	}

	auditor := audit.New(
		a.Entries,
		a.Catalog,
		a.Client,
		a.Cfg.Audit.ProbesPerSecond,
		time.Duration(a.Cfg.Audit.TimeoutMs)*time.Millisecond,
		a.Logger,
	)

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		sum, err := auditor.Run(ctx)
		if err != nil {
			a.Logger.Error("scheduled audit sweep failed", zap.Error(err))
			return
		}
		a.Logger.Info("audit sweep finished",
			zap.Int("probed", sum.Probed),
			zap.Int("marked_dead", sum.MarkedDead),
			zap.Int("revived", sum.Revived),
			zap.Int("inconclusive", sum.Inconclusive))
	})
	if err != nil {
		return nil, fmt.Errorf("register audit schedule %q: %w", schedule, err)
	}
	c.Start()
	a.Logger.Info("audit sweep scheduled", zap.String("schedule", schedule))
	return c, nil
}
