package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/intakeapi"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/server"
)

var (
	serverPort  int
	sweepPeriod time.Duration
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the intake HTTP and WebSocket server",
	Long:  `Starts the intake server with the turn API, the chat WebSocket, the matter, notification and artifact APIs, and Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		port := a.cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = serverPort
		}

		srv := server.New(server.Config{
			Port:     port,
			AllowAll: a.cfg.Server.AllowAllOrigins,
		}, a.db, server.Routes{
			Intake:  intakeapi.New(a.orchestrator, a.log),
			Metrics: a.metrics.Handler(),
		}, a.log)

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			if err := srv.Start(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			a.sweepExpired(ctx, sweepPeriod)
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			a.log.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		a.log.Info("intake server starting",
			zap.String("version", Version),
			zap.Int("port", port),
			zap.String("provider", string(a.cfg.Provider)),
			zap.String("model", a.cfg.Model),
			zap.String("store", string(a.cfg.Store.Backend)),
			zap.String("database", a.db.Path()))

		return g.Wait()
	},
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 8787, "port to listen on (overrides server.port)")
	serverCmd.Flags().DurationVar(&sweepPeriod, "sweep-every", 10*time.Minute, "how often expired contexts are swept from SQLite")
	rootCmd.AddCommand(serverCmd)
}
