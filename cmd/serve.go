package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sinergia/leadquote/internal/api"
)

var servePort int

// initRetryInterval is how often serve retries a failed reference data load.
const initRetryInterval = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the simulator and lead capture HTTP API",
	Long:  "Serves quotes and lead capture over HTTP. SIGHUP reloads the reference data.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		// The API answers 503 until the reference data is ready, so a
		// failed first load is retried in the background instead of
		// aborting.
		if err := env.Simulator.Init(ctx); err != nil {
			zap.L().Error("reference data load failed", zap.Error(err))
			go retryInit(ctx, env.Simulator, initRetryInterval)
		}

		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		go reloadOnSignal(ctx, env, hup)

		srv := newServer(env, cfg.Server.Port)

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newServer builds the HTTP server for env.
func newServer(env *appEnv, port int) *http.Server {
	h := api.NewHandler(env.Simulator, env.Leads,
		env.Notifier.BreakerStates,
		env.Forwarder.BreakerStates,
	)
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           api.NewRouter(h, cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// reloadOnSignal reloads the reference data on every signal from sig. A
// failed reload keeps the tables in use.
func reloadOnSignal(ctx context.Context, env *appEnv, sig <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
		}
		if err := env.Simulator.Reload(ctx); err != nil {
			zap.L().Error("reference data reload failed", zap.Error(err))
			continue
		}
		zap.L().Info("reference data reloaded", zap.Time("loaded_at", env.Simulator.LoadedAt()))
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
