package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/obeli-sk/webui"
	httpAdapter "github.com/obeli-sk/webui/internal/adapters/http"
	"github.com/obeli-sk/webui/internal/config"
	"github.com/obeli-sk/webui/internal/logging"
	"github.com/obeli-sk/webui/pkg/adapters/memory"
	redisAdapter "github.com/obeli-sk/webui/pkg/adapters/redis"
	"github.com/obeli-sk/webui/pkg/ports"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Starts the webui server, exposing trace, debugger, log and status views over a JSON API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		levelName, _ := cmd.Flags().GetString("log-level")
		addr, _ := cmd.Flags().GetString("addr")
		demo, _ := cmd.Flags().GetBool("demo")

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if addr != "" {
			cfg.Server.Addr = addr
		}

		level, err := parseLevel(levelName)
		if err != nil {
			return err
		}
		logger := logging.New(level)

		client, err := buildClient(cfg, demo)
		if err != nil {
			return err
		}

		sources, err := buildSourceStore(cfg)
		if err != nil {
			return err
		}

		appOpts := []webui.Option{
			webui.WithLogger(logger),
			webui.WithPageSize(cfg.Backend.PageSize),
			webui.WithPollInterval(cfg.Backend.PollInterval.Std()),
		}
		if sources != nil {
			appOpts = append(appOpts, webui.WithSourceStore(sources))
		}
		app := webui.New(client, appOpts...)

		// Background fetch loops stop when this context is cancelled.
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		srv := &http.Server{
			Addr: cfg.Server.Addr,
			Handler: httpAdapter.NewHandler(ctx, httpAdapter.Deps{
				Stream:   app.Stream,
				Debugger: app.Debugger,
				Watcher:  app.Watcher,
				Client:   app.Client,
				Logger:   logger,
				Gatherer: app.Registry,
			}),
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			logger.Info("server starting", "addr", srv.Addr, "demo", demo)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("shutdown started", "signal", sig.String())
			cancel()

			// Give outstanding requests a deadline for completion.
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("graceful shutdown did not complete", "error", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("failed to stop server: %w", err)
				}
			}
			logger.Info("server stopped")
		}
		return nil
	},
}

func parseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}

func buildClient(cfg config.Config, demo bool) (ports.ExecutionClient, error) {
	if demo {
		return memory.Demo(), nil
	}
	// The wire transport to a live engine is provided by the embedding
	// application through the library API.
	return nil, fmt.Errorf("no backend client available for endpoint %q, run with --demo or embed the library", cfg.Backend.Endpoint)
}

func buildSourceStore(cfg config.Config) (ports.SourceStore, error) {
	if cfg.Cache.Backend != "redis" {
		return nil, nil
	}
	opts, err := cfg.Cache.RedisOptions()
	if err != nil {
		return nil, err
	}
	var storeOpts []redisAdapter.Option
	if opts.Prefix != "" {
		storeOpts = append(storeOpts, redisAdapter.WithPrefix(opts.Prefix))
	}
	if opts.TTL != 0 {
		storeOpts = append(storeOpts, redisAdapter.WithTTL(opts.TTL))
	}
	return redisAdapter.New(opts.Addr, opts.Password, opts.DB, storeOpts...), nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Listen address (overrides config)")
	serveCmd.Flags().Bool("demo", false, "Serve a built-in demo fixture instead of a live backend")
}
