// Command agentcity runs the multi-persona city server: six themed personas
// plus a router, a per-room world-state store (JSON files or a remote table)
// and the HTTP/WebSocket surface a front end renders from.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/agentcity"
	"github.com/hupe1980/agentcity/config"
	"github.com/hupe1980/agentcity/logging"
	"github.com/hupe1980/agentcity/model"
	"github.com/hupe1980/agentcity/model/anthropic"
	"github.com/hupe1980/agentcity/model/openai"
	"github.com/hupe1980/agentcity/server"
	"github.com/hupe1980/agentcity/session"
	"github.com/hupe1980/agentcity/world"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "agentcity:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := logging.NewSlogLogger(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format, false)

	backend, err := selectWorldBackend(cfg, logger)
	if err != nil {
		return err
	}

	sessions, err := session.NewSQLiteStore(filepath.Join(cfg.DataDir, "sessions"))
	if err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	defer sessions.Close()

	llm, err := buildModel(cfg.Model)
	if err != nil {
		return err
	}
	logger.Info("model.selected", "provider", llm.Info().Provider, "name", llm.Info().Name)

	city := agentcity.New(llm, func(o *agentcity.Options) {
		o.SessionStore = sessions
		o.WorldBackend = backend
		o.Logger = logger
		o.MaxModelCalls = cfg.Runner.MaxModelCalls
		o.RunTimeout = cfg.Runner.RunTimeout
	})

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.New(city, func(o *server.Options) { o.Logger = logger }).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server.listen", "addr", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("server.shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// selectWorldBackend probes the remote table when configured and falls back
// to JSON files when the probe fails. Persistence stays best effort either
// way.
func selectWorldBackend(cfg config.Config, logger logging.Logger) (world.Backend, error) {
	if cfg.Remote.URL != "" {
		tb := world.NewTableBackend(cfg.Remote.URL, cfg.Remote.APIKey, cfg.Remote.Table)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tb.Ping(ctx); err != nil {
			logger.Warn("world.backend.probe.failed", "url", cfg.Remote.URL, "error", err.Error())
		} else {
			logger.Info("world.backend", "kind", "table", "url", cfg.Remote.URL)
			return tb, nil
		}
	}

	fb, err := world.NewFileBackend(filepath.Join(cfg.DataDir, "rooms"))
	if err != nil {
		return nil, fmt.Errorf("file backend: %w", err)
	}
	logger.Info("world.backend", "kind", "file", "dir", filepath.Join(cfg.DataDir, "rooms"))
	return fb, nil
}

func buildModel(mc config.ModelConfig) (model.Model, error) {
	switch mc.Provider {
	case "openai":
		return openai.NewModel(func(o *openai.Options) {
			if mc.Name != "" {
				o.Model = mc.Name
			}
			o.Temperature = mc.Temperature
			o.MaxCompletionTokens = mc.MaxTokens
		}), nil
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			if mc.Name != "" {
				o.Model = anthropicsdk.Model(mc.Name)
			}
			o.Temperature = mc.Temperature
			o.MaxTokens = mc.MaxTokens
		}), nil
	case "mock":
		return model.NewMockModel(mc.Name, "mock"), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", mc.Provider)
	}
}
