// Command relay-server connects users' HubSpot, Airtable and Notion accounts
// through OAuth2 with PKCE and serves their records over HTTP and MCP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-training/integration-relay/pkg/config"
	"github.com/go-training/integration-relay/pkg/core"
	"github.com/go-training/integration-relay/pkg/integration"
	"github.com/go-training/integration-relay/pkg/logger"
	"github.com/go-training/integration-relay/pkg/operation"
	"github.com/go-training/integration-relay/pkg/router"
	"github.com/go-training/integration-relay/pkg/store"

	"github.com/appleboy/graceful"
	"github.com/gin-gonic/gin"
)

var version = "dev"

const shutdownTimeout = 10 * time.Second

type flags struct {
	configPath string
	addr       string
	storeType  string
	redisAddr  string
	redisPass  string
	logLevel   string
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "path to a TOML config file")
	flag.StringVar(&f.addr, "addr", "", "address to listen on")
	flag.StringVar(&f.storeType, "store", "", "store type (memory or redis)")
	flag.StringVar(&f.redisAddr, "redis-addr", "", "redis address (e.g. localhost:6379)")
	flag.StringVar(&f.redisPass, "redis-password", "", "redis password")
	flag.StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flag.Parse()
	return f
}

// applyFlags lets command-line flags override file and environment settings.
func applyFlags(cfg *config.Config, f flags) error {
	if f.addr != "" {
		cfg.Addr = f.addr
	}
	if f.storeType != "" {
		cfg.Store.Type = store.ParseStoreType(f.storeType)
	}
	if f.redisAddr != "" {
		cfg.Store.Redis.Addr = f.redisAddr
	}
	if f.redisPass != "" {
		cfg.Store.Redis.Password = f.redisPass
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	return cfg.Validate()
}

func buildRegistry(cfg *config.Config, s core.Store) (*integration.Registry, error) {
	registry := integration.NewRegistry()
	for _, pc := range cfg.EnabledProviders() {
		a, err := integration.NewAdapter(pc, s,
			integration.WithStateTTL(cfg.StateTTL),
			integration.WithCredentialsTTL(cfg.CredentialsTTL),
			integration.WithRequestTimeout(cfg.RequestTimeout),
			integration.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(a); err != nil {
			return nil, err
		}
		slog.Info("provider enabled", "provider", pc.Name, "redirect_url", pc.RedirectURL)
	}
	return registry, nil
}

func openStore(cfg store.Config) (core.Store, error) {
	s, err := store.NewStore(cfg)
	if err != nil {
		return nil, err
	}
	if rs, ok := s.(*store.RedisStore); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rs.Ping(ctx); err != nil {
			rs.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
	}
	return s, nil
}

func main() {
	f := parseFlags()
	logger.NewWithLevel(f.logLevel)

	cfg, err := config.Load(f.configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if err := applyFlags(cfg, f); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	logger.NewWithLevel(cfg.LogLevel)

	if os.Getenv("ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	st, err := openStore(cfg.Store)
	if err != nil {
		slog.Error("Failed to create store", "error", err)
		os.Exit(1)
	}
	slog.Info("Using store", "type", cfg.Store.Type)
	if cfg.AllowAllOrigins() {
		slog.Warn("CORS allows any origin; set CORS_ORIGINS to restrict it")
	}

	registry, err := buildRegistry(cfg, st)
	if err != nil {
		slog.Error("Failed to configure providers", "error", err)
		os.Exit(1)
	}
	if len(registry.Names()) == 0 {
		slog.Warn("No providers enabled; set {PROVIDER}_CLIENT_ID and {PROVIDER}_CLIENT_SECRET")
	}

	mcpServer := operation.NewMCPServer(registry, version)
	engine := router.New(router.Options{
		Registry:    registry,
		CORSOrigins: cfg.CORSOrigins,
		MCP:         operation.NewHTTPHandler(mcpServer),
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	m := graceful.NewManager()
	m.AddRunningJob(func(ctx context.Context) error {
		errCh := make(chan error, 1)
		go func() {
			slog.Info("Integration relay listening", "addr", cfg.Addr, "version", version)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			slog.Error("Server error", "error", err)
			os.Exit(1)
			return err
		}
	})
	m.AddShutdownJob(func() error {
		slog.Info("Shutdown signal received, shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := srv.Shutdown(ctx)
		store.Close(st)
		if err != nil {
			slog.Error("Server forced to shutdown", "error", err)
			return err
		}
		slog.Info("Server shutdown gracefully")
		return nil
	})

	<-m.Done()
}
