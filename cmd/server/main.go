// GoFile Direct Link server
//
// Features:
// - POST /get-link: first direct link of a share
// - POST /api/v1/resolve: every descriptor of a share, optionally persisted as a manifest
// - Prometheus metrics & structured logging (zap)
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/nahucai95/GoFile-Direct-Link/internal/api"
	"github.com/nahucai95/GoFile-Direct-Link/internal/config"
	"github.com/nahucai95/GoFile-Direct-Link/internal/gofile"
	"github.com/nahucai95/GoFile-Direct-Link/internal/logging"
	"github.com/nahucai95/GoFile-Direct-Link/internal/metrics"
	"github.com/nahucai95/GoFile-Direct-Link/internal/ratelimit"
	"github.com/nahucai95/GoFile-Direct-Link/internal/resolver"
	"github.com/nahucai95/GoFile-Direct-Link/internal/session"
	"github.com/nahucai95/GoFile-Direct-Link/internal/storage"
	"github.com/nahucai95/GoFile-Direct-Link/pkg/retry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Can't use structured logging yet
		panic("configuration error: " + err.Error())
	}

	if err := logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	}); err != nil {
		panic("logging init error: " + err.Error())
	}
	defer logging.Sync()

	logging.Info("GoFile Direct Link server starting...",
		zap.String("listen", cfg.ListenAddr),
		zap.String("metrics", cfg.MetricsAddr),
		zap.String("api", cfg.APIURL))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := gofile.New(gofile.Config{
		APIURL:    cfg.APIURL,
		SiteURL:   cfg.SiteURL,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.RequestTimeout,
	})
	sess := session.New(client, session.Credentials{
		APIToken:          cfg.Token,
		VerificationToken: cfg.VerificationToken,
	})
	res := resolver.New(client, sess, resolver.Config{
		SharePrefix: cfg.SharePrefix,
		Concurrency: cfg.Concurrency,
		MaxDepth:    cfg.MaxDepth,
	})

	manifests, err := storage.NewBackend(ctx, cfg)
	if err != nil {
		logging.Fatal("manifest storage init failed", zap.Error(err))
	}
	defer manifests.Close()
	logging.Info("manifest storage ready", zap.String("backend", manifests.Type()))

	var limiter *ratelimit.Limiter
	if cfg.RateLimitRPM > 0 {
		limiter = ratelimit.New(cfg.RateLimitRPM)
		go func() {
			ticker := time.NewTicker(10 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					limiter.Cleanup(time.Hour)
				}
			}
		}()
	}

	srv := api.NewServer(res, manifests, api.Config{
		SharePrefix: cfg.SharePrefix,
		Retry:       retry.DefaultConfig(cfg.RetryAttempts),
		Limiter:     limiter,
	})

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: metrics.Handler(),
		}
		go func() {
			logging.Info("metrics server listening", zap.String("addr", cfg.MetricsAddr))
			if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("metrics server error", zap.Error(err))
			}
		}()
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logging.Info("shutting down...")
		cancel()

		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		httpServer.Shutdown(shutdownCtx)
		if metricsServer != nil {
			metricsServer.Close()
		}
	}()

	logging.Info("server listening (HTTP)", zap.String("addr", cfg.ListenAddr))
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		logging.Fatal("server error", zap.Error(err))
	}
}
