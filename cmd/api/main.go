package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/clinicai/gateway/internal/api/router"
	"github.com/clinicai/gateway/internal/chat"
	"github.com/clinicai/gateway/internal/clinics"
	appconfig "github.com/clinicai/gateway/internal/config"
	"github.com/clinicai/gateway/internal/dashboard"
	"github.com/clinicai/gateway/internal/demo"
	"github.com/clinicai/gateway/internal/observability/metrics"
	"github.com/clinicai/gateway/internal/onboarding"
	"github.com/clinicai/gateway/internal/webhook"
	"github.com/clinicai/gateway/pkg/logging"
)

func main() {
	// Load .env in local development; the file is absent in production.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting clinicai gateway",
		"env", cfg.Env,
		"port", cfg.Port,
		"demo_mode", cfg.DemoMode(),
	)

	registry := prometheus.NewRegistry()
	gatewayMetrics := metrics.NewGatewayMetrics(registry)

	redisClient := connectRedis(cfg, logger)

	// The demo provider backs chat, dashboard, and onboarding whenever no
	// upstream is configured. The small delay keeps the demo feeling live.
	provider := demo.NewProvider(demo.WithDelay(400 * time.Millisecond))

	// Chat: n8n webhook when configured, demo scripts otherwise.
	var sender chat.Sender
	if cfg.ChatWebhookURL != "" {
		chatClient := webhook.NewClient(cfg.ChatWebhookURL,
			webhook.WithTimeout(cfg.WebhookTimeout),
			webhook.WithLogger(logger),
			webhook.WithMetrics(gatewayMetrics),
		)
		sender = chat.NewWebhookSender(chatClient, cfg.DefaultClinicID)
	} else {
		sender = chat.NewDemoSender(provider)
	}
	chatService := chat.NewService(sender,
		chat.WithWindow(cfg.ChatHistoryWindow),
		chat.WithMaxAge(cfg.ConversationMaxAge),
		chat.WithLogger(logger),
		chat.WithMetrics(gatewayMetrics),
	)
	chatHandler := chat.NewHandler(chatService, logger)

	// Dashboard: webhook, plain REST, or demo, in that order of preference.
	var source dashboard.Source
	switch {
	case cfg.WebhookURL != "":
		dashClient := webhook.NewClient(cfg.WebhookURL,
			webhook.WithTimeout(cfg.WebhookTimeout),
			webhook.WithLogger(logger),
			webhook.WithMetrics(gatewayMetrics),
		)
		source = dashboard.NewWebhookSource(dashClient)
	case cfg.APIBaseURL != "":
		source = dashboard.NewRESTSource(cfg.APIBaseURL)
	default:
		source = dashboard.NewDemoSource(provider)
	}

	poller := dashboard.NewPoller(source,
		dashboard.WithInterval(cfg.DashboardPollInterval),
		dashboard.WithIdleAfter(cfg.DashboardIdleAfter),
		dashboard.WithPollerLogger(logger),
		dashboard.WithPollerMetrics(gatewayMetrics),
	)

	var unlockStore dashboard.UnlockStore = dashboard.NewMemoryUnlockStore()
	var profileStore onboarding.Store = onboarding.NewMemoryStore()
	if redisClient != nil {
		unlockStore = dashboard.NewRedisUnlockStore(redisClient)
		profileStore = onboarding.NewRedisStore(redisClient)
	}

	gate := dashboard.NewGate(cfg.DashboardAccessCode, unlockStore)
	dashboardHandler := dashboard.NewHandler(gate, poller, registry, logger)

	// Clinic finder: Google Places when a key is configured, otherwise the
	// built-in directory.
	var searcher clinics.Searcher = clinics.NewStaticDirectory()
	if cfg.GoogleMapsAPIKey != "" {
		searcher = clinics.NewPlacesClient(cfg.GoogleMapsAPIKey,
			clinics.WithPlacesBaseURL(cfg.PlacesBaseURL),
		)
	}
	finder := clinics.NewFinder(searcher,
		clinics.WithRadius(cfg.ClinicSearchRadiusM),
		clinics.WithFinderLogger(logger),
	)
	clinicsHandler := clinics.NewHandler(finder, logger)

	onboardingService := onboarding.NewService(profileStore, provider, logger)
	onboardingHandler := onboarding.NewHandler(onboardingService, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		ChatHandler:        chatHandler,
		DashboardHandler:   dashboardHandler,
		ClinicsHandler:     clinicsHandler,
		OnboardingHandler:  onboardingHandler,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ChatRatePerSecond:  cfg.ChatRatePerSecond,
		ChatRateBurst:      cfg.ChatRateBurst,
	})

	// The poller keeps the dashboard snapshot warm for as long as the
	// process runs; it idles on its own when nobody is watching.
	pollCtx, stopPoller := context.WithCancel(context.Background())
	defer stopPoller()
	go poller.Run(pollCtx)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	stopPoller()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if redisClient != nil {
		_ = redisClient.Close()
	}

	logger.Info("server stopped")
}

// connectRedis returns a verified redis client, or nil when redis is not
// configured or unreachable. Callers fall back to in-memory stores on nil.
func connectRedis(cfg *appconfig.Config, logger *logging.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, using in-memory stores", "addr", cfg.RedisAddr, "error", err)
		_ = client.Close()
		return nil
	}

	logger.Info("redis connected", "addr", cfg.RedisAddr)
	return client
}
