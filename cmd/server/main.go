package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/relaypay/gateway-bridge/internal/adapters/paysecure"
	"github.com/relaypay/gateway-bridge/internal/adapters/ports"
	"github.com/relaypay/gateway-bridge/internal/adapters/postgres"
	"github.com/relaypay/gateway-bridge/internal/adapters/secrets"
	"github.com/relaypay/gateway-bridge/internal/auth"
	"github.com/relaypay/gateway-bridge/internal/config"
	"github.com/relaypay/gateway-bridge/internal/handlers/connect"
	"github.com/relaypay/gateway-bridge/internal/services/payment"
	"github.com/relaypay/gateway-bridge/internal/services/relay"
	"github.com/relaypay/gateway-bridge/pkg/observability"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Logger)
	defer logger.Sync()

	logger.Info("Starting gateway bridge",
		zap.String("version", "0.1.0"),
	)

	// Database connection pool
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := postgres.Connect(ctx, cfg.Database.ConnectionString(), logger)
	cancel()
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer pool.Close()

	logger.Info("Database connection established",
		zap.String("database", cfg.Database.Database),
	)

	// Callback signing key
	secretManager, err := buildSecretManager(cfg.Secrets, logger)
	if err != nil {
		logger.Fatal("Failed to initialize secrets backend", zap.Error(err))
	}
	signKey, err := secrets.LoadSignKey(context.Background(), secretManager, cfg.Secrets.SignKeyName)
	if err != nil {
		logger.Fatal("Failed to load callback signing key", zap.Error(err))
	}

	// Wire services
	store := postgres.NewMappingRepository(postgres.NewDBExecutor(pool))
	httpClient := &http.Client{Timeout: time.Duration(cfg.Gateway.Timeout) * time.Second}

	endpoints := paysecure.Endpoints{
		APIBaseURL:  cfg.Gateway.APIBaseURL,
		AppBaseURL:  cfg.Gateway.AppBaseURL,
		CallbackURL: cfg.Gateway.CallbackURL,
	}
	paymentSvc := payment.NewService(endpoints, httpClient, store, logger)

	minter, err := relay.NewTokenMinter(signKey)
	if err != nil {
		logger.Fatal("Failed to initialize token minter", zap.Error(err))
	}
	relaySvc := relay.NewService(
		relay.Config{
			BusinessURL:      cfg.Relay.BusinessURL,
			DefaultPublicKey: cfg.Relay.DefaultPublicKey,
			DeliveryTimeout:  time.Duration(cfg.Relay.DeliveryTimeout) * time.Second,
		},
		store,
		auth.NewWebhookVerifier(),
		minter,
		&http.Client{},
		logger,
	)

	handlers := connect.NewHandlers(paymentSvc, relaySvc, logger)
	router := connect.NewRouter(handlers, logger)

	// Metrics and health on a side port
	healthChecker := observability.NewHealthChecker()
	healthChecker.AddCheck("database", observability.DatabaseCheck(pool))
	metricsServer := observability.StartMetricsServer(
		fmt.Sprintf("%d", cfg.Server.MetricsPort), healthChecker, logger)

	logger.Info("Metrics server started", zap.Int("port", cfg.Server.MetricsPort))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	if err := observability.ShutdownMetricsServer(metricsServer); err != nil {
		logger.Error("Metrics server shutdown error", zap.Error(err))
	}

	logger.Info("Shutdown complete")
}

// initLogger initializes the logger
func initLogger(cfg config.LoggerConfig) *zap.Logger {
	level := zapcore.InfoLevel
	if parsed, err := zapcore.ParseLevel(cfg.Level); err == nil {
		level = parsed
	}

	if cfg.Development {
		zapCfg := zap.NewDevelopmentConfig()
		zapCfg.Level = zap.NewAtomicLevelAt(level)
		logger, _ := zapCfg.Build()
		return logger
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	logger, _ := zapCfg.Build()
	return logger
}

// buildSecretManager selects the secrets backend from configuration
func buildSecretManager(cfg config.SecretsConfig, logger *zap.Logger) (ports.SecretManager, error) {
	switch cfg.Backend {
	case "aws":
		awsCfg := secrets.DefaultAWSConfig(os.Getenv("AWS_REGION"))
		return secrets.NewAWSAdapter(context.Background(), awsCfg, logger)
	case "vault":
		vaultCfg := secrets.DefaultVaultConfig(os.Getenv("VAULT_ADDR"))
		vaultCfg.Token = os.Getenv("VAULT_TOKEN")
		vaultCfg.MountPath = cfg.VaultMount
		return secrets.NewVaultAdapter(context.Background(), vaultCfg, logger)
	default:
		return secrets.NewEnvAdapter(), nil
	}
}
