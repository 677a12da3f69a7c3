package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"rewardhub/cmd/internal/passphrase"
	"rewardhub/config"
	"rewardhub/core/events"
	"rewardhub/crypto"
	"rewardhub/factory"
	"rewardhub/gateway"
	"rewardhub/native/bank"
	"rewardhub/observability/logging"
	"rewardhub/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("REWARDHUB_ENV"))
	logger := logging.Setup("rewardhubd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	if env == "" {
		env = cfg.Environment
	}

	operatorKey, err := loadOperatorKey(cfg, logger)
	if err != nil {
		logger.Error("Failed to load operator key", slog.Any("error", err))
		os.Exit(1)
	}
	operator := operatorKey.PubKey().RawAddress()

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("Failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	ledger := bank.New(db)
	registry := factory.New(db, ledger, cfg.ChainID, events.NoopEmitter{})
	server := gateway.NewServer(registry, operator, logger)

	httpServer := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		logger.Error("Failed to listen", slog.String("address", cfg.ListenAddress), slog.Any("error", err))
		os.Exit(1)
	}
	go func() {
		logger.Info("listening", slog.String("address", listener.Addr().String()), slog.String("env", env))
		if serveErr := httpServer.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			logger.Error("serve failed", slog.Any("error", serveErr))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
	}
}

// loadOperatorKey opens the configured keystore, generating and saving a fresh
// key on first run so a dev instance comes up without manual provisioning.
func loadOperatorKey(cfg *config.Config, logger *slog.Logger) (*crypto.PrivateKey, error) {
	source := passphrase.NewSource(cfg.KeystorePassphraseEnv)
	secret, err := source.Get()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(cfg.OperatorKeystorePath); os.IsNotExist(err) {
		key, err := crypto.GeneratePrivateKey()
		if err != nil {
			return nil, err
		}
		if err := crypto.SaveToKeystore(cfg.OperatorKeystorePath, key, secret); err != nil {
			return nil, err
		}
		logger.Info("generated operator keystore", slog.String("path", cfg.OperatorKeystorePath))
		return key, nil
	}
	return crypto.LoadFromKeystore(cfg.OperatorKeystorePath, secret)
}
