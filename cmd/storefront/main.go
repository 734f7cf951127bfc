package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/app"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

// setupLogger настраивает формат и уровень логирования по STOREFRONT_LOG_FORMAT и STOREFRONT_LOG_LEVEL.
func setupLogger(logger *log.Logger, getenv func(string) string) {
	if strings.EqualFold(strings.TrimSpace(getenv("STOREFRONT_LOG_FORMAT")), "json") {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	logger.SetLevel(log.InfoLevel)
	if raw := strings.TrimSpace(getenv("STOREFRONT_LOG_LEVEL")); raw != "" {
		level, err := log.ParseLevel(raw)
		if err != nil {
			logger.WithField("value", raw).Warn("unknown log level, using info")
			return
		}
		logger.SetLevel(level)
	}
}

func main() {
	setupLogger(log.StandardLogger(), os.Getenv)

	cfg, err := app.LoadConfigFromEnv()
	if err != nil {
		log.WithError(err).Fatal("некорректная конфигурация")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":    cfg.HTTPAddr,
		"metrics_addr": cfg.MetricsAddr,
		"grpc_addr":    cfg.GRPCAddr,
		"storage":      cfg.StorageDriver,
		"version":      version.String(),
	}).Info("запускаем storefront")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("storefront остановлен")
}
