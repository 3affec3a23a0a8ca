package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	_ "go.uber.org/automaxprocs"

	"payrouter/internal/cache"
	"payrouter/internal/config"
	"payrouter/internal/dispatch"
	"payrouter/internal/gateway"
	"payrouter/internal/handler"
	"payrouter/internal/health"
	"payrouter/internal/ledger"
	"payrouter/internal/model"
	"payrouter/internal/retry"
)

func main() {
	slog.SetLogLoggerLevel(slog.LevelInfo)

	settings := config.Load()

	httpClient := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        512,
			MaxIdleConnsPerHost: 128,
			IdleConnTimeout:     120 * time.Second,
			MaxConnsPerHost:     512,
			DialContext: (&net.Dialer{
				Timeout:   time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
		Timeout: settings.GatewayTimeout,
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: settings.RedisAddr,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		slog.Error("redis unreachable", "addr", settings.RedisAddr, "err", err)
		os.Exit(1)
	}

	clients := map[model.Processor]gateway.ProcessorClient{
		model.ProcessorDefault:  gateway.NewClient(httpClient, settings.DefaultProcessorURL),
		model.ProcessorFallback: gateway.NewClient(httpClient, settings.FallbackProcessorURL),
	}

	monitor := health.NewMonitor(clients, cache.NewRedisCache(rdb), settings.HealthTTL, retry.Linear{
		Attempts: settings.ProbeAttempts,
		Delay:    settings.ProbeRetryDelay,
	})

	paymentLedger := ledger.New(rdb)
	dispatcher := dispatch.NewDispatcher(clients, monitor, paymentLedger)
	paymentHandler := handler.NewPaymentHandler(dispatcher, paymentLedger, paymentLedger, settings.AdminToken)

	app := fiber.New(fiber.Config{
		JSONEncoder: sonic.Marshal,
		JSONDecoder: sonic.Unmarshal,
	})

	app.Post("/payments", paymentHandler.Submit)
	app.Get("/payments-summary", paymentHandler.Summary)
	app.Post("/purge-payments", paymentHandler.Purge)
	app.Get("/healthcheck", paymentHandler.Healthcheck)

	go func() {
		slog.Info("server running", "port", settings.ServerPort)
		if err := app.Listen(":" + settings.ServerPort); err != nil {
			slog.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown failed", "err", err)
	}
	if err := rdb.Close(); err != nil {
		slog.Error("redis close failed", "err", err)
	}
}
