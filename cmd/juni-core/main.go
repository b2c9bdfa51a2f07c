package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"juni-core/common/database"
	"juni-core/common/logger"
	"juni-core/common/mqtt"
	commonredis "juni-core/common/redis"
	"juni-core/internal/config"
	httpapi "juni-core/internal/http"
	"juni-core/internal/matching"
	"juni-core/internal/notify"
	"juni-core/internal/repository"
	"juni-core/internal/service"
	"juni-core/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "juni-core")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	// Storage: Postgres when reachable, otherwise the in-memory store (dev mode)
	var db *sql.DB
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			log.Info("DB enabled for juni-core")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory store", zap.Error(err))
		}
	}
	var st *repository.Store
	if db != nil {
		st = repository.NewPostgresStore(db)
	} else {
		st = repository.NewMemoryStore().Store()
	}

	// Redis backs payout locks and the event stream
	var redisClient *redis.Client
	var locks store.KVStore = store.NewMemoryKVStore()
	if cfg.Redis.Enabled {
		c := commonredis.NewRedisClient(&cfg.Redis.RedisConfig)
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := commonredis.Ping(pingCtx, c)
		pingCancel()
		if err == nil {
			redisClient = c
			locks = store.NewRedisKVStore(c)
		} else {
			log.Warn("Redis unreachable, payout locks are process-local", zap.Error(err))
			_ = c.Close()
		}
	}

	var mqttClient *mqtt.Client
	var notifier notify.Notifier = notify.Nop{}
	switch cfg.Notify.Sink {
	case "redis":
		if redisClient != nil {
			notifier = notify.NewRedisStreamNotifier(redisClient, cfg.Notify.Stream, cfg.Notify.StreamMaxLen, log)
		} else {
			log.Warn("Notify sink is redis but Redis is unavailable, events are dropped")
		}
	case "mqtt":
		if c, err := mqtt.NewClient(&cfg.MQTT); err == nil {
			mqttClient = c
			notifier = notify.NewMQTTNotifier(c, cfg.Notify.TopicPrefix, log)
		} else {
			log.Warn("MQTT unreachable, events are dropped", zap.Error(err))
		}
	case "none", "":
	default:
		log.Warn("Unknown notify sink, events are dropped", zap.String("sink", cfg.Notify.Sink))
	}

	transfer := service.NewHTTPTransferClient(cfg.Transfer.BaseURL, cfg.Transfer.APIKey, cfg.Transfer.Timeout, cfg.Transfer.Retries, log)

	owners := service.NewFamilyOwnership(st.Seniors)
	profiles := service.NewProfileService(st, owners, log)
	matches := service.NewMatchService(st, matching.NewEngine(), owners, notifier, cfg.Matching.DefaultLimit, log)
	visits := service.NewVisitService(st, owners, notifier, log)
	payouts := service.NewPayoutService(st, transfer, locks, notifier, service.PayoutServiceConfig{
		HourlyRateCents: cfg.Payout.HourlyRateCents,
		PlatformFeePct:  cfg.Payout.PlatformFeePct,
		Concurrency:     cfg.Payout.Concurrency,
		LockTTL:         cfg.Payout.LockTTL,
		Currency:        cfg.Payout.Currency,
	}, log)

	router := httpapi.NewRouter(log)
	router.RegisterHealth()
	router.RegisterSeniorRoutes(httpapi.NewSeniorHandler(profiles, matches, log))
	router.RegisterMatchRoutes(httpapi.NewMatchHandler(matches, log))
	router.RegisterVisitRoutes(httpapi.NewVisitHandler(visits, log))
	router.RegisterCompanionRoutes(httpapi.NewCompanionHandler(profiles, visits, payouts, log))
	router.RegisterPayoutRoutes(httpapi.NewPayoutHandler(payouts, log))

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("HTTP server stopped", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	if redisClient != nil {
		_ = commonredis.Close(redisClient)
	}
	if db != nil {
		_ = database.Close(db)
	}
}
