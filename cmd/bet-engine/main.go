package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/trendpulse/trend-bet-platform/internal/bet-engine/engine"
	bhttp "github.com/trendpulse/trend-bet-platform/internal/bet-engine/http"
	"github.com/trendpulse/trend-bet-platform/internal/bet-engine/ledger"
	"github.com/trendpulse/trend-bet-platform/internal/bet-engine/odds"
	kpub "github.com/trendpulse/trend-bet-platform/internal/bet-engine/producer"
	"github.com/trendpulse/trend-bet-platform/internal/bet-engine/repo"
	"github.com/trendpulse/trend-bet-platform/internal/shared/cache"
	"github.com/trendpulse/trend-bet-platform/internal/shared/config"
	"github.com/trendpulse/trend-bet-platform/internal/shared/db"
	skafka "github.com/trendpulse/trend-bet-platform/internal/shared/kafka"
	"github.com/trendpulse/trend-bet-platform/internal/shared/logger"
	"github.com/trendpulse/trend-bet-platform/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, _ := logger.New(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	// Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg", zap.Error(err))
	}
	defer pg.Close()

	// Redis (cache de odds correntes)
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}

	// Kafka writers (bet_placed, bet_settled)
	placedWriter := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetPlaced)
	defer placedWriter.Close()
	settledWriter := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettled)
	defer settledWriter.Close()

	// deps
	repository := repo.NewPostgres(pg)
	wallet := ledger.NewPostgres(pg)
	if err := repository.EnsureSchema(context.Background()); err != nil {
		log.Fatal("bets schema", zap.Error(err))
	}
	if err := wallet.EnsureSchema(context.Background()); err != nil {
		log.Fatal("wallet schema", zap.Error(err))
	}

	publ := kpub.NewKafkaPublisher(placedWriter, settledWriter)
	eng := engine.New(log, repository, wallet, publ)
	ov := odds.NewValidator(rdb)

	// HTTP público
	api := bhttp.NewServer(log, eng, ov)
	apiSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: api.Router(),
	}

	// metrics/health
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	})

	log.Info("bet-engine listening",
		zap.String("addr", fmt.Sprintf(":%s", cfg.HTTPPort)),
		zap.String("brokers", cfg.KafkaBrokers),
	)
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}
