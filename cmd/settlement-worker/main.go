package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/trendpulse/trend-bet-platform/internal/bet-engine/domain"
	"github.com/trendpulse/trend-bet-platform/internal/bet-engine/engine"
	"github.com/trendpulse/trend-bet-platform/internal/bet-engine/ledger"
	kpub "github.com/trendpulse/trend-bet-platform/internal/bet-engine/producer"
	"github.com/trendpulse/trend-bet-platform/internal/bet-engine/repo"
	"github.com/trendpulse/trend-bet-platform/internal/shared/config"
	"github.com/trendpulse/trend-bet-platform/internal/shared/db"
	"github.com/trendpulse/trend-bet-platform/internal/shared/kafka"
	"github.com/trendpulse/trend-bet-platform/internal/shared/logger"
	"github.com/trendpulse/trend-bet-platform/internal/shared/metrics"
	ev "github.com/trendpulse/trend-bet-platform/pkg/contracts/events"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Postgres: apostas e carteira vivem no mesmo banco; a liquidação é uma
	// transação só.
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	repository := repo.NewPostgres(pg)
	wallet := ledger.NewPostgres(pg)

	// Kafka consumer: consome eventos trend_settled para liquidar apostas
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicTrendSettled, "settlement-worker")
	defer reader.Close()

	// Kafka producer: publica bet_settled e, opcionalmente, envia para DLQ
	settledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettled)
	defer settledWriter.Close()

	var dlqWriter *kafka.Writer
	if cfg.TopicTrendSettledDLQ != "" {
		dlqWriter = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicTrendSettledDLQ)
		defer dlqWriter.Close()
	}

	publ := kpub.NewKafkaPublisher(settledWriter, settledWriter)
	eng := engine.New(log, repository, wallet, publ)

	// Servidor HTTP para métricas Prometheus e healthcheck
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})

	log.Info("settlement-worker started",
		zap.String("consume", cfg.TopicTrendSettled),
		zap.String("publish", cfg.TopicBetSettled),
	)

	ctx := context.Background()

	// Loop principal: consome trend_settled e liquida todas as apostas
	// abertas do trend
	for {
		key, value, err := kafka.ReadNext(ctx, reader)
		if err != nil {
			log.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		var settled ev.TrendSettled
		if jerr := json.Unmarshal(value, &settled); jerr != nil {
			log.Error("unmarshal trend_settled", zap.Error(jerr))
			if dlqWriter != nil {
				_ = kafka.WriteJSON(ctx, dlqWriter, string(key), value)
			}
			continue
		}

		if err := settleTrend(ctx, log, repository, eng, &settled); err != nil {
			log.Error("settle trend", zap.String("trendId", settled.TrendID), zap.Error(err))
			// Backoff simples para evitar flood em caso de erro
			time.Sleep(500 * time.Millisecond)
			if dlqWriter != nil {
				_ = kafka.WriteJSON(ctx, dlqWriter, settled.TrendID, value)
			}
		}
	}
}

// settleTrend executa a liquidação de um trend resolvido:
// 1. Carrega todas as apostas abertas (PENDING/ACTIVE) do trend
// 2. PENDING vira CANCELLED (trend fechou antes da ativação)
// 3. ACTIVE vira WON se o side bate com o vencedor, senão LOST
// Cada aposta é uma transação própria; falha em uma não trava as demais.
func settleTrend(
	ctx context.Context,
	log *zap.Logger,
	repository *repo.Postgres,
	eng *engine.Engine,
	settled *ev.TrendSettled,
) error {
	bets, err := repository.ListOpenBetsByTrend(ctx, settled.TrendID)
	if err != nil {
		return err
	}

	reason := settled.Reason
	if reason == "" {
		reason = "Trend settled: " + settled.WinningSide
	}

	var failed int
	for i := range bets {
		b := &bets[i]

		target := domain.StatusLost
		betReason := reason
		switch {
		case b.Status == domain.StatusPending:
			target = domain.StatusCancelled
			betReason = "Trend settled before activation"
		case strings.EqualFold(b.Side, settled.WinningSide):
			target = domain.StatusWon
		}

		if _, err := eng.UpdateBetStatus(ctx, engine.UpdateStatusInput{
			BetID:       b.ID,
			NewStatus:   target,
			Reason:      betReason,
			PerformedBy: domain.ActorSystem,
		}); err != nil {
			// Transição rejeitada = outra instância já liquidou; não conta
			// como falha
			var transitionErr *domain.TransitionError
			if errors.As(err, &transitionErr) {
				log.Warn("bet already settled",
					zap.String("betId", b.ID),
					zap.String("fromStatus", string(transitionErr.From)),
				)
				continue
			}
			failed++
			log.Error("settle bet", zap.String("betId", b.ID), zap.Error(err))
		}
	}

	log.Info("trend settled",
		zap.String("trendId", settled.TrendID),
		zap.String("winningSide", settled.WinningSide),
		zap.Int("bets", len(bets)),
		zap.Int("failed", failed),
	)

	if failed > 0 {
		return fmt.Errorf("%d of %d bets failed to settle", failed, len(bets))
	}
	return nil
}
