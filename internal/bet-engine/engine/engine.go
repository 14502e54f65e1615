package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/trendpulse/trend-bet-platform/internal/bet-engine/domain"
	"github.com/trendpulse/trend-bet-platform/internal/bet-engine/metrics"
	"github.com/trendpulse/trend-bet-platform/internal/bet-engine/state"
	"github.com/trendpulse/trend-bet-platform/pkg/contracts/events"
)

// Tx é o escopo transacional de uma atualização de aposta: a leitura com lock,
// a escrita e o append de auditoria acontecem na mesma transação e commitam
// ou revertem juntos.
type Tx interface {
	GetBetForUpdate(ctx context.Context, betID string) (*domain.Bet, error)
	UpdateBet(ctx context.Context, b *domain.Bet) error
	AppendAuditLog(ctx context.Context, entry *domain.BetAuditLog) error
}

// Store é o contrato de persistência consumido pelo engine.
type Store interface {
	// CreateBet insere a aposta e sua entrada de auditoria de criação
	// atomicamente.
	CreateBet(ctx context.Context, b *domain.Bet, entry *domain.BetAuditLog) error
	// Transact executa fn dentro de uma transação; erro reverte tudo.
	Transact(ctx context.Context, fn func(tx Tx) error) error
	GetBet(ctx context.Context, betID string) (*domain.Bet, error)
	ListBetsByUser(ctx context.Context, userID string, f domain.BetFilter) ([]domain.Bet, int64, error)
	ListAuditLogs(ctx context.Context, betID string, p domain.PageRequest) ([]domain.BetAuditLog, int64, error)
}

// Ledger registra movimentos de saldo dentro do escopo transacional do
// chamador: falha no ledger reverte a transição de status junto.
type Ledger interface {
	RecordTransaction(ctx context.Context, scope Tx, t domain.LedgerTransaction) (receipt string, err error)
}

// Publisher emite eventos de domínio após o commit. Best-effort: falha de
// publicação não desfaz uma liquidação já commitada.
type Publisher interface {
	PublishBetPlaced(ctx context.Context, e events.BetPlaced) error
	PublishBetSettled(ctx context.Context, e events.BetSettled) error
}

// Engine orquestra o ciclo de vida das apostas: criação, transições de status
// com liquidação atômica e consultas de histórico/auditoria.
type Engine struct {
	log    *zap.Logger
	store  Store
	ledger Ledger
	publ   Publisher
}

func New(log *zap.Logger, store Store, ledger Ledger, publ Publisher) *Engine {
	return &Engine{log: log, store: store, ledger: ledger, publ: publ}
}

// PlaceBetInput são os parâmetros de criação de uma aposta.
type PlaceBetInput struct {
	UserID   string
	TrendID  string
	Side     string
	Stake    decimal.Decimal
	Odds     decimal.Decimal
	Metadata json.RawMessage
}

// PlaceBet cria uma aposta PENDING e a entrada de auditoria de criação
// (from=nil) na mesma unidade atômica.
func (e *Engine) PlaceBet(ctx context.Context, in PlaceBetInput) (*domain.Bet, error) {
	b, err := domain.NewBet(in.UserID, in.TrendID, in.Side, in.Stake, in.Odds, in.Metadata)
	if err != nil {
		return nil, err
	}

	entry := domain.NewAuditLog(b.ID, nil, domain.StatusPending, "Bet created", in.UserID, in.Metadata)
	if err := e.store.CreateBet(ctx, b, entry); err != nil {
		e.log.Error("create bet", zap.String("userId", in.UserID), zap.String("trendId", in.TrendID), zap.Error(err))
		return nil, &domain.PersistenceError{Op: "create bet", Err: err}
	}

	metrics.RecordBetPlaced(b.Side)
	e.publishPlaced(ctx, b)

	return b, nil
}

// UpdateStatusInput são os parâmetros de uma transição de status.
type UpdateStatusInput struct {
	BetID       string
	NewStatus   domain.BetStatus
	Reason      string
	Metadata    json.RawMessage
	PerformedBy string
}

// UpdateBetStatus aplica uma transição de status como uma única transação:
// leitura com lock, validação contra a tabela de transições, liquidação
// (payout + settled_at), escrita, auditoria e — só em WON — crédito no
// ledger. Qualquer falha reverte tudo; nenhuma escrita parcial sobrevive.
func (e *Engine) UpdateBetStatus(ctx context.Context, in UpdateStatusInput) (*domain.Bet, error) {
	if !in.NewStatus.Valid() {
		return nil, &domain.ValidationError{Field: "status", Reason: "unknown status " + string(in.NewStatus)}
	}
	actor := in.PerformedBy
	if actor == "" {
		actor = domain.ActorSystem
	}

	started := time.Now()
	var updated *domain.Bet
	var fromStatus domain.BetStatus
	noop := false

	err := e.store.Transact(ctx, func(tx Tx) error {
		b, err := tx.GetBetForUpdate(ctx, in.BetID)
		if err != nil {
			return err
		}

		// Transição para o mesmo status: não muda nada e não gera auditoria.
		if b.Status == in.NewStatus {
			e.log.Warn("no-op status transition",
				zap.String("betId", b.ID),
				zap.String("status", string(b.Status)),
				zap.String("performedBy", actor),
			)
			updated = b
			noop = true
			return nil
		}

		if err := state.Validate(b.ID, b.Status, in.NewStatus); err != nil {
			return err
		}

		fromStatus = b.Status
		now := time.Now().UTC()
		reason := in.Reason

		b.Status = in.NewStatus
		b.UpdatedAt = now

		if in.NewStatus.Settling() {
			if reason == "" {
				reason = "Bet " + strings.ToLower(string(in.NewStatus))
			}
			b.SettledAt = &now
			b.SettlementReason = reason
			if in.NewStatus == domain.StatusWon {
				b.ActualPayout = decimal.NullDecimal{Decimal: b.PotentialPayout, Valid: true}
			} else {
				b.ActualPayout = decimal.NullDecimal{Decimal: decimal.Zero, Valid: true}
			}
		}

		if err := tx.UpdateBet(ctx, b); err != nil {
			return err
		}

		from := fromStatus
		if err := tx.AppendAuditLog(ctx, domain.NewAuditLog(b.ID, &from, b.Status, reason, actor, in.Metadata)); err != nil {
			return err
		}

		// Só vitória movimenta dinheiro; LOST liquida com payout zero.
		if b.Status == domain.StatusWon {
			receipt, err := e.ledger.RecordTransaction(ctx, tx, domain.LedgerTransaction{
				UserID:      b.UserID,
				Type:        domain.TxBetWinning,
				Amount:      b.ActualPayout.Decimal,
				Description: fmt.Sprintf("Winnings for bet %s", b.ID),
				Metadata:    winningMetadata(b),
			})
			if err != nil {
				return &domain.LedgerError{BetID: b.ID, Err: err}
			}
			e.log.Info("ledger credited",
				zap.String("betId", b.ID),
				zap.String("userId", b.UserID),
				zap.String("amount", b.ActualPayout.Decimal.String()),
				zap.String("receipt", receipt),
			)
		}

		updated = b
		return nil
	})

	if err != nil {
		return nil, e.classifyUpdateErr(in, actor, err)
	}
	if noop {
		return updated, nil
	}

	metrics.RecordTransition(string(fromStatus), string(updated.Status))
	if updated.Status.Settling() {
		metrics.RecordSettlement(string(updated.Status), started)
	}
	e.publishSettled(ctx, updated)

	return updated, nil
}

// classifyUpdateErr preserva os erros de domínio e embrulha o resto como
// falha de persistência (transiente, seguro repetir a chamada inteira).
func (e *Engine) classifyUpdateErr(in UpdateStatusInput, actor string, err error) error {
	var (
		transitionErr *domain.TransitionError
		ledgerErr     *domain.LedgerError
	)
	switch {
	case errors.Is(err, domain.ErrBetNotFound):
		return err
	case errors.As(err, &transitionErr):
		metrics.RecordTransitionRejected(string(transitionErr.From), string(transitionErr.To))
		e.log.Warn("transition rejected",
			zap.String("betId", in.BetID),
			zap.String("fromStatus", string(transitionErr.From)),
			zap.String("toStatus", string(transitionErr.To)),
			zap.String("performedBy", actor),
		)
		return err
	case errors.As(err, &ledgerErr):
		e.log.Error("settlement rolled back: ledger failure",
			zap.String("betId", in.BetID),
			zap.String("toStatus", string(in.NewStatus)),
			zap.Error(err),
		)
		return err
	default:
		e.log.Error("update bet status",
			zap.String("betId", in.BetID),
			zap.String("toStatus", string(in.NewStatus)),
			zap.Error(err),
		)
		return &domain.PersistenceError{Op: "update bet status", Err: err}
	}
}

// GetBet retorna o snapshot atual de uma aposta.
func (e *Engine) GetBet(ctx context.Context, betID string) (*domain.Bet, error) {
	return e.store.GetBet(ctx, betID)
}

// GetBetHistory retorna as apostas de um usuário, mais recentes primeiro,
// com total para paginação.
func (e *Engine) GetBetHistory(ctx context.Context, userID string, f domain.BetFilter) ([]domain.Bet, int64, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, 0, &domain.ValidationError{Field: "userId", Reason: "required"}
	}
	f.Page = f.Page.Normalize()
	return e.store.ListBetsByUser(ctx, userID, f)
}

// GetBetAuditLogs retorna a trilha de auditoria de uma aposta, mais recente
// primeiro.
func (e *Engine) GetBetAuditLogs(ctx context.Context, betID string, p domain.PageRequest) ([]domain.BetAuditLog, int64, error) {
	if strings.TrimSpace(betID) == "" {
		return nil, 0, &domain.ValidationError{Field: "betId", Reason: "required"}
	}
	return e.store.ListAuditLogs(ctx, betID, p.Normalize())
}

func (e *Engine) publishPlaced(ctx context.Context, b *domain.Bet) {
	if e.publ == nil {
		return
	}
	err := e.publ.PublishBetPlaced(ctx, events.BetPlaced{
		BetID:           b.ID,
		UserID:          b.UserID,
		TrendID:         b.TrendID,
		Side:            b.Side,
		Stake:           b.Stake,
		Odds:            b.Odds,
		PotentialPayout: b.PotentialPayout,
	})
	if err != nil {
		e.log.Warn("publish bet_placed", zap.String("betId", b.ID), zap.Error(err))
	}
}

func (e *Engine) publishSettled(ctx context.Context, b *domain.Bet) {
	if e.publ == nil {
		return
	}
	switch b.Status {
	case domain.StatusWon, domain.StatusLost, domain.StatusCancelled, domain.StatusRefunded:
	default:
		return
	}
	err := e.publ.PublishBetSettled(ctx, events.BetSettled{
		BetID:        b.ID,
		UserID:       b.UserID,
		TrendID:      b.TrendID,
		Side:         b.Side,
		Status:       string(b.Status),
		Reason:       b.SettlementReason,
		ActualPayout: b.ActualPayout.Decimal,
		Ts:           time.Now(),
	})
	if err != nil {
		e.log.Warn("publish bet_settled", zap.String("betId", b.ID), zap.Error(err))
	}
}

// winningMetadata monta o metadata do crédito de vitória no ledger:
// betId, side, stake original e odds.
func winningMetadata(b *domain.Bet) json.RawMessage {
	m, _ := json.Marshal(map[string]string{
		"betId": b.ID,
		"side":  b.Side,
		"stake": b.Stake.String(),
		"odds":  b.Odds.String(),
	})
	return m
}
