package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BetStatus é o status do ciclo de vida de uma aposta.
type BetStatus string

const (
	StatusPending   BetStatus = "PENDING"
	StatusActive    BetStatus = "ACTIVE"
	StatusWon       BetStatus = "WON"
	StatusLost      BetStatus = "LOST"
	StatusCancelled BetStatus = "CANCELLED"
	StatusRefunded  BetStatus = "REFUNDED"
)

// ActorSystem identifica transições aplicadas por jobs automáticos de liquidação.
const ActorSystem = "system"

// Valid informa se o valor corresponde a um status conhecido.
func (s BetStatus) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusWon, StatusLost, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// Settling informa se o status representa uma liquidação (define actual_payout).
func (s BetStatus) Settling() bool {
	return s == StatusWon || s == StatusLost
}

// Bet é uma aposta de um usuário sobre o desfecho de um trend.
// potential_payout é fixado na criação (stake * odds) e nunca muda;
// actual_payout só é preenchido na liquidação, exatamente uma vez.
type Bet struct {
	ID               string
	UserID           string
	TrendID          string
	Side             string
	Stake            decimal.Decimal
	Odds             decimal.Decimal
	PotentialPayout  decimal.Decimal
	ActualPayout     decimal.NullDecimal
	Status           BetStatus
	SettlementReason string
	Metadata         json.RawMessage
	CreatedAt        time.Time
	UpdatedAt        time.Time
	SettledAt        *time.Time
}

// NewBet valida os parâmetros e monta uma aposta PENDING com payout potencial
// calculado (stake * odds, 2 casas decimais).
func NewBet(userID, trendID, side string, stake, odds decimal.Decimal, metadata json.RawMessage) (*Bet, error) {
	switch {
	case strings.TrimSpace(userID) == "":
		return nil, &ValidationError{Field: "userId", Reason: "required"}
	case strings.TrimSpace(trendID) == "":
		return nil, &ValidationError{Field: "trendId", Reason: "required"}
	case strings.TrimSpace(side) == "":
		return nil, &ValidationError{Field: "side", Reason: "required"}
	case stake.Sign() <= 0:
		return nil, &ValidationError{Field: "stake", Reason: "must be positive"}
	case odds.Sign() <= 0:
		return nil, &ValidationError{Field: "odds", Reason: "must be positive"}
	}

	now := time.Now().UTC()
	return &Bet{
		ID:              uuid.NewString(),
		UserID:          userID,
		TrendID:         trendID,
		Side:            side,
		Stake:           stake.Round(2),
		Odds:            odds,
		PotentialPayout: stake.Mul(odds).Round(2),
		Status:          StatusPending,
		Metadata:        metadata,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}
