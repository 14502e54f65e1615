package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trendpulse/trend-bet-platform/internal/bet-engine/domain"
)

type BetResponse struct {
	BetID            string           `json:"betId"`
	UserID           string           `json:"userId"`
	TrendID          string           `json:"trendId"`
	Side             string           `json:"side"`
	Stake            decimal.Decimal  `json:"stake"`
	Odds             decimal.Decimal  `json:"odds"`
	PotentialPayout  decimal.Decimal  `json:"potential_payout"`
	ActualPayout     *decimal.Decimal `json:"actual_payout,omitempty"`
	Status           string           `json:"status"`
	SettlementReason string           `json:"settlement_reason,omitempty"`
	Metadata         json.RawMessage  `json:"metadata,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	SettledAt        *time.Time       `json:"settled_at,omitempty"`
}

func FromBet(b *domain.Bet) BetResponse {
	r := BetResponse{
		BetID:            b.ID,
		UserID:           b.UserID,
		TrendID:          b.TrendID,
		Side:             b.Side,
		Stake:            b.Stake,
		Odds:             b.Odds,
		PotentialPayout:  b.PotentialPayout,
		Status:           string(b.Status),
		SettlementReason: b.SettlementReason,
		Metadata:         b.Metadata,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
		SettledAt:        b.SettledAt,
	}
	if b.ActualPayout.Valid {
		p := b.ActualPayout.Decimal
		r.ActualPayout = &p
	}
	return r
}

type BetHistoryResponse struct {
	Bets  []BetResponse `json:"bets"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

type AuditLogResponse struct {
	ID          string          `json:"id"`
	BetID       string          `json:"betId"`
	FromStatus  *string         `json:"fromStatus"`
	ToStatus    string          `json:"toStatus"`
	Reason      string          `json:"reason,omitempty"`
	PerformedBy string          `json:"performedBy"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

func FromAuditLog(e *domain.BetAuditLog) AuditLogResponse {
	r := AuditLogResponse{
		ID:          e.ID,
		BetID:       e.BetID,
		ToStatus:    string(e.ToStatus),
		Reason:      e.Reason,
		PerformedBy: e.PerformedBy,
		Metadata:    e.Metadata,
		CreatedAt:   e.CreatedAt,
	}
	if e.FromStatus != nil {
		s := string(*e.FromStatus)
		r.FromStatus = &s
	}
	return r
}

type AuditLogsResponse struct {
	Entries []AuditLogResponse `json:"entries"`
	Total   int64              `json:"total"`
	Page    int                `json:"page"`
	Limit   int                `json:"limit"`
}

type ErrorResponse struct {
	Error      string `json:"error"`
	BetID      string `json:"betId,omitempty"`
	FromStatus string `json:"fromStatus,omitempty"`
	ToStatus   string `json:"toStatus,omitempty"`
}
