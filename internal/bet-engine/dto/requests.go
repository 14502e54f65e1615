package dto

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type PlaceBetRequest struct {
	UserID   string          `json:"userId"`
	TrendID  string          `json:"trendId"`
	Side     string          `json:"side"` // ex: "UP" | "DOWN"
	Stake    decimal.Decimal `json:"stake"`
	Odds     decimal.Decimal `json:"odds"` // odd que o cliente viu
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

type UpdateBetStatusRequest struct {
	Status      string          `json:"status"`
	Reason      string          `json:"reason,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	PerformedBy string          `json:"performedBy,omitempty"`
}
