package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// Evento emitido pelo bet-engine após uma transição de status ser commitada.
// Status é o status final da aposta: "WON" | "LOST" | "CANCELLED" | "REFUNDED".
type BetSettled struct {
	BetID        string          `json:"betId"`
	UserID       string          `json:"userId"`
	TrendID      string          `json:"trendId"`
	Side         string          `json:"side"`
	Status       string          `json:"status"`
	Reason       string          `json:"reason,omitempty"`
	ActualPayout decimal.Decimal `json:"actual_payout"`
	Ts           time.Time       `json:"ts"`
}
