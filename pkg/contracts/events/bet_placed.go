package events

import "github.com/shopspring/decimal"

type BetPlaced struct {
	BetID           string          `json:"bet_id"`
	UserID          string          `json:"user_id"`
	TrendID         string          `json:"trend_id"`
	Side            string          `json:"side"`
	Stake           decimal.Decimal `json:"stake"`
	Odds            decimal.Decimal `json:"odds"`
	PotentialPayout decimal.Decimal `json:"potential_payout"`
	TsUnixMs        int64           `json:"ts_unix_ms"`
}
