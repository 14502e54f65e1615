package topics

const (
	// Bets
	BetPlaced  = "bet_placed"
	BetSettled = "bet_settled"

	// Trends (comando de liquidação emitido pelo trend-intel)
	TrendSettled = "trend_settled"

	// DLQs
	TrendSettledDLQ = "trend_settled_dlq"
)
