package events

import "time"

// Comando consumido pelo settlement-worker: um trend foi resolvido e todas as
// apostas abertas sobre ele devem ser liquidadas.
type TrendSettled struct {
	TrendID     string    `json:"trendId"`
	WinningSide string    `json:"winningSide"`
	Reason      string    `json:"reason,omitempty"`
	Ts          time.Time `json:"ts"`
}
