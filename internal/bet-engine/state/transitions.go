package state

import (
	"github.com/trendpulse/trend-bet-platform/internal/bet-engine/domain"
)

// Tabela de transições permitidas do ciclo de vida de uma aposta.
// LOST e REFUNDED são terminais. WON admite REFUNDED para clawback
// excepcional (disputa), sem reabrir o caminho de liquidação.
// A tabela é fixa: nunca é mutada em runtime.
var allowed = map[domain.BetStatus][]domain.BetStatus{
	domain.StatusPending:   {domain.StatusActive, domain.StatusCancelled},
	domain.StatusActive:    {domain.StatusWon, domain.StatusLost, domain.StatusCancelled, domain.StatusRefunded},
	domain.StatusWon:       {domain.StatusRefunded},
	domain.StatusLost:      {},
	domain.StatusCancelled: {domain.StatusRefunded},
	domain.StatusRefunded:  {},
}

// CanTransition informa se a transição from->to está na tabela.
// Lookup puro, sem estado; seguro para chamadas concorrentes.
func CanTransition(from, to domain.BetStatus) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Validate retorna *domain.TransitionError se a transição não for permitida.
func Validate(betID string, from, to domain.BetStatus) error {
	if !CanTransition(from, to) {
		return &domain.TransitionError{BetID: betID, From: from, To: to}
	}
	return nil
}
