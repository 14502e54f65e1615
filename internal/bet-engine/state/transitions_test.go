package state

import (
	"errors"
	"testing"

	"github.com/trendpulse/trend-bet-platform/internal/bet-engine/domain"
)

var allStatuses = []domain.BetStatus{
	domain.StatusPending,
	domain.StatusActive,
	domain.StatusWon,
	domain.StatusLost,
	domain.StatusCancelled,
	domain.StatusRefunded,
}

// Fecho completo da tabela: qualquer par fora dela é negado.
func TestCanTransitionClosure(t *testing.T) {
	allowedPairs := map[[2]domain.BetStatus]bool{
		{domain.StatusPending, domain.StatusActive}:     true,
		{domain.StatusPending, domain.StatusCancelled}:  true,
		{domain.StatusActive, domain.StatusWon}:         true,
		{domain.StatusActive, domain.StatusLost}:        true,
		{domain.StatusActive, domain.StatusCancelled}:   true,
		{domain.StatusActive, domain.StatusRefunded}:    true,
		{domain.StatusWon, domain.StatusRefunded}:       true,
		{domain.StatusCancelled, domain.StatusRefunded}: true,
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := allowedPairs[[2]domain.BetStatus{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	for _, terminal := range []domain.BetStatus{domain.StatusLost, domain.StatusRefunded} {
		for _, to := range allStatuses {
			if CanTransition(terminal, to) {
				t.Errorf("terminal status %s allows exit to %s", terminal, to)
			}
		}
	}
}

func TestUnknownStatusRejected(t *testing.T) {
	if CanTransition("BOGUS", domain.StatusActive) {
		t.Error("unknown from-status must be rejected")
	}
	if CanTransition(domain.StatusActive, "BOGUS") {
		t.Error("unknown to-status must be rejected")
	}
}

func TestValidateCarriesContext(t *testing.T) {
	err := Validate("bet-123", domain.StatusLost, domain.StatusActive)
	if err == nil {
		t.Fatal("expected error for LOST -> ACTIVE")
	}

	var transitionErr *domain.TransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("expected *domain.TransitionError, got %T", err)
	}
	if transitionErr.BetID != "bet-123" || transitionErr.From != domain.StatusLost || transitionErr.To != domain.StatusActive {
		t.Errorf("unexpected error fields: %+v", transitionErr)
	}

	if err := Validate("bet-123", domain.StatusPending, domain.StatusActive); err != nil {
		t.Errorf("PENDING -> ACTIVE must be allowed, got %v", err)
	}
}
