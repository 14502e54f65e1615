package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/trendpulse/trend-bet-platform/internal/bet-engine/domain"
	"github.com/trendpulse/trend-bet-platform/pkg/contracts/events"
)

// memStore implementa Store em memória com semântica transacional: o escopo
// trabalha sobre cópias e só substitui o estado no commit.
type memStore struct {
	bets   map[string]*domain.Bet
	audits []domain.BetAuditLog
}

func newMemStore() *memStore {
	return &memStore{bets: make(map[string]*domain.Bet)}
}

func cloneBet(b *domain.Bet) *domain.Bet {
	c := *b
	if b.SettledAt != nil {
		ts := *b.SettledAt
		c.SettledAt = &ts
	}
	return &c
}

func (m *memStore) CreateBet(_ context.Context, b *domain.Bet, entry *domain.BetAuditLog) error {
	m.bets[b.ID] = cloneBet(b)
	m.audits = append(m.audits, *entry)
	return nil
}

func (m *memStore) Transact(_ context.Context, fn func(tx Tx) error) error {
	scratch := &memTx{
		bets:   make(map[string]*domain.Bet, len(m.bets)),
		audits: append([]domain.BetAuditLog(nil), m.audits...),
	}
	for id, b := range m.bets {
		scratch.bets[id] = cloneBet(b)
	}

	if err := fn(scratch); err != nil {
		return err
	}

	m.bets = scratch.bets
	m.audits = scratch.audits
	return nil
}

func (m *memStore) GetBet(_ context.Context, betID string) (*domain.Bet, error) {
	b, ok := m.bets[betID]
	if !ok {
		return nil, domain.ErrBetNotFound
	}
	return cloneBet(b), nil
}

func (m *memStore) ListBetsByUser(_ context.Context, userID string, f domain.BetFilter) ([]domain.Bet, int64, error) {
	var all []domain.Bet
	for _, b := range m.bets {
		if b.UserID != userID {
			continue
		}
		if f.Status != nil && b.Status != *f.Status {
			continue
		}
		if f.From != nil && b.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && b.CreatedAt.After(*f.To) {
			continue
		}
		all = append(all, *cloneBet(b))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	lo := f.Page.Offset()
	if lo > len(all) {
		return nil, total, nil
	}
	hi := lo + f.Page.Limit
	if hi > len(all) {
		hi = len(all)
	}
	return all[lo:hi], total, nil
}

func (m *memStore) ListAuditLogs(_ context.Context, betID string, p domain.PageRequest) ([]domain.BetAuditLog, int64, error) {
	var all []domain.BetAuditLog
	for _, e := range m.audits {
		if e.BetID == betID {
			all = append(all, e)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	lo := p.Offset()
	if lo > len(all) {
		return nil, total, nil
	}
	hi := lo + p.Limit
	if hi > len(all) {
		hi = len(all)
	}
	return all[lo:hi], total, nil
}

func (m *memStore) auditCount(betID string) int {
	n := 0
	for _, e := range m.audits {
		if e.BetID == betID {
			n++
		}
	}
	return n
}

type memTx struct {
	bets   map[string]*domain.Bet
	audits []domain.BetAuditLog
}

func (t *memTx) GetBetForUpdate(_ context.Context, betID string) (*domain.Bet, error) {
	b, ok := t.bets[betID]
	if !ok {
		return nil, domain.ErrBetNotFound
	}
	return cloneBet(b), nil
}

func (t *memTx) UpdateBet(_ context.Context, b *domain.Bet) error {
	t.bets[b.ID] = cloneBet(b)
	return nil
}

func (t *memTx) AppendAuditLog(_ context.Context, entry *domain.BetAuditLog) error {
	t.audits = append(t.audits, *entry)
	return nil
}

type fakeLedger struct {
	credits []domain.LedgerTransaction
	err     error
}

func (l *fakeLedger) RecordTransaction(_ context.Context, _ Tx, t domain.LedgerTransaction) (string, error) {
	if l.err != nil {
		return "", l.err
	}
	l.credits = append(l.credits, t)
	return fmt.Sprintf("receipt-%d", len(l.credits)), nil
}

type fakePublisher struct {
	placed  []events.BetPlaced
	settled []events.BetSettled
}

func (p *fakePublisher) PublishBetPlaced(_ context.Context, e events.BetPlaced) error {
	p.placed = append(p.placed, e)
	return nil
}

func (p *fakePublisher) PublishBetSettled(_ context.Context, e events.BetSettled) error {
	p.settled = append(p.settled, e)
	return nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestEngine() (*Engine, *memStore, *fakeLedger, *fakePublisher) {
	store := newMemStore()
	led := &fakeLedger{}
	publ := &fakePublisher{}
	return New(zap.NewNop(), store, led, publ), store, led, publ
}

func mustPlace(t *testing.T, eng *Engine, userID string) *domain.Bet {
	t.Helper()
	b, err := eng.PlaceBet(context.Background(), PlaceBetInput{
		UserID:  userID,
		TrendID: "trend-1",
		Side:    "UP",
		Stake:   dec("100"),
		Odds:    dec("2.5"),
	})
	if err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}
	return b
}

func mustTransition(t *testing.T, eng *Engine, betID string, to domain.BetStatus) *domain.Bet {
	t.Helper()
	b, err := eng.UpdateBetStatus(context.Background(), UpdateStatusInput{BetID: betID, NewStatus: to, PerformedBy: "admin-1"})
	if err != nil {
		t.Fatalf("UpdateBetStatus(%s): %v", to, err)
	}
	return b
}

func TestPlaceBet(t *testing.T) {
	eng, store, _, publ := newTestEngine()

	b := mustPlace(t, eng, "user-1")

	if !b.PotentialPayout.Equal(dec("250")) {
		t.Errorf("potential payout = %s, want 250", b.PotentialPayout)
	}
	if b.Status != domain.StatusPending {
		t.Errorf("status = %s, want PENDING", b.Status)
	}

	if n := store.auditCount(b.ID); n != 1 {
		t.Fatalf("audit entries = %d, want 1", n)
	}
	entry := store.audits[0]
	if entry.FromStatus != nil {
		t.Error("creation audit entry must have nil fromStatus")
	}
	if entry.ToStatus != domain.StatusPending || entry.Reason != "Bet created" || entry.PerformedBy != "user-1" {
		t.Errorf("unexpected creation audit entry: %+v", entry)
	}

	if len(publ.placed) != 1 || publ.placed[0].BetID != b.ID {
		t.Errorf("expected one bet_placed event for %s", b.ID)
	}
}

func TestPlaceBetRejectsInvalidInput(t *testing.T) {
	eng, store, _, _ := newTestEngine()

	_, err := eng.PlaceBet(context.Background(), PlaceBetInput{
		UserID: "user-1", TrendID: "trend-1", Side: "UP",
		Stake: dec("-10"), Odds: dec("2"),
	})
	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(store.bets) != 0 || len(store.audits) != 0 {
		t.Error("rejected placement must not touch storage")
	}
}

func TestActivateAddsAuditEntry(t *testing.T) {
	eng, store, _, _ := newTestEngine()
	b := mustPlace(t, eng, "user-1")

	updated := mustTransition(t, eng, b.ID, domain.StatusActive)
	if updated.Status != domain.StatusActive {
		t.Errorf("status = %s, want ACTIVE", updated.Status)
	}
	if updated.ActualPayout.Valid {
		t.Error("actual payout must stay null while ACTIVE")
	}

	if n := store.auditCount(b.ID); n != 2 {
		t.Fatalf("audit entries = %d, want 2", n)
	}
	last := store.audits[len(store.audits)-1]
	if last.FromStatus == nil || *last.FromStatus != domain.StatusPending || last.ToStatus != domain.StatusActive {
		t.Errorf("unexpected audit entry: %+v", last)
	}
}

func TestSettleWonCreditsLedger(t *testing.T) {
	eng, store, led, publ := newTestEngine()
	b := mustPlace(t, eng, "user-1")
	mustTransition(t, eng, b.ID, domain.StatusActive)

	updated := mustTransition(t, eng, b.ID, domain.StatusWon)

	if !updated.ActualPayout.Valid || !updated.ActualPayout.Decimal.Equal(dec("250")) {
		t.Errorf("actual payout = %v, want 250", updated.ActualPayout)
	}
	if updated.SettledAt == nil {
		t.Error("settled_at must be set")
	}
	if updated.SettlementReason != "Bet won" {
		t.Errorf("settlement reason = %q, want default %q", updated.SettlementReason, "Bet won")
	}

	if len(led.credits) != 1 {
		t.Fatalf("ledger credits = %d, want 1", len(led.credits))
	}
	credit := led.credits[0]
	if credit.Type != domain.TxBetWinning || !credit.Amount.Equal(dec("250")) || credit.UserID != "user-1" {
		t.Errorf("unexpected ledger credit: %+v", credit)
	}
	var meta map[string]string
	if err := json.Unmarshal(credit.Metadata, &meta); err != nil {
		t.Fatalf("ledger metadata: %v", err)
	}
	if meta["betId"] != b.ID || meta["side"] != "UP" || meta["stake"] != "100" || meta["odds"] != "2.5" {
		t.Errorf("unexpected ledger metadata: %v", meta)
	}

	if n := store.auditCount(b.ID); n != 3 {
		t.Errorf("audit entries = %d, want 3", n)
	}
	if len(publ.settled) != 1 || publ.settled[0].Status != "WON" {
		t.Error("expected one bet_settled event with status WON")
	}
}

func TestSettleLostNoLedgerCall(t *testing.T) {
	eng, _, led, _ := newTestEngine()
	b := mustPlace(t, eng, "user-1")
	mustTransition(t, eng, b.ID, domain.StatusActive)

	updated := mustTransition(t, eng, b.ID, domain.StatusLost)

	if !updated.ActualPayout.Valid || !updated.ActualPayout.Decimal.IsZero() {
		t.Errorf("actual payout = %v, want 0", updated.ActualPayout)
	}
	if updated.SettlementReason != "Bet lost" {
		t.Errorf("settlement reason = %q, want %q", updated.SettlementReason, "Bet lost")
	}
	if len(led.credits) != 0 {
		t.Error("LOST settlement must not touch the ledger")
	}
}

func TestRejectedTransitionLeavesStateUntouched(t *testing.T) {
	eng, store, _, _ := newTestEngine()
	b := mustPlace(t, eng, "user-1")
	mustTransition(t, eng, b.ID, domain.StatusActive)
	mustTransition(t, eng, b.ID, domain.StatusLost)
	auditsBefore := store.auditCount(b.ID)

	_, err := eng.UpdateBetStatus(context.Background(), UpdateStatusInput{BetID: b.ID, NewStatus: domain.StatusActive})

	var transitionErr *domain.TransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("expected *TransitionError, got %v", err)
	}
	if transitionErr.From != domain.StatusLost || transitionErr.To != domain.StatusActive || transitionErr.BetID != b.ID {
		t.Errorf("unexpected error fields: %+v", transitionErr)
	}

	got, _ := store.GetBet(context.Background(), b.ID)
	if got.Status != domain.StatusLost {
		t.Errorf("status = %s, want LOST unchanged", got.Status)
	}
	if store.auditCount(b.ID) != auditsBefore {
		t.Error("rejected transition must not add audit entries")
	}
}

func TestWonRefundAllowedCancelledWonRejected(t *testing.T) {
	eng, _, _, _ := newTestEngine()

	won := mustPlace(t, eng, "user-1")
	mustTransition(t, eng, won.ID, domain.StatusActive)
	mustTransition(t, eng, won.ID, domain.StatusWon)
	refunded := mustTransition(t, eng, won.ID, domain.StatusRefunded)
	if refunded.Status != domain.StatusRefunded {
		t.Errorf("status = %s, want REFUNDED", refunded.Status)
	}

	cancelled := mustPlace(t, eng, "user-1")
	mustTransition(t, eng, cancelled.ID, domain.StatusCancelled)
	_, err := eng.UpdateBetStatus(context.Background(), UpdateStatusInput{BetID: cancelled.ID, NewStatus: domain.StatusWon})
	var transitionErr *domain.TransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("CANCELLED -> WON must be rejected, got %v", err)
	}
}

func TestNoOpTransitionIsIdempotent(t *testing.T) {
	eng, store, _, publ := newTestEngine()
	b := mustPlace(t, eng, "user-1")
	mustTransition(t, eng, b.ID, domain.StatusActive)
	auditsBefore := store.auditCount(b.ID)
	settledBefore := len(publ.settled)

	for i := 0; i < 3; i++ {
		got, err := eng.UpdateBetStatus(context.Background(), UpdateStatusInput{BetID: b.ID, NewStatus: domain.StatusActive})
		if err != nil {
			t.Fatalf("no-op transition must succeed, got %v", err)
		}
		if got.Status != domain.StatusActive {
			t.Errorf("status = %s, want ACTIVE", got.Status)
		}
	}

	if store.auditCount(b.ID) != auditsBefore {
		t.Error("no-op transitions must not add audit entries")
	}
	if len(publ.settled) != settledBefore {
		t.Error("no-op transitions must not publish events")
	}
}

func TestLedgerFailureRollsBackSettlement(t *testing.T) {
	eng, store, led, publ := newTestEngine()
	b := mustPlace(t, eng, "user-1")
	mustTransition(t, eng, b.ID, domain.StatusActive)
	auditsBefore := store.auditCount(b.ID)

	led.err = errors.New("ledger timeout")
	_, err := eng.UpdateBetStatus(context.Background(), UpdateStatusInput{BetID: b.ID, NewStatus: domain.StatusWon})

	var ledgerErr *domain.LedgerError
	if !errors.As(err, &ledgerErr) {
		t.Fatalf("expected *LedgerError, got %v", err)
	}

	got, _ := store.GetBet(context.Background(), b.ID)
	if got.Status != domain.StatusActive {
		t.Errorf("status = %s, want ACTIVE after rollback", got.Status)
	}
	if got.ActualPayout.Valid {
		t.Error("actual payout must stay null after rollback")
	}
	if got.SettledAt != nil {
		t.Error("settled_at must stay null after rollback")
	}
	if store.auditCount(b.ID) != auditsBefore {
		t.Error("rolled back settlement must not add audit entries")
	}
	if len(publ.settled) != 0 {
		t.Error("rolled back settlement must not publish events")
	}

	// A retentativa da chamada inteira resolve depois que o ledger volta
	led.err = nil
	if _, err := eng.UpdateBetStatus(context.Background(), UpdateStatusInput{BetID: b.ID, NewStatus: domain.StatusWon}); err != nil {
		t.Fatalf("retry after ledger recovery: %v", err)
	}
	if len(led.credits) != 1 {
		t.Errorf("ledger credits = %d, want exactly 1", len(led.credits))
	}
}

func TestUnknownBet(t *testing.T) {
	eng, _, _, _ := newTestEngine()
	_, err := eng.UpdateBetStatus(context.Background(), UpdateStatusInput{BetID: "nope", NewStatus: domain.StatusActive})
	if !errors.Is(err, domain.ErrBetNotFound) {
		t.Fatalf("expected ErrBetNotFound, got %v", err)
	}
}

func TestUnknownTargetStatus(t *testing.T) {
	eng, _, _, _ := newTestEngine()
	b := mustPlace(t, eng, "user-1")
	_, err := eng.UpdateBetStatus(context.Background(), UpdateStatusInput{BetID: b.ID, NewStatus: "SETTLED"})
	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
}

func TestActorDefaultsToSystem(t *testing.T) {
	eng, store, _, _ := newTestEngine()
	b := mustPlace(t, eng, "user-1")

	if _, err := eng.UpdateBetStatus(context.Background(), UpdateStatusInput{BetID: b.ID, NewStatus: domain.StatusActive}); err != nil {
		t.Fatalf("UpdateBetStatus: %v", err)
	}

	last := store.audits[len(store.audits)-1]
	if last.PerformedBy != domain.ActorSystem {
		t.Errorf("performedBy = %q, want %q", last.PerformedBy, domain.ActorSystem)
	}
}

func TestAuditChainIsUnbroken(t *testing.T) {
	eng, _, _, _ := newTestEngine()
	b := mustPlace(t, eng, "user-1")
	mustTransition(t, eng, b.ID, domain.StatusActive)
	mustTransition(t, eng, b.ID, domain.StatusWon)
	mustTransition(t, eng, b.ID, domain.StatusRefunded)

	entries, total, err := eng.GetBetAuditLogs(context.Background(), b.ID, domain.PageRequest{Limit: 50})
	if err != nil {
		t.Fatalf("GetBetAuditLogs: %v", err)
	}
	// 3 transições + criação
	if total != 4 || len(entries) != 4 {
		t.Fatalf("audit entries = %d (total %d), want 4", len(entries), total)
	}

	// Entradas vêm em ordem descendente; encadeia do mais antigo pro mais novo
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.Before(entries[j].CreatedAt) })
	if entries[0].FromStatus != nil {
		t.Error("first entry must be the creation event")
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].FromStatus == nil || *entries[i].FromStatus != entries[i-1].ToStatus {
			t.Errorf("broken audit chain at %d: %+v -> %+v", i, entries[i-1], entries[i])
		}
	}
	final := entries[len(entries)-1]
	if final.ToStatus != domain.StatusRefunded {
		t.Errorf("final status = %s, want REFUNDED", final.ToStatus)
	}
}

func TestGetBetHistoryFiltersAndPaginates(t *testing.T) {
	eng, _, _, _ := newTestEngine()

	var ids []string
	for i := 0; i < 5; i++ {
		b := mustPlace(t, eng, "user-1")
		ids = append(ids, b.ID)
		time.Sleep(time.Millisecond)
	}
	mustPlace(t, eng, "user-2")
	mustTransition(t, eng, ids[0], domain.StatusActive)
	mustTransition(t, eng, ids[0], domain.StatusWon)

	bets, total, err := eng.GetBetHistory(context.Background(), "user-1", domain.BetFilter{Page: domain.PageRequest{Page: 1, Limit: 3}})
	if err != nil {
		t.Fatalf("GetBetHistory: %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(bets) != 3 {
		t.Errorf("page size = %d, want 3", len(bets))
	}
	for i := 1; i < len(bets); i++ {
		if bets[i].CreatedAt.After(bets[i-1].CreatedAt) {
			t.Error("history must be ordered by creation descending")
		}
	}

	won := domain.StatusWon
	bets, total, err = eng.GetBetHistory(context.Background(), "user-1", domain.BetFilter{Status: &won, Page: domain.PageRequest{Page: 1, Limit: 10}})
	if err != nil {
		t.Fatalf("GetBetHistory filtered: %v", err)
	}
	if total != 1 || len(bets) != 1 || bets[0].ID != ids[0] {
		t.Errorf("status filter returned %d bets (total %d)", len(bets), total)
	}

	if _, _, err := eng.GetBetHistory(context.Background(), "", domain.BetFilter{}); err == nil {
		t.Error("empty userId must be rejected")
	}
}
