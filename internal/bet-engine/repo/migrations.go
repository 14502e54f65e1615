package repo

import "context"

// EnsureSchema cria as tabelas do subsistema de apostas se não existirem.
// bets é mutável apenas pelo engine; bet_audit_logs é append-only.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bets (
			id                UUID PRIMARY KEY,
			user_id           TEXT NOT NULL,
			trend_id          TEXT NOT NULL,
			side              TEXT NOT NULL,
			stake             NUMERIC(18,2) NOT NULL CHECK (stake > 0),
			odds              NUMERIC(10,2) NOT NULL CHECK (odds > 0),
			potential_payout  NUMERIC(18,2) NOT NULL,
			actual_payout     NUMERIC(18,2),
			status            TEXT NOT NULL,
			settlement_reason TEXT,
			metadata          JSONB,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			settled_at        TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bets_user_created ON bets (user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_bets_trend_status ON bets (trend_id, status)`,
		`CREATE TABLE IF NOT EXISTS bet_audit_logs (
			id           UUID PRIMARY KEY,
			bet_id       UUID NOT NULL REFERENCES bets(id),
			from_status  TEXT,
			to_status    TEXT NOT NULL,
			reason       TEXT NOT NULL DEFAULT '',
			performed_by TEXT NOT NULL,
			metadata     JSONB,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bet_audit_logs_bet_created ON bet_audit_logs (bet_id, created_at DESC)`,
	}

	for _, s := range stmts {
		if _, err := p.db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}
