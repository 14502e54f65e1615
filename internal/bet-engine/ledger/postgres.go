package ledger

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/trendpulse/trend-bet-platform/internal/bet-engine/domain"
	"github.com/trendpulse/trend-bet-platform/internal/bet-engine/engine"
)

// Postgres registra movimentos de saldo nas tabelas de carteira, dentro do
// escopo transacional do chamador: se a transição da aposta reverter, o
// crédito reverte junto.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

var _ engine.Ledger = (*Postgres)(nil)

var errScopeNotPostgres = errors.New("ledger: transaction scope is not a postgres tx")

// sqlScope é o que o ledger precisa do escopo: acesso à transação aberta.
type sqlScope interface {
	SQLTx() *sql.Tx
}

// RecordTransaction credita o valor na carteira do usuário e registra a
// operação no ledger. Cria a carteira na primeira movimentação. Retorna o id
// da entrada de ledger como recibo.
func (p *Postgres) RecordTransaction(ctx context.Context, scope engine.Tx, t domain.LedgerTransaction) (string, error) {
	s, ok := scope.(sqlScope)
	if !ok {
		return "", errScopeNotPostgres
	}
	tx := s.SQLTx()

	var walletID string
	err := tx.QueryRowContext(ctx, `SELECT id FROM wallets WHERE user_id=$1 FOR UPDATE`, t.UserID).Scan(&walletID)
	if err == sql.ErrNoRows {
		walletID = uuid.NewString()
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO wallets(id, user_id, balance, version) VALUES($1,$2,0,1)`,
			walletID, t.UserID); err != nil {
			return "", err
		}
	} else if err != nil {
		return "", err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE wallets SET balance = balance + $1, version = version + 1 WHERE id=$2`,
		t.Amount, walletID); err != nil {
		return "", err
	}

	entryID := uuid.NewString()
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO wallet_ledger(id, wallet_id, operation_type, transaction_type, amount, description, metadata)
		VALUES($1,$2,'CREDIT',$3,$4,$5,$6)`,
		entryID, walletID, t.Type, t.Amount, t.Description, metadataOrNil(t.Metadata),
	); err != nil {
		return "", err
	}

	return entryID, nil
}

// EnsureSchema cria as tabelas de carteira se não existirem.
// wallet_ledger é append-only.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS wallets (
			id      UUID PRIMARY KEY,
			user_id TEXT NOT NULL UNIQUE,
			balance NUMERIC(18,2) NOT NULL DEFAULT 0,
			version BIGINT NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS wallet_ledger (
			id               UUID PRIMARY KEY,
			wallet_id        UUID NOT NULL REFERENCES wallets(id),
			operation_type   TEXT NOT NULL,
			transaction_type TEXT NOT NULL,
			amount           NUMERIC(18,2) NOT NULL,
			description      TEXT NOT NULL DEFAULT '',
			metadata         JSONB,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_wallet_ledger_wallet ON wallet_ledger (wallet_id, created_at DESC)`,
	}

	for _, s := range stmts {
		if _, err := p.db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func metadataOrNil(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
