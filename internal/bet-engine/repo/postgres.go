package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/trendpulse/trend-bet-platform/internal/bet-engine/domain"
	"github.com/trendpulse/trend-bet-platform/internal/bet-engine/engine"
)

// Postgres implementa o contrato de persistência do engine em banco Postgres.
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório de apostas
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

var _ engine.Store = (*Postgres)(nil)

const betColumns = `id, user_id, trend_id, side, stake, odds, potential_payout,
	actual_payout, status, settlement_reason, metadata, created_at, updated_at, settled_at`

// CreateBet insere a aposta e a entrada de auditoria de criação na mesma
// transação: ou as duas linhas existem, ou nenhuma.
func (p *Postgres) CreateBet(ctx context.Context, b *domain.Bet, entry *domain.BetAuditLog) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO bets (id, user_id, trend_id, side, stake, odds, potential_payout, status, metadata, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		b.ID, b.UserID, b.TrendID, b.Side, b.Stake, b.Odds, b.PotentialPayout,
		string(b.Status), nullBytes(b.Metadata), b.CreatedAt, b.UpdatedAt,
	); err != nil {
		return err
	}

	if err = insertAuditLog(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit()
}

// Transact abre a transação, entrega o escopo para fn e commita no sucesso.
// Qualquer erro de fn reverte tudo.
func (p *Postgres) Transact(ctx context.Context, fn func(tx engine.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err = fn(&Tx{tx: tx}); err != nil {
		return err
	}

	return tx.Commit()
}

// GetBet retorna o snapshot atual de uma aposta (leitura sem lock).
func (p *Postgres) GetBet(ctx context.Context, betID string) (*domain.Bet, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+betColumns+` FROM bets WHERE id=$1`, betID)
	return scanBet(row)
}

// ListBetsByUser retorna as apostas do usuário ordenadas por criação
// descendente, com total para paginação. Filtros opcionais de status e
// intervalo de datas.
func (p *Postgres) ListBetsByUser(ctx context.Context, userID string, f domain.BetFilter) ([]domain.Bet, int64, error) {
	where := `WHERE user_id=$1`
	args := []any{userID}

	if f.Status != nil {
		args = append(args, string(*f.Status))
		where += fmt.Sprintf(` AND status=$%d`, len(args))
	}
	if f.From != nil {
		args = append(args, *f.From)
		where += fmt.Sprintf(` AND created_at >= $%d`, len(args))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where += fmt.Sprintf(` AND created_at <= $%d`, len(args))
	}

	var total int64
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bets `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Page.Limit, f.Page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM bets %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		betColumns, where, len(args)-1, len(args))

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var bets []domain.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, 0, err
		}
		bets = append(bets, *b)
	}
	return bets, total, rows.Err()
}

// ListAuditLogs retorna as entradas de auditoria de uma aposta ordenadas por
// timestamp descendente, com total.
func (p *Postgres) ListAuditLogs(ctx context.Context, betID string, page domain.PageRequest) ([]domain.BetAuditLog, int64, error) {
	var total int64
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bet_audit_logs WHERE bet_id=$1`, betID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT id, bet_id, from_status, to_status, reason, performed_by, metadata, created_at
		FROM bet_audit_logs WHERE bet_id=$1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		betID, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []domain.BetAuditLog
	for rows.Next() {
		var (
			e    domain.BetAuditLog
			from sql.NullString
			meta []byte
		)
		if err := rows.Scan(&e.ID, &e.BetID, &from, &e.ToStatus, &e.Reason, &e.PerformedBy, &meta, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		if from.Valid {
			s := domain.BetStatus(from.String)
			e.FromStatus = &s
		}
		e.Metadata = meta
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

// ListOpenBetsByTrend retorna as apostas PENDING/ACTIVE de um trend, na ordem
// de criação. Usado pelo settlement-worker para liquidar um trend resolvido.
func (p *Postgres) ListOpenBetsByTrend(ctx context.Context, trendID string) ([]domain.Bet, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+betColumns+` FROM bets
		WHERE trend_id=$1 AND status IN ('PENDING','ACTIVE')
		ORDER BY created_at`, trendID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bets []domain.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		bets = append(bets, *b)
	}
	return bets, rows.Err()
}

// Tx é o escopo transacional entregue ao engine durante uma transição.
type Tx struct{ tx *sql.Tx }

var _ engine.Tx = (*Tx)(nil)

// SQLTx expõe a transação para colaboradores que precisam escrever no mesmo
// escopo (ledger).
func (t *Tx) SQLTx() *sql.Tx { return t.tx }

// GetBetForUpdate lê a aposta com lock pessimista de linha: transições
// concorrentes sobre o mesmo betId serializam aqui.
func (t *Tx) GetBetForUpdate(ctx context.Context, betID string) (*domain.Bet, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+betColumns+` FROM bets WHERE id=$1 FOR UPDATE`, betID)
	return scanBet(row)
}

// UpdateBet persiste os campos mutáveis da aposta.
func (t *Tx) UpdateBet(ctx context.Context, b *domain.Bet) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE bets SET status=$1, actual_payout=$2, settlement_reason=$3, settled_at=$4, updated_at=$5
		WHERE id=$6`,
		string(b.Status), b.ActualPayout, nullString(b.SettlementReason), nullTime(b.SettledAt), b.UpdatedAt, b.ID,
	)
	return err
}

// AppendAuditLog insere a entrada de auditoria da transição.
func (t *Tx) AppendAuditLog(ctx context.Context, entry *domain.BetAuditLog) error {
	return insertAuditLog(ctx, t.tx, entry)
}

func insertAuditLog(ctx context.Context, tx *sql.Tx, entry *domain.BetAuditLog) error {
	var from sql.NullString
	if entry.FromStatus != nil {
		from = sql.NullString{String: string(*entry.FromStatus), Valid: true}
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO bet_audit_logs (id, bet_id, from_status, to_status, reason, performed_by, metadata, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		entry.ID, entry.BetID, from, string(entry.ToStatus), entry.Reason, entry.PerformedBy,
		nullBytes(entry.Metadata), entry.CreatedAt,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBet(row rowScanner) (*domain.Bet, error) {
	var (
		b         domain.Bet
		reason    sql.NullString
		meta      []byte
		settledAt sql.NullTime
	)
	err := row.Scan(&b.ID, &b.UserID, &b.TrendID, &b.Side, &b.Stake, &b.Odds, &b.PotentialPayout,
		&b.ActualPayout, &b.Status, &reason, &meta, &b.CreatedAt, &b.UpdatedAt, &settledAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrBetNotFound
	}
	if err != nil {
		return nil, err
	}
	b.SettlementReason = reason.String
	b.Metadata = meta
	if settledAt.Valid {
		ts := settledAt.Time
		b.SettledAt = &ts
	}
	return &b, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
