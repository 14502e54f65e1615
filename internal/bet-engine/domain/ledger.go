package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Tipos de transação registrados no ledger da carteira.
const (
	TxBetWinning = "BET_WINNING"
)

// LedgerTransaction descreve um movimento de saldo a registrar no ledger.
type LedgerTransaction struct {
	UserID      string
	Type        string
	Amount      decimal.Decimal
	Description string
	Metadata    json.RawMessage
}
