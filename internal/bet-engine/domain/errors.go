package domain

import (
	"errors"
	"fmt"
)

// ErrBetNotFound indica que o betId referenciado não existe.
var ErrBetNotFound = errors.New("bet not found")

// ValidationError indica entrada malformada; o chamador deve corrigir, nunca repetir.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TransitionError indica uma transição de status fora da tabela permitida.
// Carrega o par from/to e o betId para diagnóstico do chamador.
type TransitionError struct {
	BetID string
	From  BetStatus
	To    BetStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s --> %s (bet %s)", e.From, e.To, e.BetID)
}

// LedgerError indica falha na chamada ao ledger durante a liquidação.
// A transação inteira é revertida; seguro repetir a operação completa.
type LedgerError struct {
	BetID string
	Err   error
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("ledger credit failed for bet %s: %v", e.BetID, e.Err)
}

func (e *LedgerError) Unwrap() error { return e.Err }

// PersistenceError indica que a transação de storage não pôde ser commitada
// (lock timeout, conflito de serialização). Transiente; seguro repetir.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
