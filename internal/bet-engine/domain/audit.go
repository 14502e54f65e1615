package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// BetAuditLog é o registro append-only de uma transição de status aplicada.
// FromStatus é nil apenas no evento de criação da aposta.
// Entradas nunca são atualizadas ou removidas.
type BetAuditLog struct {
	ID          string
	BetID       string
	FromStatus  *BetStatus
	ToStatus    BetStatus
	Reason      string
	PerformedBy string
	Metadata    json.RawMessage
	CreatedAt   time.Time
}

// NewAuditLog monta a entrada de auditoria de uma transição.
func NewAuditLog(betID string, from *BetStatus, to BetStatus, reason, performedBy string, metadata json.RawMessage) *BetAuditLog {
	return &BetAuditLog{
		ID:          uuid.NewString(),
		BetID:       betID,
		FromStatus:  from,
		ToStatus:    to,
		Reason:      reason,
		PerformedBy: performedBy,
		Metadata:    metadata,
		CreatedAt:   time.Now().UTC(),
	}
}
