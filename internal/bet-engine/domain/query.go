package domain

import "time"

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// PageRequest é a paginação das consultas de histórico e auditoria.
type PageRequest struct {
	Page  int
	Limit int
}

// Normalize aplica defaults e limita o tamanho da página.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	return p
}

// Offset retorna o deslocamento da página normalizada.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// BetFilter filtra o histórico de apostas de um usuário.
type BetFilter struct {
	Status *BetStatus
	From   *time.Time
	To     *time.Time
	Page   PageRequest
}
