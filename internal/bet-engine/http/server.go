package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/trendpulse/trend-bet-platform/internal/bet-engine/domain"
	"github.com/trendpulse/trend-bet-platform/internal/bet-engine/dto"
	"github.com/trendpulse/trend-bet-platform/internal/bet-engine/engine"
	"github.com/trendpulse/trend-bet-platform/internal/bet-engine/odds"
)

type Server struct {
	log  *zap.Logger
	eng  *engine.Engine
	odds *odds.Validator // opcional; nil desliga a checagem de odds
}

func NewServer(log *zap.Logger, eng *engine.Engine, v *odds.Validator) *Server {
	return &Server{log: log, eng: eng, odds: v}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/bets", s.placeBet)           // POST
	mux.HandleFunc("/bets/history", s.getHistory) // GET ?userId=...
	mux.HandleFunc("/bets/", s.betSubroutes)      // GET /bets/{id}, POST /bets/{id}/status, GET /bets/{id}/audit
	return mux
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	// Valida a odd cotada contra o cache de odds correntes; cache ausente
	// ou sem a chave não bloqueia a aposta.
	if s.odds != nil {
		if cur, err := s.odds.CurrentOdds(r.Context(), req.TrendID, req.Side); err == nil && cur != "" {
			if curDec, perr := decimal.NewFromString(cur); perr == nil && !curDec.Equal(req.Odds) {
				writeJSONStatus(w, http.StatusConflict, dto.ErrorResponse{Error: "odds changed; current=" + cur})
				return
			}
		}
	}

	b, err := s.eng.PlaceBet(r.Context(), engine.PlaceBetInput{
		UserID:   req.UserID,
		TrendID:  req.TrendID,
		Side:     req.Side,
		Stake:    req.Stake,
		Odds:     req.Odds,
		Metadata: req.Metadata,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, dto.FromBet(b))
}

// betSubroutes despacha /bets/{id}, /bets/{id}/status e /bets/{id}/audit.
func (s *Server) betSubroutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/bets/")
	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]
	if id == "" {
		http.Error(w, "betId required", http.StatusBadRequest)
		return
	}

	switch {
	case len(parts) == 1:
		s.getBet(w, r, id)
	case parts[1] == "status":
		s.updateStatus(w, r, id)
	case parts[1] == "audit":
		s.getAuditLogs(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) getBet(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	b, err := s.eng.GetBet(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, dto.FromBet(b))
}

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.UpdateBetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	b, err := s.eng.UpdateBetStatus(r.Context(), engine.UpdateStatusInput{
		BetID:       id,
		NewStatus:   domain.BetStatus(strings.ToUpper(req.Status)),
		Reason:      req.Reason,
		Metadata:    req.Metadata,
		PerformedBy: req.PerformedBy,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, dto.FromBet(b))
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	userID := q.Get("userId")

	f := domain.BetFilter{Page: pageFromQuery(q.Get("page"), q.Get("limit"))}
	if v := q.Get("status"); v != "" {
		st := domain.BetStatus(strings.ToUpper(v))
		if !st.Valid() {
			http.Error(w, "invalid status filter", http.StatusBadRequest)
			return
		}
		f.Status = &st
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "invalid from date", http.StatusBadRequest)
			return
		}
		f.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "invalid to date", http.StatusBadRequest)
			return
		}
		f.To = &t
	}

	bets, total, err := s.eng.GetBetHistory(r.Context(), userID, f)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := dto.BetHistoryResponse{
		Bets:  make([]dto.BetResponse, 0, len(bets)),
		Total: total,
		Page:  f.Page.Page,
		Limit: f.Page.Limit,
	}
	for i := range bets {
		resp.Bets = append(resp.Bets, dto.FromBet(&bets[i]))
	}
	writeJSON(w, resp)
}

func (s *Server) getAuditLogs(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	page := pageFromQuery(q.Get("page"), q.Get("limit"))

	entries, total, err := s.eng.GetBetAuditLogs(r.Context(), id, page)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := dto.AuditLogsResponse{
		Entries: make([]dto.AuditLogResponse, 0, len(entries)),
		Total:   total,
		Page:    page.Page,
		Limit:   page.Limit,
	}
	for i := range entries {
		resp.Entries = append(resp.Entries, dto.FromAuditLog(&entries[i]))
	}
	writeJSON(w, resp)
}

// writeError mapeia a taxonomia de erros do engine para status HTTP.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		validationErr  *domain.ValidationError
		transitionErr  *domain.TransitionError
		ledgerErr      *domain.LedgerError
		persistenceErr *domain.PersistenceError
	)
	switch {
	case errors.As(err, &validationErr):
		writeJSONStatus(w, http.StatusBadRequest, dto.ErrorResponse{Error: validationErr.Error()})
	case errors.Is(err, domain.ErrBetNotFound):
		writeJSONStatus(w, http.StatusNotFound, dto.ErrorResponse{Error: "bet not found"})
	case errors.As(err, &transitionErr):
		writeJSONStatus(w, http.StatusConflict, dto.ErrorResponse{
			Error:      transitionErr.Error(),
			BetID:      transitionErr.BetID,
			FromStatus: string(transitionErr.From),
			ToStatus:   string(transitionErr.To),
		})
	case errors.As(err, &ledgerErr):
		writeJSONStatus(w, http.StatusBadGateway, dto.ErrorResponse{Error: "ledger unavailable; retry", BetID: ledgerErr.BetID})
	case errors.As(err, &persistenceErr):
		writeJSONStatus(w, http.StatusServiceUnavailable, dto.ErrorResponse{Error: "storage unavailable; retry"})
	default:
		s.log.Error("unhandled error", zap.Error(err))
		writeJSONStatus(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
	}
}

func pageFromQuery(page, limit string) domain.PageRequest {
	p := domain.PageRequest{}
	if v, err := strconv.Atoi(page); err == nil {
		p.Page = v
	}
	if v, err := strconv.Atoi(limit); err == nil {
		p.Limit = v
	}
	return p.Normalize()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
