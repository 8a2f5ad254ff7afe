package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/matchpool/matchpool/internal/betting"
	"github.com/matchpool/matchpool/internal/table-service/cache"
	"github.com/matchpool/matchpool/internal/table-service/dto"
)

// Publisher recebe os eventos emitidos pelas mutações do núcleo
type Publisher interface {
	Publish(ctx context.Context, evs []betting.Event)
}

// Server é a borda HTTP fina sobre o engine: valida o payload, chama a
// operação e traduz o erro tipado em status code. Regra de negócio nenhuma.
type Server struct {
	log    *zap.Logger
	engine *betting.Engine
	pots   *cache.PotCache
	publ   Publisher
}

func NewServer(log *zap.Logger, engine *betting.Engine, pots *cache.PotCache, publ Publisher) *Server {
	return &Server{log: log, engine: engine, pots: pots, publ: publ}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/tables", s.tables)    // POST
	mux.HandleFunc("/tables/", s.tableSub) // subrotas por id
	mux.HandleFunc("/matches/", s.matchSub)
	return mux
}

// userID vem do cabeçalho; autenticação de verdade fica no gateway
func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-ID"))
}

func (s *Server) tables(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	uid := userID(r)
	if uid == "" {
		http.Error(w, "X-User-ID required", http.StatusUnauthorized)
		return
	}
	var req dto.CreateTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	t, evs, err := s.engine.CreateTable(r.Context(), uid, req.Name, req.Password, req.MaxPlayers, req.Stake, req.Private)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.publ.Publish(r.Context(), evs)
	writeJSON(w, http.StatusCreated, dto.NewTableResponse(t))
}

// tableSub resolve /tables/{id}[/join|/leave|/admins/...|/matches|/pot]
func (s *Server) tableSub(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/tables/"), "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "table id required", http.StatusBadRequest)
		return
	}
	tableID := parts[0]
	rest := parts[1:]

	uid := userID(r)
	if uid == "" {
		http.Error(w, "X-User-ID required", http.StatusUnauthorized)
		return
	}

	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		s.getTable(w, r, tableID)
	case len(rest) == 0 && r.Method == http.MethodDelete:
		s.deleteTable(w, r, uid, tableID)
	case len(rest) == 1 && rest[0] == "join" && r.Method == http.MethodPost:
		s.joinTable(w, r, uid, tableID)
	case len(rest) == 1 && rest[0] == "leave" && r.Method == http.MethodPost:
		s.leaveTable(w, r, uid, tableID)
	case len(rest) == 2 && rest[0] == "admins" && rest[1] == "grant" && r.Method == http.MethodPost:
		s.adminChange(w, r, uid, tableID, true)
	case len(rest) == 2 && rest[0] == "admins" && rest[1] == "revoke" && r.Method == http.MethodPost:
		s.adminChange(w, r, uid, tableID, false)
	case len(rest) == 1 && rest[0] == "matches" && r.Method == http.MethodPost:
		s.createMatch(w, r, uid, tableID)
	case len(rest) == 1 && rest[0] == "matches" && r.Method == http.MethodGet:
		s.listMatches(w, r, tableID)
	case len(rest) == 1 && rest[0] == "pot" && r.Method == http.MethodGet:
		s.getPot(w, r, tableID)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (s *Server) getTable(w http.ResponseWriter, r *http.Request, tableID string) {
	t, err := s.engine.Table(r.Context(), tableID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewTableResponse(t))
}

func (s *Server) deleteTable(w http.ResponseWriter, r *http.Request, uid, tableID string) {
	evs, err := s.engine.DeleteTable(r.Context(), uid, tableID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.publ.Publish(r.Context(), evs)
	s.invalidatePot(r.Context(), tableID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) joinTable(w http.ResponseWriter, r *http.Request, uid, tableID string) {
	var req dto.JoinTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	t, evs, err := s.engine.JoinTable(r.Context(), uid, tableID, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.publ.Publish(r.Context(), evs)
	s.invalidatePot(r.Context(), tableID)
	writeJSON(w, http.StatusOK, dto.NewTableResponse(t))
}

func (s *Server) leaveTable(w http.ResponseWriter, r *http.Request, uid, tableID string) {
	t, evs, err := s.engine.LeaveTable(r.Context(), uid, tableID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.publ.Publish(r.Context(), evs)
	s.invalidatePot(r.Context(), tableID)
	writeJSON(w, http.StatusOK, dto.NewTableResponse(t))
}

func (s *Server) adminChange(w http.ResponseWriter, r *http.Request, uid, tableID string, grant bool) {
	var req dto.AdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var (
		t   *betting.Table
		evs []betting.Event
		err error
	)
	if grant {
		t, evs, err = s.engine.GrantAdmin(r.Context(), uid, tableID, req.UserID)
	} else {
		t, evs, err = s.engine.RevokeAdmin(r.Context(), uid, tableID, req.UserID)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.publ.Publish(r.Context(), evs)
	writeJSON(w, http.StatusOK, dto.NewTableResponse(t))
}

func (s *Server) createMatch(w http.ResponseWriter, r *http.Request, uid, tableID string) {
	var req dto.CreateMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	m, evs, err := s.engine.CreateMatch(r.Context(), uid, tableID, req.HomeTeam, req.AwayTeam, req.KickoffAt)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.publ.Publish(r.Context(), evs)
	writeJSON(w, http.StatusCreated, dto.NewMatchResponse(m))
}

func (s *Server) listMatches(w http.ResponseWriter, r *http.Request, tableID string) {
	matches, err := s.engine.TableMatches(r.Context(), tableID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]dto.MatchResponse, 0, len(matches))
	for _, m := range matches {
		out = append(out, dto.NewMatchResponse(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getPot(w http.ResponseWriter, r *http.Request, tableID string) {
	if s.pots != nil {
		if amount, ok, err := s.pots.Get(r.Context(), tableID); err == nil && ok {
			writeJSON(w, http.StatusOK, dto.PotResponse{TableID: tableID, Amount: amount})
			return
		}
	}
	pot, err := s.engine.CurrentPot(r.Context(), tableID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	amount := pot.StringFixed(2)
	if s.pots != nil {
		if err := s.pots.Set(r.Context(), tableID, amount); err != nil {
			s.log.Warn("pot cache set failed", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, dto.PotResponse{TableID: tableID, Amount: amount})
}

// matchSub resolve /matches/{id}[/bets|/start|/finish|/result]
func (s *Server) matchSub(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/matches/"), "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "match id required", http.StatusBadRequest)
		return
	}
	matchID := parts[0]
	rest := parts[1:]

	uid := userID(r)
	if uid == "" {
		http.Error(w, "X-User-ID required", http.StatusUnauthorized)
		return
	}

	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		s.getMatch(w, r, matchID)
	case len(rest) == 0 && r.Method == http.MethodPut:
		s.updateMatch(w, r, uid, matchID)
	case len(rest) == 0 && r.Method == http.MethodDelete:
		s.deleteMatch(w, r, uid, matchID)
	case len(rest) == 1 && rest[0] == "bets" && r.Method == http.MethodPost:
		s.placeBet(w, r, uid, matchID)
	case len(rest) == 1 && rest[0] == "bets" && r.Method == http.MethodPut:
		s.updateBet(w, r, uid, matchID)
	case len(rest) == 1 && rest[0] == "bets" && r.Method == http.MethodDelete:
		s.deleteBet(w, r, uid, matchID)
	case len(rest) == 1 && rest[0] == "start" && r.Method == http.MethodPost:
		s.startMatch(w, r, uid, matchID)
	case len(rest) == 1 && rest[0] == "finish" && r.Method == http.MethodPost:
		s.finishMatch(w, r, uid, matchID)
	case len(rest) == 1 && rest[0] == "result" && r.Method == http.MethodPut:
		s.setResult(w, r, uid, matchID)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (s *Server) getMatch(w http.ResponseWriter, r *http.Request, matchID string) {
	m, err := s.engine.Match(r.Context(), matchID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewMatchResponse(m))
}

func (s *Server) updateMatch(w http.ResponseWriter, r *http.Request, uid, matchID string) {
	var req dto.CreateMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	m, evs, err := s.engine.UpdateMatch(r.Context(), uid, matchID, req.HomeTeam, req.AwayTeam, req.KickoffAt)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.publ.Publish(r.Context(), evs)
	writeJSON(w, http.StatusOK, dto.NewMatchResponse(m))
}

func (s *Server) deleteMatch(w http.ResponseWriter, r *http.Request, uid, matchID string) {
	evs, err := s.engine.DeleteMatch(r.Context(), uid, matchID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.publ.Publish(r.Context(), evs)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request, uid, matchID string) {
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	b, evs, err := s.engine.PlaceBet(r.Context(), uid, matchID, req.Prediction)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.publ.Publish(r.Context(), evs)
	writeJSON(w, http.StatusOK, dto.BetResponse{
		ID: b.ID, UserID: b.UserID, Prediction: b.Prediction.String(), Winner: b.Winner, EditedAt: b.EditedAt,
	})
}

func (s *Server) updateBet(w http.ResponseWriter, r *http.Request, uid, matchID string) {
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	b, evs, err := s.engine.UpdateBet(r.Context(), uid, matchID, req.Prediction)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.publ.Publish(r.Context(), evs)
	writeJSON(w, http.StatusOK, dto.BetResponse{
		ID: b.ID, UserID: b.UserID, Prediction: b.Prediction.String(), Winner: b.Winner, EditedAt: b.EditedAt,
	})
}

func (s *Server) deleteBet(w http.ResponseWriter, r *http.Request, uid, matchID string) {
	evs, err := s.engine.DeleteBet(r.Context(), uid, matchID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.publ.Publish(r.Context(), evs)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) startMatch(w http.ResponseWriter, r *http.Request, uid, matchID string) {
	m, evs, err := s.engine.StartMatch(r.Context(), uid, matchID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.publ.Publish(r.Context(), evs)
	writeJSON(w, http.StatusOK, dto.NewMatchResponse(m))
}

func (s *Server) finishMatch(w http.ResponseWriter, r *http.Request, uid, matchID string) {
	var req dto.ResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	m, evs, err := s.engine.FinishMatch(r.Context(), uid, matchID, req.Result)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.publ.Publish(r.Context(), evs)
	s.invalidatePot(r.Context(), m.TableID)
	writeJSON(w, http.StatusOK, dto.NewMatchResponse(m))
}

func (s *Server) setResult(w http.ResponseWriter, r *http.Request, uid, matchID string) {
	var req dto.ResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	m, evs, err := s.engine.SetMatchResult(r.Context(), uid, matchID, req.Result)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.publ.Publish(r.Context(), evs)
	s.invalidatePot(r.Context(), m.TableID)
	writeJSON(w, http.StatusOK, dto.NewMatchResponse(m))
}

func (s *Server) invalidatePot(ctx context.Context, tableID string) {
	if s.pots == nil {
		return
	}
	if err := s.pots.Invalidate(ctx, tableID); err != nil {
		s.log.Warn("pot cache invalidate failed", zap.String("table_id", tableID), zap.Error(err))
	}
}

// writeError traduz o Kind do erro de domínio em status HTTP
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch betting.KindOf(err) {
	case betting.KindValidation:
		status = http.StatusBadRequest
	case betting.KindForbidden:
		status = http.StatusForbidden
	case betting.KindNotFound:
		status = http.StatusNotFound
	case betting.KindConflict:
		status = http.StatusConflict
	case betting.KindInvalidState:
		status = http.StatusUnprocessableEntity
	case betting.KindStorage:
		s.log.Error("storage failure", zap.Error(err))
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
