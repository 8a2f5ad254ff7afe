package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/matchpool/matchpool/internal/betting"
	"github.com/matchpool/matchpool/internal/betting/bettingtest"
	"github.com/matchpool/matchpool/internal/table-service/dto"
)

var base = time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)

type nopPublisher struct {
	events []betting.Event
}

func (p *nopPublisher) Publish(ctx context.Context, evs []betting.Event) {
	p.events = append(p.events, evs...)
}

type webFixture struct {
	store  *bettingtest.Store
	clock  *bettingtest.Clock
	engine *betting.Engine
	publ   *nopPublisher
	router http.Handler
}

func newWebFixture(t *testing.T) *webFixture {
	t.Helper()
	store := bettingtest.NewStore()
	clk := &bettingtest.Clock{T: base}
	eng := betting.NewEngine(store, store, store, clk, bettingtest.PlainHasher{}, zap.NewNop())
	publ := &nopPublisher{}
	srv := NewServer(zap.NewNop(), eng, nil, publ)
	return &webFixture{store: store, clock: clk, engine: eng, publ: publ, router: srv.Router()}
}

func (f *webFixture) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *webFixture) createTable(t *testing.T) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/tables", "alice", dto.CreateTableRequest{
		Name: "Liga dos Amigos", Password: "segredo", MaxPlayers: 5, Stake: "50",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create table: %d %s", rec.Code, rec.Body)
	}
	var resp dto.TableResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.ID
}

func TestCreateTableRequiresUserHeader(t *testing.T) {
	f := newWebFixture(t)
	rec := f.do(t, http.MethodPost, "/tables", "", dto.CreateTableRequest{
		Name: "Liga", Password: "x", MaxPlayers: 5, Stake: "10",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestCreateTableRejectsInvalidPayload(t *testing.T) {
	f := newWebFixture(t)
	rec := f.do(t, http.MethodPost, "/tables", "alice", dto.CreateTableRequest{
		Name: "ab", Password: "x", MaxPlayers: 5, Stake: "10",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
}

func TestErrorKindStatusMapping(t *testing.T) {
	f := newWebFixture(t)
	tableID := f.createTable(t)

	cases := []struct {
		name string
		run  func() *httptest.ResponseRecorder
		want int
	}{
		{
			name: "join wrong password is forbidden",
			run: func() *httptest.ResponseRecorder {
				return f.do(t, http.MethodPost, "/tables/"+tableID+"/join", "bob", dto.JoinTableRequest{Password: "errada"})
			},
			want: http.StatusForbidden,
		},
		{
			name: "unknown table is not found",
			run: func() *httptest.ResponseRecorder {
				return f.do(t, http.MethodGet, "/tables/nope", "alice", nil)
			},
			want: http.StatusNotFound,
		},
		{
			name: "duplicate name is conflict",
			run: func() *httptest.ResponseRecorder {
				return f.do(t, http.MethodPost, "/tables", "carol", dto.CreateTableRequest{
					Name: "Liga dos Amigos", Password: "x", MaxPlayers: 3, Stake: "10",
				})
			},
			want: http.StatusConflict,
		},
		{
			name: "kickoff in the past is validation error",
			run: func() *httptest.ResponseRecorder {
				return f.do(t, http.MethodPost, "/tables/"+tableID+"/matches", "alice", dto.CreateMatchRequest{
					HomeTeam: "Italy", AwayTeam: "France", KickoffAt: base.Add(-time.Hour),
				})
			},
			want: http.StatusBadRequest,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if rec := tc.run(); rec.Code != tc.want {
				t.Fatalf("status %d, want %d: %s", rec.Code, tc.want, rec.Body)
			}
		})
	}
}

func TestMatchLifecycleOverHTTP(t *testing.T) {
	f := newWebFixture(t)
	tableID := f.createTable(t)
	if rec := f.do(t, http.MethodPost, "/tables/"+tableID+"/join", "bob", dto.JoinTableRequest{Password: "segredo"}); rec.Code != http.StatusOK {
		t.Fatalf("join: %d %s", rec.Code, rec.Body)
	}

	rec := f.do(t, http.MethodPost, "/tables/"+tableID+"/matches", "alice", dto.CreateMatchRequest{
		HomeTeam: "Italy", AwayTeam: "France", KickoffAt: base.Add(time.Hour),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create match: %d %s", rec.Code, rec.Body)
	}
	var match dto.MatchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &match); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if rec := f.do(t, http.MethodPost, "/matches/"+match.ID+"/bets", "bob", dto.PlaceBetRequest{Prediction: "2:1"}); rec.Code != http.StatusOK {
		t.Fatalf("place bet: %d %s", rec.Code, rec.Body)
	}

	// início antes do kickoff é barrado como estado inválido
	if rec := f.do(t, http.MethodPost, "/matches/"+match.ID+"/start", "alice", nil); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("early start: %d %s", rec.Code, rec.Body)
	}

	f.clock.Advance(time.Hour)
	if rec := f.do(t, http.MethodPost, "/matches/"+match.ID+"/start", "alice", nil); rec.Code != http.StatusOK {
		t.Fatalf("start: %d %s", rec.Code, rec.Body)
	}
	if rec := f.do(t, http.MethodPost, "/matches/"+match.ID+"/bets", "bob", dto.PlaceBetRequest{Prediction: "1:1"}); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("locked bet: %d %s", rec.Code, rec.Body)
	}

	rec = f.do(t, http.MethodPost, "/matches/"+match.ID+"/finish", "alice", dto.ResultRequest{Result: "3:1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("finish: %d %s", rec.Code, rec.Body)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &match); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if match.Status != string(betting.MatchFinished) || match.Pool.Status != string(betting.PoolWon) {
		t.Fatalf("after finish: status=%s pool=%s", match.Status, match.Pool.Status)
	}
	if len(match.Pool.Payouts) != 1 || match.Pool.Payouts[0].UserID != "bob" || match.Pool.Payouts[0].Amount != "100.00" {
		t.Fatalf("payouts: %+v", match.Pool.Payouts)
	}

	var settled bool
	for _, ev := range f.publ.events {
		if _, ok := ev.(betting.MatchSettled); ok {
			settled = true
		}
	}
	if !settled {
		t.Fatal("settlement event not forwarded to publisher")
	}

	// mesa liquidada pode ser removida pelo admin
	if rec := f.do(t, http.MethodDelete, "/tables/"+tableID, "bob", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("delete by non-admin: %d", rec.Code)
	}
	if rec := f.do(t, http.MethodDelete, "/tables/"+tableID, "alice", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete table: %d %s", rec.Code, rec.Body)
	}
	if rec := f.do(t, http.MethodGet, "/tables/"+tableID, "alice", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("table after delete: %d", rec.Code)
	}
}

func TestGetPotWithoutCache(t *testing.T) {
	f := newWebFixture(t)
	tableID := f.createTable(t)
	rec := f.do(t, http.MethodGet, fmt.Sprintf("/tables/%s/pot", tableID), "alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("pot: %d %s", rec.Code, rec.Body)
	}
	var resp dto.PotResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Amount != "50.00" {
		t.Fatalf("pot amount %s", resp.Amount)
	}
}
