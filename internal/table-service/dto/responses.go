package dto

import (
	"time"

	"github.com/matchpool/matchpool/internal/betting"
)

type MemberResponse struct {
	UserID   string    `json:"user_id"`
	Admin    bool      `json:"admin"`
	JoinedAt time.Time `json:"joined_at"`
}

type TableResponse struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	MaxPlayers int              `json:"max_players"`
	Stake      string           `json:"stake"`
	Private    bool             `json:"private"`
	CreatorID  string           `json:"creator_id"`
	CreatedAt  time.Time        `json:"created_at"`
	Members    []MemberResponse `json:"members"`
}

func NewTableResponse(t *betting.Table) TableResponse {
	resp := TableResponse{
		ID:         t.ID,
		Name:       t.Name,
		MaxPlayers: t.MaxPlayers,
		Stake:      t.Stake.StringFixed(2),
		Private:    t.Private,
		CreatorID:  t.CreatorID,
		CreatedAt:  t.CreatedAt,
		Members:    make([]MemberResponse, 0, len(t.Members)),
	}
	for _, m := range t.Members {
		resp.Members = append(resp.Members, MemberResponse{UserID: m.UserID, Admin: m.Admin, JoinedAt: m.JoinedAt})
	}
	return resp
}

type BetResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Prediction string    `json:"prediction"`
	Winner     bool      `json:"winner"`
	EditedAt   time.Time `json:"edited_at"`
}

type PayoutResponse struct {
	UserID string `json:"user_id"`
	Amount string `json:"amount"`
}

type PoolResponse struct {
	ID      string           `json:"id"`
	Amount  string           `json:"amount"`
	Status  string           `json:"status"`
	Payouts []PayoutResponse `json:"payouts,omitempty"`
}

type MatchResponse struct {
	ID        string        `json:"id"`
	TableID   string        `json:"table_id"`
	HomeTeam  string        `json:"home_team"`
	AwayTeam  string        `json:"away_team"`
	KickoffAt time.Time     `json:"kickoff_at"`
	Status    string        `json:"status"`
	Result    string        `json:"result,omitempty"`
	Bets      []BetResponse `json:"bets"`
	Pool      PoolResponse  `json:"pool"`
}

func NewMatchResponse(m *betting.Match) MatchResponse {
	resp := MatchResponse{
		ID:        m.ID,
		TableID:   m.TableID,
		HomeTeam:  m.HomeTeam,
		AwayTeam:  m.AwayTeam,
		KickoffAt: m.KickoffAt,
		Status:    string(m.Status),
		Result:    m.Result.String(),
		Bets:      make([]BetResponse, 0, len(m.Bets)),
		Pool: PoolResponse{
			ID:     m.Pool.ID,
			Amount: m.Pool.Amount.StringFixed(2),
			Status: string(m.Pool.Status),
		},
	}
	for _, b := range m.Bets {
		resp.Bets = append(resp.Bets, BetResponse{
			ID:         b.ID,
			UserID:     b.UserID,
			Prediction: b.Prediction.String(),
			Winner:     b.Winner,
			EditedAt:   b.EditedAt,
		})
	}
	for _, p := range m.Pool.Payouts {
		resp.Pool.Payouts = append(resp.Pool.Payouts, PayoutResponse{UserID: p.UserID, Amount: p.Amount.StringFixed(2)})
	}
	return resp
}

type PotResponse struct {
	TableID string `json:"table_id"`
	Amount  string `json:"amount"`
}
