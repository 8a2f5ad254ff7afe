package events

// MatchEvent é publicado no tópico "match_events" para ciclo de vida e apostas
type MatchEvent struct {
	Type       string `json:"type"` // match_created | match_updated | match_deleted | match_started | match_settled | bet_placed | bet_updated | bet_deleted
	MatchID    string `json:"match_id"`
	TableID    string `json:"table_id,omitempty"`
	UserID     string `json:"user_id,omitempty"`
	BetID      string `json:"bet_id,omitempty"`
	HomeTeam   string `json:"home_team,omitempty"`
	AwayTeam   string `json:"away_team,omitempty"`
	Prediction string `json:"prediction,omitempty"`
	Result     string `json:"result,omitempty"`
	Corrected  bool   `json:"corrected,omitempty"`
	KickoffMs  int64  `json:"kickoff_ms,omitempty"`
	TsUnixMs   int64  `json:"ts_unix_ms"`
}
