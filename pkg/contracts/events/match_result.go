package events

// MatchResult é o payload do feed externo de resultados consumido pelo
// lifecycle-worker via WebSocket.
type MatchResult struct {
	MatchID  string `json:"match_id"`
	HomeTeam string `json:"home_team,omitempty"`
	AwayTeam string `json:"away_team,omitempty"`
	Result   string `json:"result"` // placar "h:a"
	Source   string `json:"source,omitempty"`
	TsUnixMs int64  `json:"ts_unix_ms"`
}
