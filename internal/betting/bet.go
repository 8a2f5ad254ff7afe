package betting

import "time"

// Bet é o palpite de um usuário para uma partida; no máximo um por (user, match).
// Editável enquanto a partida não trava.
type Bet struct {
	ID         string
	MatchID    string
	UserID     string
	Prediction Prediction
	EditedAt   time.Time
	Winner     bool
}
