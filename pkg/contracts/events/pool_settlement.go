package events

// PayoutEntry é a fatia de um vencedor na distribuição
type PayoutEntry struct {
	UserID string `json:"user_id"`
	Amount string `json:"amount"` // decimal como string, 2 casas
}

// PoolSettlement é publicado no tópico "pool_settlements" quando um pool
// é distribuído, acumulado ou consumido por outra partida.
type PoolSettlement struct {
	Type            string        `json:"type"` // pool_distributed | pool_rolled_over | pool_absorbed
	PoolID          string        `json:"pool_id"`
	MatchID         string        `json:"match_id"`
	AbsorbedByMatch string        `json:"absorbed_by_match,omitempty"`
	Amount          string        `json:"amount"`
	Payouts         []PayoutEntry `json:"payouts,omitempty"`
	TsUnixMs        int64         `json:"ts_unix_ms"`
}
