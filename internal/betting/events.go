package betting

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event é um fato de domínio emitido junto com o resultado de cada mutação.
// O chamador decide o que fazer com a lista (publicar no Kafka, ignorar, ...);
// o núcleo nunca fala com um broker diretamente.
type Event interface {
	EventName() string
}

type TableCreated struct {
	TableID   string
	Name      string
	CreatorID string
	At        time.Time
}

func (TableCreated) EventName() string { return "table_created" }

type TableDeleted struct {
	TableID string
	ActorID string
}

func (TableDeleted) EventName() string { return "table_deleted" }

type MemberJoined struct {
	TableID string
	UserID  string
	At      time.Time
}

func (MemberJoined) EventName() string { return "member_joined" }

type MemberLeft struct {
	TableID string
	UserID  string
	At      time.Time
}

func (MemberLeft) EventName() string { return "member_left" }

type AdminGranted struct {
	TableID string
	ActorID string
	UserID  string
}

func (AdminGranted) EventName() string { return "admin_granted" }

type AdminRevoked struct {
	TableID string
	ActorID string
	UserID  string
}

func (AdminRevoked) EventName() string { return "admin_revoked" }

type MatchCreated struct {
	MatchID   string
	TableID   string
	HomeTeam  string
	AwayTeam  string
	KickoffAt time.Time
}

func (MatchCreated) EventName() string { return "match_created" }

type MatchUpdated struct {
	MatchID   string
	TableID   string
	HomeTeam  string
	AwayTeam  string
	KickoffAt time.Time
}

func (MatchUpdated) EventName() string { return "match_updated" }

type MatchDeleted struct {
	MatchID string
	TableID string
}

func (MatchDeleted) EventName() string { return "match_deleted" }

type MatchStarted struct {
	MatchID string
	TableID string
	At      time.Time
}

func (MatchStarted) EventName() string { return "match_started" }

// MatchSettled cobre tanto o primeiro resultado quanto correções posteriores
type MatchSettled struct {
	MatchID   string
	TableID   string
	Result    string
	Corrected bool
}

func (MatchSettled) EventName() string { return "match_settled" }

type BetPlaced struct {
	BetID      string
	MatchID    string
	UserID     string
	Prediction string
}

func (BetPlaced) EventName() string { return "bet_placed" }

type BetUpdated struct {
	BetID      string
	MatchID    string
	UserID     string
	Prediction string
}

func (BetUpdated) EventName() string { return "bet_updated" }

type BetDeleted struct {
	BetID   string
	MatchID string
	UserID  string
}

func (BetDeleted) EventName() string { return "bet_deleted" }

// PoolDistributed é emitido quando a bolada é repartida entre vencedores
type PoolDistributed struct {
	PoolID  string
	MatchID string
	Amount  decimal.Decimal
	Payouts []Payout
}

func (PoolDistributed) EventName() string { return "pool_distributed" }

// PoolRolledOver é emitido quando ninguém acerta e o valor fica acumulado
type PoolRolledOver struct {
	PoolID  string
	MatchID string
	Amount  decimal.Decimal
}

func (PoolRolledOver) EventName() string { return "pool_rolled_over" }

// PoolAbsorbed é emitido quando um pool acumulado é consumido por uma
// partida posterior que teve vencedores
type PoolAbsorbed struct {
	PoolID          string
	MatchID         string
	AbsorbedByMatch string
	Amount          decimal.Decimal
}

func (PoolAbsorbed) EventName() string { return "pool_absorbed" }
