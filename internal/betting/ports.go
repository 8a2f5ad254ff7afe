package betting

import (
	"context"
	"time"
)

// Os repositórios são colaboradores abstratos; o núcleo não conhece SQL.
// Agregados voltam sempre completos: mesa com memberships, partida com
// apostas e pool. Falhas de armazenamento chegam como KindStorage.

type TableRepository interface {
	CreateTable(ctx context.Context, t *Table) error
	TableByID(ctx context.Context, id string) (*Table, error)
	TableByName(ctx context.Context, name string) (*Table, error)
	UpdateTable(ctx context.Context, t *Table) error
	DeleteTable(ctx context.Context, id string) error
}

type MatchRepository interface {
	CreateMatch(ctx context.Context, m *Match) error
	MatchByID(ctx context.Context, id string) (*Match, error)
	MatchesByTable(ctx context.Context, tableID string) ([]*Match, error)
	// DueToStart lista ids de partidas SCHEDULED com kickoff já passado
	DueToStart(ctx context.Context, now time.Time) ([]string, error)
	// DueToFinish lista ids de partidas IN_PROGRESS com kickoff + grace passado
	DueToFinish(ctx context.Context, now time.Time, grace time.Duration) ([]string, error)
	// UpdateMatch grava o agregado inteiro com compare-and-swap na versão;
	// escrita concorrente perde e volta como KindConflict
	UpdateMatch(ctx context.Context, m *Match) error
	// SettleMatch grava a partida liquidada e os pools absorvidos na mesma
	// transação. A troca de status de cada pool absorvido exige que ele ainda
	// esteja ROLLOVER; um pool já consumido por outra liquidação volta como
	// KindConflict e nada é gravado.
	SettleMatch(ctx context.Context, m *Match, absorbed []*Pool) error
	DeleteMatch(ctx context.Context, id string) error
}

type PoolRepository interface {
	// UnclaimedRollovers lista pools ROLLOVER da mesa ainda não consumidos,
	// ordenados pelo kickoff da partida dona. O consumo em si passa por
	// MatchRepository.SettleMatch, junto com a partida que absorve.
	UnclaimedRollovers(ctx context.Context, tableID string) ([]*Pool, error)
}

// PasswordHasher fica fora do núcleo; aqui só interessa o contrato
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) error
}
