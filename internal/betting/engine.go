package betting

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/matchpool/matchpool/internal/shared/clock"
)

// SystemActor identifica transições disparadas pelo worker de ciclo de vida,
// que não passam pela checagem de admin da mesa.
const SystemActor = "system"

// Engine orquestra as operações públicas do domínio sobre os repositórios.
// Cada mutação devolve o agregado afetado e a lista de eventos emitidos;
// publicar (ou não) esses eventos é decisão do chamador.
type Engine struct {
	tables  TableRepository
	matches MatchRepository
	pools   PoolRepository
	clock   clock.Clock
	hasher  PasswordHasher
	log     *zap.Logger
}

func NewEngine(tables TableRepository, matches MatchRepository, pools PoolRepository, clk clock.Clock, hasher PasswordHasher, log *zap.Logger) *Engine {
	return &Engine{tables: tables, matches: matches, pools: pools, clock: clk, hasher: hasher, log: log}
}

// ---- mesas ----

func (e *Engine) CreateTable(ctx context.Context, actorID, name, password string, maxPlayers int, stake string, private bool) (*Table, []Event, error) {
	tableName, err := ParseTableName(name)
	if err != nil {
		return nil, nil, err
	}
	players, err := ParseMaxPlayers(maxPlayers)
	if err != nil {
		return nil, nil, err
	}
	stakeAmount, err := ParseStake(stake)
	if err != nil {
		return nil, nil, err
	}
	if password == "" {
		return nil, nil, Validation("table password must not be empty")
	}

	if _, err := e.tables.TableByName(ctx, tableName); err == nil {
		return nil, nil, Conflict("table name %q is already taken", tableName)
	} else if !IsKind(err, KindNotFound) {
		return nil, nil, err
	}

	hash, err := e.hasher.Hash(password)
	if err != nil {
		return nil, nil, StorageError(err)
	}

	now := e.clock.Now()
	t := NewTable(uuid.NewString(), tableName, hash, players, stakeAmount, actorID, private, now)
	if err := e.tables.CreateTable(ctx, t); err != nil {
		return nil, nil, err
	}

	e.log.Info("table created", zap.String("table_id", t.ID), zap.String("name", t.Name))
	return t, []Event{TableCreated{TableID: t.ID, Name: t.Name, CreatorID: actorID, At: now}}, nil
}

func (e *Engine) JoinTable(ctx context.Context, userID, tableID, password string) (*Table, []Event, error) {
	t, err := e.tables.TableByID(ctx, tableID)
	if err != nil {
		return nil, nil, err
	}
	if err := e.hasher.Verify(t.PasswordHash, password); err != nil {
		return nil, nil, Forbidden("wrong password for table %s", tableID)
	}
	now := e.clock.Now()
	if err := t.Join(userID, now); err != nil {
		return nil, nil, err
	}
	if err := e.tables.UpdateTable(ctx, t); err != nil {
		return nil, nil, err
	}
	return t, []Event{MemberJoined{TableID: t.ID, UserID: userID, At: now}}, nil
}

func (e *Engine) LeaveTable(ctx context.Context, userID, tableID string) (*Table, []Event, error) {
	t, err := e.tables.TableByID(ctx, tableID)
	if err != nil {
		return nil, nil, err
	}
	if err := t.Leave(userID); err != nil {
		return nil, nil, err
	}
	if err := e.tables.UpdateTable(ctx, t); err != nil {
		return nil, nil, err
	}
	return t, []Event{MemberLeft{TableID: t.ID, UserID: userID, At: e.clock.Now()}}, nil
}

func (e *Engine) GrantAdmin(ctx context.Context, actorID, tableID, userID string) (*Table, []Event, error) {
	t, err := e.tables.TableByID(ctx, tableID)
	if err != nil {
		return nil, nil, err
	}
	if err := t.GrantAdmin(actorID, userID); err != nil {
		return nil, nil, err
	}
	if err := e.tables.UpdateTable(ctx, t); err != nil {
		return nil, nil, err
	}
	return t, []Event{AdminGranted{TableID: t.ID, ActorID: actorID, UserID: userID}}, nil
}

func (e *Engine) RevokeAdmin(ctx context.Context, actorID, tableID, userID string) (*Table, []Event, error) {
	t, err := e.tables.TableByID(ctx, tableID)
	if err != nil {
		return nil, nil, err
	}
	if err := t.RevokeAdmin(actorID, userID); err != nil {
		return nil, nil, err
	}
	if err := e.tables.UpdateTable(ctx, t); err != nil {
		return nil, nil, err
	}
	return t, []Event{AdminRevoked{TableID: t.ID, ActorID: actorID, UserID: userID}}, nil
}

// DeleteTable remove a mesa e tudo que pende dela (partidas, apostas, pools).
// Só administradores, e nunca com uma partida em andamento.
func (e *Engine) DeleteTable(ctx context.Context, actorID, tableID string) ([]Event, error) {
	t, err := e.tables.TableByID(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if !t.IsAdmin(actorID) {
		return nil, Forbidden("user %s is not an admin of table %s", actorID, tableID)
	}
	matches, err := e.matches.MatchesByTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		if m.Status == MatchInProgress {
			return nil, InvalidState("table %s has a match in progress", tableID)
		}
	}
	if err := e.tables.DeleteTable(ctx, tableID); err != nil {
		return nil, err
	}
	e.log.Info("table deleted", zap.String("table_id", tableID), zap.String("actor_id", actorID))
	return []Event{TableDeleted{TableID: tableID, ActorID: actorID}}, nil
}

func (e *Engine) Table(ctx context.Context, tableID string) (*Table, error) {
	return e.tables.TableByID(ctx, tableID)
}

// CurrentPot calcula o que a próxima partida liquidada com vencedores
// distribuiria hoje: base (membros x stake) mais acúmulos não consumidos.
func (e *Engine) CurrentPot(ctx context.Context, tableID string) (decimal.Decimal, error) {
	t, err := e.tables.TableByID(ctx, tableID)
	if err != nil {
		return decimal.Zero, err
	}
	pot := t.BasePool()
	rollovers, err := e.pools.UnclaimedRollovers(ctx, tableID)
	if err != nil {
		return decimal.Zero, err
	}
	for _, p := range rollovers {
		pot = pot.Add(p.Amount)
	}
	return pot, nil
}

// ---- partidas ----

func (e *Engine) CreateMatch(ctx context.Context, actorID, tableID, homeTeam, awayTeam string, kickoffAt time.Time) (*Match, []Event, error) {
	t, err := e.tables.TableByID(ctx, tableID)
	if err != nil {
		return nil, nil, err
	}
	if !t.IsAdmin(actorID) {
		return nil, nil, Forbidden("user %s is not an admin of table %s", actorID, tableID)
	}
	home, err := ParseTeamName(homeTeam)
	if err != nil {
		return nil, nil, err
	}
	away, err := ParseTeamName(awayTeam)
	if err != nil {
		return nil, nil, err
	}
	m, err := NewMatch(uuid.NewString(), uuid.NewString(), tableID, home, away, kickoffAt, actorID, e.clock.Now())
	if err != nil {
		return nil, nil, err
	}
	if err := e.matches.CreateMatch(ctx, m); err != nil {
		return nil, nil, err
	}
	e.log.Info("match created",
		zap.String("match_id", m.ID),
		zap.String("table_id", tableID),
		zap.Time("kickoff_at", m.KickoffAt))
	return m, []Event{MatchCreated{MatchID: m.ID, TableID: tableID, HomeTeam: home, AwayTeam: away, KickoffAt: m.KickoffAt}}, nil
}

func (e *Engine) UpdateMatch(ctx context.Context, actorID, matchID, homeTeam, awayTeam string, kickoffAt time.Time) (*Match, []Event, error) {
	m, t, err := e.matchAndTable(ctx, matchID)
	if err != nil {
		return nil, nil, err
	}
	if !t.IsAdmin(actorID) && m.CreatorID != actorID {
		return nil, nil, Forbidden("user %s cannot change match %s", actorID, matchID)
	}
	home, err := ParseTeamName(homeTeam)
	if err != nil {
		return nil, nil, err
	}
	away, err := ParseTeamName(awayTeam)
	if err != nil {
		return nil, nil, err
	}
	if err := m.Reschedule(home, away, kickoffAt, e.clock.Now()); err != nil {
		return nil, nil, err
	}
	if err := e.matches.UpdateMatch(ctx, m); err != nil {
		return nil, nil, err
	}
	return m, []Event{MatchUpdated{MatchID: m.ID, TableID: m.TableID, HomeTeam: home, AwayTeam: away, KickoffAt: m.KickoffAt}}, nil
}

func (e *Engine) DeleteMatch(ctx context.Context, actorID, matchID string) ([]Event, error) {
	m, t, err := e.matchAndTable(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !t.IsAdmin(actorID) && m.CreatorID != actorID {
		return nil, Forbidden("user %s cannot delete match %s", actorID, matchID)
	}
	if m.Status != MatchScheduled {
		return nil, InvalidState("cannot delete match %s in status %s", matchID, m.Status)
	}
	if err := e.matches.DeleteMatch(ctx, matchID); err != nil {
		return nil, err
	}
	return []Event{MatchDeleted{MatchID: matchID, TableID: m.TableID}}, nil
}

func (e *Engine) Match(ctx context.Context, matchID string) (*Match, error) {
	return e.matches.MatchByID(ctx, matchID)
}

func (e *Engine) TableMatches(ctx context.Context, tableID string) ([]*Match, error) {
	return e.matches.MatchesByTable(ctx, tableID)
}

// ---- apostas ----

func (e *Engine) PlaceBet(ctx context.Context, userID, matchID, prediction string) (*Bet, []Event, error) {
	m, t, err := e.matchAndTable(ctx, matchID)
	if err != nil {
		return nil, nil, err
	}
	if !t.IsMember(userID) {
		return nil, nil, Forbidden("user %s is not a member of table %s", userID, m.TableID)
	}
	p, err := ParsePrediction(prediction)
	if err != nil {
		return nil, nil, err
	}
	b, created, err := m.PlaceBet(uuid.NewString(), userID, p, e.clock.Now())
	if err != nil {
		return nil, nil, err
	}
	if err := e.matches.UpdateMatch(ctx, m); err != nil {
		return nil, nil, err
	}
	if created {
		return b, []Event{BetPlaced{BetID: b.ID, MatchID: matchID, UserID: userID, Prediction: p.String()}}, nil
	}
	return b, []Event{BetUpdated{BetID: b.ID, MatchID: matchID, UserID: userID, Prediction: p.String()}}, nil
}

func (e *Engine) UpdateBet(ctx context.Context, userID, matchID, prediction string) (*Bet, []Event, error) {
	m, t, err := e.matchAndTable(ctx, matchID)
	if err != nil {
		return nil, nil, err
	}
	if !t.IsMember(userID) {
		return nil, nil, Forbidden("user %s is not a member of table %s", userID, m.TableID)
	}
	p, err := ParsePrediction(prediction)
	if err != nil {
		return nil, nil, err
	}
	b, err := m.UpdateBet(userID, p, e.clock.Now())
	if err != nil {
		return nil, nil, err
	}
	if err := e.matches.UpdateMatch(ctx, m); err != nil {
		return nil, nil, err
	}
	return b, []Event{BetUpdated{BetID: b.ID, MatchID: matchID, UserID: userID, Prediction: p.String()}}, nil
}

func (e *Engine) DeleteBet(ctx context.Context, userID, matchID string) ([]Event, error) {
	m, t, err := e.matchAndTable(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !t.IsMember(userID) {
		return nil, Forbidden("user %s is not a member of table %s", userID, m.TableID)
	}
	b, err := m.DeleteBet(userID, e.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := e.matches.UpdateMatch(ctx, m); err != nil {
		return nil, err
	}
	return []Event{BetDeleted{BetID: b.ID, MatchID: matchID, UserID: userID}}, nil
}

// ---- ciclo de vida ----

func (e *Engine) StartMatch(ctx context.Context, actorID, matchID string) (*Match, []Event, error) {
	m, t, err := e.matchAndTable(ctx, matchID)
	if err != nil {
		return nil, nil, err
	}
	if err := authorizeLifecycle(t, actorID); err != nil {
		return nil, nil, err
	}
	now := e.clock.Now()
	if err := m.Start(now); err != nil {
		return nil, nil, err
	}
	if err := e.matches.UpdateMatch(ctx, m); err != nil {
		return nil, nil, err
	}
	e.log.Info("match started", zap.String("match_id", m.ID))
	return m, []Event{MatchStarted{MatchID: m.ID, TableID: m.TableID, At: now}}, nil
}

// FinishMatch liquida a partida: calcula o valor do pool (base + acúmulos da
// mesa, quando há vencedores), roda a liquidação e consome os pools absorvidos.
func (e *Engine) FinishMatch(ctx context.Context, actorID, matchID, result string) (*Match, []Event, error) {
	m, t, err := e.matchAndTable(ctx, matchID)
	if err != nil {
		return nil, nil, err
	}
	if err := authorizeLifecycle(t, actorID); err != nil {
		return nil, nil, err
	}
	res, err := ParseResult(result)
	if err != nil {
		return nil, nil, err
	}
	if m.Status != MatchInProgress {
		return nil, nil, InvalidState("cannot finish match %s from status %s", m.ID, m.Status)
	}

	base := t.BasePool()
	rollovers, err := e.pools.UnclaimedRollovers(ctx, m.TableID)
	if err != nil {
		return nil, nil, err
	}

	// acúmulos só são consumidos por uma liquidação com vencedores
	amount := base
	var absorbed []*Pool
	if probe := Settle(res, m.Bets, base); probe.HasWinners() {
		for _, r := range rollovers {
			amount = amount.Add(r.Amount)
		}
		absorbed = rollovers
	}

	if _, err := m.Finish(res, amount); err != nil {
		return nil, nil, err
	}
	for _, r := range absorbed {
		if err := r.expire(); err != nil {
			return nil, nil, err
		}
	}
	// partida e pools absorvidos na mesma escrita: um pool consumido por
	// outra liquidação no meio do caminho derruba tudo como conflito, sem
	// nunca pagar o mesmo acúmulo duas vezes
	if err := e.matches.SettleMatch(ctx, m, absorbed); err != nil {
		return nil, nil, err
	}

	events := []Event{MatchSettled{MatchID: m.ID, TableID: m.TableID, Result: res.String()}}
	for _, r := range absorbed {
		events = append(events, PoolAbsorbed{PoolID: r.ID, MatchID: r.MatchID, AbsorbedByMatch: m.ID, Amount: r.Amount})
	}
	events = append(events, e.poolEvent(m))

	e.log.Info("match finished",
		zap.String("match_id", m.ID),
		zap.String("result", res.String()),
		zap.String("pool_status", string(m.Pool.Status)),
		zap.String("pool_amount", m.Pool.Amount.String()))
	return m, events, nil
}

// SetMatchResult corrige o resultado de uma partida já encerrada e refaz a
// liquidação do zero sobre o mesmo valor de pool. Idempotente por resultado.
func (e *Engine) SetMatchResult(ctx context.Context, actorID, matchID, result string) (*Match, []Event, error) {
	m, t, err := e.matchAndTable(ctx, matchID)
	if err != nil {
		return nil, nil, err
	}
	if err := authorizeLifecycle(t, actorID); err != nil {
		return nil, nil, err
	}
	res, err := ParseResult(result)
	if err != nil {
		return nil, nil, err
	}
	if m.Pool.Status == PoolExpired {
		return nil, nil, InvalidState("pool of match %s was already absorbed; result can no longer change", matchID)
	}
	if _, err := m.CorrectResult(res); err != nil {
		return nil, nil, err
	}
	if err := e.matches.UpdateMatch(ctx, m); err != nil {
		return nil, nil, err
	}
	events := []Event{
		MatchSettled{MatchID: m.ID, TableID: m.TableID, Result: res.String(), Corrected: true},
		e.poolEvent(m),
	}
	return m, events, nil
}

func (e *Engine) poolEvent(m *Match) Event {
	if m.Pool.Status == PoolWon {
		return PoolDistributed{PoolID: m.Pool.ID, MatchID: m.ID, Amount: m.Pool.Amount, Payouts: m.Pool.Payouts}
	}
	return PoolRolledOver{PoolID: m.Pool.ID, MatchID: m.ID, Amount: m.Pool.Amount}
}

func (e *Engine) matchAndTable(ctx context.Context, matchID string) (*Match, *Table, error) {
	m, err := e.matches.MatchByID(ctx, matchID)
	if err != nil {
		return nil, nil, err
	}
	t, err := e.tables.TableByID(ctx, m.TableID)
	if err != nil {
		return nil, nil, err
	}
	return m, t, nil
}

func authorizeLifecycle(t *Table, actorID string) error {
	if actorID == SystemActor || t.IsAdmin(actorID) {
		return nil
	}
	return Forbidden("user %s is not an admin of table %s", actorID, t.ID)
}
