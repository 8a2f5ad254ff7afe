package scheduler

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/matchpool/matchpool/internal/betting"
	"github.com/matchpool/matchpool/internal/betting/bettingtest"
)

var base = time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)

type fakeResults map[string]string

func (f fakeResults) ResultFor(matchID string) (string, bool) {
	r, ok := f[matchID]
	return r, ok
}

type fakeLock struct {
	held     bool
	acquires int
	releases int
}

func (l *fakeLock) TryAcquire(ctx context.Context) (bool, error) {
	l.acquires++
	return !l.held, nil
}

func (l *fakeLock) Release(ctx context.Context) { l.releases++ }

type harness struct {
	ctx     context.Context
	store   *bettingtest.Store
	clock   *bettingtest.Clock
	engine  *betting.Engine
	results fakeResults
	sched   *Scheduler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := bettingtest.NewStore()
	clk := &bettingtest.Clock{T: base}
	eng := betting.NewEngine(store, store, store, clk, bettingtest.PlainHasher{}, zap.NewNop())
	results := fakeResults{}
	return &harness{
		ctx:     context.Background(),
		store:   store,
		clock:   clk,
		engine:  eng,
		results: results,
		sched: &Scheduler{
			Log:      zap.NewNop(),
			Engine:   eng,
			Matches:  store,
			Results:  results,
			Clock:    clk,
			Interval: time.Minute,
			Grace:    2 * time.Hour,
		},
	}
}

// newMatch cria mesa + partida com kickoff relativo ao relógio do harness
func (h *harness) newMatch(t *testing.T, name string, kickoffIn time.Duration) *betting.Match {
	t.Helper()
	tb, _, err := h.engine.CreateTable(h.ctx, "alice", name, "segredo", 5, "10", false)
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	m, _, err := h.engine.CreateMatch(h.ctx, "alice", tb.ID, "Italy", "France", h.clock.Now().Add(kickoffIn))
	if err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}
	return m
}

func (h *harness) status(t *testing.T, matchID string) betting.MatchStatus {
	t.Helper()
	m, err := h.store.MatchByID(h.ctx, matchID)
	if err != nil {
		t.Fatalf("MatchByID: %v", err)
	}
	return m.Status
}

func TestTickStartsDueMatches(t *testing.T) {
	h := newHarness(t)
	due := h.newMatch(t, "Mesa A", 30*time.Minute)
	notDue := h.newMatch(t, "Mesa B", 3*time.Hour)

	var started int
	h.sched.OnStarted = func() { started++ }

	h.clock.Advance(time.Hour)
	h.sched.Tick(h.ctx)

	if got := h.status(t, due.ID); got != betting.MatchInProgress {
		t.Fatalf("due match status %s", got)
	}
	if got := h.status(t, notDue.ID); got != betting.MatchScheduled {
		t.Fatalf("not-due match status %s", got)
	}
	if started != 1 {
		t.Fatalf("started counter %d", started)
	}

	// segundo tick não reprocessa a partida já iniciada
	h.sched.Tick(h.ctx)
	if started != 1 {
		t.Fatalf("started counter after second tick %d", started)
	}
}

func TestTickFinishesAfterGraceWithResult(t *testing.T) {
	h := newHarness(t)
	m := h.newMatch(t, "Mesa A", 30*time.Minute)

	h.clock.Advance(time.Hour)
	h.sched.Tick(h.ctx)

	// dentro da janela de tolerância nada é liquidado, mesmo com resultado
	h.results[m.ID] = "2:1"
	h.clock.Advance(time.Hour)
	h.sched.Tick(h.ctx)
	if got := h.status(t, m.ID); got != betting.MatchInProgress {
		t.Fatalf("status within grace %s", got)
	}

	var published []betting.Event
	h.sched.Publish = func(ctx context.Context, evs []betting.Event) {
		published = append(published, evs...)
	}

	h.clock.Advance(2 * time.Hour)
	h.sched.Tick(h.ctx)
	if got := h.status(t, m.ID); got != betting.MatchFinished {
		t.Fatalf("status after grace %s", got)
	}
	var settled bool
	for _, ev := range published {
		if _, ok := ev.(betting.MatchSettled); ok {
			settled = true
		}
	}
	if !settled {
		t.Fatalf("expected MatchSettled published, got %+v", published)
	}
}

func TestTickLeavesMatchesWithoutResult(t *testing.T) {
	h := newHarness(t)
	m := h.newMatch(t, "Mesa A", 30*time.Minute)

	h.clock.Advance(4 * time.Hour)
	h.sched.Tick(h.ctx)
	if got := h.status(t, m.ID); got != betting.MatchInProgress {
		t.Fatalf("status without result %s", got)
	}

	// o resultado chegando, o próximo tick liquida
	h.results[m.ID] = "0:0"
	h.sched.Tick(h.ctx)
	if got := h.status(t, m.ID); got != betting.MatchFinished {
		t.Fatalf("status after result arrives %s", got)
	}
}

// Uma partida com resultado malformado não impede as demais do lote
func TestTickBadResultDoesNotBlockBatch(t *testing.T) {
	h := newHarness(t)
	bad := h.newMatch(t, "Mesa A", 30*time.Minute)
	good := h.newMatch(t, "Mesa B", 40*time.Minute)

	h.clock.Advance(4 * time.Hour)
	h.sched.Tick(h.ctx)

	h.results[bad.ID] = "banana"
	h.results[good.ID] = "1:0"

	var stages []string
	h.sched.OnError = func(stage string) { stages = append(stages, stage) }

	h.sched.Tick(h.ctx)

	if got := h.status(t, bad.ID); got != betting.MatchInProgress {
		t.Fatalf("bad match status %s", got)
	}
	if got := h.status(t, good.ID); got != betting.MatchFinished {
		t.Fatalf("good match status %s", got)
	}
	if len(stages) != 1 || stages[0] != "finish" {
		t.Fatalf("error stages %v", stages)
	}
}

func TestTickSkipsWhenLockHeld(t *testing.T) {
	h := newHarness(t)
	m := h.newMatch(t, "Mesa A", 30*time.Minute)
	h.clock.Advance(time.Hour)

	lock := &fakeLock{held: true}
	h.sched.Lock = lock
	h.sched.Tick(h.ctx)
	if got := h.status(t, m.ID); got != betting.MatchScheduled {
		t.Fatalf("status with lock held %s", got)
	}
	if lock.releases != 0 {
		t.Fatalf("lock released without being acquired")
	}

	lock.held = false
	h.sched.Tick(h.ctx)
	if got := h.status(t, m.ID); got != betting.MatchInProgress {
		t.Fatalf("status after lock freed %s", got)
	}
	if lock.acquires != 2 || lock.releases != 1 {
		t.Fatalf("lock counters acquires=%d releases=%d", lock.acquires, lock.releases)
	}
}
