package betting

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var base = time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)

func newTestMatch(t *testing.T) *Match {
	t.Helper()
	m, err := NewMatch("m1", "p1", "t1", "Italy", "France", base.Add(2*time.Hour), "alice", base)
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	return m
}

func mustPrediction(t *testing.T, raw string) Prediction {
	t.Helper()
	p, err := ParsePrediction(raw)
	if err != nil {
		t.Fatalf("ParsePrediction(%q): %v", raw, err)
	}
	return p
}

func mustResult(t *testing.T, raw string) Prediction {
	t.Helper()
	p, err := ParseResult(raw)
	if err != nil {
		t.Fatalf("ParseResult(%q): %v", raw, err)
	}
	return p
}

func TestNewMatchValidation(t *testing.T) {
	if _, err := NewMatch("m1", "p1", "t1", "Italy", "italy", base.Add(time.Hour), "alice", base); KindOf(err) != KindValidation {
		t.Fatalf("same participants: expected validation error, got %v", err)
	}
	if _, err := NewMatch("m1", "p1", "t1", "Italy", "France", base.Add(-time.Minute), "alice", base); KindOf(err) != KindValidation {
		t.Fatalf("past kickoff: expected validation error, got %v", err)
	}
	m := newTestMatch(t)
	if m.Status != MatchScheduled {
		t.Fatalf("new match status %s", m.Status)
	}
	if m.Pool.Status != PoolActive || m.Pool.MatchID != m.ID {
		t.Fatalf("pool not created with match: %+v", m.Pool)
	}
}

func TestStatusNeverSkipsNorGoesBack(t *testing.T) {
	m := newTestMatch(t)
	kickoff := m.KickoffAt

	// terminar sem começar
	if _, err := m.Finish(mustResult(t, "1:0"), decimal.NewFromInt(100)); KindOf(err) != KindInvalidState {
		t.Fatalf("finish from scheduled: expected invalid state, got %v", err)
	}
	// começar antes da hora
	if err := m.Start(kickoff.Add(-time.Second)); KindOf(err) != KindInvalidState {
		t.Fatalf("start before kickoff: expected invalid state, got %v", err)
	}
	// corrigir resultado sem terminar
	if _, err := m.CorrectResult(mustResult(t, "1:0")); KindOf(err) != KindInvalidState {
		t.Fatalf("correct from scheduled: expected invalid state, got %v", err)
	}

	if err := m.Start(kickoff); err != nil {
		t.Fatalf("start: %v", err)
	}
	if m.Status != MatchInProgress {
		t.Fatalf("status %s after start", m.Status)
	}
	// começar de novo é no-op com erro, nunca transição dupla
	if err := m.Start(kickoff.Add(time.Minute)); KindOf(err) != KindInvalidState {
		t.Fatalf("second start: expected invalid state, got %v", err)
	}

	if _, err := m.Finish(mustResult(t, "2:0"), decimal.NewFromInt(100)); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if m.Status != MatchFinished {
		t.Fatalf("status %s after finish", m.Status)
	}
	if m.Result.IsZero() {
		t.Fatal("finished match must carry a result")
	}
	if m.Pool.Status == PoolActive {
		t.Fatal("finished match must not keep an active pool")
	}
	if _, err := m.Finish(mustResult(t, "2:0"), decimal.NewFromInt(100)); KindOf(err) != KindInvalidState {
		t.Fatalf("double finish: expected invalid state, got %v", err)
	}
}

func TestBetAdmissionGuard(t *testing.T) {
	m := newTestMatch(t)
	p := mustPrediction(t, "2:1")

	if _, _, err := m.PlaceBet("b1", "alice", p, base); err != nil {
		t.Fatalf("place before kickoff: %v", err)
	}

	// horário passou, status ainda SCHEDULED: trava do mesmo jeito
	after := m.KickoffAt.Add(time.Second)
	if _, _, err := m.PlaceBet("b2", "bob", p, after); err != ErrMatchLocked {
		t.Fatalf("place after kickoff: expected ErrMatchLocked, got %v", err)
	}
	if _, err := m.UpdateBet("alice", p, after); err != ErrMatchLocked {
		t.Fatalf("update after kickoff: expected ErrMatchLocked, got %v", err)
	}
	if _, err := m.DeleteBet("alice", after); err != ErrMatchLocked {
		t.Fatalf("delete after kickoff: expected ErrMatchLocked, got %v", err)
	}

	_ = m.Start(after)
	if _, _, err := m.PlaceBet("b3", "carol", p, after); err != ErrMatchLocked {
		t.Fatalf("place after start: expected ErrMatchLocked, got %v", err)
	}
}

func TestPlaceBetUpserts(t *testing.T) {
	m := newTestMatch(t)

	first, created, err := m.PlaceBet("b1", "alice", mustPrediction(t, "1:1"), base)
	if err != nil || !created {
		t.Fatalf("first place: created=%v err=%v", created, err)
	}
	second, created, err := m.PlaceBet("b2", "alice", mustPrediction(t, "2:0"), base.Add(time.Minute))
	if err != nil {
		t.Fatalf("second place: %v", err)
	}
	if created {
		t.Fatal("second place must update, not create")
	}
	if len(m.Bets) != 1 {
		t.Fatalf("expected 1 bet, got %d", len(m.Bets))
	}
	if second.ID != first.ID {
		t.Fatalf("bet id changed on upsert: %s -> %s", first.ID, second.ID)
	}
	if second.Prediction.String() != "2:0" {
		t.Fatalf("prediction %s", second.Prediction.String())
	}
	if !second.EditedAt.After(base) {
		t.Fatal("edited-at not advanced")
	}
}

func TestUpdateAndDeleteBetRequireExisting(t *testing.T) {
	m := newTestMatch(t)
	if _, err := m.UpdateBet("alice", mustPrediction(t, "1:0"), base); KindOf(err) != KindNotFound {
		t.Fatalf("update without bet: expected not found, got %v", err)
	}
	if _, err := m.DeleteBet("alice", base); KindOf(err) != KindNotFound {
		t.Fatalf("delete without bet: expected not found, got %v", err)
	}

	_, _, _ = m.PlaceBet("b1", "alice", mustPrediction(t, "1:0"), base)
	if _, err := m.DeleteBet("alice", base); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(m.Bets) != 0 {
		t.Fatalf("expected no bets, got %d", len(m.Bets))
	}
}

func TestCorrectResultResetsSettlement(t *testing.T) {
	m := newTestMatch(t)
	_, _, _ = m.PlaceBet("b1", "alice", mustPrediction(t, "2:1"), base)
	_, _, _ = m.PlaceBet("b2", "bob", mustPrediction(t, "0:0"), base)

	_ = m.Start(m.KickoffAt)
	if _, err := m.Finish(mustResult(t, "3:1"), decimal.NewFromInt(100)); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if !m.BetOf("alice").Winner || m.BetOf("bob").Winner {
		t.Fatal("expected alice as sole winner")
	}

	// correção inverte o vencedor; nada acumula da liquidação anterior
	if _, err := m.CorrectResult(mustResult(t, "1:1")); err != nil {
		t.Fatalf("correct: %v", err)
	}
	if m.BetOf("alice").Winner || !m.BetOf("bob").Winner {
		t.Fatal("expected bob as sole winner after correction")
	}
	if len(m.Pool.Payouts) != 1 || m.Pool.Payouts[0].UserID != "bob" {
		t.Fatalf("payouts after correction: %+v", m.Pool.Payouts)
	}
	if !m.Pool.Payouts[0].Amount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("payout amount %s", m.Pool.Payouts[0].Amount)
	}
	if m.Result.String() != "1:1" {
		t.Fatalf("result %s", m.Result.String())
	}

	// repetir a mesma correção é idempotente
	before := m.Pool.Payouts[0]
	if _, err := m.CorrectResult(mustResult(t, "1:1")); err != nil {
		t.Fatalf("repeat correct: %v", err)
	}
	after := m.Pool.Payouts
	if len(after) != 1 || after[0].UserID != before.UserID || !after[0].Amount.Equal(before.Amount) {
		t.Fatalf("settlement not idempotent: %+v", after)
	}
}

func TestCorrectResultCanFlipToRollover(t *testing.T) {
	m := newTestMatch(t)
	_, _, _ = m.PlaceBet("b1", "alice", mustPrediction(t, "2:1"), base)

	_ = m.Start(m.KickoffAt)
	_, _ = m.Finish(mustResult(t, "1:0"), decimal.NewFromInt(150))
	if m.Pool.Status != PoolWon {
		t.Fatalf("pool status %s", m.Pool.Status)
	}

	if _, err := m.CorrectResult(mustResult(t, "0:1")); err != nil {
		t.Fatalf("correct: %v", err)
	}
	if m.Pool.Status != PoolRollover {
		t.Fatalf("pool status %s after correction", m.Pool.Status)
	}
	if !m.Pool.Amount.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("rollover must preserve the amount, got %s", m.Pool.Amount)
	}
	if len(m.Pool.Payouts) != 0 {
		t.Fatalf("payouts must be cleared, got %+v", m.Pool.Payouts)
	}
}
