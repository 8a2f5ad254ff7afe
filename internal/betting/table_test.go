package betting

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newTestTable(maxPlayers int) *Table {
	return NewTable("t1", "Liga", "hash", maxPlayers, decimal.NewFromInt(50), "alice", false, time.Now())
}

func TestNewTableCreatorIsAdmin(t *testing.T) {
	tb := newTestTable(4)
	if !tb.IsAdmin("alice") {
		t.Fatal("creator must be admin")
	}
	if tb.MemberCount() != 1 {
		t.Fatalf("expected 1 member, got %d", tb.MemberCount())
	}
}

func TestJoinCapacityAndDuplicates(t *testing.T) {
	tb := newTestTable(2)
	now := time.Now()

	if err := tb.Join("bob", now); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := tb.Join("bob", now); KindOf(err) != KindConflict {
		t.Fatalf("duplicate join: expected conflict, got %v", err)
	}
	if err := tb.Join("carol", now); KindOf(err) != KindConflict {
		t.Fatalf("join at capacity: expected conflict, got %v", err)
	}
	if tb.MemberCount() != 2 {
		t.Fatalf("expected 2 members, got %d", tb.MemberCount())
	}
}

func TestLeave(t *testing.T) {
	tb := newTestTable(4)
	now := time.Now()
	_ = tb.Join("bob", now)

	if err := tb.Leave("carol"); KindOf(err) != KindNotFound {
		t.Fatalf("leave non-member: expected not found, got %v", err)
	}
	if err := tb.Leave("alice"); KindOf(err) != KindForbidden {
		t.Fatalf("last admin leave: expected forbidden, got %v", err)
	}
	if err := tb.Leave("bob"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if tb.IsMember("bob") {
		t.Fatal("bob should be gone")
	}
}

func TestAdminInvariants(t *testing.T) {
	tb := newTestTable(4)
	now := time.Now()
	_ = tb.Join("bob", now)
	_ = tb.Join("carol", now)

	if err := tb.GrantAdmin("bob", "carol"); KindOf(err) != KindForbidden {
		t.Fatalf("grant by non-admin: expected forbidden, got %v", err)
	}
	if err := tb.GrantAdmin("alice", "dave"); KindOf(err) != KindNotFound {
		t.Fatalf("grant to non-member: expected not found, got %v", err)
	}
	if err := tb.GrantAdmin("alice", "bob"); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if !tb.IsAdmin("bob") {
		t.Fatal("bob should be admin")
	}

	// agora alice pode sair e bob segura a mesa
	if err := tb.Leave("alice"); err != nil {
		t.Fatalf("leave after grant: %v", err)
	}
	if err := tb.RevokeAdmin("bob", "bob"); KindOf(err) != KindForbidden {
		t.Fatalf("revoke last admin: expected forbidden, got %v", err)
	}
	if tb.adminCount() != 1 {
		t.Fatalf("table must keep one admin, got %d", tb.adminCount())
	}
}

func TestGrantRevokeSequenceKeepsOneAdmin(t *testing.T) {
	tb := newTestTable(10)
	now := time.Now()
	users := []string{"bob", "carol", "dave"}
	for _, u := range users {
		_ = tb.Join(u, now)
	}
	for _, u := range users {
		if err := tb.GrantAdmin("alice", u); err != nil {
			t.Fatalf("grant %s: %v", u, err)
		}
	}
	for _, u := range append(users, "alice") {
		_ = tb.RevokeAdmin("alice", u) // a última revogação tem que falhar
	}
	if tb.adminCount() < 1 {
		t.Fatalf("admin count dropped to %d", tb.adminCount())
	}
}
