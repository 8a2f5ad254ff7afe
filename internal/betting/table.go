package betting

import (
	"time"

	"github.com/shopspring/decimal"
)

// Membership liga um usuário a uma mesa; única por (user, table)
type Membership struct {
	UserID   string
	TableID  string
	Admin    bool
	JoinedAt time.Time
}

// Table é o grupo de usuários que aposta junto: valor fixo por partida,
// capacidade máxima e pelo menos um administrador enquanto existir.
type Table struct {
	ID           string
	Name         string
	PasswordHash string
	MaxPlayers   int
	Stake        decimal.Decimal
	CreatorID    string
	Private      bool
	CreatedAt    time.Time
	Members      []Membership
}

// NewTable cria a mesa com o criador já como primeiro membro administrador.
// name, maxPlayers e stake devem vir validados pelos parsers de values.go.
func NewTable(id, name, passwordHash string, maxPlayers int, stake decimal.Decimal, creatorID string, private bool, now time.Time) *Table {
	return &Table{
		ID:           id,
		Name:         name,
		PasswordHash: passwordHash,
		MaxPlayers:   maxPlayers,
		Stake:        stake,
		CreatorID:    creatorID,
		Private:      private,
		CreatedAt:    now,
		Members: []Membership{
			{UserID: creatorID, TableID: id, Admin: true, JoinedAt: now},
		},
	}
}

func (t *Table) MemberCount() int { return len(t.Members) }

func (t *Table) member(userID string) *Membership {
	for i := range t.Members {
		if t.Members[i].UserID == userID {
			return &t.Members[i]
		}
	}
	return nil
}

func (t *Table) IsMember(userID string) bool { return t.member(userID) != nil }

func (t *Table) IsAdmin(userID string) bool {
	m := t.member(userID)
	return m != nil && m.Admin
}

func (t *Table) adminCount() int {
	n := 0
	for i := range t.Members {
		if t.Members[i].Admin {
			n++
		}
	}
	return n
}

// Join adiciona um membro comum respeitando capacidade e unicidade
func (t *Table) Join(userID string, now time.Time) error {
	if len(t.Members) >= t.MaxPlayers {
		return Conflict("table %s is full (%d players)", t.ID, t.MaxPlayers)
	}
	if t.IsMember(userID) {
		return Conflict("user %s is already a member of table %s", userID, t.ID)
	}
	t.Members = append(t.Members, Membership{UserID: userID, TableID: t.ID, JoinedAt: now})
	return nil
}

// Leave remove um membro; o último administrador não pode sair
func (t *Table) Leave(userID string) error {
	m := t.member(userID)
	if m == nil {
		return NotFound("user %s is not a member of table %s", userID, t.ID)
	}
	if m.Admin && t.adminCount() == 1 {
		return Forbidden("user %s is the last admin of table %s", userID, t.ID)
	}
	for i := range t.Members {
		if t.Members[i].UserID == userID {
			t.Members = append(t.Members[:i], t.Members[i+1:]...)
			break
		}
	}
	return nil
}

// GrantAdmin promove um membro; só administradores promovem
func (t *Table) GrantAdmin(actorID, userID string) error {
	if !t.IsAdmin(actorID) {
		return Forbidden("user %s is not an admin of table %s", actorID, t.ID)
	}
	m := t.member(userID)
	if m == nil {
		return NotFound("user %s is not a member of table %s", userID, t.ID)
	}
	m.Admin = true
	return nil
}

// RevokeAdmin rebaixa um administrador sem nunca deixar a mesa sem nenhum
func (t *Table) RevokeAdmin(actorID, userID string) error {
	if !t.IsAdmin(actorID) {
		return Forbidden("user %s is not an admin of table %s", actorID, t.ID)
	}
	m := t.member(userID)
	if m == nil {
		return NotFound("user %s is not a member of table %s", userID, t.ID)
	}
	if m.Admin && t.adminCount() == 1 {
		return Forbidden("table %s must keep at least one admin", t.ID)
	}
	m.Admin = false
	return nil
}

// BasePool é o valor base arrecadado por partida: membros x stake
func (t *Table) BasePool() decimal.Decimal {
	return t.Stake.Mul(decimal.NewFromInt(int64(len(t.Members))))
}
