package betting

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MatchStatus segue o ciclo SCHEDULED -> IN_PROGRESS -> FINISHED,
// sem pular etapa e sem voltar atrás.
type MatchStatus string

const (
	MatchScheduled  MatchStatus = "SCHEDULED"
	MatchInProgress MatchStatus = "IN_PROGRESS"
	MatchFinished   MatchStatus = "FINISHED"
)

// Match é uma partida de uma mesa: dois participantes, horário de início,
// as apostas dos membros e o pool criado junto com ela.
type Match struct {
	ID        string
	TableID   string
	HomeTeam  string
	AwayTeam  string
	KickoffAt time.Time
	Status    MatchStatus
	Result    Prediction // zero até FINISHED
	CreatorID string
	CreatedAt time.Time
	Version   int
	Bets      []Bet
	Pool      Pool
}

// NewMatch cria a partida já com o pool ativo. Os nomes dos times devem vir
// validados; aqui só entram as regras cruzadas (times distintos, kickoff futuro).
func NewMatch(id, poolID, tableID, homeTeam, awayTeam string, kickoffAt time.Time, creatorID string, now time.Time) (*Match, error) {
	if strings.EqualFold(homeTeam, awayTeam) {
		return nil, Validation("match participants must differ")
	}
	if !kickoffAt.After(now) {
		return nil, Validation("kickoff time must be in the future")
	}
	return &Match{
		ID:        id,
		TableID:   tableID,
		HomeTeam:  homeTeam,
		AwayTeam:  awayTeam,
		KickoffAt: kickoffAt,
		Status:    MatchScheduled,
		CreatorID: creatorID,
		CreatedAt: now,
		Version:   1,
		Pool: Pool{
			ID:        poolID,
			MatchID:   id,
			Amount:    decimal.Zero,
			Status:    PoolActive,
			CreatedAt: now,
		},
	}, nil
}

// Reschedule altera os dados da partida; só permitido antes do início
func (m *Match) Reschedule(homeTeam, awayTeam string, kickoffAt time.Time, now time.Time) error {
	if m.Status != MatchScheduled {
		return InvalidState("cannot update match %s in status %s", m.ID, m.Status)
	}
	if strings.EqualFold(homeTeam, awayTeam) {
		return Validation("match participants must differ")
	}
	if !kickoffAt.After(now) {
		return Validation("kickoff time must be in the future")
	}
	m.HomeTeam = homeTeam
	m.AwayTeam = awayTeam
	m.KickoffAt = kickoffAt
	return nil
}

// canBet é a guarda de admissão de apostas: só com a partida SCHEDULED e
// antes do kickoff; qualquer uma das duas condições trava.
func (m *Match) canBet(now time.Time) error {
	if m.Status != MatchScheduled || !now.Before(m.KickoffAt) {
		return ErrMatchLocked
	}
	return nil
}

// BetOf devolve a aposta do usuário, se existir
func (m *Match) BetOf(userID string) *Bet {
	for i := range m.Bets {
		if m.Bets[i].UserID == userID {
			return &m.Bets[i]
		}
	}
	return nil
}

// PlaceBet registra ou atualiza o palpite do usuário (no máximo um por
// partida). Devolve a aposta e se ela foi criada agora.
func (m *Match) PlaceBet(betID, userID string, p Prediction, now time.Time) (*Bet, bool, error) {
	if err := m.canBet(now); err != nil {
		return nil, false, err
	}
	if b := m.BetOf(userID); b != nil {
		b.Prediction = p
		b.EditedAt = now
		return b, false, nil
	}
	m.Bets = append(m.Bets, Bet{
		ID:         betID,
		MatchID:    m.ID,
		UserID:     userID,
		Prediction: p,
		EditedAt:   now,
	})
	return &m.Bets[len(m.Bets)-1], true, nil
}

// UpdateBet edita um palpite existente; falha se o usuário ainda não apostou
func (m *Match) UpdateBet(userID string, p Prediction, now time.Time) (*Bet, error) {
	if err := m.canBet(now); err != nil {
		return nil, err
	}
	b := m.BetOf(userID)
	if b == nil {
		return nil, NotFound("user %s has no bet on match %s", userID, m.ID)
	}
	b.Prediction = p
	b.EditedAt = now
	return b, nil
}

// DeleteBet remove o palpite do usuário enquanto a partida não travou
func (m *Match) DeleteBet(userID string, now time.Time) (Bet, error) {
	if err := m.canBet(now); err != nil {
		return Bet{}, err
	}
	for i := range m.Bets {
		if m.Bets[i].UserID == userID {
			b := m.Bets[i]
			m.Bets = append(m.Bets[:i], m.Bets[i+1:]...)
			return b, nil
		}
	}
	return Bet{}, NotFound("user %s has no bet on match %s", userID, m.ID)
}

// Start executa SCHEDULED -> IN_PROGRESS; só depois do horário de kickoff.
// A partir daqui nenhuma aposta entra ou muda.
func (m *Match) Start(now time.Time) error {
	if m.Status != MatchScheduled {
		return InvalidState("cannot start match %s from status %s", m.ID, m.Status)
	}
	if now.Before(m.KickoffAt) {
		return InvalidState("match %s kickoff time not reached", m.ID)
	}
	m.Status = MatchInProgress
	return nil
}

// Finish executa IN_PROGRESS -> FINISHED com o valor final do pool já
// calculado (base + acúmulos) e roda a liquidação exatamente uma vez.
func (m *Match) Finish(result Prediction, poolAmount decimal.Decimal) (Settlement, error) {
	if m.Status != MatchInProgress {
		return Settlement{}, InvalidState("cannot finish match %s from status %s", m.ID, m.Status)
	}
	m.Pool.Amount = poolAmount
	st := m.settle(result)
	m.Result = result
	m.Status = MatchFinished
	return st, nil
}

// CorrectResult refaz a liquidação de uma partida FINISHED com outro
// resultado. Flags de vencedor e distribuição são recalculadas do zero
// sobre o mesmo valor de pool; nada acumula entre execuções.
func (m *Match) CorrectResult(result Prediction) (Settlement, error) {
	if m.Status != MatchFinished {
		return Settlement{}, InvalidState("cannot set result of match %s in status %s", m.ID, m.Status)
	}
	st := m.settle(result)
	m.Result = result
	return st, nil
}

func (m *Match) settle(result Prediction) Settlement {
	st := Settle(result, m.Bets, m.Pool.Amount)

	// reset completo antes de reaplicar: a liquidação nunca acumula
	for i := range m.Bets {
		m.Bets[i].Winner = false
	}
	if st.HasWinners() {
		winners := make(map[string]struct{}, len(st.WinnerBetIDs))
		for _, id := range st.WinnerBetIDs {
			winners[id] = struct{}{}
		}
		for i := range m.Bets {
			if _, ok := winners[m.Bets[i].ID]; ok {
				m.Bets[i].Winner = true
			}
		}
		m.Pool.distribute(st.Payouts)
	} else {
		m.Pool.rollOver()
	}
	return st
}
