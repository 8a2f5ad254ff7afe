package betting

import (
	"time"

	"github.com/shopspring/decimal"
)

// PoolStatus segue o ciclo ACTIVE -> WON | ROLLOVER; EXPIRED é terminal e
// marca um pool acumulado já consumido por uma partida posterior.
type PoolStatus string

const (
	PoolActive   PoolStatus = "ACTIVE"
	PoolWon      PoolStatus = "WON"
	PoolRollover PoolStatus = "ROLLOVER"
	PoolExpired  PoolStatus = "EXPIRED"
)

// Payout é uma fatia da bolada atribuída a um vencedor
type Payout struct {
	UserID string
	Amount decimal.Decimal
}

// Pool acumula as apostas de uma partida e reparte entre os vencedores
// ou deixa o valor acumular para a próxima.
type Pool struct {
	ID        string
	MatchID   string
	Amount    decimal.Decimal
	Status    PoolStatus
	CreatedAt time.Time
	Payouts   []Payout
}

// distribute fixa os pagamentos e fecha o pool como WON.
// A soma dos payouts é sempre igual ao Amount no momento da distribuição.
func (p *Pool) distribute(payouts []Payout) {
	p.Payouts = payouts
	p.Status = PoolWon
}

// rollOver fecha o pool sem vencedores, preservando o valor para acúmulo
func (p *Pool) rollOver() {
	p.Payouts = nil
	p.Status = PoolRollover
}

// expire marca um pool ROLLOVER como consumido; só chega aqui via acúmulo
func (p *Pool) expire() error {
	if p.Status != PoolRollover {
		return InvalidState("pool %s cannot expire from status %s", p.ID, p.Status)
	}
	p.Status = PoolExpired
	return nil
}
