package betting

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Settlement é o resultado puro da liquidação de uma partida: quem venceu,
// quem cravou o placar e como a bolada se reparte. Nenhum estado é tocado aqui.
type Settlement struct {
	// WinnerBetIDs em ordem determinística (EditedAt, depois UserID)
	WinnerBetIDs []string
	// ExactBetIDs acertaram o placar em cheio; reservado para faixas de
	// premiação futuras, hoje não muda a seleção de vencedores
	ExactBetIDs []string
	// Payouts vazio significa rollover
	Payouts []Payout
}

func (s Settlement) HasWinners() bool { return len(s.WinnerBetIDs) > 0 }

// Settle aplica a regra de liquidação: vence quem acertou o sinal do placar
// (1x2). Havendo vencedores, a bolada é dividida por igual truncando em 2
// casas decimais; o resto da divisão vai para o último vencedor na ordem
// determinística, de modo que a soma dos payouts é exatamente o amount.
func Settle(result Prediction, bets []Bet, amount decimal.Decimal) Settlement {
	var st Settlement

	winners := make([]Bet, 0, len(bets))
	for _, b := range bets {
		if b.Prediction.Exact(result) {
			st.ExactBetIDs = append(st.ExactBetIDs, b.ID)
		}
		if b.Prediction.Sign() == result.Sign() {
			winners = append(winners, b)
		}
	}
	if len(winners) == 0 {
		return st
	}

	sort.Slice(winners, func(i, j int) bool {
		if !winners[i].EditedAt.Equal(winners[j].EditedAt) {
			return winners[i].EditedAt.Before(winners[j].EditedAt)
		}
		return winners[i].UserID < winners[j].UserID
	})

	n := decimal.NewFromInt(int64(len(winners)))
	share := amount.Div(n).RoundDown(2)

	st.WinnerBetIDs = make([]string, len(winners))
	st.Payouts = make([]Payout, len(winners))
	total := decimal.Zero
	for i, w := range winners {
		st.WinnerBetIDs[i] = w.ID
		st.Payouts[i] = Payout{UserID: w.UserID, Amount: share}
		total = total.Add(share)
	}
	// resto do truncamento vai para o último vencedor
	if rem := amount.Sub(total); rem.IsPositive() {
		last := len(st.Payouts) - 1
		st.Payouts[last].Amount = st.Payouts[last].Amount.Add(rem)
	}
	return st
}
