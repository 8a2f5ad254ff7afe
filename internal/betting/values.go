package betting

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Limites do domínio
const (
	MinTableNameLen = 3
	MaxTableNameLen = 100
	MinPlayers      = 1
	MaxPlayersLimit = 100
	MaxTeamNameLen  = 100

	// DrawToken é o palpite de empate sem placar exato (mercado 1x2)
	DrawToken = "X"
)

var maxStake = decimal.NewFromInt(10_000)

// ParseTableName valida o nome da mesa (3 a 100 caracteres, sem espaços nas bordas)
func ParseTableName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if len(name) < MinTableNameLen || len(name) > MaxTableNameLen {
		return "", Validation("table name must have between %d and %d characters", MinTableNameLen, MaxTableNameLen)
	}
	return name, nil
}

// ParseTeamName valida o nome de um participante da partida
func ParseTeamName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" || len(name) > MaxTeamNameLen {
		return "", Validation("team name must have between 1 and %d characters", MaxTeamNameLen)
	}
	return name, nil
}

// ParseMaxPlayers valida a capacidade da mesa (1 a 100 jogadores)
func ParseMaxPlayers(n int) (int, error) {
	if n < MinPlayers || n > MaxPlayersLimit {
		return 0, Validation("max players must be between %d and %d", MinPlayers, MaxPlayersLimit)
	}
	return n, nil
}

// ParseStake valida o valor da aposta por partida: >= 0, <= 10000, até 2 casas decimais
func ParseStake(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, Validation("stake %q is not a valid amount", raw)
	}
	if d.IsNegative() {
		return decimal.Zero, Validation("stake must not be negative")
	}
	if d.GreaterThan(maxStake) {
		return decimal.Zero, Validation("stake must not exceed %s", maxStake.String())
	}
	if !d.Equal(d.Round(2)) {
		return decimal.Zero, Validation("stake must have at most 2 decimal places")
	}
	return d, nil
}

// Sign classifica um placar: +1 vitória do mandante, 0 empate, -1 visitante
type Sign int

const (
	HomeWin Sign = 1
	Draw    Sign = 0
	AwayWin Sign = -1
)

// Prediction é um palpite ou resultado já validado.
// Aceita "h:a" (placar exato) ou o token de empate "X" (somente palpite).
type Prediction struct {
	raw  string
	home int
	away int
	draw bool // true quando o palpite é o token de empate, sem placar
}

// ParsePrediction valida um palpite de aposta
func ParsePrediction(raw string) (Prediction, error) {
	s := strings.TrimSpace(raw)
	if strings.EqualFold(s, DrawToken) {
		return Prediction{raw: DrawToken, draw: true}, nil
	}
	return parseScoreline(s)
}

// ParseResult valida um resultado final; o token de empate não é aceito,
// resultado sempre carrega o placar.
func ParseResult(raw string) (Prediction, error) {
	return parseScoreline(strings.TrimSpace(raw))
}

func parseScoreline(s string) (Prediction, error) {
	home, away, ok := strings.Cut(s, ":")
	if !ok {
		return Prediction{}, Validation("scoreline %q must look like \"2:1\"", s)
	}
	h, err := parseScore(home)
	if err != nil {
		return Prediction{}, err
	}
	a, err := parseScore(away)
	if err != nil {
		return Prediction{}, err
	}
	return Prediction{raw: strconv.Itoa(h) + ":" + strconv.Itoa(a), home: h, away: a}, nil
}

func parseScore(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, Validation("score %q must be a non-negative integer", s)
	}
	return n, nil
}

func (p Prediction) String() string { return p.raw }

func (p Prediction) IsZero() bool { return p.raw == "" }

// Sign devolve a classificação 1x2 do palpite
func (p Prediction) Sign() Sign {
	switch {
	case p.draw, p.home == p.away:
		return Draw
	case p.home > p.away:
		return HomeWin
	default:
		return AwayWin
	}
}

// Exact indica acerto em cheio: mesmo placar, não só o mesmo sinal
func (p Prediction) Exact(result Prediction) bool {
	return !p.draw && !result.draw && p.home == result.home && p.away == result.away
}
