package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/matchpool/matchpool/internal/betting"
	skafka "github.com/matchpool/matchpool/internal/shared/kafka"
	cevents "github.com/matchpool/matchpool/pkg/contracts/events"
)

// KafkaPublisher é o outbox dos eventos de domínio: recebe a lista emitida
// por uma mutação do núcleo e publica cada evento no tópico certo.
type KafkaPublisher struct {
	log     *zap.Logger
	tables  *kafka.Writer
	matches *kafka.Writer
	pools   *kafka.Writer
}

func NewKafkaPublisher(log *zap.Logger, tables, matches, pools *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{log: log, tables: tables, matches: matches, pools: pools}
}

// Publish envia os eventos emitidos por uma mutação; falha de publicação é
// logada e não derruba a operação que já foi persistida.
func (p *KafkaPublisher) Publish(ctx context.Context, evs []betting.Event) {
	now := time.Now().UnixMilli()
	for _, ev := range evs {
		writer, key, payload := p.translate(ev, now)
		if writer == nil {
			continue
		}
		b, err := json.Marshal(payload)
		if err != nil {
			p.log.Warn("event marshal failed", zap.String("event", ev.EventName()), zap.Error(err))
			continue
		}
		if err := skafka.WriteJSON(ctx, writer, key, b); err != nil {
			p.log.Warn("event publish failed", zap.String("event", ev.EventName()), zap.Error(err))
		}
	}
}

func (p *KafkaPublisher) translate(ev betting.Event, ts int64) (*kafka.Writer, string, any) {
	switch e := ev.(type) {
	case betting.TableCreated:
		return p.tables, e.TableID, cevents.TableEvent{Type: ev.EventName(), TableID: e.TableID, UserID: e.CreatorID, Name: e.Name, TsUnixMs: ts}
	case betting.TableDeleted:
		return p.tables, e.TableID, cevents.TableEvent{Type: ev.EventName(), TableID: e.TableID, ActorID: e.ActorID, TsUnixMs: ts}
	case betting.MemberJoined:
		return p.tables, e.TableID, cevents.TableEvent{Type: ev.EventName(), TableID: e.TableID, UserID: e.UserID, TsUnixMs: ts}
	case betting.MemberLeft:
		return p.tables, e.TableID, cevents.TableEvent{Type: ev.EventName(), TableID: e.TableID, UserID: e.UserID, TsUnixMs: ts}
	case betting.AdminGranted:
		return p.tables, e.TableID, cevents.TableEvent{Type: ev.EventName(), TableID: e.TableID, UserID: e.UserID, ActorID: e.ActorID, TsUnixMs: ts}
	case betting.AdminRevoked:
		return p.tables, e.TableID, cevents.TableEvent{Type: ev.EventName(), TableID: e.TableID, UserID: e.UserID, ActorID: e.ActorID, TsUnixMs: ts}

	case betting.MatchCreated:
		return p.matches, e.MatchID, cevents.MatchEvent{Type: ev.EventName(), MatchID: e.MatchID, TableID: e.TableID, HomeTeam: e.HomeTeam, AwayTeam: e.AwayTeam, KickoffMs: e.KickoffAt.UnixMilli(), TsUnixMs: ts}
	case betting.MatchUpdated:
		return p.matches, e.MatchID, cevents.MatchEvent{Type: ev.EventName(), MatchID: e.MatchID, TableID: e.TableID, HomeTeam: e.HomeTeam, AwayTeam: e.AwayTeam, KickoffMs: e.KickoffAt.UnixMilli(), TsUnixMs: ts}
	case betting.MatchDeleted:
		return p.matches, e.MatchID, cevents.MatchEvent{Type: ev.EventName(), MatchID: e.MatchID, TableID: e.TableID, TsUnixMs: ts}
	case betting.MatchStarted:
		return p.matches, e.MatchID, cevents.MatchEvent{Type: ev.EventName(), MatchID: e.MatchID, TableID: e.TableID, TsUnixMs: ts}
	case betting.MatchSettled:
		return p.matches, e.MatchID, cevents.MatchEvent{Type: ev.EventName(), MatchID: e.MatchID, TableID: e.TableID, Result: e.Result, Corrected: e.Corrected, TsUnixMs: ts}
	case betting.BetPlaced:
		return p.matches, e.MatchID, cevents.MatchEvent{Type: ev.EventName(), MatchID: e.MatchID, BetID: e.BetID, UserID: e.UserID, Prediction: e.Prediction, TsUnixMs: ts}
	case betting.BetUpdated:
		return p.matches, e.MatchID, cevents.MatchEvent{Type: ev.EventName(), MatchID: e.MatchID, BetID: e.BetID, UserID: e.UserID, Prediction: e.Prediction, TsUnixMs: ts}
	case betting.BetDeleted:
		return p.matches, e.MatchID, cevents.MatchEvent{Type: ev.EventName(), MatchID: e.MatchID, BetID: e.BetID, UserID: e.UserID, TsUnixMs: ts}

	case betting.PoolDistributed:
		payouts := make([]cevents.PayoutEntry, 0, len(e.Payouts))
		for _, pay := range e.Payouts {
			payouts = append(payouts, cevents.PayoutEntry{UserID: pay.UserID, Amount: pay.Amount.StringFixed(2)})
		}
		return p.pools, e.MatchID, cevents.PoolSettlement{Type: ev.EventName(), PoolID: e.PoolID, MatchID: e.MatchID, Amount: e.Amount.StringFixed(2), Payouts: payouts, TsUnixMs: ts}
	case betting.PoolRolledOver:
		return p.pools, e.MatchID, cevents.PoolSettlement{Type: ev.EventName(), PoolID: e.PoolID, MatchID: e.MatchID, Amount: e.Amount.StringFixed(2), TsUnixMs: ts}
	case betting.PoolAbsorbed:
		return p.pools, e.MatchID, cevents.PoolSettlement{Type: ev.EventName(), PoolID: e.PoolID, MatchID: e.MatchID, AbsorbedByMatch: e.AbsorbedByMatch, Amount: e.Amount.StringFixed(2), TsUnixMs: ts}
	}
	p.log.Warn("unknown domain event dropped", zap.String("event", ev.EventName()))
	return nil, "", nil
}
