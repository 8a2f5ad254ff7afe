package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/matchpool/matchpool/internal/betting"
	"github.com/matchpool/matchpool/internal/shared/clock"
)

// ResultSource fornece o resultado final de uma partida, quando disponível.
// De onde o resultado vem (feed, digitação) não é assunto do scheduler.
type ResultSource interface {
	ResultFor(matchID string) (string, bool)
}

// TickLock evita ticks concorrentes quando há mais de uma instância do worker
type TickLock interface {
	TryAcquire(ctx context.Context) (bool, error)
	Release(ctx context.Context)
}

// Scheduler avança partidas pelo relógio: inicia as que passaram do kickoff
// e liquida as que passaram da janela de tolerância e já têm resultado.
// Cada partida é independente; falha em uma não interrompe o lote, e repetir
// uma transição já feita é um no-op barrado pela guarda do próprio estado.
type Scheduler struct {
	Log     *zap.Logger
	Engine  *betting.Engine
	Matches betting.MatchRepository
	Results ResultSource
	Clock   clock.Clock
	Publish func(ctx context.Context, evs []betting.Event) // opcional
	Lock    TickLock                                       // opcional

	Interval time.Duration
	Grace    time.Duration

	OnStarted  func()       // métricas (counter++)
	OnFinished func()       // métricas
	OnError    func(string) // métricas por fase
}

// Run roda o loop de ticks até o contexto ser cancelado
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick processa um lote: partidas a iniciar e partidas a liquidar
func (s *Scheduler) Tick(ctx context.Context) {
	if s.Lock != nil {
		ok, err := s.Lock.TryAcquire(ctx)
		if err != nil {
			s.Log.Warn("tick lock failed", zap.Error(err))
			s.fail("lock")
			return
		}
		if !ok {
			return // outra instância está cuidando deste tick
		}
		defer s.Lock.Release(ctx)
	}

	now := s.Clock.Now()
	s.startDue(ctx, now)
	s.finishDue(ctx, now)
}

func (s *Scheduler) startDue(ctx context.Context, now time.Time) {
	ids, err := s.Matches.DueToStart(ctx, now)
	if err != nil {
		s.Log.Warn("due-to-start query failed", zap.Error(err))
		s.fail("query_start")
		return
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		_, evs, err := s.Engine.StartMatch(ctx, betting.SystemActor, id)
		if err != nil {
			// transição já feita por outro caminho é esperada, não é falha
			if betting.IsKind(err, betting.KindInvalidState) || betting.IsKind(err, betting.KindConflict) {
				s.Log.Debug("start skipped", zap.String("match_id", id), zap.Error(err))
				continue
			}
			s.Log.Warn("start failed", zap.String("match_id", id), zap.Error(err))
			s.fail("start")
			continue
		}
		if s.OnStarted != nil {
			s.OnStarted()
		}
		s.publish(ctx, evs)
	}
}

func (s *Scheduler) finishDue(ctx context.Context, now time.Time) {
	ids, err := s.Matches.DueToFinish(ctx, now, s.Grace)
	if err != nil {
		s.Log.Warn("due-to-finish query failed", zap.Error(err))
		s.fail("query_finish")
		return
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		result, ok := s.Results.ResultFor(id)
		if !ok {
			// sem resultado ainda; a partida volta no próximo tick
			s.Log.Debug("no result yet", zap.String("match_id", id))
			continue
		}
		_, evs, err := s.Engine.FinishMatch(ctx, betting.SystemActor, id, result)
		if err != nil {
			if betting.IsKind(err, betting.KindInvalidState) || betting.IsKind(err, betting.KindConflict) {
				s.Log.Debug("finish skipped", zap.String("match_id", id), zap.Error(err))
				continue
			}
			s.Log.Warn("finish failed", zap.String("match_id", id), zap.Error(err))
			s.fail("finish")
			continue
		}
		if s.OnFinished != nil {
			s.OnFinished()
		}
		s.publish(ctx, evs)
	}
}

func (s *Scheduler) publish(ctx context.Context, evs []betting.Event) {
	if s.Publish != nil {
		s.Publish(ctx, evs)
	}
}

func (s *Scheduler) fail(stage string) {
	if s.OnError != nil {
		s.OnError(stage)
	}
}
