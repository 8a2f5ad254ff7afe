package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/matchpool/matchpool/internal/betting"
	"github.com/matchpool/matchpool/internal/lifecycle-worker/results"
	"github.com/matchpool/matchpool/internal/lifecycle-worker/scheduler"
	"github.com/matchpool/matchpool/internal/shared/cache"
	"github.com/matchpool/matchpool/internal/shared/clock"
	"github.com/matchpool/matchpool/internal/shared/config"
	"github.com/matchpool/matchpool/internal/shared/db"
	skafka "github.com/matchpool/matchpool/internal/shared/kafka"
	"github.com/matchpool/matchpool/internal/shared/logger"
	"github.com/matchpool/matchpool/internal/shared/metrics"
	"github.com/matchpool/matchpool/internal/table-service/auth"
	"github.com/matchpool/matchpool/internal/table-service/producer"
	"github.com/matchpool/matchpool/internal/table-service/repo"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	tableWriter := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicTableEvents)
	matchWriter := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicMatchEvents)
	poolWriter := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicPoolSettlements)
	defer tableWriter.Close()
	defer matchWriter.Close()
	defer poolWriter.Close()

	repository := repo.NewPostgres(pg)
	engine := betting.NewEngine(repository, repository, repository, clock.System{}, auth.NewBcryptHasher(), log)
	publ := producer.NewKafkaPublisher(log, tableWriter, matchWriter, poolWriter)

	// Métricas Prometheus por estágio do tick
	started := prometheus.NewCounter(prometheus.CounterOpts{Name: "lifecycle_matches_started_total", Help: "partidas iniciadas pelo worker"})
	finished := prometheus.NewCounter(prometheus.CounterOpts{Name: "lifecycle_matches_finished_total", Help: "partidas liquidadas pelo worker"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "lifecycle_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(started, finished, errorsBy)

	// Feed externo de resultados alimenta o store em memória
	store := results.NewStore()
	feed := &results.WSClient{URL: cfg.ResultFeedURL, Log: log, Store: store}

	sched := &scheduler.Scheduler{
		Log:      log,
		Engine:   engine,
		Matches:  repository,
		Results:  store,
		Clock:    clock.System{},
		Publish:  publ.Publish,
		Lock:     scheduler.NewRedisTickLock(rdb, cfg.SchedulerInterval),
		Interval: cfg.SchedulerInterval,
		Grace:    cfg.FinishGrace,

		OnStarted:  func() { started.Inc() },
		OnFinished: func() { finished.Inc() },
		OnError:    func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	metrics.StartServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go feed.Start(ctx)

	log.Info("lifecycle-worker started",
		zap.Duration("interval", cfg.SchedulerInterval),
		zap.Duration("grace", cfg.FinishGrace))
	if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("scheduler stopped with error", zap.Error(err))
	}
	log.Info("lifecycle-worker stopped")
}
