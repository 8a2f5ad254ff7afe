package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/matchpool/matchpool/internal/betting"
	"github.com/matchpool/matchpool/internal/shared/cache"
	"github.com/matchpool/matchpool/internal/shared/clock"
	"github.com/matchpool/matchpool/internal/shared/config"
	"github.com/matchpool/matchpool/internal/shared/db"
	skafka "github.com/matchpool/matchpool/internal/shared/kafka"
	"github.com/matchpool/matchpool/internal/shared/logger"
	"github.com/matchpool/matchpool/internal/shared/metrics"
	"github.com/matchpool/matchpool/internal/table-service/auth"
	tcache "github.com/matchpool/matchpool/internal/table-service/cache"
	thttp "github.com/matchpool/matchpool/internal/table-service/http"
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

	// Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	// Redis (cache do pote corrente)
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	// Kafka writers, um por tópico
	tableWriter := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicTableEvents)
	matchWriter := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicMatchEvents)
	poolWriter := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicPoolSettlements)
	defer tableWriter.Close()
	defer matchWriter.Close()
	defer poolWriter.Close()

	// deps
	repository := repo.NewPostgres(pg)
	engine := betting.NewEngine(repository, repository, repository, clock.System{}, auth.NewBcryptHasher(), log)
	pots := tcache.NewPotCache(rdb, 60*time.Second)
	publ := producer.NewKafkaPublisher(log, tableWriter, matchWriter, poolWriter)

	// HTTP público
	api := thttp.NewServer(log, engine, pots, publ)
	apiSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: api.Router(),
	}

	// metrics/health em porta separada
	metrics.StartServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	})

	log.Info("table-service listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}
