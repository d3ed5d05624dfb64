package di

import (
	"context"
	"fmt"
	"time"

	"OilScope/internal/domain/repository"
	"OilScope/internal/handler/api"
	"OilScope/internal/handler/ws"
	internalrepo "OilScope/internal/repository"
	"OilScope/internal/usecase"
	"OilScope/pkg/cache"
	pkgch "OilScope/pkg/clickhouse"
	"OilScope/pkg/config"
	pkgkafka "OilScope/pkg/kafka"
	applogger "OilScope/pkg/logger"
	"OilScope/pkg/metrics"
	"OilScope/pkg/queue"
	"OilScope/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvidePriceStore creates the CSV-backed price store.
func ProvidePriceStore(cfg *config.Config, l *applogger.Logger) repository.PriceStore {
	s := internalrepo.NewCSVPriceStore(cfg.Data.PricesCSV)
	s.SetLogger(l)
	return s
}

// ProvideEventStore creates the CSV-backed event store.
func ProvideEventStore(cfg *config.Config, l *applogger.Logger) repository.EventStore {
	s := internalrepo.NewCSVEventStore(cfg.Data.EventsCSV)
	s.SetLogger(l)
	return s
}

// ProvideRedisCache creates the Redis cache client, or nil when disabled.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCacheService layers an in-process cache over Redis when available,
// falling back to memory-only.
func ProvideCacheService(rc *cache.RedisCache) cache.Service {
	if rc == nil {
		return cache.NewMemoryCache()
	}
	return cache.NewLayeredCache(rc)
}

// ProvideClickHouseSink creates the long-term price sink, or nil when disabled.
func ProvideClickHouseSink(cfg *config.Config, l *applogger.Logger) (repository.PriceSink, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, []string{"CREATE DATABASE IF NOT EXISTS oilscope"}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	sink := internalrepo.NewClickHousePriceSink(client, cfg.ClickHouse.Table)
	sink.SetLogger(l)
	return sink, nil
}

// ProvideResultsPublisher creates the Kafka results publisher, or nil when
// disabled.
func ProvideResultsPublisher(cfg *config.Config, l *applogger.Logger) (repository.Publisher, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	pub := internalrepo.NewKafkaResultsPublisher(producer, cfg.Kafka.ResultsTopic)
	pub.SetLogger(l)

	// Batched error logs ride the same producer.
	l.AddCollector(&applogger.CollectionConfig{
		TimeInterval:   30 * time.Second,
		CountThreshold: 100,
		Topic:          cfg.Kafka.LogsTopic,
		Publisher:      pub,
	})
	return pub, nil
}

// ProvideAnalysisUseCase wires the full pipeline orchestrator.
func ProvideAnalysisUseCase(
	prices repository.PriceStore,
	events repository.EventStore,
	publisher repository.Publisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.AnalysisUseCase {
	uc := usecase.NewAnalysisUseCase(prices, events, publisher, m)
	uc.SetLogger(l)
	return uc
}

// ProvideJobQueue creates the Redis-backed analysis run queue, or nil when
// Redis is disabled.
func ProvideJobQueue(cfg *config.Config, l *applogger.Logger, rc *cache.RedisCache, analysis *usecase.AnalysisUseCase) *queue.RedisQueue {
	if rc == nil {
		return nil
	}
	q := queue.NewRedisQueue(l, &queue.QueueConfig{
		Workers:    cfg.Redis.Queue.Workers,
		QueueSize:  cfg.Redis.Queue.QueueSize,
		RetryLimit: cfg.Redis.Queue.RetryLimit,
		RetryDelay: cfg.Redis.Queue.RetryDelay,
	}, rc.Client(), queue.ModeProducerConsumer, queue.WithKeyPrefix("oilscope:analysis"))
	q.RegisterJob(usecase.NewAnalysisJob(analysis, l))
	return q
}

// ProvideProgressHub creates the sampling progress websocket hub.
func ProvideProgressHub(l *applogger.Logger) *ws.ProgressHub {
	return ws.NewProgressHub(l)
}

// ProvideAnalysisHandler wires the HTTP handler with its optional extras.
func ProvideAnalysisHandler(
	l *applogger.Logger,
	analysis *usecase.AnalysisUseCase,
	cacheSvc cache.Service,
	jobs *queue.RedisQueue,
	m repository.Metrics,
) *api.AnalysisEchoHandler {
	h := api.NewAnalysisEchoHandler(l, analysis)
	h.SetCache(cacheSvc)
	h.SetMetrics(m)
	if jobs != nil {
		h.SetJobQueue(jobs)
	}
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	analysis *usecase.AnalysisUseCase,
	handler *api.AnalysisEchoHandler,
	progress *ws.ProgressHub,
	prices repository.PriceStore,
	jobs *queue.RedisQueue,
	sink repository.PriceSink,
	publisher repository.Publisher,
) *server.App {
	app := server.New(cfg, l, analysis, handler, progress, prices)
	if jobs != nil {
		app.SetJobQueue(jobs)
	}
	if sink != nil {
		app.SetPriceSink(sink)
	}
	if publisher != nil {
		app.SetPublisher(publisher)
	}
	return app
}
