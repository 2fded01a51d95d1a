package di

import (
	"context"
	"fmt"
	"time"

	"LevRecon/internal/domain/repository"
	"LevRecon/internal/handler/api"
	internalrepo "LevRecon/internal/repository"
	svcmetrics "LevRecon/internal/service/metrics"
	"LevRecon/internal/service/ratelimit"
	"LevRecon/internal/services/aggregate"
	"LevRecon/internal/services/classify"
	"LevRecon/internal/services/normalize"
	"LevRecon/internal/services/suggest"
	"LevRecon/internal/usecase"
	"LevRecon/pkg/cache"
	pkgch "LevRecon/pkg/clickhouse"
	"LevRecon/pkg/config"
	xhttp "LevRecon/pkg/http"
	"LevRecon/pkg/http/middleware"
	pkgkafka "LevRecon/pkg/kafka"
	applogger "LevRecon/pkg/logger"
	"LevRecon/pkg/metrics"
	"LevRecon/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ProvideLogger builds the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: cfg.Log.TimeFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideRegisterer returns the registerer every collector is added to.
func ProvideRegisterer() prometheus.Registerer {
	pkgkafka.SetConsumerMetricsRegisterer(prometheus.DefaultRegisterer)
	pkgkafka.SetProducerMetricsRegisterer(prometheus.DefaultRegisterer)
	return prometheus.DefaultRegisterer
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg prometheus.Registerer) repository.Metrics {
	return metrics.New(reg)
}

// ProvideCache returns an in-process cache, layered over Redis when enabled.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Redis.MemorySize),
			cache.WithMemoryCleanup(cfg.Redis.MemoryCleanup),
			cache.WithMemoryDefaultTTL(cfg.Reconcile.ReportTTL),
		), nil
	}
	remote, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdleConns, cfg.Redis.PoolTimeout),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(remote,
		cache.WithLayeredMemorySize(cfg.Redis.MemorySize),
		cache.WithLayeredMemoryTTL(cfg.Redis.MemoryTTL),
	), nil
}

func ProvideSnapshotStore() *internalrepo.MemorySnapshotStore {
	return internalrepo.NewMemorySnapshotStore()
}

func ProvidePriceBook() *internalrepo.MemoryPriceBook {
	return internalrepo.NewMemoryPriceBook()
}

func ProvideReportStore(c cache.Service, cfg *config.Config) *internalrepo.CacheReportStore {
	return internalrepo.NewCacheReportStore(c, cfg.Reconcile.ReportTTL)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
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
	return producer, nil
}

// ProvideClickHouseClient connects and creates the history tables, or
// returns nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
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
	if err := client.InitSchema(ctx, internalrepo.Schema()); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideClickHouseSink returns nil when the client is absent.
func ProvideClickHouseSink(client *pkgch.Client, cfg *config.Config, log *applogger.Logger) *internalrepo.ClickHouseSink {
	if client == nil {
		return nil
	}
	return internalrepo.NewClickHouseSink(client.DB(), cfg.ClickHouse.BatchSize, log)
}

func ProvideLiveHub(cfg *config.Config, log *applogger.Logger) *internalrepo.LiveHub {
	return internalrepo.NewLiveHub(cfg.Server.WSPingInterval, log)
}

// ProvideResultSink fans reports out to every configured sink.
func ProvideResultSink(
	cfg *config.Config,
	log *applogger.Logger,
	producer *pkgkafka.Producer,
	ch *internalrepo.ClickHouseSink,
	live *internalrepo.LiveHub,
) *internalrepo.MultiSink {
	var sinks []repository.ResultSink
	if producer != nil {
		sinks = append(sinks, internalrepo.NewKafkaSink(producer, cfg.Kafka.Topics.Reports))
	}
	if ch != nil {
		sinks = append(sinks, ch)
	}
	sinks = append(sinks, live)
	return internalrepo.NewMultiSink(cfg.Breaker.MaxFailures, cfg.Breaker.OpenTimeout, cfg.Breaker.CallTimeout, log, sinks...)
}

// ProvideRuntimeCollector exports sink breaker and live client gauges.
func ProvideRuntimeCollector(reg prometheus.Registerer, sink *internalrepo.MultiSink, live *internalrepo.LiveHub) (*svcmetrics.RuntimeCollector, error) {
	c := svcmetrics.NewRuntimeCollector(sink, live)
	if err := c.Register(reg); err != nil {
		return nil, fmt.Errorf("register runtime collector: %w", err)
	}
	return c, nil
}

func ProvideClassifier(cfg *config.Config) *classify.Classifier {
	return classify.New(cfg.Classify.Quote, cfg.Classify.Exclude, cfg.Classify.Groups)
}

func ProvideAggregator(cfg *config.Config) (*aggregate.Aggregator, error) {
	participants, err := cfg.ParticipantVenues()
	if err != nil {
		return nil, err
	}
	return aggregate.New(participants, cfg.Policy.UnionPrecision), nil
}

func ProvideSynthesizer(cfg *config.Config) (*suggest.Synthesizer, error) {
	return suggest.New(cfg.Policy)
}

func ProvideNormalizer(prices *internalrepo.MemoryPriceBook) *normalize.Registry {
	return normalize.NewRegistry(prices)
}

// ProvideReconciler wires the reconciliation use case. The report cache also
// serves as the cross-replica run lock.
func ProvideReconciler(
	cfg *config.Config,
	snapshots *internalrepo.MemorySnapshotStore,
	reports *internalrepo.CacheReportStore,
	sink *internalrepo.MultiSink,
	locker cache.Service,
	classifier *classify.Classifier,
	aggregator *aggregate.Aggregator,
	synth *suggest.Synthesizer,
	m repository.Metrics,
	log *applogger.Logger,
) *usecase.Reconciler {
	ref, _ := cfg.ReferenceVenue()
	return usecase.NewReconciler(snapshots, reports, sink, locker, classifier, aggregator, synth, m, log,
		usecase.ReconcilerConfig{
			Workers:   cfg.Reconcile.Workers,
			Timeout:   cfg.Reconcile.Timeout,
			LockTTL:   cfg.Reconcile.LockTTL,
			Reference: ref,
		})
}

func ProvideTiersHandler(cfg *config.Config, registry *normalize.Registry, snapshots *internalrepo.MemorySnapshotStore, prices *internalrepo.MemoryPriceBook, m repository.Metrics, log *applogger.Logger) *usecase.TiersHandler {
	return usecase.NewTiersHandler(cfg.Kafka.Topics.VenueTiers, registry, snapshots, prices, m, log)
}

func ProvideUniverseHandler(cfg *config.Config, snapshots *internalrepo.MemorySnapshotStore, log *applogger.Logger) *usecase.UniverseHandler {
	return usecase.NewUniverseHandler(cfg.Kafka.Topics.Universe, snapshots, log)
}

// ProvideIngestHandlers lists the consumed topics. The cycle topic is only
// consumed when runs follow fetch cycles.
func ProvideIngestHandlers(cfg *config.Config, tiers *usecase.TiersHandler, universe *usecase.UniverseHandler, rec *usecase.Reconciler, log *applogger.Logger) []pkgkafka.MessageHandler {
	hs := []pkgkafka.MessageHandler{tiers, universe}
	if cfg.Reconcile.OnCycle {
		hs = append(hs, usecase.NewCycleHandler(cfg.Kafka.Topics.Cycles, rec, log))
	}
	return hs
}

// ProvideKafkaConsumer creates the ingestion consumer, or nil when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, log *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(
		pkgkafka.TraceHook(),
		pkgkafka.LogHook(log, cfg.Kafka.Consumer.SlowAfter),
	))
	return consumer, nil
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if cfg.RateLimit.RPS <= 0 {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst, 10*time.Minute)
}

// ProvideAPIHandler registers the query API. History is served only when
// ClickHouse is enabled.
func ProvideAPIHandler(
	rec *usecase.Reconciler,
	reports *internalrepo.CacheReportStore,
	snapshots *internalrepo.MemorySnapshotStore,
	aggregator *aggregate.Aggregator,
	ch *internalrepo.ClickHouseSink,
	live *internalrepo.LiveHub,
	limiter *ratelimit.Limiter,
	log *applogger.Logger,
) *api.ReconcileHandler {
	deps := api.Deps{
		Runner:     rec,
		Reports:    reports,
		Snapshots:  snapshots,
		Aggregator: aggregator,
		Live:       live,
	}
	if ch != nil {
		deps.History = ch
	}
	if limiter != nil {
		deps.Limiter = limiter
	}
	return api.NewReconcileHandler(deps, log)
}

// ProvideHTTPServer builds the echo server with request metrics and, when
// enabled, the Prometheus endpoint.
func ProvideHTTPServer(cfg *config.Config, reg prometheus.Registerer, h *api.ReconcileHandler, log *applogger.Logger) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(log),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithMiddleware(middleware.NewHTTPMetrics(reg).Middleware(log, cfg.Server.SlowRequest)),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetricsHandler(cfg.Metrics.Path, promhttp.Handler()))
	}
	return xhttp.NewServer(h, opts...)
}

// ProvideApp assembles the application and attaches the anomaly collector,
// which forwards repeated warnings to the anomalies topic.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	handlers []pkgkafka.MessageHandler,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
	c cache.Service,
	live *internalrepo.LiveHub,
	_ *svcmetrics.RuntimeCollector,
) *server.App {
	app := server.New(log, httpServer, consumer, handlers...)
	app.SetShutdownTimeout(cfg.Server.ShutdownTimeout)

	app.OnShutdown("cache", c)
	if chClient != nil {
		app.OnShutdown("clickhouse", chClient)
	}
	if producer != nil {
		app.OnShutdown("kafka producer", producer)
		if cfg.Anomalies.Enabled {
			log.AddCollector(&applogger.CollectionConfig{
				TimeInterval:   cfg.Anomalies.Interval,
				CountThreshold: cfg.Anomalies.Threshold,
				Topic:          cfg.Kafka.Topics.Anomalies,
				Publisher:      producer,
			})
		}
	}
	app.OnShutdown("live hub", live)
	return app
}
