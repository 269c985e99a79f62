package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	ballotservice "quorum/contexts/governance/ballot-service"
	"quorum/contexts/governance/ballot-service/adapters/memory"
	postgresadapter "quorum/contexts/governance/ballot-service/adapters/postgres"
	redisadapter "quorum/contexts/governance/ballot-service/adapters/redis"
	workerapp "quorum/contexts/governance/ballot-service/application/workers"
	"quorum/contexts/governance/ballot-service/ports"
	"quorum/internal/platform/config"
	"quorum/internal/platform/db"
	"quorum/internal/platform/httpserver"
	"quorum/internal/platform/messaging"
	"quorum/internal/platform/metrics"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	kafka        *messaging.KafkaPublisher
	redisTally   *redisadapter.TallyCache
	outboxRelay  workerapp.OutboxRelay
	relayEnabled bool
	projector    workerapp.TallyProjector
	watcher      workerapp.DeadlineWatcher
	pollInterval time.Duration
	logger       *slog.Logger
}

// storage bundles the resolved persistence ports for one process.
type storage struct {
	tx        ports.Transactor
	proposals ports.ProposalRepository
	voters    ports.VoterRepository
	outbox    ports.OutboxRepository
	dedup     ports.EventDedupStore
	tally     ports.TallyCache
	clock     ports.Clock
	idgen     ports.IDGenerator
	postgres  *db.Postgres
}

func buildStorage(cfg config.Config, logger *slog.Logger) (storage, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverPostgres:
		if strings.TrimSpace(cfg.PostgresDSN) == "" {
			return storage{}, errors.New("POSTGRES_DSN is required for the postgres storage driver")
		}
		pg, err := db.Connect(cfg.PostgresDSN)
		if err != nil {
			return storage{}, err
		}
		repo := postgresadapter.NewRepository(pg.DB, postgresadapter.SystemClock{}, logger)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := repo.Migrate(ctx); err != nil {
			_ = pg.Close()
			return storage{}, err
		}
		return storage{
			tx:        repo,
			proposals: repo,
			voters:    repo,
			outbox:    repo,
			dedup:     repo,
			clock:     postgresadapter.SystemClock{},
			idgen:     postgresadapter.UUIDGenerator{},
			postgres:  pg,
		}, nil
	case config.StorageDriverMemory:
		store := memory.NewStore()
		return storage{
			tx:        store,
			proposals: store,
			voters:    store,
			outbox:    store,
			dedup:     store,
			tally:     store,
			clock:     store,
			idgen:     store,
		}, nil
	default:
		return storage{}, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	st, err := buildStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	module := ballotservice.NewModule(ballotservice.Dependencies{
		Tx:        st.tx,
		Proposals: st.proposals,
		Voters:    st.voters,
		Clock:     st.clock,
		IDGen:     st.idgen,
		Logger:    logger,
	})
	ballotMetrics := metrics.NewBallotMetrics("quorum", "ballot")

	server := httpserver.New(module, ballotMetrics, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: st.postgres,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	st, err := buildStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	var (
		publisher  ports.EventPublisher
		subscriber ports.EventSubscriber
		kafkaPub   *messaging.KafkaPublisher
	)
	if cfg.EnableKafkaPublisher {
		kafkaPub, err = messaging.NewKafkaPublisher(cfg.KafkaBrokers, logger)
		if err != nil {
			return nil, err
		}
		kafkaSub, err := messaging.NewKafkaSubscriber(cfg.KafkaBrokers, logger)
		if err != nil {
			return nil, err
		}
		publisher, subscriber = kafkaPub, kafkaSub
	} else {
		bus := messaging.NewBus(logger)
		publisher, subscriber = bus, bus
	}

	tally := st.tally
	var redisTally *redisadapter.TallyCache
	if strings.TrimSpace(cfg.RedisURL) != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		redisTally, err = redisadapter.NewTallyCache(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		tally = redisTally
	}
	if tally == nil {
		// Postgres storage carries no tally projection of its own; fall
		// back to a process-local cache when redis is not configured.
		tally = memory.NewStore()
	}

	ballotMetrics := metrics.NewBallotMetrics("quorum", "ballot_worker")

	return &WorkerApp{
		postgres:   st.postgres,
		kafka:      kafkaPub,
		redisTally: redisTally,
		outboxRelay: workerapp.OutboxRelay{
			Outbox:    st.outbox,
			Publisher: publisher,
			Clock:     st.clock,
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		relayEnabled: cfg.EnableOutboxRelay,
		projector: workerapp.TallyProjector{
			Subscriber: subscriber,
			Dedup:      st.dedup,
			Tally:      tally,
			Observer:   ballotMetrics,
			Clock:      st.clock,
			Disabled:   !cfg.EnableTallyProjection,
			Logger:     logger,
		},
		watcher: workerapp.DeadlineWatcher{
			Proposals: st.proposals,
			Outbox:    st.outbox,
			Dedup:     st.dedup,
			Clock:     st.clock,
			IDGen:     st.idgen,
			Disabled:  !cfg.EnableDeadlineWatcher,
			Logger:    logger,
		},
		pollInterval: cfg.WorkerPollInterval,
		logger:       logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if err := w.projector.Start(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if err := w.watcher.RunOnce(ctx); err != nil {
			return err
		}
		if w.relayEnabled {
			if err := w.outboxRelay.RunOnce(ctx); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	var errs []error
	if w.redisTally != nil {
		errs = append(errs, w.redisTally.Close())
	}
	if w.kafka != nil {
		errs = append(errs, w.kafka.Close())
	}
	if w.postgres != nil {
		errs = append(errs, w.postgres.Close())
	}
	return errors.Join(errs...)
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
