// Command judgeworker is the judging-core's process entry point: it wires
// configuration, storage, the queue consumer, and the orchestrator
// together, then runs until asked to shut down.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"judgecore/internal/common/cache"
	"judgecore/internal/common/db"
	"judgecore/internal/common/mq"
	"judgecore/internal/common/storage"
	"judgecore/internal/judge/datapack"
	"judgecore/internal/judge/model"
	"judgecore/internal/judge/repository"
	"judgecore/internal/judge/sandbox/engine"
	"judgecore/internal/judge/sandbox/observer"
	"judgecore/internal/judge/service"
	"judgecore/pkg/utils/logger"

	"go.uber.org/zap"
)

func main() {
	cfg := loadConfig()

	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		OutputPath: cfg.Logger.OutputPath,
		ErrorPath:  cfg.Logger.ErrorPath,
		Service:    cfg.Logger.Service,
		Env:        cfg.Logger.Env,
		Cluster:    cfg.Logger.Cluster,
	}); err != nil {
		fmt.Fprintln(os.Stderr, "logger init: "+err.Error())
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error(ctx, "judgeworker exited with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg model.Config) error {
	pool, err := db.NewPool(ctx, db.PostgreSQLConfig{
		DSN:      cfg.Postgres.DSN,
		MaxConns: cfg.Postgres.MaxConns,
	})
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	submissions := repository.NewPostgresRepository(pool)
	problems := repository.NewPostgresProblemRepository(pool)

	// cgroup v2 unifies the cpu and memory controllers under one
	// hierarchy; the engine takes a single root, cgroup_cpu_root, and sets
	// both limits under it. cgroup_memory_root is not passed to the engine.
	eng := engine.New(engine.Config{
		CgroupRoot:        cfg.CgroupCPURoot,
		SandboxHelperPath: cfg.SandboxHelperPath,
		MonitorInterval:   cfg.MonitorInterval,
		WallTimeFactor:    cfg.WallTimeFactor,
		EnableSeccomp:     cfg.EnableSeccomp,
		EnableNamespaces:  cfg.EnableNamespaces,
		EnableCgroup:      cfg.EnableCgroup,
	})

	metrics := observer.NewPrometheus("judgecore")
	packs := buildDataPackStore(ctx, cfg)
	orchestrator := service.New(cfg, submissions, problems, eng, metrics, packs)

	queue, err := mq.NewKafkaQueue(mq.KafkaConfig{
		Brokers: cfg.Kafka.Brokers,
	})
	if err != nil {
		return fmt.Errorf("connect kafka: %w", err)
	}
	defer queue.Close()

	handler := func(ctx context.Context, msg *mq.Message) error {
		submissionID := string(msg.Body)
		return orchestrator.HandleSubmission(ctx, submissionID)
	}

	opts := &mq.SubscribeOptions{
		ConsumerGroup:   cfg.Kafka.ConsumerGroup,
		Concurrency:     cfg.Kafka.Concurrency,
		MaxRetries:      cfg.Kafka.MaxRetries,
		RetryDelay:      cfg.Kafka.RetryDelay,
		DeadLetterTopic: cfg.Kafka.DeadLetter,
		MessageTTL:      cfg.Kafka.MessageTTL,
	}
	opts.SetDefaults()

	if err := queue.SubscribeWithOptions(ctx, cfg.Kafka.Topic, handler, opts); err != nil {
		return fmt.Errorf("subscribe submission queue: %w", err)
	}
	if err := queue.Start(); err != nil {
		return fmt.Errorf("start queue consumer: %w", err)
	}

	logger.Info(ctx, "judgeworker started", zap.Int("worker_pool_size", cfg.WorkerPoolSize))



	<-ctx.Done()
	logger.Info(context.Background(), "shutdown signal received, draining in-flight submissions")

	// Stop blocks until every in-flight handler invocation returns, so no
	// submission is left claimed-but-unjudged across a restart.
	_ = queue.Stop()
	return nil
}

// buildDataPackStore wires the §6.2 data-pack path when MinIO is
// configured. A deployment that only ever stores test data inline in the
// submission store can leave minio.endpoint unset; judging then proceeds
// with packs == nil, which service.Orchestrator treats as "no data pack
// problems exist here".
func buildDataPackStore(ctx context.Context, cfg model.Config) *datapack.Store {
	if cfg.MinIO.Endpoint == "" {
		return nil
	}
	objects, err := storage.NewMinIOStorage(storage.MinIOConfig{
		Endpoint:  cfg.MinIO.Endpoint,
		AccessKey: cfg.MinIO.AccessKey,
		SecretKey: cfg.MinIO.SecretKey,
		UseSSL:    cfg.MinIO.UseSSL,
		Bucket:    cfg.MinIO.Bucket,
	})
	if err != nil {
		logger.Error(ctx, "data pack object storage unavailable, continuing without it", zap.Error(err))
		return nil
	}

	var locks cache.LockOps
	if cfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedisCacheWithConfig(&cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Warn(ctx, "data pack lock redis unavailable, falling back to in-process locking", zap.Error(err))
		} else {
			locks = redisCache
		}
	}

	cacheDir := filepath.Join(cfg.WorkspaceRoot, "..", "datapacks")
	return datapack.New(objects, locks, cfg.MinIO.Bucket, cacheDir)
}
