package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/contenthub/contenthub/internal/blobstore"
	"github.com/contenthub/contenthub/internal/catalog"
	"github.com/contenthub/contenthub/internal/config"
	"github.com/contenthub/contenthub/internal/logger"
	"github.com/contenthub/contenthub/internal/metrics"
	"github.com/contenthub/contenthub/internal/pipeline/audio"
	"github.com/contenthub/contenthub/internal/pipeline/document"
	imagepipe "github.com/contenthub/contenthub/internal/pipeline/image"
	"github.com/contenthub/contenthub/internal/pipeline/video"
	"github.com/contenthub/contenthub/internal/queue"
	"github.com/contenthub/contenthub/internal/tracing"
	"github.com/contenthub/contenthub/internal/worker"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

const version = "1.0.0"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Init(cfg.LogLevel)
	log := logger.Default()
	log.Info("configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, &tracing.Config{
		ServiceName:    "contenthub-worker",
		ServiceVersion: version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TracingEnabled,
		SampleRate:     cfg.TraceSampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	log.Info("connecting to database")
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Info("database connected")

	log.Info("connecting to object storage")
	blobs, err := blobstore.NewMinIOStorage(&blobstore.Config{
		Endpoint:  cfg.MinIOEndpoint,
		AccessKey: cfg.MinIOAccessKey,
		SecretKey: cfg.MinIOSecretKey,
		Bucket:    cfg.MinIOBucket,
		UseSSL:    cfg.MinIOUseSSL,
		Region:    cfg.MinIORegion,
	})
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	if err := blobs.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("failed to ensure bucket: %w", err)
	}
	log.Info("object storage connected")

	redisOpt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to parse redis url: %w", err)
	}

	store := catalog.NewPostgresStore(pool)
	instrumentedBlobs := metrics.NewInstrumentedStorage(blobs)

	engine, err := video.NewFFmpegEngine(video.EngineConfig{MaxHeight: video.PreviewMaxHeight})
	if err != nil {
		return fmt.Errorf("failed to init video engine: %w", err)
	}
	prober, err := audio.NewFFprobe("")
	if err != nil {
		return fmt.Errorf("failed to init audio prober: %w", err)
	}
	renderer, err := document.NewPdftoppm("")
	if err != nil {
		return fmt.Errorf("failed to init document renderer: %w", err)
	}

	presignSecs := int(cfg.PresignExpiry.Seconds())
	deps := worker.NewDependencies(
		store,
		imagepipe.NewPipeline(store, instrumentedBlobs, cfg.TempDir),
		video.NewPipeline(store, instrumentedBlobs, engine, video.Config{
			TempDir:           cfg.TempDir,
			PresignExpirySecs: presignSecs,
			PreviewMaxSeconds: cfg.PreviewMaxSeconds,
		}),
		document.NewPipeline(store, instrumentedBlobs, renderer, cfg.TempDir),
		audio.NewPipeline(store, instrumentedBlobs, prober, presignSecs),
	)

	metrics.SetAppInfo(version, cfg.Environment, "worker")
	metrics.SetWorkerPoolSize(queue.QueueImages, cfg.ImageConcurrency)
	metrics.SetWorkerPoolSize(queue.QueueVideos, cfg.VideoConcurrency)
	metrics.SetWorkerPoolSize(queue.QueueDocuments, cfg.DocumentConcurrency)
	metrics.SetWorkerPoolSize(queue.QueueAudio, cfg.DocumentConcurrency)

	// One consumer per pool so a flood of video jobs can never starve
	// image processing. Documents and audio are light enough to share.
	servers := []*queueServer{
		newQueueServer(redisOpt, cfg, cfg.ImageConcurrency,
			map[string]int{queue.QueueImages: 1},
			map[string]asynq.HandlerFunc{queue.TaskProcessImage: worker.ImageHandler(deps)},
		),
		newQueueServer(redisOpt, cfg, cfg.VideoConcurrency,
			map[string]int{queue.QueueVideos: 1},
			map[string]asynq.HandlerFunc{queue.TaskProcessVideo: worker.VideoHandler(deps)},
		),
		newQueueServer(redisOpt, cfg, cfg.DocumentConcurrency,
			map[string]int{queue.QueueDocuments: 2, queue.QueueAudio: 1},
			map[string]asynq.HandlerFunc{
				queue.TaskProcessDocument: worker.DocumentHandler(deps),
				queue.TaskProcessAudio:    worker.AudioHandler(deps),
			},
		),
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := blobs.HealthCheck(r.Context()); err != nil {
			http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: metricsMux,
	}

	go func() {
		log.Info("metrics server starting", "port", cfg.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server error", "error", err)
		}
	}()

	serverErr := make(chan error, len(servers))
	for _, s := range servers {
		s := s
		go func() {
			log.Info("starting worker pool", "queues", s.queues, "concurrency", s.concurrency)
			serverErr <- s.server.Run(s.mux)
		}()
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("worker pool error: %w", err)
		}
	case sig := <-shutdown:
		log.Info("shutdown signal received", "signal", sig)
	}

	for _, s := range servers {
		s.server.Shutdown()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("error stopping metrics server", "error", err)
	}

	log.Info("worker pools stopped gracefully")
	return nil
}

type queueServer struct {
	server      *asynq.Server
	mux         *asynq.ServeMux
	queues      []string
	concurrency int
}

func newQueueServer(redisOpt *redis.Options, cfg *config.Config, concurrency int, queues map[string]int, handlers map[string]asynq.HandlerFunc) *queueServer {
	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     redisOpt.Addr,
			Password: redisOpt.Password,
			DB:       redisOpt.DB,
		},
		asynq.Config{
			Concurrency:    concurrency,
			Queues:         queues,
			RetryDelayFunc: queue.RetryDelay(cfg.RetryBaseDelay),
		},
	)

	mux := asynq.NewServeMux()
	mux.Use(worker.LoggingMiddleware(), worker.MetricsMiddleware())
	names := make([]string, 0, len(queues))
	for name := range queues {
		names = append(names, name)
	}
	for taskType, handler := range handlers {
		mux.HandleFunc(taskType, handler)
	}

	return &queueServer{
		server:      server,
		mux:         mux,
		queues:      names,
		concurrency: concurrency,
	}
}
