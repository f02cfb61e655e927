// Package main implements the entry point for the retailstore storage
// service: it wires the five storage backends behind the façade, runs
// the four queue-drain audit consumers and serves Prometheus metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"golang.org/x/sync/errgroup"

	"github.com/c360/retailstore/blobstore"
	"github.com/c360/retailstore/config"
	"github.com/c360/retailstore/consumer"
	"github.com/c360/retailstore/entitystore"
	"github.com/c360/retailstore/fileshare"
	"github.com/c360/retailstore/metric"
	"github.com/c360/retailstore/natsclient"
	"github.com/c360/retailstore/pkg/cache"
	"github.com/c360/retailstore/queue"
	"github.com/c360/retailstore/relational"
	"github.com/c360/retailstore/store"
)

const (
	// Version is stamped at build time
	Version = "0.1.0"
	appName = "retailstore"

	imageBucket     = "product-images"
	shutdownTimeout = 10 * time.Second
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("service failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger := setupLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("starting retailstore storage service",
		"version", Version, "config_path", *configPath)

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := metric.NewMetricsRegistry()
	metrics := registry.CoreMetrics()

	natsClient, err := connectNATS(ctx, cfg, metrics, logger)
	if err != nil {
		return err
	}
	defer natsClient.Close(context.Background())

	rel, err := relational.NewStore(cfg.MySQL, logger)
	if err != nil {
		return fmt.Errorf("relational store: %w", err)
	}

	entities, productCache, err := buildEntityStore(ctx, cfg, natsClient, logger)
	if err != nil {
		return err
	}
	if productCache != nil {
		defer productCache.Close()
	}

	objects, err := natsClient.EnsureObjectStoreBucket(ctx, jetstream.ObjectStoreConfig{
		Bucket: imageBucket,
	})
	if err != nil {
		return fmt.Errorf("object bucket: %w", err)
	}
	blobs := blobstore.NewStore(objects, imageBucket, cfg.Blob.PublicBaseURL, logger)

	queues := queue.NewManager(natsClient, cfg.Queue, logger)
	for _, topic := range queue.Topics {
		if err := queues.EnsureTopic(ctx, topic); err != nil {
			return fmt.Errorf("queue topic %s: %w", topic, err)
		}
	}

	share, err := fileshare.NewShare(cfg.Share.Root, logger)
	if err != nil {
		return fmt.Errorf("file share: %w", err)
	}

	svc := store.NewService(ctx, rel, entities, blobs, queues, share,
		store.WithLogger(logger),
		store.WithMetrics(metrics),
	)
	defer svc.Close()
	logger.Info("storage façade ready",
		"partitions", len(entitystore.Partitions), "topics", len(queue.Topics))

	return runWorkers(ctx, cfg, registry, metrics, queues, entities, logger)
}

// runWorkers supervises the drain consumers and the metrics endpoint
// until a shutdown signal arrives.
func runWorkers(
	ctx context.Context,
	cfg config.Config,
	registry *metric.MetricsRegistry,
	metrics *metric.Metrics,
	queues *queue.Manager,
	entities *entitystore.Store,
	logger *slog.Logger,
) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, assignment := range consumer.Assignments {
		drain := consumer.New(assignment, queues, entities,
			consumer.WithLogger(logger),
			consumer.WithMetrics(metrics),
			consumer.WithBatchSize(cfg.Queue.BatchSize),
		)
		g.Go(func() error {
			if err := drain.Run(gctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	server := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           registry.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		logger.Info("metrics endpoint listening", "addr", cfg.MetricsAddr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	logger.Info("service ready", "consumers", len(consumer.Assignments))
	err := g.Wait()
	logger.Info("service stopped")
	return err
}

// connectNATS builds the NATS client with a health callback feeding the
// connectivity gauge.
func connectNATS(ctx context.Context, cfg config.Config, metrics *metric.Metrics, logger *slog.Logger) (*natsclient.Client, error) {
	opts := []natsclient.ClientOption{
		natsclient.WithClientName(appName),
		natsclient.WithLogger(logger),
		natsclient.WithHealthChangeCallback(func(healthy bool) {
			if healthy {
				metrics.NATSConnected.Set(1)
			} else {
				metrics.NATSConnected.Set(0)
			}
		}),
	}
	if cfg.NATS.Username != "" {
		opts = append(opts, natsclient.WithCredentials(cfg.NATS.Username, cfg.NATS.Password))
	}
	if cfg.NATS.Token != "" {
		opts = append(opts, natsclient.WithToken(cfg.NATS.Token))
	}

	client, err := natsclient.NewClient(cfg.NATS.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	metrics.NATSConnected.Set(1)
	return client, nil
}

// buildEntityStore provisions one KV bucket per partition and wires the
// optional product read cache.
func buildEntityStore(
	ctx context.Context,
	cfg config.Config,
	client *natsclient.Client,
	logger *slog.Logger,
) (*entitystore.Store, *cache.TTLCache[entitystore.Product], error) {
	buckets := make(map[string]entitystore.Bucket, len(entitystore.Partitions))
	for _, partition := range entitystore.Partitions {
		kv, err := client.EnsureKeyValueBucket(ctx, jetstream.KeyValueConfig{
			Bucket: partition,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("kv bucket %s: %w", partition, err)
		}
		buckets[partition] = client.NewKVStore(kv)
	}

	opts := []entitystore.Option{entitystore.WithLogger(logger)}
	var ttl *cache.TTLCache[entitystore.Product]
	if cfg.Cache.Enabled {
		ttl = cache.NewTTL[entitystore.Product](ctx, cfg.Cache.TTL, time.Minute)
		opts = append(opts, entitystore.WithProductCache(ttl))
	}

	return entitystore.NewStore(buckets, opts...), ttl, nil
}

// setupLogger builds the process logger at the configured level.
func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
