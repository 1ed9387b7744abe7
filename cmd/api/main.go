package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker/v2"

	"github.com/imrishuroy/go-decor-cartflow/internal/aws"
	"github.com/imrishuroy/go-decor-cartflow/internal/backend"
	"github.com/imrishuroy/go-decor-cartflow/internal/cart"
	"github.com/imrishuroy/go-decor-cartflow/internal/checkout"
	"github.com/imrishuroy/go-decor-cartflow/internal/config"
	"github.com/imrishuroy/go-decor-cartflow/internal/handlers"
	"github.com/imrishuroy/go-decor-cartflow/internal/inflight"
	"github.com/imrishuroy/go-decor-cartflow/internal/logger"
	"github.com/imrishuroy/go-decor-cartflow/internal/metrics"
	"github.com/imrishuroy/go-decor-cartflow/internal/storage"
	"github.com/imrishuroy/go-decor-cartflow/internal/submissions"
	"github.com/imrishuroy/go-decor-cartflow/internal/validation"
)

func setupRouter(cfg handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	handlers.RegisterRoutes(r, cfg)
	return r
}

// needsAWS reports whether any configured component talks to AWS.
func needsAWS(cfg *config.Config) bool {
	return cfg.Storage.Backend == config.StorageDynamoDB ||
		cfg.Checkout.InflightTable != "" ||
		cfg.AWS.QueueURL != "" ||
		cfg.AWS.MetricsNamespace != ""
}

func buildHandlerConfig(ctx context.Context, cfg *config.Config, log *logger.Logger) (handlers.HandlerConfig, error) {
	var clients *aws.AWSClients
	if needsAWS(cfg) {
		var err error
		if clients, err = aws.NewAWSClients(ctx); err != nil {
			return handlers.HandlerConfig{}, fmt.Errorf("init aws clients: %w", err)
		}
	}

	var kv storage.KV
	switch cfg.Storage.Backend {
	case config.StorageRedis:
		client, err := storage.NewRedisClient(ctx, storage.RedisOptions{
			URL:      cfg.Redis.URL,
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return handlers.HandlerConfig{}, err
		}
		kv = storage.NewRedis(client, cfg.Storage.TTL)
	case config.StorageDynamoDB:
		kv = storage.NewDynamo(clients.DynamoDB, cfg.Storage.Table, cfg.Storage.TTL)
	default:
		kv = storage.NewMemory()
	}

	var guard inflight.Guard = inflight.NewMemoryGuard(cfg.Checkout.InflightTTL)
	if cfg.Checkout.InflightTable != "" {
		guard = inflight.NewDynamoGuard(clients.DynamoDB, cfg.Checkout.InflightTable, cfg.Checkout.InflightTTL)
	}

	opts := checkout.Options{
		Backend: backend.NewClient(backend.Options{
			BaseURL:         cfg.Backend.BaseURL,
			Timeout:         cfg.Backend.RequestTimeout,
			BreakerTimeout:  cfg.Backend.BreakerTimeout,
			BreakerFailures: cfg.Backend.BreakerTrips,
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn(log.WithField(context.Background(), "breaker", name),
					fmt.Sprintf("circuit breaker %s -> %s", from, to), nil)
			},
		}),
		Guard:             guard,
		Logger:            log,
		DefaultProviderID: cfg.Checkout.DefaultProviderID,
	}
	if cfg.AWS.QueueURL != "" {
		opts.Publisher = submissions.NewNotifier(aws.NewPublisher(clients.SQS, cfg.AWS.QueueURL))
	}
	reg := prometheus.NewRegistry()
	recorders := metrics.Multi{metrics.NewSubmissionMetrics(reg)}
	if cfg.AWS.MetricsNamespace != "" {
		recorders = append(recorders, aws.NewMetricsRecorder(clients.CloudWatch, cfg.AWS.MetricsNamespace))
	}
	opts.Metrics = recorders

	v := validation.New()
	opts.Validator = v
	opts.Carts = cart.NewManager(kv, log)

	return handlers.HandlerConfig{
		Carts:     opts.Carts,
		Checkout:  checkout.NewService(opts),
		Logger:    log,
		Validator: v,
		Metrics:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}, nil
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Options{ServiceName: "cartflow-api"}).Error(ctx, "loading config", err)
		os.Exit(1)
	}
	log := logger.New(logger.Options{
		ServiceName: "cartflow-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})
	if cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	hcfg, err := buildHandlerConfig(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "wiring dependencies", err)
		os.Exit(1)
	}
	r := setupRouter(hcfg)

	// RUN_LOCAL=true serves plain HTTP for development.
	if cfg.App.RunLocal {
		addr := ":" + cfg.App.Port
		log.Info(log.WithField(ctx, "addr", addr), "running local server")
		if err := r.Run(addr); err != nil {
			log.Error(ctx, "local server stopped", err)
			os.Exit(1)
		}
		return
	}

	adapter := ginadapter.New(r)
	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
