package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/cambista/fxhooks/internal/api"
	"github.com/cambista/fxhooks/internal/auth"
	"github.com/cambista/fxhooks/internal/clock"
	"github.com/cambista/fxhooks/internal/config"
	"github.com/cambista/fxhooks/internal/delivery"
	"github.com/cambista/fxhooks/internal/endpoint"
	"github.com/cambista/fxhooks/internal/health"
	"github.com/cambista/fxhooks/internal/logging"
	"github.com/cambista/fxhooks/internal/metrics"
	"github.com/cambista/fxhooks/internal/queue"
	"github.com/cambista/fxhooks/internal/service"
	"github.com/cambista/fxhooks/internal/store"
	"github.com/cambista/fxhooks/internal/tracing"
)

func main() {
	cfg := config.FromEnv()
	ctx := context.Background()
	logger := logging.New(cfg.AppName)
	clk := clock.Real()

	shutdownTracing, err := tracing.InitTracing(ctx, cfg.AppName)
	if err != nil {
		log.Printf("tracing init: %v (continuing without traces)", err)
	} else {
		defer shutdownTracing()
	}

	st, pinger, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		log.Fatalf("store init: %v", err)
	}
	defer closeStore()

	q, err := buildQueue(cfg, clk, logger)
	if err != nil {
		log.Fatalf("queue init: %v", err)
	}

	svc := service.New(service.Options{
		Store:          st,
		Queue:          q,
		Clock:          clk,
		Logger:         logger,
		Workers:        cfg.Delivery.Workers,
		LedgerCapacity: cfg.Delivery.LedgerCapacity,
		Delivery: delivery.Config{
			MaxAttempts:     cfg.Delivery.MaxAttempts,
			BackoffSchedule: cfg.Delivery.BackoffSchedule,
			JitterPercent:   cfg.Delivery.JitterPercent,
			AttemptTimeout:  cfg.Delivery.AttemptTimeout,
		},
	})
	svc.Start(ctx)
	defer svc.Stop()

	router := mux.NewRouter()
	api.NewHandlers(svc, logger).RegisterRoutes(router)

	reg := prometheus.NewRegistry()
	metrics.MustRegister(reg)
	router.HandleFunc("/healthz", health.HTTPHandler(pinger))
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	var handler http.Handler = router
	if cfg.Auth.Enabled {
		validator, err := buildValidator(cfg.Auth)
		if err != nil {
			log.Fatalf("auth init: %v", err)
		}
		handler = validator.HTTPMiddleware(router)
	}

	httpSrv := &http.Server{Addr: cfg.HTTPPort, Handler: handler}
	go func() {
		log.Printf("%s HTTP listening on %s (store=%s queue=%s)",
			cfg.AppName, cfg.HTTPPort, cfg.StoreDriver, cfg.QueueDriver)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP serve: %v", err)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop
	_ = httpSrv.Shutdown(context.Background())
	log.Printf("%s stopped", cfg.AppName)
}

// buildStore selects the endpoint store backend. The returned Pinger
// backs /healthz; closeStore releases the backing pool if any.
func buildStore(ctx context.Context, cfg config.Config) (endpoint.Store, health.Pinger, func(), error) {
	switch cfg.StoreDriver {
	case "postgres":
		pool, err := store.Connect(ctx, cfg.DSN())
		if err != nil {
			return nil, nil, nil, err
		}
		pg := store.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		return pg, pg, pool.Close, nil
	default:
		m := store.NewMemory()
		return m, m, func() {}, nil
	}
}

func buildQueue(cfg config.Config, clk clock.Clock, logger *logging.Logger) (delivery.Queue, error) {
	switch cfg.QueueDriver {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return queue.NewRedis(client, clk), nil
	case "nsq":
		return queue.NewNSQ(queue.NSQConfig{
			NsqdTCPAddr:    cfg.NSQ.NsqdTCPAddr,
			LookupHTTPAddr: cfg.NSQ.LookupHTTPAddr,
			Topic:          cfg.NSQ.Topic,
			Channel:        cfg.NSQ.Channel,
		}, logger)
	default:
		return queue.NewMemory(clk), nil
	}
}

func buildValidator(a config.Auth) (*auth.JWTValidator, error) {
	pem, err := os.ReadFile(a.PublicKeyPath)
	if err != nil {
		return nil, err
	}
	return auth.NewJWTValidator(string(pem), a.Issuer, a.Audience)
}
