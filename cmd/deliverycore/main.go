// Command deliverycore runs the delivery execution core as a single
// process: the order-intake/admin HTTP API, one or more Delivery
// Workers, the orphan sweep, and the settlement ledger sweep.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"deliverycore/internal/api"
	"deliverycore/internal/capacity"
	"deliverycore/internal/config"
	"deliverycore/internal/coordination"
	"deliverycore/internal/delivery"
	"deliverycore/internal/dispatch/httpdispatch"
	"deliverycore/internal/idempotency"
	"deliverycore/internal/proxy"
	"deliverycore/internal/settlement"
	"deliverycore/internal/store"
	"deliverycore/internal/streaming"
	"deliverycore/internal/timeline"
)

func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backing := openStore(ctx, cfg)

	var coordinator coordination.Coordinator
	var idemBackend idempotency.Backend
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatalf("deliverycore: failed to connect to redis at %s: %v", cfg.RedisAddr, err)
		}
		log.Printf("deliverycore: using redis at %s for coordination and idempotency cache", cfg.RedisAddr)
		coordinator = coordination.NewRedisCoordinator(client)
		idemBackend = store.NewRedisCache(client)
	} else {
		log.Println("deliverycore: no REDIS_ADDR set, running single-process coordination and idempotency cache")
		coordinator = coordination.NewMemoryCoordinator()
	}
	idemStore := idempotency.NewStore(idemBackend, 24*time.Hour)

	registry := proxy.NewRegistry(backing)
	proxyCfg := proxy.LoadConfig()
	selector := proxy.NewSelector(registry)
	planner := capacity.NewPlanner(registry, backing, cfg.PlaysPerHourPerNode)
	generator := delivery.NewGenerator(backing, delivery.DefaultGeneratorConfig())
	ledger := settlement.NewLedger(backing)
	dispatcher := httpdispatch.NewHTTPDispatcher(10 * time.Second)

	limiter := proxy.NewNodeLimiter(proxyCfg.RateLimitPerSecond, proxyCfg.RateLimitBurst)
	trail := timeline.NewStore(10000)
	publisher := streaming.NewLogPublisher()
	defer publisher.Close()
	ledger.SetPublisher(publisher)

	hostname, _ := os.Hostname()
	workers := make([]*delivery.Worker, 0, cfg.WorkerCount)
	for i := 0; i < cfg.WorkerCount; i++ {
		workerID := hostname + "-worker-" + string(rune('a'+i))
		workerCfg := delivery.LoadWorkerConfig(workerID)
		worker := delivery.NewWorker(backing, selector, registry, dispatcher, workerCfg)
		worker.SetLimiter(limiter)
		worker.SetTimeline(trail)
		worker.SetPublisher(publisher)
		workers = append(workers, worker)
		go worker.Run(ctx)
	}

	guard := coordination.NewFencingGuard(coordinator, hostname+"-"+randomSuffix(), 0)
	go runOrphanSweep(ctx, guard, backing, trail, cfg.OrphanSweepInterval)
	go runSettlementSweep(ctx, guard, ledger, publisher, cfg.SettlementInterval)

	a := api.NewAPI(backing, planner, generator, registry, ledger, idemStore, workers, trail)
	go a.Hub().Run(ctx)

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: a.Mux()}
	go func() {
		log.Printf("deliverycore: listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("deliverycore: http server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("deliverycore: shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)
	cancel()
}

func openStore(ctx context.Context, cfg config.Config) store.Store {
	if cfg.PostgresDSN != "" {
		pg, err := store.NewPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("deliverycore: failed to connect to postgres: %v", err)
		}
		log.Println("deliverycore: using postgres durable store")
		return pg
	}
	log.Println("deliverycore: no DATABASE_URL set, using in-memory store (dev/test mode)")
	return store.NewMemoryStore()
}

func runOrphanSweep(ctx context.Context, guard *coordination.FencingGuard, backing store.Store, trail *timeline.Store, interval time.Duration) {
	threshold := delivery.LoadWorkerConfig("").OrphanThreshold
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, err := guard.Run(ctx, "orphan-sweep", func(ctx context.Context) error {
				n, err := delivery.SweepOrphans(ctx, backing, threshold, 100, trail)
				if err == nil && n > 0 {
					log.Printf("deliverycore: reclaimed %d orphaned task(s)", n)
				}
				return err
			})
			if err != nil {
				log.Printf("deliverycore: orphan sweep error: %v", err)
			}
		}
	}
}

func runSettlementSweep(ctx context.Context, guard *coordination.FencingGuard, ledger *settlement.Ledger, publisher streaming.Publisher, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, err := guard.Run(ctx, "settlement-sweep", func(ctx context.Context) error {
				n, err := ledger.Sweep(ctx)
				if err == nil && n > 0 {
					log.Printf("deliverycore: settled %d order(s)", n)
					publisher.Publish(ctx, "settlement.swept", map[string]interface{}{"count": n})
				}
				return err
			})
			if err != nil {
				log.Printf("deliverycore: settlement sweep error: %v", err)
			}
		}
	}
}

// randomSuffix disambiguates fencing-guard ownership between processes
// sharing a hostname. It is the process start time to the microsecond, so
// two processes started within the same microsecond get the same suffix.
func randomSuffix() string {
	return time.Now().Format("150405.000000")
}
