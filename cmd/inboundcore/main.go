package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"inboundcore/auth"
	"inboundcore/config"
	"inboundcore/engine"
	"inboundcore/messaging"
	"inboundcore/planstate"
	"inboundcore/spapi"
	"inboundcore/store"
	"inboundcore/www"
)

var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "inboundcore.yaml", "path to config file")
	flag.Parse()

	if *showVersion {
		fmt.Println("inboundcore", Version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Database
	db, err := store.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	log.Printf("inboundcore: database open (%s)", cfg.Database.Driver)

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	redisOK := redisClient.Ping(ctx).Err() == nil
	cancel()

	var summaryCache *planstate.RedisStore
	if redisOK {
		log.Printf("inboundcore: redis connected (%s)", cfg.Redis.Address)
		summaryCache = planstate.NewRedisStore(redisClient, cfg.Redis.SummaryTTL)
	} else {
		log.Printf("inboundcore: redis not available, running without cache")
	}

	// Plan state
	plans := planstate.NewManager(db, summaryCache)
	syncCtx, syncCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := plans.SyncRedisFromSQL(syncCtx); err != nil {
		log.Printf("inboundcore: redis sync from SQL: %v", err)
	}
	syncCancel()

	// Credentials and upstream client
	creds := auth.NewProvider(cfg.Auth, &http.Client{Timeout: cfg.Upstream.Timeout})
	if cfg.Auth.SharedCache && redisOK {
		creds.WithCache(auth.NewRedisCache(redisClient))
	}
	client, err := spapi.NewClient(cfg.Upstream.Endpoint, cfg.Upstream.Region, cfg.Upstream.Timeout, creds)
	if err != nil {
		log.Fatalf("upstream client: %v", err)
	}
	poller := spapi.NewPoller(client, cfg.Orchestrator.PollStep, cfg.Orchestrator.PollCap,
		cfg.Orchestrator.PollBudget, cfg.Orchestrator.PollMaxAttempts)
	log.Printf("inboundcore: upstream %s (%s)", client.Host(), cfg.Upstream.Region)

	// Messaging client
	msgClient := messaging.NewClient(&cfg.Messaging)
	if err := msgClient.Connect(); err != nil {
		log.Printf("inboundcore: messaging connect failed (%v)", err)
	} else {
		log.Printf("inboundcore: messaging connected (kafka)")
	}
	defer msgClient.Close()

	// Engine
	eng := engine.New(engine.Config{
		AppConfig:   cfg,
		DB:          db,
		Plans:       plans,
		Upstream:    client,
		Poller:      poller,
		Credentials: creds,
		MsgClient:   msgClient,
	})
	eng.Start()
	defer eng.Stop()

	// Async confirm requests
	consumer := messaging.NewConsumer(msgClient, cfg.Messaging.RequestsTopic, eng)
	if err := consumer.Start(); err != nil {
		log.Printf("inboundcore: request consumer subscribe failed: %v", err)
	} else {
		log.Printf("inboundcore: consuming confirm requests on %s", cfg.Messaging.RequestsTopic)
	}

	// Outbox drainer
	drainer := messaging.NewOutboxDrainer(db, msgClient, cfg.Messaging.OutboxDrainInterval)
	drainer.Start()
	defer drainer.Stop()

	// Web server
	handler, stopWeb := www.NewRouter(eng)

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		log.Printf("inboundcore: web server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("web server: %v", err)
		}
	}()

	log.Printf("inboundcore: ready")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("inboundcore: shutting down...")
	stopWeb()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	log.Printf("inboundcore: stopped")
}
