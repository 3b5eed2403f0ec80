// Package main - DealerChat WhatsApp send service entry point
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"dealerchat/internal/adapters/events"
	"dealerchat/internal/adapters/gateway"
	"dealerchat/internal/adapters/handler"
	"dealerchat/internal/adapters/repository"
	"dealerchat/internal/config"
	"dealerchat/internal/core/domain"
	"dealerchat/internal/core/ports"
	"dealerchat/internal/core/services"
)

func main() {
	fmt.Println("=== DealerChat - WhatsApp Send Service ===")

	// 1. Load Configuration from Environment
	fmt.Println("[1/6] Loading configuration...")
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	fmt.Printf("✓ Config loaded (DB: %s@%s:%d, Redis: %s)\n",
		cfg.DB.User, cfg.DB.Host, cfg.DB.Port, cfg.Redis.Addr)

	// 2. Connect to MariaDB with Retry Logic
	// Docker containers may not be ready immediately, so we retry
	fmt.Println("[2/6] Connecting to MariaDB...")
	db := connectMariaDB(cfg.DB, 5, 2*time.Second)
	defer db.Close()
	fmt.Println("✓ MariaDB connection established")

	// 3. Connect to Redis with Retry Logic
	fmt.Println("[3/6] Connecting to Redis...")
	rdb := connectRedis(cfg.Redis, 5, 2*time.Second)
	defer rdb.Close()
	fmt.Println("✓ Redis connection established")

	// 4. Repositories and transport adapters
	fmt.Println("[4/6] Initializing adapters...")

	mariadbRepo := repository.NewMariaDBRepository(db)
	atendimentoRepo := repository.NewAtendimentoRepo(db)
	redisCache := repository.NewRedisRepository(rdb)
	gatewayRepo := repository.NewCachedGatewayRepository(mariadbRepo, redisCache)

	metaClient := gateway.NewMetaClient()
	evolutionClient := gateway.NewEvolutionClient()

	publisher := buildPublisher(cfg.AMQP)

	fmt.Println("✓ Adapters initialized")

	// 5. Core services
	fmt.Println("[5/6] Initializing services...")

	var legacyMeta *domain.MetaCredentials
	if cfg.LegacyMeta.IsSet() {
		legacyMeta = &domain.MetaCredentials{
			AccessToken:   cfg.LegacyMeta.AccessToken,
			PhoneNumberID: cfg.LegacyMeta.PhoneNumberID,
		}
		fmt.Println("  Legacy Meta env credentials active (migration fallback)")
	}

	resolver := services.NewResolver(
		mariadbRepo,     // ChannelRegistry
		atendimentoRepo, // AtendimentoRepository
		gatewayRepo,     // GatewayConfigRepository
		mariadbRepo,     // VendorConfigRepository
		legacyMeta,
	)
	sender := services.NewSender(resolver, metaClient, evolutionClient, gatewayRepo, publisher)

	gatewayHealth := &services.GatewayHealth{}
	services.RunGatewayWatchdog(gatewayRepo, evolutionClient, gatewayHealth)

	fmt.Println("✓ Services initialized")

	// 6. HTTP handlers
	fmt.Println("[6/6] Initializing HTTP handlers...")

	sendHandler := handler.NewSendHandler(sender)
	channelHandler := handler.NewChannelHandler(mariadbRepo, metaClient)
	systemHandler := handler.NewSystemHandler(gatewayHealth)

	fmt.Println("✓ Handlers initialized")
	fmt.Printf("\n✅ Send service ready\n\n")

	startHTTPServer(cfg.App.Port, sendHandler, channelHandler, systemHandler)
}

// buildPublisher connects to the event broker, or falls back to a no-op
// publisher when none is configured
func buildPublisher(cfg config.AMQPConfig) ports.EventPublisher {
	if cfg.URL == "" {
		fmt.Println("  Event broker not configured, delivery events disabled")
		return events.NoopPublisher{}
	}

	publisher, err := events.NewAMQPPublisher(cfg.URL, cfg.Exchange)
	if err != nil {
		log.Fatalf("❌ Cannot connect to event broker: %v", err)
	}
	fmt.Printf("  Delivery events enabled (exchange: %s)\n", cfg.Exchange)
	return publisher
}

// connectMariaDB attempts to connect to MariaDB with retry logic
// Retries are necessary because Docker containers may still be initializing
func connectMariaDB(cfg config.DBConfig, maxRetries int, retryDelay time.Duration) *sql.DB {
	dsn := cfg.GetDSN()

	var db *sql.DB
	var err error

	for i := 1; i <= maxRetries; i++ {
		db, err = sql.Open("mysql", dsn)
		if err != nil {
			log.Printf("  Attempt %d/%d: Failed to configure DB driver: %v", i, maxRetries, err)
			time.Sleep(retryDelay)
			continue
		}

		// Test the connection with Ping
		err = db.Ping()
		if err == nil {
			return db
		}

		log.Printf("  Attempt %d/%d: Cannot ping MariaDB: %v", i, maxRetries, err)
		db.Close()

		if i < maxRetries {
			time.Sleep(retryDelay)
		}
	}

	log.Fatalf("❌ Cannot connect to MariaDB after %d attempts: %v", maxRetries, err)
	return nil // unreachable
}

// connectRedis attempts to connect to Redis with retry logic
func connectRedis(cfg config.RedisConfig, maxRetries int, retryDelay time.Duration) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
	})

	ctx := context.Background()
	var err error

	for i := 1; i <= maxRetries; i++ {
		err = rdb.Ping(ctx).Err()
		if err == nil {
			return rdb
		}

		log.Printf("  Attempt %d/%d: Cannot ping Redis: %v", i, maxRetries, err)

		if i < maxRetries {
			time.Sleep(retryDelay)
		}
	}

	log.Fatalf("❌ Cannot connect to Redis after %d attempts: %v", maxRetries, err)
	return nil // unreachable
}

// startHTTPServer starts the HTTP server with the send and admin endpoints
func startHTTPServer(port int, sendHandler *handler.SendHandler, channelHandler *handler.ChannelHandler, systemHandler *handler.SystemHandler) {
	// Health check endpoint
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"code":200,"message":"DealerChat send service is running","data":null}`)
	})

	http.HandleFunc("/api/whatsapp/send", sendHandler.HandleSend)
	http.HandleFunc("/api/whatsapp/numbers", channelHandler.HandleChannels)
	http.HandleFunc("/api/system/metrics", systemHandler.HandleMetrics)

	addr := fmt.Sprintf(":%d", port)
	fmt.Printf("[HTTP] Server listening on %s\n", addr)
	fmt.Println("[HTTP] Send endpoint: POST /api/whatsapp/send")
	fmt.Println("[HTTP] Numbers admin: GET/POST /api/whatsapp/numbers")
	fmt.Printf("[READY] Press Ctrl+C to stop\n\n")

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatalf("❌ HTTP server failed: %v", err)
	}
}
