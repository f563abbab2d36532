package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"groceryhelper/internal/analysis"
	"groceryhelper/internal/auth"
	"groceryhelper/internal/config"
	"groceryhelper/internal/consul"
	"groceryhelper/internal/database"
	"groceryhelper/internal/logger"
	"groceryhelper/internal/newsletter"
	"groceryhelper/internal/password"
	"groceryhelper/internal/server"
	"groceryhelper/internal/session"
	"groceryhelper/internal/storage"
	"groceryhelper/internal/users"
)

func main() {
	host := config.GetEnvOrDefault("SERVER_HOST", "localhost")
	port := config.GetEnvInt("PORT", 8080)
	redisAddr := config.GetEnvOrDefault("REDIS_ADDR", "localhost:6379")
	redisPassword := config.GetEnvOrDefault("REDIS_PASSWORD", "")
	redisDB := config.GetEnvInt("REDIS_DB", 0)

	log.Println("Starting GroceryHelper API...")
	log.Printf("Port: %d", port)
	log.Printf("Redis: %s", redisAddr)

	lgr := logger.New("groceryhelper-api")
	logger.SetDefault(lgr)

	// Durable account store
	db, err := database.New()
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	log.Println("Connected to database")

	repo := users.NewRepository(db)
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := repo.EnsureSchema(ctx); err != nil {
			cancel()
			log.Fatalf("Failed to ensure schema: %v", err)
		}
		cancel()
	}

	// Session store
	store := session.NewRedisStore(redisAddr, redisPassword, redisDB)
	sessionMgr := session.NewManager(store)
	log.Println("Connected to Redis")

	// Best-effort newsletter integration
	newsletterCfg := newsletter.NewConfig()
	notifier := newsletter.NewNotifier(newsletterCfg)
	if newsletterCfg.Configured() {
		log.Println("Newsletter integration enabled")
	} else {
		log.Println("Newsletter integration not configured, signups will skip subscription")
	}

	// Generative analyzer
	var analyzer analysis.Analyzer
	geminiCfg := analysis.NewGeminiConfig()
	if geminiCfg.Configured() {
		analyzer = analysis.NewGeminiAnalyzer(geminiCfg)
		log.Printf("Analyzer model: %s", geminiCfg.Model)
	} else {
		log.Println("GEMINI_API_KEY not set, ingredient analysis disabled")
	}

	// Optional label photo storage
	var storageService storage.Service
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		storageService, err = storage.New(ctx)
		cancel()
		if err != nil {
			log.Printf("Label photo storage disabled: %v", err)
			storageService = nil
		} else {
			log.Println("Label photo storage initialized")
		}
	}

	authService := auth.NewService(repo, password.NewBcryptHasher(), notifier)
	authHandler := auth.NewHandler(authService, sessionMgr)

	srv := server.New(db, storageService, analyzer, sessionMgr, authHandler)

	// Optional Consul registration
	var consulClient *consul.Client
	serviceID := fmt.Sprintf("groceryhelper-api-%s", host)
	if consulAddr := config.GetEnvOrDefault("CONSUL_HTTP_ADDR", ""); consulAddr != "" {
		consulClient, err = consul.NewClientWithToken(consulAddr, config.GetEnvOrDefault("CONSUL_HTTP_TOKEN", ""))
		if err != nil {
			log.Fatalf("Failed to create Consul client: %v", err)
		}

		// Cleanup from previous crashes.
		_ = consulClient.Deregister(serviceID)

		err = consulClient.Register(&consul.ServiceConfig{
			ID:      serviceID,
			Name:    "groceryhelper-api",
			Address: host,
			Port:    port,
			Tags:    []string{"api", "auth", "analysis"},
			Check: &consul.HealthCheck{
				HTTP:     fmt.Sprintf("http://%s:%d/health", host, port),
				Interval: "10s",
				Timeout:  "3s",
			},
		})
		if err != nil {
			log.Fatalf("Failed to register service with Consul: %v", err)
		}
		log.Printf("Registered with Consul as %s", serviceID)
	}

	go func() {
		log.Printf("GroceryHelper API listening on port %d", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down GroceryHelper API...")

	if consulClient != nil {
		if err := consulClient.Deregister(serviceID); err != nil {
			log.Printf("Failed to deregister from Consul: %v", err)
		} else {
			log.Println("Deregistered from Consul")
		}
	}

	if err := db.Close(); err != nil {
		log.Printf("Failed to close database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("GroceryHelper API stopped")
}
