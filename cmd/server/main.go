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

	"alalim-backend/internal/cache"
	"alalim-backend/internal/catalog"
	"alalim-backend/internal/config"
	"alalim-backend/internal/database"
	"alalim-backend/internal/handlers"
	"alalim-backend/internal/live"
	"alalim-backend/internal/middleware"
	"alalim-backend/internal/repository"
	"alalim-backend/internal/router"
	"alalim-backend/internal/services"
	"alalim-backend/internal/websocket"
	"alalim-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting Al-Alim Backend...")
	ctx := context.Background()

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	cat, err := catalog.Load()
	if err != nil {
		log.Fatalf("✗ Catalog failed to load: %v", err)
	}
	log.Println("✓ Catalog loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(ctx, pool, cfg.MigrationsDir); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	chatRepo := repository.NewChatRepo(pool)
	jobRepo := repository.NewJobRepo(pool)
	tasbihRepo := repository.NewTasbihRepo(pool)
	feedbackRepo := repository.NewFeedbackRepo(pool)
	contentCache := cache.NewContentCache(redisClients.Queue, cfg.ReadingCacheTTL, cfg.DailyVerseTTL)

	// ──── Step 5: Initialize Gemini Clients ────
	contentService, err := services.NewContentService(ctx, cfg.GeminiAPIKey, cfg.GeminiConcurrentReqs)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer contentService.Close()

	assistant, err := services.NewAssistant(ctx, cfg.GeminiAPIKey)
	if err != nil {
		log.Fatalf("✗ Gemini assistant initialization failed: %v", err)
	}
	log.Println("✓ Gemini clients initialized")

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	emailService := services.NewEmailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
	youtubeService := services.NewYouTubeService()
	fileExtractService := services.NewFileExtractService()
	jobQueue := worker.NewQueue(redisClients.Queue)

	authService := services.NewAuthService(userRepo, redisClients.Queue, jwtAuth)
	profileService := services.NewProfileService(userRepo)
	chatService := services.NewChatService(chatRepo, assistant, userRepo, cat, cfg.ChatHistoryWindow)
	readingService := services.NewReadingService(contentCache, jobRepo, jobQueue, cat, userRepo)
	mediaService := services.NewMediaService(contentService, fileExtractService, youtubeService, assistant, userRepo)
	tasbihService := services.NewTasbihService(tasbihRepo)
	feedbackService := services.NewFeedbackService(feedbackRepo, userRepo, emailService, cfg.FeedbackInbox)
	dailyVerses := services.NewDailyVerseService(contentCache, contentService, userRepo)

	// ──── Step 6: Start Job Worker Pool ────
	publisher := websocket.NewPublisher(redisClients.PubSub)
	workerPool := worker.NewPool(
		redisClients.Queue,
		contentService,
		contentCache,
		jobRepo,
		publisher,
		cat,
		cfg.WorkerCount,
	)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.WorkerCount)

	verseScheduler := services.NewDailyVerseScheduler(dailyVerses, userRepo)
	verseScheduler.Start()
	log.Println("✓ Daily verse scheduler started")

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth)
	liveRelay := live.NewRelay(assistant, jwtAuth, userRepo)
	log.Println("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	authLimiter := middleware.NewRateLimiter(10, time.Minute)
	defer authLimiter.Stop()

	r := router.New(jwtAuth, authLimiter, router.Handlers{
		Auth:      handlers.NewAuthHandler(authService),
		User:      handlers.NewUserHandler(profileService),
		Chat:      handlers.NewChatHandler(chatService),
		Reading:   handlers.NewReadingHandler(readingService),
		Media:     handlers.NewMediaHandler(mediaService),
		Tasbih:    handlers.NewTasbihHandler(tasbihService),
		Feedback:  handlers.NewFeedbackHandler(feedbackService),
		Catalog:   handlers.NewCatalogHandler(cat),
		Dashboard: handlers.NewDashboardHandler(dailyVerses),
		Updates:   wsHub.HandleWebSocket,
		Live:      liveRelay,
	}, cfg.FrontendURL)

	// Media analysis and chat streams run long.
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()
		verseScheduler.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Al-Alim Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API:  http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:   ws://localhost:%s/api/v1/ws", cfg.Port)
	log.Printf("  Live: ws://localhost:%s/api/v1/live", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
