package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LovationAdmin/budget-ledger/config"
	"github.com/LovationAdmin/budget-ledger/handlers"
	"github.com/LovationAdmin/budget-ledger/middleware"
	"github.com/LovationAdmin/budget-ledger/routes"
	"github.com/LovationAdmin/budget-ledger/services"
	"github.com/LovationAdmin/budget-ledger/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

const version = "1.0.0"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, cfgErr := config.Load()
	var cfgError *config.ConfigurationError
	if cfgErr != nil && !errors.As(cfgErr, &cfgError) {
		log.Fatal("Failed to load configuration:", cfgErr)
	}

	var db *sql.DB
	if cfgErr == nil {
		var err error
		db, err = config.InitDB(cfg)
		if err != nil {
			log.Fatal("Failed to connect to database:", err)
		}
		defer db.Close()
		log.Printf("✅ Database connected successfully (%s)", cfg.Driver)

		if err := config.RunMigrations(db); err != nil {
			log.Fatal("Failed to run migrations:", err)
		}
	} else {
		// Keep serving so the job endpoint can report what is missing.
		log.Printf("⚠️ %v - jobs will answer with a configuration error", cfgErr)
	}

	utils.LogStartup("budget-ledger", version, cfg.Port)

	wsHandler := handlers.NewWSHandler()
	defer wsHandler.Close()

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}))
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		utils.LogAPIRequest(c.Request.Method, c.Request.URL.Path, middleware.GetUserID(c), c.Writer.Status(), time.Since(start).String())
	})
	router.Use(middleware.RateLimiter(ctx, 100, time.Minute))

	jobHandler := &handlers.JobHandler{Location: cfg.Location, ConfigErr: cfgErr}

	v1 := router.Group("/api/v1")
	if db != nil {
		stack, err := services.NewStack(db, cfg.Driver, cfg.ChargeSources, wsHandler)
		if err != nil {
			log.Fatal("Failed to wire services:", err)
		}
		jobHandler.Engine = stack.Engine

		protected := v1.Group("/")
		protected.Use(middleware.AuthMiddleware(cfg.JWTSecret))
		{
			routes.SetupRecurringRoutes(protected, &handlers.RecurringHandler{
				Charges:         stack.Charges,
				Poster:          stack.Poster,
				Reports:         stack.Reports,
				DefaultCurrency: cfg.ReportingCurrency,
			})
			routes.SetupFXRoutes(protected, &handlers.FXHandler{
				Rates:           stack.Rates,
				Reports:         stack.Reports,
				DefaultCurrency: cfg.ReportingCurrency,
			})
			routes.SetupWSRoutes(protected, wsHandler)
		}

		if cfg.AutoPostInterval > 0 {
			log.Printf("⏰ Auto-post every %s (%s)", cfg.AutoPostInterval, cfg.Location)
			go stack.Engine.Schedule(ctx, cfg.AutoPostInterval, cfg.Location)
		}
	}
	if cfg.JobSecret == "" {
		log.Println("⚠️ JOB_SECRET is empty: /api/v1/jobs is not protected")
	}
	routes.SetupJobRoutes(v1, jobHandler, cfg.JobSecret)

	router.GET("/health", func(c *gin.Context) {
		status := "healthy"
		if cfgErr != nil {
			status = "misconfigured"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  status,
			"version": version,
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		log.Printf("🚀 Server starting on port %s...", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("❌ Shutdown failed: %v", err)
	}
}
