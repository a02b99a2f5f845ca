package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/rafabene/avantpro-avatars/docs"
	"github.com/rafabene/avantpro-avatars/internal/bootstrap"
	httphandlers "github.com/rafabene/avantpro-avatars/internal/handlers/http"
	"github.com/rafabene/avantpro-avatars/internal/handlers/middleware"
	"github.com/rafabene/avantpro-avatars/internal/infrastructure/config"
	"github.com/rafabene/avantpro-avatars/internal/infrastructure/i18n"
	"github.com/rafabene/avantpro-avatars/internal/infrastructure/logging"
)

//	@title			AvantPro Avatars API
//	@version		1.0
//	@description	Ciclo de vida de avatares: gravatar, importação por URL, renditions e manutenção.
//	@BasePath		/api/v1
func main() {
	// Carregar configurações
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Inicializar logger
	logger := logging.NewSlogLogger(cfg.Logging.Level)
	logger.Info("starting avantpro avatars api",
		"env", cfg.Env,
		"version", "dev",
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Banco, storage e serviços
	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize application", "error", err)
		log.Fatal(err)
	}
	defer app.Close()

	app.Warmer.Start(ctx)
	defer app.Warmer.Stop()

	// Inicializar i18n
	i18nService, err := i18n.NewEmbeddedService("en")
	if err != nil {
		logger.Error("failed to initialize i18n", "error", err)
		log.Fatal(err)
	}
	logger.Info("i18n initialized",
		"default_language", i18nService.GetDefaultLanguage(),
		"supported_languages", i18nService.GetSupportedLanguages(),
	)

	// Inicializar handlers
	avatarHandler := httphandlers.NewAvatarHandler(app.Resolver, app.Refresher, app.Importer, app.Preferences)
	maintenanceHandler := httphandlers.NewMaintenanceHandler(app.Sweeper, app.StaleRefresher)

	// Setup Gin
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Middleware global para adicionar base URL ao contexto
	router.Use(func(c *gin.Context) {
		c.Set("base_url", cfg.Server.BaseURL)
		c.Next()
	})

	// Middleware i18n
	i18nMiddleware := middleware.NewI18nMiddleware(i18nService)
	router.Use(i18nMiddleware.DetectLanguage())

	// Middleware CORS
	router.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"env":     cfg.Env,
			"uploads": cfg.Uploads.Backend,
		})
	})

	if app.Registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{})))
	}

	docs.SwaggerInfo.BasePath = "/api/v1"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Arquivos locais são servidos pela própria API
	if cfg.Uploads.Backend == "local" {
		router.Static(cfg.Uploads.PublicBaseURL, cfg.Uploads.LocalRoot)
	}

	// API routes
	v1 := router.Group("/api/v1")
	avatarHandler.Register(v1)
	maintenanceHandler.Register(v1)

	// HTTP Server
	srv := &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		logger.Info("server starting",
			"host", cfg.Server.Host,
			"port", cfg.Server.Port,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
