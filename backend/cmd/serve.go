package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fleetpanda/bolextract/backend/config"
	"github.com/fleetpanda/bolextract/backend/handler"
	"github.com/fleetpanda/bolextract/backend/middleware"
	"github.com/fleetpanda/bolextract/backend/pkg/logger"
	"github.com/fleetpanda/bolextract/backend/service"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the extraction web app",
	Long: `Serve the login page, the extraction page and the JSON API behind them.

Every secret listed under the root command must be set.`,
	Example: `  bolextract serve --config config.yaml
  bolextract serve --port 9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Listen port (overrides server.port)")
}

type routes struct {
	auth    *handler.AuthHandler
	extract *handler.ExtractHandler
	catalog *handler.CatalogHandler
}

func runServe(cmd *cobra.Command, args []string) error {
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Server.Port = port
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storageSvc, err := service.NewStorageService(&cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage client: %w", err)
	}
	jobSvc := service.NewJobAPIService(&cfg.JobAPI)
	agentSvc := service.NewAgentService(&cfg.Agent)
	extraction := service.NewExtractionService(storageSvc, jobSvc, agentSvc, pollDelay(&cfg.JobAPI), cfg.Upload.MaxPixels)

	router := newRouter(cfg, routes{
		auth:    handler.NewAuthHandler(&cfg.Auth),
		extract: handler.NewExtractHandler(extraction, &cfg.Upload, &cfg.Catalog),
		catalog: handler.NewCatalogHandler(storageSvc, &cfg.Catalog),
	})

	// Extraction calls have no upper bound, so there is no write timeout.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "server starting", "port", cfg.Server.Port, "static_dir", cfg.Server.StaticDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}
	logger.Info(context.Background(), "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info(context.Background(), "server exited gracefully")
	return nil
}

func pollDelay(c *config.JobAPIConfig) time.Duration {
	return time.Duration(c.PollDelay()) * time.Second
}

func newRouter(cfg *config.Config, r routes) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.MaxMultipartMemory = cfg.Upload.MaxSizeMB << 20

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger("/health"))
	router.Use(corsMiddleware())
	router.Use(cacheMiddleware())

	staticDir := cfg.Server.StaticDir
	router.StaticFile("/", filepath.Join(staticDir, "index.html"))
	for _, name := range []string{"index.html", "login.html", "app.js", "styles.css"} {
		router.StaticFile("/"+name, filepath.Join(staticDir, name))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	api := router.Group("/api")
	{
		api.POST("/auth/login", r.auth.Login)
		api.POST("/auth/logout", r.auth.Logout)
	}

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(&cfg.Auth))
	{
		protected.GET("/auth/me", r.auth.Me)
		protected.GET("/catalog", r.catalog.List)
		protected.GET("/catalog/:filename/preview", r.catalog.Preview)
	}

	// Both extraction routes call paid external services.
	extract := protected.Group("/extract")
	extract.Use(middleware.RateLimit(cfg.Server.RateLimitPerMinute, time.Minute))
	{
		extract.POST("/upload", r.extract.Upload)
		extract.POST("/catalog", r.extract.Catalog)
	}

	return router
}

// corsMiddleware handles CORS headers. The session cookie is same-origin, so
// credentials are never allowed cross-origin.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Authorization, Accept, Origin, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, Retry-After")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// cacheMiddleware keeps API answers out of caches and lets the static pages
// be cached for an hour.
func cacheMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		if strings.HasPrefix(path, "/api") {
			c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
			return
		}

		if strings.HasSuffix(path, ".js") ||
			strings.HasSuffix(path, ".css") ||
			strings.HasSuffix(path, ".html") ||
			path == "/" {
			c.Header("Cache-Control", "public, max-age=3600, must-revalidate")
		}

		c.Next()
	}
}
