package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/biomech-visualizer/backend/internal/api"
	"github.com/biomech-visualizer/backend/internal/config"
	"github.com/biomech-visualizer/backend/internal/models"
	"github.com/biomech-visualizer/backend/internal/overlay"
	"github.com/biomech-visualizer/backend/internal/painmap"
	"github.com/biomech-visualizer/backend/internal/session"
	"github.com/biomech-visualizer/backend/internal/storage"
	"github.com/biomech-visualizer/backend/internal/web"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath, err := resolveConfigPath()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log.SetLevel(cfg.LogLevel())
	log.SetHeader("${time_rfc3339} ${level}")

	// Ensure all data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("Failed to create directories: %v", err)
	}

	// Check if running in embedded mode (frontend built into binary)
	embeddedMode := web.HasEmbeddedFiles()

	images, err := storage.NewLocalStore(cfg.Storage.ImagesDirectory, cfg.Storage.MaxImageBytes)
	if err != nil {
		log.Fatalf("Failed to initialize image storage: %v", err)
	}

	repo, err := storage.NewDuckRepository(cfg.Storage.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer repo.Close()

	regions := painmap.DefaultRegionMap()
	if cfg.BodyMap.RegionsFile != "" {
		loaded, err := painmap.LoadRegionMap(cfg.BodyMap.RegionsFile)
		if err != nil {
			log.Warnf("Failed to load region map %s, using defaults: %v", cfg.BodyMap.RegionsFile, err)
		} else {
			regions = loaded
		}
	}

	sessionMgr := session.NewManager(repo,
		session.WithMaxSessions(cfg.Session.MaxSessions),
		session.WithRegionMap(regions),
		session.WithToolColors(toolColors(cfg.Annotation.Colors)),
		session.WithSaveTimeout(time.Duration(cfg.Session.SaveTimeoutSeconds)*time.Second),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start background session cleanup
	go sessionMgr.RunCleanup(ctx, cfg.CleanupInterval(), cfg.SessionTimeout())

	overlayCfg := overlay.DefaultConfig()
	overlayCfg.VisibilityThreshold = cfg.Overlay.VisibilityThreshold
	overlayCfg.Joints = cfg.Overlay.Joints
	overlayCfg.AngleThreshold = cfg.Overlay.AngleThreshold

	var replay []models.FrameResults
	if cfg.Overlay.ReplayFile != "" {
		replay, err = overlay.LoadRecording(cfg.Overlay.ReplayFile)
		if err != nil {
			log.Warnf("Failed to load replay recording %s: %v", cfg.Overlay.ReplayFile, err)
		} else {
			log.Infof("Loaded replay recording with %d frames", len(replay))
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(cfg.LogLevel())
	api.SetupMiddleware(e)
	api.ShowErrorDetails = cfg.LogLevel() <= log.DEBUG

	// Configure middleware
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Skip logging if disabled in config
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return strings.HasSuffix(path, "/keepalive") ||
				strings.HasSuffix(path, "/drag") ||
				path == "/api/health"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize:         1024 * 4,
		DisablePrintStack: false,
		LogLevel:          log.ERROR,
	}))

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		Skipper: func(c echo.Context) bool {
			return strings.HasSuffix(c.Request().URL.Path, "/ws")
		},
		ErrorMessage: "Request timeout",
	}))

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			// PNG is already compressed and websockets need the raw writer.
			return strings.HasSuffix(path, "/ws") ||
				strings.HasSuffix(path, "/render") ||
				strings.HasSuffix(path, "/overlay/frame")
		},
	}))

	// Body limit middleware
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// CORS configuration
	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}

	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Images:          images,
		SessionMgr:      sessionMgr,
		Regions:         regions,
		Overlay:         overlay.New(overlayCfg),
		Replay:          replay,
		ReplayFPS:       cfg.Overlay.ReplayFPS,
		ReplayLoop:      cfg.Overlay.ReplayLoop,
		MaxMessageBytes: int64(cfg.Overlay.MaxMessageKB) * 1024,
		Version:         Version,
	}))

	// Register embedded frontend if available
	if embeddedMode {
		if err := web.RegisterStaticRoutes(e); err != nil {
			log.Warnf("Failed to register static routes: %v", err)
		} else {
			log.Info("Serving embedded frontend from binary")
		}
	}

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	printBanner(configPath, cfg)

	go func() {
		if err := e.StartServer(s); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Shutdown: %v", err)
	}
}

// resolveConfigPath prefers $CONFIG_PATH, then config.yaml next to the executable.
func resolveConfigPath() (string, error) {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p, nil
	}
	exePath, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(exePath), "config.yaml"), nil
}

func toolColors(in map[string]string) map[models.AnnotationType]string {
	out := make(map[models.AnnotationType]string, len(in))
	for tool, color := range in {
		out[models.AnnotationType(tool)] = color
	}
	return out
}

func printBanner(configPath string, cfg *config.AppConfig) {
	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Biomech Visualizer Server                       ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Database:  %-46s║\n", cfg.Storage.DatabasePath)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")
}
