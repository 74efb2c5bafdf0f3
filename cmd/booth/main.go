package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"github.com/tintypelabs/tintype/cmd/booth/handlers"
	"github.com/tintypelabs/tintype/pkg/button"
	"github.com/tintypelabs/tintype/pkg/camera"
	"github.com/tintypelabs/tintype/pkg/config"
	"github.com/tintypelabs/tintype/pkg/logger"
	"github.com/tintypelabs/tintype/pkg/printer"
	"github.com/tintypelabs/tintype/pkg/session"
	"github.com/tintypelabs/tintype/pkg/sound"
	"github.com/tintypelabs/tintype/pkg/storage"
	"github.com/tintypelabs/tintype/pkg/telemetry"
	"github.com/tintypelabs/tintype/pkg/template"
)

// sweepAge is how long composed print files stay around for reprints.
const sweepAge = 30 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", "error", err)
	}
	logger.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, "tintype-booth", cfg.OtelEndpoint)
	if err != nil {
		logger.Fatal("Failed to set up telemetry", "error", err)
	}

	root, err := storage.NewRoot(cfg.StoragePath)
	if err != nil {
		logger.Fatal("Failed to open storage root", "error", err)
	}

	store, err := session.Open(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("Failed to open session store", "error", err)
	}
	defer store.Close()

	source := &camera.V4L2Source{
		Device: cfg.VideoDevice,
		Width:  cfg.FrameWidth,
		Height: cfg.FrameHeight,
	}
	supervisor := camera.NewProcessSupervisor(cfg.VideoDevice, cfg.StartupTimeout)
	supervisor.FirstFrame = source.Probe
	ctrl := camera.NewController(supervisor, source, camera.ControllerConfig{
		SettleDelay:    cfg.SettleDelay,
		CaptureTimeout: cfg.CaptureTimeout,
		Retry: camera.RetryPolicy{
			MaxAttempts: cfg.BusyMaxAttempts,
			Backoff:     cfg.BusyBackoff,
		},
	})

	var dispatcher printer.Dispatcher
	if cfg.UseMockPrinter {
		slog.Info("using mock printer")
		dispatcher = printer.NewMockDispatcher()
	} else {
		dispatcher = printer.NewLPDispatcher(cfg.PrinterName, cfg.PrinterFallbacks, root, cfg.PrintTimeout)
	}

	layout := template.DefaultLayout()
	layout.BackgroundPath = cfg.TemplateBackground
	layout.FontPath = cfg.TemplateFont
	layout.Header = cfg.TemplateHeader
	compositor := template.NewCompositor(layout)

	shutter := sound.NewPlayer(cfg.ShutterSound)

	cameraHandler := &handlers.CameraHandler{
		Ctrl:     ctrl,
		Detector: supervisor,
		Store:    store,
		Root:     root,
		Shutter:  shutter,
	}
	sessionHandler := &handlers.SessionHandler{Store: store}
	printHandler := &handlers.PrintHandler{
		Store:      store,
		Root:       root,
		Dispatcher: dispatcher,
		Compositor: compositor,
		PaperSize:  cfg.PaperSize,
		Resolution: cfg.PrintResolution,
	}
	statusHandler := &handlers.StatusHandler{
		Ctrl:       ctrl,
		Detector:   supervisor,
		Dispatcher: dispatcher,
		Root:       root,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()
	router.SetTrustedProxies([]string{"127.0.0.1"})
	router.Use(sessions.Sessions("booth", cookie.NewStore([]byte(cfg.SessionSecret))))

	api := router.Group("/api")
	api.GET("/camera/preview", cameraHandler.Stream)
	api.POST("/camera/start", cameraHandler.Start)
	api.POST("/camera/stop", cameraHandler.Stop)
	api.POST("/camera/capture", cameraHandler.Capture)
	api.POST("/camera/reset", cameraHandler.Reset)

	api.POST("/sessions", sessionHandler.Create)
	api.GET("/sessions/:id", sessionHandler.Get)
	api.PATCH("/sessions/:id", sessionHandler.Update)
	api.POST("/sessions/:id/story", sessionHandler.Story)

	api.POST("/print", printHandler.Print)
	api.POST("/print/preview", printHandler.Preview)

	router.GET("/images/*filepath", statusHandler.Image)
	router.GET("/healthz", statusHandler.Health)

	// The physical button mirrors the capture route. No session is bound,
	// the frontend picks the newest photo up afterwards.
	btn, err := button.Watch(cfg.ButtonChip, cfg.ButtonPin, func() {
		captureCtx, cancel := context.WithTimeout(context.Background(), cfg.CaptureTimeout+cfg.SettleDelay)
		defer cancel()
		if _, _, err := cameraHandler.CaptureToStorage(captureCtx, ""); err != nil {
			slog.Error("button capture failed", "error", err)
		}
	})
	if err != nil {
		logger.Fatal("Failed to set up capture button", "error", err)
	}
	defer btn.Close()

	c := cron.New(
		cron.WithChain(cron.SkipIfStillRunning(&logger.CronLogger{Logger: slog.Default()})),
	)
	c.AddFunc("*/5 * * * *", func() { sweepComposedCards(root) })
	c.AddFunc("* * * * *", func() {
		if ctrl.State() != camera.StateFailed {
			return
		}
		slog.Warn("camera in failed state, attempting automatic reset", "error", ctrl.LastError())
		resetCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := ctrl.Reset(resetCtx); err != nil {
			slog.Error("automatic camera reset failed", "error", err)
		}
	})
	c.Start()
	defer c.Stop()

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}
	go func() {
		slog.Info("booth listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", "error", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}
	if err := ctrl.StopPreview(); err != nil {
		slog.Error("preview stop failed", "error", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		slog.Error("telemetry shutdown failed", "error", err)
	}
}

// sweepComposedCards deletes print_*.png older than sweepAge. Captures are
// kept; only the rendered cards are reproducible.
func sweepComposedCards(root *storage.Root) {
	entries, err := os.ReadDir(root.Dir())
	if err != nil {
		slog.Error("sweep failed to read storage root", "error", err)
		return
	}
	cutoff := time.Now().Add(-sweepAge)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "print_") || !strings.HasSuffix(name, ".png") {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(root.Dir(), name)); err != nil {
			slog.Error("sweep failed to remove card", "file", name, "error", err)
			continue
		}
		slog.Debug("swept composed card", "file", name)
	}
}
