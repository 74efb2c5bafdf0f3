// Package config loads the kiosk configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every tunable of the booth process. Camera timing values are
// deliberately configuration rather than constants: the settle delay and busy
// retry bounds that work for one camera model are wrong for another, and the
// deployed body is rarely the one the software was developed against.
type Config struct {
	Addr     string `env:"ADDR" envDefault:":8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	VideoDevice string `env:"VIDEO_DEVICE" envDefault:"/dev/video0"`
	FrameWidth  int    `env:"FRAME_WIDTH" envDefault:"1920"`
	FrameHeight int    `env:"FRAME_HEIGHT" envDefault:"1080"`

	StoragePath  string `env:"STORAGE_PATH" envDefault:"./storage"`
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./booth.db"`

	SettleDelay     time.Duration `env:"SETTLE_DELAY" envDefault:"500ms"`
	StartupTimeout  time.Duration `env:"STARTUP_TIMEOUT" envDefault:"10s"`
	CaptureTimeout  time.Duration `env:"CAPTURE_TIMEOUT" envDefault:"30s"`
	BusyMaxAttempts int           `env:"BUSY_MAX_ATTEMPTS" envDefault:"3"`
	BusyBackoff     time.Duration `env:"BUSY_BACKOFF" envDefault:"1s"`

	PrinterName      string        `env:"PRINTER_NAME" envDefault:"DNP_DS620"`
	PrinterFallbacks []string      `env:"PRINTER_FALLBACKS" envSeparator:"," envDefault:""`
	UseMockPrinter   bool          `env:"USE_MOCK_PRINTER" envDefault:"false"`
	PrintTimeout     time.Duration `env:"PRINT_TIMEOUT" envDefault:"15s"`
	PaperSize        string        `env:"PAPER_SIZE" envDefault:"w288h432"`
	PrintResolution  string        `env:"PRINT_RESOLUTION" envDefault:"300x300dpi"`

	TemplateBackground string `env:"TEMPLATE_BACKGROUND" envDefault:""`
	TemplateFont       string `env:"TEMPLATE_FONT" envDefault:"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf"`
	TemplateHeader     string `env:"TEMPLATE_HEADER" envDefault:"Essen Spiel '25"`

	SessionSecret string `env:"SESSION_SECRET" envDefault:"tintype-kiosk"`

	ShutterSound string `env:"SHUTTER_SOUND" envDefault:""`
	ButtonChip   string `env:"BUTTON_CHIP" envDefault:"gpiochip0"`
	ButtonPin    int    `env:"BUTTON_PIN" envDefault:"-1"`

	OtelEndpoint string `env:"OTEL_ENDPOINT" envDefault:""`
}

// Load parses the environment into a Config and validates the ranges that
// would otherwise fail in confusing ways deep inside the camera layer.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.BusyMaxAttempts < 1 {
		return nil, fmt.Errorf("BUSY_MAX_ATTEMPTS must be at least 1, got %d", cfg.BusyMaxAttempts)
	}
	if cfg.SettleDelay < 0 {
		return nil, fmt.Errorf("SETTLE_DELAY must not be negative, got %s", cfg.SettleDelay)
	}
	if cfg.FrameWidth <= 0 || cfg.FrameHeight <= 0 {
		return nil, fmt.Errorf("frame dimensions must be positive, got %dx%d", cfg.FrameWidth, cfg.FrameHeight)
	}
	return &cfg, nil
}
