package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string        `toml:"environment"` // "development" or "production"
	Browser     BrowserConfig `toml:"browser"`
	Capture     CaptureConfig `toml:"capture"`
	Batch       BatchConfig   `toml:"batch"`
	Storage     StorageConfig `toml:"storage"`
	Logging     LoggingConfig `toml:"logging"`
}

// BrowserConfig controls the Chrome instance driven over CDP
type BrowserConfig struct {
	Headless       bool          `toml:"headless"`         // Headless mode; interactive SSO login requires headed
	UserAgent      string        `toml:"user_agent"`       // User agent override
	UserDataDir    string        `toml:"user_data_dir"`    // Persistent Chrome profile directory ("" = ephemeral)
	WindowWidth    int           `toml:"window_width" validate:"gt=0"`
	WindowHeight   int           `toml:"window_height" validate:"gt=0"`
	NavTimeout     time.Duration `toml:"nav_timeout"`      // Per-navigation timeout (soft - page may still be usable)
	SettleTimeout  time.Duration `toml:"settle_timeout"`   // Wait for an interrupting SSO redirect to settle
	MaxSSOAttempts int           `toml:"max_sso_attempts" validate:"gte=1"` // Bounded retries after interactive login
	NoSandbox      bool          `toml:"no_sandbox"`
	DisableGPU     bool          `toml:"disable_gpu"`
}

// CaptureConfig controls per-target readiness gating and artifact production
type CaptureConfig struct {
	OutputDir        string        `toml:"output_dir" validate:"required"`
	Formats          []string      `toml:"formats" validate:"min=1,dive,oneof=html screenshot pdf mhtml docx markdown"`
	MinChars         int           `toml:"min_chars" validate:"gte=0"` // Readiness threshold (visible text length)
	ReadinessTimeout time.Duration `toml:"readiness_timeout"`          // Max time to poll for content
	PollInterval     time.Duration `toml:"poll_interval"`              // Content poll interval
	MaxImageWidthIn  float64       `toml:"max_image_width_in"`         // Max embedded image width in inches (docx/pdf)
	ImageTimeout     time.Duration `toml:"image_timeout"`              // Per-image fetch timeout
	ImageMaxBytes    int64         `toml:"image_max_bytes"`            // Per-image size cap
	ImageRatePerSec  float64       `toml:"image_rate_per_sec"`         // Image fetch rate limit
	ScrollStep       int           `toml:"scroll_step"`                // Lazy-load scroll step in pixels
	ScrollDelay      time.Duration `toml:"scroll_delay"`               // Delay between scroll steps
}

// BatchConfig controls iteration over a target list
type BatchConfig struct {
	BaseHost    string        `toml:"base_host"`    // e.g. "https://myservice.example.com"
	URLTemplate string        `toml:"url_template"` // KB URL template, {KB} is replaced
	SkipDirect  bool          `toml:"skip_direct"`  // Do not decode /target/ wrapper URLs
	TargetDelay time.Duration `toml:"target_delay"` // Minimum spacing between targets
	MaxTargets  int           `toml:"max_targets"`  // 0 = all
	ResultsCSV  bool          `toml:"results_csv"`  // Write results_<stamp>.csv to the output dir
	Schedule    string        `toml:"schedule"`     // Optional cron expression for repeated runs
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"oneof=trace debug info warn error"` // Log level
	Output []string `toml:"output"`                                             // "stdout", "file"
}

// NewDefaultConfig returns the built-in defaults, matching the behavior of
// the most refined capture variants.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Browser: BrowserConfig{
			Headless:       true,
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			WindowWidth:    1400,
			WindowHeight:   900,
			NavTimeout:     240 * time.Second,
			SettleTimeout:  30 * time.Second,
			MaxSSOAttempts: 3,
			NoSandbox:      false,
			DisableGPU:     true,
		},
		Capture: CaptureConfig{
			OutputDir:        "./kb_exports",
			Formats:          []string{"html", "docx"},
			MinChars:         800,
			ReadinessTimeout: 240 * time.Second,
			PollInterval:     250 * time.Millisecond,
			MaxImageWidthIn:  6.0,
			ImageTimeout:     60 * time.Second,
			ImageMaxBytes:    10 * 1024 * 1024, // 10MB
			ImageRatePerSec:  4,
			ScrollStep:       900,
			ScrollDelay:      400 * time.Millisecond,
		},
		Batch: BatchConfig{
			URLTemplate: "/kb_view.do?sysparm_article={KB}",
			TargetDelay: 1 * time.Second,
			ResultsCSV:  true,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env. Later files override earlier ones.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the merged configuration against the struct tags.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("KAPTURE_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Browser configuration
	if headless := os.Getenv("KAPTURE_BROWSER_HEADLESS"); headless != "" {
		if h, err := strconv.ParseBool(headless); err == nil {
			config.Browser.Headless = h
		}
	}
	if userAgent := os.Getenv("KAPTURE_BROWSER_USER_AGENT"); userAgent != "" {
		config.Browser.UserAgent = userAgent
	}
	if dataDir := os.Getenv("KAPTURE_BROWSER_USER_DATA_DIR"); dataDir != "" {
		config.Browser.UserDataDir = dataDir
	}

	// Capture configuration
	if outDir := os.Getenv("KAPTURE_OUTPUT_DIR"); outDir != "" {
		config.Capture.OutputDir = outDir
	}
	if formats := os.Getenv("KAPTURE_FORMATS"); formats != "" {
		parsed := []string{}
		for _, f := range strings.Split(formats, ",") {
			if trimmed := strings.TrimSpace(f); trimmed != "" {
				parsed = append(parsed, trimmed)
			}
		}
		if len(parsed) > 0 {
			config.Capture.Formats = parsed
		}
	}
	if minChars := os.Getenv("KAPTURE_MIN_CHARS"); minChars != "" {
		if mc, err := strconv.Atoi(minChars); err == nil {
			config.Capture.MinChars = mc
		}
	}

	// Batch configuration
	if baseHost := os.Getenv("KAPTURE_BASE_HOST"); baseHost != "" {
		config.Batch.BaseHost = baseHost
	}

	// Storage configuration
	if badgerPath := os.Getenv("KAPTURE_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("KAPTURE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("KAPTURE_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// ApplyFlagOverrides applies CLI flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, outputDir string, headed bool, minChars int) {
	if outputDir != "" {
		config.Capture.OutputDir = outputDir
	}
	if headed {
		config.Browser.Headless = false
	}
	if minChars > 0 {
		config.Capture.MinChars = minChars
	}
}
