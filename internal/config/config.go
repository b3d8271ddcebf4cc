// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Challenge() ChallengeConfig
	Vision() VisionConfig
	Drag() DragConfig
	Solver() SolverConfig
	Debug() DebugConfig
	NATS() NATSConfig
	Store() StoreConfig

	// Setters used by CLI flags.
	SetChallengeURL(string)
	SetBrowserHeadless(bool)
	SetBrowserDriver(string)
	SetDebugEnabled(bool)
	SetSolverMaxAttempts(int)
	SetNATSRemote(bool)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	BrowserCfg   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	ChallengeCfg ChallengeConfig `mapstructure:"challenge" yaml:"challenge"`
	VisionCfg    VisionConfig    `mapstructure:"vision" yaml:"vision"`
	DragCfg      DragConfig      `mapstructure:"drag" yaml:"drag"`
	SolverCfg    SolverConfig    `mapstructure:"solver" yaml:"solver"`
	DebugCfg     DebugConfig     `mapstructure:"debug" yaml:"debug"`
	NATSCfg      NATSConfig      `mapstructure:"nats" yaml:"nats"`
	StoreCfg     StoreConfig     `mapstructure:"store" yaml:"store"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig       { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig     { return c.BrowserCfg }
func (c *Config) Challenge() ChallengeConfig { return c.ChallengeCfg }
func (c *Config) Vision() VisionConfig       { return c.VisionCfg }
func (c *Config) Drag() DragConfig           { return c.DragCfg }
func (c *Config) Solver() SolverConfig       { return c.SolverCfg }
func (c *Config) Debug() DebugConfig         { return c.DebugCfg }
func (c *Config) NATS() NATSConfig           { return c.NATSCfg }
func (c *Config) Store() StoreConfig         { return c.StoreCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetChallengeURL(u string)   { c.ChallengeCfg.URL = u }
func (c *Config) SetBrowserHeadless(b bool)  { c.BrowserCfg.Headless = b }
func (c *Config) SetBrowserDriver(d string)  { c.BrowserCfg.Driver = d }
func (c *Config) SetDebugEnabled(b bool)     { c.DebugCfg.Enabled = b }
func (c *Config) SetSolverMaxAttempts(n int) { c.SolverCfg.MaxAttempts = n }
func (c *Config) SetNATSRemote(b bool)       { c.NATSCfg.Remote = b }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

const (
	DriverChromedp = "chromedp"
	DriverRod      = "rod"
)

// BrowserConfig selects and configures the browser driver.
type BrowserConfig struct {
	Driver       string `mapstructure:"driver" yaml:"driver"`
	Headless     bool   `mapstructure:"headless" yaml:"headless"`
	NoSandbox    bool   `mapstructure:"no_sandbox" yaml:"no_sandbox"`
	ExecPath     string `mapstructure:"exec_path" yaml:"exec_path"`
	ControlURL   string `mapstructure:"control_url" yaml:"control_url"`
	WindowWidth  int    `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight int    `mapstructure:"window_height" yaml:"window_height"`
}

// ChallengeConfig describes the page and the widget's selectors.
type ChallengeConfig struct {
	URL             string        `mapstructure:"url" yaml:"url"`
	VerifySelector  string        `mapstructure:"verify_selector" yaml:"verify_selector"`
	CanvasSelector  string        `mapstructure:"canvas_selector" yaml:"canvas_selector"`
	HandleSelector  string        `mapstructure:"handle_selector" yaml:"handle_selector"`
	RefreshSelector string        `mapstructure:"refresh_selector" yaml:"refresh_selector"`
	WaitTimeout     time.Duration `mapstructure:"wait_timeout" yaml:"wait_timeout"`
	PostOpenWait    time.Duration `mapstructure:"post_open_wait" yaml:"post_open_wait"`
	OverlayIndex    int           `mapstructure:"overlay_index" yaml:"overlay_index"`
	PieceIndex      int           `mapstructure:"piece_index" yaml:"piece_index"`
	OriginalIndex   int           `mapstructure:"original_index" yaml:"original_index"`
}

// VisionConfig holds the image pipeline tunables.
type VisionConfig struct {
	Backend     string  `mapstructure:"backend" yaml:"backend"`
	Threshold   float64 `mapstructure:"threshold" yaml:"threshold"`
	IncludeAA   bool    `mapstructure:"include_aa" yaml:"include_aa"`
	SlotCutoff  int     `mapstructure:"slot_cutoff" yaml:"slot_cutoff"`
	PieceCutoff int     `mapstructure:"piece_cutoff" yaml:"piece_cutoff"`
	KernelSize  int     `mapstructure:"kernel_size" yaml:"kernel_size"`
}

// DragConfig configures the two-phase drag.
type DragConfig struct {
	Steps          int           `mapstructure:"steps" yaml:"steps"`
	SettlePause    time.Duration `mapstructure:"settle_pause" yaml:"settle_pause"`
	StepInterval   time.Duration `mapstructure:"step_interval" yaml:"step_interval"`
	VerticalBias   float64       `mapstructure:"vertical_bias" yaml:"vertical_bias"`
	ReleaseTimeout time.Duration `mapstructure:"release_timeout" yaml:"release_timeout"`
}

// SolverConfig controls attempts and batch analysis.
type SolverConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	AttemptInterval time.Duration `mapstructure:"attempt_interval" yaml:"attempt_interval"`
	Concurrency     int           `mapstructure:"concurrency" yaml:"concurrency"`
}

// DebugConfig controls the optional artifacts written during a run.
type DebugConfig struct {
	Enabled             bool   `mapstructure:"enabled" yaml:"enabled"`
	Dir                 string `mapstructure:"dir" yaml:"dir"`
	SaveSamples         bool   `mapstructure:"save_samples" yaml:"save_samples"`
	ScreenshotOnFailure bool   `mapstructure:"screenshot_on_failure" yaml:"screenshot_on_failure"`
}

// NATSConfig configures the remote vision service and client.
type NATSConfig struct {
	URL            string        `mapstructure:"url" yaml:"url"`
	Subject        string        `mapstructure:"subject" yaml:"subject"`
	Queue          string        `mapstructure:"queue" yaml:"queue"`
	Remote         bool          `mapstructure:"remote" yaml:"remote"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

const (
	StoreNone     = "none"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// StoreConfig selects where attempt records are kept.
type StoreConfig struct {
	Type     string         `mapstructure:"type" yaml:"type"`
	Redis    RedisConfig    `mapstructure:"redis" yaml:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
}

// RedisConfig holds the redis connection and list settings.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"-"`
	DB       int           `mapstructure:"db" yaml:"db"`
	Key      string        `mapstructure:"key" yaml:"key"`
	MaxLen   int64         `mapstructure:"max_len" yaml:"max_len"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// PostgresConfig holds the connection string for the attempts table.
type PostgresConfig struct {
	URL string `mapstructure:"url" yaml:"-"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "slidejig")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.driver", DriverChromedp)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.no_sandbox", false)
	v.SetDefault("browser.window_width", 1280)
	v.SetDefault("browser.window_height", 900)

	// -- Challenge --
	v.SetDefault("challenge.verify_selector", `[aria-label="Click to verify"]`)
	v.SetDefault("challenge.canvas_selector", ".geetest_canvas_img canvas")
	v.SetDefault("challenge.handle_selector", ".geetest_slider_button")
	v.SetDefault("challenge.refresh_selector", ".geetest_refresh_1")
	v.SetDefault("challenge.wait_timeout", "30s")
	v.SetDefault("challenge.post_open_wait", "1s")
	v.SetDefault("challenge.overlay_index", 0)
	v.SetDefault("challenge.piece_index", 1)
	v.SetDefault("challenge.original_index", 2)

	// -- Vision --
	v.SetDefault("vision.backend", "native")
	v.SetDefault("vision.threshold", 0.1)
	v.SetDefault("vision.include_aa", false)
	v.SetDefault("vision.slot_cutoff", 127)
	v.SetDefault("vision.piece_cutoff", 127)
	v.SetDefault("vision.kernel_size", 5)

	// -- Drag --
	v.SetDefault("drag.steps", 25)
	v.SetDefault("drag.settle_pause", "100ms")
	v.SetDefault("drag.step_interval", "0s")
	v.SetDefault("drag.vertical_bias", 1.0/3.0)
	v.SetDefault("drag.release_timeout", "5s")

	// -- Solver --
	v.SetDefault("solver.max_attempts", 1)
	v.SetDefault("solver.attempt_interval", "3s")
	v.SetDefault("solver.concurrency", 4)

	// -- Debug --
	v.SetDefault("debug.enabled", false)
	v.SetDefault("debug.dir", "./slidejig-debug")
	v.SetDefault("debug.save_samples", false)
	v.SetDefault("debug.screenshot_on_failure", true)

	// -- NATS --
	v.SetDefault("nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("nats.subject", "jobs.captcha.slider")
	v.SetDefault("nats.queue", "vision")
	v.SetDefault("nats.remote", false)
	v.SetDefault("nats.request_timeout", "10s")

	// -- Store --
	v.SetDefault("store.type", StoreNone)
	v.SetDefault("store.redis.addr", "127.0.0.1:6379")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.key", "slidejig:attempts")
	v.SetDefault("store.redis.max_len", 1000)
	v.SetDefault("store.redis.ttl", "168h")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	_ = v.BindEnv("store.redis.password", "SLIDEJIG_REDIS_PASSWORD")
	_ = v.BindEnv("store.postgres.url", "SLIDEJIG_DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.DebugCfg.Dir, &c.LoggerCfg.LogFile, &c.BrowserCfg.ExecPath} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("failed to expand path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.BrowserCfg.Validate(); err != nil {
		return fmt.Errorf("browser configuration invalid: %w", err)
	}
	if err := c.ChallengeCfg.Validate(); err != nil {
		return fmt.Errorf("challenge configuration invalid: %w", err)
	}
	if err := c.VisionCfg.Validate(); err != nil {
		return fmt.Errorf("vision configuration invalid: %w", err)
	}
	if err := c.DragCfg.Validate(); err != nil {
		return fmt.Errorf("drag configuration invalid: %w", err)
	}
	if c.SolverCfg.MaxAttempts <= 0 {
		return fmt.Errorf("solver.max_attempts must be a positive integer")
	}
	if c.SolverCfg.Concurrency <= 0 {
		return fmt.Errorf("solver.concurrency must be a positive integer")
	}
	if c.DebugCfg.Enabled && c.DebugCfg.Dir == "" {
		return fmt.Errorf("debug.dir is required when debug is enabled")
	}
	if c.NATSCfg.Remote && c.NATSCfg.URL == "" {
		return fmt.Errorf("nats.url is required when nats.remote is set")
	}
	if err := c.StoreCfg.Validate(); err != nil {
		return fmt.Errorf("store configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the BrowserConfig settings.
func (b *BrowserConfig) Validate() error {
	switch b.Driver {
	case DriverChromedp, DriverRod:
	default:
		return fmt.Errorf("driver must be %q or %q, got %q", DriverChromedp, DriverRod, b.Driver)
	}
	if b.WindowWidth < 0 || b.WindowHeight < 0 {
		return fmt.Errorf("window size must not be negative")
	}
	return nil
}

// Validate checks the ChallengeConfig settings.
func (ch *ChallengeConfig) Validate() error {
	if strings.TrimSpace(ch.CanvasSelector) == "" || strings.TrimSpace(ch.HandleSelector) == "" {
		return fmt.Errorf("canvas_selector and handle_selector are required")
	}
	if ch.WaitTimeout <= 0 {
		return fmt.Errorf("wait_timeout must be a positive duration")
	}
	if ch.PostOpenWait < 0 {
		return fmt.Errorf("post_open_wait must not be negative")
	}
	idx := map[int]bool{}
	for _, i := range []int{ch.OverlayIndex, ch.PieceIndex, ch.OriginalIndex} {
		if i < 0 {
			return fmt.Errorf("canvas indexes must not be negative")
		}
		if idx[i] {
			return fmt.Errorf("overlay_index, piece_index and original_index must differ")
		}
		idx[i] = true
	}
	return nil
}

// Validate checks the VisionConfig settings.
func (vc *VisionConfig) Validate() error {
	if vc.Threshold < 0 || vc.Threshold > 1 {
		return fmt.Errorf("threshold must be between 0.0 and 1.0")
	}
	for name, c := range map[string]int{"slot_cutoff": vc.SlotCutoff, "piece_cutoff": vc.PieceCutoff} {
		if c < 0 || c > 255 {
			return fmt.Errorf("%s must be between 0 and 255", name)
		}
	}
	if vc.KernelSize <= 0 {
		return fmt.Errorf("kernel_size must be a positive integer")
	}
	return nil
}

// Validate checks the DragConfig settings.
func (d *DragConfig) Validate() error {
	if d.Steps <= 0 {
		return fmt.Errorf("steps must be a positive integer")
	}
	if d.SettlePause < 0 || d.StepInterval < 0 {
		return fmt.Errorf("settle_pause and step_interval must not be negative")
	}
	if d.VerticalBias < 0 || d.VerticalBias > 1 {
		return fmt.Errorf("vertical_bias must be between 0.0 and 1.0")
	}
	if d.ReleaseTimeout <= 0 {
		return fmt.Errorf("release_timeout must be a positive duration")
	}
	return nil
}

// Validate checks the StoreConfig settings.
func (s *StoreConfig) Validate() error {
	switch s.Type {
	case "", StoreNone:
	case StoreRedis:
		if s.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required for the redis store")
		}
	case StorePostgres:
		if s.Postgres.URL == "" {
			return fmt.Errorf("postgres.url is required for the postgres store. Ensure SLIDEJIG_DATABASE_URL is set")
		}
	default:
		return fmt.Errorf("unknown store type %q", s.Type)
	}
	return nil
}
