// Package config provides configuration management for the Heimdex Editor.
// Values come from built-in defaults, then an optional TOML file, then
// environment variables (a .env file in the working directory is loaded
// first and never overrides variables that are already set).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	// Default values
	DefaultPort      = 8787
	DefaultLogLevel  = "info"
	DefaultLogFormat = "auto"
	DefaultDataDir   = ".heimdex-editor"

	DefaultRenderTimeout       = 5 * time.Minute
	DefaultProbeTimeout        = 30 * time.Second
	DefaultKeepFailedArtifacts = true
	DefaultSessionIdleTimeout  = time.Hour
	DefaultSweepInterval       = time.Hour
	DefaultExportPollInterval  = 2 * time.Second
	DefaultCanvasWidth         = 1920
	DefaultCanvasHeight        = 1080

	// Environment variable names
	EnvConfigFile          = "HEIMDEX_EDITOR_CONFIG"
	EnvPort                = "HEIMDEX_EDITOR_PORT"
	EnvLogLevel            = "HEIMDEX_EDITOR_LOG_LEVEL"
	EnvLogFormat           = "HEIMDEX_EDITOR_LOG_FORMAT"
	EnvDataDir             = "HEIMDEX_EDITOR_DATA_DIR"
	EnvFFmpegPath          = "HEIMDEX_EDITOR_FFMPEG"
	EnvFFprobePath         = "HEIMDEX_EDITOR_FFPROBE"
	EnvRenderTimeout       = "HEIMDEX_EDITOR_RENDER_TIMEOUT"
	EnvRenderWorkers       = "HEIMDEX_EDITOR_RENDER_WORKERS"
	EnvKeepFailedArtifacts = "HEIMDEX_EDITOR_KEEP_FAILED_ARTIFACTS"
	EnvSessionIdleTimeout  = "HEIMDEX_EDITOR_SESSION_IDLE_TIMEOUT"
	EnvSweepInterval       = "HEIMDEX_EDITOR_SWEEP_INTERVAL"
	EnvExportPollInterval  = "HEIMDEX_EDITOR_EXPORT_POLL_INTERVAL"
	EnvCanvasWidth         = "HEIMDEX_EDITOR_CANVAS_WIDTH"
	EnvCanvasHeight        = "HEIMDEX_EDITOR_CANVAS_HEIGHT"
	EnvMediaRoot           = "HEIMDEX_EDITOR_MEDIA_ROOT"
	EnvDefaultFont         = "HEIMDEX_EDITOR_DEFAULT_FONT"
	EnvWebhookURL          = "HEIMDEX_EDITOR_WEBHOOK_URL"
	EnvWebhookToken        = "HEIMDEX_EDITOR_WEBHOOK_TOKEN"

	// S3 settings
	EnvS3Region        = "HEIMDEX_EDITOR_S3_REGION"
	EnvS3Endpoint      = "HEIMDEX_EDITOR_S3_ENDPOINT"
	EnvS3AccessKey     = "HEIMDEX_EDITOR_S3_ACCESS_KEY"
	EnvS3SecretKey     = "HEIMDEX_EDITOR_S3_SECRET_KEY"
	EnvS3PathStyle     = "HEIMDEX_EDITOR_S3_PATH_STYLE"
	EnvS3AssetsEnabled = "HEIMDEX_EDITOR_S3_ASSETS"
	EnvPublishBucket   = "HEIMDEX_EDITOR_PUBLISH_BUCKET"
	EnvPublishPrefix   = "HEIMDEX_EDITOR_PUBLISH_PREFIX"

	// File names inside the data directory
	DBFilename     = "editor.db"
	ConfigFilename = "config.toml"
	LockFilename   = "editor.lock"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	LogFormat() string
	DataDir() string
	DBPath() string
	LockPath() string
	CacheDir() string
	ExportDir() string
	WorkDir() string

	FFmpegPath() string
	FFprobePath() string
	RenderTimeout() time.Duration
	ProbeTimeout() time.Duration
	RenderWorkers() int
	KeepFailedArtifacts() bool

	SessionIdleTimeout() time.Duration
	SweepInterval() time.Duration
	ExportPollInterval() time.Duration
	CanvasSize() (int, int)

	MediaRoot() string
	DefaultFont() string
	FontAliases() map[string]string

	S3() S3Settings
	S3AssetsEnabled() bool
	PublishBucket() string
	PublishPrefix() string
	WebhookURL() string
	WebhookToken() string
}

// S3Settings holds the object storage connection settings.
type S3Settings struct {
	Region    string `toml:"region"`
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	PathStyle bool   `toml:"path_style"`
}

// fileConfig mirrors the TOML layout. Durations are Go duration strings.
type fileConfig struct {
	DataDir string `toml:"data_dir"`

	Server struct {
		Port      int    `toml:"port"`
		LogLevel  string `toml:"log_level"`
		LogFormat string `toml:"log_format"`
	} `toml:"server"`

	Engine struct {
		FFmpegPath          string `toml:"ffmpeg_path"`
		FFprobePath         string `toml:"ffprobe_path"`
		RenderTimeout       string `toml:"render_timeout"`
		Workers             int    `toml:"workers"`
		KeepFailedArtifacts *bool  `toml:"keep_failed_artifacts"`
	} `toml:"engine"`

	Session struct {
		IdleTimeout   string `toml:"idle_timeout"`
		SweepInterval string `toml:"sweep_interval"`
	} `toml:"session"`

	Export struct {
		PollInterval  string `toml:"poll_interval"`
		WebhookURL    string `toml:"webhook_url"`
		WebhookToken  string `toml:"webhook_token"`
		PublishBucket string `toml:"publish_bucket"`
		PublishPrefix string `toml:"publish_prefix"`
	} `toml:"export"`

	Canvas struct {
		Width  int `toml:"width"`
		Height int `toml:"height"`
	} `toml:"canvas"`

	Media struct {
		Root        string            `toml:"root"`
		DefaultFont string            `toml:"default_font"`
		FontAliases map[string]string `toml:"font_aliases"`
		S3Assets    bool              `toml:"s3_assets"`
	} `toml:"media"`

	S3 S3Settings `toml:"s3"`
}

// EnvConfig holds the resolved configuration.
type EnvConfig struct {
	port      int
	logLevel  string
	logFormat string
	dataDir   string
	file      string

	ffmpegPath          string
	ffprobePath         string
	renderTimeout       time.Duration
	renderWorkers       int
	keepFailedArtifacts bool

	sessionIdleTimeout time.Duration
	sweepInterval      time.Duration
	exportPollInterval time.Duration
	canvasWidth        int
	canvasHeight       int

	mediaRoot   string
	defaultFont string
	fontAliases map[string]string

	s3            S3Settings
	s3Assets      bool
	publishBucket string
	publishPrefix string
	webhookURL    string
	webhookToken  string
}

// New creates a new EnvConfig with defaults, the config file and environment
// variable overrides applied in that order.
func New() (*EnvConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &EnvConfig{
		port:                DefaultPort,
		logLevel:            DefaultLogLevel,
		logFormat:           DefaultLogFormat,
		dataDir:             defaultDataDir(),
		renderTimeout:       DefaultRenderTimeout,
		keepFailedArtifacts: DefaultKeepFailedArtifacts,
		sessionIdleTimeout:  DefaultSessionIdleTimeout,
		sweepInterval:       DefaultSweepInterval,
		exportPollInterval:  DefaultExportPollInterval,
		canvasWidth:         DefaultCanvasWidth,
		canvasHeight:        DefaultCanvasHeight,
		fontAliases:         map[string]string{},
	}
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	path := os.Getenv(EnvConfigFile)
	explicit := path != ""
	if !explicit {
		path = filepath.Join(cfg.dataDir, ConfigFilename)
	}
	if err := cfg.loadFile(path, explicit); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *EnvConfig) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	c.file = path

	if fc.DataDir != "" && os.Getenv(EnvDataDir) == "" {
		c.dataDir = fc.DataDir
	}
	if fc.Server.Port != 0 {
		c.port = fc.Server.Port
	}
	setString(&c.logLevel, fc.Server.LogLevel)
	setString(&c.logFormat, fc.Server.LogFormat)

	setString(&c.ffmpegPath, fc.Engine.FFmpegPath)
	setString(&c.ffprobePath, fc.Engine.FFprobePath)
	if err := setDuration(&c.renderTimeout, "engine.render_timeout", fc.Engine.RenderTimeout); err != nil {
		return err
	}
	if fc.Engine.Workers != 0 {
		c.renderWorkers = fc.Engine.Workers
	}
	if fc.Engine.KeepFailedArtifacts != nil {
		c.keepFailedArtifacts = *fc.Engine.KeepFailedArtifacts
	}

	if err := setDuration(&c.sessionIdleTimeout, "session.idle_timeout", fc.Session.IdleTimeout); err != nil {
		return err
	}
	if err := setDuration(&c.sweepInterval, "session.sweep_interval", fc.Session.SweepInterval); err != nil {
		return err
	}
	if err := setDuration(&c.exportPollInterval, "export.poll_interval", fc.Export.PollInterval); err != nil {
		return err
	}
	setString(&c.webhookURL, fc.Export.WebhookURL)
	setString(&c.webhookToken, fc.Export.WebhookToken)
	setString(&c.publishBucket, fc.Export.PublishBucket)
	setString(&c.publishPrefix, fc.Export.PublishPrefix)

	if fc.Canvas.Width != 0 {
		c.canvasWidth = fc.Canvas.Width
	}
	if fc.Canvas.Height != 0 {
		c.canvasHeight = fc.Canvas.Height
	}

	setString(&c.mediaRoot, fc.Media.Root)
	setString(&c.defaultFont, fc.Media.DefaultFont)
	for family, file := range fc.Media.FontAliases {
		c.fontAliases[family] = file
	}
	c.s3Assets = fc.Media.S3Assets
	c.s3 = fc.S3
	return nil
}

func (c *EnvConfig) applyEnv() error {
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		c.port = port
	}
	setString(&c.logLevel, os.Getenv(EnvLogLevel))
	setString(&c.logFormat, os.Getenv(EnvLogFormat))

	setString(&c.ffmpegPath, os.Getenv(EnvFFmpegPath))
	setString(&c.ffprobePath, os.Getenv(EnvFFprobePath))
	if err := setDuration(&c.renderTimeout, EnvRenderTimeout, os.Getenv(EnvRenderTimeout)); err != nil {
		return err
	}
	if err := setInt(&c.renderWorkers, EnvRenderWorkers); err != nil {
		return err
	}
	if err := setBool(&c.keepFailedArtifacts, EnvKeepFailedArtifacts); err != nil {
		return err
	}

	if err := setDuration(&c.sessionIdleTimeout, EnvSessionIdleTimeout, os.Getenv(EnvSessionIdleTimeout)); err != nil {
		return err
	}
	if err := setDuration(&c.sweepInterval, EnvSweepInterval, os.Getenv(EnvSweepInterval)); err != nil {
		return err
	}
	if err := setDuration(&c.exportPollInterval, EnvExportPollInterval, os.Getenv(EnvExportPollInterval)); err != nil {
		return err
	}
	if err := setInt(&c.canvasWidth, EnvCanvasWidth); err != nil {
		return err
	}
	if err := setInt(&c.canvasHeight, EnvCanvasHeight); err != nil {
		return err
	}

	setString(&c.mediaRoot, os.Getenv(EnvMediaRoot))
	setString(&c.defaultFont, os.Getenv(EnvDefaultFont))
	setString(&c.webhookURL, os.Getenv(EnvWebhookURL))
	setString(&c.webhookToken, os.Getenv(EnvWebhookToken))

	setString(&c.s3.Region, os.Getenv(EnvS3Region))
	setString(&c.s3.Endpoint, os.Getenv(EnvS3Endpoint))
	setString(&c.s3.AccessKey, os.Getenv(EnvS3AccessKey))
	setString(&c.s3.SecretKey, os.Getenv(EnvS3SecretKey))
	if err := setBool(&c.s3.PathStyle, EnvS3PathStyle); err != nil {
		return err
	}
	if err := setBool(&c.s3Assets, EnvS3AssetsEnabled); err != nil {
		return err
	}
	setString(&c.publishBucket, os.Getenv(EnvPublishBucket))
	setString(&c.publishPrefix, os.Getenv(EnvPublishPrefix))
	return nil
}

func (c *EnvConfig) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port %d: port must be between 1 and 65535", c.port)
	}
	switch strings.ToLower(c.logFormat) {
	case "auto", "json", "text":
	default:
		return fmt.Errorf("invalid log format %q: want auto, json or text", c.logFormat)
	}
	if c.renderWorkers < 0 {
		return fmt.Errorf("invalid render workers %d", c.renderWorkers)
	}
	if c.canvasWidth <= 0 || c.canvasHeight <= 0 {
		return fmt.Errorf("invalid canvas %dx%d", c.canvasWidth, c.canvasHeight)
	}
	for name, d := range map[string]time.Duration{
		"render timeout":       c.renderTimeout,
		"session idle timeout": c.sessionIdleTimeout,
		"sweep interval":       c.sweepInterval,
		"export poll interval": c.exportPollInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("invalid %s %s: must be positive", name, d)
		}
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, name, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	*dst = d
	return nil
}

func setInt(dst *int, env string) error {
	v := os.Getenv(env)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", env, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, env string) error {
	v := os.Getenv(env)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", env, err)
	}
	*dst = b
	return nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// LogFormat returns auto, json or text.
func (c *EnvConfig) LogFormat() string {
	return c.logFormat
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// File returns the config file that was loaded, or "" when none was found.
func (c *EnvConfig) File() string {
	return c.file
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

func (c *EnvConfig) LockPath() string {
	return filepath.Join(c.dataDir, LockFilename)
}

// CacheDir holds downloaded remote assets.
func (c *EnvConfig) CacheDir() string {
	return filepath.Join(c.dataDir, "cache")
}

func (c *EnvConfig) ExportDir() string {
	return filepath.Join(c.dataDir, "exports")
}

// WorkDir is the parent of per-render temporary directories.
func (c *EnvConfig) WorkDir() string {
	return filepath.Join(c.dataDir, "work")
}

func (c *EnvConfig) FFmpegPath() string {
	return c.ffmpegPath
}

func (c *EnvConfig) FFprobePath() string {
	return c.ffprobePath
}

func (c *EnvConfig) RenderTimeout() time.Duration {
	return c.renderTimeout
}

func (c *EnvConfig) ProbeTimeout() time.Duration {
	return DefaultProbeTimeout
}

// RenderWorkers returns the per-export worker limit; 0 means automatic.
func (c *EnvConfig) RenderWorkers() int {
	return c.renderWorkers
}

func (c *EnvConfig) KeepFailedArtifacts() bool {
	return c.keepFailedArtifacts
}

func (c *EnvConfig) SessionIdleTimeout() time.Duration {
	return c.sessionIdleTimeout
}

func (c *EnvConfig) SweepInterval() time.Duration {
	return c.sweepInterval
}

func (c *EnvConfig) ExportPollInterval() time.Duration {
	return c.exportPollInterval
}

// CanvasSize returns the canvas used when a timeline does not set one.
func (c *EnvConfig) CanvasSize() (int, int) {
	return c.canvasWidth, c.canvasHeight
}

func (c *EnvConfig) MediaRoot() string {
	return c.mediaRoot
}

func (c *EnvConfig) DefaultFont() string {
	return c.defaultFont
}

func (c *EnvConfig) FontAliases() map[string]string {
	out := make(map[string]string, len(c.fontAliases))
	for k, v := range c.fontAliases {
		out[k] = v
	}
	return out
}

func (c *EnvConfig) S3() S3Settings {
	return c.s3
}

// S3AssetsEnabled reports whether s3:// sources are downloaded on demand.
func (c *EnvConfig) S3AssetsEnabled() bool {
	return c.s3Assets
}

func (c *EnvConfig) PublishBucket() string {
	return c.publishBucket
}

func (c *EnvConfig) PublishPrefix() string {
	return c.publishPrefix
}

func (c *EnvConfig) WebhookURL() string {
	return c.webhookURL
}

func (c *EnvConfig) WebhookToken() string {
	return c.webhookToken
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
