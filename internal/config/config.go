package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"seams/internal/sampling"
)

// EnvPrefix prefixes every environment override, e.g. SEAMS_GRID_ROWS.
const EnvPrefix = "SEAMS"

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Port              int             `mapstructure:"port"`
	DataDirectory     string          `mapstructure:"data_dir"`
	LogDirectory      string          `mapstructure:"log_dir"`
	StaticDirectory   string          `mapstructure:"static_dir"`
	SurveyFile        string          `mapstructure:"survey_file"`
	DatabasePath      string          `mapstructure:"database_path"`
	ServicesFile      string          `mapstructure:"services_file"`
	SessionTTLMinutes int             `mapstructure:"session_ttl_minutes"`
	MaxUploadMB       int             `mapstructure:"max_upload_mb"`
	Grid              GridConfig      `mapstructure:"grid"`
	Frames            FramesConfig    `mapstructure:"frames"`
	Video             VideoConfig     `mapstructure:"video"`
	Thumbnail         ThumbnailConfig `mapstructure:"thumbnail"`
	Affiliations      []string        `mapstructure:"affiliations"` // "CODE - Name" entries offered at login
}

type GridConfig struct {
	Rows          int     `mapstructure:"rows"`
	ColumnsPerRow int     `mapstructure:"columns_per_row"`
	EnableRandom  bool    `mapstructure:"enable_random"`
	NoisePercent  float64 `mapstructure:"noise_percent"`
}

type FramesConfig struct {
	IntervalSeconds float64 `mapstructure:"interval_seconds"` // one frame every N seconds of video
	SampleSize      int     `mapstructure:"sample_size"`      // frames kept per station
}

type VideoConfig struct {
	FFmpegPath  string `mapstructure:"ffmpeg_path"`
	TargetCodec string `mapstructure:"target_codec"`
}

type ThumbnailConfig struct {
	Width int `mapstructure:"width"`
}

// Load reads .env, then an optional seams.{toml,yaml,json} from the working
// directory or ./config (or the file named by SEAMS_CONFIG), then SEAMS_*
// environment overrides.
func Load() (*Config, error) {
	if err := godotenv.Load(getEnv("SEAMS_ENV_FILE", ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}
	return LoadFile(getEnv(EnvPrefix+"_CONFIG", ""))
}

// LoadFile is Load without the .env step. An empty path searches the default
// locations; a missing file in the default locations is not an error.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("seams")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(".", "config"))
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	dataDir := filepath.Join(".", "data")

	v.SetDefault("port", 8080)
	v.SetDefault("data_dir", dataDir)
	v.SetDefault("log_dir", filepath.Join(".", "logs"))
	v.SetDefault("static_dir", filepath.Join(".", "static"))
	v.SetDefault("survey_file", filepath.Join(dataDir, "survey.yaml"))
	v.SetDefault("database_path", filepath.Join(dataDir, "seams.db"))
	v.SetDefault("services_file", filepath.Join(".", "app_services.yaml"))
	v.SetDefault("session_ttl_minutes", 12*60)
	v.SetDefault("max_upload_mb", 32)

	v.SetDefault("grid.rows", sampling.MinRows)
	v.SetDefault("grid.columns_per_row", sampling.DefaultColumnsPerRow)
	v.SetDefault("grid.enable_random", false)
	v.SetDefault("grid.noise_percent", 0.0)

	v.SetDefault("frames.interval_seconds", 5.0)
	v.SetDefault("frames.sample_size", 10)

	v.SetDefault("video.ffmpeg_path", "ffmpeg")
	v.SetDefault("video.target_codec", "avc1")

	v.SetDefault("thumbnail.width", 320)
	v.SetDefault("affiliations", []string{})
}

// Validate checks every option and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	for name, dir := range map[string]string{
		"data_dir":      c.DataDirectory,
		"log_dir":       c.LogDirectory,
		"survey_file":   c.SurveyFile,
		"database_path": c.DatabasePath,
	} {
		if strings.TrimSpace(dir) == "" {
			errs = append(errs, fmt.Errorf("%s must not be empty", name))
		}
	}
	if err := c.GridOptions().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Frames.IntervalSeconds <= 0 {
		errs = append(errs, fmt.Errorf("frames.interval_seconds must be positive"))
	}
	if c.Frames.SampleSize < 1 {
		errs = append(errs, fmt.Errorf("frames.sample_size must be at least 1"))
	}
	if c.Thumbnail.Width < 1 {
		errs = append(errs, fmt.Errorf("thumbnail.width must be at least 1"))
	}
	if c.SessionTTLMinutes < 0 {
		errs = append(errs, fmt.Errorf("session_ttl_minutes must not be negative"))
	}
	if c.MaxUploadMB < 1 {
		errs = append(errs, fmt.Errorf("max_upload_mb must be at least 1"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// GridOptions converts the grid section into generator options.
func (c *Config) GridOptions() sampling.Options {
	return sampling.Options{
		Rows:          c.Grid.Rows,
		ColumnsPerRow: c.Grid.ColumnsPerRow,
		EnableRandom:  c.Grid.EnableRandom,
		NoisePercent:  c.Grid.NoisePercent,
	}
}

// SessionTTL is the idle time after which a session expires.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// MaxUploadBytes is the largest accepted multipart upload.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
