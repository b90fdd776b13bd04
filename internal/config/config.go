package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config 应用配置
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Database    DatabaseConfig    `koanf:"database"`
	Auth        AuthConfig        `koanf:"auth"`
	Logging     LoggingConfig     `koanf:"logging"`
	RateLimit   RateLimitConfig   `koanf:"ratelimit"`
	Tracking    TrackingConfig    `koanf:"tracking"`
	Progression ProgressionConfig `koanf:"progression"`
	Scheduler   SchedulerConfig   `koanf:"scheduler"`
	Persistence PersistenceConfig `koanf:"persistence"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Port            string        `koanf:"port" validate:"required"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig SQLite 配置
type DatabaseConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// AuthConfig JWT 配置
type AuthConfig struct {
	JWTSecret string `koanf:"jwt_secret" validate:"required"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// RateLimitConfig limits requests per client IP.
type RateLimitConfig struct {
	Requests int           `koanf:"requests" validate:"gt=0"`
	Window   time.Duration `koanf:"window" validate:"gt=0"`
}

// TrackingConfig holds the position filter and route recorder thresholds.
type TrackingConfig struct {
	MinAccuracyMeters      float64       `koanf:"min_accuracy_meters" validate:"gt=0"`
	MinMovementMeters      float64       `koanf:"min_movement_meters" validate:"gte=0"`
	MaxPlausibleStepMeters float64       `koanf:"max_plausible_step_meters" validate:"gtfield=MinMovementMeters"`
	RouteJumpMeters        float64       `koanf:"route_jump_meters" validate:"gt=0"`
	MaxRoutePoints         int           `koanf:"max_route_points" validate:"gt=0"`
	SessionGapThreshold    time.Duration `koanf:"session_gap_threshold" validate:"gt=0"`
	FallbackLat            float64       `koanf:"fallback_lat" validate:"gte=-90,lte=90"`
	FallbackLng            float64       `koanf:"fallback_lng" validate:"gte=-180,lte=180"`
}

// ProgressionConfig holds the XP rules.
type ProgressionConfig struct {
	XPPerKm              float64 `koanf:"xp_per_km" validate:"gte=0"`
	XPPerStep            int     `koanf:"xp_per_step" validate:"gte=0"`
	VisitBonusXP         int     `koanf:"visit_bonus_xp" validate:"gte=0"`
	MemoryBonusXP        int     `koanf:"memory_bonus_xp" validate:"gte=0"`
	LevelUpMultiplier    float64 `koanf:"level_up_multiplier" validate:"gt=1"`
	InitialXPToNextLevel int     `koanf:"initial_xp_to_next_level" validate:"gt=0"`
	MetersPerStep        float64 `koanf:"meters_per_step" validate:"gte=0"`
}

// SchedulerConfig 定时任务配置
type SchedulerConfig struct {
	TimeWalkedInterval time.Duration `koanf:"time_walked_interval" validate:"gt=0"`
	RolloverInterval   time.Duration `koanf:"rollover_interval" validate:"gt=0"`
	Timezone           string        `koanf:"timezone" validate:"required"`
}

// PersistenceConfig controls the background write queue.
type PersistenceConfig struct {
	QueueSize        int           `koanf:"queue_size" validate:"gt=0"`
	BreakerFailures  uint32        `koanf:"breaker_failures" validate:"gt=0"`
	BreakerOpenDelay time.Duration `koanf:"breaker_open_delay" validate:"gt=0"`
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "./data/journal/journal.db",
		},
		Auth: AuthConfig{
			JWTSecret: "your-secret-key-change-in-production",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		RateLimit: RateLimitConfig{
			Requests: 120,
			Window:   time.Minute,
		},
		Tracking: TrackingConfig{
			MinAccuracyMeters:      50,
			MinMovementMeters:      5,
			MaxPlausibleStepMeters: 200,
			RouteJumpMeters:        500,
			MaxRoutePoints:         200,
			SessionGapThreshold:    5 * time.Minute,
			FallbackLat:            -20.176931457328774,
			FallbackLng:            57.467199105857894,
		},
		Progression: ProgressionConfig{
			XPPerKm:              10,
			XPPerStep:            1,
			VisitBonusXP:         20,
			MemoryBonusXP:        15,
			LevelUpMultiplier:    1.5,
			InitialXPToNextLevel: 100,
			MetersPerStep:        0.762,
		},
		Scheduler: SchedulerConfig{
			TimeWalkedInterval: 10 * time.Second,
			RolloverInterval:   time.Hour,
			Timezone:           "Local",
		},
		Persistence: PersistenceConfig{
			QueueSize:        256,
			BreakerFailures:  5,
			BreakerOpenDelay: 30 * time.Second,
		},
	}
}

// Default returns the built-in configuration without reading files or env.
func Default() *Config {
	return defaultConfig()
}

// Load 加载配置: defaults, then config file, then environment.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the struct tags.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// Location resolves the scheduler timezone used for calendar-day boundaries.
func (c *Config) Location() *time.Location {
	if c.Scheduler.Timezone == "" || c.Scheduler.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envMappings keeps the historic flat names working.
var envMappings = map[string]string{
	"port":       "server.port",
	"db_path":    "database.path",
	"jwt_secret": "auth.jwt_secret",
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"timezone":   "scheduler.timezone",
}

// envTransform maps PORT, DB_PATH, ... and TRACKING_MIN_ACCURACY_METERS style
// names onto koanf keys. Anything else is ignored.
func envTransform(key string) string {
	key = strings.ToLower(key)
	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	for _, section := range []string{"tracking", "progression", "scheduler", "persistence", "ratelimit"} {
		prefix := section + "_"
		if strings.HasPrefix(key, prefix) && len(key) > len(prefix) {
			return section + "." + strings.TrimPrefix(key, prefix)
		}
	}
	return ""
}
