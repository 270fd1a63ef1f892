// Package config loads knoldeck's settings from defaults, an optional YAML
// file, KNOLDECK_* environment variables and command-line flags, in that order
// of precedence (later wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/conorfennell/knoldeck/internal/sm2"
)

const (
	envPrefix         = "KNOLDECK_"
	defaultConfigFile = "knoldeck.yaml"
)

// Config holds all application configuration.
type Config struct {
	DB        DBConfig        `koanf:"db"`
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	Study     StudyConfig     `koanf:"study"`
	Sync      SyncConfig      `koanf:"sync"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
}

type DBConfig struct {
	Path string `koanf:"path" validate:"required"`
}

type ServerConfig struct {
	Addr string `koanf:"addr" validate:"required,hostname_port"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"required,oneof=debug info warn error"`
	Format string `koanf:"format" validate:"required,oneof=text json"`
}

type StudyConfig struct {
	// DailyGoal caps a study session's queue. Zero means no cap.
	DailyGoal int `koanf:"daily_goal" validate:"gte=0"`
}

type SyncConfig struct {
	ReposDir string `koanf:"repos_dir" validate:"required"`
	// Interval between background syncs while serving. Zero disables them.
	Interval time.Duration `koanf:"interval" validate:"gte=0"`
}

type SchedulerConfig struct {
	InitialEasinessFactor float64 `koanf:"initial_easiness_factor" validate:"gtefield=MinEasinessFactor"`
	MinEasinessFactor     float64 `koanf:"min_easiness_factor" validate:"gte=1.3"`
}

// Params builds scheduler parameters from the configured easiness values.
func (c SchedulerConfig) Params() *sm2.Params {
	p := sm2.DefaultParams()
	p.InitialEasinessFactor = c.InitialEasinessFactor
	p.MinEasinessFactor = c.MinEasinessFactor
	return p
}

var defaults = map[string]any{
	"db.path":                           "knoldeck.db",
	"server.addr":                       "localhost:8080",
	"log.level":                         "info",
	"log.format":                        "text",
	"study.daily_goal":                  20,
	"sync.repos_dir":                    "repos",
	"sync.interval":                     "1h",
	"scheduler.initial_easiness_factor": 2.5,
	"scheduler.min_easiness_factor":     1.3,
}

// flagKeys maps global flag names onto config keys.
var flagKeys = map[string]string{
	"db":         "db.path",
	"addr":       "server.addr",
	"log-level":  "log.level",
	"log-format": "log.format",
	"daily-goal": "study.daily_goal",
	"repos-dir":  "sync.repos_dir",
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", defaultConfigFile, "path to the YAML config file")
	fs.String("db", defaults["db.path"].(string), "path to the SQLite database file")
	fs.String("addr", defaults["server.addr"].(string), "HTTP listen address")
	fs.String("log-level", defaults["log.level"].(string), "log level (debug, info, warn, error)")
	fs.String("log-format", defaults["log.format"].(string), "log format (text, json)")
	fs.Int("daily-goal", defaults["study.daily_goal"].(int), "maximum cards per study session, 0 for no limit")
	fs.String("repos-dir", defaults["sync.repos_dir"].(string), "directory git sources are cloned into")
}

// Load builds the configuration. fs must have been set up with RegisterFlags
// and parsed; it may be nil to skip flags.
func Load(fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return nil, fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	path, explicit := defaultConfigFile, false
	if fs != nil {
		if f := fs.Lookup("config"); f != nil {
			path, explicit = f.Value.String(), f.Changed
		}
	}
	if err := loadFile(k, path, explicit); err != nil {
		return nil, err
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, f.Value.String()
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(k *koanf.Koanf, path string, explicit bool) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// envKey turns KNOLDECK_SYNC__REPOS_DIR into sync.repos_dir.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate checks the configuration against its validate tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
