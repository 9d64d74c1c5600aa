// Package config loads settings from defaults, an optional YAML file, REVISA_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
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
)

// EnvPrefix is stripped from environment variables; "__" separates nested keys,
// e.g. REVISA_LOG__LEVEL=debug sets log.level.
const EnvPrefix = "REVISA_"

type Config struct {
	DB       DBConfig       `koanf:"db"`
	Server   ServerConfig   `koanf:"server"`
	Log      LogConfig      `koanf:"log"`
	Progress ProgressConfig `koanf:"progress"`
	Sources  SourcesConfig  `koanf:"sources"`
	Study    StudyConfig    `koanf:"study"`
}

type DBConfig struct {
	Path string `koanf:"path" validate:"required"`
}

type ServerConfig struct {
	Addr string `koanf:"addr" validate:"required,hostname_port"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// ProgressConfig selects where saved deck progress lives. Path is used by the file backend.
type ProgressConfig struct {
	Backend string `koanf:"backend" validate:"oneof=sqlite file"`
	Path    string `koanf:"path" validate:"required_if=Backend file"`
}

type SourcesConfig struct {
	ReposDir string `koanf:"repos_dir" validate:"required"`
}

type StudyConfig struct {
	CheckpointInterval time.Duration `koanf:"checkpoint_interval" validate:"min=1s"`
	NewCardEase        float64       `koanf:"new_card_ease" validate:"gte=1.3"`
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"db":                  "db.path",
	"addr":                "server.addr",
	"log-level":           "log.level",
	"log-format":          "log.format",
	"progress-backend":    "progress.backend",
	"progress-path":       "progress.path",
	"repos-dir":           "sources.repos_dir",
	"checkpoint-interval": "study.checkpoint_interval",
	"new-card-ease":       "study.new_card_ease",
}

// RegisterFlags defines the config flags and their defaults on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("db", "revisa.db", "Path to the SQLite database file")
	fs.String("addr", "localhost:8080", "HTTP listen address")
	fs.String("log-level", "info", "Log level: debug, info, warn, error")
	fs.String("log-format", "text", "Log format: text or json")
	fs.String("progress-backend", "sqlite", "Where saved deck progress is kept: sqlite or file")
	fs.String("progress-path", "progress.json", "Progress file for the file backend")
	fs.String("repos-dir", "repos", "Directory git sources are cloned into")
	fs.Duration("checkpoint-interval", 30*time.Second, "How often an active session is checkpointed")
	fs.Float64("new-card-ease", 2.5, "Ease factor given to newly imported cards")
}

// Load builds the configuration. configPath may be empty or point to a missing file.
// If flags is nil, a flag set with only the defaults is used.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file %s: %w", configPath, err)
		}
	}

	envToKey := func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envToKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags == nil {
		flags = pflag.NewFlagSet("config", pflag.ContinueOnError)
		RegisterFlags(flags)
	}
	flagToKey := func(f *pflag.Flag) (string, interface{}) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(flags, f)
	}
	if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagToKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks cfg against its struct tags and reports every failing field.
func Validate(cfg Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validation failed: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("Field: %s, Tag: %s, Param: %s", fe.Namespace(), fe.Tag(), fe.Param()))
	}
	return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
}
