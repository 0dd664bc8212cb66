// Package config layers command-line flags and environment variables on top
// of the leapstore configuration file.
package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	intconfig "github.com/leapstack-labs/leapstore/internal/config"
)

// EnvPrefix prefixes every environment override. A double underscore
// separates nested keys: LEAPSTORE_ADMIN__ADDR sets admin.addr.
const EnvPrefix = "LEAPSTORE_"

// loggerKey and configKey store values in the command context.
type (
	loggerKey struct{}
	configKey struct{}
)

// flagKeys maps flag names to config keys. Flags not listed never reach the config.
var flagKeys = map[string]string{
	"log-level":  "log_level",
	"verbose":    "verbose",
	"output":     "output",
	"admin-addr": "admin.addr",
	"no-admin":   "admin.enabled",
}

// Loaded is a loaded configuration and the file it came from.
type Loaded struct {
	*intconfig.Config
	// File is the config file used, empty when none was found.
	File string
}

// FindConfigFile returns explicit if set, else the first of leapstore.yaml
// and leapstore.yml found in dir.
func FindConfigFile(explicit, dir string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{intconfig.ConfigFileName, intconfig.ConfigFileNameAlt} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
// Relative repository paths resolve against the config file's directory.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Loaded, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(intconfig.Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	used := FindConfigFile(cfgFile, cwd)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// 3. Environment (LEAPSTORE_LOG_LEVEL -> log_level, LEAPSTORE_ADMIN__ADDR -> admin.addr)
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags that were explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			val := posflag.FlagVal(flags, f)
			if f.Name == "no-admin" {
				b, _ := val.(bool)
				return key, !b
			}
			return key, val
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	cfg, err := intconfig.Decode(k)
	if err != nil {
		return nil, err
	}

	baseDir := cwd
	if used != "" {
		if abs, err := filepath.Abs(used); err == nil {
			baseDir = filepath.Dir(abs)
		}
	}
	for i := range cfg.Repositories {
		r := &cfg.Repositories[i]
		r.Catalog = resolvePathRelativeTo(r.Catalog, baseDir)
		if r.Path != ":memory:" {
			r.Path = resolvePathRelativeTo(r.Path, baseDir)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &Loaded{Config: cfg, File: used}, nil
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// NewLogger builds the CLI logger: text on w, Debug when verbose, else level.
func NewLogger(w io.Writer, level string, verbose bool) *slog.Logger {
	lvl := slog.LevelInfo
	if verbose {
		lvl = slog.LevelDebug
	} else {
		_ = lvl.UnmarshalText([]byte(level))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

// WithConfig stores cfg in ctx.
func WithConfig(ctx context.Context, cfg *Loaded) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// GetConfig retrieves the loaded configuration from the command context.
// Without one it returns the defaults with no repositories.
func GetConfig(ctx context.Context) *Loaded {
	if c, ok := ctx.Value(configKey{}).(*Loaded); ok {
		return c
	}
	k := koanf.New(".")
	_ = k.Load(confmap.Provider(intconfig.Defaults(), "."), nil)
	cfg, err := intconfig.Decode(k)
	if err != nil {
		cfg = &intconfig.Config{}
	}
	return &Loaded{Config: cfg}
}
