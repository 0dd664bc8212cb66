package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "leapstore.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "leapstore.yml"

// LoadFile loads a Config from a single YAML file on top of the defaults,
// applies repository defaults and expands ${VAR} references. It does not validate.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return Decode(k)
}

// Decode unmarshals a loaded koanf instance and finishes the Config.
func Decode(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ApplyDefaults()
	cfg.ExpandEnv()
	return &cfg, nil
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// ExpandEnvVars expands ${VAR} patterns in a string with environment variable
// values. Unset variables are left as written.
func ExpandEnvVars(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match
	})
}

// ExpandEnv expands environment references in credential and location fields.
func (c *Config) ExpandEnv() {
	c.Cluster.Redis.Addr = ExpandEnvVars(c.Cluster.Redis.Addr)
	c.Cluster.Redis.Password = ExpandEnvVars(c.Cluster.Redis.Password)
	for i := range c.Repositories {
		r := &c.Repositories[i]
		r.Host = ExpandEnvVars(r.Host)
		r.Path = ExpandEnvVars(r.Path)
		r.Database = ExpandEnvVars(r.Database)
		r.User = ExpandEnvVars(r.User)
		r.Password = ExpandEnvVars(r.Password)
		r.Catalog = ExpandEnvVars(r.Catalog)
		for k, v := range r.Options {
			r.Options[k] = ExpandEnvVars(v)
		}
	}
}

// Repository returns the named repository configuration.
func (c *Config) Repository(name string) (*RepositoryConfig, bool) {
	for i := range c.Repositories {
		if c.Repositories[i].Name == name {
			return &c.Repositories[i], true
		}
	}
	return nil, false
}
