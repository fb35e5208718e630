package authclient

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override read by [LoadConfig].
const EnvPrefix = "AUTHCLIENT_"

// LoadConfig builds a Config from defaults, then the YAML file at path (skipped
// when path is empty), then environment variables. envFiles are loaded into the
// process environment first with godotenv; missing env files are ignored, and
// variables already set in the environment win over them.
func LoadConfig(path string, envFiles ...string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
	}

	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", f, err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

// MarshalYAML renders cfg with the passphrase and Redis password masked.
func (c Config) MarshalYAML() (any, error) {
	type plain Config
	out := plain(c)
	if out.Storage.Passphrase != "" {
		out.Storage.Passphrase = "********"
	}
	if out.Storage.RedisPassword != "" {
		out.Storage.RedisPassword = "********"
	}
	return out, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s: %v", ErrInvalidConfig, EnvPrefix, key, err)
		}
		*dst = d
		return nil
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s: %v", ErrInvalidConfig, EnvPrefix, key, err)
		}
		*dst = b
		return nil
	}

	str("BASE_URL", &cfg.API.BaseURL)
	str("USER_AGENT", &cfg.API.UserAgent)
	str("STORAGE", &cfg.Storage.Backend)
	str("NAMESPACE", &cfg.Storage.Namespace)
	str("STORAGE_DIR", &cfg.Storage.Dir)
	str("SQLITE_PATH", &cfg.Storage.SQLitePath)
	str("REDIS_ADDR", &cfg.Storage.RedisAddr)
	str("REDIS_PASSWORD", &cfg.Storage.RedisPassword)
	str("PASSPHRASE", &cfg.Storage.Passphrase)

	if v, ok := lookup(EnvPrefix + "REDIS_DB"); ok {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %sREDIS_DB: %v", ErrInvalidConfig, EnvPrefix, err)
		}
		cfg.Storage.RedisDB = db
	}
	if err := dur("TIMEOUT", &cfg.API.Timeout); err != nil {
		return err
	}
	if err := dur("PROACTIVE_WINDOW", &cfg.Refresh.ProactiveWindow); err != nil {
		return err
	}
	if err := boolean("AUDIT", &cfg.Audit.Enabled); err != nil {
		return err
	}
	return boolean("METRICS", &cfg.Metrics.Enabled)
}
