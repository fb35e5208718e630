package authclient

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/eyoklama/authclient/session"
)

// Config is the complete client configuration. Start from [DefaultConfig] or
// [LoadConfig] and adjust before passing it to [Builder.WithConfig].
type Config struct {
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Refresh RefreshConfig `yaml:"refresh"`
	Routes  RoutesConfig  `yaml:"routes"`
	Audit   AuditConfig   `yaml:"audit"`
	Metrics MetricsConfig `yaml:"metrics"`
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig locates the attendance backend.
type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

/*
====================================
STORAGE CONFIG
====================================
*/

// Storage backend names accepted by StorageConfig.Backend.
const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
)

// StorageConfig selects where the three credential slots are persisted.
type StorageConfig struct {
	Backend   string `yaml:"backend"`
	Namespace string `yaml:"namespace"`

	// Dir is the file backend root. Empty means ~/.eyoklama.
	Dir string `yaml:"dir"`

	SQLitePath string `yaml:"sqlite_path"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPassword string `yaml:"redis_password"`

	// Passphrase enables at-rest encryption of every slot when set.
	Passphrase string     `yaml:"passphrase"`
	Seal       SealConfig `yaml:"seal"`
}

// SealConfig holds Argon2id parameters for passphrase sealing.
type SealConfig struct {
	MemoryKB    uint32 `yaml:"memory_kb"`
	Time        uint32 `yaml:"time"`
	Parallelism uint8  `yaml:"parallelism"`
}

func (c SealConfig) session() session.SealConfig {
	return session.SealConfig{
		Memory:      c.MemoryKB,
		Time:        c.Time,
		Parallelism: c.Parallelism,
	}
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig tunes the interceptor.
type RefreshConfig struct {
	// ProactiveWindow refreshes before sending when the access token is a JWT
	// expiring within the window. Zero refreshes only on 401.
	ProactiveWindow  time.Duration `yaml:"proactive_window"`
	DisableRequestID bool          `yaml:"disable_request_id"`
}

/*
====================================
ROUTES CONFIG
====================================
*/

// RoutesConfig names the paths role gating redirects to.
type RoutesConfig struct {
	LoginPath        string `yaml:"login_path"`
	UnauthorizedPath string `yaml:"unauthorized_path"`
	AdminHome        string `yaml:"admin_home"`
	TeacherHome      string `yaml:"teacher_home"`
	StudentHome      string `yaml:"student_home"`
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultConfig returns the configuration used when none is supplied: a local
// backend, file storage under ~/.eyoklama, refresh on 401 only.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	seal := session.DefaultSealConfig()
	return Config{
		API: APIConfig{
			BaseURL:   "http://localhost:5000/api",
			Timeout:   15 * time.Second,
			UserAgent: "authclient/1",
		},
		Storage: StorageConfig{
			Backend:    StorageFile,
			Namespace:  "eyoklama",
			SQLitePath: "authclient.db",
			RedisAddr:  "localhost:6379",
			Seal: SealConfig{
				MemoryKB:    seal.Memory,
				Time:        seal.Time,
				Parallelism: seal.Parallelism,
			},
		},
		Routes: RoutesConfig{
			LoginPath:        "/login",
			UnauthorizedPath: "/unauthorized",
			AdminHome:        "/admin",
			TeacherHome:      "/teacher",
			StudentHome:      "/student",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first unusable setting, wrapped in [ErrInvalidConfig].
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: API BaseURL must be an absolute http(s) URL", ErrInvalidConfig)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("%w: API Timeout must be >= 0", ErrInvalidConfig)
	}

	switch c.Storage.Backend {
	case StorageMemory, StorageFile:
	case StorageRedis:
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("%w: Storage RedisAddr required for redis backend", ErrInvalidConfig)
		}
		if c.Storage.RedisDB < 0 {
			return fmt.Errorf("%w: Storage RedisDB must be >= 0", ErrInvalidConfig)
		}
	case StorageSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("%w: Storage SQLitePath required for sqlite backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown Storage Backend %q", ErrInvalidConfig, c.Storage.Backend)
	}
	if strings.TrimSpace(c.Storage.Namespace) == "" || strings.ContainsAny(c.Storage.Namespace, `/\:`) {
		return fmt.Errorf("%w: Storage Namespace must be non-empty and contain no path or key separators", ErrInvalidConfig)
	}
	if c.Storage.Passphrase != "" && len(c.Storage.Passphrase) < session.MinPassphraseLength {
		return fmt.Errorf("%w: Storage Passphrase must be at least %d bytes", ErrInvalidConfig, session.MinPassphraseLength)
	}

	if c.Refresh.ProactiveWindow < 0 {
		return fmt.Errorf("%w: Refresh ProactiveWindow must be >= 0", ErrInvalidConfig)
	}

	for name, p := range map[string]string{
		"LoginPath":        c.Routes.LoginPath,
		"UnauthorizedPath": c.Routes.UnauthorizedPath,
		"AdminHome":        c.Routes.AdminHome,
		"TeacherHome":      c.Routes.TeacherHome,
		"StudentHome":      c.Routes.StudentHome,
	} {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("%w: Routes %s must start with /", ErrInvalidConfig, name)
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return fmt.Errorf("%w: Audit BufferSize must be > 0", ErrInvalidConfig)
	}
	return nil
}
