package authclient

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// LintSeverity grades a configuration warning.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
)

// LintWarning is a configuration that validates but is probably unintended.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of warnings from [Config.Lint].
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	codes := make([]string, len(r))
	for i, w := range r {
		codes[i] = w.Code
	}
	return codes
}

// Lint reports settings that are valid but risky. It never fails.
func (c *Config) Lint() LintResult {
	var out LintResult
	add := func(code string, sev LintSeverity, format string, args ...any) {
		out = append(out, LintWarning{Code: code, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	if u, err := url.Parse(c.API.BaseURL); err == nil && u.Scheme == "http" && !isLoopback(u.Hostname()) {
		add("plaintext_backend", LintWarn, "tokens are sent over plain http to %s", u.Host)
	}
	if c.API.Timeout == 0 {
		add("no_timeout", LintWarn, "API Timeout is 0; a stalled refresh blocks every queued request")
	}
	if c.Storage.Backend == StorageMemory {
		add("memory_storage", LintInfo, "memory storage loses the session when the process exits")
	}
	if (c.Storage.Backend == StorageFile || c.Storage.Backend == StorageSQLite) && c.Storage.Passphrase == "" {
		add("unsealed_storage", LintInfo, "%s storage keeps tokens unencrypted on disk", c.Storage.Backend)
	}
	if c.Storage.Backend == StorageRedis && c.Storage.RedisPassword == "" && !isLoopback(hostOnly(c.Storage.RedisAddr)) {
		add("redis_no_auth", LintWarn, "remote Redis at %s without a password", c.Storage.RedisAddr)
	}
	if c.Refresh.ProactiveWindow > 30*time.Minute {
		add("proactive_window_large", LintWarn, "ProactiveWindow %s refreshes on almost every request", c.Refresh.ProactiveWindow)
	}
	if c.Audit.Enabled && !c.Audit.DropIfFull {
		add("audit_blocking", LintInfo, "audit dispatch blocks callers when the buffer is full")
	}
	return out
}

func hostOnly(addr string) string {
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		return addr[:i]
	}
	return addr
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1" || host == "[::1]"
}
