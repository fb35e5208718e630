package config

import (
	"context"
	"io"

	"github.com/eyoklama/authclient/cmd/authctl/internal/client"
)

type contextKey string

const configKey contextKey = "authctl-config"

// GlobalConfig holds state shared by every authctl command. The root command
// injects it in PersistentPreRunE.
type GlobalConfig struct {
	NonInteractive bool
	Provider       *client.Provider
	// Stdin is where secrets are read from when prompting is disabled.
	Stdin io.Reader
}

// InjectConfig adds cfg to ctx.
func InjectConfig(ctx context.Context, cfg *GlobalConfig) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext returns the injected config, if any.
func FromContext(ctx context.Context) (*GlobalConfig, bool) {
	cfg, ok := ctx.Value(configKey).(*GlobalConfig)
	return cfg, ok
}

// MustFromContext is FromContext for RunE functions, where the root command
// guarantees injection.
func MustFromContext(ctx context.Context) *GlobalConfig {
	cfg, ok := FromContext(ctx)
	if !ok {
		panic("authctl: config not found in context")
	}
	return cfg
}
