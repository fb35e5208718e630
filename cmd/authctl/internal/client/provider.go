package client

import (
	"context"
	"sync"

	authclient "github.com/eyoklama/authclient"
)

// Provider builds and initializes one authclient.Client per process, on first use.
type Provider struct {
	configPath string
	envFiles   []string
	override   func(*authclient.Config)

	cfgOnce sync.Once
	cfg     authclient.Config
	cfgErr  error

	clientOnce sync.Once
	client     *authclient.Client
	clientErr  error
}

// NewProvider loads configuration from configPath and envFiles; override runs
// on the loaded config before the client is built.
func NewProvider(configPath string, envFiles []string, override func(*authclient.Config)) *Provider {
	return &Provider{configPath: configPath, envFiles: envFiles, override: override}
}

// Config returns the effective configuration.
func (p *Provider) Config() (authclient.Config, error) {
	p.cfgOnce.Do(func() {
		cfg, err := authclient.LoadConfig(p.configPath, p.envFiles...)
		if err != nil {
			p.cfgErr = err
			return
		}
		if p.override != nil {
			p.override(&cfg)
			if err := cfg.Validate(); err != nil {
				p.cfgErr = err
				return
			}
		}
		p.cfg = cfg
	})
	return p.cfg, p.cfgErr
}

// Client returns the initialized client, restoring any stored session.
func (p *Provider) Client(ctx context.Context) (*authclient.Client, error) {
	p.clientOnce.Do(func() {
		cfg, err := p.Config()
		if err != nil {
			p.clientErr = err
			return
		}
		c, err := authclient.New().WithConfig(cfg).Build()
		if err != nil {
			p.clientErr = err
			return
		}
		if err := c.Initialize(ctx); err != nil {
			_ = c.Close()
			p.clientErr = err
			return
		}
		p.client = c
	})
	return p.client, p.clientErr
}

// Close releases the client if one was built.
func (p *Provider) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}
