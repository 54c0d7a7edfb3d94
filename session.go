package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	gosync "sync"
	"time"

	"github.com/tonimelisma/iptv-sync/internal/config"
	"github.com/tonimelisma/iptv-sync/internal/navtree"
	"github.com/tonimelisma/iptv-sync/internal/store"
	"github.com/tonimelisma/iptv-sync/internal/sync"
	"github.com/tonimelisma/iptv-sync/internal/xtream"
)

const dataDirPermissions = 0o700

// Transport limits for panel connections. Catalog bodies stream for minutes,
// so there is no overall client timeout; the sync timeout bounds each run.
const (
	tlsHandshakeTimeout   = 10 * time.Second
	responseHeaderTimeout = 60 * time.Second
	idleConnTimeout       = 90 * time.Second
	maxIdleConnsPerHost   = 2
)

// clientKey identifies the settings a panel client was built from. A config
// reload that changes any of them gets a fresh client.
type clientKey struct {
	url, username, password string
	userAgent               string
	requestsPerSecond       float64
	connectTimeout          time.Duration
}

type cachedClient struct {
	key    clientKey
	client *xtream.BreakerClient
}

// sourceProvider resolves the active source from the live config on every
// call and caches one breaker-wrapped client per source name.
type sourceProvider struct {
	holder   *config.Holder
	override string
	logger   *slog.Logger

	mu      gosync.Mutex
	clients map[string]cachedClient
}

func newSourceProvider(holder *config.Holder, override string, logger *slog.Logger) *sourceProvider {
	return &sourceProvider{
		holder:   holder,
		override: override,
		logger:   logger,
		clients:  make(map[string]cachedClient),
	}
}

// ActiveSource implements sync.SourceProvider.
func (p *sourceProvider) ActiveSource() (sync.Source, error) {
	name, client, err := p.active()
	if err != nil {
		return sync.Source{}, err
	}

	return sync.Source{ID: name, Remote: client}, nil
}

// active returns the selected source name and its client.
func (p *sourceProvider) active() (string, *xtream.BreakerClient, error) {
	cfg := p.holder.Config()

	name, src, err := cfg.SelectSource(p.override)
	if err != nil {
		if errors.Is(err, config.ErrNoSource) {
			return "", nil, sync.ErrNoActiveSource
		}

		return "", nil, fmt.Errorf("%w: %w", sync.ErrNoActiveSource, err)
	}

	return name, p.clientFor(name, src, cfg.Network), nil
}

func (p *sourceProvider) clientFor(name string, src config.SourceConfig, nc config.NetworkConfig) *xtream.BreakerClient {
	key := clientKey{
		url:               src.URL,
		username:          src.Username,
		password:          src.Password,
		userAgent:         nc.UserAgent,
		requestsPerSecond: nc.RequestsPerSecond,
		connectTimeout:    nc.ConnectTimeoutDuration(),
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if cached, ok := p.clients[name]; ok && cached.key == key {
		return cached.client
	}

	p.logger.Debug("creating panel client", slog.String("source", name))

	client := xtream.NewClient(xtream.ClientConfig{
		BaseURL:           src.URL,
		Username:          src.Username,
		Password:          src.Password,
		HTTPClient:        newPanelHTTPClient(key.connectTimeout),
		RequestsPerSecond: nc.RequestsPerSecond,
		UserAgent:         nc.UserAgent,
		Logger:            p.logger,
	})

	bc := xtream.NewBreakerClient(client, name, p.logger)
	p.clients[name] = cachedClient{key: key, client: bc}

	return bc
}

func newPanelHTTPClient(connectTimeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: connectTimeout}).DialContext,
			TLSHandshakeTimeout:   tlsHandshakeTimeout,
			ResponseHeaderTimeout: responseHeaderTimeout,
			IdleConnTimeout:       idleConnTimeout,
			MaxIdleConnsPerHost:   maxIdleConnsPerHost,
		},
	}
}

// configPrecondition applies network.require_vpn from the live config.
type configPrecondition struct {
	holder *config.Holder
}

func (c configPrecondition) Check(ctx context.Context) error {
	nc := c.holder.Config().Network
	if !nc.RequireVPN {
		return nil
	}

	return sync.NewInterfacePrecondition(nc.VPNInterfaces).Check(ctx)
}

// app is the opened store plus everything built on it.
type app struct {
	store   *store.Store
	nav     *navtree.Cache
	sources *sourceProvider
	orch    *sync.Orchestrator
	logger  *slog.Logger
}

// openApp opens the catalog database and wires the orchestrator. Sync
// tuning is read once here; a reload only changes sources and network
// settings.
func openApp(ctx context.Context, cc *CLIContext) (*app, error) {
	cfg := cc.Holder.Config()

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), dataDirPermissions); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	st, err := store.Open(ctx, cfg.Storage.DBPath, cc.Logger)
	if err != nil {
		return nil, err
	}

	nav := navtree.New(st, navtree.SplitPrefixGrouper, cfg.Sync.CategoryTTLDuration(), cc.Logger)
	sources := newSourceProvider(cc.Holder, cc.Resolved.SourceOverride, cc.Logger)

	orch := sync.NewOrchestrator(sync.Config{
		Store:          st,
		Sources:        sources,
		Precondition:   configPrecondition{holder: cc.Holder},
		NavTree:        nav,
		BatchSize:      cfg.Sync.BatchSize,
		FlushThreshold: cfg.Sync.FlushThreshold,
		SyncTimeout:    cfg.Sync.SyncTimeoutDuration(),
		FallbackTTL:    cfg.Sync.ContentFallbackTTLDuration(),
		RetryAttempts:  cfg.Sync.RetryAttempts,
		Logger:         cc.Logger,
	})

	return &app{
		store:   st,
		nav:     nav,
		sources: sources,
		orch:    orch,
		logger:  cc.Logger,
	}, nil
}

// activeSourceID returns the selected source name.
func (a *app) activeSourceID() (string, error) {
	src, err := a.sources.ActiveSource()
	if err != nil {
		return "", err
	}

	return src.ID, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store", slog.String("error", err.Error()))
	}
}
