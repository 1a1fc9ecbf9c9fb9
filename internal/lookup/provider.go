// Package lookup owns the session-scoped reference-data cache. The snapshot
// is loaded once at session start, refreshed on a staleness signal and read
// concurrently by every validation; readers never see a half-replaced set.
package lookup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tadbeer/visaflow/internal/application/port"
	"github.com/tadbeer/visaflow/internal/domain/residence"
)

// Provider caches the lookup snapshot for the lifetime of a session.
type Provider struct {
	source port.LookupSource
	logger *zap.Logger

	refreshInterval time.Duration

	mu       sync.RWMutex
	snapshot *residence.LookupSet

	runMu     sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
}

// Option configures the provider.
type Option func(*Provider)

// WithRefreshInterval sets the background refresh period. Zero disables the
// background refresher.
func WithRefreshInterval(d time.Duration) Option {
	return func(p *Provider) {
		p.refreshInterval = d
	}
}

// NewProvider creates a lookup provider over the given source.
func NewProvider(source port.LookupSource, logger *zap.Logger, opts ...Option) *Provider {
	p := &Provider{
		source:          source,
		logger:          logger,
		refreshInterval: 15 * time.Minute,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Init loads the initial snapshot. Must be called once at session start
// before any validation uses the provider.
func (p *Provider) Init(ctx context.Context) error {
	return p.Refresh(ctx)
}

// Refresh replaces the cached snapshot with a freshly loaded one. Called at
// session start, on the staleness retry after a failed charge validation,
// and periodically by the background refresher.
func (p *Provider) Refresh(ctx context.Context) error {
	set, err := p.source.Load(ctx)
	if err != nil {
		p.logger.Error("Failed to load lookup snapshot", zap.Error(err))
		return fmt.Errorf("failed to load lookups: %w", err)
	}
	if set.LoadedAt.IsZero() {
		set.LoadedAt = time.Now().UTC()
	}

	p.mu.Lock()
	p.snapshot = set
	p.mu.Unlock()

	p.logger.Info("Lookup snapshot refreshed",
		zap.Int("accounts", len(set.Accounts)),
		zap.Int("suppliers", len(set.Suppliers)),
		zap.Int("credit_accounts", len(set.CreditAccounts)),
		zap.Int("currencies", len(set.Currencies)))
	return nil
}

// Snapshot returns the current snapshot. Before Init it returns an empty set
// so validations fail closed instead of dereferencing nil.
func (p *Provider) Snapshot() *residence.LookupSet {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.snapshot == nil {
		return &residence.LookupSet{}
	}
	return p.snapshot
}

// StartAutoRefresh starts the background refresh loop. It stops when the
// context is cancelled or Stop is called.
func (p *Provider) StartAutoRefresh(ctx context.Context) error {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	if p.isRunning {
		return fmt.Errorf("lookup refresher is already running")
	}
	if p.refreshInterval <= 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.isRunning = true

	p.logger.Info("Lookup refresher started", zap.Duration("interval", p.refreshInterval))

	go p.refreshLoop(ctx)
	return nil
}

// Stop stops the background refresh loop.
func (p *Provider) Stop() {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	if !p.isRunning {
		return
	}
	p.cancel()
	p.isRunning = false
	p.logger.Info("Lookup refresher stopped")
}

func (p *Provider) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(p.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Stale data is acceptable to read; keep serving the previous
			// snapshot if a periodic refresh fails.
			if err := p.Refresh(ctx); err != nil {
				p.logger.Warn("Periodic lookup refresh failed", zap.Error(err))
			}
		}
	}
}
