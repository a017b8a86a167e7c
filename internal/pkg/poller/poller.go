package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Poller runs one function on a fixed interval, tied to an explicit
// Start/Stop lifetime so no timer leaks across navigation.
type Poller struct {
	name     string
	interval time.Duration
	fn       func(ctx context.Context) error

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(name string, interval time.Duration, fn func(ctx context.Context) error) *Poller {
	return &Poller{name: name, interval: interval, fn: fn}
}

// Start begins polling; the first run happens immediately. Calling Start on
// a running poller is a no-op.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.wg.Add(1)
	go p.run(ctx)
	slog.Info("poller started", "name", p.name, "interval", p.interval)
}

// Stop cancels the poll loop and waits for an in-flight run to return.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	p.wg.Wait()
	slog.Info("poller stopped", "name", p.name)
}

// Running reports whether the poll loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Poller) run(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.execute(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.execute(ctx)
		}
	}
}

func (p *Poller) execute(ctx context.Context) {
	start := time.Now()
	if err := p.fn(ctx); err != nil {
		slog.Warn("poll failed", "name", p.name, "error", err, "duration", time.Since(start))
		return
	}
	slog.Debug("poll completed", "name", p.name, "duration", time.Since(start))
}
