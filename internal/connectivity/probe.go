package connectivity

import (
	"context"
	stdsync "sync"
	"time"

	"learning-app-go/pkg/logger"
)

const (
	defaultProbeInterval = 15 * time.Second
	defaultProbeTimeout  = 3 * time.Second
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Probe infers connectivity by pinging the remote service on an interval.
type Probe struct {
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration
	log      logger.Logger

	mu      stdsync.Mutex
	known   bool
	online  bool
	changes *notifier
}

func NewProbe(pinger Pinger, interval time.Duration, log logger.Logger) *Probe {
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	return &Probe{
		pinger:   pinger,
		interval: interval,
		timeout:  defaultProbeTimeout,
		log:      logger.Component(log, "connectivity"),
		changes:  newNotifier(),
	}
}

// Online returns the last observed state, probing once if nothing has been
// observed yet.
func (p *Probe) Online(ctx context.Context) bool {
	p.mu.Lock()
	known, online := p.known, p.online
	p.mu.Unlock()
	if known {
		return online
	}
	return p.Check(ctx)
}

func (p *Probe) Changes() <-chan bool {
	return p.changes.ch
}

// Check pings the remote service now and records the result.
func (p *Probe) Check(ctx context.Context) bool {
	pctx, cancel := context.WithTimeout(ctx, p.timeout)
	err := p.pinger.Ping(pctx)
	cancel()

	online := err == nil
	p.mu.Lock()
	changed := p.known && p.online != online
	p.known = true
	p.online = online
	p.mu.Unlock()

	if changed {
		p.log.Info("connectivity: state changed", "online", online)
		p.changes.publish(online)
	}
	if err != nil {
		p.log.Debug("connectivity: probe failed", "error", err.Error())
	}
	return online
}

// Run probes on every interval until ctx is cancelled.
func (p *Probe) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}
