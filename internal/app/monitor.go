package app

import (
	"context"
	"time"

	"ghost-crew/pkg/logger"

	"go.uber.org/zap"
)

// Monitor probes the backend and feeds the result to Store.SetOnline.
type Monitor struct {
	Store    *Store
	Backend  Backend
	Interval time.Duration
	// Timeout bounds each probe. Zero means Interval.
	Timeout time.Duration
	// OnProbe, when set, sees every probe result.
	OnProbe func(online bool, summary SyncSummary)
}

// Probe runs a single check and returns the connectivity it recorded.
func (m *Monitor) Probe(ctx context.Context) bool {
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = m.Interval
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	err := m.Backend.Ping(probeCtx)
	cancel()

	online := err == nil
	if !online {
		logger.ContextLogger.Debug("Backend probe failed", zap.Error(err))
	}
	summary := m.Store.SetOnline(ctx, online)
	if summary.Attempted > 0 {
		logger.SystemLogger.Info("Synced after reconnect", zap.Int("synced", summary.Synced), zap.Int("failed", summary.Failed))
	}
	if m.OnProbe != nil {
		m.OnProbe(online, summary)
	}
	return online
}

// Run probes immediately and then every Interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	interval := m.Interval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Probe(ctx)
		}
	}
}
