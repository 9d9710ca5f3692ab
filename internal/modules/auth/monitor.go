package auth

import (
	"context"
	"log"
	"time"
)

const (
	defaultCleanupInterval = 2 * time.Minute
	defaultMonitorInterval = 15 * time.Minute
	defaultIncidentWindow  = 24 * time.Hour
)

type MonitorConfig struct {
	CleanupInterval time.Duration
	MonitorInterval time.Duration
	IncidentWindow  time.Duration
}

// Monitor runs the two periodic maintenance tasks: the expiry sweep and the
// security scan. Cadence is a deployment parameter, not a correctness one;
// both tasks are safe to run concurrently with live rotations.
type Monitor struct {
	tokens TokenStore
	engine *RotationEngine
	cfg    MonitorConfig
}

func NewMonitor(tokens TokenStore, engine *RotationEngine, cfg MonitorConfig) *Monitor {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaultCleanupInterval
	}
	if cfg.MonitorInterval <= 0 {
		cfg.MonitorInterval = defaultMonitorInterval
	}
	if cfg.IncidentWindow <= 0 {
		cfg.IncidentWindow = defaultIncidentWindow
	}
	return &Monitor{tokens: tokens, engine: engine, cfg: cfg}
}

// Start launches both loops. They stop when ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	go m.runSweep(ctx)
	go m.runSecurityScan(ctx)
}

func (m *Monitor) runSweep(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SweepOnce(ctx)
		}
	}
}

func (m *Monitor) runSecurityScan(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.ScanOnce(ctx)
		}
	}
}

// SweepOnce revokes expired-but-unrevoked records, then hard-deletes
// everything terminal. Deletes only touch rows that are already dead.
func (m *Monitor) SweepOnce(ctx context.Context) {
	now := time.Now()

	revoked, err := m.tokens.RevokeExpired(ctx, now)
	if err != nil {
		log.Printf("token sweep: revoke expired failed: %v", err)
		return
	}
	deleted, err := m.tokens.DeleteExpiredOrRevoked(ctx, now)
	if err != nil {
		log.Printf("token sweep: delete failed: %v", err)
		return
	}
	if revoked > 0 || deleted > 0 {
		log.Printf("token sweep: revoked %d expired, deleted %d terminal rows", revoked, deleted)
	}
}

// ScanOnce reports suspicious rotation patterns and recent reuse incidents.
// Observability only; remediation already happened at rotation time.
func (m *Monitor) ScanOnce(ctx context.Context) {
	suspicious, err := m.engine.FindSuspiciousTokens(ctx)
	if err != nil {
		log.Printf("security scan: suspicious query failed: %v", err)
		return
	}
	for _, t := range suspicious {
		log.Printf("security scan: family %s near rotation ceiling (count %d, user %s)",
			t.TokenFamily, t.RotationCount, t.UserID)
	}

	incidents, err := m.engine.RecentSecurityIncidents(ctx, m.cfg.IncidentWindow)
	if err != nil {
		log.Printf("security scan: incident query failed: %v", err)
		return
	}
	if len(incidents) > 0 {
		log.Printf("security scan: %d token reuse incidents in the last %s", len(incidents), m.cfg.IncidentWindow)
	}
}
