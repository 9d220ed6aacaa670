// Package monitor runs the periodic fleet scan: it fetches live conditions
// for every active route, revises ETAs, records snapshots, flags delayed
// routes, and triggers re-optimization on demand.
package monitor

import (
	"time"
)

// Decision thresholds for the scan.
const (
	// delayedThresholdMinutes is the delay past which a route is marked
	// delayed.
	delayedThresholdMinutes = 30

	// notifyThresholdMinutes is the delay past which dispatch is alerted
	// even when no recalculation is suggested.
	notifyThresholdMinutes = 15
)

// ScanConfig holds configuration for the fleet scanner.
type ScanConfig struct {
	// Interval between scheduled scans.
	// Default: 5 minutes
	Interval time.Duration

	// Concurrency is the number of routes scanned in parallel.
	// Default: 8
	Concurrency int

	// RouteTimeout bounds the condition fetches for one route.
	// Default: 30 seconds
	RouteTimeout time.Duration

	// Retention is how long condition snapshots are kept.
	// Default: 24 hours
	Retention time.Duration
}

// DefaultScanConfig returns the default scan configuration.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		Interval:     5 * time.Minute,
		Concurrency:  8,
		RouteTimeout: 30 * time.Second,
		Retention:    24 * time.Hour,
	}
}

func (c ScanConfig) withDefaults() ScanConfig {
	def := DefaultScanConfig()
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.RouteTimeout <= 0 {
		c.RouteTimeout = def.RouteTimeout
	}
	if c.Retention <= 0 {
		c.Retention = def.Retention
	}
	return c
}
