// Package services contains gateway health tracking
package services

import (
	"sync"
	"time"
)

// GatewayHealth tracks the last known state of the Evolution gateway
// connection, updated by the watchdog and exposed on the metrics endpoint
type GatewayHealth struct {
	mu           sync.RWMutex
	configured   bool
	reachable    bool
	failureCount int
	lastError    string
	lastCheck    time.Time
}

// SetHealthy records a successful connectivity probe
func (g *GatewayHealth) SetHealthy() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.configured = true
	g.reachable = true
	g.failureCount = 0
	g.lastError = ""
	g.lastCheck = time.Now()
}

// SetUnreachable records a failed probe and returns the consecutive
// failure count
func (g *GatewayHealth) SetUnreachable(errMsg string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.configured = true
	g.reachable = false
	g.failureCount++
	g.lastError = errMsg
	g.lastCheck = time.Now()
	return g.failureCount
}

// SetUnconfigured records that no connected gateway row exists
func (g *GatewayHealth) SetUnconfigured() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.configured = false
	g.reachable = false
	g.failureCount = 0
	g.lastError = ""
	g.lastCheck = time.Now()
}

// GetStatus returns the current gateway health snapshot
func (g *GatewayHealth) GetStatus() map[string]interface{} {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return map[string]interface{}{
		"configured":    g.configured,
		"reachable":     g.reachable,
		"failure_count": g.failureCount,
		"last_error":    g.lastError,
		"last_check":    g.lastCheck,
	}
}
