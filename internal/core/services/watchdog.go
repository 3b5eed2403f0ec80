// Package services contains core business logic services
// Following Hexagonal Architecture: Core layer is independent of infrastructure
package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"dealerchat/internal/core/domain"
	"dealerchat/internal/core/ports"
)

// disconnect the gateway row after this many consecutive failed probes
const watchdogFailureThreshold = 3

// RunGatewayWatchdog starts the background gateway connectivity check.
// Every interval it probes the connected Evolution gateway through the
// instance-listing endpoint; after repeated failures the row is marked
// disconnected so sends fail fast with a configuration error instead of
// timing out against a dead gateway.
func RunGatewayWatchdog(gateways ports.GatewayConfigRepository, evolution ports.EvolutionTransport, health *GatewayHealth) {
	ticker := time.NewTicker(5 * time.Minute)

	go func() {
		for range ticker.C {
			checkGateway(gateways, evolution, health)
		}
	}()

	slog.Info("Gateway watchdog started", "interval", "5m")
}

// checkGateway performs a single connectivity probe
func checkGateway(gateways ports.GatewayConfigRepository, evolution ports.EvolutionTransport, health *GatewayHealth) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	gw, err := gateways.FindConnected(ctx)
	if err != nil {
		slog.Error("Watchdog failed to load gateway config", "error", err)
		return
	}
	if gw == nil {
		health.SetUnconfigured()
		return
	}

	_, err = evolution.FetchFirstInstance(ctx, gw)
	// An empty instance list still proves the gateway is reachable
	if err == nil || errors.Is(err, domain.ErrNoInstanceAvailable) {
		health.SetHealthy()
		return
	}

	failures := health.SetUnreachable(err.Error())
	slog.Warn("Evolution gateway unreachable",
		"error", err,
		"consecutive_failures", failures,
	)

	if failures >= watchdogFailureThreshold {
		if err := gateways.MarkDisconnected(ctx, gw.ID); err != nil {
			slog.Error("Failed to mark gateway disconnected",
				"error", err,
				"gateway_id", gw.ID,
			)
			return
		}
		slog.Warn("🔴 GATEWAY DISCONNECTED - repeated connectivity failures",
			"gateway_id", gw.ID,
			"action", "Admin must reconnect Evolution gateway",
		)
	}
}
