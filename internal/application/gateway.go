package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mohitagr18/mcp-home-automation/internal/domain"
)

// PlugHandle is one live connection to the device.
type PlugHandle interface {
	Update(ctx context.Context) error
	TurnOn(ctx context.Context) error
	TurnOff(ctx context.Context) error
	Device() domain.Device
}

// PlugResolver produces a refreshed handle for the configured device,
// reusing a cached one when possible.
type PlugResolver interface {
	Resolve(ctx context.Context) (PlugHandle, error)
	Invalidate()
}

// Gateway implements the four device operations served to the tool layer.
// Every per-call error is converted into a failure result here; nothing
// below this boundary terminates the serving process.
type Gateway struct {
	resolver PlugResolver
	alias    string
	logger   *slog.Logger
}

// NewGateway builds a gateway for the single configured device. alias is the
// display name used in failure messages when the device cannot be reached
// and no handle is available to report its own.
func NewGateway(resolver PlugResolver, alias string, logger *slog.Logger) *Gateway {
	return &Gateway{resolver: resolver, alias: alias, logger: logger}
}

// SetPower switches the plug relay and returns the post-command state.
func (g *Gateway) SetPower(ctx context.Context, on bool) domain.Result {
	plug, err := g.resolver.Resolve(ctx)
	if err != nil {
		g.logger.Warn("device unreachable",
			"alias", g.alias,
			"kind", domain.KindOf(err),
			"error", err,
		)
		return domain.Failure(fmt.Sprintf("Kasa device %q not found or unreachable.", g.alias))
	}

	verb := "on"
	action := plug.TurnOn
	if !on {
		verb = "off"
		action = plug.TurnOff
	}

	alias := plug.Device().Alias
	if err := action(ctx); err != nil {
		g.logger.Error("power command failed",
			"alias", alias,
			"on", on,
			"kind", domain.KindOf(err),
			"error", err,
		)
		return domain.Failure(fmt.Sprintf("Failed to turn %s device %q: %v", verb, alias, err))
	}

	if err := plug.Update(ctx); err != nil {
		return domain.Failure(fmt.Sprintf("Failed to confirm state of device %q: %v", alias, err))
	}

	d := plug.Device()
	g.logger.Info("power state changed", "alias", d.Alias, "is_on", d.IsOn)
	return domain.Success(d.Alias, d.IsOn)
}

// Status reports the current power state without mutating the device.
func (g *Gateway) Status(ctx context.Context) domain.Result {
	plug, err := g.resolver.Resolve(ctx)
	if err != nil {
		g.logger.Warn("device unreachable",
			"alias", g.alias,
			"kind", domain.KindOf(err),
			"error", err,
		)
		return domain.Failure(fmt.Sprintf("Kasa device %q not found or unreachable.", g.alias))
	}

	if err := plug.Update(ctx); err != nil {
		alias := plug.Device().Alias
		return domain.Failure(fmt.Sprintf("Failed to get status for device %q: %v", alias, err))
	}

	d := plug.Device()
	return domain.Success(d.Alias, d.IsOn)
}

// ListDevices describes the configured device if it is reachable. An
// unreachable device yields an empty list, never a failure.
func (g *Gateway) ListDevices(ctx context.Context) []domain.Device {
	plug, err := g.resolver.Resolve(ctx)
	if err != nil {
		g.logger.Warn("device not reachable for listing",
			"alias", g.alias,
			"error", err,
		)
		return []domain.Device{}
	}
	return []domain.Device{plug.Device()}
}
