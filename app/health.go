package app

import (
	"context"
	"errors"
	"fmt"
)

const (
	healthyStatus   = "healthy"
	unhealthyStatus = "unhealthy"
)

// HealthStatus captures the outcome of a readiness probe.
type HealthStatus struct {
	Name     string
	Status   string
	Details  map[string]any
	Err      error
	Critical bool
}

// HealthProbe exposes a uniform interface for readiness probes.
type HealthProbe interface {
	Run(ctx context.Context) HealthStatus
}

// NewHealthProbe adapts fn to a HealthProbe. Only critical probes fail
// readiness.
func NewHealthProbe(name string, critical bool, fn func(ctx context.Context) (map[string]any, error)) HealthProbe {
	return healthProbeFunc{name: name, critical: critical, fn: fn}
}

type healthProbeFunc struct {
	name     string
	critical bool
	fn       func(ctx context.Context) (map[string]any, error)
}

func (h healthProbeFunc) Run(ctx context.Context) HealthStatus {
	details, err := h.fn(ctx)
	if details == nil {
		details = map[string]any{}
	}
	status := healthyStatus
	if err != nil {
		status = unhealthyStatus
	}
	return HealthStatus{
		Name:     h.name,
		Status:   status,
		Details:  details,
		Err:      err,
		Critical: h.critical,
	}
}

// routesProbe reports the mounted route count.
func routesProbe(a *App) HealthProbe {
	return NewHealthProbe("routes", true, func(context.Context) (map[string]any, error) {
		reg, err := a.Routes()
		if err != nil {
			return nil, err
		}
		return map[string]any{"count": reg.Len()}, nil
	})
}

// specProbe checks that the document for the current snapshot builds.
func specProbe(a *App) HealthProbe {
	return NewHealthProbe("openapi", true, func(context.Context) (map[string]any, error) {
		doc, err := a.Document()
		if err != nil {
			return nil, err
		}
		return map[string]any{"paths": len(doc.Paths)}, nil
	})
}

// readyCheck runs every probe. Critical failures are joined into the
// returned error; the rest are logged.
func (a *App) readyCheck(ctx context.Context) error {
	var errs []error
	for _, probe := range a.probes {
		result := probe.Run(ctx)
		if result.Err == nil {
			continue
		}
		if result.Critical {
			errs = append(errs, fmt.Errorf("%s: %w", result.Name, result.Err))
			continue
		}
		a.logger.WithContext(ctx).Warn().
			Err(result.Err).
			Str("probe", result.Name).
			Msg("Non-critical readiness probe failed")
	}
	return errors.Join(errs...)
}
