// Package lifecycle decides, route by route, whether a certificate must be
// obtained, renewed or left alone, and carries out that decision.
package lifecycle

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/nginxlb/internal/domain"
	"github.com/MrSnakeDoc/nginxlb/internal/index"
	"github.com/MrSnakeDoc/nginxlb/internal/logger"
)

// Inspector reports the current certificate for a host.
type Inspector interface {
	Inspect(ctx context.Context, host string) domain.Inspection
}

// Authority issues and renews certificates.
type Authority interface {
	Obtain(ctx context.Context, host string) error
	Renew(ctx context.Context, host string) error
}

// Reloader makes the proxy pick up new certificates.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Manager runs the certificate lifecycle over a fixed set of routes.
// Routes are processed one at a time, in configuration order; a failure on
// one route never stops the others.
type Manager struct {
	routes    []domain.Route
	inspector Inspector
	authority Authority
	proxy     Reloader
	status    *index.StatusIndex
	logger    logger.Logger
	now       func() time.Time
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithStatus records every outcome into idx.
func WithStatus(idx *index.StatusIndex) Option {
	return func(m *Manager) { m.status = idx }
}

// NewManager wires the lifecycle over routes.
func NewManager(
	routes []domain.Route,
	inspector Inspector,
	authority Authority,
	proxy Reloader,
	log logger.Logger,
	opts ...Option,
) *Manager {
	m := &Manager{
		routes:    routes,
		inspector: inspector,
		authority: authority,
		proxy:     proxy,
		logger:    log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RunCycle evaluates every route once. It does not stop early when ctx is
// cancelled: a started cycle always completes.
func (m *Manager) RunCycle(ctx context.Context) []domain.Outcome {
	start := m.now()
	m.logger.Info("certificate cycle started", logger.Int("routes", len(m.routes)))

	outcomes := make([]domain.Outcome, 0, len(m.routes))
	counts := make(map[domain.State]int)
	for _, route := range m.routes {
		o := m.Evaluate(ctx, route)
		outcomes = append(outcomes, o)
		counts[o.Final]++
		if m.status != nil {
			m.status.Record(o)
		}
	}

	end := m.now()
	if m.status != nil {
		m.status.CompleteCycle(end)
	}

	m.logger.Info("certificate cycle completed",
		logger.Duration("elapsed", end.Sub(start)),
		logger.Int("valid", counts[domain.StateValid]),
		logger.Int("issued", counts[domain.StateIssued]),
		logger.Int("renewed", counts[domain.StateRenewed]),
		logger.Int("failed", counts[domain.StateActionFailed]),
		logger.Int("skipped", counts[domain.StateNotApplicable]))
	return outcomes
}

// Evaluate runs the lifecycle for a single route.
func (m *Manager) Evaluate(ctx context.Context, route domain.Route) domain.Outcome {
	now := m.now().UTC()
	log := m.logger.With(logger.Host(route.Host))
	out := domain.Outcome{Host: route.Host, Action: domain.ActionNone, CheckedAt: now}

	if !route.TLSEnabled {
		log.Info("TLS not enabled, skipping")
		out.Observed = domain.StateNotApplicable
		out.Final = domain.StateNotApplicable
		return out
	}

	insp := m.inspector.Inspect(ctx, route.Host)
	out.Observed, out.Action = domain.Decide(route, insp.Record, now)
	out.Miss = insp.Miss
	if insp.Record != nil {
		out.Expiry = insp.Record.Expiry
	}

	switch out.Action {
	case domain.ActionObtain:
		log.Info("no usable certificate, requesting a new one", logger.String("reason", string(insp.Miss)))
		m.act(ctx, log, &out, m.authority.Obtain, domain.StateIssued)
	case domain.ActionRenew:
		log.Info("certificate expiring soon, renewing",
			logger.Time("expiry", out.Expiry),
			logger.Duration("remaining", insp.Record.Remaining(now)))
		m.act(ctx, log, &out, m.authority.Renew, domain.StateRenewed)
	default:
		log.Info("certificate valid, renewal not required",
			logger.Time("expiry", out.Expiry),
			logger.Duration("remaining", insp.Record.Remaining(now)))
		out.Final = domain.StateValid
	}
	return out
}

// act runs an obtain or renew step and reloads the proxy on success. A
// failed reload is logged but does not undo the certificate change.
func (m *Manager) act(
	ctx context.Context,
	log logger.Logger,
	out *domain.Outcome,
	step func(context.Context, string) error,
	success domain.State,
) {
	if err := step(ctx, out.Host); err != nil {
		log.Error("certificate action failed, will retry next cycle",
			logger.String("action", string(out.Action)),
			logger.Error(err))
		out.Final = domain.StateActionFailed
		out.Err = err
		out.Error = err.Error()
		return
	}
	out.Final = success

	if err := m.proxy.Reload(ctx); err != nil {
		log.Warn("failed to reload proxy after certificate change",
			logger.String("action", string(out.Action)),
			logger.Error(err))
		return
	}
	out.Reloaded = true
	log.Info("certificate updated and proxy reloaded", logger.String("result", string(success)))
}
