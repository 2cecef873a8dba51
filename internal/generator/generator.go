// Package generator builds study plans for missions.
package generator

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/marsfocus/internal/model"
)

const defaultTimeout = 20 * time.Second

// ErrNoSource is returned when no AI plan source is configured.
var ErrNoSource = errors.New("no plan source configured")

// PlanSource generates study plans from an external collaborator.
type PlanSource interface {
	GeneratePlan(ctx context.Context, topic string, durationMinutes int) (model.Plan, error)
}

// Generator produces study plans, degrading to the fallback templates when the source fails.
type Generator struct {
	source  PlanSource
	timeout time.Duration
	log     *zap.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithSource sets the AI plan source.
func WithSource(src PlanSource) Option {
	return func(g *Generator) {
		g.source = src
	}
}

// WithTimeout bounds a single source attempt.
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithLogger sets the logger used to report fallbacks.
func WithLogger(log *zap.Logger) Option {
	return func(g *Generator) {
		if log != nil {
			g.log = log
		}
	}
}

// New returns a Generator. Without a source every plan comes from the fallback templates.
func New(opts ...Option) *Generator {
	g := &Generator{timeout: defaultTimeout, log: zap.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Plan attempts the source once and falls back on any failure. It never fails.
func (g *Generator) Plan(ctx context.Context, topic string, durationMinutes int) model.Plan {
	plan, err := g.trySource(ctx, topic, durationMinutes)
	if err == nil {
		plan.Source = model.PlanSourceAI
		return plan
	}
	g.log.Warn("using fallback study plan",
		zap.String("topic", topic),
		zap.Int("duration_minutes", durationMinutes),
		zap.Error(err),
	)
	return Fallback(topic, durationMinutes)
}

func (g *Generator) trySource(ctx context.Context, topic string, durationMinutes int) (model.Plan, error) {
	if g.source == nil {
		return model.Plan{}, ErrNoSource
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	plan, err := g.source.GeneratePlan(ctx, topic, durationMinutes)
	if err != nil {
		return model.Plan{}, err
	}
	if err := Validate(plan); err != nil {
		return model.Plan{}, err
	}
	return plan, nil
}
