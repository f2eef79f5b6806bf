package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/andreesc15/tabbycat/internal/domain"
	"github.com/andreesc15/tabbycat/internal/ports"
)

var _ ports.DrawPolicy = (*TracedPolicy)(nil)

// TracedPolicy decorates a pairing policy with OpenTelemetry tracing. Each
// generation produces one span carrying the round, policy and outcome.
type TracedPolicy struct {
	inner  ports.DrawPolicy
	tracer trace.Tracer
}

// NewTracedPolicy wraps a pairing policy with tracing.
func NewTracedPolicy(inner ports.DrawPolicy) *TracedPolicy {
	return &TracedPolicy{
		inner:  inner,
		tracer: otel.Tracer("draw-policy"),
	}
}

// Name returns the wrapped policy's identifier.
func (p *TracedPolicy) Name() string { return p.inner.Name() }

// Validate delegates to the wrapped policy.
func (p *TracedPolicy) Validate() error { return p.inner.Validate() }

// Generate runs the wrapped policy inside a span.
func (p *TracedPolicy) Generate(ctx context.Context, in ports.DrawInput) ([]domain.Debate, error) {
	ctx, span := p.tracer.Start(ctx, "DrawPolicy.Generate")
	defer span.End()

	span.SetAttributes(
		attribute.String("policy", p.inner.Name()),
		attribute.String("round_id", string(in.Round.ID)),
		attribute.Int("round_seq", in.Round.Seq),
		attribute.Int("teams", len(in.Teams)),
	)

	debates, err := p.inner.Generate(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("debates", len(debates)))
	span.SetStatus(codes.Ok, "draw generated")
	return debates, nil
}

// TracedPolicyFactory wraps a policy factory so every created policy is
// traced.
func TracedPolicyFactory(factory ports.PolicyFactory) ports.PolicyFactory {
	return func(name string, params map[string]any) (ports.DrawPolicy, error) {
		policy, err := factory(name, params)
		if err != nil {
			return nil, err
		}
		return NewTracedPolicy(policy), nil
	}
}
