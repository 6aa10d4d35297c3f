package decorator

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelTrace "go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/architeacher/devicely/pkg/decorator"

type (
	commandTracingDecorator[C Command, R any] struct {
		base           CommandHandler[C, R]
		tracerProvider otelTrace.TracerProvider
	}

	queryTracingDecorator[Q Query, R Result] struct {
		base           QueryHandler[Q, R]
		tracerProvider otelTrace.TracerProvider
	}
)

func (d commandTracingDecorator[C, R]) Handle(ctx context.Context, cmd C) (result R, err error) {
	if d.tracerProvider == nil {
		return d.base.Handle(ctx, cmd)
	}

	name := generateActionName(cmd)

	ctx, span := d.tracerProvider.Tracer(tracerName).Start(ctx, "command."+name,
		otelTrace.WithAttributes(attribute.String("usecase.command", name)),
		otelTrace.WithAttributes(actionAttributes(cmd)...),
	)
	defer func() {
		endSpan(span, err)
	}()

	return d.base.Handle(ctx, cmd)
}

func (d queryTracingDecorator[Q, R]) Execute(ctx context.Context, query Q) (result R, err error) {
	if d.tracerProvider == nil {
		return d.base.Execute(ctx, query)
	}

	name := generateActionName(query)

	ctx, span := d.tracerProvider.Tracer(tracerName).Start(ctx, "query."+name,
		otelTrace.WithAttributes(attribute.String("usecase.query", name)),
		otelTrace.WithAttributes(actionAttributes(query)...),
	)
	defer func() {
		endSpan(span, err)
	}()

	return d.base.Execute(ctx, query)
}

func endSpan(span otelTrace.Span, err error) {
	if err != nil && !IsExpected(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	span.End()
}
