package decorator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/architeacher/devicely/pkg/metrics"
)

type (
	commandMetricsDecorator[C Command, R any] struct {
		base   CommandHandler[C, R]
		client metrics.Client
	}

	queryMetricsDecorator[Q Query, R Result] struct {
		base   QueryHandler[Q, R]
		client metrics.Client
	}
)

func (d commandMetricsDecorator[C, R]) Handle(ctx context.Context, cmd C) (result R, err error) {
	start := time.Now()

	defer func() {
		record(ctx, d.client, "commands", generateActionName(cmd), time.Since(start), err)
	}()

	return d.base.Handle(ctx, cmd)
}

func (d queryMetricsDecorator[Q, R]) Execute(ctx context.Context, query Q) (result R, err error) {
	start := time.Now()

	defer func() {
		record(ctx, d.client, "queries", generateActionName(query), time.Since(start), err)
	}()

	return d.base.Execute(ctx, query)
}

func record(ctx context.Context, client metrics.Client, kind, action string, elapsed time.Duration, err error) {
	if client == nil {
		return
	}

	prefix := fmt.Sprintf("%s.%s", kind, strings.ToLower(action))

	client.Inc(ctx, prefix+metrics.DurationSuffix, elapsed)

	if err == nil {
		client.Inc(ctx, prefix+".success", 1)

		return
	}

	client.Inc(ctx, prefix+".failure", 1)
}
