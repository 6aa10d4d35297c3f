// Package noop provides a metrics client that records nothing, used when
// metrics are disabled and in tests.
package noop

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
)

type MetricsClient struct{}

func NewMetricsClient() MetricsClient {
	return MetricsClient{}
}

func (MetricsClient) Inc(context.Context, string, any, ...attribute.KeyValue) {}

func (MetricsClient) Handler() http.Handler {
	return http.NotFoundHandler()
}

func (MetricsClient) Shutdown(context.Context) error {
	return nil
}
