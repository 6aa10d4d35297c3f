package telemetry_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/architeacher/devicely/internal/config"
	"github.com/architeacher/devicely/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/require"
)

func TestNewTracerProvider(t *testing.T) {
	cases := []struct {
		name        string
		exporter    string
		expectError bool
	}{
		{name: "stdout exporter", exporter: telemetry.ExporterTypeStdOut},
		{name: "exporter type is case insensitive", exporter: "STDOUT"},
		{name: "unsupported exporter", exporter: "zipkin", expectError: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			app := config.App{ServiceName: "devicely", ServiceVersion: "test", Env: config.Environment{Name: "development"}}
			cfg := config.Telemetry{ExporterType: tc.exporter, Traces: config.Traces{SamplerRatio: 1}}

			tp, shutdown, err := telemetry.NewTracerProvider(context.Background(), app, cfg, buf)
			if tc.expectError {
				require.ErrorContains(t, err, "unsupported exporter type")

				return
			}

			require.NoError(t, err)

			_, span := tp.Tracer("test").Start(context.Background(), "list-devices")
			span.End()

			require.NoError(t, shutdown(context.Background()))
			require.Contains(t, buf.String(), `"Name": "list-devices"`)
			require.Contains(t, buf.String(), "devicely")
		})
	}
}

func TestNewNoopTracerProvider(t *testing.T) {
	t.Parallel()

	_, span := telemetry.NewNoopTracerProvider().Tracer("test").Start(context.Background(), "noop")
	defer span.End()

	require.False(t, span.SpanContext().IsValid())
}
