package decorator_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/architeacher/devicely/pkg/decorator"
	"github.com/architeacher/devicely/pkg/logger"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	otelTrace "go.opentelemetry.io/otel/trace"
)

type (
	RenameWidgetCommand struct{ Name string }
	FindWidgetQuery     struct{ ID int }

	recordingMetrics struct {
		mu   sync.Mutex
		keys []string
	}

	callerErr struct{}
)

func (q FindWidgetQuery) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int("widget.id", q.ID),
		attribute.Bool("widget.cached", false),
		attribute.String("widget.kind", "gear"),
	}
}

func (callerErr) Error() string { return "widget not found" }
func (callerErr) Expected() bool { return true }

func (m *recordingMetrics) Inc(_ context.Context, key string, _ any, _ ...attribute.KeyValue) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.keys = append(m.keys, key)
}

func (m *recordingMetrics) Handler() http.Handler { return http.NotFoundHandler() }
func (m *recordingMetrics) Shutdown(context.Context) error { return nil }

type commandFn func(ctx context.Context, cmd RenameWidgetCommand) (string, error)

func (f commandFn) Handle(ctx context.Context, cmd RenameWidgetCommand) (string, error) {
	return f(ctx, cmd)
}

type queryFn func(ctx context.Context, q FindWidgetQuery) (int, error)

func (f queryFn) Execute(ctx context.Context, q FindWidgetQuery) (int, error) {
	return f(ctx, q)
}

func TestApplyCommandDecorators(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name          string
		err           error
		expectMetric  string
		expectLevel   string
		expectErrSpan bool
	}{
		{
			name:         "success",
			expectMetric: "commands.renamewidgetcommand.success",
			expectLevel:  `"level":"debug"`,
		},
		{
			name:          "system failure",
			err:           errors.New("disk full"),
			expectMetric:  "commands.renamewidgetcommand.failure",
			expectLevel:   `"level":"error"`,
			expectErrSpan: true,
		},
		{
			name:         "caller failure",
			err:          fmt.Errorf("lookup: %w", callerErr{}),
			expectMetric: "commands.renamewidgetcommand.failure",
			expectLevel:  `"level":"info"`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			buf := &bytes.Buffer{}
			metricsClient := &recordingMetrics{}
			recorder := tracetest.NewSpanRecorder()
			tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

			var spanSeen bool
			handler := decorator.ApplyCommandDecorators[RenameWidgetCommand, string](
				commandFn(func(ctx context.Context, cmd RenameWidgetCommand) (string, error) {
					spanSeen = otelTrace.SpanFromContext(ctx).SpanContext().IsValid()

					return cmd.Name, tc.err
				}),
				logger.NewBufferedTestLogger(buf),
				metricsClient,
				tp,
			)

			result, err := handler.Handle(context.Background(), RenameWidgetCommand{Name: "gizmo"})

			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
			} else {
				require.NoError(t, err)
				require.Equal(t, "gizmo", result)
			}

			require.True(t, spanSeen)
			require.Equal(t, []string{"commands.renamewidgetcommand.duration", tc.expectMetric}, metricsClient.keys)
			require.Contains(t, buf.String(), `"command":"RenameWidgetCommand"`)
			require.Contains(t, buf.String(), tc.expectLevel)

			spans := recorder.Ended()
			require.Len(t, spans, 1)
			require.Equal(t, "command.RenameWidgetCommand", spans[0].Name())

			if tc.expectErrSpan {
				require.Equal(t, codes.Error, spans[0].Status().Code)
			} else {
				require.NotEqual(t, codes.Error, spans[0].Status().Code)
			}
		})
	}
}

func TestApplyQueryDecorators(t *testing.T) {
	t.Parallel()

	metricsClient := &recordingMetrics{}
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	buf := &bytes.Buffer{}

	handler := decorator.ApplyQueryDecorators[FindWidgetQuery, int](
		queryFn(func(_ context.Context, q FindWidgetQuery) (int, error) {
			return q.ID * 2, nil
		}),
		logger.NewBufferedTestLogger(buf),
		metricsClient,
		tp,
	)

	result, err := handler.Execute(context.Background(), FindWidgetQuery{ID: 21})
	require.NoError(t, err)
	require.Equal(t, 42, result)
	require.Equal(t, []string{"queries.findwidgetquery.duration", "queries.findwidgetquery.success"}, metricsClient.keys)

	require.Contains(t, buf.String(), `"widget.id":21`)
	require.Contains(t, buf.String(), `"widget.cached":false`)
	require.Contains(t, buf.String(), `"widget.kind":"gear"`)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, "query.FindWidgetQuery", spans[0].Name())
	require.Contains(t, spans[0].Attributes(), attribute.Int("widget.id", 21))
	require.Contains(t, spans[0].Attributes(), attribute.String("usecase.query", "FindWidgetQuery"))
}

func TestApplyQueryDecorators_NilCollaborators(t *testing.T) {
	t.Parallel()

	handler := decorator.ApplyQueryDecorators[FindWidgetQuery, int](
		queryFn(func(_ context.Context, q FindWidgetQuery) (int, error) {
			return q.ID, nil
		}),
		logger.NewTestLogger(),
		nil,
		nil,
	)

	result, err := handler.Execute(context.Background(), FindWidgetQuery{ID: 7})
	require.NoError(t, err)
	require.Equal(t, 7, result)
}

func TestIsExpected(t *testing.T) {
	t.Parallel()

	require.True(t, decorator.IsExpected(callerErr{}))
	require.True(t, decorator.IsExpected(fmt.Errorf("wrapped: %w", callerErr{})))
	require.True(t, decorator.IsExpected(fmt.Errorf("query: %w", context.Canceled)))
	require.False(t, decorator.IsExpected(errors.New("boom")))
	require.False(t, decorator.IsExpected(context.DeadlineExceeded))
	require.False(t, decorator.IsExpected(nil))
}
