package decorator

import (
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// Attributed is implemented by commands and queries that describe their
// input to logs and spans.
type Attributed interface {
	Attributes() []attribute.KeyValue
}

func actionAttributes(action any) []attribute.KeyValue {
	if a, ok := action.(Attributed); ok {
		return a.Attributes()
	}

	return nil
}

func withAttributes(logCtx zerolog.Context, attrs []attribute.KeyValue) zerolog.Context {
	for _, kv := range attrs {
		switch kv.Value.Type() {
		case attribute.INT64:
			logCtx = logCtx.Int64(string(kv.Key), kv.Value.AsInt64())
		case attribute.BOOL:
			logCtx = logCtx.Bool(string(kv.Key), kv.Value.AsBool())
		default:
			logCtx = logCtx.Str(string(kv.Key), kv.Value.Emit())
		}
	}

	return logCtx
}
