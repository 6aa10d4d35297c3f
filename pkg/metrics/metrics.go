// Package metrics defines the client the use-case decorators report to.
package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

type Client interface {
	// Inc records value under key. Keys ending in ".duration" are observed as
	// latencies in seconds, everything else is added to a counter.
	Inc(ctx context.Context, key string, value any, attributes ...attribute.KeyValue)
	Handler() http.Handler
	Shutdown(ctx context.Context) error
}

const DurationSuffix = ".duration"

func IsDuration(key string) bool {
	return strings.HasSuffix(key, DurationSuffix)
}

// ToFloat64 converts the numeric values accepted by Client.Inc.
func ToFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case time.Duration:
		return v.Seconds(), true
	default:
		return 0, false
	}
}
