// Package prometheus implements metrics.Client on a dedicated Prometheus registry.
package prometheus

import (
	"context"
	"net/http"
	"regexp"
	"sort"
	"sync"

	"github.com/architeacher/devicely/pkg/metrics"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
)

var invalidNameChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

type MetricsClient struct {
	namespace  string
	registry   *prom.Registry
	mu         sync.Mutex
	counters   map[string]*prom.CounterVec
	histograms map[string]*prom.HistogramVec
}

var _ metrics.Client = (*MetricsClient)(nil)

func NewMetricsClient(namespace string) *MetricsClient {
	registry := prom.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &MetricsClient{
		namespace:  sanitize(namespace),
		registry:   registry,
		counters:   make(map[string]*prom.CounterVec),
		histograms: make(map[string]*prom.HistogramVec),
	}
}

// Inc lazily registers one collector per key. The label set of a key is fixed
// by its first use; later calls with different attribute keys are dropped.
func (c *MetricsClient) Inc(_ context.Context, key string, value any, attributes ...attribute.KeyValue) {
	v, ok := metrics.ToFloat64(value)
	if !ok {
		return
	}

	names, values := labels(attributes)
	name := sanitize(key)

	c.mu.Lock()
	defer c.mu.Unlock()

	if metrics.IsDuration(key) {
		histogram, err := c.histogram(name, names).GetMetricWithLabelValues(values...)
		if err == nil {
			histogram.Observe(v)
		}

		return
	}

	counter, err := c.counter(name, names).GetMetricWithLabelValues(values...)
	if err == nil && v >= 0 {
		counter.Add(v)
	}
}

func (c *MetricsClient) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *MetricsClient) Shutdown(_ context.Context) error {
	return nil
}

func (c *MetricsClient) counter(name string, labelNames []string) *prom.CounterVec {
	if vec, ok := c.counters[name]; ok {
		return vec
	}

	vec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: c.namespace,
		Name:      name + "_total",
		Help:      "Count of " + name + ".",
	}, labelNames)
	c.registry.MustRegister(vec)
	c.counters[name] = vec

	return vec
}

func (c *MetricsClient) histogram(name string, labelNames []string) *prom.HistogramVec {
	if vec, ok := c.histograms[name]; ok {
		return vec
	}

	vec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: c.namespace,
		Name:      name + "_seconds",
		Help:      "Latency of " + name + " in seconds.",
		Buckets:   prom.DefBuckets,
	}, labelNames)
	c.registry.MustRegister(vec)
	c.histograms[name] = vec

	return vec
}

func labels(attributes []attribute.KeyValue) ([]string, []string) {
	sorted := make([]attribute.KeyValue, len(attributes))
	copy(sorted, attributes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	names := make([]string, 0, len(sorted))
	values := make([]string, 0, len(sorted))

	for _, kv := range sorted {
		names = append(names, sanitize(string(kv.Key)))
		values = append(values, kv.Value.Emit())
	}

	return names, values
}

func sanitize(name string) string {
	return invalidNameChars.ReplaceAllString(name, "_")
}
