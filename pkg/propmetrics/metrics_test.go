package propmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/vango-dev/prop/pkg/prop"
)

func newTestCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewCollector(WithRegistry(reg), WithNamespace("test")), reg
}

func TestObserveCountsEmissions(t *testing.T) {
	c, _ := newTestCollector(t)
	p := prop.New(0, prop.WithName("counter"))
	c.Observe(p)

	assert.Equal(t, float64(0), testutil.ToFloat64(c.emissions.WithLabelValues("counter")), "current cell must not be counted")

	p.Next(1)
	p.Next(2)
	p.SetError(errors.New("bad"))

	assert.Equal(t, float64(3), testutil.ToFloat64(c.emissions.WithLabelValues("counter")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.errs.WithLabelValues("counter", prop.KindValue)))
}

func TestObserveActiveAndEnds(t *testing.T) {
	c, _ := newTestCollector(t)
	a := prop.New(1, prop.WithName("a"))
	b := prop.New(2)
	c.Observe(a)
	c.Observe(b)

	assert.Equal(t, float64(2), testutil.ToFloat64(c.active))

	a.End()
	assert.Equal(t, float64(1), testutil.ToFloat64(c.active))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.ends.WithLabelValues("a")))

	b.End()
	assert.Equal(t, float64(0), testutil.ToFloat64(c.active))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.ends.WithLabelValues(unnamed)))
}

func TestObserveEndedProp(t *testing.T) {
	c, _ := newTestCollector(t)
	p := prop.New(1)
	p.End()

	c.Observe(p)
	assert.Equal(t, float64(0), testutil.ToFloat64(c.active))
	assert.Equal(t, float64(0), testutil.ToFloat64(c.ends.WithLabelValues(unnamed)))
}

func TestObserveCompositeErrors(t *testing.T) {
	c, _ := newTestCollector(t)
	num := prop.Pending[int]()
	str := prop.New("badger")
	tuple := prop.Tuple(num, str)
	c.Observe(tuple)

	str.Next("snake")
	assert.Equal(t, float64(1), testutil.ToFloat64(c.errs.WithLabelValues(unnamed, prop.KindAggregate)))
}

func TestMetricNames(t *testing.T) {
	c, reg := newTestCollector(t)
	p := prop.New(0, prop.WithName("n"))
	c.Observe(p)
	p.SetError(errors.New("bad"))
	p.End()

	count, err := testutil.GatherAndCount(reg,
		"test_emissions_total", "test_errors_total", "test_ends_total", "test_active")
	assert.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestNewCollectorConstLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(WithRegistry(reg), WithSubsystem("ui"), WithConstLabels(prometheus.Labels{"app": "burrow"}))
	c.Observe(prop.New(1))

	families, err := reg.Gather()
	assert.NoError(t, err)
	var found bool
	for _, mf := range families {
		if mf.GetName() == "prop_ui_active" {
			found = true
			assert.Equal(t, "app", mf.GetMetric()[0].GetLabel()[0].GetName())
		}
	}
	assert.True(t, found, "expected prop_ui_active to be registered")
}
