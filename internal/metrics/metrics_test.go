package metrics

import (
	"strings"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/connectlab/internal/catalog"
	"github.com/roach88/connectlab/internal/engine"
	"github.com/roach88/connectlab/internal/geom"
	"github.com/roach88/connectlab/internal/ir"
	"github.com/roach88/connectlab/internal/signal"
)

func gesture(s *engine.Session, from, to geom.Point) {
	s.PointerDown(from)
	s.PointerMove(to)
	s.PointerUp(to)
}

func TestCollector_SessionEvents(t *testing.T) {
	c := New()
	s := engine.New(engine.WithObserver(c))

	_, err := s.CreateInput(catalog.Switch, geom.Pt(100, 100))
	require.NoError(t, err)
	not, err := s.CreateGate(catalog.NOT, geom.Pt(400, 100))
	require.NoError(t, err)
	_, err = s.CreateAnnotation("hello", geom.Pt(0, 0), "")
	require.NoError(t, err)

	assert.Equal(t, 1.0, promtest.ToFloat64(c.entities.WithLabelValues("input")))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.entities.WithLabelValues("gate")))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.entities.WithLabelValues("annotation")))

	// Switch out (126,100) to NOT in (356,100).
	gesture(s, geom.Pt(126, 100), geom.Pt(356, 100))
	// NOT out to switch out: both out slots.
	gesture(s, geom.Pt(444, 100), geom.Pt(126, 100))
	// NOT out to empty space.
	gesture(s, geom.Pt(444, 100), geom.Pt(700, 700))

	assert.Equal(t, 1.0, promtest.ToFloat64(c.commits))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.rejects.WithLabelValues(engine.RejectSameDirection)))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.rejects.WithLabelValues(engine.RejectNoTarget)))

	require.NoError(t, s.Remove(not))
	assert.Equal(t, 0.0, promtest.ToFloat64(c.entities.WithLabelValues("gate")))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.removed.WithLabelValues("gate")))
	assert.Equal(t, 3.0, promtest.ToFloat64(c.cascaded), "two slots and one connection")
}

func TestCollector_Propagation(t *testing.T) {
	c := New()

	c.Propagated(signal.Report{Passes: 1, Budget: 4, Settled: true, Changed: []ir.ID{1}})
	c.Propagated(signal.Report{Passes: 4, Budget: 4, Cyclic: true, Settled: false})

	assert.Equal(t, 1.0, promtest.ToFloat64(c.cyclic))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.unsettled))

	expected := `
# HELP connectlab_signal_propagation_passes Evaluation passes per propagation
# TYPE connectlab_signal_propagation_passes histogram
connectlab_signal_propagation_passes_bucket{le="1"} 1
connectlab_signal_propagation_passes_bucket{le="2"} 1
connectlab_signal_propagation_passes_bucket{le="3"} 1
connectlab_signal_propagation_passes_bucket{le="5"} 2
connectlab_signal_propagation_passes_bucket{le="8"} 2
connectlab_signal_propagation_passes_bucket{le="13"} 2
connectlab_signal_propagation_passes_bucket{le="21"} 2
connectlab_signal_propagation_passes_bucket{le="34"} 2
connectlab_signal_propagation_passes_bucket{le="55"} 2
connectlab_signal_propagation_passes_bucket{le="+Inf"} 2
connectlab_signal_propagation_passes_sum 5
connectlab_signal_propagation_passes_count 2
`
	require.NoError(t, promtest.GatherAndCompare(c.Registry(), strings.NewReader(expected),
		"connectlab_signal_propagation_passes"))
}

func TestCollector_SeparateRegistries(t *testing.T) {
	a, b := New(), New()
	a.ConnectionCommitted()

	assert.Equal(t, 1.0, promtest.ToFloat64(a.commits))
	assert.Equal(t, 0.0, promtest.ToFloat64(b.commits))
}
