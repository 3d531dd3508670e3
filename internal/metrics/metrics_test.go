package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersCollectors(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg)

	m.TreeFetches.WithLabelValues("districts", "ok").Inc()
	m.Sessions.Set(2)

	require.Equal(t, 1.0, testutil.ToFloat64(m.TreeFetches.WithLabelValues("districts", "ok")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.Sessions))

	n, err := testutil.GatherAndCount(reg, "locations_gateway_tree_fetches_total")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

// nil-регистратор: повторное создание не паникует на дубликатах.
func TestNew_NilRegisterer(t *testing.T) {
	t.Parallel()

	require.NotPanics(t, func() {
		_ = New(nil)
		_ = New(nil)
	})
}

func TestOutcome(t *testing.T) {
	t.Parallel()

	require.Equal(t, "ok", Outcome(nil))
	require.Equal(t, "error", Outcome(errors.New("boom")))
}
