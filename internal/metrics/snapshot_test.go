package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot(t *testing.T) {
	reg := prometheus.NewRegistry()
	o, err := New(reg)
	require.NoError(t, err)

	o.LoopStarted("a")
	o.MutationReduced("a", time.Millisecond)
	o.StateCommitted("a", 0)
	o.StateCommitted("a", 1)
	o.LoopTerminated("a", errors.New("boom"))

	samples, err := Snapshot(reg)
	require.NoError(t, err)

	values := map[string]float64{}
	for _, s := range samples {
		values[s.Name] = s.Value
		if s.Name == "rxloop_loops_terminated_total" {
			assert.Equal(t, map[string]string{"outcome": OutcomeOtherFailure}, s.Labels)
		}
	}

	assert.Equal(t, 1.0, values["rxloop_loops_started_total"])
	assert.Equal(t, 2.0, values["rxloop_states_committed_total"])
	assert.Equal(t, 1.0, values["rxloop_reduce_duration_seconds_count"])
	assert.InDelta(t, 0.001, values["rxloop_reduce_duration_seconds_sum"], 1e-9)
	assert.Equal(t, 0.0, values["rxloop_loops_running"])

	for i := 1; i < len(samples); i++ {
		assert.LessOrEqual(t, samples[i-1].Name, samples[i].Name)
	}
}

func TestSnapshot_EmptyRegistry(t *testing.T) {
	samples, err := Snapshot(prometheus.NewRegistry())
	require.NoError(t, err)
	assert.Empty(t, samples)
}
