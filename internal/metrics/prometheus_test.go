package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestPrometheusKernelMetricsRecordsModuleFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusKernelMetrics(reg)

	m.ModuleTickFailure("spawner")
	m.ModuleTickFailure("spawner")
	m.ModuleTickDuration("spawner", 5*time.Millisecond)
	m.FrameDuration(16 * time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	var failureCount float64
	for _, fam := range families {
		if fam.GetName() != "simhost_kernel_module_tick_failures_total" {
			continue
		}
		for _, metric := range fam.Metric {
			if labelsHave(metric, "module", "spawner") {
				failureCount = metric.GetCounter().GetValue()
			}
		}
	}
	require.Equal(t, float64(2), failureCount)
}

func labelsHave(m *dto.Metric, name, value string) bool {
	for _, lp := range m.Label {
		if lp.GetName() == name && lp.GetValue() == value {
			return true
		}
	}
	return false
}
