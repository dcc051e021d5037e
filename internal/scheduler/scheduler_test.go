package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func namesOf(systems []System) []string {
	out := make([]string, len(systems))
	for i, s := range systems {
		out[i] = s.Name
	}
	return out
}

func TestSortOrdersWithinPhaseByBeforeAfter(t *testing.T) {
	systems := []System{
		{Name: "C", Phase: Simulation, After: []string{"B"}},
		{Name: "A", Phase: Simulation, Before: []string{"B"}},
		{Name: "B", Phase: Simulation},
	}
	sorted, err := Sort(systems)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, namesOf(sorted))
}

func TestSortRespectsPhaseOrderRegardlessOfInputOrder(t *testing.T) {
	systems := []System{
		{Name: "export-sys", Phase: Export},
		{Name: "input-sys", Phase: Input},
		{Name: "sim-sys", Phase: Simulation},
	}
	sorted, err := Sort(systems)
	require.NoError(t, err)
	assert.Equal(t, []string{"input-sys", "sim-sys", "export-sys"}, namesOf(sorted))
}

func TestCrossPhaseDependencyIgnored(t *testing.T) {
	// "after" referencing a system in a different phase must not create an edge;
	// phase ordering alone guarantees it, so this must not error as a cycle.
	systems := []System{
		{Name: "A", Phase: Input},
		{Name: "B", Phase: Simulation, After: []string{"A"}, Before: []string{"A"}},
	}
	_, err := Sort(systems)
	require.NoError(t, err)
}

func TestCycleDetected(t *testing.T) {
	systems := []System{
		{Name: "A", Phase: Simulation, After: []string{"B"}},
		{Name: "B", Phase: Simulation, After: []string{"A"}},
	}
	_, err := Sort(systems)
	require.Error(t, err)
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, Simulation, cycleErr.Phase)
}
