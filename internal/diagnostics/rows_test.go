package diagnostics_test

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjanec/simhost/internal/diagnostics"
	"github.com/pjanec/simhost/internal/ids"
	"github.com/pjanec/simhost/internal/kernel"
	"github.com/pjanec/simhost/internal/lifecycle"
	"github.com/pjanec/simhost/internal/timectrl"
	"github.com/pjanec/simhost/internal/world"
)

func newTestKernel() *kernel.Kernel {
	clock := timectrl.NewCoordinator(zerolog.Nop(), timectrl.NewContinuousMaster(1, nil))
	return kernel.New(zerolog.Nop(), nil, clock, 8)
}

func TestBuildRowsAndRenderShowSpawnedEntity(t *testing.T) {
	k := newTestKernel()

	templates := lifecycle.NewTemplateDatabase()
	templates.Register(lifecycle.TemplateEntry{
		DisType: 5,
		Apply: func(w *world.World, e ids.Entity, preserveExisting bool) error {
			return w.SetComponent(e, lifecycle.ComponentPosition, lifecycle.Position{})
		},
	})

	masterReader := &fakeReader{}
	pipe := lifecycle.NewPipeline(zerolog.Nop(), lifecycle.NodeID("1"), lifecycle.NewStaticTopology(nil), 0, templates, nil,
		nil, masterReader, nil, nil,
		nil, nil, nil, nil)
	pipe.Wire(k)

	require.NoError(t, k.Build())

	masterReader.push(lifecycle.DataSample{NetworkID: 1000, Data: lifecycle.EntityMaster{
		NetworkID: 1000, DisType: 5, PrimaryOwnerID: lifecycle.NodeID("1"),
	}})
	require.NoError(t, k.Update(1.0/60.0))

	rows := diagnostics.BuildRows(k)
	require.Len(t, rows, 1)
	assert.Equal(t, "Constructing", rows[0].State)
	assert.Equal(t, "1000", rows[0].NetworkID)

	out := diagnostics.Render(rows)
	assert.True(t, strings.Contains(out, "1000"))
	assert.True(t, strings.Contains(out, "Constructing"))
}

type fakeReader struct {
	queue []lifecycle.DataSample
}

func (r *fakeReader) push(s lifecycle.DataSample) { r.queue = append(r.queue, s) }

func (r *fakeReader) TakeSamples() []lifecycle.DataSample {
	out := r.queue
	r.queue = nil
	return out
}
