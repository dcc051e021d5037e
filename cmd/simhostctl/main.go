// Command simhostctl is a diagnostic-only tool: it drives a small
// kernel through a handful of frames with a sample network spawn, then
// prints the resulting entity table (SPEC_FULL.md §5.9). It never
// attaches to a real pubsub fabric; wiring simhostctl against a running
// node's own kernel (e.g. over an internal debug channel) is a host
// concern this module deliberately leaves out, the same way CLI/config
// plumbing is out of scope for the rest of the runtime (§1).
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/pjanec/simhost/internal/config"
	"github.com/pjanec/simhost/internal/diagnostics"
	"github.com/pjanec/simhost/internal/ids"
	"github.com/pjanec/simhost/internal/kernel"
	"github.com/pjanec/simhost/internal/lifecycle"
	"github.com/pjanec/simhost/internal/timectrl"
	"github.com/pjanec/simhost/internal/world"
)

func main() {
	cfg := config.Default()
	frames := 3
	pflag.IntVar(&frames, "frames", frames, "number of demo frames to run before dumping the entity table")
	cfg.BindFlags(pflag.CommandLine)
	pflag.Parse()

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	clock := timectrl.NewCoordinator(log, timectrl.NewContinuousMaster(1, nil))
	k := kernel.New(log, nil, clock, cfg.MaxHistoryFrames)

	templates := lifecycle.NewTemplateDatabase()
	templates.Register(lifecycle.TemplateEntry{
		DisType: 5,
		Apply: func(w *world.World, e ids.Entity, preserveExisting bool) error {
			return w.SetComponent(e, lifecycle.ComponentPosition, lifecycle.Position{})
		},
	})

	masterReader := &demoReader{}
	pipe := lifecycle.NewPipelineWithGhostTimeout(
		log, lifecycle.NodeID("demo"), lifecycle.NewStaticTopology(nil),
		cfg.ReliableInitTimeoutFrames, cfg.GhostTimeoutFrames, templates, nil,
		nil, masterReader, nil, nil,
		nil, nil, nil, nil,
	)
	pipe.Wire(k)

	if err := k.Build(); err != nil {
		fmt.Fprintln(os.Stderr, "simhostctl: build failed:", err)
		os.Exit(1)
	}

	masterReader.push(lifecycle.DataSample{NetworkID: 1000, Data: lifecycle.EntityMaster{
		NetworkID: 1000, DisType: 5, PrimaryOwnerID: lifecycle.NodeID("demo"),
	}})

	for i := 0; i < frames; i++ {
		if err := k.Update(1.0 / 60.0); err != nil {
			fmt.Fprintln(os.Stderr, "simhostctl: frame update failed:", err)
			os.Exit(1)
		}
	}

	fmt.Println(diagnostics.Render(diagnostics.BuildRows(k)))
}

// demoReader is the minimal DataReader this demo needs: a fixed sample
// queue drained once, exactly like a production DataReader backed by
// internal/network/pubsub.Reader except with no actual transport behind
// it.
type demoReader struct {
	queue []lifecycle.DataSample
}

func (r *demoReader) push(s lifecycle.DataSample) { r.queue = append(r.queue, s) }

func (r *demoReader) TakeSamples() []lifecycle.DataSample {
	out := r.queue
	r.queue = nil
	return out
}
