// Package kernel implements the frame kernel: the per-frame capture,
// provider-update, dispatch, join, playback, egress pipeline that drives
// every registered module.
package kernel

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/pjanec/simhost/internal/breaker"
	"github.com/pjanec/simhost/internal/cmdbuf"
	"github.com/pjanec/simhost/internal/errs"
	"github.com/pjanec/simhost/internal/events"
	"github.com/pjanec/simhost/internal/ids"
	"github.com/pjanec/simhost/internal/metrics"
	"github.com/pjanec/simhost/internal/snapshot"
	"github.com/pjanec/simhost/internal/timectrl"
	"github.com/pjanec/simhost/internal/trace"
	"github.com/pjanec/simhost/internal/world"
)

// EgressFunc is run once per frame, after playback, with the frame's
// GlobalTime. It is the kernel's hook for network egress translators
// (see the lifecycle package's Egress).
type EgressFunc func(gt timectrl.GlobalTime)

// IngressFunc is run once per frame, before capture, directly against
// the live world and live bus. It is the kernel's hook for the
// distributed entity-lifecycle ingress pipeline (lifecycle.Pipeline):
// translators and the spawner must observe and mutate entity identity
// state on the same single-writer thread the kernel itself runs on,
// and must do so before any provider syncs the world for this frame's
// modules.
type IngressFunc func(live *world.World, bus *world.Bus, frame uint32)

// Kernel owns the live world, the event accumulator, the registered
// modules with their providers and tiers, and the active time
// controller. Exactly one goroutine may call Update at a time; Update
// itself fans dispatch out to one goroutine per dispatched module and
// joins them before returning.
type Kernel struct {
	log     zerolog.Logger
	metrics metrics.KernelMetrics
	tracer  trace.Tracer
	unit    *Unit

	live  *world.World
	acc   *events.Accumulator
	clock *timectrl.Coordinator

	mu      sync.Mutex
	regs    []*Registration
	order   []*Registration
	started bool

	egress  []EgressFunc
	ingress []IngressFunc

	onFatal func(error)

	frame uint32
}

// New constructs a Kernel. maxHistoryFrames bounds the event
// accumulator's retained history.
func New(log zerolog.Logger, m metrics.KernelMetrics, clock *timectrl.Coordinator, maxHistoryFrames int) *Kernel {
	if m == nil {
		m = metrics.NoopKernelMetrics{}
	}
	live := world.New()
	bus := world.NewBus()
	return &Kernel{
		log:     log.With().Str("component", "kernel").Logger(),
		metrics: m,
		tracer:  trace.NewOpenTracingTracer(nil),
		unit:    NewUnit(),
		live:    live,
		acc:     events.NewAccumulator(log, bus, maxHistoryFrames),
		clock:   clock,
	}
}

// SetTracer replaces the kernel's tracer. Must be called before the
// first Update; the zero value is a no-op tracer, so callers that never
// need tracing can skip this entirely.
func (k *Kernel) SetTracer(t trace.Tracer) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.tracer = t
}

// OnFatalInvariant registers a callback invoked, in addition to Update
// returning the error, whenever the kernel detects a FatalInvariant
// (§7 of the original spec): a playback failure, or any other condition
// implying the live world may now be inconsistent. This mirrors the
// teacher's irrecoverable.SignalerContext convention: a host wires this
// once at startup instead of threading an error return through every
// caller of Update. Whether or not a callback is registered, Update
// returns the *errs.FatalInvariantError itself.
func (k *Kernel) OnFatalInvariant(f func(error)) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.onFatal = f
}

// LiveWorld exposes the live world for test setup and for components
// (like the lifecycle spawner) that must mutate it directly during
// ingress.
func (k *Kernel) LiveWorld() *world.World { return k.live }

// LiveBus exposes the live event bus so callers can publish native
// events ahead of a frame's capture phase.
func (k *Kernel) LiveBus() *world.Bus { return k.acc.Bus() }

// DebugRow is one entity's lifecycle snapshot, the generic half of
// simhostctl's diagnostic dump (§5.9 of SPEC_FULL.md): kernel knows
// nothing about lifecycle-specific components (NetworkIdentity,
// DescriptorOwnership, ...), so internal/diagnostics enriches each row
// with those by reading the same live world through its own component
// ids.
type DebugRow struct {
	Entity ids.Entity
	State  world.LifecycleState
	Mask   ids.Mask
}

// DebugSnapshot produces a point-in-time dump of every live (including
// Ghost) entity in the live world, for diagnostics only — it is never
// part of the per-frame hot path and takes no lock beyond what World
// itself needs, so callers must only invoke it from the kernel's own
// goroutine (e.g. from an egress or ingress hook) or after Update has
// returned.
func (k *Kernel) DebugSnapshot() []DebugRow {
	var rows []DebugRow
	k.live.Each(ids.Mask{}, true, func(e ids.Entity, h world.Header) {
		rows = append(rows, DebugRow{Entity: e, State: h.State, Mask: h.Mask})
	})
	return rows
}

// OnEgress registers a function run once per frame after playback.
func (k *Kernel) OnEgress(f EgressFunc) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.egress = append(k.egress, f)
}

// OnIngress registers a function run once per frame before capture.
func (k *Kernel) OnIngress(f IngressFunc) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.ingress = append(k.ingress, f)
}

// Register adds a module. It must be called before the first Update.
func (k *Kernel) Register(r *Registration) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.started {
		return fmt.Errorf("kernel: cannot register module %q after the kernel has started", r.Module.Name())
	}
	if r.Breaker == nil {
		r.Breaker = breaker.New(0, 0)
	}
	r.cmds = cmdbuf.NewBuffer(k.log, initialCommandBufferBytes)
	k.regs = append(k.regs, r)
	return nil
}

// Build freezes the registered module list into the dispatch order (the
// order modules were registered in) and arms the kernel for Update. It
// must be called once, after all Register calls and before the first
// Update.
func (k *Kernel) Build() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	seen := make(map[string]struct{}, len(k.regs))
	for _, r := range k.regs {
		name := r.Module.Name()
		if _, dup := seen[name]; dup {
			return fmt.Errorf("kernel: duplicate module name %q", name)
		}
		seen[name] = struct{}{}
	}

	k.order = append([]*Registration(nil), k.regs...)
	k.started = true
	k.unit.markReady()
	return nil
}

// Ready closes once Build has run.
func (k *Kernel) Ready() <-chan struct{} { return k.unit.Ready() }

// Done shuts the kernel down: in-flight dispatch goroutines are allowed
// to finish, then the returned channel closes.
func (k *Kernel) Done() <-chan struct{} { return k.unit.Done() }

// Frame returns the last frame index completed by Update.
func (k *Kernel) Frame() uint32 { return k.frame }

// Update runs exactly one frame: advance time, capture, provider update,
// dispatch, join, playback, egress.
func (k *Kernel) Update(wallDeltaSeconds float32) error {
	start := time.Now()
	defer func() { k.metrics.FrameDuration(time.Since(start)) }()

	gt := k.clock.Update(wallDeltaSeconds)
	k.frame = gt.Frame
	k.live.SetFrame(gt.Frame)

	k.mu.Lock()
	ingress := k.ingress
	k.mu.Unlock()
	for _, f := range ingress {
		f(k.live, k.acc.Bus(), gt.Frame)
	}

	captureSpan := k.tracer.StartFrameSpan(gt.Frame, trace.SpanFrameCapture)
	k.acc.CaptureFrame(gt.Frame)
	captureSpan.Finish()

	k.mu.Lock()
	order := k.order
	k.mu.Unlock()

	// Provider update: dedupe so a Provider shared by more than one
	// module (the Shared/convoy strategy, or several Fast modules on one
	// GDB replica) is only resynced once per frame.
	seenProviders := make(map[Provider]struct{}, len(order))
	for _, r := range order {
		if !r.shouldRun(gt.Frame) {
			continue
		}
		if _, ok := seenProviders[r.Provider]; ok {
			continue
		}
		seenProviders[r.Provider] = struct{}{}
		r.Provider.Update(k.live, k.acc, gt.Frame)
	}

	// Dispatch + join.
	dispatchSpan := k.tracer.StartFrameSpan(gt.Frame, trace.SpanFrameDispatch)
	var wg sync.WaitGroup
	for _, r := range order {
		if !r.shouldRun(gt.Frame) {
			continue
		}
		if !r.Breaker.CanRun() {
			k.metrics.ModuleSkipped(r.Module.Name())
			continue
		}

		reg := r
		delta := Delta{
			AccumulatedDelta: reg.accumulatedDelta(gt.Frame, gt.Delta),
			Frame:            gt.Frame,
			SimTime:          gt.Total,
		}
		reg.hasRun = true
		reg.lastRunFrame = gt.Frame

		wg.Add(1)
		go k.runModule(&wg, reg, delta, gt)
	}
	wg.Wait()
	dispatchSpan.Finish()

	// Playback: replay every module's command buffer on the main thread.
	// Each registration owns exactly one persistent buffer, so even
	// though multiple views may have been outstanding for the same
	// module across frames, a buffer is replayed exactly once per frame
	// it actually ran.
	playbackSpan := k.tracer.StartFrameSpan(gt.Frame, trace.SpanFramePlayback)
	var playbackErr error
	for _, r := range order {
		if r.cmds.Len() == 0 {
			continue
		}
		if err := r.cmds.Playback(k.live, k.acc.Bus()); err != nil {
			// Playback failures are fatal: the live world may be
			// inconsistent. Keep going so every buffer is at least
			// attempted, then surface the aggregate to the host.
			playbackErr = multierror.Append(playbackErr, fmt.Errorf("module %q: %w", r.Module.Name(), err))
		}
	}
	playbackSpan.Finish()
	if playbackErr != nil {
		fatal := errs.NewFatalInvariant("command-buffer playback failed, live world may be inconsistent", playbackErr)
		k.mu.Lock()
		onFatal := k.onFatal
		k.mu.Unlock()
		if onFatal != nil {
			onFatal(fatal)
		}
		return fatal
	}

	k.mu.Lock()
	egress := k.egress
	k.mu.Unlock()
	for _, f := range egress {
		f(gt)
	}

	return nil
}

func (k *Kernel) runModule(wg *sync.WaitGroup, reg *Registration, delta Delta, gt timectrl.GlobalTime) {
	defer wg.Done()

	view := reg.Provider.AcquireView(gt.Frame, gt.Total, reg.cmds)
	defer reg.Provider.ReleaseView(view)

	tickSpan := k.tracer.StartFrameSpan(gt.Frame, trace.SpanModuleTick)
	tickSpan.SetTag("module", reg.Module.Name())
	defer tickSpan.Finish()

	start := time.Now()
	err := k.safeTick(reg, view, delta)
	k.metrics.ModuleTickDuration(reg.Module.Name(), time.Since(start))

	if err != nil {
		k.log.Error().Err(fmt.Errorf("%w: %v", errs.ErrModuleFailure, err)).
			Str("module", reg.Module.Name()).Msg("module tick failed, isolated to this module's breaker")
		k.metrics.ModuleTickFailure(reg.Module.Name())
		reg.Breaker.RecordFailure()
		return
	}
	reg.Breaker.RecordSuccess()
}

// safeTick recovers a panicking module's Tick so one module's defect
// cannot bring down the frame; release_view still runs via the defer in
// runModule regardless of how Tick returns.
func (k *Kernel) safeTick(reg *Registration, view *snapshot.View, delta Delta) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("module %q panicked: %v", reg.Module.Name(), p)
		}
	}()
	return reg.Module.Tick(view, delta)
}
