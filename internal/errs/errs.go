// Package errs names the error-kind taxonomy from the original
// specification's error-handling design (§7): which failures are
// recovered locally, which degrade reliability to liveness, and which
// are fatal and must be surfaced to the host rather than swallowed.
//
// Most kinds already have a concrete, narrower representation living in
// the package that raises them (world.ErrStaleEntityHandle,
// lifecycle.ErrMissingTemplate, storage/badger.ErrNotFound); this
// package collects the remaining cross-cutting sentinels plus the one
// typed error every fatal path wraps, so a host can classify any error
// this module returns with a single errors.Is/errors.As check regardless
// of which package raised it.
package errs

import "errors"

// Recovered locally: logged, the offending work unit is dropped, the
// frame continues.
var (
	// ErrTransportError wraps a failure reading or writing through a
	// DataReader/DataWriter. The sample or publish attempt is dropped;
	// the translator or egress scan continues with the next one.
	ErrTransportError = errors.New("simhost: transport error")

	// ErrModuleFailure wraps a module's Tick panic or returned error,
	// already isolated per-module by the kernel's circuit breaker; it
	// never aborts other modules' ticks or the frame itself.
	ErrModuleFailure = errors.New("simhost: module failure")

	// ErrSchemaMismatch marks the (already-handled) case where a
	// provider's replica lacks a column the source world has; the sync
	// path auto-registers the column on first write, so this sentinel is
	// purely a classification aid for logs, never returned as a failure.
	ErrSchemaMismatch = errors.New("simhost: schema mismatch, auto-registered")
)

// Recovered with degraded guarantees: the subsystem keeps running but
// trades safety for liveness.
var (
	// ErrReliableInitTimeout marks a peer-ack barrier that force-acked
	// after reliableInitTimeoutFrames instead of collecting every
	// expected peer's ack.
	ErrReliableInitTimeout = errors.New("simhost: reliable-init barrier timed out, force-acked")

	// ErrLockstepStall marks a deterministic slave stalled waiting for
	// the next in-sequence FrameOrder, or a deterministic master that
	// stepped again before every expected ack arrived.
	ErrLockstepStall = errors.New("simhost: lockstep stalled on missing order or ack")

	// ErrCommandBufferOverflow marks a command buffer whose byte arena
	// grew past its configured initial capacity. Growth is allowed; this
	// is logged as a performance warning, not a failure.
	ErrCommandBufferOverflow = errors.New("simhost: command buffer grew beyond initial capacity")
)

// FatalInvariantError is returned when the kernel detects a condition
// the spec classifies as FatalInvariant (§7): playback running on the
// wrong thread, a broken generation counter, an uninitialised type-id
// cache hit, or any other condition implying the live world may now be
// inconsistent. Unlike every other kind, this one is never recovered
// locally — the frame aborts and the error is surfaced to the host via
// the kernel's irrecoverable-error callback instead of being swallowed.
type FatalInvariantError struct {
	Reason string
	Err    error
}

func (e *FatalInvariantError) Error() string {
	if e.Err != nil {
		return "simhost: fatal invariant violated: " + e.Reason + ": " + e.Err.Error()
	}
	return "simhost: fatal invariant violated: " + e.Reason
}

func (e *FatalInvariantError) Unwrap() error { return e.Err }

// NewFatalInvariant wraps err (which may be nil) with the invariant
// description that makes it fatal.
func NewFatalInvariant(reason string, err error) *FatalInvariantError {
	return &FatalInvariantError{Reason: reason, Err: err}
}
