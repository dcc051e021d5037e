package kernel

import (
	"context"
	"sync"
)

// Unit is a small Ready/Done/Launch helper modeled on the startup and
// shutdown contract used throughout this codebase's engines: Launch
// fires a tracked goroutine, Ctx is cancelled on shutdown, and Done
// blocks until every launched goroutine has returned. Ready and Done are
// both idempotent and safe to call more than once.
type Unit struct {
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	readyOnce sync.Once
	ready     chan struct{}

	doneOnce sync.Once
	done     chan struct{}
}

func NewUnit() *Unit {
	ctx, cancel := context.WithCancel(context.Background())
	return &Unit{ctx: ctx, cancel: cancel, ready: make(chan struct{}), done: make(chan struct{})}
}

// Launch runs f in a tracked goroutine; Done will not close until f
// returns.
func (u *Unit) Launch(f func()) {
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		f()
	}()
}

// Ctx is cancelled once Done has been called.
func (u *Unit) Ctx() context.Context { return u.ctx }

// Ready returns a channel that closes once the unit is considered
// started. The kernel closes it as soon as its dispatch loop is armed.
func (u *Unit) Ready() <-chan struct{} {
	return u.ready
}

func (u *Unit) markReady() {
	u.readyOnce.Do(func() { close(u.ready) })
}

// Done cancels Ctx, waits for every launched goroutine to return, and
// closes the returned channel exactly once regardless of how many times
// Done is called.
func (u *Unit) Done() <-chan struct{} {
	u.doneOnce.Do(func() {
		go func() {
			u.cancel()
			u.wg.Wait()
			close(u.done)
		}()
	})
	return u.done
}
