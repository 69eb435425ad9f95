// Package workpool provides a bounded-concurrency helper for pipelines
// that need a producer goroutine to stay ahead of a draining consumer
// (cmd/ancinfer uses it to cap how many windows decode at once), adapted from
// the teacher's throttle.go (arvados/lightning import.go's
// reader/writer overlap pattern).
package workpool

import (
	"sync"
	"sync/atomic"
)

// Throttle bounds the number of concurrently running goroutines to Max,
// reporting the first error seen across all of them.
type Throttle struct {
	Max       int
	wg        sync.WaitGroup
	ch        chan bool
	err       atomic.Value
	setupOnce sync.Once
	errorOnce sync.Once
}

// Acquire blocks until fewer than Max goroutines are in flight, then
// registers one more.
func (t *Throttle) Acquire() {
	t.setupOnce.Do(func() { t.ch = make(chan bool, t.Max) })
	t.wg.Add(1)
	t.ch <- true
}

// Release marks one in-flight goroutine as done.
func (t *Throttle) Release() {
	t.wg.Done()
	<-t.ch
}

// Report records err as the throttle's failure if no error has been
// reported yet.
func (t *Throttle) Report(err error) {
	if err != nil {
		t.errorOnce.Do(func() { t.err.Store(err) })
	}
}

// Err returns the first error reported, if any.
func (t *Throttle) Err() error {
	err, _ := t.err.Load().(error)
	return err
}

// Wait blocks until every acquired goroutine has released, then returns
// the first reported error.
func (t *Throttle) Wait() error {
	t.wg.Wait()
	return t.Err()
}
