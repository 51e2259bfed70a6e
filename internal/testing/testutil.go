// Package testing provides test utilities for concurrent hepio tests.
//
// Using t.Fatal() or t.FailNow() in goroutines causes undefined behavior
// because these methods call runtime.Goexit() which only terminates the
// current goroutine, not the test goroutine. The helpers here collect
// errors on the test goroutine instead.
package testing

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// GoroutineTest runs functions in goroutines and reports their errors
// from the test goroutine.
//
// Usage:
//
//	gt := NewGoroutineTest(t)
//	for i := 0; i < 10; i++ {
//	    gt.Go(func() error {
//	        return doSomething()
//	    })
//	}
//	gt.Wait()
type GoroutineTest struct {
	t      *testing.T
	wg     sync.WaitGroup
	mu     sync.Mutex
	errs   []error
	ctx    context.Context
	cancel context.CancelFunc
}

// NewGoroutineTest creates a helper with a 30 second deadline.
func NewGoroutineTest(t *testing.T) *GoroutineTest {
	return NewGoroutineTestWithTimeout(t, 30*time.Second)
}

// NewGoroutineTestWithTimeout creates a helper with a custom deadline.
func NewGoroutineTestWithTimeout(t *testing.T, timeout time.Duration) *GoroutineTest {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	gt := &GoroutineTest{t: t, ctx: ctx, cancel: cancel}
	t.Cleanup(cancel)
	return gt
}

// Go starts fn in a goroutine. A non-nil return is recorded and
// reported by Wait.
func (gt *GoroutineTest) Go(fn func() error) {
	gt.wg.Add(1)
	go func() {
		defer gt.wg.Done()
		if err := fn(); err != nil {
			gt.mu.Lock()
			gt.errs = append(gt.errs, err)
			gt.mu.Unlock()
		}
	}()
}

// GoWithContext starts fn with the helper's context.
func (gt *GoroutineTest) GoWithContext(fn func(ctx context.Context) error) {
	gt.Go(func() error { return fn(gt.ctx) })
}

// Context returns the helper's context.
func (gt *GoroutineTest) Context() context.Context { return gt.ctx }

// Wait blocks until every goroutine returns, then fails the test if
// any recorded an error.
func (gt *GoroutineTest) Wait() {
	done := make(chan struct{})
	go func() {
		gt.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-gt.ctx.Done():
		gt.t.Fatalf("goroutines did not finish: %v", gt.ctx.Err())
	}

	gt.mu.Lock()
	defer gt.mu.Unlock()
	for _, err := range gt.errs {
		gt.t.Errorf("goroutine error: %v", err)
	}
	if len(gt.errs) > 0 {
		gt.t.FailNow()
	}
}

// WithTimeout runs fn and fails with a timeout error if it does not
// return in time.
func WithTimeout(timeout time.Duration, fn func() error) error {
	errCh := make(chan error, 1)
	go func() { errCh <- fn() }()
	select {
	case err := <-errCh:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("timeout after %v", timeout)
	}
}

// Eventually polls condition until it returns true or the timeout
// passes.
func Eventually(timeout, interval time.Duration, condition func() bool) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return nil
		}
		time.Sleep(interval)
	}
	return fmt.Errorf("condition not met within %v", timeout)
}
