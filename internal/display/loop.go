// Package display is the headless stand-in for the UI toolkit: a
// single-threaded executor that owns all display state, and per-page
// containers holding the surface currently shown.
//
// Code running on the Loop must not take page locks. The render worker
// holds a page lock while it waits for the Loop to present that page.
package display

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var ErrLoopClosed = errors.New("display: loop closed")

// Loop runs posted functions one at a time on its own goroutine.
type Loop struct {
	tasks     chan func()
	done      chan struct{}
	closeOnce sync.Once
}

func NewLoop(buffer int) *Loop {
	return &Loop{
		tasks: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
}

// Run executes tasks until ctx is cancelled or Close is called.
// Tasks still pending at that point are discarded.
func (l *Loop) Run(ctx context.Context) error {
	defer l.Close()
	for {
		select {
		case fn := <-l.tasks:
			fn()
		case <-ctx.Done():
			return nil
		case <-l.done:
			return nil
		}
	}
}

func (l *Loop) Close() {
	l.closeOnce.Do(func() { close(l.done) })
}

// Post queues fn without waiting for it to run.
func (l *Loop) Post(fn func()) error {
	select {
	case <-l.done:
		return ErrLoopClosed
	default:
	}
	select {
	case l.tasks <- fn:
		return nil
	case <-l.done:
		return ErrLoopClosed
	}
}

const (
	taskPending int32 = iota
	taskRunning
	taskAbandoned
)

// Do runs fn on the loop and waits for it. If ctx ends or the loop closes
// before fn starts, fn is never run and the error is returned; once fn has
// started Do always waits for it and returns nil.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	var state atomic.Int32
	finished := make(chan struct{})
	task := func() {
		if !state.CompareAndSwap(taskPending, taskRunning) {
			return
		}
		defer close(finished)
		fn()
	}
	if err := l.Post(task); err != nil {
		return err
	}

	var err error
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		err = ctx.Err()
	case <-l.done:
		err = ErrLoopClosed
	}
	if state.CompareAndSwap(taskPending, taskAbandoned) {
		return err
	}
	<-finished
	return nil
}
