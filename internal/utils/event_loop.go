package utils

import (
	"sync"
)

// EventLoop runs submitted tasks one at a time, in submission order, on a
// single goroutine. Every task runs to completion before the next starts.
type EventLoop struct {
	tasks chan func()
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewEventLoop starts a loop whose queue holds up to queueSize pending tasks.
func NewEventLoop(queueSize int) *EventLoop {
	l := &EventLoop{
		tasks: make(chan func(), queueSize),
		done:  make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *EventLoop) run() {
	defer close(l.done)
	for task := range l.tasks {
		task()
	}
}

// Submit queues a task. It blocks while the queue is full and returns false
// once the loop has been shut down. Tasks must not Submit synchronously to a
// full queue of their own loop.
func (l *EventLoop) Submit(task func()) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return false
	}
	l.tasks <- task
	return true
}

// Flush waits until every task queued before the call has run.
// It must not be called from a task.
func (l *EventLoop) Flush() {
	ran := make(chan struct{})
	if !l.Submit(func() { close(ran) }) {
		<-l.done
		return
	}
	<-ran
}

// Shutdown stops accepting tasks, runs the ones already queued and waits for the loop to exit.
func (l *EventLoop) Shutdown() {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.tasks)
	}
	l.mu.Unlock()
	<-l.done
}
