package server

import "fmt"

// request is a unit of work to be executed on the worker goroutine.
type request struct {
	fn   func(*Workspace) any
	done chan result
}

// result holds the return value from a workspace operation.
type result struct {
	value any
	err   error
}

// Worker serializes all Workspace access through a single goroutine.
// LSP handlers run concurrently; the workspace and the programs it holds
// are not safe for concurrent use.
type Worker struct {
	ws       *Workspace
	requests chan request
	quit     chan struct{}
}

// NewWorker creates a Worker and starts the processing goroutine.
func NewWorker(ws *Workspace) *Worker {
	w := &Worker{
		ws:       ws,
		requests: make(chan request, 64),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *Worker) loop() {
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			w.ws.Release()
			return
		}
	}
}

// execute runs fn, turning a panic into an error.
func (w *Worker) execute(fn func(*Workspace) any) (res result) {
	defer func() {
		if r := recover(); r != nil {
			res.err = fmt.Errorf("%v", r)
		}
	}()
	res.value = fn(w.ws)
	return res
}

// Do submits fn for execution on the worker goroutine and blocks until it
// completes. Panics come back as errors.
func (w *Worker) Do(fn func(*Workspace) any) (any, error) {
	req := request{
		fn:   fn,
		done: make(chan result, 1),
	}
	select {
	case w.requests <- req:
	case <-w.quit:
		return nil, fmt.Errorf("worker stopped")
	}
	select {
	case res := <-req.done:
		return res.value, res.err
	case <-w.quit:
		return nil, fmt.Errorf("worker stopped")
	}
}

// Stop shuts down the worker goroutine and releases the workspace.
func (w *Worker) Stop() {
	close(w.quit)
}
