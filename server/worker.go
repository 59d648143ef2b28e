package server

import (
	"fmt"

	"github.com/chazu/forge/eval"
)

// evalRequest represents a unit of work to be executed on the worker
// goroutine.
type evalRequest struct {
	fn   func(*eval.Context) any
	done chan evalResult
}

// evalResult holds the return value from a worker operation.
type evalResult struct {
	value any
	err   error
}

// EvalWorker serializes all access to a shared execution context
// through a single goroutine. The context's status fields are mutated
// on every call, so concurrent handlers must go through the worker to
// avoid data races.
type EvalWorker struct {
	ctx      *eval.Context
	requests chan evalRequest
	quit     chan struct{}
}

// NewEvalWorker creates an EvalWorker and starts the processing goroutine.
func NewEvalWorker(c *eval.Context) *EvalWorker {
	w := &EvalWorker{
		ctx:      c,
		requests: make(chan evalRequest, 64),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

// loop processes requests sequentially on a dedicated goroutine.
func (w *EvalWorker) loop() {
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs a function on the context, recovering from panics.
func (w *EvalWorker) execute(fn func(*eval.Context) any) evalResult {
	var result evalResult
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.err = fmt.Errorf("%v", r)
			}
		}()
		result.value = fn(w.ctx)
	}()
	return result
}

// Do submits a function for execution on the worker goroutine and
// blocks until it completes. Returns the result and any error
// (including panics).
func (w *EvalWorker) Do(fn func(*eval.Context) any) (any, error) {
	req := evalRequest{
		fn:   fn,
		done: make(chan evalResult, 1),
	}
	w.requests <- req
	result := <-req.done
	return result.value, result.err
}

// Close shuts down the worker goroutine.
func (w *EvalWorker) Close() {
	close(w.quit)
}
