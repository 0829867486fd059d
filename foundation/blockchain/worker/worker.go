// Package worker implements the background mining workflow for the
// blockchain. Payloads are queued and mined one at a time.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/state"
	"github.com/google/uuid"
)

// maxAppendRequests represents the max number of payloads that can be
// queued for mining.
const maxAppendRequests = 100

// ErrQueueFull is returned when the mining queue can't take another payload.
var ErrQueueFull = errors.New("mining queue is full")

// Result is delivered once for every payload handed to SignalAppend.
type Result struct {
	TraceID string
	Block   database.Block
	Err     error
}

// Config represents the settings for the worker.
type Config struct {
	State     *state.State
	Timeout   time.Duration // Time allowed to mine a single payload, zero is unbounded.
	QueueSize int           // Payloads that can be pending, defaults to 100.
	EvHandler state.EventHandler
}

// =============================================================================

// Request states. A request is claimed exactly once, either by the mining
// G or by a caller abandoning it.
const (
	statePending int32 = iota
	stateMining
	stateAbandoned
)

type request struct {
	ctx     context.Context
	traceID string
	payload []byte
	result  chan Result
	state   *atomic.Int32
}

// claim moves a pending request to the specified state.
func (req request) claim(state int32) bool {
	return req.state.CompareAndSwap(statePending, state)
}

// Worker manages the POW workflows for the blockchain.
type Worker struct {
	state        *state.State
	timeout      time.Duration
	wg           sync.WaitGroup
	mu           sync.Mutex
	shutdown     bool
	shut         chan struct{}
	requests     chan request
	cancelMining chan bool
	evHandler    state.EventHandler
}

// Run creates a worker and starts up all the background processes.
func Run(cfg Config) *Worker {
	ev := cfg.EvHandler
	if ev == nil {
		ev = func(string, ...any) {}
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = maxAppendRequests
	}

	w := Worker{
		state:        cfg.State,
		timeout:      cfg.Timeout,
		shut:         make(chan struct{}),
		requests:     make(chan request, queueSize),
		cancelMining: make(chan bool, 1),
		evHandler:    ev,
	}

	// Load the set of operations we need to run.
	operations := []func(){
		w.miningOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for range g {
		<-hasStarted
	}

	return &w
}

// Shutdown terminates the goroutine performing work. A payload being mined
// is abandoned and every payload still queued is answered with
// database.ErrMiningAborted.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.mu.Lock()
	if w.shutdown {
		w.mu.Unlock()
		return
	}
	w.shutdown = true
	w.mu.Unlock()

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()

	w.evHandler("worker: shutdown: drain queued payloads")
	for {
		select {
		case req := <-w.requests:
			w.abort(req)
		default:
			return
		}
	}
}

// SignalAppend queues the payload to be mined and admitted. The returned
// trace id identifies the mining job in the event stream and the channel
// receives exactly one result.
func (w *Worker) SignalAppend(payload []byte) (string, <-chan Result) {
	req := w.signalAppend(context.Background(), payload)
	return req.traceID, req.result
}

// signalAppend queues a request bound to the caller's context. The job is
// abandoned when the context ends before its block is admitted.
func (w *Worker) signalAppend(ctx context.Context, payload []byte) request {
	req := request{
		ctx:     ctx,
		traceID: uuid.NewString(),
		payload: payload,
		result:  make(chan Result, 1),
		state:   new(atomic.Int32),
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.shutdown {
		w.abort(req)
		return req
	}

	select {
	case w.requests <- req:
		w.evHandler("worker: SignalAppend: traceid[%s]: append signaled", req.traceID)
	default:
		w.evHandler("worker: SignalAppend: traceid[%s]: queue full, payload won't be mined", req.traceID)
		req.result <- Result{TraceID: req.traceID, Err: ErrQueueFull}
	}

	return req
}

// SignalCancelMining signals the G executing the runMiningOperation function
// to stop immediately.
func (w *Worker) SignalCancelMining() {
	select {
	case w.cancelMining <- true:
	default:
	}
	w.evHandler("worker: SignalCancelMining: MINING: CANCEL: signaled")
}

// =============================================================================

// abort answers a request that will never be mined.
func (w *Worker) abort(req request) {
	w.abortWith(req, errors.New("worker is shut down"))
}

// abortWith answers a request that will never be mined with the reason.
func (w *Worker) abortWith(req request, reason error) {
	w.evHandler("worker: abort: traceid[%s]: MINING: aborted: %s", req.traceID, reason)
	req.result <- Result{
		TraceID: req.traceID,
		Err:     fmt.Errorf("%w: %w", database.ErrMiningAborted, reason),
	}
}

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
