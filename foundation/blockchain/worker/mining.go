package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
)

// miningOperations handles mining.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case req := <-w.requests:
			if !req.claim(stateMining) {
				w.evHandler("worker: miningOperations: traceid[%s]: MINING: abandoned by caller", req.traceID)
				continue
			}
			switch {
			case w.isShutdown():
				w.abort(req)
			case req.ctx.Err() != nil:
				w.abortWith(req, req.ctx.Err())
			default:
				w.runMiningOperation(req)
			}
		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// runMiningOperation mines the requested payload and admits the new block
// to the chain.
func (w *Worker) runMiningOperation(req request) {
	w.evHandler("worker: runMiningOperation: traceid[%s]: MINING: started", req.traceID)
	defer w.evHandler("worker: runMiningOperation: traceid[%s]: MINING: completed", req.traceID)

	// Drain the cancel mining channel before starting.
	select {
	case <-w.cancelMining:
		w.evHandler("worker: runMiningOperation: traceid[%s]: MINING: drained cancel channel", req.traceID)
	default:
	}

	// Create a context so mining can be cancelled. Mining also stops when
	// the caller that queued the payload goes away.
	ctx, cancel := context.WithCancel(req.ctx)
	defer cancel()

	if w.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	// Can't return from this function until these G's are complete.
	var wg sync.WaitGroup
	wg.Add(2)

	// This G exists to cancel the mining operation.
	go func() {
		defer func() {
			cancel()
			wg.Done()
		}()

		select {
		case <-w.cancelMining:
			w.evHandler("worker: runMiningOperation: traceid[%s]: MINING: CANCEL: requested", req.traceID)
		case <-w.shut:
			w.evHandler("worker: runMiningOperation: traceid[%s]: MINING: CANCEL: shutdown", req.traceID)
		case <-ctx.Done():
		}
	}()

	// This G is performing the mining.
	go func() {
		defer func() {
			cancel()
			wg.Done()
		}()

		t := time.Now()
		block, err := w.state.Append(ctx, req.payload)
		duration := time.Since(t)

		w.evHandler("worker: runMiningOperation: traceid[%s]: MINING: mining duration[%v]", req.traceID, duration)

		if err != nil {
			switch {
			case ctx.Err() != nil:
				w.evHandler("worker: runMiningOperation: traceid[%s]: MINING: CANCEL: complete", req.traceID)
			default:
				w.evHandler("worker: runMiningOperation: traceid[%s]: MINING: ERROR: %s", req.traceID, err)
			}
			req.result <- Result{TraceID: req.traceID, Err: err}
			return
		}

		w.evHandler("worker: runMiningOperation: traceid[%s]: MINING: blk[%d]: hash[%s]: ADMITTED", req.traceID, block.Header.Number, block.Header.Commitment)
		req.result <- Result{TraceID: req.traceID, Block: block}
	}()

	// Wait for both G's to terminate.
	wg.Wait()
}

// Mine is a synchronous helper that queues the payload and waits for the
// result. When the context ends first no block is admitted for the payload
// and database.ErrMiningAborted is returned, unless the block had already
// been admitted, in which case it is returned.
func (w *Worker) Mine(ctx context.Context, payload []byte) (database.Block, error) {
	req := w.signalAppend(ctx, payload)

	select {
	case res := <-req.result:
		return res.Block, res.Err
	case <-ctx.Done():
	}

	// Still queued, the mining G will skip it.
	if req.claim(stateAbandoned) {
		w.evHandler("worker: Mine: traceid[%s]: MINING: abandoned while queued", req.traceID)
		return database.Block{}, fmt.Errorf("%w: %w", database.ErrMiningAborted, ctx.Err())
	}

	// Mining was started with this context, so it stops promptly and the
	// block is admitted only if that happened before the context ended.
	res := <-req.result
	return res.Block, res.Err
}
