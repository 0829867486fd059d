package database

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/digest"
)

// maxWorkers is the largest number of goroutines a search can be split
// across. Each worker owns a distinct set of values for the first nonce
// byte and zero is never used.
const maxWorkers = 255

// reportInterval is how often the search reports progress.
const reportInterval = 1_000_000

// =============================================================================

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	Number     uint64       `json:"number"`      // Block number in the chain, genesis is 0.
	TimeStamp  uint64       `json:"timestamp"`   // Time the block was created, unix seconds.
	ParentHash digest.Hash  `json:"parent_hash"` // Commitment of the previous block in the chain.
	Commitment digest.Hash  `json:"commitment"`  // Hash of the payload, parent commitment and nonce.
	Nonce      digest.Nonce `json:"nonce"`       // Value identified to solve the hash solution.
	Difficulty uint         `json:"difficulty"`  // Number of leading zero bits required, stamped on admission.
}

// Block represents an opaque payload committed to the chain.
type Block struct {
	Header  BlockHeader `json:"header"`
	Payload []byte      `json:"payload"`
}

// NewBlock constructs a block with its own copy of the payload. When parent
// is nil the genesis block is returned with its commitment already set.
// Otherwise the block extends parent and is left unmined.
func NewBlock(parent *Block, payload []byte, now time.Time) Block {
	nb := Block{
		Header: BlockHeader{
			TimeStamp: uint64(now.UTC().Unix()),
		},
		Payload: bytes.Clone(payload),
	}

	if parent == nil {
		nb.Header.Commitment = digest.Genesis(nb.Payload)
		return nb
	}

	nb.Header.Number = parent.Header.Number + 1
	nb.Header.ParentHash = parent.Header.Commitment

	return nb
}

// IsGenesis reports whether the block starts the chain.
func (b Block) IsGenesis() bool {
	return b.Header.Number == 0
}

// Hash recalculates the commitment for the block from its contents.
func (b Block) Hash() digest.Hash {
	if b.IsGenesis() {
		return digest.Genesis(b.Payload)
	}

	return digest.Block(b.Payload, b.Header.ParentHash, b.Header.Nonce)
}

// Clone returns a copy of the block that shares no memory with it.
func (b Block) Clone() Block {
	b.Payload = bytes.Clone(b.Payload)
	return b
}

// =============================================================================

// POWArgs represents the set of arguments required to run POW.
type POWArgs struct {
	Parent      Block
	Payload     []byte
	TimeStamp   time.Time
	Difficulty  uint
	Workers     int
	MaxAttempts uint64
	EvHandler   func(v string, args ...any)
}

// POW constructs a new Block and performs the work to find a nonce that
// solves the cryptographic POW puzzle. The block is mined against the
// difficulty provided, which is the latest block's current difficulty.
func POW(ctx context.Context, args POWArgs) (Block, error) {
	ev := args.EvHandler
	if ev == nil {
		ev = func(string, ...any) {}
	}

	// Construct the block to be mined.
	nb := NewBlock(&args.Parent, args.Payload, args.TimeStamp)

	// Perform the proof of work mining operation.
	if err := nb.performPOW(ctx, args.Difficulty, args.Workers, args.MaxAttempts, ev); err != nil {
		return Block{}, err
	}

	return nb, nil
}

// solution is what a worker publishes when it solves the puzzle.
type solution struct {
	nonce digest.Nonce
	hash  digest.Hash
}

// performPOW does the work of mining to find a valid hash for a specified
// block. Pointer semantics are being used since a nonce is being discovered.
func (b *Block) performPOW(ctx context.Context, difficulty uint, workers int, maxAttempts uint64, ev func(v string, args ...any)) error {
	ev("database: PerformPOW: MINING: started: blk[%d]: difficulty[%d]", b.Header.Number, difficulty)
	defer ev("database: PerformPOW: MINING: completed: blk[%d]", b.Header.Number)

	if difficulty > digest.MaxDifficulty {
		return fmt.Errorf("difficulty %d can't be satisfied by a %d bit hash", difficulty, digest.MaxDifficulty)
	}

	switch {
	case workers < 1:
		workers = 1
	case workers > maxWorkers:
		workers = maxWorkers
	}

	// Each worker gets its own random generator seeded from the operating
	// system. Seeding happens before any G starts so a failure is reported
	// without leaving anything running.
	sources := make([]*rand.ChaCha8, workers)
	for i := range sources {
		var seed [32]byte
		if _, err := crand.Read(seed[:]); err != nil {
			return fmt.Errorf("seeding nonce generator: %w", err)
		}
		sources[i] = rand.NewChaCha8(seed)
	}

	// Create a context so the losing workers can be cancelled.
	searchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var attempts atomic.Uint64
	var exhausted atomic.Bool
	solved := make(chan solution, 1)

	start := time.Now()

	// Can't return from this function until these G's are complete.
	var wg sync.WaitGroup
	wg.Add(workers)

	for w := range workers {
		s := searcher{
			payload:     b.Payload,
			parent:      b.Header.ParentHash,
			difficulty:  difficulty,
			firsts:      firstBytes(w, workers),
			rng:         rand.New(sources[w]),
			src:         sources[w],
			attempts:    &attempts,
			maxAttempts: maxAttempts,
			ev:          ev,
		}

		go func() {
			defer wg.Done()

			sol, ok := s.run(searchCtx, &exhausted)
			if !ok {
				return
			}

			// The first solution wins, every other worker is told to stop.
			select {
			case solved <- sol:
			default:
			}
			cancel()
		}()
	}

	// Wait for all the G's to terminate.
	wg.Wait()

	total := attempts.Load()
	elapsed := time.Since(start)

	// Did we timeout trying to solve the problem.
	if ctx.Err() != nil {
		ev("database: PerformPOW: MINING: CANCELLED: attempts[%d]", total)
		return fmt.Errorf("%w: %w", ErrMiningAborted, ctx.Err())
	}

	select {
	case sol := <-solved:
		b.Header.Nonce = sol.nonce
		b.Header.Commitment = sol.hash

		ev("database: PerformPOW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]", b.Header.ParentHash, sol.hash)
		ev("database: PerformPOW: MINING: attempts[%d]: duration[%v]: rate[%.2f Khash/s]", total, elapsed, hashRate(total, elapsed))

		return nil

	default:
	}

	if exhausted.Load() {
		ev("database: PerformPOW: MINING: BUDGET SPENT: attempts[%d]", total)
		return fmt.Errorf("%w: no solution after %d attempts", ErrMiningAborted, total)
	}

	return ErrMiningAborted
}

// hashRate returns the number of thousand hashes calculated per second.
func hashRate(attempts uint64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(attempts) / 1000.0 / elapsed.Seconds()
}

// firstBytes returns the set of values worker w of n is allowed to place in
// the first byte of a nonce. The sets are disjoint across workers and never
// contain zero, so the unmined sentinel is never produced.
func firstBytes(w int, n int) []byte {
	var firsts []byte
	for v := 1 + w; v <= 255; v += n {
		firsts = append(firsts, byte(v))
	}
	return firsts
}

// =============================================================================

// searcher is the state owned by a single mining worker.
type searcher struct {
	payload     []byte
	parent      digest.Hash
	difficulty  uint
	firsts      []byte
	rng         *rand.Rand
	src         *rand.ChaCha8
	attempts    *atomic.Uint64
	maxAttempts uint64
	ev          func(v string, args ...any)
}

// run draws random nonces until one solves the puzzle, the context is
// cancelled or the shared attempt budget is spent.
func (s searcher) run(ctx context.Context, exhausted *atomic.Bool) (solution, bool) {
	done := ctx.Done()

	var nonce digest.Nonce
	for {
		select {
		case <-done:
			return solution{}, false
		default:
		}

		n := s.attempts.Add(1)
		if s.maxAttempts > 0 && n > s.maxAttempts {
			exhausted.Store(true)
			return solution{}, false
		}

		if n%reportInterval == 0 {
			s.ev("database: PerformPOW: MINING: attempts[%d]", n)
		}

		// Draw a fresh nonce from this worker's slice of the nonce space.
		s.src.Read(nonce[1:])
		nonce[0] = s.firsts[s.rng.IntN(len(s.firsts))]

		hash := digest.Block(s.payload, s.parent, nonce)
		if hash.Satisfies(s.difficulty) {
			return solution{nonce: nonce, hash: hash}, true
		}
	}
}

// =============================================================================

// ValidateBlock takes a block and validates it against the specified parent
// and the difficulty it was mined against. The difficulty is the parent's
// current difficulty at the time of admission, not the block's own stamp.
func (b Block) ValidateBlock(parent Block, difficulty uint, evHandler func(v string, args ...any)) error {
	if evHandler == nil {
		evHandler = func(string, ...any) {}
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block has been mined", b.Header.Number)

	if b.Header.Nonce.IsZero() {
		return fmt.Errorf("%w: block %d has not been mined", ErrValidationFailed, b.Header.Number)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block number is the next number", b.Header.Number)

	nextNumber := parent.Header.Number + 1
	if b.Header.Number != nextNumber {
		return fmt.Errorf("%w: this block is not the next number, got %d, exp %d", ErrValidationFailed, b.Header.Number, nextNumber)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: parent hash does match parent block", b.Header.Number)

	if b.Header.ParentHash != parent.Header.Commitment {
		return fmt.Errorf("%w: parent block hash doesn't match our known parent, got %s, exp %s", ErrValidationFailed, b.Header.ParentHash, parent.Header.Commitment)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: commitment does match contents", b.Header.Number)

	hash := digest.Block(b.Payload, parent.Header.Commitment, b.Header.Nonce)
	if hash != b.Header.Commitment {
		return fmt.Errorf("%w: commitment doesn't match block contents, got %s, exp %s", ErrValidationFailed, b.Header.Commitment, hash)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block hash has been solved", b.Header.Number)

	if !hash.Satisfies(difficulty) {
		return fmt.Errorf("%w: %s has %d leading zero bits, exp %d", ErrValidationFailed, hash, hash.LeadingZeroBits(), difficulty)
	}

	return nil
}

// ValidateGenesis checks the block is a well formed genesis block.
func (b Block) ValidateGenesis() error {
	if !b.IsGenesis() {
		return fmt.Errorf("%w: genesis block has number %d", ErrValidationFailed, b.Header.Number)
	}

	if !b.Header.ParentHash.IsZero() {
		return fmt.Errorf("%w: genesis block has parent %s", ErrValidationFailed, b.Header.ParentHash)
	}

	if hash := digest.Genesis(b.Payload); hash != b.Header.Commitment {
		return fmt.Errorf("%w: genesis commitment doesn't match payload, got %s, exp %s", ErrValidationFailed, b.Header.Commitment, hash)
	}

	return nil
}
