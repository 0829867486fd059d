package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
)

// Append mines a block holding the payload, validates it against the latest
// block and admits it to the chain. When validation fails, because another
// block was admitted while this one was being mined, a fresh block is built
// on the new latest block and mined again. The only failure reported for
// a cancelled or expired context, or a spent attempt budget, is
// database.ErrMiningAborted.
func (s *State) Append(ctx context.Context, payload []byte) (database.Block, error) {
	for {
		block, err := s.MineNewBlock(ctx, payload)
		if err != nil {
			return database.Block{}, err
		}

		admitted, err := s.admit(ctx, block)
		switch {
		case err == nil:
			return admitted, nil

		case errors.Is(err, database.ErrValidationFailed), errors.Is(err, database.ErrStaleHead):
			s.evHandler("state: Append: blk[%d]: WARNING: %s: mining again", block.Header.Number, err)
			continue

		default:
			return database.Block{}, err
		}
	}
}

// MineNewBlock attempts to create a new block with a proper hash that can
// become the next block in the chain. The block is mined against the latest
// block's current difficulty and is not admitted.
func (s *State) MineNewBlock(ctx context.Context, payload []byte) (database.Block, error) {
	latest := s.db.LatestBlock()

	s.evHandler("state: MineNewBlock: MINING: perform POW: blk[%d]: difficulty[%d]", latest.Header.Number+1, latest.Header.Difficulty)

	// Attempt to create a new block by solving the POW puzzle. This can be cancelled.
	block, err := database.POW(ctx, database.POWArgs{
		Parent:      latest,
		Payload:     payload,
		TimeStamp:   s.clock(),
		Difficulty:  latest.Header.Difficulty,
		Workers:     s.workers,
		MaxAttempts: s.maxAttempts,
		EvHandler:   s.evHandler,
	})
	if err != nil {
		return database.Block{}, err
	}

	return block, nil
}

// Validate checks a mined block against the latest block and the latest
// block's current difficulty.
func (s *State) Validate(block database.Block) error {
	latest := s.db.LatestBlock()
	return block.ValidateBlock(latest, latest.Header.Difficulty, s.evHandler)
}

// =============================================================================

// admit validates the block and links it to the chain. Only one block can
// be admitted at a time so the latest block can't change between the
// validation and the update. A block mined for a caller that has gone away
// is never admitted.
func (s *State) admit(ctx context.Context, block database.Block) (database.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		s.evHandler("state: admit: blk[%d]: abandoned: %s", block.Header.Number, err)
		return database.Block{}, fmt.Errorf("%w: %w", database.ErrMiningAborted, err)
	}

	s.evHandler("state: admit: blk[%d]: validate", block.Header.Number)

	if err := s.Validate(block); err != nil {
		return database.Block{}, err
	}

	s.evHandler("state: admit: blk[%d]: stamp difficulty and update latest block", block.Header.Number)

	admitted, err := s.db.Admit(block)
	if err != nil {
		return database.Block{}, err
	}

	s.evHandler("state: admit: blk[%d]: hash[%s]: difficulty[%d]: ADMITTED", admitted.Header.Number, admitted.Header.Commitment, admitted.Header.Difficulty)

	return admitted, nil
}
