package database

// Audit walks the chain from the latest block back to genesis and checks
// every block against its parent. Broken number or parent linkage is
// reported as an InvariantViolationError. A block whose commitment, proof
// of work or difficulty stamp no longer checks is reported as a
// ChainCorruptionError.
func (db *Database) Audit(evHandler func(v string, args ...any)) error {
	if evHandler == nil {
		evHandler = func(string, ...any) {}
	}

	block := db.LatestBlock()
	latest := block.Header.Number

	evHandler("database: Audit: started: latest blk[%d]", latest)
	defer evHandler("database: Audit: completed")

	for !block.IsGenesis() {
		num := block.Header.Number

		parent, err := db.storage.GetBlock(num - 1)
		if err != nil {
			return NewInvariantViolation(num, "parent block %d is missing: %s", num-1, err)
		}

		if parent.Header.Number != num-1 {
			return NewInvariantViolation(num, "parent is numbered %d, exp %d", parent.Header.Number, num-1)
		}

		if block.Header.ParentHash != parent.Header.Commitment {
			return NewInvariantViolation(num, "parent hash %s doesn't match parent commitment %s", block.Header.ParentHash, parent.Header.Commitment)
		}

		// The block was mined against the parent's difficulty.
		if err := block.ValidateBlock(parent, parent.Header.Difficulty, nil); err != nil {
			return NewChainCorruption(num, err)
		}

		exp := db.controller.Assign(num, block.Header.TimeStamp, parent.Header.Difficulty, db.timeStamp)
		if block.Header.Difficulty != exp {
			return NewChainCorruption(num, errDifficultyStamp(block.Header.Difficulty, exp))
		}

		block = parent
	}

	if err := block.ValidateGenesis(); err != nil {
		return NewChainCorruption(0, err)
	}

	if block.Header.Difficulty != db.controller.Initial {
		return NewChainCorruption(0, errDifficultyStamp(block.Header.Difficulty, db.controller.Initial))
	}

	evHandler("database: Audit: verified: blks[%d]", latest+1)

	return nil
}
