// Package difficulty derives the number of leading zero bits a block must
// carry from the timing of the blocks that came before it.
package difficulty

import "github.com/ardanlabs/powchain/foundation/blockchain/genesis"

// Lookup returns the timestamp of the block with the specified number. The
// ok result is false when the chain does not hold that block.
type Lookup func(number uint64) (timeStamp uint64, ok bool)

// Controller adjusts difficulty once every Period blocks by at most one
// unit so the mean block interval stays between the fast and slow
// thresholds.
type Controller struct {
	Initial       uint   // Difficulty stamped on the genesis block.
	Period        uint64 // Number of blocks between adjustments.
	Accuracy      int64  // Fixed point scale applied to the mean interval.
	FastThreshold int64  // Scaled mean interval at or under which difficulty goes up.
	SlowThreshold int64  // Scaled mean interval over which difficulty goes down.
}

// New constructs a controller from the chain parameters.
func New(gen genesis.Genesis) Controller {
	return Controller{
		Initial:       gen.Difficulty,
		Period:        gen.AdjustmentPeriod,
		Accuracy:      gen.Accuracy,
		FastThreshold: gen.FastBlockSeconds * gen.Accuracy,
		SlowThreshold: gen.SlowBlockSeconds * gen.Accuracy,
	}
}

// Assign returns the difficulty to stamp on the block with the specified
// number and timestamp, given its parent's difficulty and access to the
// timestamps of its ancestors.
func (c Controller) Assign(number uint64, timeStamp uint64, parentDifficulty uint, lookup Lookup) uint {
	if number == 0 {
		return c.Initial
	}

	if c.Period == 0 || number%c.Period != 0 {
		return parentDifficulty
	}

	mean, ok := c.ScaledMean(number, timeStamp, lookup)
	if !ok {
		return parentDifficulty
	}

	switch {
	case mean <= c.FastThreshold:
		return parentDifficulty + 1

	case mean > c.SlowThreshold:

		// Difficulty never drops below zero.
		if parentDifficulty == 0 {
			return 0
		}
		return parentDifficulty - 1

	default:
		return parentDifficulty
	}
}

// ScaledMean calculates the mean interval across the Period links that end
// at the specified block, multiplied by Accuracy. It reports false when the
// chain does not hold enough ancestors.
func (c Controller) ScaledMean(number uint64, timeStamp uint64, lookup Lookup) (int64, bool) {
	if c.Period == 0 || number < c.Period {
		return 0, false
	}

	var sum int64
	current := timeStamp
	for i := uint64(1); i <= c.Period; i++ {
		parent, ok := lookup(number - i)
		if !ok {
			return 0, false
		}

		// Timestamps are signed here so a clock that steps backwards produces
		// a negative interval instead of wrapping.
		sum += int64(current) - int64(parent)
		current = parent
	}

	return (sum * c.Accuracy) / int64(c.Period), true
}
