// Package genesis maintains access to the chain parameters used to create
// the genesis block and to drive difficulty adjustment.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ardanlabs/powchain/foundation/validate"
)

// Defaults used when no genesis file is provided.
const (
	DefaultPayload          = "Genesis Block"
	DefaultDifficulty       = 16
	DefaultAdjustmentPeriod = 50
	DefaultAccuracy         = 10
	DefaultFastBlockSeconds = 1
	DefaultSlowBlockSeconds = 2
)

// Genesis represents the genesis file.
type Genesis struct {
	Payload          string `json:"payload"`                                                // Data committed by the genesis block, may be empty.
	Difficulty       uint   `json:"difficulty" validate:"lte=256"`                          // Leading zero bits required to mine block 1.
	AdjustmentPeriod uint64 `json:"adjustment_period" validate:"required"`                  // Number of blocks between difficulty re-evaluations.
	Accuracy         int64  `json:"accuracy" validate:"required,gte=1"`                     // Fixed point scale applied to the mean block interval.
	FastBlockSeconds int64  `json:"fast_block_seconds" validate:"gte=0"`                    // Mean interval at or under which difficulty goes up.
	SlowBlockSeconds int64  `json:"slow_block_seconds" validate:"gtfield=FastBlockSeconds"` // Mean interval over which difficulty goes down.
}

// Default returns the chain parameters of the reference ledger.
func Default() Genesis {
	return Genesis{
		Payload:          DefaultPayload,
		Difficulty:       DefaultDifficulty,
		AdjustmentPeriod: DefaultAdjustmentPeriod,
		Accuracy:         DefaultAccuracy,
		FastBlockSeconds: DefaultFastBlockSeconds,
		SlowBlockSeconds: DefaultSlowBlockSeconds,
	}
}

// Validate checks the genesis values are usable.
func (g Genesis) Validate() error {
	if err := validate.Check(g); err != nil {
		return fmt.Errorf("validate genesis: %w", err)
	}
	return nil
}

// =============================================================================

// Load opens and consumes the genesis file. Values missing from the file
// keep their defaults.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	genesis := Default()
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("decode genesis: %w", err)
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}
