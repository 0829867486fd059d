package database

import (
	"errors"
	"fmt"
)

// ErrMiningAborted is returned from POW when the search is cancelled, runs
// past its deadline or spends its attempt budget without finding a nonce.
// No block is produced and the caller may try again.
var ErrMiningAborted = errors.New("mining aborted")

// ErrValidationFailed is returned from ValidateBlock when a block's
// commitment or proof of work does not check against its parent.
var ErrValidationFailed = errors.New("block failed validation")

// ErrStaleHead is returned from Admit when the candidate no longer extends
// the latest block.
var ErrStaleHead = errors.New("block does not extend the latest block")

// =============================================================================

// ChainCorruptionError is reported by an audit when an admitted block no
// longer validates against its parent. The chain can't be trusted.
type ChainCorruptionError struct {
	Number uint64
	Err    error
}

// NewChainCorruption wraps the error found while auditing the specified block.
func NewChainCorruption(number uint64, err error) error {
	return &ChainCorruptionError{Number: number, Err: err}
}

// Error implements the error interface.
func (cc *ChainCorruptionError) Error() string {
	return fmt.Sprintf("chain corruption at block %d: %s", cc.Number, cc.Err)
}

// Unwrap provides access to the wrapped error.
func (cc *ChainCorruptionError) Unwrap() error {
	return cc.Err
}

// IsChainCorruption checks if an error of type ChainCorruptionError exists.
func IsChainCorruption(err error) bool {
	var cc *ChainCorruptionError
	return errors.As(err, &cc)
}

// GetChainCorruption returns a copy of the ChainCorruptionError pointer.
func GetChainCorruption(err error) *ChainCorruptionError {
	var cc *ChainCorruptionError
	if !errors.As(err, &cc) {
		return nil
	}
	return cc
}

// =============================================================================

// InvariantViolationError is reported by an audit when the number or parent
// linkage between two blocks is broken. This is a programming error or
// tampering and is never repaired.
type InvariantViolationError struct {
	Number uint64
	Msg    string
}

// NewInvariantViolation constructs the error for the specified block.
func NewInvariantViolation(number uint64, format string, args ...any) error {
	return &InvariantViolationError{Number: number, Msg: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (iv *InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant violation at block %d: %s", iv.Number, iv.Msg)
}

// IsInvariantViolation checks if an error of type InvariantViolationError exists.
func IsInvariantViolation(err error) bool {
	var iv *InvariantViolationError
	return errors.As(err, &iv)
}

// GetInvariantViolation returns a copy of the InvariantViolationError pointer.
func GetInvariantViolation(err error) *InvariantViolationError {
	var iv *InvariantViolationError
	if !errors.As(err, &iv) {
		return nil
	}
	return iv
}

// errDifficultyStamp reports a block carrying a difficulty the controller
// would not have assigned.
func errDifficultyStamp(got uint, exp uint) error {
	return fmt.Errorf("%w: difficulty stamp is %d, exp %d", ErrValidationFailed, got, exp)
}
