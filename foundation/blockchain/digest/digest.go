// Package digest provides the commitment scheme used to bind a block to its
// payload and lineage.
package digest

import (
	"crypto/sha256"
	"math/bits"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Length is the number of bytes in a commitment and in a nonce.
const Length = sha256.Size

// MaxDifficulty is the largest number of leading zero bits a commitment
// can carry.
const MaxDifficulty = Length * 8

// =============================================================================

// Hash represents a block commitment. Comparison is done on the fixed size
// array so embedded zero bytes are treated as ordinary data.
type Hash [Length]byte

// ZeroHash represents a commitment of all zeros. It is used as the parent
// reference for the genesis block.
var ZeroHash Hash

// Hex returns the 0x prefixed hex encoding of the commitment.
func (h Hash) Hex() string {
	return hexutil.Encode(h[:])
}

// String implements the fmt.Stringer interface.
func (h Hash) String() string {
	return h.Hex()
}

// IsZero reports whether every byte of the commitment is zero.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// LeadingZeroBits counts the number of zero bits at the front of the
// commitment, reading the bytes in order and each byte from its high bit.
func (h Hash) LeadingZeroBits() int {
	var n int
	for _, b := range h {
		if b != 0 {
			return n + bits.LeadingZeros8(b)
		}
		n += 8
	}
	return n
}

// Satisfies checks the commitment complies with the proof of work rules.
// We need to match a difficulty number of leading zero bits.
func (h Hash) Satisfies(difficulty uint) bool {
	if difficulty > MaxDifficulty {
		return false
	}
	return uint(h.LeadingZeroBits()) >= difficulty
}

// MarshalText implements the encoding.TextMarshaler interface.
func (h Hash) MarshalText() ([]byte, error) {
	return hexutil.Bytes(h[:]).MarshalText()
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (h *Hash) UnmarshalText(input []byte) error {
	return hexutil.UnmarshalFixedText("Hash", input, h[:])
}

// HexToHash decodes a 0x prefixed hex string into a commitment.
func HexToHash(s string) (Hash, error) {
	var h Hash
	if err := h.UnmarshalText([]byte(s)); err != nil {
		return Hash{}, err
	}
	return h, nil
}

// =============================================================================

// Nonce represents the value varied by the proof of work search. A nonce of
// all zeros marks a block that has not been mined.
type Nonce [Length]byte

// Hex returns the 0x prefixed hex encoding of the nonce.
func (n Nonce) Hex() string {
	return hexutil.Encode(n[:])
}

// String implements the fmt.Stringer interface.
func (n Nonce) String() string {
	return n.Hex()
}

// IsZero reports whether the nonce is the unmined sentinel.
func (n Nonce) IsZero() bool {
	return n == Nonce{}
}

// MarshalText implements the encoding.TextMarshaler interface.
func (n Nonce) MarshalText() ([]byte, error) {
	return hexutil.Bytes(n[:]).MarshalText()
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (n *Nonce) UnmarshalText(input []byte) error {
	return hexutil.UnmarshalFixedText("Nonce", input, n[:])
}

// HexToNonce decodes a 0x prefixed hex string into a nonce.
func HexToNonce(s string) (Nonce, error) {
	var n Nonce
	if err := n.UnmarshalText([]byte(s)); err != nil {
		return Nonce{}, err
	}
	return n, nil
}

// =============================================================================

// Genesis returns the commitment for a block with no parent. Only the
// payload is hashed.
func Genesis(payload []byte) Hash {
	return sha256.Sum256(payload)
}

// Block returns the commitment for a block that extends a parent. The
// payload, the parent's raw commitment and the raw nonce are concatenated
// in that order and hashed.
func Block(payload []byte, parent Hash, nonce Nonce) Hash {
	h := sha256.New()
	h.Write(payload)
	h.Write(parent[:])
	h.Write(nonce[:])

	var sum Hash
	h.Sum(sum[:0])
	return sum
}
