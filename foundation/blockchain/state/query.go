package state

import (
	"iter"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/genesis"
)

// BlockView is the read only presentation of an admitted block.
type BlockView struct {
	Number        uint64    `json:"number"`
	TimeStamp     time.Time `json:"timestamp"`
	Difficulty    uint      `json:"difficulty"`
	Payload       []byte    `json:"payload"`
	Commitment    string    `json:"commitment"`
	Nonce         string    `json:"nonce"`
	HasParent     bool      `json:"has_parent"`
	ParentPayload []byte    `json:"parent_payload,omitempty"`
}

// RetrieveGenesis returns the chain parameters.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.db.Genesis()
}

// RetrieveLatestBlock returns a copy the current latest block.
func (s *State) RetrieveLatestBlock() database.Block {
	return s.db.LatestBlock()
}

// QueryBlock returns the admitted block with the specified number.
func (s *State) QueryBlock(num uint64) (database.Block, error) {
	return s.db.GetBlock(num)
}

// Ancestors returns a sequence of views walking from the latest block back
// to genesis. Each range over the sequence starts a new walk.
func (s *State) Ancestors() iter.Seq[BlockView] {
	return func(yield func(BlockView) bool) {
		for block := range s.db.Ancestors() {
			bv := BlockView{
				Number:     block.Header.Number,
				TimeStamp:  time.Unix(int64(block.Header.TimeStamp), 0),
				Difficulty: block.Header.Difficulty,
				Payload:    block.Payload,
				Commitment: block.Header.Commitment.Hex(),
				Nonce:      block.Header.Nonce.Hex(),
			}

			if !block.IsGenesis() {
				if parent, err := s.db.GetBlock(block.Header.Number - 1); err == nil {
					bv.HasParent = true
					bv.ParentPayload = parent.Payload
				}
			}

			if !yield(bv) {
				return
			}
		}
	}
}

// Audit checks the linkage, commitments, proof of work and difficulty
// stamps of every block in the chain.
func (s *State) Audit() error {
	return s.db.Audit(s.evHandler)
}
