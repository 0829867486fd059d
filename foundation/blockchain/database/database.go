// Package database handles all the lower level support for maintaining the
// blockchain in memory: block construction, the proof of work search,
// validation, difficulty stamping and the head of the chain.
package database

import (
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/difficulty"
	"github.com/ardanlabs/powchain/foundation/blockchain/genesis"
)

// ErrBlockNotFound is returned by a Storage when the requested block
// number is not held.
var ErrBlockNotFound = errors.New("block does not exist")

// Storage interface represents the behavior required to be implemented by any
// package providing support for storing and reading the blockchain. Blocks
// are stored by number and every block references its parent by number - 1.
type Storage interface {
	Write(block Block) error
	GetBlock(num uint64) (Block, error)
	Close() error
	Reset() error
}

// =============================================================================

// Database manages the head of the chain. The rest of the chain is
// reachable by following parent references back to genesis.
type Database struct {
	mu sync.RWMutex

	genesis     genesis.Genesis
	controller  difficulty.Controller
	latestBlock Block

	storage Storage
}

// New constructs a new database, resets the storage and admits the genesis
// block created from the genesis payload at the specified time.
func New(gen genesis.Genesis, storage Storage, now time.Time, evHandler func(v string, args ...any)) (*Database, error) {
	if evHandler == nil {
		evHandler = func(string, ...any) {}
	}

	if err := gen.Validate(); err != nil {
		return nil, err
	}

	if err := storage.Reset(); err != nil {
		return nil, fmt.Errorf("reset storage: %w", err)
	}

	db := Database{
		genesis:    gen,
		controller: difficulty.New(gen),
		storage:    storage,
	}

	block := NewBlock(nil, []byte(gen.Payload), now)
	block.Header.Difficulty = db.controller.Assign(0, block.Header.TimeStamp, 0, nil)

	if err := db.storage.Write(block); err != nil {
		return nil, fmt.Errorf("write genesis: %w", err)
	}
	db.latestBlock = block

	evHandler("database: New: genesis: blk[%s]: difficulty[%d]", block.Header.Commitment, block.Header.Difficulty)

	return &db, nil
}

// Close closes the blocks storage.
func (db *Database) Close() {
	db.storage.Close()
}

// Genesis returns the chain parameters.
func (db *Database) Genesis() genesis.Genesis {
	return db.genesis
}

// LatestBlock returns the latest block.
func (db *Database) LatestBlock() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.latestBlock.Clone()
}

// GetBlock returns the block with the specified number.
func (db *Database) GetBlock(num uint64) (Block, error) {
	return db.storage.GetBlock(num)
}

// Admit stamps the block's difficulty and links it as the new latest
// block. The block must already have been validated against the latest
// block and must still extend it. The stamped block is returned.
func (db *Database) Admit(block Block) (Block, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	latest := db.latestBlock
	if block.Header.Number != latest.Header.Number+1 || block.Header.ParentHash != latest.Header.Commitment {
		return Block{}, fmt.Errorf("%w: blk[%d] parent[%s], latest blk[%d] hash[%s]", ErrStaleHead, block.Header.Number, block.Header.ParentHash, latest.Header.Number, latest.Header.Commitment)
	}

	block = block.Clone()
	block.Header.Difficulty = db.controller.Assign(block.Header.Number, block.Header.TimeStamp, latest.Header.Difficulty, db.timeStamp)

	if err := db.storage.Write(block); err != nil {
		return Block{}, fmt.Errorf("write block %d: %w", block.Header.Number, err)
	}
	db.latestBlock = block

	return block.Clone(), nil
}

// Ancestors returns a sequence that walks the chain from the latest block
// back to genesis. The walk starts from the latest block at the time the
// sequence is ranged over, so it can be ranged over more than once.
func (db *Database) Ancestors() iter.Seq[Block] {
	return func(yield func(Block) bool) {
		block := db.LatestBlock()
		for {
			if !yield(block) {
				return
			}

			if block.IsGenesis() {
				return
			}

			parent, err := db.storage.GetBlock(block.Header.Number - 1)
			if err != nil {
				return
			}
			block = parent
		}
	}
}

// timeStamp provides the difficulty controller access to block times.
func (db *Database) timeStamp(number uint64) (uint64, bool) {
	block, err := db.storage.GetBlock(number)
	if err != nil {
		return 0, false
	}
	return block.Header.TimeStamp, true
}
