// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"runtime"
	"sync"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/genesis"
)

// EventHandler defines a function that is called when events
// occur in the processing of mining and admitting blocks.
type EventHandler func(v string, args ...any)

// =============================================================================

// Config represents the configuration required to start the blockchain.
type Config struct {
	Genesis     genesis.Genesis
	Storage     database.Storage
	Workers     int              // Goroutines used per search, defaults to GOMAXPROCS.
	MaxAttempts uint64           // Attempts allowed per search, zero is unbounded.
	Clock       func() time.Time // Source of block timestamps, defaults to time.Now.
	EvHandler   EventHandler
}

// State manages the blockchain database.
type State struct {
	mu sync.Mutex

	evHandler   EventHandler
	workers     int
	maxAttempts uint64
	clock       func() time.Time

	db *database.Database
}

// New constructs a new blockchain and admits the genesis block.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	// Access the database and create the genesis block.
	db, err := database.New(cfg.Genesis, cfg.Storage, clock(), ev)
	if err != nil {
		return nil, err
	}

	// Create the State to provide support for managing the blockchain.
	state := State{
		evHandler:   ev,
		workers:     workers,
		maxAttempts: cfg.MaxAttempts,
		clock:       clock,
		db:          db,
	}

	return &state, nil
}

// Shutdown cleanly brings the blockchain down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Make sure the storage is properly closed.
	s.db.Close()

	return nil
}
