package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/database/memory"
	"github.com/ardanlabs/powchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/powchain/foundation/blockchain/state"
	"github.com/ardanlabs/powchain/foundation/blockchain/worker"
	"github.com/ardanlabs/powchain/foundation/events"
	"github.com/ardanlabs/powchain/foundation/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// The rotated log file is only configured through MINER_LOG_FILE since
	// the logger has to exist before the configuration is parsed.
	log, closeLog, err := newLogger()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer closeLog()
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		closeLog()
		os.Exit(1)
	}
}

func newLogger() (*zap.SugaredLogger, func() error, error) {
	const service = "MINER"

	path := os.Getenv("MINER_LOG_FILE")
	if path == "" {
		log, err := logger.New(service)
		return log, func() error { return nil }, err
	}

	return logger.NewRotated(service, logger.Rotation{
		Path:        path,
		ThresholdKB: 10 * 1024,
		MaxRolls:    3,
	})
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	// This is all the configuration for the application and the default values.
	// Configuration values will be passed through the application as individual
	// values.
	cfg := struct {
		conf.Version
		Mining struct {
			Workers     int           `conf:"default:0,help:goroutines per search where 0 uses GOMAXPROCS"`
			MaxAttempts uint64        `conf:"default:0,help:attempts allowed per search where 0 is unbounded"`
			Timeout     time.Duration `conf:"default:0s,help:time allowed per block where 0 is unbounded"`
			Blocks      int           `conf:"default:50,help:blocks to append where 0 mines until shutdown"`
			Payload     string        `conf:"default:X"`
		}
		Genesis struct {
			Path string `conf:"help:json file with the chain parameters"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "copyright information here",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "MINER"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Blockchain Support

	gen := genesis.Default()
	if cfg.Genesis.Path != "" {
		if gen, err = genesis.Load(cfg.Genesis.Path); err != nil {
			return fmt.Errorf("unable to load genesis: %w", err)
		}
	}
	// The blockchain packages accept a function of this signature to allow the
	// application to log. These raw messages are also sent to any subscriber
	// registered with the events package.
	traceID := uuid.NewString()
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", traceID)
		evts.Send(s)
	}

	// Report every admitted block on the console.
	_, admitted := evts.Acquire()
	go func() {
		for s := range admitted {
			if strings.HasSuffix(s, "ADMITTED") && strings.HasPrefix(s, "worker:") {
				fmt.Println(s)
			}
		}
	}()

	strg, err := memory.New()
	if err != nil {
		return err
	}

	// The state value represents the blockchain and manages the blockchain
	// database and provides an API for application support.
	state, err := state.New(state.Config{
		Genesis:     gen,
		Storage:     strg,
		Workers:     cfg.Mining.Workers,
		MaxAttempts: cfg.Mining.MaxAttempts,
		EvHandler:   ev,
	})
	if err != nil {
		return err
	}
	defer state.Shutdown()

	g := state.RetrieveGenesis()
	log.Infow("startup", "status", "genesis", "payload", g.Payload, "difficulty", g.Difficulty, "period", g.AdjustmentPeriod, "accuracy", g.Accuracy)

	// The worker package runs the mining workflow in the background.
	w := worker.Run(worker.Config{
		State:     state,
		Timeout:   cfg.Mining.Timeout,
		EvHandler: ev,
	})

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to learn when the requested blocks have been mined.
	// Use a buffered channel so the goroutine can exit if we don't collect this error.
	miningErrors := make(chan error, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		miningErrors <- appendBlocks(ctx, log, w, cfg.Mining.Blocks, []byte(cfg.Mining.Payload))
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-miningErrors:
		w.Shutdown()
		if err != nil && !errors.Is(err, database.ErrMiningAborted) {
			return fmt.Errorf("mining error: %w", err)
		}
		log.Infow("shutdown", "status", "mining complete", "ERROR", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		cancel()
		w.Shutdown()
		<-miningErrors
	}

	// Release the console subscriber.
	evts.Shutdown()

	// =========================================================================
	// Report

	for bv := range state.Ancestors() {
		log.Infow("chain", "number", bv.Number, "difficulty", bv.Difficulty, "commitment", bv.Commitment, "nonce", bv.Nonce, "payload", string(bv.Payload), "parent_payload", string(bv.ParentPayload))
	}

	if err := state.Audit(); err != nil {
		switch {
		case database.IsChainCorruption(err):
			cc := database.GetChainCorruption(err)
			return fmt.Errorf("chain corrupt at block %d: %w", cc.Number, err)
		case database.IsInvariantViolation(err):
			iv := database.GetInvariantViolation(err)
			return fmt.Errorf("chain invariant broken at block %d: %w", iv.Number, err)
		}
		return fmt.Errorf("audit: %w", err)
	}
	log.Infow("shutdown", "status", "audit passed", "blocks", state.RetrieveLatestBlock().Header.Number+1)

	return nil
}

// appendBlocks hands the payload to the worker the requested number of
// times, waiting for each block to be admitted. A count of zero appends
// until the context is cancelled.
func appendBlocks(ctx context.Context, log *zap.SugaredLogger, w *worker.Worker, count int, payload []byte) error {
	for i := 0; count == 0 || i < count; i++ {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", database.ErrMiningAborted, ctx.Err())
		}

		block, err := w.Mine(ctx, payload)
		if err != nil {
			return err
		}

		log.Infow("mining", "status", "appended", "number", block.Header.Number, "difficulty", block.Header.Difficulty)
	}

	return nil
}
