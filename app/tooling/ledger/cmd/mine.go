package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/database/memory"
	"github.com/ardanlabs/powchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/powchain/foundation/blockchain/state"
	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
)

var (
	blocks      int
	difficulty  uint
	workers     int
	timeout     time.Duration
	genesisPath string
	asJSON      bool
	dump        bool
)

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Mine an in-memory chain and print it.",
	RunE:  mineRun,
}

func init() {
	rootCmd.AddCommand(mineCmd)
	mineCmd.Flags().IntVarP(&blocks, "blocks", "b", 5, "Blocks to append after genesis.")
	mineCmd.Flags().UintVarP(&difficulty, "difficulty", "z", 0, "Genesis difficulty, 0 keeps the genesis file value.")
	mineCmd.Flags().IntVarP(&workers, "workers", "w", 0, "Goroutines per search, 0 uses GOMAXPROCS.")
	mineCmd.Flags().DurationVarP(&timeout, "timeout", "t", time.Minute, "Time allowed to mine the whole chain.")
	mineCmd.Flags().StringVarP(&genesisPath, "genesis", "g", "", "JSON file with the chain parameters.")
	mineCmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Print the chain as JSON.")
	mineCmd.Flags().BoolVar(&dump, "dump", false, "Dump the latest block.")
}

func mineRun(cmd *cobra.Command, args []string) error {
	gen := genesis.Default()
	if genesisPath != "" {
		var err error
		if gen, err = genesis.Load(genesisPath); err != nil {
			return err
		}
	}
	if difficulty > 0 {
		gen.Difficulty = difficulty
	}

	strg, err := memory.New()
	if err != nil {
		return err
	}

	st, err := state.New(state.Config{
		Genesis: gen,
		Storage: strg,
		Workers: workers,
	})
	if err != nil {
		return err
	}
	defer st.Shutdown()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	out := cmd.OutOrStdout()

	for range blocks {
		block, err := st.Append(ctx, []byte(payload))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "mined blk[%d]: difficulty[%d]: %s\n", block.Header.Number, block.Header.Difficulty, block.Header.Commitment)
	}

	if err := st.Audit(); err != nil {
		return fmt.Errorf("audit: %w", err)
	}

	if dump {
		fmt.Fprint(out, spew.Sdump(st.RetrieveLatestBlock()))
	}

	if asJSON {
		var views []state.BlockView
		for bv := range st.Ancestors() {
			views = append(views, bv)
		}

		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	}

	for bv := range st.Ancestors() {
		fmt.Fprintf(out, "%5d %3d %s %s %q\n", bv.Number, bv.Difficulty, bv.Commitment, bv.Nonce, bv.Payload)
	}

	return nil
}
