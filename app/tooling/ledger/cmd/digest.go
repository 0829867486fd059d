package cmd

import (
	"fmt"

	"github.com/ardanlabs/powchain/foundation/blockchain/digest"
	"github.com/spf13/cobra"
)

var (
	parentHex string
	nonceHex  string
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Compute a block commitment.",
	Long:  "Compute the commitment of a payload. Without a parent the genesis commitment is computed.",
	RunE:  digestRun,
}

func init() {
	rootCmd.AddCommand(digestCmd)
	digestCmd.Flags().StringVarP(&parentHex, "parent", "p", "", "Parent commitment as 0x prefixed hex.")
	digestCmd.Flags().StringVarP(&nonceHex, "nonce", "n", "", "Nonce as 0x prefixed hex.")
}

func digestRun(cmd *cobra.Command, args []string) error {
	if parentHex == "" {
		hash := digest.Genesis([]byte(payload))
		fmt.Fprintf(cmd.OutOrStdout(), "%s zero_bits[%d]\n", hash, hash.LeadingZeroBits())
		return nil
	}

	parent, err := digest.HexToHash(parentHex)
	if err != nil {
		return fmt.Errorf("parent: %w", err)
	}

	nonce, err := digest.HexToNonce(nonceHex)
	if err != nil {
		return fmt.Errorf("nonce: %w", err)
	}

	hash := digest.Block([]byte(payload), parent, nonce)
	fmt.Fprintf(cmd.OutOrStdout(), "%s zero_bits[%d]\n", hash, hash.LeadingZeroBits())

	return nil
}
