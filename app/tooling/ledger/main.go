// This program provides tooling to compute block commitments and to mine
// a throwaway chain from the command line.
package main

import "github.com/ardanlabs/powchain/app/tooling/ledger/cmd"

func main() {
	cmd.Execute()
}
