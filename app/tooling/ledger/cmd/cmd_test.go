package cmd

import (
	"bytes"
	"strings"
	"testing"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Commands(t *testing.T) {
	type table struct {
		name string
		args []string
		exp  []string
	}

	tt := []table{
		{
			name: "genesis",
			args: []string{"digest", "--payload", "Genesis Block"},
			exp:  []string{"0x89eb0ac031a63d2421cd05a2fbe41f3ea35f5c3712ca839cbf6b85c4ee07b7a3"},
		},
		{
			name: "block",
			args: []string{
				"digest", "--payload", "X",
				"--parent", "0x0000000000000000000000000000000000000000000000000000000000000000",
				"--nonce", "0x0100000000000000000000000000000000000000000000000000000000000000",
			},
			exp: []string{"0xf4bbfc6409303f7e947c670b5a05d46be1195cadc1b6a045c35b883412cb7bda"},
		},
		{
			name: "mine",
			args: []string{"mine", "--payload", "X", "--blocks", "3", "--difficulty", "6", "--json"},
			exp:  []string{"mined blk[3]", `"number": 3`, `"parent_payload"`},
		},
	}

	t.Log("Given the need to run the ledger commands.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen running %q.", testID, tst.name)
				{
					var out bytes.Buffer
					rootCmd.SetOut(&out)
					rootCmd.SetArgs(tst.args)

					// Flags keep their values between runs.
					parentHex, nonceHex = "", ""

					if err := rootCmd.Execute(); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to run the command: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to run the command.", success, testID)

					for _, exp := range tst.exp {
						if !strings.Contains(out.String(), exp) {
							t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, out.String())
							t.Fatalf("\t%s\tTest %d:\tShould print %q.", failed, testID, exp)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould print the expected output.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}
