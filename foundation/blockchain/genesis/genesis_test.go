package genesis_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/powchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/powchain/foundation/validate"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Validate(t *testing.T) {
	type table struct {
		name   string
		mutate func(g *genesis.Genesis)
		field  string
	}

	tt := []table{
		{name: "default", mutate: func(g *genesis.Genesis) {}},
		{name: "empty payload", mutate: func(g *genesis.Genesis) { g.Payload = "" }},
		{name: "difficulty", mutate: func(g *genesis.Genesis) { g.Difficulty = 257 }, field: "difficulty"},
		{name: "period", mutate: func(g *genesis.Genesis) { g.AdjustmentPeriod = 0 }, field: "adjustment_period"},
		{name: "accuracy", mutate: func(g *genesis.Genesis) { g.Accuracy = 0 }, field: "accuracy"},
		{name: "thresholds", mutate: func(g *genesis.Genesis) { g.SlowBlockSeconds = g.FastBlockSeconds }, field: "slow_block_seconds"},
	}

	t.Log("Given the need to validate chain parameters.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen checking %q.", testID, tst.name)
				{
					g := genesis.Default()
					tst.mutate(&g)

					err := g.Validate()

					if tst.field == "" {
						if err != nil {
							t.Fatalf("\t%s\tTest %d:\tShould be valid: %v", failed, testID, err)
						}
						t.Logf("\t%s\tTest %d:\tShould be valid.", success, testID)
						return
					}

					if !validate.IsFieldErrors(err) {
						t.Fatalf("\t%s\tTest %d:\tShould get back field errors: %v", failed, testID, err)
					}

					if _, exists := validate.GetFieldErrors(err).Fields()[tst.field]; !exists {
						t.Fatalf("\t%s\tTest %d:\tShould report field %q: %v", failed, testID, tst.field, err)
					}
					t.Logf("\t%s\tTest %d:\tShould report field %q.", success, testID, tst.field)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_Load(t *testing.T) {
	t.Log("Given the need to load chain parameters from a file.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the file sets some values.", testID)
		{
			path := filepath.Join(t.TempDir(), "genesis.json")
			if err := os.WriteFile(path, []byte(`{"payload":"Test Chain","difficulty":4}`), 0600); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to write the file: %v", failed, testID, err)
			}

			g, err := genesis.Load(path)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to load the file: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to load the file.", success, testID)

			if g.Payload != "Test Chain" || g.Difficulty != 4 {
				t.Fatalf("\t%s\tTest %d:\tShould use the file values, got %+v.", failed, testID, g)
			}
			t.Logf("\t%s\tTest %d:\tShould use the file values.", success, testID)

			if g.AdjustmentPeriod != genesis.DefaultAdjustmentPeriod || g.Accuracy != genesis.DefaultAccuracy {
				t.Fatalf("\t%s\tTest %d:\tShould keep defaults for missing values, got %+v.", failed, testID, g)
			}
			t.Logf("\t%s\tTest %d:\tShould keep defaults for missing values.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the file holds bad values.", testID)
		{
			path := filepath.Join(t.TempDir(), "genesis.json")
			if err := os.WriteFile(path, []byte(`{"accuracy":0}`), 0600); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to write the file: %v", failed, testID, err)
			}

			if _, err := genesis.Load(path); !validate.IsFieldErrors(err) {
				t.Fatalf("\t%s\tTest %d:\tShould reject the file: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the file.", success, testID)
		}
	}
}
