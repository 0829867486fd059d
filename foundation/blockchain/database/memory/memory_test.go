package memory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/database/memory"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Memory(t *testing.T) {
	t.Log("Given the need to store blocks in memory.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen writing and reading blocks.", testID)
		{
			m, err := memory.New()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct storage: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to construct storage.", success, testID)

			gen := database.NewBlock(nil, []byte("Genesis Block"), time.Now())
			if err := m.Write(gen); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to write genesis: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to write genesis.", success, testID)

			skip := database.NewBlock(&gen, []byte("X"), time.Now())
			skip.Header.Number = 5
			if err := m.Write(skip); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould not be able to write a block out of order.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not be able to write a block out of order.", success, testID)

			got, err := m.GetBlock(0)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to read genesis: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to read genesis.", success, testID)

			got.Payload[0] = 'g'
			again, _ := m.GetBlock(0)
			if string(again.Payload) != "Genesis Block" {
				t.Fatalf("\t%s\tTest %d:\tShould not share payload memory with callers.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not share payload memory with callers.", success, testID)

			if _, err := m.GetBlock(1); !errors.Is(err, database.ErrBlockNotFound) {
				t.Fatalf("\t%s\tTest %d:\tShould get ErrBlockNotFound for a missing block: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould get ErrBlockNotFound for a missing block.", success, testID)

			if err := m.Reset(); err != nil || m.Len() != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould be able to reset storage.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to reset storage.", success, testID)
		}
	}
}
