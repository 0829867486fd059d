package logger_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ardanlabs/powchain/foundation/logger"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_NewRotated(t *testing.T) {
	t.Log("Given the need to write logs to a rotated file.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen logging a message.", testID)
		{
			path := filepath.Join(t.TempDir(), "logs", "miner.log")

			log, closeFn, err := logger.NewRotated("TEST", logger.Rotation{
				Path:        path,
				ThresholdKB: 1024,
				MaxRolls:    2,
			})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct the logger: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to construct the logger.", success, testID)

			log.Infow("startup", "status", "testing")
			log.Sync()

			if err := closeFn(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to close the log file: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to close the log file.", success, testID)

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to read the log file: %v", failed, testID, err)
			}

			if !strings.Contains(string(data), `"service":"TEST"`) {
				t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, data)
				t.Fatalf("\t%s\tTest %d:\tShould write the service name to the file.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould write the service name to the file.", success, testID)
		}
	}
}
