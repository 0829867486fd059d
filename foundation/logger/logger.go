// Package logger provides a convenience function to constructing a logger
// for use. This is required not just for applications but for testing.
package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jrick/logrotate/rotator"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New constructs a Sugared Logger that writes to stdout and
// provides human readable timestamps.
func New(service string) (*zap.SugaredLogger, error) {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stdout"}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = true
	config.InitialFields = map[string]any{
		"service": service,
	}

	log, err := config.Build()
	if err != nil {
		return nil, err
	}

	return log.Sugar(), nil
}

// =============================================================================

// Rotation describes a log file that is rolled over once it grows past
// ThresholdKB. MaxRolls old files are kept.
type Rotation struct {
	Path        string
	ThresholdKB int64
	MaxRolls    int
}

// NewRotated constructs a Sugared Logger that writes to stdout and to the
// rotated log file. The returned function closes the log file and must be
// called after the final Sync.
func NewRotated(service string, rot Rotation) (*zap.SugaredLogger, func() error, error) {
	if dir, _ := filepath.Split(rot.Path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	r, err := rotator.New(rot.Path, rot.ThresholdKB, false, rot.MaxRolls)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create file rotator: %w", err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	ws := zapcore.NewMultiWriteSyncer(zapcore.Lock(os.Stdout), zapcore.AddSync(r))
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), ws, zap.InfoLevel)

	log := zap.New(core).With(zap.String("service", service))

	return log.Sugar(), r.Close, nil
}
