// Package logging provides file-based structured logging with rotation.
// Index runs additionally get a per-job log file under the jobs
// directory, so a failed run can be inspected after the fact.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/notora/notora/internal/config"
)

// Config contains logging configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// FilePath is the log file path. Empty means no file logging.
	FilePath string
	// MaxSizeMB is the size cap before rotation (default: 10).
	MaxSizeMB int
	// MaxFiles is how many rotated files to keep (default: 5).
	MaxFiles int
	// WriteToStderr mirrors log output to stderr.
	WriteToStderr bool
}

// DefaultConfig returns the standard file logging setup.
func DefaultConfig() Config {
	return Config{
		Level:         "info",
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: false,
	}
}

// DefaultLogPath returns the main log file path.
func DefaultLogPath() string {
	return filepath.Join(config.LogsDir(), "notora.log")
}

// JobLogPath returns the per-job log file path.
func JobLogPath(jobID string) string {
	return filepath.Join(config.JobsDir(), jobID, "job.log")
}

// Setup initializes file logging and returns the logger plus a cleanup
// function that flushes and closes the file.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	writer, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
	if err != nil {
		return nil, nil, err
	}

	var output io.Writer = writer
	if cfg.WriteToStderr {
		output = io.MultiWriter(writer, os.Stderr)
	}

	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
	})

	cleanup := func() {
		_ = writer.Sync()
		_ = writer.Close()
	}
	return slog.New(handler), cleanup, nil
}

// SetupJob creates a logger writing to the job's own log file, tagged
// with the job id on every record.
func SetupJob(jobID, level string) (*slog.Logger, func(), error) {
	logger, cleanup, err := Setup(Config{
		Level:     level,
		FilePath:  JobLogPath(jobID),
		MaxSizeMB: 10,
		MaxFiles:  2,
	})
	if err != nil {
		return nil, nil, err
	}
	return logger.With(slog.String("job_id", jobID)), cleanup, nil
}

// ParseLevel converts a string level to slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
