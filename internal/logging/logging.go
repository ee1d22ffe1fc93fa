package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
	slogmulti "github.com/samber/slog-multi"
)

// Setup builds the CLI logger. Console output goes through a tint handler;
// if logOutputDir is non-empty, a timestamped JSON log file is written there
// as well and its handler wraps the console one.
func Setup(levelStr, logOutputDir string) (*slog.Logger, error) {
	level := parseLogLevel(levelStr)

	console := tint.NewHandler(os.Stderr, &tint.Options{Level: level})
	if logOutputDir == "" {
		return slog.New(console), nil
	}

	dir := os.ExpandEnv(logOutputDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log output directory: %w", err)
	}

	name := fmt.Sprintf("mrstools_%s.log", time.Now().Format("20060102_150405"))
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	fileHandler := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level})
	return slog.New(slogmulti.Fanout(console, fileHandler)), nil
}

func parseLogLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
