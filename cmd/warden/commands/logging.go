package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/MEKXH/warden/internal/config"
)

// logSink owns the log file opened by the last configureLogger call.
var logSink struct {
	sync.Mutex
	file *os.File
}

// configureLogger installs the default slog handler. Records go to stderr
// unless log.file is set; a relative log.file lives under the data dir next
// to the database and the audit log.
func configureLogger(cfg *config.Config, overrideLevel string) error {
	level, err := parseLogLevel(cfg.Log.Level, overrideLevel)
	if err != nil {
		return err
	}
	path := logFilePath(cfg)

	logSink.Lock()
	defer logSink.Unlock()

	if logSink.file != nil && logSink.file.Name() != path {
		_ = logSink.file.Close()
		logSink.file = nil
	}

	var w io.Writer = os.Stderr
	if path != "" {
		if logSink.file == nil {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("create log directory: %w", err)
			}
			f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			logSink.file = f
		}
		w = logSink.file
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	return nil
}

// logFilePath resolves log.file. "~" is the home directory.
func logFilePath(cfg *config.Config) string {
	path := strings.TrimSpace(cfg.Log.File)
	switch {
	case path == "":
		return ""
	case path == "~" || strings.HasPrefix(path, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	case filepath.IsAbs(path):
		return path
	default:
		return filepath.Join(cfg.DataDirPath(), path)
	}
}

func parseLogLevel(configLevel, override string) (slog.Level, error) {
	name := strings.TrimSpace(override)
	if name == "" {
		name = strings.TrimSpace(configLevel)
	}
	if name == "" {
		return slog.LevelInfo, nil
	}
	if strings.EqualFold(name, "warning") {
		name = "warn"
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("invalid log level: %s", name)
	}
	return level, nil
}
