// Package logging sets up the per-run log artifact and the console logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const timestampLayout = "2006-01-02 15:04:05"

// NewRunLogger creates a logger writing both to stderr and to a fresh
// per-run log file under dir. Lines in the file follow the
// `[YYYY-MM-DD HH:MM:SS] LEVEL | message` shape so the artifact can be
// attached to notifications. The returned close function flushes and
// closes the file; path names the artifact for later attachment.
func NewRunLogger(dir string) (logger zerolog.Logger, path string, closeFn func() error, err error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return zerolog.Nop(), "", nil, fmt.Errorf("create log directory: %w", err)
	}

	path = filepath.Join(dir, "run-"+time.Now().Format("20060102-150405")+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return zerolog.Nop(), "", nil, fmt.Errorf("create run log: %w", err)
	}

	out := zerolog.MultiLevelWriter(runWriter(f), runWriter(os.Stderr))
	logger = zerolog.New(out).With().Timestamp().Logger()

	return logger, path, f.Close, nil
}

// runWriter formats events as `[ts] LEVEL | message key=value`.
func runWriter(w io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:     w,
		NoColor: true,
		FormatTimestamp: func(i interface{}) string {
			ts, ok := i.(string)
			if ok {
				if t, err := time.Parse(time.RFC3339, ts); err == nil {
					return "[" + t.Format(timestampLayout) + "]"
				}
			}
			return fmt.Sprintf("[%v]", i)
		},
		FormatLevel: func(i interface{}) string {
			return strings.ToUpper(fmt.Sprintf("%s", i))
		},
		FormatMessage: func(i interface{}) string {
			if i == nil {
				return "|"
			}
			return fmt.Sprintf("| %v", i)
		},
	}
}
