package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options describe the rotating log file
type Options struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	// Stderr also copies every line to standard error. Leave it off while
	// the full screen UI owns the terminal.
	Stderr bool
	// Extra receives a copy of every line, e.g. the UI log pane
	Extra []io.Writer
}

// New returns a process logger writing to a size rotated file, and the
// closer for that file
func New(opts Options) (*log.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
		return nil, nil, err
	}
	rotating := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
	}
	writers := []io.Writer{rotating}
	if opts.Stderr {
		writers = append(writers, os.Stderr)
	}
	writers = append(writers, opts.Extra...)
	return log.New(io.MultiWriter(writers...), "", log.LstdFlags|log.Lmicroseconds), rotating, nil
}
