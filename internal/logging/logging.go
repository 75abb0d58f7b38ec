// Package logging builds the process logger: leveled text lines to a rotated
// file, optionally mirrored to stderr and to a Seq server.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	slogseq "github.com/sokkalf/slog-seq"
	"gopkg.in/natefinch/lumberjack.v2"
)

// DefaultFile is the log path relative to the working directory.
const DefaultFile = "logs/app.log"

// Options configures Setup.
type Options struct {
	// File is the rotated log file. Empty means DefaultFile; "-" disables
	// the file sink.
	File string
	// Level is debug, info, warn or error. Empty means info.
	Level string
	// Stderr mirrors records to standard error.
	Stderr bool
	// SeqURL, when set, ships records to a Seq server.
	SeqURL string

	// MaxSizeMB, MaxBackups and MaxAgeDays tune rotation; zero uses
	// lumberjack's defaults except MaxSizeMB, which defaults to 50.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}

// Setup returns the logger and a cleanup function that flushes and closes
// every sink. It does not touch slog's default logger.
func Setup(opt Options) (*slog.Logger, func(), error) {
	level, err := ParseLevel(opt.Level)
	if err != nil {
		return nil, nil, err
	}
	hopts := &slog.HandlerOptions{Level: level}

	var (
		handlers []slog.Handler
		closers  []func()
	)

	file := opt.File
	if file == "" {
		file = DefaultFile
	}
	if file != "-" {
		maxSize := opt.MaxSizeMB
		if maxSize == 0 {
			maxSize = 50
		}
		lj := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    maxSize,
			MaxBackups: opt.MaxBackups,
			MaxAge:     opt.MaxAgeDays,
		}
		handlers = append(handlers, slog.NewTextHandler(lj, hopts))
		closers = append(closers, func() { _ = lj.Close() })
	}
	if opt.Stderr {
		handlers = append(handlers, slog.NewTextHandler(os.Stderr, hopts))
	}
	if opt.SeqURL != "" {
		_, seq := slogseq.NewLogger(opt.SeqURL,
			slogseq.WithBatchSize(50),
			slogseq.WithFlushInterval(2*time.Second),
			slogseq.WithHandlerOptions(hopts),
		)
		if seq != nil {
			handlers = append(handlers, seq)
			closers = append(closers, func() { seq.Close() })
		}
	}

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	switch len(handlers) {
	case 0:
		return slog.New(slog.NewTextHandler(io.Discard, hopts)), cleanup, nil
	case 1:
		return slog.New(handlers[0]), cleanup, nil
	}
	return slog.New(&multiHandler{handlers: handlers}), cleanup, nil
}

// multiHandler forwards records to every handler.
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}
