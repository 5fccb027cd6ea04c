// Package logging configures the process-wide slog logger. Output can be
// buffered at startup and handed over to a TUI pane later, and optionally
// teed to a log file.
package logging

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"lautenbacher.net/relayplate/config"
)

// teeWriter buffers log output until a live target is attached and always
// mirrors it to the log file when one is configured. Safe for concurrent
// use.
type teeWriter struct {
	mu        sync.Mutex
	pending   bytes.Buffer
	target    io.Writer
	file      *os.File
	buffering bool
}

func (w *teeWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var firstErr error
	if w.buffering {
		w.pending.Write(p)
	} else if w.target != nil {
		if _, err := w.target.Write(p); err != nil {
			firstErr = err
		}
	}
	if w.file != nil {
		if _, err := w.file.Write(p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return len(p), firstErr
}

var (
	writer *teeWriter
	level  slog.LevelVar
)

// Init sets up the default slog logger from the logging config. With
// buffered true, output is held back until SetOutput attaches a target
// (used by the monitor so startup messages end up in its log pane instead
// of garbling the terminal).
func Init(conf config.LoggingConfig, buffered bool) error {
	writer = &teeWriter{buffering: buffered}
	if !buffered {
		writer.target = os.Stderr
	}

	if conf.File != "" {
		file, err := os.OpenFile(conf.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return err
		}
		writer.file = file
	}

	level.Set(ParseLevel(conf.Level))
	opts := &slog.HandlerOptions{Level: &level}

	var handler slog.Handler
	if strings.ToLower(conf.Format) == "json" {
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(writer, opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// ParseLevel maps a config level string to a slog level, defaulting to
// INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// SetLevel changes the log level of the running logger.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// SetOutput flushes anything buffered to the new target and switches to
// live logging.
func SetOutput(target io.Writer) error {
	writer.mu.Lock()
	defer writer.mu.Unlock()

	if writer.pending.Len() > 0 {
		if _, err := target.Write(writer.pending.Bytes()); err != nil {
			return err
		}
		writer.pending.Reset()
	}
	writer.target = target
	writer.buffering = false
	return nil
}

// BufferOutput detaches the live target and buffers again (used when the
// TUI shuts down before the process does).
func BufferOutput() {
	writer.mu.Lock()
	defer writer.mu.Unlock()

	writer.target = nil
	writer.buffering = true
}

// Close drains the buffer and closes the log file. Buffered output was
// already mirrored to the file by Write, so it only goes to stderr when no
// file would otherwise have kept it.
func Close() error {
	writer.mu.Lock()
	defer writer.mu.Unlock()

	var firstErr error
	if writer.file == nil && writer.pending.Len() > 0 {
		if _, err := os.Stderr.Write(writer.pending.Bytes()); err != nil {
			firstErr = err
		}
	}
	writer.pending.Reset()
	if writer.file != nil {
		if err := writer.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		writer.file = nil
	}
	return firstErr
}
