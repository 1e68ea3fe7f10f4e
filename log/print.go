package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"unicode/utf8"
)

// max length of a debug message unless tracing
const maxDebugLen = 500

type defaultLogger struct {
	mu sync.Mutex

	logLevel Level
	teeLevel Level

	printLogger Printer
	debugLogger Printer
	infoLogger  Printer
	errLogger   Printer

	tee *FileWriter
}

func newDefaultLogger() *defaultLogger {
	return newLogger(os.Stdout, os.Stderr)
}

// NewLogger returns a logger printing to stdout and everything else to stderr.
func NewLogger(stdout, stderr io.Writer) Logger {
	return newLogger(stdout, stderr)
}

func newLogger(stdout, stderr io.Writer) *defaultLogger {
	logger := &defaultLogger{
		printLogger: NewPrinter(stdout, false, 0),
		debugLogger: NewPrinter(stderr, false, maxDebugLen),
		infoLogger:  NewPrinter(stderr, false, 0),
		errLogger:   NewPrinter(stderr, false, 0),
	}
	logger.SetLogLevel(Informative)
	logger.SetTeeLogLevel(Informative)
	return logger
}

func (r *defaultLogger) Printf(format string, a ...any) {
	r.printLogger.Printf(format, a...)
}

func (r *defaultLogger) Errorf(format string, a ...any) {
	r.errLogger.Printf(format, a...)
}

func (r *defaultLogger) Infof(format string, a ...any) {
	r.infoLogger.Printf(format, a...)
}

func (r *defaultLogger) Debugf(format string, a ...any) {
	r.debugLogger.Printf(format, a...)
}

type Printer interface {
	Printf(string, ...any)

	SetEnabled(bool)
	IsEnabled() bool

	SetLogger(io.Writer)
	SetLoggerEnabled(bool)

	// SetMax limits message length, 0 for unlimited.
	SetMax(int)
}

func NewPrinter(w io.Writer, enabled bool, max int) Printer {
	return &printer{
		out:   w,
		on:    enabled,
		max:   max,
		limit: max,
	}
}

type printer struct {
	mu sync.Mutex

	out io.Writer
	on  bool

	// configured and effective max length
	max   int
	limit int

	logger   io.Writer
	loggerOn bool
}

func (r *printer) SetEnabled(b bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.on = b
}

func (r *printer) IsEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.on
}

func (r *printer) SetMax(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limit = n
}

func (r *printer) Printf(format string, a ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.on && (r.logger == nil || !r.loggerOn) {
		return
	}
	s := fmt.Sprintf(format, a...)
	if r.limit > 0 && len(s) > r.limit {
		s = truncate(s, r.limit) + "...\n"
	}
	if r.on {
		io.WriteString(r.out, s)
	}
	if r.logger != nil && r.loggerOn {
		io.WriteString(r.logger, s)
	}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func (r *printer) SetLogger(w io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = w
	r.loggerOn = w != nil
}

func (r *printer) SetLoggerEnabled(b bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loggerOn = b && r.logger != nil
}

type Level int

const (
	Quiet Level = iota
	Informative
	Verbose
	Tracing
)

func (r Level) String() string {
	switch r {
	case Quiet:
		return "quiet"
	case Informative:
		return "info"
	case Verbose:
		return "verbose"
	case Tracing:
		return "trace"
	}
	return fmt.Sprintf("level(%d)", int(r))
}

func (r *defaultLogger) IsVerbose() bool {
	return r.level() >= Verbose
}

func (r *defaultLogger) IsQuiet() bool {
	return r.level() == Quiet
}

func (r *defaultLogger) IsInformative() bool {
	return r.level() == Informative
}

func (r *defaultLogger) IsTrace() bool {
	return r.level() == Tracing
}

func (r *defaultLogger) level() Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.logLevel
}

func (r *defaultLogger) SetLogLevel(level Level) {
	r.mu.Lock()
	r.logLevel = level
	r.mu.Unlock()

	// stdout
	r.printLogger.SetEnabled(true)

	// stderr
	switch level {
	case Quiet:
		r.debugLogger.SetEnabled(false)
		r.infoLogger.SetEnabled(false)
		r.errLogger.SetEnabled(false)
	case Informative:
		r.debugLogger.SetEnabled(false)
		r.infoLogger.SetEnabled(true)
		r.errLogger.SetEnabled(true)
	case Verbose, Tracing:
		r.debugLogger.SetEnabled(true)
		r.infoLogger.SetEnabled(true)
		r.errLogger.SetEnabled(true)
	}

	if level == Tracing {
		r.debugLogger.SetMax(0)
	} else {
		r.debugLogger.SetMax(maxDebugLen)
	}
}

func (r *defaultLogger) SetLogOutput(w io.Writer) {
	r.printLogger.SetLogger(w)
	r.debugLogger.SetLogger(w)
	r.infoLogger.SetLogger(w)
	r.errLogger.SetLogger(w)
	r.applyTeeLevel()
}

// SetTeeFile copies log output to the file at path, gated by the tee level.
func (r *defaultLogger) SetTeeFile(path string) error {
	w, err := NewFileWriter(path)
	if err != nil {
		return err
	}
	r.mu.Lock()
	old := r.tee
	r.tee = w
	r.mu.Unlock()
	if old != nil {
		old.Close()
	}
	r.SetLogOutput(w)
	return nil
}

func (r *defaultLogger) SetTeeLogLevel(level Level) {
	r.mu.Lock()
	r.teeLevel = level
	r.mu.Unlock()
	r.applyTeeLevel()
}

func (r *defaultLogger) applyTeeLevel() {
	r.mu.Lock()
	level := r.teeLevel
	r.mu.Unlock()

	r.printLogger.SetLoggerEnabled(level > Quiet)
	r.infoLogger.SetLoggerEnabled(level >= Informative)
	r.errLogger.SetLoggerEnabled(level >= Informative)
	r.debugLogger.SetLoggerEnabled(level >= Verbose)
}

func (r *defaultLogger) CloseTee() error {
	r.mu.Lock()
	w := r.tee
	r.tee = nil
	r.mu.Unlock()

	r.SetLogOutput(nil)
	if w == nil {
		return nil
	}
	return w.Close()
}
