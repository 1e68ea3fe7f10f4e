package log

import (
	"context"
	"io"
)

type Logger interface {
	Printf(string, ...any)
	Errorf(string, ...any)
	Infof(string, ...any)
	Debugf(string, ...any)

	SetLogLevel(Level)
	SetLogOutput(io.Writer)

	SetTeeFile(string) error
	SetTeeLogLevel(Level)
	CloseTee() error

	IsQuiet() bool
	IsInformative() bool
	IsVerbose() bool
	IsTrace() bool
}

type LogManager interface {
	GetLogger(ctx context.Context) Logger
}

// default
var manager LogManager = newLogManager()

// set custom manager
func SetLogManager(m LogManager) {
	manager = m
}

type defaultLogManager struct {
	logger Logger
}

func newLogManager() *defaultLogManager {
	return &defaultLogManager{
		logger: newDefaultLogger(),
	}
}

func (r *defaultLogManager) GetLogger(ctx context.Context) Logger {
	return r.logger
}

type loggerKey struct{}

// WithLogger returns a context carrying l.
// GetLogger prefers it over the manager.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

func GetLogger(ctx context.Context) Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(Logger); ok && l != nil {
			return l
		}
	}
	return manager.GetLogger(ctx)
}
