package log

import (
	"os"
	"path/filepath"
	"sync"
)

// FileWriter appends to a log file, creating parent directories.
type FileWriter struct {
	mu     sync.Mutex
	writer *os.File
}

func (cw *FileWriter) Write(p []byte) (n int, err error) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.writer == nil {
		return 0, os.ErrClosed
	}
	return cw.writer.Write(p)
}

func NewFileWriter(pathname string) (*FileWriter, error) {
	if dir := filepath.Dir(pathname); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(pathname, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &FileWriter{writer: f}, nil
}

func (cw *FileWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.writer == nil {
		return nil
	}
	err := cw.writer.Close()
	cw.writer = nil
	return err
}
