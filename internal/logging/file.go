package logging

import (
	"os"
	"sync"

	"xkart/internal/config"
)

// fileWriter appends log output to a single file and starts the file over
// once it would grow past the configured cap, so a long-running xkartd
// cannot fill the disk with its own log.
type fileWriter struct {
	path string
	cap  int64

	mu   sync.Mutex
	file *os.File
	size int64
}

func newFileWriter(cfg config.LogConfig) (*fileWriter, error) {
	maxMB := cfg.FileMaxMB
	if maxMB <= 0 {
		maxMB = 10
	}
	w := &fileWriter{path: cfg.File, cap: int64(maxMB) << 20}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *fileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		if err := w.open(); err != nil {
			return 0, err
		}
	}
	if w.size+int64(len(p)) > w.cap {
		if err := w.startOver(); err != nil {
			return 0, err
		}
	}
	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *fileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *fileWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	w.file = f
	w.size = info.Size()
	return nil
}

func (w *fileWriter) startOver() error {
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w.file = f
	w.size = 0
	return nil
}
