package history

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const maxLineSize = 1 << 20

// FileStore keeps history as a newline separated text file.
type FileStore struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	logger *slog.Logger
}

// NewFileStore opens (creating if needed) the history file at path for
// appending.
func NewFileStore(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}
	f, err := openAppend(path)
	if err != nil {
		return nil, err
	}
	return &FileStore{
		path:   path,
		file:   f,
		logger: slog.Default().With("component", "history", "path", path),
	}, nil
}

func openAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening history file: %w", err)
	}
	return f, nil
}

func (s *FileStore) Load(ctx context.Context) ([]string, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening history file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading history file: %w", err)
	}
	s.logger.Debug("history loaded", "lines", len(lines))
	return lines, nil
}

func (s *FileStore) Append(_ context.Context, lines ...string) error {
	if len(lines) == 0 {
		return nil
	}
	if err := validateLines(lines); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return fmt.Errorf("history file %s is closed", s.path)
	}
	if _, err := s.file.WriteString(strings.Join(lines, "\n") + "\n"); err != nil {
		return fmt.Errorf("appending to history file: %w", err)
	}
	return nil
}

// Rewrite writes lines to a temporary file and renames it over the history
// file, so a crash leaves either the old or the new contents.
func (s *FileStore) Rewrite(_ context.Context, lines []string) error {
	if err := validateLines(lines); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tmpPath := s.path + ".tmp"
	tmp, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp history file: %w", err)
	}
	w := bufio.NewWriter(tmp)
	for _, line := range lines {
		w.WriteString(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp history file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing temp history file: %w", err)
	}
	tmp.Close()

	if s.file != nil {
		s.file.Close()
		s.file = nil
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("renaming history file: %w", err)
	}
	f, err := openAppend(s.path)
	if err != nil {
		return err
	}
	s.file = f
	return nil
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
