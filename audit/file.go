package audit

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// maxLineBytes bounds a single JSON line on read-back.
const maxLineBytes = 1 << 20

// FileSink appends one JSON object per line to a file opened with O_APPEND.
// Each entry is written with a single write call under a mutex, so lines
// from concurrent writers never interleave.
type FileSink struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// OpenFileSink opens (creating if needed) the file at path for appending.
func OpenFileSink(path string) (*FileSink, error) {
	path = filepath.Clean(path)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create audit directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open audit file: %w", err)
	}
	return &FileSink{path: path, file: f}, nil
}

// Path returns the file location.
func (s *FileSink) Path() string {
	return s.path
}

// Write implements Sink.
func (s *FileSink) Write(_ context.Context, entry Entry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return os.ErrClosed
	}
	_, err = s.file.Write(line)
	return err
}

// Query implements Reader. Lines that fail to decode are skipped.
func (s *FileSink) Query(ctx context.Context, since time.Time) ([]Entry, error) {
	var out []Entry
	err := s.scan(func(e Entry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !e.Timestamp.Before(since) {
			out = append(out, e)
		}
		return nil
	})
	if out == nil {
		out = []Entry{}
	}
	return out, err
}

// LastHash implements ChainHead.
func (s *FileSink) LastHash(context.Context) (string, error) {
	var last string
	err := s.scan(func(e Entry) error {
		last = e.Hash
		return nil
	})
	return last, err
}

// Close closes the underlying file. Further writes fail with os.ErrClosed.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func (s *FileSink) scan(fn func(Entry) error) error {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 64*1024)
	for {
		line, err := r.ReadBytes('\n')
		if len(line) > 0 && len(line) <= maxLineBytes {
			line = bytes.TrimSpace(line)
			var e Entry
			// A partially flushed trailing line fails to decode and is ignored.
			if len(line) > 0 && json.Unmarshal(line, &e) == nil {
				if ferr := fn(e); ferr != nil {
					return ferr
				}
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
