package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileSink keeps captured frames in a local directory.
type FileSink struct {
	dir string
}

func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create frames dir: %w", err)
	}
	return &FileSink{dir: dir}, nil
}

// Save writes the frame and returns its path.
func (s *FileSink) Save(_ context.Context, name string, data []byte) (string, error) {
	p := filepath.Join(s.dir, filepath.Base(name))
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("write frame %s: %w", p, err)
	}
	return p, nil
}

func (s *FileSink) Load(_ context.Context, ref string) ([]byte, error) {
	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, fmt.Errorf("read frame %s: %w", ref, err)
	}
	return data, nil
}

func (s *FileSink) Ping(_ context.Context) error {
	_, err := os.Stat(s.dir)
	return err
}
