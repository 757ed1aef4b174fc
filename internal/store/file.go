package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"localcron/internal/domain"
)

// fileStore keeps the schedule as a JSON document on fs.
//
// Writes go to <path>.tmp and are renamed over path, so readers never see
// a partially written document.
type fileStore struct {
	fs   afero.Fs
	path string
}

func NewFile(fs afero.Fs, path string) Store {
	return &fileStore{fs: fs, path: path}
}

func (f *fileStore) Close() error { return nil }

func (f *fileStore) ReadAll(ctx context.Context) (domain.Schedule, error) {
	_ = ctx
	b, err := afero.ReadFile(f.fs, f.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.Schedule{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return domain.Schedule{}, nil
	}
	return decodeDocument(b)
}

func (f *fileStore) WriteAll(ctx context.Context, s domain.Schedule) error {
	_ = ctx
	b, err := encodeDocument(s)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(f.path); dir != "." {
		if err := f.fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := f.path + ".tmp"
	if err := afero.WriteFile(f.fs, tmp, b, 0o600); err != nil {
		return err
	}
	return f.fs.Rename(tmp, f.path)
}
