package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// localUploader writes proofs under a directory on disk. It is the fallback
// when no bucket is configured.
type localUploader struct {
	root string
}

func NewLocalUploader(root string) (FileUploader, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create proof directory %s: %w", root, err)
	}
	return &localUploader{root: root}, nil
}

func (u *localUploader) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(u.root, clean), nil
}

func (u *localUploader) Upload(ctx context.Context, key string, _ string, reader io.Reader) (*UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := u.path(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", key, err)
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("failed to create proof file (key: %s): %w", key, err)
	}
	if _, err := io.Copy(f, reader); err != nil {
		f.Close()
		os.Remove(p)
		return nil, fmt.Errorf("failed to write proof file (key: %s): %w", key, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close proof file (key: %s): %w", key, err)
	}
	return &UploadResult{Key: key, Location: p}, nil
}

func (u *localUploader) Delete(_ context.Context, key string) error {
	p, err := u.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete proof file (key: %s): %w", key, err)
	}
	return nil
}

func (u *localUploader) GetPublicURL(string) string {
	return ""
}
