// internal/secrets/file.go
package secrets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// File stores one secret per file under a private directory.
type File struct {
	basePath string
}

// NewFile creates the base directory (0700) if needed.
func NewFile(basePath string) (*File, error) {
	if basePath == "" {
		return nil, fmt.Errorf("secret directory is empty")
	}
	if err := os.MkdirAll(basePath, 0o700); err != nil {
		return nil, fmt.Errorf("creating secret directory: %w", err)
	}
	return &File{basePath: basePath}, nil
}

func (f *File) fullPath(name string) string {
	return filepath.Join(f.basePath, name)
}

func (f *File) Get(ctx context.Context, name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	data, err := os.ReadFile(f.fullPath(name))
	if errors.Is(err, fs.ErrNotExist) {
		return "", notFound(name)
	}
	if err != nil {
		return "", storeErr("reading secret file", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// Set writes through a temp file and rename so readers never see a partial
// secret.
func (f *File) Set(ctx context.Context, name, secret string) error {
	if err := validateName(name); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.basePath, "."+name+".tmp-*")
	if err != nil {
		return storeErr("creating temp file", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return storeErr("restricting temp file", err)
	}
	if _, err := tmp.WriteString(secret); err != nil {
		tmp.Close()
		return storeErr("writing temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return storeErr("syncing temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return storeErr("closing temp file", err)
	}
	if err := os.Rename(tmpName, f.fullPath(name)); err != nil {
		return storeErr("replacing secret file", err)
	}
	return nil
}

func (f *File) Delete(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	err := os.Remove(f.fullPath(name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return storeErr("removing secret file", err)
	}
	return nil
}
