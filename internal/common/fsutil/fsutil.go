package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome expands a leading '~' to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	// handle cases like ~/Pictures/cat.png
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}

// PathExists checks if the given path exists.
func PathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}

// ReadUpload reads a user-chosen file for upload and returns its base name
// and contents. Directories are rejected.
func ReadUpload(path string) (string, []byte, error) {
	p, err := ExpandHome(strings.TrimSpace(path))
	if err != nil {
		return "", nil, err
	}
	if p == "" {
		return "", nil, fmt.Errorf("empty file path")
	}
	st, err := os.Stat(p)
	if err != nil {
		return "", nil, err
	}
	if st.IsDir() {
		return "", nil, fmt.Errorf("%s is a directory", p)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return "", nil, err
	}
	return filepath.Base(p), b, nil
}

// WriteFileAtomic writes data to a temp file in the target directory and
// renames it into place, creating the directory if needed.
func WriteFileAtomic(path string, data []byte) error {
	p, err := ExpandHome(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(p)+"-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, p)
}
