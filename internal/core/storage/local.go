package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalProvider stores document files in a directory on the local filesystem
type LocalProvider struct {
	basePath string
}

// NewLocalProvider creates a new local file store rooted at basePath
func NewLocalProvider(basePath string) (*LocalProvider, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalProvider{basePath: basePath}, nil
}

// Save writes the file content under filename, overwriting any previous file
func (p *LocalProvider) Save(ctx context.Context, filename string, content io.Reader) (int64, error) {
	path, err := p.resolve(filename)
	if err != nil {
		return 0, err
	}

	out, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	size, err := io.Copy(out, content)
	if err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("failed to write file: %w", err)
	}

	return size, nil
}

// Read returns the full content of a stored file
func (p *LocalProvider) Read(ctx context.Context, filename string) ([]byte, error) {
	path, err := p.resolve(filename)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", filename)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return data, nil
}

// Exists reports whether a file is present in the store
func (p *LocalProvider) Exists(ctx context.Context, filename string) (bool, error) {
	path, err := p.resolve(filename)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat file: %w", err)
	}

	return true, nil
}

// Delete removes a file, ignoring its absence
func (p *LocalProvider) Delete(ctx context.Context, filename string) error {
	path, err := p.resolve(filename)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// GetProviderName returns the provider name
func (p *LocalProvider) GetProviderName() string {
	return "Local Storage"
}

// resolve joins filename with the base path and rejects names escaping it
func (p *LocalProvider) resolve(filename string) (string, error) {
	name := filepath.Base(filepath.Clean(filename))
	if name == "." || name == string(filepath.Separator) || name == ".." {
		return "", fmt.Errorf("invalid filename: %s", filename)
	}
	return filepath.Join(p.basePath, name), nil
}
