package storage

import (
	"context"
	"io"
)

// Provider defines the interface for document file stores. Files are keyed
// by their original filename; saving an existing name overwrites it
// (last write wins).
type Provider interface {
	// Save writes the file content under filename and returns the stored size
	Save(ctx context.Context, filename string, content io.Reader) (int64, error)

	// Read returns the full content of a stored file
	Read(ctx context.Context, filename string) ([]byte, error)

	// Exists reports whether a file is present in the store
	Exists(ctx context.Context, filename string) (bool, error)

	// Delete removes a file; deleting an absent file is not an error
	Delete(ctx context.Context, filename string) error

	// GetProviderName returns the provider name
	GetProviderName() string
}
