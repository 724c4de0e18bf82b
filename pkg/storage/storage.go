// Package storage reads extracted invoice text and stores run outputs.
package storage

import (
	"context"
	"io"
	"time"
)

// FileInfo contains metadata about a stored file
type FileInfo struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

// Document is one invoice file split into pages.
type Document struct {
	Name          string
	Pages         []string
	InvoiceNumber *string
	InvoiceDate   *time.Time
}

// Storage defines the interface for file storage operations
type Storage interface {
	// List returns the invoice text files in name order
	List(ctx context.Context) ([]*FileInfo, error)

	// ReadDocument loads one invoice file
	ReadDocument(ctx context.Context, name string) (*Document, error)

	// Save stores an output file, replacing any file of the same name
	Save(ctx context.Context, name string, r io.Reader) (*FileInfo, error)
}

// StorageType identifies the storage backend
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
)

// Config holds storage configuration
type Config struct {
	Type      StorageType
	LocalPath string
	Extension string // Listed file suffix (default: .txt)
}

// New creates a new Storage implementation based on configuration
func New(cfg *Config) (Storage, error) {
	switch cfg.Type {
	case StorageTypeLocal:
		fallthrough
	default:
		return NewLocalStorage(cfg.LocalPath, cfg.Extension)
	}
}
