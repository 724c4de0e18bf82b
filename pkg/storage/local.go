package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// PageSeparator splits extracted text into pages, as pdftotext emits it.
const PageSeparator = "\f"

var (
	invoiceNumberPattern = regexp.MustCompile(`(?i)\bINVOICE\s+(?:NUMBER|NO\.?)\s*:?\s*([A-Z0-9][A-Z0-9-]*)`)
	invoiceDatePattern   = regexp.MustCompile(`(?i)\bINVOICE\s+DATE\s*:?\s*(\d{1,2}/\d{1,2}/\d{4})`)
)

// LocalStorage implements Storage using the local filesystem
type LocalStorage struct {
	basePath  string
	extension string
}

// NewLocalStorage creates a new local filesystem storage
func NewLocalStorage(basePath, extension string) (*LocalStorage, error) {
	// Ensure base path exists
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	if extension == "" {
		extension = ".txt"
	}

	return &LocalStorage{basePath: basePath, extension: strings.ToLower(extension)}, nil
}

// List returns the invoice text files in name order
func (s *LocalStorage) List(ctx context.Context) ([]*FileInfo, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.basePath, err)
	}

	files := make([]*FileInfo, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), s.extension) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, &FileInfo{
			Name:      entry.Name(),
			Size:      info.Size(),
			Path:      filepath.Join(s.basePath, entry.Name()),
			CreatedAt: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// ReadDocument loads one invoice file. Pages are separated by form feeds and
// invoice number and date are taken from the first page when present.
func (s *LocalStorage) ReadDocument(ctx context.Context, name string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.basePath, filepath.Base(name)))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	return ParseDocument(name, string(data)), nil
}

// Save stores an output file, replacing any file of the same name
func (s *LocalStorage) Save(ctx context.Context, name string, r io.Reader) (*FileInfo, error) {
	safeFilename := sanitizeFilename(name)
	filePath := filepath.Join(s.basePath, safeFilename)

	// Write to a temp file first so readers never see a partial output
	f, err := os.CreateTemp(s.basePath, "."+safeFilename+".*")
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	tmp := f.Name()

	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp) // Cleanup on error
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	if err := os.Rename(tmp, filePath); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("failed to store %s: %w", safeFilename, err)
	}

	return &FileInfo{
		Name:      safeFilename,
		Size:      size,
		Path:      filePath,
		CreatedAt: time.Now(),
	}, nil
}

// ParseDocument splits text into pages and reads invoice metadata.
func ParseDocument(name, text string) *Document {
	text = strings.TrimSuffix(text, PageSeparator)
	doc := &Document{
		Name:  name,
		Pages: strings.Split(text, PageSeparator),
	}

	first := doc.Pages[0]
	if m := invoiceNumberPattern.FindStringSubmatch(first); m != nil {
		number := m[1]
		doc.InvoiceNumber = &number
	}
	if m := invoiceDatePattern.FindStringSubmatch(first); m != nil {
		if date, err := time.Parse("1/2/2006", m[1]); err == nil {
			doc.InvoiceDate = &date
		}
	}

	return doc
}

// sanitizeFilename removes unsafe characters from filenames
func sanitizeFilename(name string) string {
	// Replace path separators and other dangerous characters
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(name)
}
