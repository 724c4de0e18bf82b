package parts

import (
	"context"
	"sort"
	"sync"

	"github.com/Nuosis/invoice-line-cost-detection-sub000/internal/domain/invoice"
	"github.com/Nuosis/invoice-line-cost-detection-sub000/internal/domain/invoice/validation"
)

// Lookup is the parts source the validation engine reads.
type Lookup = validation.PartLookup

// MemoryCatalog is an in-memory parts source for dry runs and tests.
type MemoryCatalog struct {
	mu    sync.RWMutex
	parts map[string]invoice.Part
}

// NewMemoryCatalog creates a catalog holding parts.
func NewMemoryCatalog(parts ...invoice.Part) *MemoryCatalog {
	c := &MemoryCatalog{parts: make(map[string]invoice.Part, len(parts))}
	for _, p := range parts {
		c.parts[p.PartNumber] = p
	}
	return c
}

// Put adds or replaces a part.
func (c *MemoryCatalog) Put(p invoice.Part) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.parts[p.PartNumber] = p
}

func (c *MemoryCatalog) LookupPart(_ context.Context, partNumber string) (*invoice.Part, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.parts[partNumber]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (c *MemoryCatalog) ListPartNumbers(_ context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	numbers := make([]string, 0, len(c.parts))
	for n, p := range c.parts {
		if p.IsActive {
			numbers = append(numbers, n)
		}
	}
	sort.Strings(numbers)
	return numbers, nil
}

// CachingLookup memoizes another lookup for the length of a run. Misses are
// cached too; errors are not.
type CachingLookup struct {
	inner Lookup

	mu    sync.RWMutex
	cache map[string]*invoice.Part
}

// NewCachingLookup wraps inner.
func NewCachingLookup(inner Lookup) *CachingLookup {
	return &CachingLookup{inner: inner, cache: make(map[string]*invoice.Part)}
}

func (c *CachingLookup) LookupPart(ctx context.Context, partNumber string) (*invoice.Part, error) {
	c.mu.RLock()
	p, ok := c.cache[partNumber]
	c.mu.RUnlock()
	if ok {
		return p, nil
	}

	p, err := c.inner.LookupPart(ctx, partNumber)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[partNumber] = p
	c.mu.Unlock()
	return p, nil
}
