package discovery

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// PartCatalog lists known part numbers.
type PartCatalog interface {
	ListPartNumbers(ctx context.Context) ([]string, error)
}

// Suggester finds known part numbers that look like an unknown one, which
// usually means a color suffix or a typo in the billed code.
type Suggester struct {
	known []string
	limit int
}

// NewSuggester creates a suggester over a fixed list of part numbers.
// limit caps the number of suggestions (default 3).
func NewSuggester(partNumbers []string, limit int) *Suggester {
	if limit <= 0 {
		limit = 3
	}
	known := make([]string, 0, len(partNumbers))
	for _, p := range partNumbers {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			known = append(known, p)
		}
	}
	return &Suggester{known: known, limit: limit}
}

// LoadSuggester builds a suggester from the catalog's current part numbers.
func LoadSuggester(ctx context.Context, catalog PartCatalog, limit int) (*Suggester, error) {
	parts, err := catalog.ListPartNumbers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load part numbers: %w", err)
	}
	return NewSuggester(parts, limit), nil
}

// Suggest returns the closest known part numbers, nearest first.
func (s *Suggester) Suggest(partNumber string) []string {
	code := strings.ToUpper(strings.TrimSpace(partNumber))
	if code == "" || len(s.known) == 0 {
		return nil
	}

	type candidate struct {
		part     string
		distance int
	}

	maxDistance := len(code) / 4
	if maxDistance < 1 {
		maxDistance = 1
	}

	var candidates []candidate
	for _, k := range s.known {
		if k == code {
			continue
		}
		d := fuzzy.LevenshteinDistance(code, k)
		if d <= maxDistance || fuzzy.MatchFold(code, k) || fuzzy.MatchFold(k, code) {
			candidates = append(candidates, candidate{part: k, distance: d})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].part < candidates[j].part
	})

	if len(candidates) > s.limit {
		candidates = candidates[:s.limit]
	}

	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.part
	}
	return out
}
