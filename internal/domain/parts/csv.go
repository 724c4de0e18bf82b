package parts

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/Nuosis/invoice-line-cost-detection-sub000/internal/domain/invoice"
	"github.com/Nuosis/invoice-line-cost-detection-sub000/pkg/money"
)

type csvPart struct {
	PartNumber      string `csv:"part_number"`
	AuthorizedPrice string `csv:"authorized_price"`
	Description     string `csv:"description"`
	Category        string `csv:"category"`
	IsActive        string `csv:"is_active"`
}

// LoadCSV reads a parts list into a MemoryCatalog. Only part_number and
// authorized_price are required; a missing is_active column means active.
func LoadCSV(r io.Reader) (*MemoryCatalog, error) {
	var rows []*csvPart
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("read parts csv: %w", err)
	}

	catalog := NewMemoryCatalog()
	for i, row := range rows {
		p, err := row.part()
		if err != nil {
			return nil, fmt.Errorf("parts csv row %d: %w", i+2, err)
		}
		catalog.Put(p)
	}
	return catalog, nil
}

func (row *csvPart) part() (invoice.Part, error) {
	number := strings.ToUpper(strings.TrimSpace(row.PartNumber))
	if number == "" {
		return invoice.Part{}, fmt.Errorf("part_number is required")
	}

	price, err := money.ParsePrice(row.AuthorizedPrice)
	if err != nil {
		return invoice.Part{}, fmt.Errorf("part %s: authorized_price: %w", number, err)
	}
	if price.IsNegative() {
		return invoice.Part{}, fmt.Errorf("part %s: authorized_price must not be negative", number)
	}

	active := true
	if s := strings.TrimSpace(row.IsActive); s != "" {
		if active, err = strconv.ParseBool(s); err != nil {
			return invoice.Part{}, fmt.Errorf("part %s: is_active: %w", number, err)
		}
	}

	return invoice.Part{
		PartNumber:      number,
		AuthorizedPrice: price,
		Description:     optional(row.Description),
		Category:        optional(row.Category),
		IsActive:        active,
	}, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
