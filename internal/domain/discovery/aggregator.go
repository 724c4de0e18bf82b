package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Nuosis/invoice-line-cost-detection-sub000/internal/domain/invoice"
)

// LogSink persists discovery entries. Append must be atomic per entry.
type LogSink interface {
	Append(ctx context.Context, entry Entry) error
}

// Aggregator records unknown parts and summarizes them per session.
// It is safe for concurrent use; appends to the sink are serialized.
type Aggregator struct {
	mu        sync.Mutex
	sink      LogSink
	suggester *Suggester
	logger    *slog.Logger
	now       func() time.Time

	sessions map[string][]Entry
	index    map[occurrenceKey]int
}

// NewAggregator creates an aggregator writing to sink.
func NewAggregator(sink LogSink, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		sink:     sink,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string][]Entry),
		index:    make(map[occurrenceKey]int),
	}
}

// WithSuggester annotates new discoveries with similar known part numbers.
func (a *Aggregator) WithSuggester(s *Suggester) *Aggregator {
	a.suggester = s
	return a
}

// WithClock overrides the discovery timestamp source.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// Record logs an item whose part was not found. Recording the same line of
// the same invoice for the same part twice in a session returns the first
// entry without appending again. A sink failure is returned as a persistence
// error and the occurrence is not kept.
func (a *Aggregator) Record(
	ctx context.Context,
	item invoice.LineItem,
	sessionID string,
	invoiceNumber *string,
	invoiceDate *time.Time,
) (Entry, error) {
	if sessionID == "" {
		return Entry{}, errors.New("record discovery: session id is required")
	}
	if item.ItemCode == "" {
		return Entry{}, errors.New("record discovery: item has no part number")
	}

	entry := Entry{
		PartNumber:          item.ItemCode,
		InvoiceNumber:       invoiceNumber,
		InvoiceDate:         invoiceDate,
		ActionTaken:         ActionDiscovered,
		ProcessingSessionID: sessionID,
		LineNumber:          item.LineNumber,
	}
	if item.Valid() {
		price := item.Rate
		entry.DiscoveredPrice = &price
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	key := keyOf(entry)
	if i, ok := a.index[key]; ok {
		return a.sessions[sessionID][i], nil
	}

	entry.ID = uuid.NewString()
	entry.DiscoveryDate = a.now().UTC()
	entry.Notes = a.notesFor(item)

	if err := a.append(ctx, entry); err != nil {
		return Entry{}, err
	}
	a.index[key] = len(a.sessions[sessionID]) - 1

	a.logger.Debug("part discovered",
		slog.String("session_id", sessionID),
		slog.String("part_number", entry.PartNumber),
		slog.Int("line", int(entry.LineNumber)),
	)

	return entry, nil
}

// RecordDecision appends the outcome of a human review for a part. Earlier
// entries are never changed; the decision copies invoice and price details
// from the part's most recent discovery in the session.
func (a *Aggregator) RecordDecision(
	ctx context.Context,
	sessionID, partNumber string,
	action Action,
	decision string,
	authorizedPrice *decimal.Decimal,
	notes *string,
) (Entry, error) {
	if action == ActionDiscovered {
		return Entry{}, fmt.Errorf("record decision for %s: use Record for discoveries", partNumber)
	}
	if _, err := ParseAction(string(action)); err != nil {
		return Entry{}, fmt.Errorf("record decision for %s: %w", partNumber, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	entry := Entry{
		ID:                  uuid.NewString(),
		PartNumber:          partNumber,
		AuthorizedPrice:     authorizedPrice,
		ActionTaken:         action,
		DiscoveryDate:       a.now().UTC(),
		ProcessingSessionID: sessionID,
		Notes:               notes,
	}
	if decision != "" {
		entry.UserDecision = &decision
	}

	entries := a.sessions[sessionID]
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].PartNumber == partNumber && entries[i].ActionTaken == ActionDiscovered {
			entry.InvoiceNumber = entries[i].InvoiceNumber
			entry.InvoiceDate = entries[i].InvoiceDate
			entry.DiscoveredPrice = entries[i].DiscoveredPrice
			break
		}
	}

	if err := a.append(ctx, entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// append writes to the sink and then to the session log. Caller holds a.mu.
func (a *Aggregator) append(ctx context.Context, entry Entry) error {
	if a.sink != nil {
		if err := a.sink.Append(ctx, entry); err != nil {
			a.logger.Error("discovery log append failed",
				slog.String("session_id", entry.ProcessingSessionID),
				slog.String("part_number", entry.PartNumber),
				slog.Any("error", err),
			)
			return invoice.PersistenceError("append discovery entry "+entry.PartNumber, err)
		}
	}
	a.sessions[entry.ProcessingSessionID] = append(a.sessions[entry.ProcessingSessionID], entry)
	return nil
}

func (a *Aggregator) notesFor(item invoice.LineItem) *string {
	var parts []string
	if item.Description != "" {
		parts = append(parts, item.Description)
	}
	if a.suggester != nil {
		if similar := a.suggester.Suggest(item.ItemCode); len(similar) > 0 {
			parts = append(parts, "similar: "+strings.Join(similar, ", "))
		}
	}
	if len(parts) == 0 {
		return nil
	}
	notes := strings.Join(parts, "; ")
	return &notes
}

// Entries returns a copy of the session's log in append order.
func (a *Aggregator) Entries(sessionID string) []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()

	entries := a.sessions[sessionID]
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// Summarize groups the session's discovered entries by part number, sorted by
// part number. Entries without a price count as occurrences but are left out
// of the price statistics.
func (a *Aggregator) Summarize(sessionID string) []PartSummary {
	return Summarize(a.Entries(sessionID))
}

// Summarize aggregates discovered entries by part number.
func Summarize(entries []Entry) []PartSummary {
	type acc struct {
		summary  PartSummary
		sum      decimal.Decimal
		priced   int
		invoices map[string]struct{}
	}

	groups := make(map[string]*acc)
	for _, e := range entries {
		if e.ActionTaken != ActionDiscovered {
			continue
		}

		g, ok := groups[e.PartNumber]
		if !ok {
			g = &acc{
				summary:  PartSummary{PartNumber: e.PartNumber},
				invoices: make(map[string]struct{}),
			}
			groups[e.PartNumber] = g
		}

		g.summary.Occurrences++
		if e.InvoiceNumber != nil {
			g.invoices[*e.InvoiceNumber] = struct{}{}
		}
		if e.DiscoveredPrice == nil {
			continue
		}

		price := *e.DiscoveredPrice
		g.sum = g.sum.Add(price)
		g.priced++
		if g.summary.MinPrice == nil || price.LessThan(*g.summary.MinPrice) {
			p := price
			g.summary.MinPrice = &p
		}
		if g.summary.MaxPrice == nil || price.GreaterThan(*g.summary.MaxPrice) {
			p := price
			g.summary.MaxPrice = &p
		}
	}

	summaries := make([]PartSummary, 0, len(groups))
	for _, g := range groups {
		if g.priced > 0 {
			avg := g.sum.Div(decimal.NewFromInt(int64(g.priced)))
			g.summary.AvgPrice = &avg
		}
		g.summary.Invoices = make([]string, 0, len(g.invoices))
		for inv := range g.invoices {
			g.summary.Invoices = append(g.summary.Invoices, inv)
		}
		sort.Strings(g.summary.Invoices)
		summaries = append(summaries, g.summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].PartNumber < summaries[j].PartNumber
	})

	return summaries
}
