package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nuosis/invoice-line-cost-detection-sub000/internal/domain/invoice"
)

// failingSink rejects every append.
type failingSink struct {
	err error
}

func (f failingSink) Append(context.Context, Entry) error { return f.err }

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func strPtr(s string) *string {
	return &s
}

func unknownItem(code, rate string, line uint) invoice.LineItem {
	item := invoice.NewLineItem(code, 1, dec(rate), dec(rate))
	item.LineNumber = line
	item.Description = "SHIRT WORK LS TWILL"
	return item
}

func fixedClock() time.Time {
	return time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)
}

func TestAggregator_Record(t *testing.T) {
	sink := NewMemorySink()
	agg := NewAggregator(sink, nil).WithClock(fixedClock)
	ctx := context.Background()
	invoiceDate := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	entry, err := agg.Record(ctx, unknownItem("ZZ0001", "0.300", 12), "session-1", strPtr("4471902"), &invoiceDate)

	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "ZZ0001", entry.PartNumber)
	assert.Equal(t, ActionDiscovered, entry.ActionTaken)
	assert.Equal(t, "session-1", entry.ProcessingSessionID)
	assert.Equal(t, fixedClock(), entry.DiscoveryDate)
	require.NotNil(t, entry.DiscoveredPrice)
	assert.True(t, entry.DiscoveredPrice.Equal(dec("0.30")))
	assert.Nil(t, entry.AuthorizedPrice)
	require.NotNil(t, entry.Notes)
	assert.Equal(t, "SHIRT WORK LS TWILL", *entry.Notes)
	assert.Equal(t, []Entry{entry}, sink.Entries())
}

func TestAggregator_RecordIsIdempotentPerLine(t *testing.T) {
	sink := NewMemorySink()
	agg := NewAggregator(sink, nil)
	ctx := context.Background()
	inv := strPtr("4471902")

	first, err := agg.Record(ctx, unknownItem("ZZ0001", "0.300", 12), "s", inv, nil)
	require.NoError(t, err)
	again, err := agg.Record(ctx, unknownItem("ZZ0001", "0.300", 12), "s", strPtr("4471902"), nil)
	require.NoError(t, err)

	assert.Equal(t, first.ID, again.ID)
	assert.Len(t, sink.Entries(), 1)

	// a second line of the same invoice is a separate occurrence
	_, err = agg.Record(ctx, unknownItem("ZZ0001", "0.300", 40), "s", inv, nil)
	require.NoError(t, err)
	// the same line in another session is separate too
	_, err = agg.Record(ctx, unknownItem("ZZ0001", "0.300", 12), "other", inv, nil)
	require.NoError(t, err)

	assert.Len(t, sink.Entries(), 3)
	assert.Len(t, agg.Entries("s"), 2)
	assert.Equal(t, 2, agg.Summarize("s")[0].Occurrences)
}

func TestAggregator_Summarize(t *testing.T) {
	agg := NewAggregator(NewMemorySink(), nil)
	ctx := context.Background()

	for i, rate := range []string{"0.30", "0.35", "0.40"} {
		_, err := agg.Record(ctx, unknownItem("X", rate, uint(i+1)), "s", strPtr(fmt.Sprintf("INV-%d", i%2)), nil)
		require.NoError(t, err)
	}
	_, err := agg.Record(ctx, unknownItem("A", "2.000", 9), "s", nil, nil)
	require.NoError(t, err)

	summaries := agg.Summarize("s")

	require.Len(t, summaries, 2)
	assert.Equal(t, "A", summaries[0].PartNumber)
	assert.Empty(t, summaries[0].Invoices)

	x := summaries[1]
	assert.Equal(t, "X", x.PartNumber)
	assert.Equal(t, 3, x.Occurrences)
	assert.True(t, x.MinPrice.Equal(dec("0.30")))
	assert.True(t, x.AvgPrice.Equal(dec("0.35")))
	assert.True(t, x.MaxPrice.Equal(dec("0.40")))
	assert.Equal(t, []string{"INV-0", "INV-1"}, x.Invoices)
}

func TestSummarize_UnpricedOccurrencesCount(t *testing.T) {
	entries := []Entry{
		{PartNumber: "X", ActionTaken: ActionDiscovered, DiscoveredPrice: nil},
		{PartNumber: "X", ActionTaken: ActionDiscovered, DiscoveredPrice: ptrDec("1.00")},
		{PartNumber: "X", ActionTaken: ActionDiscovered, DiscoveredPrice: ptrDec("3.00")},
		{PartNumber: "X", ActionTaken: ActionSkipped, DiscoveredPrice: ptrDec("99.00")},
		{PartNumber: "Y", ActionTaken: ActionDiscovered},
	}

	summaries := Summarize(entries)

	require.Len(t, summaries, 2)
	x := summaries[0]
	assert.Equal(t, 3, x.Occurrences)
	assert.True(t, x.MinPrice.Equal(dec("1")))
	assert.True(t, x.AvgPrice.Equal(dec("2")))
	assert.True(t, x.MaxPrice.Equal(dec("3")))

	y := summaries[1]
	assert.Equal(t, 1, y.Occurrences)
	assert.Nil(t, y.MinPrice)
	assert.Nil(t, y.AvgPrice)
	assert.Nil(t, y.MaxPrice)
}

func TestSummarize_MinAvgMaxOrdering(t *testing.T) {
	rates := []string{"0.101", "0.333", "7.250", "1.000", "0.999", "3.14", "0.200"}
	entries := make([]Entry, 0, len(rates))
	for _, r := range rates {
		entries = append(entries, Entry{PartNumber: "P", ActionTaken: ActionDiscovered, DiscoveredPrice: ptrDec(r)})
	}

	s := Summarize(entries)[0]
	assert.True(t, s.MinPrice.LessThanOrEqual(*s.AvgPrice))
	assert.True(t, s.AvgPrice.LessThanOrEqual(*s.MaxPrice))
}

func TestAggregator_SinkFailureIsPersistenceError(t *testing.T) {
	sinkErr := errors.New("disk full")
	agg := NewAggregator(failingSink{err: sinkErr}, nil)

	_, err := agg.Record(context.Background(), unknownItem("ZZ0001", "1.00", 1), "s", nil, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, invoice.ErrPersistence)
	assert.ErrorIs(t, err, sinkErr)
	assert.Empty(t, agg.Entries("s"))
}

func TestAggregator_RecordValidatesInput(t *testing.T) {
	agg := NewAggregator(nil, nil)
	ctx := context.Background()

	_, err := agg.Record(ctx, unknownItem("ZZ0001", "1.00", 1), "", nil, nil)
	assert.Error(t, err)

	_, err = agg.Record(ctx, invoice.LineItem{}, "s", nil, nil)
	assert.Error(t, err)
}

func TestAggregator_RecordDecision(t *testing.T) {
	sink := NewMemorySink()
	agg := NewAggregator(sink, nil)
	ctx := context.Background()

	discovered, err := agg.Record(ctx, unknownItem("ZZ0001", "0.45", 3), "s", strPtr("INV-9"), nil)
	require.NoError(t, err)

	price := dec("0.45")
	decision, err := agg.RecordDecision(ctx, "s", "ZZ0001", ActionAdded, "add to catalog", &price, nil)

	require.NoError(t, err)
	assert.NotEqual(t, discovered.ID, decision.ID)
	assert.Equal(t, ActionAdded, decision.ActionTaken)
	require.NotNil(t, decision.UserDecision)
	assert.Equal(t, "add to catalog", *decision.UserDecision)
	assert.Equal(t, discovered.InvoiceNumber, decision.InvoiceNumber)
	assert.True(t, decision.AuthorizedPrice.Equal(price))

	entries := agg.Entries("s")
	require.Len(t, entries, 2)
	assert.Equal(t, discovered, entries[0])
	assert.Equal(t, 1, agg.Summarize("s")[0].Occurrences)

	_, err = agg.RecordDecision(ctx, "s", "ZZ0001", ActionDiscovered, "", nil, nil)
	assert.Error(t, err)
	_, err = agg.RecordDecision(ctx, "s", "ZZ0001", Action("deleted"), "", nil, nil)
	assert.Error(t, err)
}

func TestAggregator_ConcurrentRecord(t *testing.T) {
	sink := NewMemorySink()
	agg := NewAggregator(sink, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for line := 1; line <= 50; line++ {
				// every worker records the same 50 lines; only one copy survives
				_, err := agg.Record(ctx, unknownItem("ZZ0001", "1.00", uint(line)), "s", strPtr("INV"), nil)
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	assert.Len(t, sink.Entries(), 50)
	assert.Equal(t, 50, agg.Summarize("s")[0].Occurrences)
}

func TestAggregator_WithSuggester(t *testing.T) {
	agg := NewAggregator(NewMemorySink(), nil).
		WithSuggester(NewSuggester([]string{"GP0171NAVY", "GP0171GREY", "MAT3X5"}, 2))

	entry, err := agg.Record(context.Background(), unknownItem("GP0171NVY", "0.30", 1), "s", nil, nil)

	require.NoError(t, err)
	require.NotNil(t, entry.Notes)
	assert.Equal(t, "SHIRT WORK LS TWILL; similar: GP0171NAVY", *entry.Notes)
}

func ptrDec(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}
