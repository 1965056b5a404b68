package core

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/teddyhq/expense-assistant/internal/expense"
)

func rec(id string, y int, m time.Month, d int, amount, category, description string) expense.Record {
	return expense.Record{
		ID:          id,
		Date:        time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Amount:      decimal.RequireFromString(amount),
		Category:    category,
		Description: description,
	}
}

// groceryRecords is the canonical fixture: two Groceries totaling 45.50 and
// one Transport at 12.00.
func groceryRecords() []expense.Record {
	return []expense.Record{
		rec("e1", 2024, time.March, 2, "20.50", "Groceries", "weekly shop"),
		rec("e2", 2024, time.March, 5, "12.00", "Transport", "metro card"),
		rec("e3", 2024, time.April, 1, "25.00", "Groceries", "fruit and veg"),
	}
}

type stubFetcher struct {
	records []expense.Record
	err     error
	calls   int
}

func (f *stubFetcher) Fetch(ctx context.Context, userID string) ([]expense.Record, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

// blockingFetcher parks every Fetch until released, so tests can pile
// concurrent refreshes onto a single in-flight fetch.
type blockingFetcher struct {
	records []expense.Record
	started chan struct{} // closed when the first fetch begins
	release chan struct{}

	mu    sync.Mutex
	calls int
}

func newBlockingFetcher(records []expense.Record) *blockingFetcher {
	return &blockingFetcher{
		records: records,
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (f *blockingFetcher) Fetch(ctx context.Context, userID string) ([]expense.Record, error) {
	f.mu.Lock()
	f.calls++
	if f.calls == 1 {
		close(f.started)
	}
	f.mu.Unlock()
	<-f.release
	return f.records, nil
}

func (f *blockingFetcher) fetchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type stubCompleter struct {
	reply      func(prompt string) (string, error)
	calls      int
	lastPrompt string
}

func (c *stubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	c.calls++
	c.lastPrompt = prompt
	if c.reply == nil {
		return "stub answer", nil
	}
	return c.reply(prompt)
}

func testOptions() Options {
	return Options{
		UserID:            "user-1",
		HistoryLimit:      6,
		RecentRecords:     5,
		PromptMaxChars:    8000,
		RefreshInterval:   time.Hour,
		CompletionTimeout: time.Second,
	}
}
