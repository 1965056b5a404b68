package expense

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Record is a single expense fetched from the data provider. Records are
// immutable once parsed; identity is the provider-assigned ID.
type Record struct {
	ID          string          `json:"id"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Merchant    string          `json:"merchant,omitempty"`
}

// Month returns the record's period key in YYYY-MM form.
func (r Record) Month() string {
	return r.Date.Format("2006-01")
}

type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

// Summary holds the aggregates precomputed at index build time.
type Summary struct {
	Total       decimal.Decimal `json:"total"`
	RecordCount int             `json:"record_count"`
	ByCategory  []CategoryTotal `json:"by_category"` // sorted by total, descending
	MonthCount  int             `json:"month_count"`
	FirstDate   time.Time       `json:"first_date,omitempty"`
	LastDate    time.Time       `json:"last_date,omitempty"`
}

// TopCategories returns up to n categories by total spend, highest first.
func (s Summary) TopCategories(n int) []CategoryTotal {
	if n > len(s.ByCategory) {
		n = len(s.ByCategory)
	}
	return s.ByCategory[:n]
}

// Render produces the human-readable summary used by the /data-summary
// endpoint and as prompt context.
func (s Summary) Render() string {
	var b strings.Builder
	b.WriteString("Available Expense Data:\n")
	fmt.Fprintf(&b, "- Records: %d\n", s.RecordCount)
	fmt.Fprintf(&b, "- Total spend: %s\n", s.Total.StringFixed(2))
	if !s.FirstDate.IsZero() {
		fmt.Fprintf(&b, "- Date range: %s to %s\n", s.FirstDate.Format("2006-01-02"), s.LastDate.Format("2006-01-02"))
	}
	for _, ct := range s.ByCategory {
		fmt.Fprintf(&b, "- %s: %s across %d transactions\n", ct.Category, ct.Total.StringFixed(2), ct.Count)
	}
	return b.String()
}
