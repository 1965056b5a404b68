package core

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/teddyhq/expense-assistant/internal/expense"
)

// Intent labels reported in the used-context summary.
const (
	IntentCategoryBreakdown = "category_breakdown"
	IntentPeriodTotal       = "period_total"
	IntentTransactionLookup = "transaction_lookup"
	IntentGeneral           = "general"
)

// ContextBundle is the financial context selected for one prompt. Summary
// lines carry more information per character than raw records, so truncation
// drops record lines first.
type ContextBundle struct {
	Intent       string
	SummaryLines []string
	RecordLines  []string
}

// Render produces the bundle as structured prompt text.
func (b ContextBundle) Render() string {
	var sb strings.Builder
	sb.WriteString("=== EXPENSE CONTEXT ===\n")
	for _, line := range b.SummaryLines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	if len(b.RecordLines) > 0 {
		sb.WriteString("Transactions:\n")
		for _, line := range b.RecordLines {
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Describe returns a short observability string for the ChatResult.
func (b ContextBundle) Describe() string {
	return fmt.Sprintf("intent=%s summaries=%d records=%d", b.Intent, len(b.SummaryLines), len(b.RecordLines))
}

// truncate drops items until the rendered bundle fits the character budget.
// Record lines go first, from the end; summary lines only if records alone
// were not enough. The section header is never dropped, so the effective
// floor is the header length; callers pass budgets far above it.
func (b ContextBundle) truncate(budget int) ContextBundle {
	for len(b.Render()) > budget && len(b.RecordLines) > 0 {
		b.RecordLines = b.RecordLines[:len(b.RecordLines)-1]
	}
	for len(b.Render()) > budget && len(b.SummaryLines) > 0 {
		b.SummaryLines = b.SummaryLines[:len(b.SummaryLines)-1]
	}
	return b
}

// Selector classifies a query against coarse intents and picks matching
// index data. Rules are evaluated in priority order; the first predicate
// that matches wins, with a documented default fallback.
type Selector struct {
	recentCount int
	rules       []selectorRule
}

type selectorRule struct {
	intent string
	match  func(query string, idx *expense.Index) bool
	apply  func(query string, idx *expense.Index) ContextBundle
}

func NewSelector(recentCount int) *Selector {
	s := &Selector{recentCount: recentCount}
	s.rules = []selectorRule{
		{IntentCategoryBreakdown, s.matchesCategory, s.categoryBundle},
		{IntentPeriodTotal, s.matchesPeriod, s.periodBundle},
		{IntentTransactionLookup, s.matchesLookup, s.lookupBundle},
	}
	return s
}

// Select is a pure function of (query, index, budget): identical inputs
// always produce an identical bundle. The winning rule stamps the bundle's
// intent, so the rule table is the single source of truth for labels.
func (s *Selector) Select(query string, idx *expense.Index, budget int) ContextBundle {
	for _, rule := range s.rules {
		if rule.match(query, idx) {
			b := rule.apply(query, idx)
			b.Intent = rule.intent
			return b.truncate(budget)
		}
	}
	b := s.fallbackBundle(idx)
	b.Intent = IntentGeneral
	return b.truncate(budget)
}

var monthNames = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

var (
	currencyPattern = regexp.MustCompile(`(?i)[$€£]\s*\d|\d+[.,]\d{2}\b`)
	lookupWords     = []string{"transaction", "purchase", "paid", "receipt", "merchant", "bought", "buy"}
)

func (s *Selector) matchesCategory(query string, idx *expense.Index) bool {
	return len(s.categoriesIn(query, idx)) > 0
}

// categoriesIn returns the index categories mentioned in the query, in the
// index's sorted category order.
func (s *Selector) categoriesIn(query string, idx *expense.Index) []string {
	q := strings.ToLower(query)
	var out []string
	for _, cat := range idx.Categories() {
		if strings.Contains(q, strings.ToLower(cat)) {
			out = append(out, cat)
		}
	}
	return out
}

func (s *Selector) categoryBundle(query string, idx *expense.Index) ContextBundle {
	b := ContextBundle{}
	summary := idx.Summary()
	b.SummaryLines = append(b.SummaryLines,
		fmt.Sprintf("Overall total spend: %s across %d transactions", summary.Total.StringFixed(2), summary.RecordCount))

	for _, cat := range s.categoriesIn(query, idx) {
		ct, ok := idx.CategoryTotal(cat)
		if !ok {
			continue
		}
		b.SummaryLines = append(b.SummaryLines,
			fmt.Sprintf("%s total: %s across %d transactions", ct.Category, ct.Total.StringFixed(2), ct.Count))
		for _, rec := range idx.Query(expense.Filter{Category: cat}) {
			b.RecordLines = append(b.RecordLines, recordLine(rec))
		}
	}
	return b
}

func (s *Selector) matchesPeriod(query string, idx *expense.Index) bool {
	return s.monthIn(query, idx) != ""
}

// monthIn maps a month name in the query to the latest matching YYYY-MM
// period present in the index. Empty when nothing matches.
func (s *Selector) monthIn(query string, idx *expense.Index) string {
	q := strings.ToLower(query)
	var named []time.Month
	for name, m := range monthNames {
		if strings.Contains(q, name) {
			named = append(named, m)
		}
	}
	if len(named) == 0 {
		return ""
	}
	sort.Slice(named, func(i, j int) bool { return named[i] < named[j] })

	best := ""
	for _, rec := range idx.Query(expense.Filter{}) {
		for _, m := range named {
			if rec.Date.Month() == m && rec.Month() > best {
				best = rec.Month()
			}
		}
	}
	return best
}

func (s *Selector) periodBundle(query string, idx *expense.Index) ContextBundle {
	b := ContextBundle{}
	month := s.monthIn(query, idx)
	total, count := idx.MonthTotal(month)
	b.SummaryLines = append(b.SummaryLines,
		fmt.Sprintf("Spend in %s: %s across %d transactions", month, total.StringFixed(2), count))
	for _, rec := range idx.Query(expense.Filter{Month: month}) {
		b.RecordLines = append(b.RecordLines, recordLine(rec))
	}
	return b
}

func (s *Selector) matchesLookup(query string, idx *expense.Index) bool {
	if currencyPattern.MatchString(query) {
		return true
	}
	q := strings.ToLower(query)
	for _, w := range lookupWords {
		if strings.Contains(q, w) {
			return true
		}
	}
	return false
}

// lookupBundle scores records by keyword overlap with the query, the way a
// single-transaction question gets answered.
func (s *Selector) lookupBundle(query string, idx *expense.Index) ContextBundle {
	b := ContextBundle{}

	words := strings.Fields(strings.ToLower(query))
	records := idx.Query(expense.Filter{})
	type scored struct {
		pos   int
		score int
	}
	var hits []scored
	for i, rec := range records {
		haystack := strings.ToLower(rec.Description + " " + rec.Merchant + " " + rec.Category + " " + rec.Amount.StringFixed(2))
		score := 0
		for _, w := range words {
			if len(w) < 3 {
				continue
			}
			score += strings.Count(haystack, w)
		}
		if score > 0 {
			hits = append(hits, scored{pos: i, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	if len(hits) > s.recentCount {
		hits = hits[:s.recentCount]
	}
	b.SummaryLines = append(b.SummaryLines,
		fmt.Sprintf("Transactions most relevant to the question (%d matches):", len(hits)))
	for _, h := range hits {
		b.RecordLines = append(b.RecordLines, recordLine(records[h.pos]))
	}
	return b
}

// fallbackBundle is the documented default: overall summary plus the most
// recent records.
func (s *Selector) fallbackBundle(idx *expense.Index) ContextBundle {
	b := ContextBundle{}
	for _, line := range strings.Split(strings.TrimRight(idx.Summary().Render(), "\n"), "\n") {
		b.SummaryLines = append(b.SummaryLines, line)
	}
	for _, rec := range idx.Recent(s.recentCount) {
		b.RecordLines = append(b.RecordLines, recordLine(rec))
	}
	return b
}

func recordLine(rec expense.Record) string {
	line := fmt.Sprintf("- %s %s %s", rec.Date.Format("2006-01-02"), rec.Category, rec.Amount.StringFixed(2))
	if rec.Description != "" {
		line += " - " + rec.Description
	}
	if rec.Merchant != "" {
		line += " (" + rec.Merchant + ")"
	}
	return line
}
