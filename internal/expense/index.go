package expense

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Index is the queryable in-memory view over one fetch cycle of records.
// It is built once and never mutated afterwards; refreshes build a whole
// new Index and swap the reference, so readers always see a consistent
// record set together with its aggregates.
type Index struct {
	records    []Record
	byCategory map[string][]int // lowercased category -> record positions
	byMonth    map[string][]int // YYYY-MM -> record positions
	categories []string         // display names, sorted
	summary    Summary
}

// Filter narrows a Query. Zero value matches everything. Category matching
// is case-insensitive.
type Filter struct {
	Category string
	Month    string // YYYY-MM
}

// Build constructs an Index from the fetched records. It is deterministic:
// the same input always yields identical groupings and aggregates, and the
// original record order is preserved.
func Build(records []Record) *Index {
	idx := &Index{
		records:    append([]Record(nil), records...),
		byCategory: make(map[string][]int),
		byMonth:    make(map[string][]int),
	}

	displayNames := make(map[string]string)
	total := decimal.Zero
	catTotals := make(map[string]decimal.Decimal)

	for i, r := range idx.records {
		key := strings.ToLower(r.Category)
		idx.byCategory[key] = append(idx.byCategory[key], i)
		idx.byMonth[r.Month()] = append(idx.byMonth[r.Month()], i)
		if _, seen := displayNames[key]; !seen {
			displayNames[key] = r.Category
		}

		total = total.Add(r.Amount)
		catTotals[key] = catTotals[key].Add(r.Amount)

		if idx.summary.FirstDate.IsZero() || r.Date.Before(idx.summary.FirstDate) {
			idx.summary.FirstDate = r.Date
		}
		if r.Date.After(idx.summary.LastDate) {
			idx.summary.LastDate = r.Date
		}
	}

	byCategory := make([]CategoryTotal, 0, len(catTotals))
	for key, t := range catTotals {
		byCategory = append(byCategory, CategoryTotal{
			Category: displayNames[key],
			Total:    t,
			Count:    len(idx.byCategory[key]),
		})
	}
	// Highest spend first; name breaks ties so builds are reproducible.
	sort.Slice(byCategory, func(i, j int) bool {
		if !byCategory[i].Total.Equal(byCategory[j].Total) {
			return byCategory[i].Total.GreaterThan(byCategory[j].Total)
		}
		return byCategory[i].Category < byCategory[j].Category
	})

	idx.categories = make([]string, 0, len(displayNames))
	for _, name := range displayNames {
		idx.categories = append(idx.categories, name)
	}
	sort.Strings(idx.categories)

	idx.summary.Total = total
	idx.summary.RecordCount = len(idx.records)
	idx.summary.ByCategory = byCategory
	idx.summary.MonthCount = len(idx.byMonth)

	return idx
}

// Summary returns the aggregates computed at build time.
func (idx *Index) Summary() Summary {
	return idx.summary
}

// Categories returns the distinct category names, sorted.
func (idx *Index) Categories() []string {
	return idx.categories
}

// Query returns matching records in original fetch order.
func (idx *Index) Query(f Filter) []Record {
	positions := idx.positionsFor(f)
	out := make([]Record, 0, len(positions))
	for _, p := range positions {
		out = append(out, idx.records[p])
	}
	return out
}

func (idx *Index) positionsFor(f Filter) []int {
	all := func() []int {
		out := make([]int, len(idx.records))
		for i := range idx.records {
			out[i] = i
		}
		return out
	}

	var candidates []int
	switch {
	case f.Category != "" && f.Month != "":
		byCat := idx.byCategory[strings.ToLower(f.Category)]
		monthSet := make(map[int]bool, len(idx.byMonth[f.Month]))
		for _, p := range idx.byMonth[f.Month] {
			monthSet[p] = true
		}
		for _, p := range byCat {
			if monthSet[p] {
				candidates = append(candidates, p)
			}
		}
	case f.Category != "":
		candidates = idx.byCategory[strings.ToLower(f.Category)]
	case f.Month != "":
		candidates = idx.byMonth[f.Month]
	default:
		candidates = all()
	}
	return candidates
}

// CategoryTotal returns the aggregate for a category, matched
// case-insensitively. The second return is false if the category is unknown.
func (idx *Index) CategoryTotal(category string) (CategoryTotal, bool) {
	key := strings.ToLower(strings.TrimSpace(category))
	for _, ct := range idx.summary.ByCategory {
		if strings.ToLower(ct.Category) == key {
			return ct, true
		}
	}
	return CategoryTotal{}, false
}

// MonthTotal returns the total spend for a YYYY-MM period and the number of
// records in it.
func (idx *Index) MonthTotal(month string) (decimal.Decimal, int) {
	total := decimal.Zero
	positions := idx.byMonth[month]
	for _, p := range positions {
		total = total.Add(idx.records[p].Amount)
	}
	return total, len(positions)
}

// Recent returns up to n records with the latest dates, newest first.
// Ordering is stable with respect to fetch order for equal dates.
func (idx *Index) Recent(n int) []Record {
	positions := make([]int, len(idx.records))
	for i := range idx.records {
		positions[i] = i
	}
	sort.SliceStable(positions, func(i, j int) bool {
		return idx.records[positions[i]].Date.After(idx.records[positions[j]].Date)
	})
	if n > len(positions) {
		n = len(positions)
	}
	out := make([]Record, 0, n)
	for _, p := range positions[:n] {
		out = append(out, idx.records[p])
	}
	return out
}

// Len returns the number of records in the index.
func (idx *Index) Len() int {
	return len(idx.records)
}
