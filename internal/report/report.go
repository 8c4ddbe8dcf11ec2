// Package report holds the pure derivation functions behind the
// dashboard, stock monitor, and report pages. Everything here is
// stateless: callers fetch rows, derive, render, and re-derive from
// scratch after every change.
package report

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/adiwira/gudang/internal/model"
)

// Status classifies an item's stock level against its minimum threshold.
type Status string

const (
	StatusNormal   Status = "normal"
	StatusLow      Status = "low"
	StatusCritical Status = "critical"
)

// Classify maps a stock level to a status. At or below half the minimum
// is critical, at or below the minimum is low, anything above is normal.
func Classify(stock, min int) Status {
	switch {
	case float64(stock) <= float64(min)*0.5:
		return StatusCritical
	case stock <= min:
		return StatusLow
	default:
		return StatusNormal
	}
}

// FillPercent returns how full an item's stock is against its maximum,
// clamped to [0, 100]. A maximum of zero or less yields 0.
func FillPercent(stock, max int) float64 {
	if max <= 0 {
		return 0
	}
	p := float64(stock) / float64(max) * 100
	if p > 100 {
		return 100
	}
	if p < 0 {
		return 0
	}
	return p
}

// Movement is one transaction line flattened with its parent's date and
// type, the input row for the trend and top-N derivations.
type Movement struct {
	Date     string `json:"date"`
	Type     string `json:"type"`
	ItemName string `json:"item_name"`
	Quantity int    `json:"quantity"`
}

// TrendBucket is one calendar day's aggregated in/out totals.
type TrendBucket struct {
	Date  string `json:"date"`
	Label string `json:"label"`
	In    int    `json:"in"`
	Out   int    `json:"out"`
}

// DailyTrend buckets movements into a window of the given number of
// calendar days ending at now, oldest day first. Days without movements
// appear with zero totals.
func DailyTrend(now time.Time, days int, moves []Movement) []TrendBucket {
	if days <= 0 {
		return []TrendBucket{}
	}

	buckets := make([]TrendBucket, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		day := now.AddDate(0, 0, i-days+1)
		date := day.Format("2006-01-02")
		buckets[i] = TrendBucket{Date: date, Label: day.Format("2 Jan")}
		index[date] = i
	}

	for _, m := range moves {
		i, ok := index[m.Date]
		if !ok {
			continue
		}
		switch m.Type {
		case model.TransactionIn:
			buckets[i].In += m.Quantity
		case model.TransactionOut:
			buckets[i].Out += m.Quantity
		}
	}

	return buckets
}

// CategorySlice is one category's share of the overall stock.
type CategorySlice struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Value int    `json:"value"`
}

// UncategorizedName is the fallback bucket for items without a category.
const UncategorizedName = "Other"

// CategoryDistribution groups items by category name, counting items and
// summing stock per group. Untagged items land in the Other bucket.
// Groups are ordered by name so output is deterministic.
func CategoryDistribution(items []model.Item) []CategorySlice {
	byName := make(map[string]*CategorySlice)
	for _, item := range items {
		name := item.CategoryName
		if name == "" {
			name = UncategorizedName
		}
		slice, ok := byName[name]
		if !ok {
			slice = &CategorySlice{Name: name}
			byName[name] = slice
		}
		slice.Count++
		slice.Value += item.Stock
	}

	slices := make([]CategorySlice, 0, len(byName))
	for _, s := range byName {
		slices = append(slices, *s)
	}
	sort.Slice(slices, func(i, j int) bool { return slices[i].Name < slices[j].Name })
	return slices
}

// Percent returns part as a whole-number percentage of total, rounded to
// the nearest integer. A zero or negative total yields 0.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(float64(part)/float64(total)*100 + 0.5)
}

// ItemMovement accumulates per-item in/out totals.
type ItemMovement struct {
	Name string `json:"name"`
	In   int    `json:"in"`
	Out  int    `json:"out"`
}

// TopMovement ranks items by total movement (in + out) descending and
// returns the first n. Ties are broken by name ascending so the ranking
// is stable across runs.
func TopMovement(moves []Movement, n int) []ItemMovement {
	byName := make(map[string]*ItemMovement)
	for _, m := range moves {
		im, ok := byName[m.ItemName]
		if !ok {
			im = &ItemMovement{Name: m.ItemName}
			byName[m.ItemName] = im
		}
		switch m.Type {
		case model.TransactionIn:
			im.In += m.Quantity
		case model.TransactionOut:
			im.Out += m.Quantity
		}
	}

	ranked := make([]ItemMovement, 0, len(byName))
	for _, im := range byName {
		if im.In+im.Out > 0 {
			ranked = append(ranked, *im)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		ti, tj := ranked[i].In+ranked[i].Out, ranked[j].In+ranked[j].Out
		if ti != tj {
			return ti > tj
		}
		return ranked[i].Name < ranked[j].Name
	})

	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// StockSummary holds the stock page's headline counts.
type StockSummary struct {
	TotalItems int `json:"total_items"`
	Normal     int `json:"normal"`
	Low        int `json:"low"`
}

// Summarize counts items at or below their minimum threshold.
func Summarize(items []model.Item) StockSummary {
	s := StockSummary{TotalItems: len(items)}
	for _, item := range items {
		if item.Stock <= item.MinStock {
			s.Low++
		}
	}
	s.Normal = s.TotalItems - s.Low
	return s
}

// FormatMoney renders a rupiah amount with dotted thousands separators,
// e.g. "Rp 3.000.000". Fractions are dropped; prices here are whole.
func FormatMoney(amount decimal.Decimal) string {
	digits := amount.Round(0).BigInt().String()

	negative := strings.HasPrefix(digits, "-")
	digits = strings.TrimPrefix(digits, "-")

	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)

	out := "Rp " + strings.Join(groups, ".")
	if negative {
		out = "-" + out
	}
	return out
}
