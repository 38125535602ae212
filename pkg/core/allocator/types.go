package allocator

import (
	"github.com/jakechorley/category-allocator/pkg/core/model"
)

// Policy selects an allocation algorithm
type Policy string

const (
	// PolicyMOH gives units one at a time to the product with the lowest months of inventory
	PolicyMOH Policy = "moh"
	// PolicyEven splits the total evenly with a floor of one unit per product
	PolicyEven Policy = "even"
)

func (p Policy) IsValid() bool {
	return p == PolicyMOH || p == PolicyEven
}

// Rounding controls how a fractional requirement total becomes whole units
type Rounding string

const (
	RoundingTruncate Rounding = "truncate"
	RoundingRound    Rounding = "round"
)

// Fields names the columns the allocator reads and writes
type Fields struct {
	// RequiredQuantity is summed over category rows for the MOH policy
	RequiredQuantity string
	// EvenSplitQuantity is summed over category rows for the even policy
	EvenSplitQuantity string
	TotalStock        string
	SalesRate         string
	// AllocatedQuantity receives the result in output rows
	AllocatedQuantity string
}

// Options configures a row-level allocation
type Options struct {
	Fields   Fields
	Rounding Rounding
}

// ProductRow is one product's allocation-relevant state
type ProductRow struct {
	Row               model.Row `json:"row"`
	TotalStock        float64   `json:"totalStock"`
	SalesRate         float64   `json:"salesRate"`
	AllocatedQuantity int       `json:"allocatedQuantity"`
}

// Result is a fully materialised allocation
type Result struct {
	Policy         Policy       `json:"policy"`
	Products       []ProductRow `json:"products"`
	TotalRequested int          `json:"totalRequested"`
}

// AllocatedTotal sums the allocated quantity over all products
func (r *Result) AllocatedTotal() int {
	total := 0
	for _, p := range r.Products {
		total += p.AllocatedQuantity
	}
	return total
}

// Stats summarises a result for display
type Stats struct {
	TotalRequested int
	ProductCount   int
	AllocatedTotal int
	Mean           float64
	Min            int
	Max            int
}

func (r *Result) Stats() Stats {
	stats := Stats{
		TotalRequested: r.TotalRequested,
		ProductCount:   len(r.Products),
		AllocatedTotal: r.AllocatedTotal(),
	}
	if len(r.Products) == 0 {
		return stats
	}

	stats.Mean = float64(stats.AllocatedTotal) / float64(len(r.Products))
	stats.Min = r.Products[0].AllocatedQuantity
	stats.Max = r.Products[0].AllocatedQuantity
	for _, p := range r.Products[1:] {
		stats.Min = min(stats.Min, p.AllocatedQuantity)
		stats.Max = max(stats.Max, p.AllocatedQuantity)
	}
	return stats
}

// OutputRows renders the products as record store rows: each source row with
// the allocated quantity set. Under the MOH policy the stock field carries the
// stock after allocation, since allocated units count as arrived.
func (r *Result) OutputRows(fields Fields) []model.Row {
	rows := make([]model.Row, len(r.Products))
	for i, p := range r.Products {
		row := p.Row.Clone()
		row[fields.AllocatedQuantity] = p.AllocatedQuantity
		if r.Policy == PolicyMOH {
			row[fields.TotalStock] = p.TotalStock
		}
		rows[i] = row
	}
	return rows
}
