package allocator

import (
	"container/heap"
	"fmt"
)

// mohCandidate is a heap entry for a product that can receive units
type mohCandidate struct {
	index     int
	moh       float64
	salesRate float64
}

// mohQueue orders candidates by MOH ascending, then sales rate descending,
// then input position
type mohQueue []*mohCandidate

func (q mohQueue) Len() int { return len(q) }

func (q mohQueue) Less(i, j int) bool {
	if q[i].moh != q[j].moh {
		return q[i].moh < q[j].moh
	}
	if q[i].salesRate != q[j].salesRate {
		return q[i].salesRate > q[j].salesRate
	}
	return q[i].index < q[j].index
}

func (q mohQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *mohQueue) Push(x any) {
	*q = append(*q, x.(*mohCandidate))
}

func (q *mohQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// MohGreedy allocates total units one at a time, each to the product with the
// lowest months of inventory (stock / sales rate). Ties go to the faster
// seller, then to the earlier product. An allocated unit counts as stock
// immediately, so the receiving product's MOH rises before the next pick.
//
// Products with a zero sales rate never receive units. The returned slice is
// a copy in input order; the argument is not modified.
func MohGreedy(total int, products []ProductRow) ([]ProductRow, error) {
	if total < 0 {
		return nil, &InvalidInputError{Reason: fmt.Sprintf("total to allocate is negative (%d)", total)}
	}

	allocated := make([]ProductRow, len(products))
	for i, p := range products {
		if p.SalesRate < 0 {
			return nil, &InvalidInputError{Reason: fmt.Sprintf("product %d has negative sales rate %g", i+1, p.SalesRate)}
		}
		allocated[i] = ProductRow{
			Row:        p.Row.Clone(),
			TotalStock: p.TotalStock,
			SalesRate:  p.SalesRate,
		}
	}

	if total == 0 {
		return allocated, nil
	}
	if len(allocated) == 0 {
		return nil, &InvalidInputError{Reason: fmt.Sprintf("no products to allocate %d units across", total)}
	}

	queue := make(mohQueue, 0, len(allocated))
	for i, p := range allocated {
		if p.SalesRate > 0 {
			queue = append(queue, &mohCandidate{
				index:     i,
				moh:       p.TotalStock / p.SalesRate,
				salesRate: p.SalesRate,
			})
		}
	}
	if len(queue) == 0 {
		return nil, &NoEligibleProductError{ProductCount: len(allocated), TotalRequested: total}
	}
	heap.Init(&queue)

	for unit := 0; unit < total; unit++ {
		top := queue[0]
		p := &allocated[top.index]
		p.AllocatedQuantity++
		p.TotalStock++
		top.moh = p.TotalStock / p.SalesRate
		heap.Fix(&queue, 0)
	}

	return allocated, nil
}
