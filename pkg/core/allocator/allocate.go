package allocator

import (
	"fmt"

	"github.com/jakechorley/category-allocator/pkg/core/model"
)

// Allocate runs the allocation policy over the requirement rows of one
// category and the candidate product rows. Neither input slice is modified
// or retained.
func Allocate(policy Policy, categoryRows, productRows []model.Row, opts Options) (*Result, error) {
	switch policy {
	case PolicyMOH:
		return AllocateByMOH(categoryRows, productRows, opts)
	case PolicyEven:
		return AllocateEvenly(categoryRows, productRows, opts)
	}
	return nil, &InvalidInputError{Reason: fmt.Sprintf("unknown allocation policy %q", policy)}
}

// AllocateByMOH sums the required quantity over the category rows and
// distributes it with MohGreedy. Category rows must carry the required
// quantity column; product rows must carry the stock and sales rate columns.
// A product row with no value in one of those columns reads it as zero.
func AllocateByMOH(categoryRows, productRows []model.Row, opts Options) (*Result, error) {
	fields := opts.Fields

	if err := checkColumns("category", categoryRows, fields.RequiredQuantity); err != nil {
		return nil, err
	}
	if err := checkColumns("product", productRows, fields.TotalStock, fields.SalesRate); err != nil {
		return nil, err
	}

	total, err := SumRequirements(categoryRows, fields.RequiredQuantity, opts.Rounding)
	if err != nil {
		return nil, err
	}

	products := make([]ProductRow, len(productRows))
	for i, row := range productRows {
		stock, _, err := row.Number(fields.TotalStock)
		if err != nil {
			return nil, &InvalidInputError{Reason: fmt.Sprintf("product row %d", i+1), Err: err}
		}
		salesRate, _, err := row.Number(fields.SalesRate)
		if err != nil {
			return nil, &InvalidInputError{Reason: fmt.Sprintf("product row %d", i+1), Err: err}
		}
		products[i] = ProductRow{Row: row, TotalStock: stock, SalesRate: salesRate}
	}

	allocated, err := MohGreedy(total, products)
	if err != nil {
		return nil, err
	}

	return &Result{
		Policy:         PolicyMOH,
		Products:       allocated,
		TotalRequested: total,
	}, nil
}

// AllocateEvenly sums the even-split quantity over the category rows (zero
// when the column is absent) and spreads it with EvenSplit. With no products
// or nothing to allocate every product gets zero and the total reads zero.
func AllocateEvenly(categoryRows, productRows []model.Row, opts Options) (*Result, error) {
	field := opts.Fields.EvenSplitQuantity

	total := 0
	if model.HasColumn(categoryRows, field) {
		var err error
		total, err = SumRequirements(categoryRows, field, opts.Rounding)
		if err != nil {
			return nil, err
		}
	}

	products := make([]ProductRow, len(productRows))
	for i, row := range productRows {
		products[i] = ProductRow{Row: row.Clone()}
	}

	if len(products) == 0 || total <= 0 {
		return &Result{Policy: PolicyEven, Products: products, TotalRequested: 0}, nil
	}

	for i, qty := range EvenSplit(total, len(products)) {
		products[i].AllocatedQuantity = qty
	}

	return &Result{
		Policy:         PolicyEven,
		Products:       products,
		TotalRequested: total,
	}, nil
}
