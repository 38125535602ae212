package allocator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/category-allocator/pkg/core/model"
)

func quantities(products []ProductRow) []int {
	result := make([]int, len(products))
	for i, p := range products {
		result[i] = p.AllocatedQuantity
	}
	return result
}

func TestMohGreedy_SingleUnitGoesToLowestMOH(t *testing.T) {
	products := []ProductRow{
		{TotalStock: 10, SalesRate: 5}, // MOH 2
		{TotalStock: 20, SalesRate: 4}, // MOH 5
	}

	allocated, err := MohGreedy(1, products)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, quantities(allocated))
	assert.Equal(t, 11.0, allocated[0].TotalStock)
}

func TestMohGreedy_TenUnitsBalanceTowardsB(t *testing.T) {
	products := []ProductRow{
		{TotalStock: 10, SalesRate: 5},
		{TotalStock: 20, SalesRate: 4},
	}

	allocated, err := MohGreedy(10, products)
	require.NoError(t, err)

	// A's MOH climbs from 2 to 4, still below B's 5, so A takes every unit
	assert.Equal(t, []int{10, 0}, quantities(allocated))
	assertBalanced(t, allocated)
}

func TestMohGreedy_TwentyUnitsAlternateOnceLevel(t *testing.T) {
	products := []ProductRow{
		{TotalStock: 10, SalesRate: 5},
		{TotalStock: 20, SalesRate: 4},
	}

	allocated, err := MohGreedy(20, products)
	require.NoError(t, err)

	// 15 units bring A level with B at MOH 5, the tie goes to A (faster
	// seller), then the products alternate
	assert.Equal(t, []int{18, 2}, quantities(allocated))
	assert.Equal(t, 28.0, allocated[0].TotalStock)
	assert.Equal(t, 22.0, allocated[1].TotalStock)
	assertBalanced(t, allocated)
}

func TestMohGreedy_TieBrokenBySalesRate(t *testing.T) {
	products := []ProductRow{
		{TotalStock: 4, SalesRate: 2},  // MOH 2
		{TotalStock: 12, SalesRate: 6}, // MOH 2, sells faster
	}

	allocated, err := MohGreedy(1, products)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, quantities(allocated))
}

func TestMohGreedy_FullTieBrokenByPosition(t *testing.T) {
	products := []ProductRow{
		{TotalStock: 6, SalesRate: 3},
		{TotalStock: 6, SalesRate: 3},
	}

	allocated, err := MohGreedy(3, products)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, quantities(allocated))
}

func TestMohGreedy_ZeroSalesNeverAllocated(t *testing.T) {
	products := []ProductRow{
		{TotalStock: 0, SalesRate: 0},
		{TotalStock: 30, SalesRate: 3},
		{TotalStock: 5, SalesRate: 0},
	}

	for _, total := range []int{1, 7, 250} {
		allocated, err := MohGreedy(total, products)
		require.NoError(t, err)
		assert.Equal(t, 0, allocated[0].AllocatedQuantity)
		assert.Equal(t, total, allocated[1].AllocatedQuantity)
		assert.Equal(t, 0, allocated[2].AllocatedQuantity)
	}
}

func TestMohGreedy_NoEligibleProducts(t *testing.T) {
	products := []ProductRow{
		{TotalStock: 3, SalesRate: 0},
		{TotalStock: 0, SalesRate: 0},
	}

	_, err := MohGreedy(5, products)
	require.Error(t, err)

	var noEligible *NoEligibleProductError
	require.True(t, errors.As(err, &noEligible))
	assert.Equal(t, 2, noEligible.ProductCount)
	assert.Equal(t, 5, noEligible.TotalRequested)
}

func TestMohGreedy_ZeroTotal(t *testing.T) {
	products := []ProductRow{
		{TotalStock: 3, SalesRate: 0},
		{TotalStock: 8, SalesRate: 2, AllocatedQuantity: 4},
	}

	allocated, err := MohGreedy(0, products)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0}, quantities(allocated))
	assert.Equal(t, 8.0, allocated[1].TotalStock)
}

func TestMohGreedy_InvalidInput(t *testing.T) {
	var invalid *InvalidInputError

	_, err := MohGreedy(3, nil)
	require.True(t, errors.As(err, &invalid))
	assert.Contains(t, err.Error(), "no products")

	_, err = MohGreedy(-1, []ProductRow{{TotalStock: 1, SalesRate: 1}})
	require.True(t, errors.As(err, &invalid))

	_, err = MohGreedy(2, []ProductRow{{TotalStock: 1, SalesRate: -1}})
	require.True(t, errors.As(err, &invalid))
	assert.Contains(t, err.Error(), "negative sales rate")
}

func TestMohGreedy_DoesNotModifyInput(t *testing.T) {
	products := []ProductRow{
		{Row: model.Row{"name": "A"}, TotalStock: 10, SalesRate: 5},
		{Row: model.Row{"name": "B"}, TotalStock: 20, SalesRate: 4},
	}

	allocated, err := MohGreedy(4, products)
	require.NoError(t, err)

	allocated[0].Row["name"] = "changed"
	assert.Equal(t, "A", products[0].Row["name"])
	assert.Equal(t, 10.0, products[0].TotalStock)
	assert.Equal(t, 0, products[0].AllocatedQuantity)
}

func TestMohGreedy_Conservation(t *testing.T) {
	products := []ProductRow{
		{TotalStock: 0, SalesRate: 1},
		{TotalStock: 100, SalesRate: 12.5},
		{TotalStock: 7, SalesRate: 0},
		{TotalStock: -3, SalesRate: 2},
		{TotalStock: 40, SalesRate: 0.5},
	}

	for total := 0; total <= 120; total += 7 {
		allocated, err := MohGreedy(total, products)
		require.NoError(t, err)
		assert.Equal(t, total, sum(quantities(allocated)), "total=%d", total)
		for _, p := range allocated {
			assert.GreaterOrEqual(t, p.AllocatedQuantity, 0)
		}
		assertBalanced(t, allocated)
	}
}

// assertBalanced checks the greedy invariant: before its last unit, every
// product that received units had an MOH no higher than the final MOH of any
// other sellable product
func assertBalanced(t *testing.T, products []ProductRow) {
	t.Helper()

	for i, p := range products {
		if p.AllocatedQuantity == 0 || p.SalesRate <= 0 {
			continue
		}
		beforeLast := (p.TotalStock - 1) / p.SalesRate
		for j, other := range products {
			if i == j || other.SalesRate <= 0 {
				continue
			}
			assert.LessOrEqual(t, beforeLast, other.TotalStock/other.SalesRate,
				"product %d took a unit while product %d had lower MOH", i, j)
		}
	}
}
