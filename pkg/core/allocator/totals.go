package allocator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jakechorley/category-allocator/pkg/core/model"
)

// SumRequirements adds up a quantity field over requirement rows using exact
// decimal arithmetic, then converts the sum to whole units. Rows without a
// value contribute nothing. A negative quantity is rejected.
//
// RoundingTruncate drops the fraction (9.7 -> 9), RoundingRound rounds half
// away from zero (9.7 -> 10, 9.5 -> 10).
func SumRequirements(rows []model.Row, field string, rounding Rounding) (int, error) {
	total := decimal.Zero

	for i, row := range rows {
		qty, ok, err := row.Decimal(field)
		if err != nil {
			return 0, &InvalidInputError{Reason: fmt.Sprintf("requirement row %d", i+1), Err: err}
		}
		if !ok {
			continue
		}
		if qty.IsNegative() {
			return 0, &InvalidInputError{
				Reason: fmt.Sprintf("requirement row %d has negative %s %s", i+1, field, qty.String()),
			}
		}
		total = total.Add(qty)
	}

	return wholeUnits(total, rounding), nil
}

func wholeUnits(d decimal.Decimal, rounding Rounding) int {
	if rounding == RoundingRound {
		return int(d.Round(0).IntPart())
	}
	return int(d.Truncate(0).IntPart())
}
