package proposal

import (
	"math"

	"proposals/api/internal/money"
)

// AdjustSectionsToMatchBudget rescales every item price by targetBudget/total.
// Each item is rounded to whole dollars independently, so the realized total can
// differ from targetBudget by up to half a dollar per item. With hoursLocked and
// a positive hourlyRate, hours are re-derived from the new price to one decimal.
// A zero current total leaves the sections untouched.
func AdjustSectionsToMatchBudget(sections []Section, targetBudget, hourlyRate float64, hoursLocked bool) {
	if math.IsNaN(targetBudget) || math.IsInf(targetBudget, 0) {
		return
	}
	current := Total(sections)
	if current == 0 {
		return
	}
	ratio := targetBudget / current

	for si := range sections {
		items := sections[si].Items
		for ii := range items {
			if math.IsNaN(items[ii].Price) {
				continue
			}
			price := money.Round(items[ii].Price * ratio)
			items[ii].Price = price
			if hoursLocked && hourlyRate > 0 {
				items[ii].Hours = money.Round(price/hourlyRate*10) / 10
			}
		}
	}

	RecalculateSubtotals(sections)
}
