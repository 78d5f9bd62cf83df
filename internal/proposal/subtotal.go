package proposal

import "proposals/api/internal/money"

// RecalculateSubtotals sets every section's subtotal to the rounded sum of its
// item prices. It must run after any change to an item's price.
func RecalculateSubtotals(sections []Section) {
	for i := range sections {
		sections[i].Subtotal = money.Round(sumPrices(sections[i].Items))
	}
}

// Total sums every parseable item price across all sections.
func Total(sections []Section) float64 {
	total := 0.0
	for _, section := range sections {
		total += sumPrices(section.Items)
	}
	return total
}

func sumPrices(items []Item) float64 {
	sum := 0.0
	for _, item := range items {
		sum += money.OrZero(item.Price)
	}
	return sum
}
