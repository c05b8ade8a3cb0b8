package extraction

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const keySeparator = "\x1f"

// Deduplicate merges products sharing a case-insensitive name and details.
// Quantities are summed; the first occurrence keeps its spelling and slot.
// Keys are lowercased, not case-folded, so "straße" and "STRASSE" differ.
func Deduplicate(products []Product) []Product {
	lower := cases.Lower(language.Und)
	index := make(map[string]int, len(products))
	out := make([]Product, 0, len(products))
	for _, product := range products {
		key := lower.String(product.ProductName) + keySeparator + lower.String(product.Details)
		if at, ok := index[key]; ok {
			out[at].Quantity += product.Quantity
			continue
		}
		index[key] = len(out)
		out = append(out, product)
	}
	return out
}
