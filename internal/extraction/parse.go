package extraction

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	jsonFencePattern = regexp.MustCompile("```json\\n?")
	fencePattern     = regexp.MustCompile("```\\n?")
	arrayPattern     = regexp.MustCompile(`\[[\s\S]*\]`)
)

// ParseOutcome explains why a response produced no products.
type ParseOutcome string

const (
	OutcomeOK         ParseOutcome = "ok"
	OutcomeNoArray    ParseOutcome = "no_array"
	OutcomeBadJSON    ParseOutcome = "invalid_json"
	OutcomeNotArray   ParseOutcome = "not_array"
	OutcomeAllDropped ParseOutcome = "all_dropped"
)

// ParseResponse extracts products from raw model output. It never fails;
// unusable output yields an empty slice.
func ParseResponse(raw string) []Product {
	products, _ := parseResponse(raw)
	return products
}

func parseResponse(raw string) ([]Product, ParseOutcome) {
	cleaned := strings.TrimSpace(raw)
	cleaned = jsonFencePattern.ReplaceAllString(cleaned, "")
	cleaned = fencePattern.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)

	span := arrayPattern.FindString(cleaned)
	if span == "" {
		return []Product{}, OutcomeNoArray
	}

	var decoded any
	if err := json.Unmarshal([]byte(span), &decoded); err != nil {
		return []Product{}, OutcomeBadJSON
	}
	elements, ok := decoded.([]any)
	if !ok {
		return []Product{}, OutcomeNotArray
	}

	products := make([]Product, 0, len(elements))
	for _, element := range elements {
		if product, ok := toProduct(element); ok {
			products = append(products, product)
		}
	}
	if len(products) == 0 && len(elements) > 0 {
		return products, OutcomeAllDropped
	}
	return products, OutcomeOK
}

func toProduct(element any) (Product, bool) {
	fields, ok := element.(map[string]any)
	if !ok {
		return Product{}, false
	}
	name, ok := fields["productName"].(string)
	if !ok {
		return Product{}, false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Product{}, false
	}
	quantity := 1
	if raw, present := fields["quantity"]; present {
		n, ok := raw.(float64)
		if !ok {
			return Product{}, false
		}
		quantity = wholeQuantity(n)
	}
	return Product{
		ProductName: name,
		Details:     strings.TrimSpace(stringify(fields["details"])),
		Quantity:    quantity,
	}, true
}

// stringify renders scalar JSON values; falsy values become "".
func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if !v {
			return ""
		}
		return "true"
	case float64:
		if v == 0 {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}

// wholeQuantity rounds to the nearest whole unit; zero, negative and
// non-finite values become 1.
func wholeQuantity(n float64) int {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 1
	}
	rounded := math.Round(n)
	if rounded < 1 {
		return 1
	}
	if rounded > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(rounded)
}
