package extraction

// Product is one extracted invoice line item.
type Product struct {
	ProductName string `json:"productName"`
	Details     string `json:"details"`
	Quantity    int    `json:"quantity"`
}
