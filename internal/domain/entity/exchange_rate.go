package entity

// PairKey identifies a directional currency pair in the rate cache
type PairKey struct {
	From string
	To   string
}

// NewPairKey builds the key for the ordered pair from -> to
func NewPairKey(from, to string) PairKey {
	return PairKey{From: from, To: to}
}

// ConversionParams are the query parameters of a conversion rate request
type ConversionParams struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	FromAmount float64 `json:"fromAmount"`
}
