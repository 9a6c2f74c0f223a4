package entity

// Coin represents a tradable asset listed by the coin API
type Coin struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}
