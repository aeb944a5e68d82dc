// README: Common money value object used across modules.
package types

type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// DefaultCurrency is the Central African CFA franc; amounts are whole francs.
const DefaultCurrency = "XAF"
