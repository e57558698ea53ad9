// Package model defines domain types shared across the agent.
package model

import "time"

// Command is one typed instruction from the Hub to this node.
type Command struct {
	Kind    string         `json:"kind"`
	Payload map[string]any `json:"payload"`
}

// Product is the local catalog view of one synchronized entity.
type Product struct {
	ID               int64  `json:"product_id"`
	Name             string `json:"name"`
	Stock            int64  `json:"stock"`
	ManageStock      bool   `json:"manage_stock"`
	RegularPrice     string `json:"regular_price"`
	SalePrice        string `json:"sale_price"`
	Description      string `json:"description"`
	ShortDescription string `json:"short_description"`
	Weight           string `json:"weight"`
}

// StockEvent announces a locally observed stock mutation. It is transient
// and exists only for the duration of a single propagation attempt.
type StockEvent struct {
	ProductID int64
	NewStock  int64
	At        time.Time
}
