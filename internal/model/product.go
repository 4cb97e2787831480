package model

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Money fields are encoded as JSON numbers rather than quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Product represents a catalog entry in the `products` table.  Price and
// Stock are never negative; the stock column only moves through explicit
// edits by the owner or an admin and through sale decrements.
type Product struct {
	ID          uint64          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int64           `json:"stock"`
	OwnerID     uint64          `json:"ownerId"`
	Images      []string        `json:"images,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Price bounds of the catalog.  Prices are stored as DECIMAL(12,2).
const PriceScale int32 = 2

var MaxPrice = decimal.RequireFromString("9999999999.99")

// ProductFilter narrows a catalog listing.  Keyword matches the product
// name case-insensitively; an empty keyword matches everything.
type ProductFilter struct {
	Keyword string
	Limit   int
	Offset  int
}
