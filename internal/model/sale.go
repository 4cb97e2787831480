package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxLineQuantity caps the quantity of a single basket line.
const MaxLineQuantity int64 = 1_000_000

// MaxSaleTotal is the largest total the ledger column (DECIMAL(14,2)) holds.
var MaxSaleTotal = decimal.RequireFromString("999999999999.99")

// SaleItem is one line of a recorded sale.  Name and unit price are copied
// from the product when the sale is created and never refer back to the
// live catalog row afterwards.
type SaleItem struct {
	ProductID       uint64          `json:"productId"`
	Quantity        int64           `json:"quantity"`
	ProductName     string          `json:"productName"`
	UnitPriceAtSale decimal.Decimal `json:"unitPriceAtSale"`
}

// NewSaleItem freezes the current name and price of p for qty units.
func NewSaleItem(p Product, qty int64) SaleItem {
	return SaleItem{
		ProductID:       p.ID,
		Quantity:        qty,
		ProductName:     p.Name,
		UnitPriceAtSale: p.Price,
	}
}

// Subtotal is unit price times quantity.
func (i SaleItem) Subtotal() decimal.Decimal {
	return i.UnitPriceAtSale.Mul(decimal.NewFromInt(i.Quantity))
}

// Sale is an immutable ledger entry.  Total equals the sum of the item
// subtotals and is fixed when the sale is created.
type Sale struct {
	ID        uint64          `json:"id"`
	VendorID  uint64          `json:"vendorId"`
	Items     []SaleItem      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"timestamp"`
}

// SumItems adds up the subtotals of items.
func SumItems(items []SaleItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// Clone returns a copy of s whose item slice is not shared with s.
func (s Sale) Clone() Sale {
	out := s
	out.Items = append([]SaleItem(nil), s.Items...)
	return out
}

// SaleFilter narrows a ledger listing.  Nil fields are not applied.
// From is inclusive and To is exclusive.
type SaleFilter struct {
	VendorID *uint64
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}
