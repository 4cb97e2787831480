// Package queue carries sale events over RabbitMQ: a publisher used after a
// sale commits and a consumer that appends each event to logs/sales.log.
package queue

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/sales-pos/internal/model"
)

// SaleRecordedEvent is published once a sale has been committed.  It carries
// the frozen line items so consumers never need to query the database.
type SaleRecordedEvent struct {
	EventID    string           `json:"event_id"`
	SaleID     uint64           `json:"sale_id"`
	VendorID   uint64           `json:"vendor_id"`
	Items      []model.SaleItem `json:"items"`
	Total      decimal.Decimal  `json:"total"`
	RecordedAt string           `json:"recorded_at"`
}

// NewSaleRecordedEvent builds the event for a committed sale.
func NewSaleRecordedEvent(s model.Sale) SaleRecordedEvent {
	return SaleRecordedEvent{
		EventID:    uuid.NewString(),
		SaleID:     s.ID,
		VendorID:   s.VendorID,
		Items:      s.Items,
		Total:      s.Total,
		RecordedAt: s.CreatedAt.UTC().Format(time.RFC3339),
	}
}
