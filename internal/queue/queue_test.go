package queue

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/sales-pos/internal/config"
	"github.com/iliyamo/sales-pos/internal/model"
)

func sampleSale() model.Sale {
	items := []model.SaleItem{
		{ProductID: 3, Quantity: 2, ProductName: "Arepa", UnitPriceAtSale: decimal.RequireFromString("2.50")},
		{ProductID: 9, Quantity: 1, ProductName: "Tinto", UnitPriceAtSale: decimal.RequireFromString("1.20")},
	}
	return model.Sale{
		ID:        41,
		VendorID:  7,
		Items:     items,
		Total:     model.SumItems(items),
		CreatedAt: time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
	}
}

func TestNewSaleRecordedEvent(t *testing.T) {
	ev := NewSaleRecordedEvent(sampleSale())
	assert.Len(t, ev.EventID, 36)
	assert.Equal(t, uint64(41), ev.SaleID)
	assert.Equal(t, "2026-03-01T12:30:00Z", ev.RecordedAt)
	assert.True(t, ev.Total.Equal(decimal.RequireFromString("6.20")))

	other := NewSaleRecordedEvent(sampleSale())
	assert.NotEqual(t, ev.EventID, other.EventID)
}

func TestAppendSaleLine(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	body, err := json.Marshal(NewSaleRecordedEvent(sampleSale()))
	require.NoError(t, err)

	require.NoError(t, appendSaleLine(dir, body))
	require.NoError(t, appendSaleLine(dir, body))

	raw, err := os.ReadFile(filepath.Join(dir, salesLogFile))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "sale_id=41")
	assert.Contains(t, lines[0], "vendor_id=7")
	assert.Contains(t, lines[0], "total=6.20")
	assert.Contains(t, lines[0], `3:"Arepa" x2 @ 2.50`)
}

func TestAppendSaleLine_RejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, appendSaleLine(dir, []byte("{not json")))

	_, err := os.Stat(filepath.Join(dir, salesLogFile))
	assert.True(t, os.IsNotExist(err))
}

func TestPublisher_SendsEvent(t *testing.T) {
	p := newPublisher(config.QueueConfig{Queue: "sale.recorded"}, zap.NewNop())
	var (
		gotQueue string
		gotBody  []byte
	)
	p.send = func(ctx context.Context, queue string, body []byte) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		gotQueue, gotBody = queue, body
		return nil
	}

	require.NoError(t, p.PublishSaleRecorded(context.Background(), sampleSale()))
	assert.Equal(t, "sale.recorded", gotQueue)

	var ev SaleRecordedEvent
	require.NoError(t, json.Unmarshal(gotBody, &ev))
	assert.Equal(t, uint64(7), ev.VendorID)
	require.Len(t, ev.Items, 2)
	assert.Equal(t, "Tinto", ev.Items[1].ProductName)
}

func TestPublisher_BreakerOpensAfterFailures(t *testing.T) {
	p := newPublisher(config.QueueConfig{Queue: "sale.recorded"}, zap.NewNop())
	calls := 0
	p.send = func(context.Context, string, []byte) error {
		calls++
		return errors.New("broker down")
	}

	for i := 0; i < 3; i++ {
		assert.Error(t, p.PublishSaleRecorded(context.Background(), sampleSale()))
	}
	err := p.PublishSaleRecorded(context.Background(), sampleSale())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, calls)
}
