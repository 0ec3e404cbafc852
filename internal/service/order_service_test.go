package service

import (
	"database/sql"
	"sync"
	"testing"

	"github.com/manyeka-petros/malonda-web-app/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCalculateTotal(t *testing.T) {
	items := []models.OrderItem{
		{ProductID: sql.NullInt64{Int64: 1, Valid: true}, Quantity: 2, Price: decimal.RequireFromString("10.00")},
		{ProductID: sql.NullInt64{Int64: 2, Valid: true}, Quantity: 1, Price: decimal.RequireFromString("5.50")},
	}

	total := CalculateTotal(items)

	assert.True(t, total.Equal(decimal.RequireFromString("25.50")), "got %s", total)
}

func TestCalculateTotalEmpty(t *testing.T) {
	assert.True(t, CalculateTotal(nil).IsZero())
}

func TestCalculateTotalIgnoresLaterPriceChanges(t *testing.T) {
	// The total is computed from item snapshots only; products are not
	// consulted again.
	items := []models.OrderItem{
		{Quantity: 3, Price: decimal.RequireFromString("7.25")},
	}

	assert.True(t, CalculateTotal(items).Equal(decimal.RequireFromString("21.75")))
}

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	var km keyedMutex

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.lock(42)
			counter++
			km.unlock(42)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)

	// All lock entries were released.
	km.mu.Lock()
	assert.Empty(t, km.locks)
	km.mu.Unlock()
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	var km keyedMutex

	km.lock(1)
	done := make(chan struct{})
	go func() {
		km.lock(2)
		km.unlock(2)
		close(done)
	}()

	// A lock on another order id must not block.
	<-done
	km.unlock(1)
}

func TestValidOrderStatus(t *testing.T) {
	for _, s := range []string{"pending", "processing", "shipped", "delivered", "cancelled", "paid", "failed"} {
		assert.True(t, models.ValidOrderStatus(s), s)
	}
	assert.False(t, models.ValidOrderStatus("refunded"))
	assert.False(t, models.ValidOrderStatus(""))
	assert.False(t, models.ValidOrderStatus("PAID"))
}
