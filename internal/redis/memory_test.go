package redis

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmacy_admin/internal/models"
	"pharmacy_admin/internal/ordering"
)

func TestMemoryStore_SessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	sub := &models.Subscription{
		ID:       "sub-1",
		Products: []models.SubscriptionProduct{{ProductID: "p-1", Quantity: 2}},
	}
	sess := ordering.NewSession("s-1", sub, 3, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	key := sess.Lines[0].Key
	require.NoError(t, sess.Select(key, ordering.Pharmacy{
		ID:        "a",
		Inventory: []ordering.InventoryEntry{{ProductID: "p-1", InStock: true, StockQuantity: 1, Price: decimal.NewFromInt(5)}},
	}))

	require.NoError(t, store.SaveSession(ctx, sess, time.Minute))
	sess.Notes = "changed after save"

	got, err := store.GetSession(ctx, "s-1")
	require.NoError(t, err)
	assert.Empty(t, got.Notes)
	require.Contains(t, got.Selections, key)
	assert.Equal(t, "a", got.Selections[key].PharmacyID)

	require.NoError(t, store.DeleteSession(ctx, "s-1"))
	_, err = store.GetSession(ctx, "s-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Lock(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	ok, err := store.AcquireLock(ctx, "sub-1", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.AcquireLock(ctx, "sub-1", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.ReleaseLock(ctx, "sub-1", "b"))
	ok, _ = store.AcquireLock(ctx, "sub-1", "b", time.Minute)
	assert.False(t, ok, "only the holder may release")

	require.NoError(t, store.ReleaseLock(ctx, "sub-1", "a"))
	ok, _ = store.AcquireLock(ctx, "sub-1", "b", time.Minute)
	assert.True(t, ok)
}

func TestMemoryStore_TempData(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var out []string
	assert.ErrorIs(t, store.GetTempData(ctx, "k", &out), ErrNotFound)

	require.NoError(t, store.SetTempData(ctx, "k", []string{"x"}, time.Minute))
	require.NoError(t, store.GetTempData(ctx, "k", &out))
	assert.Equal(t, []string{"x"}, out)

	require.NoError(t, store.DeleteTempData(ctx, "k"))
	assert.ErrorIs(t, store.GetTempData(ctx, "k", &out), ErrNotFound)
}
