package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmacy_admin/internal/models"
	"pharmacy_admin/internal/ordering"
	"pharmacy_admin/internal/redis"
	"pharmacy_admin/internal/repository"
	"pharmacy_admin/internal/upstream"
)

type placementFixture struct {
	svc      OrderPlacementService
	upstream *fakeUpstream
	store    *redis.MemoryStore
	repos    *repository.MemoryStore
	archive  *fakeArchive
	notifier *fakeNotifier
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func pharmacy(id string, entries ...ordering.InventoryEntry) ordering.Pharmacy {
	return ordering.Pharmacy{ID: id, Name: "Pharmacy " + id, IsActive: true, Inventory: entries}
}

func stock(productID, price string) ordering.InventoryEntry {
	return ordering.InventoryEntry{ProductID: productID, InStock: true, StockQuantity: 10, Price: dec(price)}
}

func newPlacementFixture(t *testing.T) *placementFixture {
	t.Helper()
	repos := repository.NewMemoryStore()
	estimate := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repos.Subscriptions().Upsert(context.Background(), &models.Subscription{
		ID:                 "sub-1",
		CustomerName:       "Jane",
		CustomerPhone:      "01012345678",
		DeliveryAddress:    "12 Nile St",
		Frequency:          models.FrequencyMonthly,
		Status:             models.SubscriptionActive,
		IsActive:           true,
		NextDelivery:       &estimate,
		NextDeliverySource: models.NextDeliveryEstimate,
		Products: []models.SubscriptionProduct{
			{ProductID: "p-1", Quantity: 2, Name: "Insulin"},
			{ProductID: "p-2", Quantity: 1, Name: "Strips"},
		},
	}))

	up := &fakeUpstream{
		pharmacies: []ordering.Pharmacy{
			pharmacy("a", stock("p-1", "10.00"), stock("p-2", "4.00")),
			pharmacy("b", stock("p-1", "9.50")),
		},
		placeResult: &upstream.PlaceOrderResult{
			OrderID:      "o-1",
			OrderNumber:  "ORD-1001",
			NextDelivery: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		},
	}
	f := &placementFixture{
		upstream: up,
		store:    redis.NewMemoryStore(),
		repos:    repos,
		archive:  &fakeArchive{},
		notifier: &fakeNotifier{},
	}
	f.svc = NewOrderPlacementService(up, f.store, repos.Subscriptions(), repos.Orders(), f.archive, f.notifier,
		PlacementOptions{SessionTTL: time.Hour, PharmacyCacheTTL: time.Minute})
	return f
}

// completeSession opens a session and selects a pharmacy for every line.
func (f *placementFixture) completeSession(t *testing.T) *ordering.Session {
	t.Helper()
	ctx := context.Background()
	sess, err := f.svc.Open(ctx, "sub-1", 7)
	require.NoError(t, err)
	_, err = f.svc.Select(ctx, sess.ID, 0, "b")
	require.NoError(t, err)
	sess, err = f.svc.Select(ctx, sess.ID, 1, "a")
	require.NoError(t, err)
	return sess
}

func TestOpen_RejectsUnknownAndInactiveSubscriptions(t *testing.T) {
	f := newPlacementFixture(t)
	ctx := context.Background()

	_, err := f.svc.Open(ctx, "missing", 1)
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)

	require.NoError(t, f.repos.Subscriptions().UpdateStatus(ctx, "sub-1", models.SubscriptionPaused))
	_, err = f.svc.Open(ctx, "sub-1", 1)
	assert.ErrorIs(t, err, ErrSubscriptionInactive)
}

func TestCandidates_FiltersByStockAndCachesPharmacies(t *testing.T) {
	f := newPlacementFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Open(ctx, "sub-1", 1)
	require.NoError(t, err)

	first, err := f.svc.Candidates(ctx, sess.ID, 0)
	require.NoError(t, err)
	assert.Len(t, first, 2)

	second, err := f.svc.Candidates(ctx, sess.ID, 1)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "a", second[0].ID)
	assert.Equal(t, 1, f.upstream.pharmacyCalls)

	_, err = f.svc.Candidates(ctx, sess.ID, 5)
	assert.ErrorIs(t, err, ordering.ErrLineNotFound)
}

func TestSelect_RecordsPriceTimesQuantity(t *testing.T) {
	f := newPlacementFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Open(ctx, "sub-1", 1)
	require.NoError(t, err)

	sess, err = f.svc.Select(ctx, sess.ID, 0, "b")
	require.NoError(t, err)
	sel := sess.Selections[sess.Lines[0].Key]
	require.NotNil(t, sel.Total)
	assert.True(t, sel.Total.Equal(dec("19")))

	_, err = f.svc.Select(ctx, sess.ID, 1, "b")
	assert.ErrorIs(t, err, ordering.ErrProductNotStocked)
	_, err = f.svc.Select(ctx, sess.ID, 1, "zzz")
	assert.ErrorIs(t, err, ordering.ErrPharmacyNotFound)
}

func TestRecordTotal(t *testing.T) {
	f := newPlacementFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Open(ctx, "sub-1", 1)
	require.NoError(t, err)

	_, err = f.svc.RecordTotal(ctx, sess.ID, 0, dec("5"))
	assert.ErrorIs(t, err, ErrLineNotSelected)
	_, err = f.svc.RecordTotal(ctx, sess.ID, 0, dec("-1"))
	assert.ErrorIs(t, err, ErrInvalidTotal)

	_, err = f.svc.Select(ctx, sess.ID, 0, "a")
	require.NoError(t, err)
	_, err = f.svc.RecordTotal(ctx, sess.ID, 0, dec("18.00"))
	require.NoError(t, err)

	sum, err := f.svc.Summary(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, sum.Total.Equal(dec("18")))
	assert.Equal(t, []string{"p-2-1"}, sum.MissingLines)
	assert.False(t, sum.ReadyToSubmit)
}

func TestSubmit_SuccessAppliesServerNextDelivery(t *testing.T) {
	f := newPlacementFixture(t)
	ctx := context.Background()
	sess := f.completeSession(t)
	_, err := f.svc.SetNotes(ctx, sess.ID, "leave at door")
	require.NoError(t, err)

	res, err := f.svc.Submit(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, ordering.StatusSucceeded, res.Status)
	assert.Equal(t, "ORD-1001", res.OrderNumber)

	require.Len(t, f.upstream.placed, 1)
	placed := f.upstream.placed[0]
	assert.Equal(t, "12 Nile St", placed.DeliveryAddress)
	assert.Equal(t, "leave at door", placed.Notes)
	assert.True(t, placed.Total.Equal(dec("23")))

	sub, err := f.repos.Subscriptions().GetByID(ctx, "sub-1")
	require.NoError(t, err)
	require.NotNil(t, sub.NextDelivery)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), *sub.NextDelivery)
	assert.Equal(t, models.NextDeliveryServer, sub.NextDeliverySource)

	orders, err := f.repos.Orders().GetBySubscriptionID(ctx, "sub-1")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "receipts/sub-1/ORD-1001.json", orders[0].ReceiptObjectKey)
	assert.Contains(t, f.archive.objects, "receipts/sub-1/ORD-1001.json")
	assert.Equal(t, []string{"ORD-1001"}, f.notifier.orders)

	_, err = f.svc.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSubmit_ResubmittingAfterSuccessPlacesNothing(t *testing.T) {
	f := newPlacementFixture(t)
	ctx := context.Background()
	sess := f.completeSession(t)

	_, err := f.svc.Submit(ctx, sess.ID)
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Len(t, f.upstream.placed, 1)
}

func TestSubmit_IncompleteSessionMakesNoUpstreamCall(t *testing.T) {
	f := newPlacementFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Open(ctx, "sub-1", 1)
	require.NoError(t, err)
	_, err = f.svc.Select(ctx, sess.ID, 0, "a")
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, sess.ID)
	var verr *ordering.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []ordering.LineKey{{ProductID: "p-2", Index: 1}}, verr.MissingLines)
	assert.Empty(t, f.upstream.placed)

	got, err := f.svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, ordering.StatusIdle, got.Status)
}

func TestSubmit_EmptyCustomAddressIsRejected(t *testing.T) {
	f := newPlacementFixture(t)
	ctx := context.Background()
	sess := f.completeSession(t)
	_, err := f.svc.SetAddress(ctx, sess.ID, ordering.AddressModeCustom, "   ")
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, sess.ID)
	assert.ErrorIs(t, err, ordering.ErrEmptyCustomAddress)
	assert.Empty(t, f.upstream.placed)
}

func TestSubmit_FailurePreservesSession(t *testing.T) {
	f := newPlacementFixture(t)
	ctx := context.Background()
	sess := f.completeSession(t)
	_, err := f.svc.SetAddress(ctx, sess.ID, ordering.AddressModeCustom, " 5 Tahrir Sq ")
	require.NoError(t, err)
	f.upstream.placeErr = &upstream.APIError{StatusCode: 400, Message: "Pharmacy is closed"}

	res, err := f.svc.Submit(ctx, sess.ID)
	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, "Pharmacy is closed", subErr.Message)
	require.NotNil(t, res)
	assert.Equal(t, ordering.StatusFailed, res.Status)

	got, err := f.svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, ordering.StatusIdle, got.Status)
	assert.Equal(t, "Pharmacy is closed", got.LastError)
	assert.Len(t, got.Selections, 2)
	assert.Equal(t, ordering.AddressModeCustom, got.AddressMode)
	assert.Equal(t, " 5 Tahrir Sq ", got.CustomAddress)

	sub, err := f.repos.Subscriptions().GetByID(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, models.NextDeliveryEstimate, sub.NextDeliverySource)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *sub.NextDelivery)

	f.upstream.placeErr = nil
	res, err = f.svc.Submit(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, ordering.StatusSucceeded, res.Status)
	assert.Equal(t, "5 Tahrir Sq", f.upstream.placed[1].DeliveryAddress)
}

func TestSubmit_TransportFailureUsesGenericMessage(t *testing.T) {
	f := newPlacementFixture(t)
	ctx := context.Background()
	sess := f.completeSession(t)
	f.upstream.placeErr = errors.New("dial tcp: connection refused")

	_, err := f.svc.Submit(ctx, sess.ID)
	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, genericSubmitFailure, subErr.Message)
}

func TestSubmit_LockedSubscriptionIsRejected(t *testing.T) {
	f := newPlacementFixture(t)
	ctx := context.Background()
	sess := f.completeSession(t)

	ok, err := f.store.AcquireLock(ctx, submitLockName("sub-1"), "other-session", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.svc.Submit(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSubmissionInProgress)
	assert.Empty(t, f.upstream.placed)
}

func TestMutate_ClearsSubmissionError(t *testing.T) {
	f := newPlacementFixture(t)
	ctx := context.Background()
	sess := f.completeSession(t)
	f.upstream.placeErr = &upstream.APIError{StatusCode: 500}

	_, err := f.svc.Submit(ctx, sess.ID)
	require.Error(t, err)

	got, err := f.svc.SetNotes(ctx, sess.ID, "call first")
	require.NoError(t, err)
	assert.Equal(t, ordering.StatusIdle, got.Status)
	assert.Empty(t, got.LastError)
	assert.Len(t, got.Selections, 2)
}

func TestClose_DiscardsSession(t *testing.T) {
	f := newPlacementFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Open(ctx, "sub-1", 1)
	require.NoError(t, err)

	require.NoError(t, f.svc.Close(ctx, sess.ID))
	_, err = f.svc.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
