package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/declared-as-ala/backend/internal/model"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Category{},
		&model.Product{},
		&model.ProductVariant{},
		&model.Customer{},
		&model.Discount{},
		&model.Order{},
		&model.OrderItem{},
		&model.WebhookEvent{},
	))
	return db
}

func sampleOrder(id, sessionID string) *model.Order {
	order := &model.Order{
		ID:             id,
		CustomerName:   "Jane Doe",
		CustomerEmail:  "jane@example.com",
		CustomerPhone:  "+33612345678",
		PickupType:     model.PickupDelivery,
		DeliveryStreet: "1 rue des Lilas",
		DeliveryCity:   "Paris",
		DeliveryFee:    decimal.NewFromFloat(3.00),
		DiscountAmount: decimal.NewFromFloat(1.00),
		Amount:         decimal.NewFromFloat(22.00),
		Currency:       "EUR",
		PaymentMethod:  model.PaymentCard,
		Status:         model.StatusPending,
		Items: []model.OrderItem{
			{OrderID: id, ProductID: "p1", Name: "Roses", Quantity: 2,
				Price: decimal.NewFromFloat(10.00), Currency: "EUR",
				Total: decimal.NewFromFloat(20.00)},
		},
	}
	if sessionID != "" {
		order.RemoteSessionID = &sessionID
	}
	return order
}

func TestOrderCreateAndFind(t *testing.T) {
	repo := NewOrderRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, sampleOrder("ord_1", "sess_1")))

	order, err := repo.FindByID(ctx, "ord_1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, order.Status)
	require.Len(t, order.Items, 1)
	assert.True(t, order.Items[0].Total.Equal(decimal.NewFromFloat(20.00)))

	bySession, err := repo.FindByRemoteSessionID(ctx, "sess_1")
	require.NoError(t, err)
	require.NotNil(t, bySession)
	assert.Equal(t, "ord_1", bySession.ID)

	missing, err := repo.FindByRemoteSessionID(ctx, "sess_unknown")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestOrderUniqueRemoteSession(t *testing.T) {
	repo := NewOrderRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, sampleOrder("ord_1", "sess_1")))
	err := repo.Create(ctx, sampleOrder("ord_2", "sess_1"))
	require.Error(t, err, "one remote session maps to at most one order")
}

func TestMarkPaidBySessionFiresOnce(t *testing.T) {
	repo := NewOrderRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, sampleOrder("ord_1", "sess_1")))

	transitioned, err := repo.MarkPaidBySession(ctx, "sess_1", "txn_9")
	require.NoError(t, err)
	assert.True(t, transitioned)

	// redelivered confirmation is a no-op
	transitioned, err = repo.MarkPaidBySession(ctx, "sess_1", "txn_9")
	require.NoError(t, err)
	assert.False(t, transitioned)

	order, err := repo.FindByID(ctx, "ord_1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaid, order.Status)
	require.NotNil(t, order.CaptureID)
	assert.Equal(t, "txn_9", *order.CaptureID)
}

func TestMarkPaidBySessionUnknownSession(t *testing.T) {
	repo := NewOrderRepository(setupDB(t))

	transitioned, err := repo.MarkPaidBySession(context.Background(), "sess_ghost", "txn_1")
	require.NoError(t, err)
	assert.False(t, transitioned)
}

func TestMarkFailedBySessionOnlyPending(t *testing.T) {
	repo := NewOrderRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, sampleOrder("ord_1", "sess_1")))

	_, err := repo.MarkPaidBySession(ctx, "sess_1", "txn_9")
	require.NoError(t, err)

	// a late failure event must not downgrade a paid order
	require.NoError(t, repo.MarkFailedBySession(ctx, "sess_1"))

	order, err := repo.FindByID(ctx, "ord_1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaid, order.Status)
}

func TestSetRemoteSessionAndMarkDelivered(t *testing.T) {
	repo := NewOrderRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, sampleOrder("ord_1", "")))
	require.NoError(t, repo.SetRemoteSession(ctx, "ord_1", "sess_1"))
	require.NoError(t, repo.MarkDelivered(ctx, "ord_1"))

	order, err := repo.FindByID(ctx, "ord_1")
	require.NoError(t, err)
	require.NotNil(t, order.RemoteSessionID)
	assert.Equal(t, "sess_1", *order.RemoteSessionID)
	assert.True(t, order.Delivered)

	assert.Error(t, repo.SetRemoteSession(ctx, "ord_ghost", "sess_2"))
	assert.Error(t, repo.MarkDelivered(ctx, "ord_ghost"))
}

func TestOrderList(t *testing.T) {
	repo := NewOrderRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, sampleOrder("ord_1", "sess_1")))

	second := sampleOrder("ord_2", "sess_2")
	second.CustomerName = "Bob Martin"
	second.CustomerEmail = "bob@example.com"
	second.Status = model.StatusPaid
	require.NoError(t, repo.Create(ctx, second))

	paid, total, err := repo.List(ctx, OrderListFilter{Status: "paid"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, paid, 1)
	assert.Equal(t, "ord_2", paid[0].ID)

	byCustomer, total, err := repo.List(ctx, OrderListFilter{Customer: "jane"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, byCustomer, 1)
	assert.Equal(t, "ord_1", byCustomer[0].ID)

	all, total, err := repo.List(ctx, OrderListFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, all, 2)
}

func TestWebhookEventDedup(t *testing.T) {
	repo := NewWebhookEventRepository(setupDB(t))
	ctx := context.Background()

	seen, err := repo.Exists(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, repo.MarkProcessed(ctx, "evt_1", "payment.capture.succeeded"))

	seen, err = repo.Exists(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestDiscountFindActiveByCode(t *testing.T) {
	db := setupDB(t)
	repo := NewDiscountRepository(db)
	ctx := context.Background()

	expired := time.Now().Add(-time.Hour)
	require.NoError(t, db.Create(&model.Discount{Code: "WELCOME", Amount: decimal.NewFromFloat(1.00), Active: true}).Error)
	require.NoError(t, db.Create(&model.Discount{Code: "OLD", Amount: decimal.NewFromFloat(5.00), Active: true, ExpiresAt: &expired}).Error)
	require.NoError(t, db.Create(&model.Discount{Code: "OFF", Amount: decimal.NewFromFloat(2.00), Active: false}).Error)

	discount, err := repo.FindActiveByCode(ctx, "WELCOME")
	require.NoError(t, err)
	require.NotNil(t, discount)
	assert.True(t, discount.Amount.Equal(decimal.NewFromFloat(1.00)))

	for _, code := range []string{"OLD", "OFF", "GHOST"} {
		discount, err := repo.FindActiveByCode(ctx, code)
		require.NoError(t, err)
		assert.Nil(t, discount, "code %s should not resolve", code)
	}
}

func TestCustomerUpsertKeysOnEmail(t *testing.T) {
	db := setupDB(t)
	repo := NewCustomerRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &model.Customer{
		ID: "cus_1", FullName: "Jane Doe", Email: "jane@example.com", Phone: "+33600000001",
	}))
	require.NoError(t, repo.Upsert(ctx, &model.Customer{
		ID: "cus_2", FullName: "Jane D.", Email: "jane@example.com", Phone: "+33600000002",
	}))

	var count int64
	require.NoError(t, db.Model(&model.Customer{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	customer, err := repo.FindByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Jane D.", customer.FullName)
	assert.Equal(t, "+33600000002", customer.Phone)
}
