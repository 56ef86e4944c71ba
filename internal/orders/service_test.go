package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

// memStore backs Catalog, Ledger and Directory with maps. memTxn snapshots
// the store before running the transaction body and restores it on error,
// mirroring the rollback the Mongo transaction provides in production.
type memStore struct {
	products   map[primitive.ObjectID]models.Product
	users      map[string]models.User
	orders     []models.Order
	failInsert error
}

func newMemStore() *memStore {
	return &memStore{
		products: make(map[primitive.ObjectID]models.Product),
		users:    make(map[string]models.User),
	}
}

func (m *memStore) ProductByID(_ context.Context, id primitive.ObjectID) (models.Product, error) {
	product, ok := m.products[id]
	if !ok {
		return models.Product{}, &ProductNotFoundError{ProductID: id}
	}
	return product, nil
}

func (m *memStore) DecrementStock(_ context.Context, id primitive.ObjectID, qty int) error {
	product, ok := m.products[id]
	if !ok {
		return &ProductNotFoundError{ProductID: id}
	}
	if product.Stock < qty {
		return &InsufficientStockError{ProductID: id, Name: product.Name, Available: product.Stock, Requested: qty}
	}
	product.Stock -= qty
	m.products[id] = product
	return nil
}

func (m *memStore) Insert(_ context.Context, order *models.Order) (primitive.ObjectID, error) {
	if m.failInsert != nil {
		return primitive.NilObjectID, m.failInsert
	}
	id := primitive.NewObjectID()
	stored := *order
	stored.ID = id
	m.orders = append(m.orders, stored)
	return id, nil
}

func (m *memStore) BySubject(_ context.Context, subject string) (models.User, error) {
	user, ok := m.users[subject]
	if !ok {
		return models.User{}, ErrAccountNotFound
	}
	return user, nil
}

type memTxn struct {
	store *memStore
}

func (t *memTxn) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	snapshot := make(map[primitive.ObjectID]models.Product, len(t.store.products))
	for id, p := range t.store.products {
		snapshot[id] = p
	}
	orderCount := len(t.store.orders)

	if err := fn(ctx); err != nil {
		t.store.products = snapshot
		t.store.orders = t.store.orders[:orderCount]
		return err
	}
	return nil
}

type fakeMailer struct {
	sent    []string
	failErr error
}

func (f *fakeMailer) SendOrderConfirmation(_ context.Context, to, _ string, _ *models.Order) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.sent = append(f.sent, to)
	return nil
}

func newTestService(store *memStore, mailer *fakeMailer) *Service {
	return NewService(store, store, store, mailer, &memTxn{store: store})
}

func seedUser(store *memStore, subject string) models.User {
	user := models.User{
		ID:    primitive.NewObjectID(),
		UID:   subject,
		Name:  "Aiko",
		Email: "aiko@example.com",
		Role:  models.RoleUser,
	}
	store.users[subject] = user
	return user
}

func seedProduct(store *memStore, name string, price float64, stock int) models.Product {
	product := models.Product{
		ID:       primitive.NewObjectID(),
		Name:     name,
		Category: "tops",
		ImageURL: "https://img.example.com/" + name + ".jpg",
		Price:    price,
		Stock:    stock,
	}
	store.products[product.ID] = product
	return product
}

func TestPlaceHappyPath(t *testing.T) {
	store := newMemStore()
	mailer := &fakeMailer{}
	service := newTestService(store, mailer)

	user := seedUser(store, "subject-a")
	product := seedProduct(store, "linen shirt", 2000, 5)

	order, err := service.Place(context.Background(), "subject-a", []CartItem{
		{ProductID: product.ID, Quantity: 2},
	})
	require.NoError(t, err)

	require.Len(t, order.Items, 1)
	assert.Equal(t, product.ID, order.Items[0].ProductID)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, 2000.0, order.Items[0].Price)
	assert.Equal(t, 4000.0, order.TotalPrice)
	assert.Equal(t, models.OrderStatusUnprocessed, order.Status)
	assert.Equal(t, user.ID, order.UserID)
	assert.False(t, order.ID.IsZero())

	assert.Equal(t, 3, store.products[product.ID].Stock)
	require.Len(t, store.orders, 1)
	assert.Equal(t, []string{"aiko@example.com"}, mailer.sent)
}

func TestPlaceTotalAcrossMultipleItems(t *testing.T) {
	store := newMemStore()
	mailer := &fakeMailer{}
	service := newTestService(store, mailer)

	seedUser(store, "subject-a")
	shirt := seedProduct(store, "shirt", 1500, 10)
	coat := seedProduct(store, "coat", 9800, 4)

	order, err := service.Place(context.Background(), "subject-a", []CartItem{
		{ProductID: shirt.ID, Quantity: 3},
		{ProductID: coat.ID, Quantity: 1},
	})
	require.NoError(t, err)

	var sum float64
	for _, item := range order.Items {
		sum += item.Price * float64(item.Quantity)
	}
	assert.Equal(t, sum, order.TotalPrice)
	assert.Equal(t, 14300.0, order.TotalPrice)
	assert.Equal(t, 7, store.products[shirt.ID].Stock)
	assert.Equal(t, 3, store.products[coat.ID].Stock)
}

func TestPlaceInsufficientStock(t *testing.T) {
	store := newMemStore()
	mailer := &fakeMailer{}
	service := newTestService(store, mailer)

	seedUser(store, "subject-a")
	product := seedProduct(store, "scarf", 1200, 1)

	_, err := service.Place(context.Background(), "subject-a", []CartItem{
		{ProductID: product.ID, Quantity: 2},
	})

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, product.ID, stockErr.ProductID)
	assert.Equal(t, "scarf", stockErr.Name)
	assert.Equal(t, 1, stockErr.Available)
	assert.Contains(t, stockErr.Error(), `"scarf"`)
	assert.Contains(t, stockErr.Error(), "only 1 left")

	assert.Equal(t, 1, store.products[product.ID].Stock)
	assert.Empty(t, store.orders)
	assert.Empty(t, mailer.sent)
}

// An unknown product later in the cart aborts the flow, and the transaction
// restores stock decremented for earlier lines. This is a deliberate
// strengthening over a sequence of independent writes with no compensation.
func TestPlaceUnknownProductRollsBackEarlierDecrements(t *testing.T) {
	store := newMemStore()
	mailer := &fakeMailer{}
	service := newTestService(store, mailer)

	seedUser(store, "subject-a")
	product := seedProduct(store, "jeans", 4500, 5)
	missing := primitive.NewObjectID()

	_, err := service.Place(context.Background(), "subject-a", []CartItem{
		{ProductID: product.ID, Quantity: 2},
		{ProductID: missing, Quantity: 1},
	})

	var notFound *ProductNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, missing, notFound.ProductID)
	assert.Contains(t, notFound.Error(), missing.Hex())

	assert.Equal(t, 5, store.products[product.ID].Stock)
	assert.Empty(t, store.orders)
}

func TestPlaceEmptyCart(t *testing.T) {
	store := newMemStore()
	service := newTestService(store, &fakeMailer{})
	seedUser(store, "subject-a")

	_, err := service.Place(context.Background(), "subject-a", nil)
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, store.orders)
}

func TestPlaceNonPositiveQuantity(t *testing.T) {
	store := newMemStore()
	service := newTestService(store, &fakeMailer{})
	seedUser(store, "subject-a")
	product := seedProduct(store, "hat", 800, 5)

	for _, qty := range []int{0, -1} {
		_, err := service.Place(context.Background(), "subject-a", []CartItem{
			{ProductID: product.ID, Quantity: qty},
		})
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	}
	assert.Equal(t, 5, store.products[product.ID].Stock)
}

func TestPlaceUnknownSubjectRollsBack(t *testing.T) {
	store := newMemStore()
	service := newTestService(store, &fakeMailer{})
	product := seedProduct(store, "belt", 2500, 3)

	_, err := service.Place(context.Background(), "nobody", []CartItem{
		{ProductID: product.ID, Quantity: 1},
	})
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.Equal(t, 3, store.products[product.ID].Stock)
	assert.Empty(t, store.orders)
}

func TestPlacePersistenceFailureIsDistinctAndRollsBack(t *testing.T) {
	store := newMemStore()
	store.failInsert = errors.New("write concern error")
	mailer := &fakeMailer{}
	service := newTestService(store, mailer)

	seedUser(store, "subject-a")
	product := seedProduct(store, "dress", 6000, 2)

	_, err := service.Place(context.Background(), "subject-a", []CartItem{
		{ProductID: product.ID, Quantity: 1},
	})

	var persistErr *PersistenceError
	require.ErrorAs(t, err, &persistErr)

	var stockErr *InsufficientStockError
	assert.False(t, errors.As(err, &stockErr))

	assert.Equal(t, 2, store.products[product.ID].Stock)
	assert.Empty(t, store.orders)
	assert.Empty(t, mailer.sent)
}

func TestPlaceEmailFailureDoesNotFailOrder(t *testing.T) {
	store := newMemStore()
	mailer := &fakeMailer{failErr: errors.New("smtp down")}
	service := newTestService(store, mailer)

	seedUser(store, "subject-a")
	product := seedProduct(store, "socks", 500, 10)

	order, err := service.Place(context.Background(), "subject-a", []CartItem{
		{ProductID: product.ID, Quantity: 1},
	})
	require.NoError(t, err)
	assert.False(t, order.ID.IsZero())
	require.Len(t, store.orders, 1)
	assert.Equal(t, 9, store.products[product.ID].Stock)
}
