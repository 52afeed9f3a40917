package service

import (
	"context"
	"testing"

	"github.com/emkxpress/shop/internal/events"
	"github.com/emkxpress/shop/internal/gateway"
	"github.com/emkxpress/shop/internal/identity"
	"github.com/emkxpress/shop/internal/models"
	"github.com/emkxpress/shop/internal/repo"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestRepo(t *testing.T) *repo.GormRepo {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}

	// One connection keeps every goroutine on the same in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return &repo.GormRepo{DB: db}
}

func createProduct(t *testing.T, r *repo.GormRepo, title string, price float64) *models.Product {
	t.Helper()
	p := models.Product{Title: title, Price: price, Image: "https://img.test/" + title + ".jpg"}
	require.NoError(t, r.DB.Create(&p).Error)
	return &p
}

func addSelectedAddress(t *testing.T, svc *ShippingService, owner identity.OwnerKey) *models.Shipping {
	t.Helper()
	addr, err := svc.AddAddress(context.Background(), owner, AddressInput{
		Name:    "Ada Obi",
		Phone:   "+2348000000000",
		City:    "Lagos",
		State:   "Lagos",
		Address: "1 Marina Road",
		ZipCode: "100001",
		Country: "Nigeria",
		Email:   "ada@example.com",
	}, false)
	require.NoError(t, err)
	return addr
}

type fakeGateway struct {
	name     string
	verifyFn func(txRef, transactionID string) (*gateway.VerifyResult, error)
}

func (f *fakeGateway) Name() string { return f.name }

func (f *fakeGateway) Initiate(ctx context.Context, req gateway.InitiateRequest) (*gateway.InitiateResult, error) {
	return &gateway.InitiateResult{Link: "https://checkout.test/" + req.TxRef}, nil
}

func (f *fakeGateway) Verify(ctx context.Context, txRef, transactionID string) (*gateway.VerifyResult, error) {
	return f.verifyFn(txRef, transactionID)
}

func newEngine(r *repo.GormRepo, gw gateway.Client) *ReconcileService {
	return &ReconcileService{
		Repo:     r,
		Gateways: map[string]gateway.Client{gw.Name(): gw},
		Orders:   &OrderService{Repo: r},
		Producer: events.NewProducer(""),
	}
}

func newCheckout(r *repo.GormRepo, gw gateway.Client) *CheckoutService {
	return &CheckoutService{
		Repo:     r,
		Gateways: map[string]gateway.Client{gw.Name(): gw},
		Producer: events.NewProducer(""),
	}
}
