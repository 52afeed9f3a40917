package service

import (
	"context"
	"testing"

	"github.com/emkxpress/shop/internal/identity"
	"github.com/emkxpress/shop/internal/models"
	"github.com/emkxpress/shop/internal/repo"
	"github.com/stretchr/testify/require"
)

func TestOpenTransactionSupersedesPending(t *testing.T) {
	r := newTestRepo(t)
	owner := identity.Anonymous("sess-ledger-1")

	cart, err := r.GetOrCreateOpenCart(context.Background(), owner)
	require.NoError(t, err)

	first := &models.Transaction{
		CartID: cart.ID, Gateway: models.GatewayFlutterwave,
		TxRef: "ref-old", Currency: Currency, Amount: 104.00,
	}
	require.NoError(t, r.OpenTransaction(context.Background(), first, 0))

	// A second checkout on the same cart, even via the other gateway,
	// invalidates the first link.
	second := &models.Transaction{
		CartID: cart.ID, Gateway: models.GatewayPaystack,
		TxRef: "ref-new", Currency: Currency, Amount: 104.00,
	}
	require.NoError(t, r.OpenTransaction(context.Background(), second, 0))

	n, err := r.CountPending(context.Background(), cart.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	old, err := r.FindByTxRef(context.Background(), "ref-old")
	require.NoError(t, err)
	require.Equal(t, models.TxCanceled, old.Status)

	active, err := r.FindActive(context.Background(), cart.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	require.Equal(t, "ref-new", active.TxRef)
}

func TestCancelIfPendingLeavesTerminalRows(t *testing.T) {
	r := newTestRepo(t)
	owner := identity.Anonymous("sess-ledger-2")

	cart, err := r.GetOrCreateOpenCart(context.Background(), owner)
	require.NoError(t, err)

	txn := &models.Transaction{
		CartID: cart.ID, Gateway: models.GatewayFlutterwave,
		TxRef: "ref-done", Currency: Currency, Amount: 104.00,
	}
	require.NoError(t, r.OpenTransaction(context.Background(), txn, 0))
	require.NoError(t, r.DB.Model(txn).Update("status", models.TxCompleted).Error)

	require.NoError(t, r.CancelIfPending(context.Background(), txn.ID))

	got, err := r.FindByTxRef(context.Background(), "ref-done")
	require.NoError(t, err)
	require.Equal(t, models.TxCompleted, got.Status)
}

func TestOpenTransactionRefusesStaleQuote(t *testing.T) {
	r := newTestRepo(t)
	cartSvc := &CartService{Repo: r}
	owner := identity.Anonymous("sess-ledger-3")
	createProduct(t, r, "Tea Kettle", 30.00)

	_, err := cartSvc.AddOrUpdateLine(context.Background(), owner, "tea-kettle", 1, false)
	require.NoError(t, err)
	cart, err := r.GetOrCreateOpenCart(context.Background(), owner)
	require.NoError(t, err)

	// The quote priced a cart state that no longer exists; the ledger row
	// must not open.
	txn := &models.Transaction{
		CartID: cart.ID, Gateway: models.GatewayFlutterwave,
		TxRef: "ref-stale-quote", Currency: Currency, Amount: 29.00,
	}
	err = r.OpenTransaction(context.Background(), txn, 25.00)
	require.ErrorIs(t, err, repo.ErrCartChanged)

	n, err := r.CountPending(context.Background(), cart.ID)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestInitiateRejectsEmptyCart(t *testing.T) {
	r := newTestRepo(t)
	gw := &fakeGateway{name: models.GatewayFlutterwave}
	svc := newCheckout(r, gw)
	owner := identity.Anonymous("sess-checkout-1")

	_, err := svc.Initiate(context.Background(), owner, models.GatewayFlutterwave)
	require.ErrorIs(t, err, ErrValidation)
}

func TestInitiateRejectsUnknownGateway(t *testing.T) {
	r := newTestRepo(t)
	gw := &fakeGateway{name: models.GatewayFlutterwave}
	svc := newCheckout(r, gw)
	owner := identity.Anonymous("sess-checkout-2")

	_, err := svc.Initiate(context.Background(), owner, "stripe")
	require.ErrorIs(t, err, ErrValidation)
}

func TestInitiateRequiresSelectedAddress(t *testing.T) {
	r := newTestRepo(t)
	gw := &fakeGateway{name: models.GatewayFlutterwave}
	svc := newCheckout(r, gw)
	cartSvc := &CartService{Repo: r}
	owner := identity.Anonymous("sess-checkout-3")
	createProduct(t, r, "Backpack", 50.00)

	_, err := cartSvc.AddOrUpdateLine(context.Background(), owner, "backpack", 2, false)
	require.NoError(t, err)

	_, err = svc.Initiate(context.Background(), owner, models.GatewayFlutterwave)
	require.ErrorIs(t, err, ErrValidation)
}

func TestInitiateQuotesSubtotalPlusTax(t *testing.T) {
	r := newTestRepo(t)
	gw := &fakeGateway{name: models.GatewayFlutterwave}
	svc := newCheckout(r, gw)
	cartSvc := &CartService{Repo: r}
	shipSvc := &ShippingService{Repo: r}
	owner := identity.Anonymous("sess-checkout-4")
	createProduct(t, r, "Backpack", 50.00)

	_, err := cartSvc.AddOrUpdateLine(context.Background(), owner, "backpack", 2, false)
	require.NoError(t, err)
	addSelectedAddress(t, shipSvc, owner)

	txn, err := svc.Initiate(context.Background(), owner, models.GatewayFlutterwave)
	require.NoError(t, err)
	require.Equal(t, 104.00, txn.Amount)
	require.Equal(t, Currency, txn.Currency)
	require.Equal(t, models.TxPending, txn.Status)
	require.NotEmpty(t, txn.TxRef)
	require.Equal(t, "https://checkout.test/"+txn.TxRef, txn.Link)

	// Re-initiating supersedes the first quote.
	again, err := svc.Initiate(context.Background(), owner, models.GatewayFlutterwave)
	require.NoError(t, err)
	require.NotEqual(t, txn.TxRef, again.TxRef)

	n, err := r.CountPending(context.Background(), txn.CartID)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	active, err := svc.ActiveTransaction(context.Background(), owner)
	require.NoError(t, err)
	require.NotNil(t, active)
	require.Equal(t, again.TxRef, active.TxRef)
}
