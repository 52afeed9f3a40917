package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/emkxpress/shop/internal/gateway"
	"github.com/emkxpress/shop/internal/identity"
	"github.com/emkxpress/shop/internal/models"
	"github.com/emkxpress/shop/internal/repo"
	"github.com/stretchr/testify/require"
)

type reconcileEnv struct {
	repo    *repo.GormRepo
	engine  *ReconcileService
	gw      *fakeGateway
	owner   identity.OwnerKey
	txn     *models.Transaction
	product *models.Product
}

func seedReconcile(t *testing.T) *reconcileEnv {
	t.Helper()
	r := newTestRepo(t)
	gw := &fakeGateway{name: models.GatewayFlutterwave}
	gw.verifyFn = func(txRef, transactionID string) (*gateway.VerifyResult, error) {
		return &gateway.VerifyResult{
			Status:        gateway.StatusSuccessful,
			Amount:        104.00,
			Currency:      Currency,
			TransactionID: "T1",
		}, nil
	}

	owner := identity.Anonymous("s1")
	product := createProduct(t, r, "Backpack", 50.00)

	cartSvc := &CartService{Repo: r}
	_, err := cartSvc.AddOrUpdateLine(context.Background(), owner, "backpack", 2, false)
	require.NoError(t, err)
	addSelectedAddress(t, &ShippingService{Repo: r}, owner)

	txn, err := newCheckout(r, gw).Initiate(context.Background(), owner, models.GatewayFlutterwave)
	require.NoError(t, err)
	require.Equal(t, 104.00, txn.Amount)

	return &reconcileEnv{
		repo:    r,
		engine:  newEngine(r, gw),
		gw:      gw,
		owner:   owner,
		txn:     txn,
		product: product,
	}
}

func TestReconcileCreatesOrderExactlyOnce(t *testing.T) {
	env := seedReconcile(t)

	first := env.engine.Reconcile(context.Background(), models.GatewayFlutterwave, env.txn.TxRef, "T1")
	require.Equal(t, OutcomeSuccess, first.Class)
	require.Equal(t, "order created", first.Message)

	// Webhook redelivery of the same confirmation.
	second := env.engine.Reconcile(context.Background(), models.GatewayFlutterwave, env.txn.TxRef, "T1")
	require.Equal(t, OutcomeSuccess, second.Class)
	require.Equal(t, "already processed", second.Message)

	n, err := env.repo.CountOrders(context.Background(), env.txn.CartID)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	txn, err := env.repo.FindByTxRef(context.Background(), env.txn.TxRef)
	require.NoError(t, err)
	require.Equal(t, models.TxCompleted, txn.Status)
	require.Equal(t, "T1", txn.TransactionID)

	var cart models.Cart
	require.NoError(t, env.repo.DB.First(&cart, env.txn.CartID).Error)
	require.True(t, cart.Paid)

	order, err := env.repo.FindOrder(context.Background(), env.txn.CartID, env.txn.TxRef)
	require.NoError(t, err)
	require.Equal(t, 104.00, order.TotalAmount)
	require.Equal(t, "T1", order.TransactionID)
	require.Equal(t, "Ada Obi", order.FullName)
	require.Len(t, order.Lines, 1)
	require.Equal(t, uint(2), order.Lines[0].Quantity)
	require.Equal(t, 50.00, order.Lines[0].Price)

	// A paid cart is retired; the owner starts fresh.
	fresh, err := env.repo.GetOrCreateOpenCart(context.Background(), env.owner)
	require.NoError(t, err)
	require.NotEqual(t, env.txn.CartID, fresh.ID)
}

func TestReconcileConcurrentConfirmations(t *testing.T) {
	env := seedReconcile(t)

	// Callback and webhook race for the same tx_ref.
	outcomes := make([]Outcome, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func(i int) {
			defer wg.Done()
			outcomes[i] = env.engine.Reconcile(context.Background(), models.GatewayFlutterwave, env.txn.TxRef, "T1")
		}(i)
	}
	wg.Wait()

	for _, o := range outcomes {
		require.Equal(t, OutcomeSuccess, o.Class)
	}

	n, err := env.repo.CountOrders(context.Background(), env.txn.CartID)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	// The per-reference locks are released and forgotten, not accumulated.
	require.Zero(t, env.engine.refLocks.Len())
}

func TestReconcileMismatchLeavesRowPending(t *testing.T) {
	env := seedReconcile(t)
	env.gw.verifyFn = func(txRef, transactionID string) (*gateway.VerifyResult, error) {
		return &gateway.VerifyResult{
			Status:        gateway.StatusSuccessful,
			Amount:        100.00, // gateway saw less than we quoted
			Currency:      Currency,
			TransactionID: "T1",
		}, nil
	}

	outcome := env.engine.Reconcile(context.Background(), models.GatewayFlutterwave, env.txn.TxRef, "T1")
	require.Equal(t, OutcomePermanent, outcome.Class)
	require.Equal(t, "verification mismatch", outcome.Message)

	txn, err := env.repo.FindByTxRef(context.Background(), env.txn.TxRef)
	require.NoError(t, err)
	require.Equal(t, models.TxPending, txn.Status)

	n, err := env.repo.CountOrders(context.Background(), env.txn.CartID)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestReconcileUnreachableGatewayIsRetryable(t *testing.T) {
	env := seedReconcile(t)
	env.gw.verifyFn = func(txRef, transactionID string) (*gateway.VerifyResult, error) {
		return nil, fmt.Errorf("verify: %w", gateway.ErrUnreachable)
	}

	outcome := env.engine.Reconcile(context.Background(), models.GatewayFlutterwave, env.txn.TxRef, "T1")
	require.Equal(t, OutcomeRetryable, outcome.Class)

	// Nothing moved; a later retry can still settle.
	txn, err := env.repo.FindByTxRef(context.Background(), env.txn.TxRef)
	require.NoError(t, err)
	require.Equal(t, models.TxPending, txn.Status)
}

func TestReconcileUnknownTxRef(t *testing.T) {
	env := seedReconcile(t)

	outcome := env.engine.Reconcile(context.Background(), models.GatewayFlutterwave, "ref-nobody", "T9")
	require.Equal(t, OutcomePermanent, outcome.Class)
	require.Equal(t, "unknown transaction", outcome.Message)
}

func TestReconcileUnknownGateway(t *testing.T) {
	env := seedReconcile(t)

	outcome := env.engine.Reconcile(context.Background(), "stripe", env.txn.TxRef, "T1")
	require.Equal(t, OutcomePermanent, outcome.Class)
}

func TestReconcileSupersededTransaction(t *testing.T) {
	env := seedReconcile(t)

	// A second checkout canceled the first quote; its confirmation arrives
	// late and must not create an order.
	again, err := newCheckout(env.repo, env.gw).Initiate(context.Background(), env.owner, models.GatewayFlutterwave)
	require.NoError(t, err)

	outcome := env.engine.Reconcile(context.Background(), models.GatewayFlutterwave, env.txn.TxRef, "T1")
	require.Equal(t, OutcomePermanent, outcome.Class)
	require.Equal(t, "transaction canceled", outcome.Message)

	n, err := env.repo.CountOrders(context.Background(), env.txn.CartID)
	require.NoError(t, err)
	require.Zero(t, n)

	// The live quote still settles.
	outcome = env.engine.Reconcile(context.Background(), models.GatewayFlutterwave, again.TxRef, "T1")
	require.Equal(t, OutcomeSuccess, outcome.Class)
}

func TestReconcileWithoutSelectedAddressRollsBack(t *testing.T) {
	env := seedReconcile(t)
	require.NoError(t, env.repo.DB.Where("1 = 1").Delete(&models.Shipping{}).Error)

	outcome := env.engine.Reconcile(context.Background(), models.GatewayFlutterwave, env.txn.TxRef, "T1")
	require.Equal(t, OutcomePermanent, outcome.Class)
	require.Equal(t, "no selected shipping address", outcome.Message)

	// The whole unit rolled back: still pending, cart still open, no order.
	txn, err := env.repo.FindByTxRef(context.Background(), env.txn.TxRef)
	require.NoError(t, err)
	require.Equal(t, models.TxPending, txn.Status)

	var cart models.Cart
	require.NoError(t, env.repo.DB.First(&cart, env.txn.CartID).Error)
	require.False(t, cart.Paid)

	n, err := env.repo.CountOrders(context.Background(), env.txn.CartID)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestOrderSnapshotIgnoresLaterProductEdits(t *testing.T) {
	env := seedReconcile(t)

	outcome := env.engine.Reconcile(context.Background(), models.GatewayFlutterwave, env.txn.TxRef, "T1")
	require.Equal(t, OutcomeSuccess, outcome.Class)

	require.NoError(t, env.repo.DB.Model(env.product).
		Updates(map[string]any{"title": "Backpack v2", "price": 75.00}).Error)

	order, err := env.repo.FindOrder(context.Background(), env.txn.CartID, env.txn.TxRef)
	require.NoError(t, err)
	require.Equal(t, "Backpack", order.Lines[0].Name)
	require.Equal(t, 50.00, order.Lines[0].Price)
	require.Equal(t, 104.00, order.TotalAmount)
}

func TestListOrdersScopedToOwner(t *testing.T) {
	env := seedReconcile(t)
	orders := &OrderService{Repo: env.repo}

	outcome := env.engine.Reconcile(context.Background(), models.GatewayFlutterwave, env.txn.TxRef, "T1")
	require.Equal(t, OutcomeSuccess, outcome.Class)

	mine, err := orders.List(context.Background(), env.owner)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, env.txn.TxRef, mine[0].TxRef)

	theirs, err := orders.List(context.Background(), identity.Anonymous("someone-else"))
	require.NoError(t, err)
	require.Empty(t, theirs)
}
