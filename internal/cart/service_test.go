package cart

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pos/internal/backend"
	"github.com/noah-isme/toko-pos/internal/catalog"
	"github.com/noah-isme/toko-pos/internal/checkout"
	"github.com/noah-isme/toko-pos/internal/lock"
	"github.com/noah-isme/toko-pos/internal/pricing"
	"github.com/noah-isme/toko-pos/internal/session"
)

type fakeProducts map[string]backend.Product

func (f fakeProducts) ForSale(_ context.Context, id string) (pricing.Product, error) {
	p, ok := f[id]
	if !ok {
		return pricing.Product{}, backend.ErrNotFound
	}
	if !p.IsActive {
		return pricing.Product{}, catalog.ErrInactive
	}
	return p.Pricing(), nil
}

func (f fakeProducts) ByBarcode(_ context.Context, code string) (backend.Product, error) {
	for _, p := range f {
		if p.Barcode == code {
			return p, nil
		}
	}
	return backend.Product{}, backend.ErrNotFound
}

func testProducts() fakeProducts {
	return fakeProducts{
		"7":  {ProductID: "7", Barcode: "4790001", ProductName: "Tea", SalePrice: 45000, Qty: 4, IsActive: true, TrackInventory: true},
		"8":  {ProductID: "8", Barcode: "4790008", ProductName: "Sugar", SalePrice: 30000, Qty: 10, IsActive: true, TrackInventory: true},
		"0":  {ProductID: "0", ProductName: "Sold out", SalePrice: 1000, Qty: 0, IsActive: true, TrackInventory: true},
		"99": {ProductID: "99", ProductName: "Retired", SalePrice: 1000, Qty: 5, IsActive: false, TrackInventory: true},
	}
}

func newService(t *testing.T) (*Service, session.RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := session.RedisStore{R: client, TTL: time.Hour}
	return &Service{
		Sessions: session.Editor{
			Store:  store,
			Locker: lock.Locker{R: client, Prefix: "pos:lock:"},
		},
		Products: testProducts(),
	}, store
}

func TestAddItemMergesAndDerivesState(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	s, err := svc.Create(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, session.Building, s.State)

	s, err = svc.AddItem(ctx, "c1", s.ID, AddInput{ProductID: "7", Qty: 2, Discount: 5000})
	require.NoError(t, err)
	require.Equal(t, session.ReadyToPay, s.State)
	require.Len(t, s.Cart.Lines, 1)
	require.Equal(t, pricing.Money(40000), s.Cart.Lines[0].UnitPrice)

	s, err = svc.AddItem(ctx, "c1", s.ID, AddInput{Barcode: "4790001", Qty: 1})
	require.NoError(t, err)
	require.Len(t, s.Cart.Lines, 1)
	require.Equal(t, 3, s.Cart.Lines[0].Qty)
	require.Equal(t, pricing.Money(0), s.Cart.Lines[0].Discount)

	s, err = svc.AddItem(ctx, "c1", s.ID, AddInput{ProductID: "8"})
	require.NoError(t, err)
	require.Equal(t, 4, s.Cart.ItemCount())

	got, err := svc.Get(ctx, "c1", s.ID)
	require.NoError(t, err)
	require.Equal(t, s.Cart, got.Cart)
}

func TestAddItemRejections(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	s, err := svc.Create(ctx, "c1")
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, "c1", s.ID, AddInput{ProductID: "0", Qty: 1})
	require.ErrorIs(t, err, pricing.ErrOutOfStock)

	_, err = svc.AddItem(ctx, "c1", s.ID, AddInput{ProductID: "99", Qty: 1})
	require.ErrorIs(t, err, catalog.ErrInactive)

	_, err = svc.AddItem(ctx, "c1", s.ID, AddInput{Barcode: "nope"})
	require.ErrorIs(t, err, backend.ErrNotFound)

	_, err = svc.AddItem(ctx, "c1", s.ID, AddInput{})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.AddItem(ctx, "c2", s.ID, AddInput{ProductID: "7"})
	require.ErrorIs(t, err, session.ErrNotOwner)

	_, err = svc.AddItem(ctx, "c1", "missing", AddInput{ProductID: "7"})
	require.ErrorIs(t, err, session.ErrNotFound)

	got, err := svc.Get(ctx, "c1", s.ID)
	require.NoError(t, err)
	require.Zero(t, got.Cart.Len())
}

func TestChangeQtyAndRemove(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	s, _ := svc.Create(ctx, "c1")
	s, err := svc.AddItem(ctx, "c1", s.ID, AddInput{ProductID: "7", Qty: 2})
	require.NoError(t, err)

	s, err = svc.ChangeQty(ctx, "c1", s.ID, "7", 5)
	require.NoError(t, err)
	require.Equal(t, 4, s.Cart.Lines[0].Qty)

	s, err = svc.ChangeQty(ctx, "c1", s.ID, "7", -4)
	require.NoError(t, err)
	require.Zero(t, s.Cart.Len())
	require.Equal(t, session.Building, s.State)

	_, err = svc.ChangeQty(ctx, "c1", s.ID, "7", 1)
	require.ErrorIs(t, err, ErrLineNotFound)
	_, err = svc.RemoveItem(ctx, "c1", s.ID, "7")
	require.ErrorIs(t, err, ErrLineNotFound)

	s, err = svc.AddItem(ctx, "c1", s.ID, AddInput{ProductID: "8", Qty: 3})
	require.NoError(t, err)
	s, err = svc.RemoveItem(ctx, "c1", s.ID, "8")
	require.NoError(t, err)
	require.Zero(t, s.Cart.Len())
}

func TestOrderDiscountAndPayment(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	s, _ := svc.Create(ctx, "c1")
	s, _ = svc.AddItem(ctx, "c1", s.ID, AddInput{ProductID: "8", Qty: 2})

	s, err := svc.SetOrderDiscount(ctx, "c1", s.ID, 150)
	require.NoError(t, err)
	require.Equal(t, 100.0, s.OrderDiscountPct)
	s, err = svc.SetOrderDiscount(ctx, "c1", s.ID, 10)
	require.NoError(t, err)
	require.Equal(t, pricing.Money(54000), s.Totals().GrandTotal)

	s, err = svc.SetPayment(ctx, "c1", s.ID, "cash", 50000)
	require.NoError(t, err)
	v := s.View("LKR")
	require.False(t, v.CanCheckout)
	require.Equal(t, "INSUFFICIENT_PAYMENT", v.BlockReason)

	s, err = svc.SetPayment(ctx, "c1", s.ID, "cash", 60000)
	require.NoError(t, err)
	v = s.View("LKR")
	require.True(t, v.CanCheckout)
	require.Equal(t, pricing.Money(6000), v.Settlement.Balance)

	s, err = svc.SetPayment(ctx, "c1", s.ID, "card", -5)
	require.NoError(t, err)
	require.Equal(t, pricing.Card, s.Payment.Method)
	require.Equal(t, pricing.Money(0), s.Payment.Tendered)

	_, err = svc.SetPayment(ctx, "c1", s.ID, "cheque", 0)
	require.ErrorIs(t, err, pricing.ErrUnknownPaymentMethod)
}

func TestEditsRefusedWhileSubmitting(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	s, _ := svc.Create(ctx, "c1")
	s, _ = svc.AddItem(ctx, "c1", s.ID, AddInput{ProductID: "7"})
	require.NoError(t, checkout.BeginSubmit(s))
	require.NoError(t, store.Save(ctx, s))

	_, err := svc.AddItem(ctx, "c1", s.ID, AddInput{ProductID: "8"})
	require.ErrorIs(t, err, checkout.ErrInvalidTransition)
	_, err = svc.Cancel(ctx, "c1", s.ID)
	require.ErrorIs(t, err, checkout.ErrInvalidTransition)

	got, err := svc.Get(ctx, "c1", s.ID)
	require.NoError(t, err)
	require.Equal(t, session.Submitting, got.State)
	require.Equal(t, 1, got.Cart.Len())
}

func TestEditAfterCompletionStartsFreshSale(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	s, _ := svc.Create(ctx, "c1")
	s, _ = svc.AddItem(ctx, "c1", s.ID, AddInput{ProductID: "7"})
	require.NoError(t, checkout.BeginSubmit(s))
	require.NoError(t, checkout.Complete(s, "S-1"))
	require.NoError(t, store.Save(ctx, s))

	s, err := svc.AddItem(ctx, "c1", s.ID, AddInput{ProductID: "8", Qty: 2})
	require.NoError(t, err)
	require.Equal(t, session.ReadyToPay, s.State)
	require.Empty(t, s.SaleID)
	require.Len(t, s.Cart.Lines, 1)
	require.Equal(t, "8", s.Cart.Lines[0].ProductID)
}

func TestCancelDropsCompletedSale(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	s, _ := svc.Create(ctx, "c1")
	s, _ = svc.AddItem(ctx, "c1", s.ID, AddInput{ProductID: "7"})
	require.NoError(t, checkout.BeginSubmit(s))
	require.NoError(t, checkout.Complete(s, "S-9"))
	require.NoError(t, store.Save(ctx, s))

	_, err := svc.Cancel(ctx, "c2", s.ID)
	require.ErrorIs(t, err, session.ErrNotOwner)

	got, err := svc.Cancel(ctx, "c1", s.ID)
	require.NoError(t, err)
	require.Nil(t, got)
	_, err = store.Get(ctx, s.ID)
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestCancelClearsSale(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	s, _ := svc.Create(ctx, "c1")
	s, _ = svc.AddItem(ctx, "c1", s.ID, AddInput{ProductID: "7"})
	s, _ = svc.SetOrderDiscount(ctx, "c1", s.ID, 5)

	s, err := svc.Cancel(ctx, "c1", s.ID)
	require.NoError(t, err)
	require.Equal(t, session.Building, s.State)
	require.Zero(t, s.Cart.Len())
	require.Zero(t, s.OrderDiscountPct)
}
