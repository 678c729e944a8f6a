package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/toko-pos/internal/backend"
	"github.com/noah-isme/toko-pos/internal/checkout"
	"github.com/noah-isme/toko-pos/internal/pricing"
	"github.com/noah-isme/toko-pos/internal/session"
)

// ErrInvalidInput is returned when an item reference is missing.
var ErrInvalidInput = errors.New("invalid input")

// ErrLineNotFound is returned when editing a product that is not in the cart.
var ErrLineNotFound = errors.New("line not found")

// Products resolves items scanned or picked at the till.
type Products interface {
	ForSale(ctx context.Context, id string) (pricing.Product, error)
	ByBarcode(ctx context.Context, code string) (backend.Product, error)
}

// Service applies cashier edits to cart sessions.
type Service struct {
	Sessions session.Editor
	Products Products
}

// AddInput identifies a product by id or barcode.
type AddInput struct {
	ProductID string        `json:"productId" validate:"required_without=Barcode"`
	Barcode   string        `json:"barcode" validate:"required_without=ProductID"`
	Qty       int           `json:"qty"`
	Discount  pricing.Money `json:"discount"`
}

// Create opens a new sale for cashierID.
func (s *Service) Create(ctx context.Context, cashierID string) (*session.Session, error) {
	return s.Sessions.Create(ctx, cashierID)
}

// Get loads a sale.
func (s *Service) Get(ctx context.Context, cashierID, id string) (*session.Session, error) {
	return s.Sessions.Load(ctx, id, cashierID)
}

// Cancel empties the sale. A completed sale has nothing left to clear, so
// its session is dropped and Cancel returns a nil session.
func (s *Service) Cancel(ctx context.Context, cashierID, id string) (*session.Session, error) {
	removed, err := s.Sessions.Remove(ctx, id, cashierID, func(sess *session.Session) bool {
		return sess.State == session.Completed
	})
	if err != nil || removed {
		return nil, err
	}
	return s.Sessions.Update(ctx, id, cashierID, checkout.Cancel)
}

// AddItem adds a product to the cart. Quantity and discount are clamped to
// what the product allows; a product with no stock is refused.
func (s *Service) AddItem(ctx context.Context, cashierID, id string, in AddInput) (*session.Session, error) {
	product, err := s.resolve(ctx, in)
	if err != nil {
		return nil, err
	}
	qty := in.Qty
	if qty == 0 {
		qty = 1
	}
	return s.edit(ctx, cashierID, id, func(sess *session.Session) error {
		next, err := sess.Cart.Add(product, qty, in.Discount)
		if err != nil {
			return fmt.Errorf("add %s: %w", product.ID, err)
		}
		sess.Cart = next
		return nil
	})
}

// ChangeQty moves a line's quantity by delta; reaching zero removes it.
func (s *Service) ChangeQty(ctx context.Context, cashierID, id, productID string, delta int) (*session.Session, error) {
	return s.edit(ctx, cashierID, id, func(sess *session.Session) error {
		if _, ok := sess.Cart.Line(productID); !ok {
			return fmt.Errorf("product %s: %w", productID, ErrLineNotFound)
		}
		sess.Cart = sess.Cart.ChangeQty(productID, delta)
		return nil
	})
}

// RemoveItem drops a line.
func (s *Service) RemoveItem(ctx context.Context, cashierID, id, productID string) (*session.Session, error) {
	return s.edit(ctx, cashierID, id, func(sess *session.Session) error {
		if _, ok := sess.Cart.Line(productID); !ok {
			return fmt.Errorf("product %s: %w", productID, ErrLineNotFound)
		}
		sess.Cart = sess.Cart.Remove(productID)
		return nil
	})
}

// SetOrderDiscount sets the order-wide percentage, clamped to [0, 100].
func (s *Service) SetOrderDiscount(ctx context.Context, cashierID, id string, pct float64) (*session.Session, error) {
	return s.edit(ctx, cashierID, id, func(sess *session.Session) error {
		sess.OrderDiscountPct = pricing.ClampPercent(pct)
		return nil
	})
}

// SetPayment records the payment method and amount tendered.
func (s *Service) SetPayment(ctx context.Context, cashierID, id, method string, tendered pricing.Money) (*session.Session, error) {
	m, err := pricing.ParsePaymentMethod(method)
	if err != nil {
		return nil, err
	}
	if tendered < 0 {
		tendered = 0
	}
	return s.edit(ctx, cashierID, id, func(sess *session.Session) error {
		sess.Payment = session.Payment{Method: m, Tendered: tendered}
		return nil
	})
}

func (s *Service) edit(ctx context.Context, cashierID, id string, fn func(*session.Session) error) (*session.Session, error) {
	return s.Sessions.Update(ctx, id, cashierID, func(sess *session.Session) error {
		if err := checkout.BeginEdit(sess); err != nil {
			return err
		}
		if err := fn(sess); err != nil {
			return err
		}
		checkout.AfterEdit(sess)
		return nil
	})
}

func (s *Service) resolve(ctx context.Context, in AddInput) (pricing.Product, error) {
	id := strings.TrimSpace(in.ProductID)
	if id == "" {
		code := strings.TrimSpace(in.Barcode)
		if code == "" {
			return pricing.Product{}, fmt.Errorf("productId or barcode required: %w", ErrInvalidInput)
		}
		p, err := s.Products.ByBarcode(ctx, code)
		if err != nil {
			return pricing.Product{}, err
		}
		id = p.ProductID.String()
	}
	return s.Products.ForSale(ctx, id)
}
