package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pos/internal/backend"
	"github.com/noah-isme/toko-pos/internal/lock"
	"github.com/noah-isme/toko-pos/internal/obs"
	"github.com/noah-isme/toko-pos/internal/pricing"
	"github.com/noah-isme/toko-pos/internal/session"
)

var (
	// ErrBlocked wraps pricing.ErrEmptyCart or pricing.ErrInsufficientPayment.
	ErrBlocked = errors.New("checkout blocked")
	// ErrInProgress is returned while another submission of the same session runs.
	ErrInProgress = errors.New("checkout already in progress")
	// ErrInterrupted is returned when a session was left Submitting by a
	// submission that never finished. The session is moved to Failed.
	ErrInterrupted = errors.New("previous checkout was interrupted")
	// ErrSubmitFailed wraps the backend error of a rejected or lost sale.
	ErrSubmitFailed = errors.New("sale submission failed")
)

const interruptedReason = "previous submission did not finish; check the sales list before retrying"

// Sales persists finished sales.
type Sales interface {
	SaveSale(ctx context.Context, payload backend.SalePayload) (backend.SaleRef, error)
}

// Invalidator drops cached catalog entries for sold products.
type Invalidator interface {
	Invalidate(ctx context.Context, ids ...string)
}

// Service submits cart sessions as sales.
type Service struct {
	Sessions session.Editor
	Sales    Sales
	Catalog  Invalidator
	Log      zerolog.Logger
	// SubmitTTL bounds how long one submission may hold the checkout lock.
	SubmitTTL time.Duration
	Now       func() time.Time
}

// Result is a completed checkout.
type Result struct {
	Sale    backend.SaleRef
	Receipt pricing.Receipt
	Session *session.Session
}

func lockKey(id string) string { return "checkout:" + id }

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Submit sends the session's cart to the backend as one sale.
//
// The session is persisted as Submitting before the backend is called and
// the edit lock is not held during the call, so reads stay responsive. A
// second Submit for the same session while the first runs gets ErrInProgress.
// On failure the session becomes Failed with its cart intact; on success it
// becomes Completed with an empty cart.
func (s *Service) Submit(ctx context.Context, cashierID, id string) (Result, error) {
	ttl := s.SubmitTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	var res Result
	err := s.Sessions.Locker.TryLock(ctx, lockKey(id), ttl, func(ctx context.Context) error {
		var err error
		res, err = s.submit(ctx, cashierID, id)
		return err
	})
	if errors.Is(err, lock.ErrLocked) {
		return Result{}, fmt.Errorf("session %s: %w", id, ErrInProgress)
	}
	return res, err
}

func (s *Service) submit(ctx context.Context, cashierID, id string) (Result, error) {
	var (
		payload     backend.SalePayload
		interrupted bool
	)
	_, err := s.Sessions.Update(ctx, id, cashierID, func(sess *session.Session) error {
		if sess.State == session.Submitting {
			// the checkout lock is ours, so nobody is still submitting this
			interrupted = true
			return Fail(sess, interruptedReason)
		}
		if err := pricing.CheckoutBlock(sess.Cart, sess.Settlement()); err != nil {
			return fmt.Errorf("%w: %w", ErrBlocked, err)
		}
		if err := BeginSubmit(sess); err != nil {
			return err
		}
		payload = backend.NewSalePayload(sess.Cart.Lines, sess.Totals(), sess.Settlement(), cashierID)
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	if interrupted {
		s.Log.Warn().Str("session_id", id).Str("cashier_id", cashierID).Msg("checkout_interrupted")
		return Result{}, fmt.Errorf("session %s: %w", id, ErrInterrupted)
	}

	log := s.Log.With().
		Str("session_id", id).
		Str("cashier_id", cashierID).
		Str("method", payload.PaymentMethod).
		Int64("grand_total_minor", payload.TotalAmount.Minor()).
		Int("lines", len(payload.SaleItems)).
		Logger()

	ref, saveErr := s.Sales.SaveSale(ctx, payload)
	// the outcome must be recorded even if the caller went away
	persistCtx := context.WithoutCancel(ctx)
	if saveErr != nil {
		obs.ObserveCheckout(payload.PaymentMethod, "failed", payload.TotalAmount.Minor())
		log.Error().Err(saveErr).Msg("checkout_failed")
		if _, err := s.Sessions.Update(persistCtx, id, cashierID, func(sess *session.Session) error {
			return Fail(sess, saveErr.Error())
		}); err != nil {
			log.Error().Err(err).Msg("checkout_fail_persist")
		}
		return Result{}, fmt.Errorf("%w: %w", ErrSubmitFailed, saveErr)
	}

	sess, err := s.Sessions.Update(persistCtx, id, cashierID, func(sess *session.Session) error {
		return Complete(sess, ref.SaleID)
	})
	if err != nil {
		// the sale exists; only the session bookkeeping is lost
		log.Error().Err(err).Str("sale_id", ref.SaleID).Msg("checkout_complete_persist")
		return Result{}, fmt.Errorf("sale %s saved but session not updated: %w", ref.SaleID, err)
	}
	obs.ObserveCheckout(payload.PaymentMethod, "success", payload.TotalAmount.Minor())
	log.Info().Str("sale_id", ref.SaleID).Msg("checkout_submit")

	if s.Catalog != nil {
		ids := make([]string, 0, len(payload.SaleItems))
		for _, it := range payload.SaleItems {
			ids = append(ids, it.ProductID.String())
		}
		s.Catalog.Invalidate(persistCtx, ids...)
	}

	rec := ref.Record
	if len(rec.SaleItems) == 0 {
		rec = payload.Record(ref.SaleID, s.now())
	}
	return Result{Sale: ref, Receipt: pricing.Project(rec), Session: sess}, nil
}
