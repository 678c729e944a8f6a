package checkout

import (
	"errors"
	"fmt"

	"github.com/noah-isme/toko-pos/internal/pricing"
	"github.com/noah-isme/toko-pos/internal/session"
)

// ErrInvalidTransition is returned when the session's state does not allow
// the requested step.
var ErrInvalidTransition = errors.New("invalid checkout transition")

// Derive gives the pre-submission state implied by the cart alone.
func Derive(c pricing.Cart) session.State {
	if c.Len() == 0 {
		return session.Building
	}
	return session.ReadyToPay
}

func invalid(from session.State, step string) error {
	return fmt.Errorf("%s from %s: %w", step, from, ErrInvalidTransition)
}

// BeginEdit prepares s for a cart, discount or payment change. A completed
// sale is closed and a fresh empty sale begins; edits are refused while a
// submission is in flight.
func BeginEdit(s *session.Session) error {
	switch s.State {
	case session.Submitting:
		return invalid(s.State, "edit")
	case session.Completed:
		reset(s)
	}
	return nil
}

// AfterEdit recomputes the pre-submission state after an edit. Failed sessions
// become editable again and lose their error.
func AfterEdit(s *session.Session) {
	switch s.State {
	case session.Building, session.ReadyToPay, session.Failed, "":
		s.State = Derive(s.Cart)
		s.LastError = ""
	}
}

// BeginSubmit moves a payable session to Submitting.
func BeginSubmit(s *session.Session) error {
	switch s.State {
	case session.ReadyToPay, session.Failed:
	case session.Building:
		// state may lag behind a cart restored from storage
		if Derive(s.Cart) != session.ReadyToPay {
			return invalid(s.State, "submit")
		}
	default:
		return invalid(s.State, "submit")
	}
	s.State = session.Submitting
	s.LastError = ""
	return nil
}

// Complete records the saved sale and empties the cart.
func Complete(s *session.Session, saleID string) error {
	if s.State != session.Submitting {
		return invalid(s.State, "complete")
	}
	s.State = session.Completed
	s.SaleID = saleID
	s.Cart = pricing.Cart{Lines: []pricing.Line{}}
	s.OrderDiscountPct = 0
	s.Payment = session.Payment{Method: pricing.Cash}
	return nil
}

// Fail returns a submitting session to a payable state, keeping cart,
// discount and payment as they were.
func Fail(s *session.Session, reason string) error {
	if s.State != session.Submitting {
		return invalid(s.State, "fail")
	}
	s.State = session.Failed
	s.LastError = reason
	return nil
}

// Cancel clears the sale back to an empty Building session.
func Cancel(s *session.Session) error {
	if s.State == session.Submitting {
		return invalid(s.State, "cancel")
	}
	reset(s)
	return nil
}

func reset(s *session.Session) {
	s.State = session.Building
	s.Cart = pricing.Cart{Lines: []pricing.Line{}}
	s.OrderDiscountPct = 0
	s.Payment = session.Payment{Method: pricing.Cash}
	s.SaleID = ""
	s.LastError = ""
}
