package checkout

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/toko-pos/internal/backend"
	"github.com/noah-isme/toko-pos/internal/common"
	"github.com/noah-isme/toko-pos/internal/lock"
	"github.com/noah-isme/toko-pos/internal/pricing"
	"github.com/noah-isme/toko-pos/internal/session"
)

// Handler exposes checkout submission.
type Handler struct {
	Svc      *Service
	Currency string
	// Idem replays duplicate submissions carrying the same Idempotency-Key.
	Idem func(http.Handler) http.Handler
}

// Routes mounts POST /carts/{id}/checkout.
func (h *Handler) Routes(r chi.Router) {
	if h.Idem != nil {
		r.With(h.Idem).Post("/carts/{id}/checkout", h.Submit)
		return
	}
	r.Post("/carts/{id}/checkout", h.Submit)
}

type submitResponse struct {
	SaleID     string          `json:"saleId"`
	StatusCode int             `json:"statusCode,omitempty"`
	Receipt    pricing.Receipt `json:"receipt"`
	Display    string          `json:"grandTotalDisplay"`
	Session    session.View    `json:"session"`
}

// Submit handles POST /carts/{id}/checkout.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	cashierID, _ := common.UserID(r.Context())
	res, err := h.Svc.Submit(r.Context(), cashierID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, submitResponse{
		SaleID:     res.Sale.SaleID,
		StatusCode: res.Sale.StatusCode,
		Receipt:    res.Receipt,
		Display:    pricing.Format(res.Receipt.GrandTotal, h.Currency),
		Session:    res.Session.View(h.Currency),
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBlocked):
		common.JSONError(w, http.StatusConflict, "CHECKOUT_BLOCKED", "checkout is not allowed yet",
			map[string]any{"reason": session.BlockReason(err)})
	case errors.Is(err, ErrInProgress), errors.Is(err, lock.ErrLocked):
		common.JSONError(w, http.StatusConflict, "CHECKOUT_IN_PROGRESS", "a checkout for this cart is already running", nil)
	case errors.Is(err, ErrInterrupted):
		common.JSONError(w, http.StatusConflict, "CHECKOUT_INTERRUPTED", interruptedReason, nil)
	case errors.Is(err, ErrInvalidTransition):
		common.JSONError(w, http.StatusConflict, "INVALID_STATE", "cart is not ready for checkout", nil)
	case errors.Is(err, session.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
	case errors.Is(err, session.ErrNotOwner):
		common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "cart belongs to another cashier", nil)
	case errors.Is(err, ErrSubmitFailed):
		appErr := backend.AsAppError(err, "sale")
		if appErr.HTTPStatus < http.StatusInternalServerError {
			// a rejected sale is still a failed checkout from the till's view
			appErr = common.NewAppError("CHECKOUT_FAILED", "the sale was not saved", http.StatusBadGateway, err).
				WithDetails(map[string]any{"upstream": appErr.Code})
		}
		common.WriteError(w, appErr)
	default:
		common.WriteError(w, backend.AsAppError(err, "cart"))
	}
}
