package cart

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/toko-pos/internal/backend"
	"github.com/noah-isme/toko-pos/internal/catalog"
	"github.com/noah-isme/toko-pos/internal/checkout"
	"github.com/noah-isme/toko-pos/internal/common"
	"github.com/noah-isme/toko-pos/internal/lock"
	"github.com/noah-isme/toko-pos/internal/pricing"
	"github.com/noah-isme/toko-pos/internal/session"
)

// Handler wires cart sessions to HTTP.
type Handler struct {
	Svc      *Service
	Currency string
}

// Routes mounts cart editing under /carts and the stateless pricing helpers
// under /pricing.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/carts", h.Create)
	r.Get("/carts/{id}", h.Get)
	r.Delete("/carts/{id}", h.Cancel)
	r.Post("/carts/{id}/items", h.AddItem)
	r.Patch("/carts/{id}/items/{productId}", h.ChangeQty)
	r.Delete("/carts/{id}/items/{productId}", h.RemoveItem)
	r.Put("/carts/{id}/order-discount", h.SetOrderDiscount)
	r.Put("/carts/{id}/payment", h.SetPayment)
	r.Get("/pricing/discount-step", h.DiscountStep)
	r.Post("/pricing/quote", h.Quote)
}

func cashier(r *http.Request) string {
	id, _ := common.UserID(r.Context())
	return id
}

// Create handles POST /carts.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	s, err := h.Svc.Create(r.Context(), cashier(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, s.View(h.Currency))
}

// Get handles GET /carts/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.Svc.Get(r.Context(), cashier(r), chi.URLParam(r, "id"))
	h.respond(w, s, err)
}

// Cancel handles DELETE /carts/{id}. Closing a completed sale answers 204.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	s, err := h.Svc.Cancel(r.Context(), cashier(r), chi.URLParam(r, "id"))
	if err == nil && s == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.respond(w, s, err)
}

// AddItem handles POST /carts/{id}/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var in AddInput
	if err := common.DecodeAndValidate(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	s, err := h.Svc.AddItem(r.Context(), cashier(r), chi.URLParam(r, "id"), in)
	h.respond(w, s, err)
}

// ChangeQty handles PATCH /carts/{id}/items/{productId}.
func (h *Handler) ChangeQty(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Delta int `json:"delta" validate:"ne=0"`
	}
	if err := common.DecodeAndValidate(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	s, err := h.Svc.ChangeQty(r.Context(), cashier(r), chi.URLParam(r, "id"), chi.URLParam(r, "productId"), in.Delta)
	h.respond(w, s, err)
}

// RemoveItem handles DELETE /carts/{id}/items/{productId}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	s, err := h.Svc.RemoveItem(r.Context(), cashier(r), chi.URLParam(r, "id"), chi.URLParam(r, "productId"))
	h.respond(w, s, err)
}

// SetOrderDiscount handles PUT /carts/{id}/order-discount.
func (h *Handler) SetOrderDiscount(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Percentage float64 `json:"percentage"`
	}
	if err := common.DecodeAndValidate(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	s, err := h.Svc.SetOrderDiscount(r.Context(), cashier(r), chi.URLParam(r, "id"), in.Percentage)
	h.respond(w, s, err)
}

// SetPayment handles PUT /carts/{id}/payment.
func (h *Handler) SetPayment(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Method   string        `json:"method"`
		Tendered pricing.Money `json:"tendered"`
	}
	if err := common.DecodeAndValidate(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	s, err := h.Svc.SetPayment(r.Context(), cashier(r), chi.URLParam(r, "id"), in.Method, in.Tendered)
	h.respond(w, s, err)
}

// DiscountStep handles GET /pricing/discount-step?subtotal=.
func (h *Handler) DiscountStep(w http.ResponseWriter, r *http.Request) {
	var subtotal pricing.Money
	if raw := r.URL.Query().Get("subtotal"); raw != "" {
		if err := subtotal.UnmarshalJSON([]byte(strconv.Quote(raw))); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "subtotal must be a number", nil)
			return
		}
	}
	common.Data(w, http.StatusOK, map[string]any{
		"subtotal": subtotal,
		"step":     pricing.DiscountStep(subtotal),
	})
}

type quoteLine struct {
	ProductID    string        `json:"productId" validate:"required"`
	UnitPrice    pricing.Money `json:"unitPrice"`
	AvailableQty int           `json:"availableQty"`
	Qty          int           `json:"qty"`
	Discount     pricing.Money `json:"discount"`
}

// Quote handles POST /pricing/quote: it prices a list of lines without
// touching any session, as the add-to-cart dialog previews.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Lines            []quoteLine   `json:"lines" validate:"dive"`
		OrderDiscountPct float64       `json:"orderDiscountPercentage"`
		Method           string        `json:"method"`
		Tendered         pricing.Money `json:"tendered"`
	}
	if err := common.DecodeAndValidate(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	method, err := pricing.ParsePaymentMethod(in.Method)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var c pricing.Cart
	rejected := []string{}
	for _, l := range in.Lines {
		// Without a stock figure the requested quantity is assumed available,
		// so a zero or negative qty still clamps to one unit.
		available := l.AvailableQty
		if available <= 0 {
			available = max(l.Qty, 1)
		}
		next, err := c.Add(pricing.Product{ID: l.ProductID, UnitPrice: l.UnitPrice, AvailableQty: available}, l.Qty, l.Discount)
		if err != nil {
			rejected = append(rejected, l.ProductID)
			continue
		}
		c = next
	}
	totals := c.Totals(in.OrderDiscountPct)
	settle := pricing.Settle(totals.GrandTotal, in.Tendered, method)
	block := pricing.CheckoutBlock(c, settle)
	common.Data(w, http.StatusOK, map[string]any{
		"lines":         c.Lines,
		"totals":        totals,
		"totalDiscount": totals.TotalDiscount(),
		"settlement":    settle,
		"canCheckout":   block == nil,
		"blockReason":   session.BlockReason(block),
		"display":       pricing.Format(totals.GrandTotal, h.Currency),
		"rejected":      rejected,
	})
}

func (h *Handler) respond(w http.ResponseWriter, s *session.Session, err error) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, s.View(h.Currency))
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
	case errors.Is(err, session.ErrNotOwner):
		common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "cart belongs to another cashier", nil)
	case errors.Is(err, ErrLineNotFound):
		common.JSONError(w, http.StatusNotFound, "LINE_NOT_FOUND", "product is not in the cart", nil)
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, pricing.ErrOutOfStock):
		common.JSONError(w, http.StatusConflict, "OUT_OF_STOCK", "product is out of stock", nil)
	case errors.Is(err, pricing.ErrUnknownPaymentMethod):
		common.JSONError(w, http.StatusBadRequest, "UNKNOWN_PAYMENT_METHOD", err.Error(), nil)
	case errors.Is(err, checkout.ErrInvalidTransition):
		common.JSONError(w, http.StatusConflict, "INVALID_STATE", "cart cannot be changed while a sale is being submitted", nil)
	case errors.Is(err, catalog.ErrInactive):
		common.JSONError(w, http.StatusUnprocessableEntity, "PRODUCT_INACTIVE", "product is not on sale", nil)
	case errors.Is(err, lock.ErrLocked):
		common.JSONError(w, http.StatusConflict, "BUSY", "cart is being updated", nil)
	default:
		common.WriteError(w, backend.AsAppError(err, "product"))
	}
}
