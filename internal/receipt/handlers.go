package receipt

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/toko-pos/internal/backend"
	"github.com/noah-isme/toko-pos/internal/common"
	"github.com/noah-isme/toko-pos/internal/obs"
	"github.com/noah-isme/toko-pos/internal/pricing"
)

// SaleSource loads persisted sales.
type SaleSource interface {
	Sale(ctx context.Context, id string) (pricing.SaleRecord, error)
}

// Handler serves receipts for saved sales.
type Handler struct {
	Sales    SaleSource
	Renderer Renderer
}

// Routes mounts GET /sales/{id}/receipt.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/sales/{id}/receipt", h.Receipt)
}

type response struct {
	Receipt       pricing.Receipt `json:"receipt"`
	TotalDiscount pricing.Money   `json:"totalDiscount"`
	Text          []string        `json:"text"`
}

// Receipt handles GET /sales/{id}/receipt. With ?format=text the printable
// receipt is returned as text/plain.
func (h *Handler) Receipt(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	rec, err := h.Sales.Sale(r.Context(), id)
	if err != nil {
		common.WriteError(w, backend.AsAppError(err, "sale"))
		return
	}
	rc := pricing.Project(rec)
	if rc.SaleID == "" {
		rc.SaleID = id
	}
	obs.ObserveReceiptFallbacks(rc.Derived)

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(h.Renderer.Text(rc)))
		return
	}
	common.Data(w, http.StatusOK, response{
		Receipt:       rc,
		TotalDiscount: rc.TotalDiscount(),
		Text:          h.Renderer.Lines(rc),
	})
}
