package catalog

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/toko-pos/internal/backend"
	"github.com/noah-isme/toko-pos/internal/common"
)

// Handler exposes product lookups to the till.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the catalog endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/products", h.Products)
	r.Get("/products/{id}", h.Product)
	r.Get("/products/barcode/{code}", h.Barcode)
	r.Get("/categories", h.Categories)
	r.Get("/brands", h.Brands)
}

// Products handles GET /products?q=&categoryId=&brandId=.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.service.Search(r.Context(),
		strings.TrimSpace(q.Get("q")),
		strings.TrimSpace(q.Get("categoryId")),
		strings.TrimSpace(q.Get("brandId")),
	)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, items)
}

// Product handles GET /products/{id}.
func (h *Handler) Product(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Product(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, p)
}

// Barcode handles GET /products/barcode/{code}.
func (h *Handler) Barcode(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	if code == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "barcode is required", nil)
		return
	}
	p, err := h.service.ByBarcode(r.Context(), code)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, p)
}

// Categories handles GET /categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.Categories(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, rows)
}

// Brands handles GET /brands.
func (h *Handler) Brands(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.Brands(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, rows)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrInactive) {
		common.JSONError(w, http.StatusUnprocessableEntity, "PRODUCT_INACTIVE", "product is not on sale", nil)
		return
	}
	common.WriteError(w, backend.AsAppError(err, "product"))
}
