package report

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/toko-pos/internal/backend"
	"github.com/noah-isme/toko-pos/internal/common"
)

const defaultPerPage = 50

// Handler exposes sales reports.
type Handler struct {
	Svc *Service
}

// Routes mounts the report endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/reports/sales", h.Sales)
	r.Get("/reports/sale-items", h.Items)
	r.Get("/sales/mine", h.Mine)
}

// Sales handles GET /reports/sales?from=&to=&page=&limit=. The summary always
// covers the whole range; rows are paginated.
func (h *Handler) Sales(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, err := h.Svc.Range(q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, err)
		return
	}
	rep, err := h.Svc.SalesRange(r.Context(), from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	page, perPage := common.ParsePagination(r, defaultPerPage)
	total := len(rep.Rows)
	rep.Rows = pageOf(rep.Rows, page, perPage)
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       rep,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: total},
	})
}

// Items handles GET /reports/sale-items?from=&to=&page=&limit=.
func (h *Handler) Items(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, err := h.Svc.Range(q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, err)
		return
	}
	rep, err := h.Svc.ItemsRange(r.Context(), from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	page, perPage := common.ParsePagination(r, defaultPerPage)
	total := len(rep.Rows)
	rep.Rows = pageOf(rep.Rows, page, perPage)
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       rep,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: total},
	})
}

// Mine handles GET /sales/mine?method=&today=&q=&page=&limit=: the signed-in
// cashier's own sales.
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok || userID == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return
	}
	q := r.URL.Query()
	today, _ := strconv.ParseBool(q.Get("today"))
	rep, err := h.Svc.History(r.Context(), userID, HistoryFilter{
		Method: q.Get("method"),
		Today:  today,
		Query:  q.Get("q"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	page, perPage := common.ParsePagination(r, defaultPerPage)
	total := len(rep.Rows)
	rep.Rows = pageOf(rep.Rows, page, perPage)
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       rep,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: total},
	})
}

func pageOf[T any](rows []T, page, perPage int) []T {
	start := (page - 1) * perPage
	if start >= len(rows) {
		return []T{}
	}
	return rows[start:min(start+perPage, len(rows))]
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrInvalidRange) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	common.WriteError(w, backend.AsAppError(err, "sales"))
}
