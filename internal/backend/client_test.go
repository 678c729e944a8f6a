package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pos/internal/common"
	"github.com/noah-isme/toko-pos/internal/pricing"
	"github.com/noah-isme/toko-pos/internal/resilience"
)

const productsJSON = `{"productDTOList":[
 {"productId":"7","barcode":"4790001","productName":"Tea 100g","categoryId":1,"brandId":2,"cost":300,"salePrice":"450.00","qty":12,"isActive":true,"trackInventory":true},
 {"productId":8,"barcode":"4790002","productName":"Sugar","categoryId":1,"brandId":3,"cost":null,"salePrice":250.5,"qty":0,"isActive":true,"trackInventory":false}
]}`

type fakeBackend struct {
	t        *testing.T
	lastAuth string
	sale     map[string]any
	posts    int
}

func (f *fakeBackend) router() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			f.lastAuth = r.Header.Get("Authorization")
			next.ServeHTTP(w, r)
		})
	})
	r.Get("/products/active", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, productsJSON)
	})
	r.Get("/products/search", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "4790001" {
			_, _ = io.WriteString(w, `[{"productId":"7","barcode":"4790001","productName":"Tea 100g","salePrice":450,"qty":12,"trackInventory":true}]`)
			return
		}
		_, _ = io.WriteString(w, `{"productDTOList":[]}`)
	})
	r.Get("/products/by-category-brand", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(f.t, "1", r.URL.Query().Get("categoryId"))
		require.Empty(f.t, r.URL.Query().Get("brandId"))
		_, _ = io.WriteString(w, productsJSON)
	})
	r.Get("/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "id") != "7" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"message":"Product not found"}`)
			return
		}
		_, _ = io.WriteString(w, `{"productDTO":{"productId":"7","barcode":"4790001","productName":"Tea 100g","salePrice":450,"qty":12,"trackInventory":true}}`)
	})
	r.Get("/categories", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"categoryDTOList":[{"categoryId":1,"categoryName":"Grocery"}]}`)
	})
	r.Get("/brands", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"brandDTOList":null}`)
	})
	r.Post("/sales", func(w http.ResponseWriter, r *http.Request) {
		f.posts++
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&f.sale))
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"statusCode":201,"saleDTO":{"saleId":55,"totalAmount":"1710.00","saleItems":[]}}`)
	})
	r.Get("/sales/date-range", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(f.t, "custom", q.Get("rangeType"))
		require.Equal(f.t, "2026-10-01", q.Get("startDate"))
		require.Equal(f.t, "2026-10-15", q.Get("endDate"))
		_, _ = io.WriteString(w, `{"saleDTOList":[{"saleId":1},{"saleId":"2"}]}`)
	})
	r.Get("/sales/user/{id}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "id") != "4" {
			_, _ = io.WriteString(w, `{"saleDTOList":null}`)
			return
		}
		_, _ = io.WriteString(w, `{"saleDTOList":[{"saleId":31,"userId":4,"paymentMethod":"CARD"},{"saleId":"32","userId":"4"}]}`)
	})
	r.Get("/sales/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"saleId":"`+chi.URLParam(r, "id")+`","orderDiscount":"10.00"}`)
	})
	return r
}

func newClient(t *testing.T) (*Client, *fakeBackend) {
	t.Helper()
	fb := &fakeBackend{t: t}
	srv := httptest.NewServer(fb.router())
	t.Cleanup(srv.Close)
	doer := resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 1}
	return NewClient(srv.URL+"/", doer, zerolog.Nop()), fb
}

func TestProductEnvelopeAndNotFound(t *testing.T) {
	c, fb := newClient(t)
	ctx := common.WithBearerToken(context.Background(), "tok")

	p, err := c.Product(ctx, "7")
	require.NoError(t, err)
	require.Equal(t, "Bearer tok", fb.lastAuth)
	require.Equal(t, pricing.Product{ID: "7", Name: "Tea 100g", UnitPrice: 45000, AvailableQty: 12}, p.Pricing())

	_, err = c.Product(ctx, "99")
	require.ErrorIs(t, err, ErrNotFound)
	var serr *StatusError
	require.True(t, errors.As(err, &serr))
	require.Equal(t, http.StatusNotFound, serr.Status)
}

func TestActiveProductsMixedIDs(t *testing.T) {
	c, _ := newClient(t)
	products, err := c.ActiveProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	require.Equal(t, ID("8"), products[1].ProductID)
	require.Equal(t, pricing.Money(25050), products[1].SalePrice)
	require.Equal(t, untrackedStock, products[1].Pricing().AvailableQty)
}

func TestProductByBarcode(t *testing.T) {
	c, _ := newClient(t)
	ctx := context.Background()

	p, err := c.ProductByBarcode(ctx, " 4790001 ")
	require.NoError(t, err)
	require.Equal(t, ID("7"), p.ProductID)

	// not returned by search, found in the active list
	p, err = c.ProductByBarcode(ctx, "4790002")
	require.NoError(t, err)
	require.Equal(t, "Sugar", p.ProductName)

	_, err = c.ProductByBarcode(ctx, "000")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSearchByCategory(t *testing.T) {
	c, _ := newClient(t)
	products, err := c.SearchProducts(context.Background(), "", "1", "")
	require.NoError(t, err)
	require.Len(t, products, 2)
}

func TestCategoriesAndBrands(t *testing.T) {
	c, _ := newClient(t)
	cats, err := c.Categories(context.Background())
	require.NoError(t, err)
	require.Equal(t, []Category{{CategoryID: "1", CategoryName: "Grocery"}}, cats)

	brands, err := c.Brands(context.Background())
	require.NoError(t, err)
	require.Empty(t, brands)
}

func TestSaveSaleSendsPayloadOnce(t *testing.T) {
	c, fb := newClient(t)
	cart := pricing.Cart{}
	cart, err := cart.Add(pricing.Product{ID: "7", UnitPrice: 50000, AvailableQty: 5}, 2, 5000)
	require.NoError(t, err)
	cart, err = cart.Add(pricing.Product{ID: "8", UnitPrice: 100000, AvailableQty: 5}, 1, 0)
	require.NoError(t, err)
	totals := cart.Totals(10)
	settle := pricing.Settle(totals.GrandTotal, 200000, pricing.Cash)

	ref, err := c.SaveSale(context.Background(), NewSalePayload(cart.Lines, totals, settle, "3"))
	require.NoError(t, err)
	require.Equal(t, "55", ref.SaleID)
	require.Equal(t, 201, ref.StatusCode)
	require.Equal(t, 1, fb.posts)

	require.Equal(t, "CASH", fb.sale["paymentMethod"])
	require.Equal(t, 1710.0, fb.sale["totalAmount"])
	require.Equal(t, 290.0, fb.sale["totalDiscount"])
	require.Equal(t, 290.0, fb.sale["balance"])
	require.Equal(t, 3.0, fb.sale["userId"])
	items := fb.sale["saleItems"].([]any)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	require.Equal(t, 7.0, first["productId"])
	require.Equal(t, 450.0, first["price"])
	require.Equal(t, 50.0, first["discount"])
	require.Equal(t, 900.0, first["totalPrice"])
}

func TestPayloadRecordProjectsLikeTheCart(t *testing.T) {
	cart, err := pricing.Cart{}.Add(pricing.Product{ID: "7", Name: "Tea", UnitPrice: 50000, AvailableQty: 5}, 2, 5000)
	require.NoError(t, err)
	totals := cart.Totals(10)
	settle := pricing.Settle(totals.GrandTotal, 100000, pricing.Cash)
	payload := NewSalePayload(cart.Lines, totals, settle, "3")

	at := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	rec := payload.Record("55", at)
	receipt := pricing.Project(rec)
	require.Empty(t, receipt.Derived)
	require.Equal(t, "55", receipt.SaleID)
	require.Equal(t, "3", receipt.CashierID)
	require.Equal(t, "2026-10-15T10:00:00Z", receipt.SaleDate)
	require.Equal(t, totals.GrandTotal, receipt.GrandTotal)
	require.Equal(t, totals.OrderDiscount, receipt.OrderDiscount)
	require.Equal(t, settle.Balance, receipt.Balance)
	require.Len(t, receipt.Lines, 1)
	require.Equal(t, "Tea", receipt.Lines[0].Name)
	require.Equal(t, pricing.Money(50000), receipt.Lines[0].OriginalUnitPrice)
}

func TestSaveSaleServerErrorNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 3, BaseBackoff: time.Millisecond}, zerolog.Nop())

	_, err := c.SaveSale(context.Background(), SalePayload{})
	var serr *StatusError
	require.True(t, errors.As(err, &serr))
	require.Equal(t, http.StatusBadGateway, serr.Status)
	require.Equal(t, 1, calls)
}

func TestSaleAndRange(t *testing.T) {
	c, _ := newClient(t)
	rec, err := c.Sale(context.Background(), "12")
	require.NoError(t, err)
	require.Equal(t, "12", rec.SaleID.Text())
	od, ok := rec.OrderDiscount.Money()
	require.True(t, ok)
	require.Equal(t, pricing.Money(1000), od)

	from := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	sales, err := c.SalesInRange(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, sales, 2)
	require.Equal(t, "2", sales[1].SaleID.Text())
}

func TestSalesByUser(t *testing.T) {
	c, fb := newClient(t)
	ctx := common.WithBearerToken(context.Background(), "till-4")
	sales, err := c.SalesByUser(ctx, "4")
	require.NoError(t, err)
	require.Equal(t, "Bearer till-4", fb.lastAuth)
	require.Len(t, sales, 2)
	require.Equal(t, "31", sales[0].SaleID.Text())
	require.Equal(t, "CARD", sales[0].PaymentMethod)
	require.Equal(t, "4", sales[1].UserID.Text())

	none, err := c.SalesByUser(ctx, "9")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestIDJSON(t *testing.T) {
	raw, err := json.Marshal([]ID{"12", "A-1", ""})
	require.NoError(t, err)
	require.JSONEq(t, `[12,"A-1",null]`, string(raw))
}

func TestAsAppError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{&StatusError{Status: 404}, http.StatusNotFound, "NOT_FOUND"},
		{resilience.ErrOpenCircuit, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE"},
		{&StatusError{Status: 401}, http.StatusUnauthorized, "UPSTREAM_UNAUTHORIZED"},
		{&StatusError{Status: 409, Body: "stock"}, http.StatusUnprocessableEntity, "UPSTREAM_REJECTED"},
		{&StatusError{Status: 500}, http.StatusBadGateway, "UPSTREAM"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT"},
		{fmt.Errorf("%w: GET /x: dial tcp: refused", ErrUnreachable), http.StatusBadGateway, "UPSTREAM"},
		{errors.New("redis: connection refused"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		appErr := AsAppError(tc.err, "product")
		require.Equal(t, tc.status, appErr.HTTPStatus, tc.err.Error())
		require.Equal(t, tc.code, appErr.Code)
	}
}
