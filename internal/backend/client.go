package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/toko-pos/internal/common"
	"github.com/noah-isme/toko-pos/internal/pricing"
	"github.com/noah-isme/toko-pos/internal/resilience"
)

var (
	// ErrNotFound is returned when the backend answers 404.
	ErrNotFound = errors.New("backend: not found")
	// ErrUnreachable wraps transport failures: no HTTP response was obtained.
	ErrUnreachable = errors.New("backend: unreachable")
)

// StatusError reports a non-2xx backend response.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// Doer executes outbound requests. resilience.HTTPClient satisfies it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client talks to the POS REST backend on behalf of the signed-in cashier.
type Client struct {
	baseURL string
	http    Doer
	log     zerolog.Logger
}

// NewClient builds a client for baseURL. A trailing slash is ignored.
func NewClient(baseURL string, doer Doer, log zerolog.Logger) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: doer, log: log}
}

// Product loads a single product by id.
func (c *Client) Product(ctx context.Context, id string) (Product, error) {
	var env struct {
		ProductDTO *Product `json:"productDTO"`
	}
	raw, err := c.get(ctx, "/products/"+url.PathEscape(id), nil)
	if err != nil {
		return Product{}, err
	}
	if err := json.Unmarshal(raw, &env); err == nil && env.ProductDTO != nil {
		return *env.ProductDTO, nil
	}
	var p Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return Product{}, fmt.Errorf("decode product: %w", err)
	}
	if p.ProductID == "" {
		return Product{}, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	return p, nil
}

// ProductByBarcode resolves an exact barcode. The backend has no barcode
// endpoint, so the search results are scanned first and the active product
// list second.
func (c *Client) ProductByBarcode(ctx context.Context, code string) (Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Product{}, fmt.Errorf("empty barcode: %w", ErrNotFound)
	}
	if found, err := c.SearchProducts(ctx, code, "", ""); err == nil {
		if p, ok := matchBarcode(found, code); ok {
			return p, nil
		}
	} else if !errors.Is(err, ErrNotFound) {
		return Product{}, err
	}
	active, err := c.ActiveProducts(ctx)
	if err != nil {
		return Product{}, err
	}
	if p, ok := matchBarcode(active, code); ok {
		return p, nil
	}
	return Product{}, fmt.Errorf("barcode %s: %w", code, ErrNotFound)
}

func matchBarcode(products []Product, code string) (Product, bool) {
	for _, p := range products {
		if strings.TrimSpace(p.Barcode) == code {
			return p, true
		}
	}
	return Product{}, false
}

// ActiveProducts lists products currently on sale.
func (c *Client) ActiveProducts(ctx context.Context) ([]Product, error) {
	raw, err := c.get(ctx, "/products/active", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[Product](raw, "productDTOList")
}

// SearchProducts searches by free text, or filters by category and brand when
// the query is empty.
func (c *Client) SearchProducts(ctx context.Context, query, categoryID, brandID string) ([]Product, error) {
	query = strings.TrimSpace(query)
	var (
		raw []byte
		err error
	)
	switch {
	case query != "":
		raw, err = c.get(ctx, "/products/search", url.Values{"q": {query}})
	case categoryID != "" || brandID != "":
		q := url.Values{}
		if categoryID != "" {
			q.Set("categoryId", categoryID)
		}
		if brandID != "" {
			q.Set("brandId", brandID)
		}
		raw, err = c.get(ctx, "/products/by-category-brand", q)
	default:
		return c.ActiveProducts(ctx)
	}
	if err != nil {
		return nil, err
	}
	return decodeList[Product](raw, "productDTOList")
}

// Categories lists product categories.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	raw, err := c.get(ctx, "/categories", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[Category](raw, "categoryDTOList")
}

// Brands lists product brands.
func (c *Client) Brands(ctx context.Context) ([]Brand, error) {
	raw, err := c.get(ctx, "/brands", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[Brand](raw, "brandDTOList")
}

// SaveSale submits a sale. The request is sent exactly once.
func (c *Client) SaveSale(ctx context.Context, payload SalePayload) (SaleRef, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return SaleRef{}, fmt.Errorf("encode sale: %w", err)
	}
	raw, err := c.do(ctx, http.MethodPost, "/sales", nil, body)
	if err != nil {
		return SaleRef{}, err
	}
	var env struct {
		StatusCode int             `json:"statusCode"`
		SaleDTO    json.RawMessage `json:"saleDTO"`
	}
	_ = json.Unmarshal(raw, &env)
	record, err := decodeSale(raw, env.SaleDTO)
	if err != nil {
		return SaleRef{}, err
	}
	ref := SaleRef{SaleID: record.SaleID.Text(), StatusCode: env.StatusCode, Record: record}
	if ref.SaleID == "" {
		return ref, errors.New("backend: sale saved without an id")
	}
	return ref, nil
}

// Sale loads a persisted sale by id.
func (c *Client) Sale(ctx context.Context, id string) (pricing.SaleRecord, error) {
	raw, err := c.get(ctx, "/sales/"+url.PathEscape(id), nil)
	if err != nil {
		return pricing.SaleRecord{}, err
	}
	var env struct {
		SaleDTO json.RawMessage `json:"saleDTO"`
	}
	_ = json.Unmarshal(raw, &env)
	return decodeSale(raw, env.SaleDTO)
}

// SalesInRange lists sales whose date falls within [from, to], inclusive.
func (c *Client) SalesInRange(ctx context.Context, from, to time.Time) ([]pricing.SaleRecord, error) {
	q := url.Values{
		"rangeType": {"custom"},
		"startDate": {from.Format(time.DateOnly)},
		"endDate":   {to.Format(time.DateOnly)},
	}
	raw, err := c.get(ctx, "/sales/date-range", q)
	if err != nil {
		return nil, err
	}
	return decodeList[pricing.SaleRecord](raw, "saleDTOList")
}

// SalesByUser lists the sales recorded under a cashier.
func (c *Client) SalesByUser(ctx context.Context, userID string) ([]pricing.SaleRecord, error) {
	raw, err := c.get(ctx, "/sales/user/"+url.PathEscape(userID), nil)
	if err != nil {
		return nil, err
	}
	return decodeList[pricing.SaleRecord](raw, "saleDTOList")
}

// Ping checks that the backend answers at all. Any HTTP response below 500
// counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/products/active", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return &StatusError{Method: http.MethodHead, Path: "/products/active", Status: resp.StatusCode}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, q, nil)
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body []byte) ([]byte, error) {
	ctx, span := otel.Tracer("backend.Client").Start(ctx, method+" "+path)
	defer span.End()
	span.SetAttributes(attribute.String("http.method", method), attribute.String("backend.path", path))

	target := c.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := common.BearerToken(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.log.Warn().Err(err).Str("method", method).Str("path", path).Msg("backend_request_failed")
		return nil, fmt.Errorf("%w: %s %s: %w", ErrUnreachable, method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read backend response: %w", err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("backend_request")
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		serr := &StatusError{Method: method, Path: path, Status: resp.StatusCode, Body: snippet(raw)}
		span.SetStatus(codes.Error, serr.Error())
		return nil, serr
	}
	return raw, nil
}

const maxBody = 8 << 20

func snippet(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 256 {
		s = s[:256]
	}
	return s
}

// decodeList accepts either {"<key>": [...]} or a bare array.
func decodeList[T any](raw []byte, key string) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}
	if trimmed[0] == '[' {
		var out []T
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		return out, nil
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	list, ok := env[key]
	if !ok || bytes.Equal(bytes.TrimSpace(list), []byte("null")) {
		return []T{}, nil
	}
	var out []T
	if err := json.Unmarshal(list, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return out, nil
}

func decodeSale(raw, dto json.RawMessage) (pricing.SaleRecord, error) {
	src := raw
	if len(bytes.TrimSpace(dto)) > 0 && !bytes.Equal(bytes.TrimSpace(dto), []byte("null")) {
		src = dto
	}
	var rec pricing.SaleRecord
	if err := json.Unmarshal(src, &rec); err != nil {
		return pricing.SaleRecord{}, fmt.Errorf("decode sale: %w", err)
	}
	return rec, nil
}

var _ Doer = resilience.HTTPClient{}
