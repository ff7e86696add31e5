package postinghttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-books/internal/documents"
	"github.com/odyssey-erp/odyssey-books/internal/ledger"
	"github.com/odyssey-erp/odyssey-books/internal/masterdata"
	"github.com/odyssey-erp/odyssey-books/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-books/internal/posting"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
	"github.com/odyssey-erp/odyssey-books/internal/storage"
	"github.com/odyssey-erp/odyssey-books/internal/storage/memory"
)

type memoryKeys struct {
	mu   sync.Mutex
	keys map[string]string
}

func (m *memoryKeys) CheckAndInsert(_ context.Context, key, module string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[key]; ok {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = module
	return nil
}

func (m *memoryKeys) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

type testServer struct {
	router    http.Handler
	keys      *memoryKeys
	customer  ledger.Account
	product   masterdata.Product
	warehouse masterdata.Warehouse
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	ctx := context.Background()
	b := memory.New()
	md := masterdata.NewService(storage.ForMasterdata(b), nil, nil)
	customer, err := md.CreateAccount(ctx, ledger.Account{Name: "Customer A", Type: ledger.AccountTypeCustomer, IsActive: true})
	require.NoError(t, err)
	product, err := md.CreateProduct(ctx, masterdata.Product{SKU: "P-1", Name: "Widget", IsActive: true})
	require.NoError(t, err)
	warehouse, err := md.CreateWarehouse(ctx, masterdata.Warehouse{Code: "W", Name: "Main", IsActive: true})
	require.NoError(t, err)

	keys := &memoryKeys{keys: map[string]string{}}
	h := NewHandler(nil, posting.NewEngine(b, posting.Deps{}), keys)
	r := chi.NewRouter()
	h.MountRoutes(r)
	return testServer{router: r, keys: keys, customer: customer, product: product, warehouse: warehouse}
}

func (s testServer) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s testServer) saleBody(qty string) string {
	return `{"kind":"sale","account_id":` + strconv.FormatInt(s.customer.ID, 10) +
		`,"warehouse_id":` + strconv.FormatInt(s.warehouse.ID, 10) +
		`,"date":"2025-03-05","status":"posted","lines":[{"product_id":` + strconv.FormatInt(s.product.ID, 10) +
		`,"quantity":"` + qty + `","unit_price":"25"}]}`
}

func (s testServer) stock(t *testing.T, qty string) {
	t.Helper()
	body := `{"product_id":` + strconv.FormatInt(s.product.ID, 10) + `,"warehouse_id":` + strconv.FormatInt(s.warehouse.ID, 10) +
		`,"quantity":"` + qty + `","absolute":true}`
	rec := s.do(t, http.MethodPost, "/inventory/adjustments", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestCreateSaleAndReadBalance(t *testing.T) {
	s := newTestServer(t)
	s.stock(t, "10")

	rec := s.do(t, http.MethodPost, "/documents", s.saleBody("4"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var doc documents.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.Equal(t, documents.StatusPosted, doc.Status)
	require.True(t, decimal.NewFromInt(100).Equal(doc.Total))

	rec = s.do(t, http.MethodGet, "/accounts/"+strconv.FormatInt(s.customer.ID, 10)+"/balance?verify=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var bal balanceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bal))
	require.True(t, decimal.NewFromInt(100).Equal(bal.CurrentBalance))
	require.NotNil(t, bal.Consistent)
	require.True(t, *bal.Consistent)

	rec = s.do(t, http.MethodGet, "/inventory/levels?product_id="+strconv.FormatInt(s.product.ID, 10)+"&warehouse_id="+strconv.FormatInt(s.warehouse.ID, 10), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var level levelResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &level))
	require.True(t, decimal.NewFromInt(6).Equal(level.Quantity))

	rec = s.do(t, http.MethodDelete, "/documents/"+strconv.FormatInt(doc.ID, 10), "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/integrity", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestOversellReturnsInsufficientStockProblem(t *testing.T) {
	s := newTestServer(t)
	s.stock(t, "2")

	rec := s.do(t, http.MethodPost, "/documents", s.saleBody("3"))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, "insufficient_stock", problem.Type)
}

func TestRequestValidation(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"unknown kind", http.MethodPost, "/documents", `{"kind":"refund","lines":[{"product_id":1,"quantity":"1","unit_price":"1"}]}`},
		{"no lines", http.MethodPost, "/documents", `{"kind":"sale","lines":[]}`},
		{"bad date", http.MethodPost, "/documents", `{"kind":"sale","date":"05/03/2025","lines":[{"product_id":1,"quantity":"1","unit_price":"1"}]}`},
		{"unknown field", http.MethodPost, "/transactions", `{"account_id":1,"kind":"credit","amount":"1","bogus":true}`},
		{"same warehouse", http.MethodPost, "/inventory/transfers", `{"product_id":1,"from_warehouse_id":1,"to_warehouse_id":1,"quantity":"1"}`},
		{"bad id", http.MethodGet, "/documents/abc", ""},
		{"missing level keys", http.MethodGet, "/inventory/levels?product_id=1", ""},
		{"bad filter", http.MethodGet, "/documents?status=void", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, tc.method, tc.path, tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestIdempotencyKey(t *testing.T) {
	s := newTestServer(t)
	s.stock(t, "10")

	rec := s.do(t, http.MethodPost, "/documents", s.saleBody("1"), IdempotencyHeader, "abc")
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = s.do(t, http.MethodPost, "/documents", s.saleBody("1"), IdempotencyHeader, "abc")
	require.Equal(t, http.StatusConflict, rec.Code)

	// A failed write releases its key.
	rec = s.do(t, http.MethodPost, "/documents", s.saleBody("50"), IdempotencyHeader, "big")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.NotContains(t, s.keys.keys, "big")

	rec = s.do(t, http.MethodGet, "/documents?kind=sale", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var docs []documents.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &docs))
	require.Len(t, docs, 1)
}

func TestDraftPostAndCancel(t *testing.T) {
	s := newTestServer(t)
	s.stock(t, "10")

	body := strings.Replace(s.saleBody("2"), `"status":"posted"`, `"status":"draft"`, 1)
	rec := s.do(t, http.MethodPost, "/documents", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	var doc documents.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	id := strconv.FormatInt(doc.ID, 10)

	rec = s.do(t, http.MethodPost, "/documents/"+id+"/post", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodPost, "/documents/"+id+"/post", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/documents/"+id+"/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.Equal(t, documents.StatusCancelled, doc.Status)

	rec = s.do(t, http.MethodGet, "/documents/999", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
