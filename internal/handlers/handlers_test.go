package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-decor-cartflow/internal/backend"
	"github.com/imrishuroy/go-decor-cartflow/internal/cart"
	"github.com/imrishuroy/go-decor-cartflow/internal/checkout"
	"github.com/imrishuroy/go-decor-cartflow/internal/logger"
	"github.com/imrishuroy/go-decor-cartflow/internal/storage"
)

// ordersBackend plays the ordering backend's /orders endpoint.
type ordersBackend struct {
	mu       sync.Mutex
	status   int
	body     string
	received []map[string]any
}

func (b *ordersBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	_ = json.NewDecoder(r.Body).Decode(&payload)

	b.mu.Lock()
	defer b.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	if payload["action"] == backend.ActionGetFirstDecorator {
		_, _ = w.Write([]byte(`{"success":true,"decorator_id":5}`))
		return
	}
	b.received = append(b.received, payload)
	w.WriteHeader(b.status)
	_, _ = w.Write([]byte(b.body))
}

func (b *ordersBackend) setBody(body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.body = body
}

func (b *ordersBackend) orders() []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]map[string]any(nil), b.received...)
}

type testEnv struct {
	router  *gin.Engine
	kv      *storage.Memory
	backend *ordersBackend
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ob := &ordersBackend{status: http.StatusOK, body: `{"success":true,"message":"ok"}`}
	srv := httptest.NewServer(ob)
	t.Cleanup(srv.Close)

	kv := storage.NewMemory()
	carts := cart.NewManager(kv, logger.Nop())
	svc := checkout.NewService(checkout.Options{
		Carts:             carts,
		Backend:           backend.NewClient(backend.Options{BaseURL: srv.URL, Timeout: 2 * time.Second}),
		DefaultProviderID: 1,
	})

	r := gin.New()
	RegisterRoutes(r, HandlerConfig{Carts: carts, Checkout: svc})
	return &testEnv{router: r, kv: kv, backend: ob}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(sessionHeader, "sess-1")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeSnapshot(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func items(snap map[string]any) []any {
	list, _ := snap["cart_items"].([]any)
	return list
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestMissingSessionHeader(t *testing.T) {
	e := newEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "missing_cart_session")
}

func TestAddItemAndTotals(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/cart/items", `{"id":"A","name":"Kit","price":"100","quantity":2,"serviceType":"decoracao"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(t, http.MethodPost, "/cart/quotes", map[string]any{
		"clientName": "Ana", "clientEmail": "ana@example.com", "eventDate": "2026-11-20",
		"eventLocation": "Salão", "serviceType": "painel",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var q map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &q))
	assert.Equal(t, "pendente", q["status"])
	assert.Equal(t, "10:00", q["eventTime"])
	assert.Equal(t, float64(0), q["estimatedValue"])

	w = e.do(t, http.MethodGet, "/cart/totals", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"totalItemCount":3,"subtotal":200}`, w.Body.String())
}

func TestAddItemValidation(t *testing.T) {
	e := newEnv(t)
	w := e.do(t, http.MethodPost, "/cart/items", `{"id":"A","price":-3,"serviceType":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"name"`)
	assert.Contains(t, w.Body.String(), `"price"`)

	w = e.do(t, http.MethodPost, "/cart/items", `{"id":"A","name":"Kit","price":1e200000000,"serviceType":"d"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation_failed")

	w = e.do(t, http.MethodPost, "/cart/items", `{"id":"   ","name":"Kit","price":1,"serviceType":"d"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodGet, "/cart", nil)
	assert.Empty(t, items(decodeSnapshot(t, w)))
}

func TestMergeQuery(t *testing.T) {
	e := newEnv(t)
	body := `{"id":"A","name":"Kit","price":10,"quantity":1,"serviceType":"d"}`
	e.do(t, http.MethodPost, "/cart/items", body)
	w := e.do(t, http.MethodPost, "/cart/items?merge=true", body)
	require.Equal(t, http.StatusCreated, w.Code)
	list := items(decodeSnapshot(t, w))
	require.Len(t, list, 1)
	assert.Equal(t, float64(2), list[0].(map[string]any)["quantity"])

	w = e.do(t, http.MethodPost, "/cart/items", body)
	assert.Len(t, items(decodeSnapshot(t, w)), 2)
}

func TestIndexMutations(t *testing.T) {
	e := newEnv(t)
	e.do(t, http.MethodPost, "/cart/items", `{"id":"A","name":"Kit","price":10,"quantity":1,"serviceType":"d"}`)

	w := e.do(t, http.MethodPost, "/cart/items/0/decrease", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), items(decodeSnapshot(t, w))[0].(map[string]any)["quantity"])

	w = e.do(t, http.MethodPost, "/cart/items/0/increase", nil)
	assert.Equal(t, float64(2), items(decodeSnapshot(t, w))[0].(map[string]any)["quantity"])

	w = e.do(t, http.MethodPut, "/cart/items/0/quantity", `{"quantity":"7"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(7), items(decodeSnapshot(t, w))[0].(map[string]any)["quantity"])

	w = e.do(t, http.MethodPut, "/cart/items/0/quantity", `{"quantity":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodDelete, "/cart/items/5", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "line_item_not_found")

	w = e.do(t, http.MethodDelete, "/cart/items/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodDelete, "/cart/items/0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, items(decodeSnapshot(t, w)))

	w = e.do(t, http.MethodDelete, "/cart/quotes/0", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "quote_not_found")
}

func TestByIDMutations(t *testing.T) {
	e := newEnv(t)
	e.do(t, http.MethodPost, "/cart/items", `{"id":"A","name":"Kit","price":10,"serviceType":"d"}`)
	e.do(t, http.MethodPost, "/cart/items", `{"id":"B","name":"Painel","price":20,"serviceType":"d"}`)

	w := e.do(t, http.MethodPost, "/cart/by-id/items/B/increase", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := items(decodeSnapshot(t, w))
	assert.Equal(t, float64(2), list[1].(map[string]any)["quantity"])

	w = e.do(t, http.MethodPut, "/cart/by-id/items/A/quantity", `{"quantity":4}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(4), items(decodeSnapshot(t, w))[0].(map[string]any)["quantity"])

	w = e.do(t, http.MethodPost, "/cart/by-id/items/missing/decrease", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodDelete, "/cart/by-id/items/A", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list = items(decodeSnapshot(t, w))
	require.Len(t, list, 1)
	assert.Equal(t, "B", list[0].(map[string]any)["id"])

	w = e.do(t, http.MethodPost, "/cart/quotes", map[string]any{
		"clientName": "Ana", "clientEmail": "ana@example.com", "eventDate": "2026-11-20",
		"eventLocation": "Salão", "serviceType": "painel",
	})
	var q map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &q))

	w = e.do(t, http.MethodDelete, "/cart/by-id/quotes/"+q["id"].(string), nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = e.do(t, http.MethodDelete, "/cart/by-id/quotes/"+q["id"].(string), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func checkoutForm() map[string]any {
	return map[string]any{
		"client": "Ana Souza", "email": "ana@example.com", "event_date": "2026-11-20",
		"event_time": "18:30", "event_location": "Salão Azul", "service_type": "arco-organico",
		"tamanho_arco_m": 3.5,
	}
}

func TestCheckout_Success(t *testing.T) {
	e := newEnv(t)
	e.do(t, http.MethodPost, "/cart/items", `{"id":"A","name":"Kit","price":100,"quantity":2,"serviceType":"d"}`)

	w := e.do(t, http.MethodPost, "/checkout", checkoutForm())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "submitted", resp["status"])
	assert.Equal(t, "200", resp["estimated_value"])
	assert.Equal(t, float64(5), resp["decorador_id"])

	require.Len(t, e.backend.orders(), 1)
	sent := e.backend.orders()[0]
	assert.Equal(t, "create", sent["action"])
	assert.Equal(t, float64(200), sent["estimated_value"])
	assert.Equal(t, 3.5, sent["tamanho_arco_m"])
	assert.Len(t, sent["cart_items"], 1)

	_, ok, err := e.kv.Get(context.Background(), cart.KeysFor("sess-1").LineItems)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckout_ValidationFailure(t *testing.T) {
	e := newEnv(t)
	e.do(t, http.MethodPost, "/cart/items", `{"id":"A","name":"Kit","price":100,"serviceType":"d"}`)

	form := checkoutForm()
	delete(form, "tamanho_arco_m")
	w := e.do(t, http.MethodPost, "/checkout", form)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "tamanho_arco_m")
	assert.Empty(t, e.backend.orders())
}

func TestCheckout_BackendRejection(t *testing.T) {
	e := newEnv(t)
	e.backend.setBody(`{"success":false,"message":"Data indisponível"}`)
	e.do(t, http.MethodPost, "/cart/items", `{"id":"A","name":"Kit","price":100,"serviceType":"d"}`)
	before, _, _ := e.kv.Get(context.Background(), cart.KeysFor("sess-1").LineItems)

	w := e.do(t, http.MethodPost, "/checkout", checkoutForm())
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Data indisponível")

	after, ok, _ := e.kv.Get(context.Background(), cart.KeysFor("sess-1").LineItems)
	assert.True(t, ok)
	assert.Equal(t, before, after)
}

func TestCheckout_NonJSONBodyUsesGenericMessage(t *testing.T) {
	e := newEnv(t)
	e.backend.setBody(`<html>oops</html>`)
	e.do(t, http.MethodPost, "/cart/items", `{"id":"A","name":"Kit","price":100,"serviceType":"d"}`)

	w := e.do(t, http.MethodPost, "/checkout", checkoutForm())
	assert.Equal(t, http.StatusBadGateway, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, checkout.GenericFailureMessage, resp["message"])
}
