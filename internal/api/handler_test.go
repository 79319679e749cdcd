package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/menudash/menudash/internal/auth"
	"github.com/menudash/menudash/internal/config"
	"github.com/menudash/menudash/internal/storage"
	"github.com/menudash/menudash/internal/warehouse"
)

func testConfig() config.Config {
	return config.Config{
		Profile: config.ProfileTest,
		Service: config.ServiceConfig{Name: "menudash-api"},
	}
}

func menuTestResult() warehouse.ResultSet {
	return warehouse.ResultSet{
		Columns: []string{
			"MENU_ITEM_NAME", "ITEM_CATEGORY", "ITEM_SUBCATEGORY",
			"COST_OF_GOODS_USD", "SALE_PRICE_USD", "PROFIT", "MARGIN_PERCENT",
		},
		Rows: [][]any{
			{"Ice Cream Sandwich", "Dessert", "Cold Option", 1.5, 6.0, 4.5, 75.0},
			{"Mango Sticky Rice", "Dessert", "Cold Option", 2.0, 8.0, 6.0, 75.0},
			{"Lobster Mac & Cheese", "Main", "Warm Option", 10.0, 15.0, 5.0, 33.33},
		},
		RowCount: 3,
		Duration: 12 * time.Millisecond,
	}
}

type fakeExecutor struct {
	result   warehouse.ResultSet
	hit      bool
	err      error
	lastSQL  string
	lastRows int
}

func (f *fakeExecutor) Execute(_ context.Context, sqlText string, rowLimit int) (warehouse.ResultSet, bool, error) {
	f.lastSQL = sqlText
	f.lastRows = rowLimit
	if f.err != nil {
		return warehouse.ResultSet{}, false, f.err
	}
	return f.result, f.hit, nil
}

type fakeConnection struct {
	info    warehouse.ConnectionInfo
	pingErr error
}

func (f *fakeConnection) Info() warehouse.ConnectionInfo { return f.info }
func (f *fakeConnection) Ping(_ context.Context) error   { return f.pingErr }

// fakeArchive is an in-memory object store.
type fakeArchive struct {
	objects         map[string][]byte
	lastKey         string
	lastContentType string
	putCalls        int
	putErr          error
}

func (f *fakeArchive) Put(_ context.Context, key string, body io.Reader, _ int64, opts storage.PutOptions) (storage.ObjectInfo, error) {
	f.putCalls++
	f.lastKey = key
	f.lastContentType = opts.ContentType
	payload, _ := io.ReadAll(body)
	if f.putErr != nil {
		return storage.ObjectInfo{}, f.putErr
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[key] = payload
	return storage.ObjectInfo{Key: key, Size: int64(len(payload))}, nil
}

func (f *fakeArchive) Get(_ context.Context, key string) (io.ReadCloser, error) {
	payload, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(payload)), nil
}

func (f *fakeArchive) Stat(_ context.Context, key string) (storage.ObjectInfo, error) {
	payload, ok := f.objects[key]
	if !ok {
		return storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return storage.ObjectInfo{Key: key, Size: int64(len(payload))}, nil
}

func (f *fakeArchive) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

func decodeEnvelope(t *testing.T, body io.Reader) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return payload
}

func TestHealthEndpoint(t *testing.T) {
	handler := NewHandler(testConfig(), Dependencies{Executor: &fakeExecutor{}})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	payload := decodeEnvelope(t, rr.Body)
	if payload["service"] != "menudash-api" {
		t.Fatalf("service = %v", payload["service"])
	}
}

func TestReadyEndpointReportsFailure(t *testing.T) {
	handler := NewHandler(testConfig(), Dependencies{
		Executor:  &fakeExecutor{},
		Readiness: func(context.Context) error { return fmt.Errorf("warehouse unreachable") },
	})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/ready", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}
	payload := decodeEnvelope(t, rr.Body)
	if payload["error_code"] != "NOT_READY" {
		t.Fatalf("error_code = %v", payload["error_code"])
	}
}

func TestReadyEndpointWithoutCheck(t *testing.T) {
	handler := NewHandler(testConfig(), Dependencies{Executor: &fakeExecutor{}})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/ready", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestConnectionEndpoint(t *testing.T) {
	conn := &fakeConnection{info: warehouse.ConnectionInfo{
		Driver: "snowflake", User: "analyst", Account: "xy12345", Warehouse: "COMPUTE_WH",
	}}
	handler := NewHandler(testConfig(), Dependencies{Executor: &fakeExecutor{}, Connection: conn})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/connection", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	payload := decodeEnvelope(t, rr.Body)
	connection, ok := payload["connection"].(map[string]any)
	if !ok {
		t.Fatalf("connection payload missing: %v", payload)
	}
	if connection["driver"] != "snowflake" || connection["user"] != "analyst" {
		t.Fatalf("connection = %v", connection)
	}
	if _, leaked := connection["password"]; leaked {
		t.Fatal("password must not appear in the payload")
	}
}

func TestConnectionEndpointFailure(t *testing.T) {
	conn := &fakeConnection{pingErr: &warehouse.ConnectionError{Err: fmt.Errorf("account suspended")}}
	handler := NewHandler(testConfig(), Dependencies{Executor: &fakeExecutor{}, Connection: conn})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/connection", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}
	payload := decodeEnvelope(t, rr.Body)
	if payload["error_code"] != "CONNECTION_FAILED" {
		t.Fatalf("error_code = %v", payload["error_code"])
	}
	if payload["retryable"] != true {
		t.Fatal("connection failures are retryable")
	}
}

func TestAuthRequiredProtectsRoutes(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Required = true
	validator, err := auth.NewStaticAPIKeyValidator("k1:aluno:viewer")
	if err != nil {
		t.Fatalf("validator setup: %v", err)
	}
	handler := NewHandler(cfg, Dependencies{
		Executor:       &fakeExecutor{result: menuTestResult()},
		AuthMiddleware: auth.Middleware(nil, validator),
	})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/menu", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status without key = %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/menu", nil)
	req.Header.Set("X-API-Key", "k1")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status with key = %d", rr.Code)
	}
}

func TestAuthRequiredWithoutMiddleware(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Required = true
	handler := NewHandler(cfg, Dependencies{Executor: &fakeExecutor{}})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/menu", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	payload := decodeEnvelope(t, rr.Body)
	if payload["error_code"] != "AUTH_MIDDLEWARE_MISSING" {
		t.Fatalf("error_code = %v", payload["error_code"])
	}
}

func TestHealthStaysPublicWithAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Required = true
	validator, err := auth.NewStaticAPIKeyValidator("k1:aluno:viewer")
	if err != nil {
		t.Fatalf("validator setup: %v", err)
	}
	handler := NewHandler(cfg, Dependencies{
		Executor:       &fakeExecutor{},
		AuthMiddleware: auth.Middleware(nil, validator),
	})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestCombineReadinessChecks(t *testing.T) {
	boom := fmt.Errorf("boom")
	combined := CombineReadinessChecks(
		nil,
		func(context.Context) error { return nil },
		func(context.Context) error { return boom },
	)
	if err := combined(context.Background()); err != boom {
		t.Fatalf("err = %v", err)
	}
}
