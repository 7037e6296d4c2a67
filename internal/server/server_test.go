package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa911/datacap/internal/api/dto/common"
	"github.com/osa911/datacap/internal/metrics"
	"github.com/osa911/datacap/internal/models"
	"github.com/osa911/datacap/internal/service"
)

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

type fakeEngine struct {
	status   *models.DataStatus
	restarts int
}

func (f *fakeEngine) Status() *models.DataStatus { return f.status }
func (f *fakeEngine) Restart()                   { f.restarts++ }
func (f *fakeEngine) Running() bool              { return true }

type fakeCommands struct {
	calls      []string
	blockErr   error
	renewLimit uint64
	renewExp   int64
	enabled    *bool
}

func (f *fakeCommands) ForceBlock(context.Context) error {
	f.calls = append(f.calls, "block")
	return f.blockErr
}

func (f *fakeCommands) ForceUnblock(context.Context) error {
	f.calls = append(f.calls, "unblock")
	return nil
}

func (f *fakeCommands) RenewQuota(_ context.Context, limit uint64, exp int64) error {
	f.calls = append(f.calls, "renew")
	f.renewLimit, f.renewExp = limit, exp
	return nil
}

func (f *fakeCommands) ResetUsage(context.Context) error {
	f.calls = append(f.calls, "reset")
	return nil
}

func (f *fakeCommands) SaveQuotaForm(_ context.Context, mb, days string) (models.Quota, error) {
	f.calls = append(f.calls, "form:"+mb+":"+days)
	return models.Quota{LimitBytes: 1000 * 1024 * 1024, ExpiryTimeMs: 1, Enabled: true}, nil
}

func (f *fakeCommands) SetEnabled(_ context.Context, enabled bool) error {
	f.calls = append(f.calls, "enabled")
	f.enabled = &enabled
	return nil
}

func (f *fakeCommands) HandleAction(_ context.Context, action string) error {
	switch action {
	case "settings":
		return service.ErrUIOnly
	case "block":
		return f.ForceBlock(context.Background())
	default:
		return fmt.Errorf("unknown action %q: %w", action, service.ErrValidation)
	}
}

type fakePurchases struct {
	err error
}

func (f *fakePurchases) Packages() []models.InternetPackage { return models.AvailablePackages() }

func (f *fakePurchases) Purchase(_ context.Context, id int) (*service.PurchaseResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	pkg, ok := models.FindPackage(id)
	if !ok {
		return nil, service.ErrNotFound
	}
	return &service.PurchaseResult{
		Package: pkg,
		Quota:   models.Quota{LimitBytes: pkg.LimitBytes(), ExpiryTimeMs: 42, Enabled: true},
		Message: "Package " + pkg.Name + " activated",
	}, nil
}

type harness struct {
	handler   http.Handler
	engine    *fakeEngine
	commands  *fakeCommands
	purchases *fakePurchases
}

func newHarness(t *testing.T, pingErr error) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := prometheus.NewRegistry()
	m := metrics.New("datacap", reg)

	h := &harness{
		engine:    &fakeEngine{},
		commands:  &fakeCommands{},
		purchases: &fakePurchases{},
	}
	srv := NewServer(Config{Addr: "127.0.0.1:0"}, Dependencies{
		DB:        fakePinger{err: pingErr},
		Status:    h.engine,
		Engine:    h.engine,
		Commands:  h.commands,
		Purchases: h.purchases,
		Observer:  m,
		Gatherer:  reg,
	})
	h.handler = srv.Handler()
	return h
}

func (h *harness) do(method, path, body string) (*httptest.ResponseRecorder, common.APIResponse) {
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)

	var resp common.APIResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestHealth(t *testing.T) {
	h := newHarness(t, nil)
	w, resp := h.do(http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)

	h = newHarness(t, errors.New("database is locked"))
	w, resp = h.do(http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.False(t, resp.Success)
}

func TestStatusBeforeAndAfterFirstEvaluation(t *testing.T) {
	h := newHarness(t, nil)

	w, resp := h.do(http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, false, data["ready"])

	h.engine.status = &models.DataStatus{
		UsedBytes:       500 * 1024 * 1024,
		QuotaBytes:      1000 * 1024 * 1024,
		RemainingBytes:  500 * 1024 * 1024,
		PercentageUsed:  50,
		TimeRemainingMs: 3 * 24 * time.Hour.Milliseconds(),
	}
	w, resp = h.do(http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	data = resp.Data.(map[string]interface{})
	assert.Equal(t, true, data["ready"])
	assert.Equal(t, "3d", data["time_remaining"])
	assert.Equal(t, float64(50), data["percentage_used"])
}

func TestSaveQuotaValidation(t *testing.T) {
	h := newHarness(t, nil)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"missing limit", `{"expiry_time_ms": 1893456000000}`, http.StatusBadRequest},
		{"expiry not epoch ms", `{"limit_bytes": 10, "expiry_time_ms": 1893456000}`, http.StatusBadRequest},
		{"malformed json", `{"limit_bytes":`, http.StatusBadRequest},
		{"limit beyond int64", `{"limit_bytes": 9223372036854775808, "expiry_time_ms": 1893456000000}`, http.StatusBadRequest},
		{"limit at uint64 max", `{"limit_bytes": 18446744073709551615, "expiry_time_ms": 1893456000000}`, http.StatusBadRequest},
		{"valid", `{"limit_bytes": 1073741824, "expiry_time_ms": 1893456000000}`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := h.do(http.MethodPost, "/api/v1/quota", tt.body)
			assert.Equal(t, tt.code, w.Code)
		})
	}

	assert.Equal(t, []string{"renew"}, h.commands.calls)
	assert.Equal(t, uint64(1073741824), h.commands.renewLimit)
	assert.Equal(t, int64(1893456000000), h.commands.renewExp)
}

func TestQuotaFormAcceptsEmptyBody(t *testing.T) {
	h := newHarness(t, nil)

	w, resp := h.do(http.MethodPost, "/api/v1/quota/form", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1000), resp.Data.(map[string]interface{})["limit_mb"])

	w, _ = h.do(http.MethodPost, "/api/v1/quota/form", `{"limit_mb":"abc","days":"7"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"form::", "form:abc:7"}, h.commands.calls)
}

func TestSetEnabled(t *testing.T) {
	h := newHarness(t, nil)

	w, _ := h.do(http.MethodPut, "/api/v1/quota/enabled", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = h.do(http.MethodPut, "/api/v1/quota/enabled", `{"enabled": false}`)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, h.commands.enabled)
	assert.False(t, *h.commands.enabled)
}

func TestCommandsMapServiceErrors(t *testing.T) {
	h := newHarness(t, nil)

	w, _ := h.do(http.MethodPost, "/api/v1/unblock", "")
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = h.do(http.MethodPost, "/api/v1/usage/reset", "")
	assert.Equal(t, http.StatusOK, w.Code)

	h.commands.blockErr = fmt.Errorf("no quota configured: %w", service.ErrNotFound)
	w, resp := h.do(http.MethodPost, "/api/v1/block", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)

	w, _ = h.do(http.MethodPost, "/api/v1/actions/settings", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	w, _ = h.do(http.MethodPost, "/api/v1/actions/launch", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPackagesAndPurchase(t *testing.T) {
	h := newHarness(t, nil)

	w, resp := h.do(http.MethodGet, "/api/v1/packages", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp.Data.([]interface{}), len(models.AvailablePackages()))

	w, resp = h.do(http.MethodPost, "/api/v1/packages/1/purchase", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1<<30), resp.Data.(map[string]interface{})["limit_bytes"])

	w, _ = h.do(http.MethodPost, "/api/v1/packages/x/purchase", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = h.do(http.MethodPost, "/api/v1/packages/99/purchase", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	h.purchases.err = service.ErrNoModem
	w, _ = h.do(http.MethodPost, "/api/v1/packages/1/purchase", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestEngineRestartAndMetrics(t *testing.T) {
	h := newHarness(t, nil)

	w, _ := h.do(http.MethodPost, "/api/v1/engine/restart", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, h.engine.restarts)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "datacap_http_requests_total"))
}
