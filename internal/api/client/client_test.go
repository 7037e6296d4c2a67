package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa911/datacap/internal/api/dto/common"
	"github.com/osa911/datacap/internal/api/dto/v1/quota"
	"github.com/osa911/datacap/internal/api/dto/v1/status"
)

func TestClientDecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/status":
			_ = json.NewEncoder(w).Encode(common.NewSuccessResponse(status.Response{Ready: true, UsedBytes: 7}))
		case "/api/v1/quota/form":
			var req quota.FormRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "500", req.LimitMB)
			assert.Equal(t, "7", req.Days)
			_ = json.NewEncoder(w).Encode(common.NewSuccessResponse(quota.Response{LimitMB: 500, Enabled: true}))
		case "/api/v1/block":
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(common.NewErrorResponse(common.ErrCodeNotFound, "No quota configured", nil))
		case "/api/v1/usage/reset":
			_ = json.NewEncoder(w).Encode(common.NewMessageResponse("Usage reset"))
		default:
			w.WriteHeader(http.StatusTeapot)
			_, _ = w.Write([]byte("not json"))
		}
	}))
	defer srv.Close()

	c := New(srv.URL + "/")
	ctx := context.Background()

	st, err := c.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Ready)
	assert.Equal(t, uint64(7), st.UsedBytes)

	q, err := c.SaveQuotaForm(ctx, "500", "7")
	require.NoError(t, err)
	assert.Equal(t, uint64(500), q.LimitMB)

	msg, err := c.ResetUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Usage reset", msg)

	_, err = c.Block(ctx)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)

	_, err = c.Packages(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 418")
}

func TestClientUnreachable(t *testing.T) {
	c := New("http://127.0.0.1:1")
	_, err := c.Health(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to reach daemon")
}
