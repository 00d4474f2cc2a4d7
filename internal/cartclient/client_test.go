package cartclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirabelleshop/cart-backend/internal/cartsync"
	pkgerrors "github.com/mirabelleshop/cart-backend/pkg/errors"
	"github.com/mirabelleshop/cart-backend/pkg/types"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(Options{BaseURL: srv.URL, SessionToken: "token-1"})
	require.NoError(t, err)
	return client
}

func TestNewRequiresBaseURL(t *testing.T) {
	t.Parallel()

	_, err := New(Options{})
	require.Error(t, err)
}

func TestAddLineDecodesSnapshot(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/cart/lines", r.URL.Path)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "prod-1", body["product_id"])
		assert.Equal(t, float64(2), body["quantity"])

		_ = json.NewEncoder(w).Encode(types.SuccessEnvelope{Data: types.CartSnapshot{
			ID:           "cart-1",
			CurrencyCode: "usd",
			Items:        []types.CartLineItem{{ID: "line-1", ProductID: "prod-1", Quantity: 2}},
			TotalCents:   2000,
		}})
	}))

	snap, err := client.AddLine(context.Background(), "", cartsync.AddLineInput{ProductID: "prod-1", Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, "cart-1", snap.ID)
	assert.Equal(t, int64(2000), snap.TotalCents)
	require.Len(t, snap.Items, 1)
}

func TestFetchCartNullMeansNoCart(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":null}`))
	}))

	snap, err := client.FetchCart(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestClientErrorIsTypedAndNotRetried(t *testing.T) {
	t.Parallel()

	var calls int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(types.ErrorEnvelope{Error: types.APIError{
			Code:    string(pkgerrors.CodeNotFound),
			Message: "cart line not found",
		}})
	}))

	_, err := client.RemoveLine(context.Background(), "line-9")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
	assert.Equal(t, "cart line not found", typed.Message())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "4xx must not be retried")
}

func TestServerErrorIsRetried(t *testing.T) {
	t.Parallel()

	var calls int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"id":"cart-1"}}`))
	}))

	snap, err := client.FetchCart(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cart-1", snap.ID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestRetriesExhaustSurfaceLastError(t *testing.T) {
	t.Parallel()

	var calls int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(types.ErrorEnvelope{Error: types.APIError{
			Code:    string(pkgerrors.CodeDependency),
			Message: "promotions backend down",
		}})
	}))

	err := client.ApplyPromotionCodes(context.Background(), []string{"SAVE10"})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, "promotions backend down", typed.Message())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "initial call plus two retries")
}
