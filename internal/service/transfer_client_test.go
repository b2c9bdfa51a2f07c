package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHTTPTransferClient_Success(t *testing.T) {
	var gotBody transferBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/transfers", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		assert.Equal(t, "p-1", r.Header.Get("Idempotency-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"tr_123","status":"paid"}`))
	}))
	defer srv.Close()

	c := NewHTTPTransferClient(srv.URL, "sk_test", 2*time.Second, 0, zap.NewNop())
	ref, err := c.Transfer(context.Background(), TransferRequest{
		IdempotencyKey:     "p-1",
		DestinationAccount: "acct_1",
		AmountCents:        14040,
		Currency:           "usd",
	})
	require.NoError(t, err)
	assert.Equal(t, "tr_123", ref)
	assert.Equal(t, int64(14040), gotBody.Amount)
	assert.Equal(t, "acct_1", gotBody.Destination)
	assert.Equal(t, "p-1", gotBody.Metadata["payout_id"])
}

func TestHTTPTransferClient_ClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"No such destination"}}`))
	}))
	defer srv.Close()

	c := NewHTTPTransferClient(srv.URL, "", 2*time.Second, 2, zap.NewNop())
	_, err := c.Transfer(context.Background(), TransferRequest{IdempotencyKey: "p-1", AmountCents: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No such destination")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHTTPTransferClient_ServerErrorFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewHTTPTransferClient(srv.URL, "", 2*time.Second, 0, zap.NewNop())
	_, err := c.Transfer(context.Background(), TransferRequest{IdempotencyKey: "p-1", AmountCents: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestHTTPTransferClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewHTTPTransferClient(srv.URL, "", 50*time.Millisecond, 0, zap.NewNop())
	_, err := c.Transfer(context.Background(), TransferRequest{IdempotencyKey: "p-1", AmountCents: 1})
	require.Error(t, err)
}
