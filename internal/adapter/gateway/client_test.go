package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-sale-gateway/config"
	"token-sale-gateway/internal/core/ports"
)

const testPrivateKey = "gateway-private-key"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.GatewayConfig{
		BaseURL:    srv.URL,
		MerchantID: "merchant-1",
		PublicKey:  "pub-key",
		PrivateKey: testPrivateKey,
		Timeout:    2 * time.Second,
	}, zerolog.Nop())
}

func TestClient_CreateTransaction_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		mac := hmac.New(sha512.New, []byte(testPrivateKey))
		mac.Write(body)
		assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), r.Header.Get("HMAC"))

		form, err := url.ParseQuery(string(body))
		require.NoError(t, err)
		assert.Equal(t, "create_transaction", form.Get("cmd"))
		assert.Equal(t, "20.00", form.Get("amount"))
		assert.Equal(t, "LTC", form.Get("currency2"))
		assert.Equal(t, "buyer-42", form.Get("custom"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error":"ok","result":{"txn_id":"TX123","address":"Laddr","amount":"0.50000000","timeout":3600}}`))
	})

	resp, err := client.CreateTransaction(context.Background(), ports.GatewayTxRequest{
		AmountUSD: 2000,
		Currency:  "LTC",
		BuyerID:   "buyer-42",
	})
	require.NoError(t, err)
	assert.Equal(t, "TX123", resp.TxnID)
	assert.Equal(t, "Laddr", resp.Address)
	assert.Equal(t, int64(50_000_000), resp.CryptoAmount)
	assert.Equal(t, time.Hour, resp.Timeout)
}

func TestClient_CreateTransaction_GatewayError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error":"amount too small","result":null}`))
	})

	_, err := client.CreateTransaction(context.Background(), ports.GatewayTxRequest{AmountUSD: 1, Currency: "LTC"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount too small")
}

func TestClient_CreateTransaction_HTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.CreateTransaction(context.Background(), ports.GatewayTxRequest{AmountUSD: 2000, Currency: "BTC"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 502")
}

func TestClient_CreateTransaction_BadAmountInResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error":"ok","result":{"txn_id":"TX1","address":"a","amount":"oops","timeout":60}}`))
	})

	_, err := client.CreateTransaction(context.Background(), ports.GatewayTxRequest{AmountUSD: 2000, Currency: "BTC"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unparseable amount")
}
