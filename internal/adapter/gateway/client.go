package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"token-sale-gateway/config"
	"token-sale-gateway/internal/core/domain"
	"token-sale-gateway/internal/core/ports"
)

const defaultTimeout = 10 * time.Second

// Client talks to the external crypto payment gateway's HTTP API. Requests
// are form-encoded and signed with HMAC-SHA512 over the encoded body using
// the merchant's private key, sent in the HMAC header.
type Client struct {
	baseURL    string
	merchantID string
	publicKey  string
	privateKey []byte
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient builds a gateway client from config. The HTTP timeout falls back
// to a sane default when unset.
func NewClient(cfg config.GatewayConfig, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		merchantID: cfg.MerchantID,
		publicKey:  cfg.PublicKey,
		privateKey: []byte(cfg.PrivateKey),
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("component", "gateway_client").Logger(),
	}
}

type apiEnvelope struct {
	Error  string          `json:"error"`
	Result json.RawMessage `json:"result"`
}

type createTxResult struct {
	TxnID   string `json:"txn_id"`
	Address string `json:"address"`
	Amount  string `json:"amount"`
	Timeout int64  `json:"timeout"` // seconds
}

// CreateTransaction opens a payment transaction at the gateway and returns
// the deposit address, the exact crypto amount due, and the payment window.
func (c *Client) CreateTransaction(ctx context.Context, req ports.GatewayTxRequest) (*ports.GatewayTxResponse, error) {
	form := url.Values{}
	form.Set("cmd", "create_transaction")
	form.Set("version", "1")
	form.Set("key", c.publicKey)
	form.Set("merchant", c.merchantID)
	form.Set("amount", domain.FormatUSDCents(req.AmountUSD))
	form.Set("currency1", "USD")
	form.Set("currency2", req.Currency)
	form.Set("custom", req.BuyerID)

	var result createTxResult
	if err := c.call(ctx, form, &result); err != nil {
		return nil, err
	}

	cryptoAmount, err := domain.ParseCryptoAmount(result.Amount)
	if err != nil {
		return nil, fmt.Errorf("gateway returned unparseable amount %q: %w", result.Amount, err)
	}

	c.log.Info().
		Str("txn_id", result.TxnID).
		Str("currency", req.Currency).
		Int64("amount_usd", req.AmountUSD).
		Msg("gateway transaction created")

	return &ports.GatewayTxResponse{
		TxnID:        result.TxnID,
		Address:      result.Address,
		CryptoAmount: cryptoAmount,
		Timeout:      time.Duration(result.Timeout) * time.Second,
	}, nil
}

// call signs and posts a form command, decoding the result envelope into out.
// The gateway reports application errors as error != "ok" with HTTP 200.
func (c *Client) call(ctx context.Context, form url.Values, out any) error {
	body := form.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api", strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("HMAC", c.sign(body))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read gateway response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway returned HTTP %d", resp.StatusCode)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	if envelope.Error != "ok" {
		return fmt.Errorf("gateway error: %s", envelope.Error)
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("decode gateway result: %w", err)
	}
	return nil
}

func (c *Client) sign(body string) string {
	mac := hmac.New(sha512.New, c.privateKey)
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}
