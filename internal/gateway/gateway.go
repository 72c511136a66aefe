// Package gateway talks to the external payment provider: outbound payment
// link creation and inbound webhook checksum verification.
package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hoangnv-dev/hotelhold/internal/domain"
)

type Client interface {
	// CreatePaymentLink asks the provider for a checkout URL tied to orderCode.
	CreatePaymentLink(ctx context.Context, orderCode string, amount int64, description string) (string, error)
	// VerifyWebhook checks the provider signature over the raw body.
	VerifyWebhook(body []byte, signature string) error
}

type Config struct {
	Endpoint    string
	ClientID    string
	APIKey      string
	ChecksumKey string
}

type HTTPClient struct {
	cfg  Config
	http *http.Client
}

func NewHTTPClient(cfg Config) *HTTPClient {
	return &HTTPClient{
		cfg:  cfg,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

type createLinkRequest struct {
	OrderCode   string `json:"order_code"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	Signature   string `json:"signature"`
}

type createLinkResponse struct {
	CheckoutURL string `json:"checkout_url"`
}

func (c *HTTPClient) CreatePaymentLink(ctx context.Context, orderCode string, amount int64, description string) (string, error) {
	payload := createLinkRequest{
		OrderCode:   orderCode,
		Amount:      amount,
		Description: description,
	}
	payload.Signature = Sign(c.cfg.ChecksumKey,
		[]byte(fmt.Sprintf("amount=%d&description=%s&order_code=%s", amount, description, orderCode)))

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/v2/payment-requests", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-client-id", c.cfg.ClientID)
	req.Header.Set("x-api-key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway unreachable: %w: %w", domain.ErrExternal, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gateway returned %d: %w", resp.StatusCode, domain.ErrExternal)
	}

	var out createLinkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode gateway response: %w", err)
	}
	return out.CheckoutURL, nil
}

func (c *HTTPClient) VerifyWebhook(body []byte, signature string) error {
	expected := Sign(c.cfg.ChecksumKey, body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return domain.ErrBadSignature
	}
	return nil
}

// Sign computes the provider checksum: hex HMAC-SHA256 of data under the
// shared checksum key.
func Sign(checksumKey string, data []byte) string {
	mac := hmac.New(sha256.New, []byte(checksumKey))
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

var _ Client = (*HTTPClient)(nil)
