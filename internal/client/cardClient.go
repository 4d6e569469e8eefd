package client

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/declared-as-ala/backend/internal/config"
)

// Signature header carried by card processor webhooks, in the form
// "t=<unix>,v1=<hex hmac-sha256 of '<unix>.<body>'>".
const cardSignatureHeader = "Card-Signature"

// Webhook deliveries older than this are rejected to limit replay.
const cardSignatureTolerance = 5 * time.Minute

// Card webhook event types the reconciliation core reacts to.
const (
	CardEventCaptureSucceeded = "payment.capture.succeeded"
	CardEventCaptureFailed    = "payment.capture.failed"
)

type CardWebhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		SessionID     string `json:"session_id"`
		TransactionID string `json:"transaction_id"`
		Status        string `json:"status"`
	} `json:"data"`
}

// CardClient talks to the card processor. Sessions are confirmed on the
// client side with the returned secret; the processor then pushes a signed
// webhook with the capture outcome.
type CardClient interface {
	CreateSession(ctx context.Context, req *SessionRequest) (*SessionResult, error)
	CaptureSession(ctx context.Context, sessionID, correlationID string) (*CaptureResult, error)
	VerifyWebhook(headers http.Header, body []byte) error
}

type cardClientImpl struct {
	httpClient    *http.Client
	baseApiURL    string
	secretKey     string
	webhookSecret string
	now           func() time.Time
}

func NewCardClient(cfg *config.Card) CardClient {
	return &cardClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL:    cfg.BaseApiURL,
		secretKey:     cfg.SecretKey,
		webhookSecret: cfg.WebhookSecret,
		now:           time.Now,
	}
}

type cardSessionResult struct {
	ID            string `json:"id"`
	ClientSecret  string `json:"client_secret"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
}

func (c *cardClientImpl) CreateSession(ctx context.Context, sessionReq *SessionRequest) (*SessionResult, error) {
	items := make([]map[string]interface{}, len(sessionReq.Items))
	for i, item := range sessionReq.Items {
		items[i] = map[string]interface{}{
			"name":       item.Name,
			"unit_price": item.Price.StringFixed(2),
			"quantity":   item.Quantity,
			"category":   item.Category,
		}
	}

	payload := map[string]interface{}{
		"amount":   sessionReq.Amount.StringFixed(2),
		"currency": sessionReq.Currency,
		"items":    items,
	}
	if sessionReq.DeliveryFee.IsPositive() {
		payload["shipping_amount"] = sessionReq.DeliveryFee.StringFixed(2)
	}
	if sessionReq.DiscountAmount.IsPositive() {
		payload["discount_amount"] = sessionReq.DiscountAmount.StringFixed(2)
	}
	if sessionReq.Shipping != nil {
		payload["shipping_address"] = map[string]string{
			"street":  sessionReq.Shipping.Street,
			"city":    sessionReq.Shipping.City,
			"postal":  sessionReq.Shipping.Postal,
			"country": sessionReq.Shipping.Country,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal req payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseApiURL+"/v1/payment_sessions",
		bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", sessionReq.CorrelationID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("card create session request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("card error %d: %s", resp.StatusCode, string(b))
	}

	var result cardSessionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode card response: %w", err)
	}

	return &SessionResult{
		SessionID:    result.ID,
		ClientSecret: result.ClientSecret,
	}, nil
}

func (c *cardClientImpl) CaptureSession(ctx context.Context, sessionID, correlationID string) (*CaptureResult, error) {
	url := fmt.Sprintf("%s/v1/payment_sessions/%s/capture", c.baseApiURL, sessionID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create capture request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", correlationID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("card capture request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("card capture failed: status=%d body=%s", resp.StatusCode, string(b))
	}

	var result cardSessionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode capture response: %w", err)
	}

	return &CaptureResult{
		TransactionID: result.TransactionID,
		RawStatus:     result.Status,
		Succeeded:     result.Status == "succeeded",
	}, nil
}

// VerifyWebhook checks the HMAC signature and timestamp of a webhook
// delivery before any of its content is trusted.
func (c *cardClientImpl) VerifyWebhook(headers http.Header, body []byte) error {
	header := headers.Get(cardSignatureHeader)
	if header == "" {
		return fmt.Errorf("missing %s header", cardSignatureHeader)
	}

	var timestamp int64
	var signature string
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("malformed signature timestamp: %w", err)
			}
			timestamp = ts
		case "v1":
			signature = value
		}
	}
	if timestamp == 0 || signature == "" {
		return fmt.Errorf("malformed %s header", cardSignatureHeader)
	}

	age := c.now().Sub(time.Unix(timestamp, 0))
	if age > cardSignatureTolerance || age < -cardSignatureTolerance {
		return fmt.Errorf("webhook timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("webhook signature mismatch")
	}

	return nil
}
