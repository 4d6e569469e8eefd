package client

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/declared-as-ala/backend/internal/config"
)

func signBody(secret string, ts int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhook(t *testing.T) {
	const secret = "whsec_test"
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	c := NewCardClient(&config.Card{WebhookSecret: secret}).(*cardClientImpl)
	c.now = func() time.Time { return now }

	body := []byte(`{"id":"evt_1"}`)

	header := func(ts int64, sig string) http.Header {
		h := http.Header{}
		h.Set(cardSignatureHeader, fmt.Sprintf("t=%d,v1=%s", ts, sig))
		return h
	}

	t.Run("valid signature", func(t *testing.T) {
		ts := now.Unix()
		require.NoError(t, c.VerifyWebhook(header(ts, signBody(secret, ts, body)), body))
	})

	t.Run("wrong secret", func(t *testing.T) {
		ts := now.Unix()
		err := c.VerifyWebhook(header(ts, signBody("whsec_other", ts, body)), body)
		require.Error(t, err)
	})

	t.Run("tampered body", func(t *testing.T) {
		ts := now.Unix()
		err := c.VerifyWebhook(header(ts, signBody(secret, ts, body)), []byte(`{"id":"evt_2"}`))
		require.Error(t, err)
	})

	t.Run("missing header", func(t *testing.T) {
		require.Error(t, c.VerifyWebhook(http.Header{}, body))
	})

	t.Run("stale timestamp", func(t *testing.T) {
		ts := now.Add(-10 * time.Minute).Unix()
		err := c.VerifyWebhook(header(ts, signBody(secret, ts, body)), body)
		require.Error(t, err)
	})

	t.Run("malformed header", func(t *testing.T) {
		h := http.Header{}
		h.Set(cardSignatureHeader, "garbage")
		require.Error(t, c.VerifyWebhook(h, body))
	})
}

func TestCardCreateSession(t *testing.T) {
	var gotAuth, gotIdempotencyKey string
	var gotPayload map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/payment_sessions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotIdempotencyKey = r.Header.Get("Idempotency-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"ps_1","client_secret":"cs_1","status":"requires_confirmation"}`)
	}))
	defer srv.Close()

	c := NewCardClient(&config.Card{BaseApiURL: srv.URL, SecretKey: "sk_test"})

	result, err := c.CreateSession(context.Background(), &SessionRequest{
		Amount:        decimal.NewFromFloat(22.00),
		Currency:      "EUR",
		DeliveryFee:   decimal.NewFromFloat(3.00),
		Items:         []SessionItem{{Name: "Roses", Price: decimal.NewFromFloat(10.00), Quantity: 2, Category: "PHYSICAL_GOODS"}},
		CorrelationID: "corr-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "ps_1", result.SessionID)
	assert.Equal(t, "cs_1", result.ClientSecret)
	assert.Equal(t, "Bearer sk_test", gotAuth)
	assert.Equal(t, "corr-1", gotIdempotencyKey)
	assert.Equal(t, "22.00", gotPayload["amount"])
	assert.Equal(t, "3.00", gotPayload["shipping_amount"])
}

func TestCardCreateSessionProcessorError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewCardClient(&config.Card{BaseApiURL: srv.URL, SecretKey: "sk_bad"})

	_, err := c.CreateSession(context.Background(), &SessionRequest{
		Amount:   decimal.NewFromFloat(10.00),
		Currency: "EUR",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestCardCaptureSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payment_sessions/ps_1/capture", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"ps_1","status":"succeeded","transaction_id":"txn_1"}`)
	}))
	defer srv.Close()

	c := NewCardClient(&config.Card{BaseApiURL: srv.URL, SecretKey: "sk_test"})

	result, err := c.CaptureSession(context.Background(), "ps_1", "corr-2")
	require.NoError(t, err)
	assert.True(t, result.Succeeded)
	assert.Equal(t, "txn_1", result.TransactionID)
}
