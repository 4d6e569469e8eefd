package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/declared-as-ala/backend/internal/config"
)

// WalletClient talks to the redirect-wallet processor. The payer is sent to
// the ApprovalURL returned from CreateSession; after approval the session is
// finalized with CaptureSession.
type WalletClient interface {
	CreateSession(ctx context.Context, req *SessionRequest) (*SessionResult, error)
	GetSessionStatus(ctx context.Context, sessionID string) (*SessionState, error)
	CaptureSession(ctx context.Context, sessionID, correlationID string) (*CaptureResult, error)
}

type walletClientImpl struct {
	httpClient   *http.Client
	tokenClient  *http.Client
	baseApiURL   string
	clientID     string
	clientSecret string
	redirectURL  string
}

func NewWalletClient(cfg *config.Wallet) WalletClient {
	return &walletClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		tokenClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseApiURL:   cfg.BaseApiURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURL:  cfg.RedirectURL,
	}
}

type walletLink struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

type walletSessionResult struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Links  []walletLink `json:"links"`
}

type walletCaptureResult struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

func (c *walletClientImpl) getAccessToken(ctx context.Context) (string, error) {
	auth := base64.StdEncoding.EncodeToString(
		[]byte(c.clientID + ":" + c.clientSecret),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseApiURL+"/v1/oauth2/token",
		bytes.NewBufferString("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.tokenClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("wallet token error %d: %s", resp.StatusCode, string(b))
	}

	var res struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if res.AccessToken == "" {
		return "", fmt.Errorf("wallet token response missing access_token")
	}

	return res.AccessToken, nil
}

func (c *walletClientImpl) CreateSession(ctx context.Context, sessionReq *SessionRequest) (*SessionResult, error) {
	accessToken, err := c.getAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("get wallet access token: %w", err)
	}

	items := make([]map[string]interface{}, len(sessionReq.Items))
	for i, item := range sessionReq.Items {
		items[i] = map[string]interface{}{
			"name": item.Name,
			"unit_amount": map[string]string{
				"currency_code": sessionReq.Currency,
				"value":         item.Price.StringFixed(2),
			},
			"quantity": strconv.Itoa(item.Quantity),
			"category": item.Category,
		}
	}

	itemTotal := sessionReq.Amount.
		Sub(sessionReq.DeliveryFee).
		Add(sessionReq.DiscountAmount)

	breakdown := map[string]interface{}{
		"item_total": map[string]string{
			"currency_code": sessionReq.Currency,
			"value":         itemTotal.StringFixed(2),
		},
	}
	if sessionReq.DeliveryFee.IsPositive() {
		breakdown["shipping"] = map[string]string{
			"currency_code": sessionReq.Currency,
			"value":         sessionReq.DeliveryFee.StringFixed(2),
		}
	}
	if sessionReq.DiscountAmount.IsPositive() {
		breakdown["discount"] = map[string]string{
			"currency_code": sessionReq.Currency,
			"value":         sessionReq.DiscountAmount.StringFixed(2),
		}
	}

	purchaseUnit := map[string]interface{}{
		"amount": map[string]interface{}{
			"currency_code": sessionReq.Currency,
			"value":         sessionReq.Amount.StringFixed(2),
			"breakdown":     breakdown,
		},
		"items": items,
	}
	if sessionReq.Shipping != nil {
		purchaseUnit["shipping"] = map[string]interface{}{
			"address": map[string]string{
				"address_line_1": sessionReq.Shipping.Street,
				"admin_area_2":   sessionReq.Shipping.City,
				"postal_code":    sessionReq.Shipping.Postal,
				"country_code":   sessionReq.Shipping.Country,
			},
		}
	}

	payload := map[string]interface{}{
		"intent":         "CAPTURE",
		"purchase_units": []map[string]interface{}{purchaseUnit},
		"application_context": map[string]string{
			"return_url": c.redirectURL,
			"cancel_url": c.redirectURL,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal req payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseApiURL+"/v2/checkout/orders",
		bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Wallet-Request-Id", sessionReq.CorrelationID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wallet create session request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("wallet error %d: %s", resp.StatusCode, string(b))
	}

	var result walletSessionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode wallet response: %w", err)
	}

	return &SessionResult{
		SessionID:   result.ID,
		ApprovalURL: extractApproveURL(result.Links),
	}, nil
}

func (c *walletClientImpl) GetSessionStatus(ctx context.Context, sessionID string) (*SessionState, error) {
	accessToken, err := c.getAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("get wallet access token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/v2/checkout/orders/%s", c.baseApiURL, sessionID), nil)
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wallet get session request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("wallet session %s not found", sessionID)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("wallet error %d: %s", resp.StatusCode, string(b))
	}

	var result walletCaptureResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode wallet response: %w", err)
	}

	state := &SessionState{Status: result.Status}
	for _, unit := range result.PurchaseUnits {
		for _, captured := range unit.Payments.Captures {
			state.Capture = &CaptureResult{
				TransactionID: captured.ID,
				RawStatus:     captured.Status,
				Succeeded:     captured.Status == walletCaptureCompleted,
			}
		}
	}

	return state, nil
}

func (c *walletClientImpl) CaptureSession(ctx context.Context, sessionID, correlationID string) (*CaptureResult, error) {
	accessToken, err := c.getAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("get wallet access token: %w", err)
	}

	url := fmt.Sprintf("%s/v2/checkout/orders/%s/capture", c.baseApiURL, sessionID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create capture request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Wallet-Request-Id", correlationID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wallet capture request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("wallet capture failed: status=%d body=%s", resp.StatusCode, string(b))
	}

	var result walletCaptureResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode capture response: %w", err)
	}

	capture := &CaptureResult{RawStatus: result.Status}
	for _, unit := range result.PurchaseUnits {
		for _, c := range unit.Payments.Captures {
			capture.TransactionID = c.ID
			capture.RawStatus = c.Status
		}
	}
	capture.Succeeded = capture.RawStatus == walletCaptureCompleted

	return capture, nil
}

func extractApproveURL(links []walletLink) string {
	for _, link := range links {
		if link.Rel == walletApproveLinkRelation {
			return link.Href
		}
	}
	return ""
}
