package client

import "github.com/shopspring/decimal"

// Shared request/response shapes for both payment processor gateways.
// Each variant exposes the same three-operation contract: obtain an access
// credential, create a remote checkout session, capture the session.

type SessionItem struct {
	Name     string
	Price    decimal.Decimal
	Quantity int
	Category string
}

type ShippingAddress struct {
	Street  string
	City    string
	Postal  string
	Country string
}

type SessionRequest struct {
	Amount         decimal.Decimal
	Currency       string
	Items          []SessionItem
	DeliveryFee    decimal.Decimal
	DiscountAmount decimal.Decimal
	Shipping       *ShippingAddress
	// CorrelationID is forwarded as the processor's idempotency/request id.
	CorrelationID string
}

type SessionResult struct {
	SessionID string
	// ApprovalURL is set by the redirect-wallet variant.
	ApprovalURL string
	// ClientSecret is set by the card variant.
	ClientSecret string
}

type CaptureResult struct {
	TransactionID string
	// RawStatus is the processor's terminal status string.
	RawStatus string
	Succeeded bool
}

// SessionState is the remote view of a wallet session. Capture is populated
// once the processor has already captured the session.
type SessionState struct {
	Status  string
	Capture *CaptureResult
}

// Remote session states reported by the wallet processor.
const (
	WalletSessionCreated      = "CREATED"
	WalletSessionPayerAction  = "PAYER_ACTION_REQUIRED"
	WalletSessionApproved     = "APPROVED"
	WalletSessionVoided       = "VOIDED"
	WalletSessionCompleted    = "COMPLETED"
	walletCaptureCompleted    = "COMPLETED"
	walletApproveLinkRelation = "approve"
)
