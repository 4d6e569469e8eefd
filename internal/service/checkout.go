package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/declared-as-ala/backend/internal/apperr"
	"github.com/declared-as-ala/backend/internal/cache"
	"github.com/declared-as-ala/backend/internal/client"
	"github.com/declared-as-ala/backend/internal/dto"
	"github.com/declared-as-ala/backend/internal/model"
	"github.com/declared-as-ala/backend/internal/repository"
)

// amountEpsilon is the tolerated gap between the client-declared total and
// the server-recomputed one. Anything above it is rejected, never corrected.
var amountEpsilon = decimal.NewFromFloat(0.01)

// CheckoutService is the reconciliation orchestrator: it owns the path from
// a validated checkout request, through the remote processor session, to
// exactly one paid order per remote session id.
//
// Persistence strategy per payment method:
//   - card: eager. The order row exists in pending status before the remote
//     session is created; the signed webhook flips it to paid.
//   - wallet: deferred. Nothing is persisted until capture succeeds; the
//     normalized payload waits in the pending-checkout store.
//   - cash: direct order creation, no processor leg.
type CheckoutService interface {
	CreateCheckout(ctx context.Context, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error)
	HandleCardWebhook(ctx context.Context, headers http.Header, body []byte) error
	CaptureWallet(ctx context.Context, remoteSessionID string) (*dto.CaptureResponse, error)
	OrderStatus(ctx context.Context, orderID string) (*dto.OrderStatusResponse, error)
}

type checkoutServiceImpl struct {
	cardClient   client.CardClient
	walletClient client.WalletClient
	orderRepo    repository.OrderRepository
	productRepo  repository.ProductRepository
	discountRepo repository.DiscountRepository
	customerRepo repository.CustomerRepository
	webhookRepo  repository.WebhookEventRepository
	pending      cache.PendingStore
	mailer       Mailer
	logger       *zap.Logger
}

func NewCheckoutService(
	cardClient client.CardClient,
	walletClient client.WalletClient,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	discountRepo repository.DiscountRepository,
	customerRepo repository.CustomerRepository,
	webhookRepo repository.WebhookEventRepository,
	pending cache.PendingStore,
	mailer Mailer,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutServiceImpl{
		cardClient:   cardClient,
		walletClient: walletClient,
		orderRepo:    orderRepo,
		productRepo:  productRepo,
		discountRepo: discountRepo,
		customerRepo: customerRepo,
		webhookRepo:  webhookRepo,
		pending:      pending,
		mailer:       mailer,
		logger:       logger,
	}
}

func (s *checkoutServiceImpl) CreateCheckout(ctx context.Context, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	order, err := s.buildOrder(ctx, req)
	if err != nil {
		return nil, err
	}

	switch order.PaymentMethod {
	case model.PaymentCash:
		order.ID = uuid.NewString()
		order.Status = model.StatusPending
		if err := s.orderRepo.Create(ctx, order); err != nil {
			return nil, err
		}
		return &dto.CheckoutResponse{OrderID: order.ID}, nil

	case model.PaymentCard:
		return s.createCardCheckout(ctx, order)

	case model.PaymentWallet:
		return s.createWalletCheckout(ctx, order)
	}

	return nil, apperr.Validation("unsupported payment method")
}

// createCardCheckout persists a pending order first, then opens the remote
// session. A processor failure intentionally leaves the pending row behind
// for manual reconciliation.
func (s *checkoutServiceImpl) createCardCheckout(ctx context.Context, order *model.Order) (*dto.CheckoutResponse, error) {
	order.ID = uuid.NewString()
	order.Status = model.StatusPending
	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}

	session, err := s.cardClient.CreateSession(ctx, sessionRequestFromOrder(order))
	if err != nil {
		s.logger.Error("card session creation failed, pending order kept for reconciliation",
			zap.String("order_id", order.ID),
			zap.Error(err))
		return nil, apperr.Processor("card processor unavailable", err)
	}

	if err := s.orderRepo.SetRemoteSession(ctx, order.ID, session.SessionID); err != nil {
		return nil, err
	}

	return &dto.CheckoutResponse{
		OrderID:         order.ID,
		RemoteSessionID: session.SessionID,
		ClientSecret:    session.ClientSecret,
	}, nil
}

// createWalletCheckout persists nothing: the payload is stashed under the
// remote session id and only promoted to a real order once capture succeeds.
func (s *checkoutServiceImpl) createWalletCheckout(ctx context.Context, order *model.Order) (*dto.CheckoutResponse, error) {
	session, err := s.walletClient.CreateSession(ctx, sessionRequestFromOrder(order))
	if err != nil {
		return nil, apperr.Processor("wallet processor unavailable", err)
	}

	order.RemoteSessionID = &session.SessionID
	if err := s.pending.Put(ctx, session.SessionID, order); err != nil {
		s.logger.Error("stash pending checkout failed, remote session unusable",
			zap.String("remote_session_id", session.SessionID),
			zap.Error(err))
		return nil, apperr.Processor("pending checkout store unavailable", err)
	}

	return &dto.CheckoutResponse{
		RemoteSessionID: session.SessionID,
		ApprovalURL:     session.ApprovalURL,
	}, nil
}

// HandleCardWebhook processes a processor push for the card variant. Any
// event that verifies and is understood returns nil so the processor stops
// redelivering, including idempotent no-ops.
func (s *checkoutServiceImpl) HandleCardWebhook(ctx context.Context, headers http.Header, body []byte) error {
	if err := s.cardClient.VerifyWebhook(headers, body); err != nil {
		return apperr.Wrap(apperr.KindSignature, "webhook signature verification failed", err)
	}

	var event client.CardWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return apperr.Wrap(apperr.KindValidation, "malformed webhook payload", err)
	}
	if event.ID == "" || event.Data.SessionID == "" {
		return apperr.Validation("webhook payload missing event or session id")
	}

	seen, err := s.webhookRepo.Exists(ctx, event.ID)
	if err != nil {
		return err
	}
	if seen {
		s.logger.Info("webhook event already processed",
			zap.String("event_id", event.ID))
		return nil
	}

	switch event.Type {
	case client.CardEventCaptureSucceeded:
		if err := s.confirmCardCapture(ctx, &event); err != nil {
			return err
		}
	case client.CardEventCaptureFailed:
		if err := s.orderRepo.MarkFailedBySession(ctx, event.Data.SessionID); err != nil {
			return err
		}
	default:
		s.logger.Debug("ignoring webhook event type",
			zap.String("event_type", event.Type))
	}

	if err := s.webhookRepo.MarkProcessed(ctx, event.ID, event.Type); err != nil {
		// Dedup bookkeeping only; the conditional paid transition already
		// guards against redelivery.
		s.logger.Warn("mark webhook event processed failed",
			zap.String("event_id", event.ID),
			zap.Error(err))
	}

	return nil
}

func (s *checkoutServiceImpl) confirmCardCapture(ctx context.Context, event *client.CardWebhookEvent) error {
	transitioned, err := s.orderRepo.MarkPaidBySession(ctx, event.Data.SessionID, event.Data.TransactionID)
	if err != nil {
		return err
	}
	if !transitioned {
		existing, err := s.orderRepo.FindByRemoteSessionID(ctx, event.Data.SessionID)
		if err != nil {
			return err
		}
		if existing == nil {
			s.logger.Error("capture confirmation without matching order, manual intervention required",
				zap.String("event_id", event.ID),
				zap.String("remote_session_id", event.Data.SessionID))
			return nil
		}
		s.logger.Info("duplicate capture confirmation, order already paid",
			zap.String("remote_session_id", event.Data.SessionID))
		return nil
	}

	order, err := s.orderRepo.FindByRemoteSessionID(ctx, event.Data.SessionID)
	if err != nil {
		return err
	}
	if order == nil {
		// Paid transition fired yet the row is gone: data-level inconsistency.
		s.logger.Error("paid order vanished after transition",
			zap.String("remote_session_id", event.Data.SessionID))
		return nil
	}

	s.recordCustomer(ctx, order)
	go s.sendReceipt(order)

	return nil
}

// CaptureWallet finalizes a wallet checkout after the payer returns from the
// approval redirect.
func (s *checkoutServiceImpl) CaptureWallet(ctx context.Context, remoteSessionID string) (*dto.CaptureResponse, error) {
	stash, err := s.pending.Get(ctx, remoteSessionID)
	if err != nil {
		return nil, err
	}

	if stash == nil {
		existing, err := s.orderRepo.FindByRemoteSessionID(ctx, remoteSessionID)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.Status == model.StatusPaid {
			// Redelivered confirmation for an already-promoted order.
			return &dto.CaptureResponse{
				Success: true,
				OrderID: existing.ID,
				Status:  string(existing.Status),
			}, nil
		}

		s.logger.Error("confirmation without pending payload or paid order, manual intervention required",
			zap.String("remote_session_id", remoteSessionID))
		return nil, apperr.NotFound("unknown checkout session")
	}

	state, err := s.walletClient.GetSessionStatus(ctx, remoteSessionID)
	if err != nil {
		return nil, apperr.Processor("wallet session status unavailable", err)
	}

	switch state.Status {
	case client.WalletSessionApproved:
		// capture below
	case client.WalletSessionCompleted:
		// Money already moved; a previous attempt died between capture and
		// persistence. The retry must still end with exactly one paid order.
		return s.resolveCompletedSession(ctx, remoteSessionID, stash, state.Capture)
	case client.WalletSessionVoided:
		if err := s.pending.Delete(ctx, remoteSessionID); err != nil {
			s.logger.Warn("delete pending checkout failed",
				zap.String("remote_session_id", remoteSessionID),
				zap.Error(err))
		}
		return nil, apperr.StateConflict("payment cancelled by payer")
	case client.WalletSessionCreated, client.WalletSessionPayerAction:
		return nil, apperr.StateConflict("payment not yet approved by payer")
	default:
		return nil, apperr.StateConflict("unexpected session state: " + state.Status)
	}

	capture, err := s.walletClient.CaptureSession(ctx, remoteSessionID, uuid.NewString())
	if err != nil {
		return nil, apperr.Processor("wallet capture failed", err)
	}

	if !capture.Succeeded {
		// Failed payment before an order exists produces no order record.
		if err := s.pending.Delete(ctx, remoteSessionID); err != nil {
			s.logger.Warn("delete pending checkout failed",
				zap.String("remote_session_id", remoteSessionID),
				zap.Error(err))
		}
		return &dto.CaptureResponse{
			Success: false,
			Status:  string(model.StatusFailed),
		}, nil
	}

	return s.promotePendingOrder(ctx, remoteSessionID, stash, capture)
}

// resolveCompletedSession recovers a session the processor already captured:
// either a lingering stash beside an already-promoted order, or an order
// insert that failed after the money moved.
func (s *checkoutServiceImpl) resolveCompletedSession(ctx context.Context, remoteSessionID string, stash *model.Order, capture *client.CaptureResult) (*dto.CaptureResponse, error) {
	existing, err := s.orderRepo.FindByRemoteSessionID(ctx, remoteSessionID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Status == model.StatusPaid {
		if err := s.pending.Delete(ctx, remoteSessionID); err != nil {
			s.logger.Warn("delete pending checkout failed",
				zap.String("remote_session_id", remoteSessionID),
				zap.Error(err))
		}
		return &dto.CaptureResponse{
			Success: true,
			OrderID: existing.ID,
			Status:  string(existing.Status),
		}, nil
	}

	if capture == nil {
		capture = &client.CaptureResult{
			RawStatus: client.WalletSessionCompleted,
			Succeeded: true,
		}
	}
	return s.promotePendingOrder(ctx, remoteSessionID, stash, capture)
}

// promotePendingOrder creates the order directly in paid status. The unique
// index on remote_session_id is the exactly-once barrier: a concurrent
// duplicate promotion loses the insert and resolves to the winner's order.
func (s *checkoutServiceImpl) promotePendingOrder(ctx context.Context, remoteSessionID string, stash *model.Order, capture *client.CaptureResult) (*dto.CaptureResponse, error) {
	stash.ID = uuid.NewString()
	stash.Status = model.StatusPaid
	stash.RemoteSessionID = &remoteSessionID
	stash.CaptureID = &capture.TransactionID
	for i := range stash.Items {
		stash.Items[i].OrderID = stash.ID
	}

	if err := s.orderRepo.Create(ctx, stash); err != nil {
		existing, findErr := s.orderRepo.FindByRemoteSessionID(ctx, remoteSessionID)
		if findErr == nil && existing != nil && existing.Status == model.StatusPaid {
			return &dto.CaptureResponse{
				Success: true,
				OrderID: existing.ID,
				Status:  string(existing.Status),
			}, nil
		}
		return nil, err
	}

	if err := s.pending.Delete(ctx, remoteSessionID); err != nil {
		s.logger.Warn("delete pending checkout failed",
			zap.String("remote_session_id", remoteSessionID),
			zap.Error(err))
	}

	s.recordCustomer(ctx, stash)
	go s.sendReceipt(stash)

	return &dto.CaptureResponse{
		Success: true,
		OrderID: stash.ID,
		Status:  string(stash.Status),
	}, nil
}

func (s *checkoutServiceImpl) OrderStatus(ctx context.Context, orderID string) (*dto.OrderStatusResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("order not found")
	}
	if err != nil {
		return nil, err
	}

	resp := &dto.OrderStatusResponse{
		Status:    string(order.Status),
		Amount:    order.Amount.InexactFloat64(),
		Currency:  order.Currency,
		Delivered: order.Delivered,
	}
	if order.RemoteSessionID != nil {
		resp.RemoteSessionID = *order.RemoteSessionID
	}
	return resp, nil
}

// buildOrder validates the request and produces the normalized order with
// server-recomputed totals. No side effects.
func (s *checkoutServiceImpl) buildOrder(ctx context.Context, req *dto.CheckoutRequest) (*model.Order, error) {
	if len(req.Items) == 0 {
		return nil, apperr.Validation("cart is empty")
	}
	if _, err := mail.ParseAddress(req.Customer.Email); err != nil {
		return nil, apperr.Validation("invalid customer email")
	}
	if strings.TrimSpace(req.Customer.Phone) == "" {
		return nil, apperr.Validation("customer phone is required")
	}
	if strings.TrimSpace(req.Customer.FullName) == "" {
		return nil, apperr.Validation("customer name is required")
	}

	pickupType := model.PickupType(req.PickupType)
	switch pickupType {
	case model.PickupStore:
		if req.PickupLocation == nil ||
			req.PickupLocation.ID == "" ||
			req.PickupLocation.Name == "" ||
			req.PickupLocation.Address == "" {
			return nil, apperr.Validation("store pickup requires a pickup location")
		}
	case model.PickupDelivery:
		if req.DeliveryAddress == nil ||
			req.DeliveryAddress.Street == "" ||
			req.DeliveryAddress.City == "" {
			return nil, apperr.Validation("delivery requires a street and city")
		}
	default:
		return nil, apperr.Validation("unknown pickup type")
	}

	items, itemsTotal, err := s.buildItems(ctx, req)
	if err != nil {
		return nil, err
	}

	deliveryFee := decimal.NewFromFloat(req.DeliveryFee)
	discountAmount, err := s.verifyDiscount(ctx, req)
	if err != nil {
		return nil, err
	}

	total := itemsTotal.Add(deliveryFee).Sub(discountAmount).Round(2)
	declared := decimal.NewFromFloat(req.Amount)
	if total.Sub(declared).Abs().GreaterThan(amountEpsilon) {
		return nil, apperr.AmountMismatch("declared amount " + declared.StringFixed(2) +
			" does not match computed total " + total.StringFixed(2))
	}

	order := &model.Order{
		CustomerName:   req.Customer.FullName,
		CustomerEmail:  req.Customer.Email,
		CustomerPhone:  req.Customer.Phone,
		PickupType:     pickupType,
		DeliveryFee:    deliveryFee.Round(2),
		DiscountCode:   req.DiscountCode,
		DiscountAmount: discountAmount.Round(2),
		Amount:         total,
		Currency:       req.Currency,
		PaymentMethod:  model.PaymentMethod(req.PaymentMethod),
		Items:          items,
		// Store pickup has no transport step.
		Delivered: pickupType == model.PickupStore,
	}

	if pickupType == model.PickupStore {
		order.PickupLocationID = req.PickupLocation.ID
		order.PickupLocationName = req.PickupLocation.Name
		order.PickupLocationAddress = req.PickupLocation.Address
	} else {
		order.DeliveryStreet = req.DeliveryAddress.Street
		order.DeliveryCity = req.DeliveryAddress.City
		order.DeliveryPostal = req.DeliveryAddress.Postal
		order.DeliveryCountry = req.DeliveryAddress.Country
		order.DeliveryTime = req.DeliveryTime
	}

	return order, nil
}

// buildItems checks each line against the catalog and computes line totals.
// Prices are pinned here; confirmation never re-derives them.
func (s *checkoutServiceImpl) buildItems(ctx context.Context, req *dto.CheckoutRequest) ([]model.OrderItem, decimal.Decimal, error) {
	productIDs := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return nil, decimal.Zero, apperr.Validation("item quantity must be at least 1")
		}
		if item.Price <= 0 {
			return nil, decimal.Zero, apperr.Validation("item price must be positive")
		}
		productIDs = append(productIDs, item.ProductID)
	}

	products, err := s.productRepo.FindMany(ctx, productIDs)
	if err != nil {
		return nil, decimal.Zero, err
	}
	catalog := make(map[string]*model.Product, len(products))
	for _, p := range products {
		catalog[p.ID] = p
	}

	items := make([]model.OrderItem, len(req.Items))
	itemsTotal := decimal.Zero

	for i, item := range req.Items {
		product, ok := catalog[item.ProductID]
		if !ok {
			return nil, decimal.Zero, apperr.Validation("unknown product: " + item.ProductID)
		}

		catalogPrice := product.Price
		if item.VariantID != "" {
			var variant *model.ProductVariant
			for v := range product.Variants {
				if product.Variants[v].ID == item.VariantID {
					variant = &product.Variants[v]
					break
				}
			}
			if variant == nil {
				return nil, decimal.Zero, apperr.Validation("unknown variant: " + item.VariantID)
			}
			catalogPrice = variant.Price
		}

		price := decimal.NewFromFloat(item.Price).Round(2)
		if price.Sub(catalogPrice).Abs().GreaterThan(amountEpsilon) {
			return nil, decimal.Zero, apperr.Validation("item price differs from catalog: " + item.ProductID)
		}

		lineTotal := price.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		itemsTotal = itemsTotal.Add(lineTotal)

		currency := item.Currency
		if currency == "" {
			currency = req.Currency
		}

		items[i] = model.OrderItem{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Name:      item.Name,
			Unit:      item.Unit,
			Quantity:  item.Quantity,
			Price:     price,
			Currency:  currency,
			Total:     lineTotal,
		}
	}

	return items, itemsTotal.Round(2), nil
}

func (s *checkoutServiceImpl) verifyDiscount(ctx context.Context, req *dto.CheckoutRequest) (decimal.Decimal, error) {
	declared := decimal.NewFromFloat(req.DiscountAmount)
	if req.DiscountCode == "" {
		if declared.IsPositive() {
			return decimal.Zero, apperr.Validation("discount amount without a discount code")
		}
		return decimal.Zero, nil
	}

	discount, err := s.discountRepo.FindActiveByCode(ctx, req.DiscountCode)
	if err != nil {
		return decimal.Zero, err
	}
	if discount == nil {
		return decimal.Zero, apperr.Validation("unknown or expired discount code")
	}
	if discount.Amount.Sub(declared).Abs().GreaterThan(amountEpsilon) {
		return decimal.Zero, apperr.Validation("discount amount does not match code")
	}

	return discount.Amount, nil
}

func sessionRequestFromOrder(order *model.Order) *client.SessionRequest {
	items := make([]client.SessionItem, len(order.Items))
	for i, item := range order.Items {
		items[i] = client.SessionItem{
			Name:     item.Name,
			Price:    item.Price,
			Quantity: item.Quantity,
			Category: "PHYSICAL_GOODS",
		}
	}

	req := &client.SessionRequest{
		Amount:         order.Amount,
		Currency:       order.Currency,
		Items:          items,
		DeliveryFee:    order.DeliveryFee,
		DiscountAmount: order.DiscountAmount,
		CorrelationID:  uuid.NewString(),
	}
	if order.PickupType == model.PickupDelivery {
		req.Shipping = &client.ShippingAddress{
			Street:  order.DeliveryStreet,
			City:    order.DeliveryCity,
			Postal:  order.DeliveryPostal,
			Country: order.DeliveryCountry,
		}
	}

	return req
}

func (s *checkoutServiceImpl) recordCustomer(ctx context.Context, order *model.Order) {
	err := s.customerRepo.Upsert(ctx, &model.Customer{
		ID:       uuid.NewString(),
		FullName: order.CustomerName,
		Email:    order.CustomerEmail,
		Phone:    order.CustomerPhone,
	})
	if err != nil {
		s.logger.Warn("upsert customer profile failed",
			zap.String("order_id", order.ID),
			zap.Error(err))
	}
}

func (s *checkoutServiceImpl) sendReceipt(order *model.Order) {
	if err := s.mailer.SendReceipt(order.CustomerEmail, order); err != nil {
		s.logger.Warn("send receipt failed",
			zap.String("order_id", order.ID),
			zap.String("email", order.CustomerEmail),
			zap.Error(err))
	}
}
