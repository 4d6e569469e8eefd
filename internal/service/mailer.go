package service

import (
	"fmt"
	"strings"

	gomail "gopkg.in/gomail.v2"

	"github.com/declared-as-ala/backend/internal/config"
	"github.com/declared-as-ala/backend/internal/model"
)

// Mailer sends the order receipt. Callers treat it as fire-and-forget:
// a failed send is logged and never affects order or payment state.
type Mailer interface {
	SendReceipt(to string, order *model.Order) error
}

type smtpMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewMailer(cfg *config.SMTP) Mailer {
	return &smtpMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (m *smtpMailer) SendReceipt(to string, order *model.Order) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", fmt.Sprintf("Order confirmation %s", order.ID))
	msg.SetBody("text/plain", receiptBody(order))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send receipt: %w", err)
	}
	return nil
}

func receiptBody(order *model.Order) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Hello %s,\n\nThank you for your order %s.\n\n", order.CustomerName, order.ID)
	for _, item := range order.Items {
		fmt.Fprintf(&b, "  %d x %s — %s %s\n", item.Quantity, item.Name, item.Total.StringFixed(2), item.Currency)
	}
	if order.DeliveryFee.IsPositive() {
		fmt.Fprintf(&b, "  Delivery — %s %s\n", order.DeliveryFee.StringFixed(2), order.Currency)
	}
	if order.DiscountAmount.IsPositive() {
		fmt.Fprintf(&b, "  Discount (%s) — -%s %s\n", order.DiscountCode, order.DiscountAmount.StringFixed(2), order.Currency)
	}
	fmt.Fprintf(&b, "\nTotal: %s %s\n", order.Amount.StringFixed(2), order.Currency)

	if order.PickupType == model.PickupStore {
		fmt.Fprintf(&b, "\nPickup at: %s, %s\n", order.PickupLocationName, order.PickupLocationAddress)
	} else {
		fmt.Fprintf(&b, "\nDelivery to: %s, %s %s\n", order.DeliveryStreet, order.DeliveryPostal, order.DeliveryCity)
		if order.DeliveryTime != "" {
			fmt.Fprintf(&b, "Requested slot: %s\n", order.DeliveryTime)
		}
	}

	return b.String()
}
