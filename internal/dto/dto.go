package dto

type CheckoutItem struct {
	ProductID string  `json:"productId" validate:"required"`
	VariantID string  `json:"variantId,omitempty"`
	Name      string  `json:"name" validate:"required"`
	Unit      string  `json:"unit,omitempty"`
	Quantity  int     `json:"quantity" validate:"required,min=1"`
	Price     float64 `json:"price" validate:"required,gt=0"`
	Currency  string  `json:"currency,omitempty"`
}

type CustomerInfo struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required"`
}

type PickupLocation struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

type DeliveryAddress struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	Postal  string `json:"postal"`
	Country string `json:"country"`
}

type CheckoutRequest struct {
	Items           []CheckoutItem   `json:"items" validate:"required,min=1,dive"`
	Customer        CustomerInfo     `json:"customer" validate:"required"`
	PickupType      string           `json:"pickupType" validate:"required,oneof=store delivery"`
	PickupLocation  *PickupLocation  `json:"pickupLocationDetails,omitempty"`
	DeliveryAddress *DeliveryAddress `json:"deliveryAddress,omitempty"`
	DeliveryTime    string           `json:"deliveryTime,omitempty"`
	DeliveryFee     float64          `json:"deliveryFee" validate:"gte=0"`
	DiscountCode    string           `json:"discountCode,omitempty"`
	DiscountAmount  float64          `json:"discountAmount" validate:"gte=0"`
	Amount          float64          `json:"amount" validate:"required,gt=0"`
	Currency        string           `json:"currency" validate:"required,len=3"`
	PaymentMethod   string           `json:"paymentMethod" validate:"required,oneof=card wallet cash"`
}

type CheckoutResponse struct {
	OrderID         string `json:"orderId,omitempty"`
	RemoteSessionID string `json:"remoteSessionId,omitempty"`
	ClientSecret    string `json:"clientSecret,omitempty"`
	ApprovalURL     string `json:"approvalUrl,omitempty"`
}

type CaptureRequest struct {
	RemoteSessionID string `json:"remoteSessionId" validate:"required"`
}

type CaptureResponse struct {
	Success bool   `json:"success"`
	OrderID string `json:"orderId,omitempty"`
	Status  string `json:"status"`
}

type OrderStatusResponse struct {
	Status          string  `json:"status"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	RemoteSessionID string  `json:"remoteSessionId,omitempty"`
	Delivered       bool    `json:"delivered"`
}
