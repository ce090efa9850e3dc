package ports

import (
	"context"

	"github.com/tunestream/streaming-api/internal/core/domain"
)

// CreatePaymentInput carries the data needed to start a checkout.
type CreatePaymentInput struct {
	UserID    string
	Amount    int64
	OrderInfo string
	ClientIP  string
}

// CreatePaymentResult is returned after a pending payment is stored.
type CreatePaymentResult struct {
	TxnRef     string
	PaymentURL string
}

// GetPaymentInput scopes a status query to the caller.
type GetPaymentInput struct {
	TxnRef   string
	Identity *domain.Identity
}

// PaymentService defines use-case operations for gateway payments.
type PaymentService interface {
	Create(ctx context.Context, in CreatePaymentInput) (*CreatePaymentResult, error)
	Get(ctx context.Context, in GetPaymentInput) (*domain.Payment, error)
	// Apply records a verified gateway notification against its payment.
	Apply(ctx context.Context, n domain.GatewayNotification) error
}

// CheckoutRequest describes a single redirect to the payment gateway.
type CheckoutRequest struct {
	TxnRef    string
	Amount    int64
	OrderInfo string
	ClientIP  string
}

// PaymentGateway signs checkout redirects for the external gateway.
type PaymentGateway interface {
	PaymentURL(req CheckoutRequest) (string, error)
}
