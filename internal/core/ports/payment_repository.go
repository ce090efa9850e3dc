package ports

import (
	"context"

	"github.com/tunestream/streaming-api/internal/core/domain"
)

// PaymentRepository handles payment persistence.
type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) error
	FindByTxnRef(ctx context.Context, txnRef string) (*domain.Payment, error)
	// Finalize moves a pending payment to its terminal status. It returns
	// domain.ErrPaymentFinalized when the payment is no longer pending.
	Finalize(ctx context.Context, n domain.GatewayNotification, status domain.PaymentStatus) error
}
