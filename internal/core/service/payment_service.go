package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tunestream/streaming-api/internal/core/domain"
	"github.com/tunestream/streaming-api/internal/core/ports"
)

// NotificationDedup abstracts the replay store for gateway notifications (Redis).
type NotificationDedup interface {
	IsDuplicate(ctx context.Context, txnRef, responseCode string) (bool, error)
	Mark(ctx context.Context, txnRef, responseCode string) error
}

type PaymentService struct {
	repo    ports.PaymentRepository
	gateway ports.PaymentGateway
	dedup   NotificationDedup
	log     zerolog.Logger
}

func NewPaymentService(repo ports.PaymentRepository, gateway ports.PaymentGateway, dedup NotificationDedup, log zerolog.Logger) *PaymentService {
	return &PaymentService{repo: repo, gateway: gateway, dedup: dedup, log: log}
}

// Create stores a pending payment for the caller and returns the gateway redirect.
func (s *PaymentService) Create(ctx context.Context, in ports.CreatePaymentInput) (*ports.CreatePaymentResult, error) {
	if in.UserID == "" || in.Amount <= 0 {
		return nil, domain.ErrInvalidPaymentData
	}

	now := time.Now().UTC()
	p := &domain.Payment{
		TxnRef:    generateTxnRef(),
		UserID:    in.UserID,
		Amount:    in.Amount,
		OrderInfo: in.OrderInfo,
		Status:    domain.PaymentPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	paymentURL, err := s.gateway.PaymentURL(ports.CheckoutRequest{
		TxnRef:    p.TxnRef,
		Amount:    p.Amount,
		OrderInfo: p.OrderInfo,
		ClientIP:  in.ClientIP,
	})
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	if err := s.repo.Create(ctx, p); err != nil {
		s.log.Error().Err(err).Msg("failed to create payment")
		return nil, err
	}

	s.log.Info().Str("txn_ref", p.TxnRef).Str("user_id", p.UserID).Int64("amount", p.Amount).Msg("payment created")
	return &ports.CreatePaymentResult{TxnRef: p.TxnRef, PaymentURL: paymentURL}, nil
}

// Get returns a payment visible to the caller. Payments owned by someone
// else are reported as not found.
func (s *PaymentService) Get(ctx context.Context, in ports.GetPaymentInput) (*domain.Payment, error) {
	if in.Identity == nil {
		return nil, domain.ErrForbidden
	}

	p, err := s.repo.FindByTxnRef(ctx, in.TxnRef)
	if err != nil {
		return nil, err
	}
	if !in.Identity.IsAdmin() && p.UserID != in.Identity.UserID {
		return nil, domain.ErrPaymentNotFound
	}
	return p, nil
}

// Apply records a verified gateway notification. Replays of an already
// applied notification return domain.ErrPaymentFinalized.
func (s *PaymentService) Apply(ctx context.Context, n domain.GatewayNotification) error {
	// 1. Fast path for replays; a dedup failure only costs a repository read.
	isDup, err := s.dedup.IsDuplicate(ctx, n.TxnRef, n.ResponseCode)
	if err != nil {
		s.log.Warn().Err(err).Str("txn_ref", n.TxnRef).Msg("dedup check failed, processing anyway")
	} else if isDup {
		s.log.Debug().Str("txn_ref", n.TxnRef).Msg("duplicate notification skipped")
		return domain.ErrPaymentFinalized
	}

	// 2. Load and cross-check against what we asked the gateway to charge.
	p, err := s.repo.FindByTxnRef(ctx, n.TxnRef)
	if err != nil {
		return fmt.Errorf("apply notification: %w", err)
	}
	if p.Amount != n.Amount {
		return fmt.Errorf("apply notification: %w (expected %d, got %d)", domain.ErrAmountMismatch, p.Amount, n.Amount)
	}
	if p.Final() {
		return domain.ErrPaymentFinalized
	}

	// 3. Conditional update: only a pending payment can be finalized.
	status := domain.StatusForCode(n.ResponseCode)
	if err := s.repo.Finalize(ctx, n, status); err != nil {
		if errors.Is(err, domain.ErrPaymentFinalized) {
			return err
		}
		return fmt.Errorf("apply notification: finalize: %w", err)
	}

	if markErr := s.dedup.Mark(ctx, n.TxnRef, n.ResponseCode); markErr != nil {
		s.log.Warn().Err(markErr).Str("txn_ref", n.TxnRef).Msg("failed to set dedup key")
	}

	s.log.Info().
		Str("txn_ref", n.TxnRef).
		Str("status", string(status)).
		Str("source", n.Source).
		Msg("payment finalized")

	return nil
}

// generateTxnRef returns an opaque merchant reference accepted by the gateway.
func generateTxnRef() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}
