package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/tunestream/streaming-api/internal/api/metrics"
	"github.com/tunestream/streaming-api/internal/core/domain"
	"github.com/tunestream/streaming-api/internal/core/ports"
)

// CallbackVerifier authenticates the query string the gateway sends back.
type CallbackVerifier interface {
	Verify(q url.Values) (domain.GatewayNotification, error)
}

// NotificationQueue accepts verified notifications for asynchronous reconciliation.
type NotificationQueue interface {
	Enqueue(ctx context.Context, n domain.GatewayNotification) bool
}

// IPN response codes understood by the gateway.
const (
	ipnConfirmed        = "00"
	ipnOrderNotFound    = "01"
	ipnAlreadyConfirmed = "02"
	ipnInvalidAmount    = "04"
	ipnInvalidSignature = "97"
	ipnUnknownError     = "99"
)

type PaymentHandler struct {
	service  ports.PaymentService
	verifier CallbackVerifier
	queue    NotificationQueue
	log      zerolog.Logger
}

func NewPaymentHandler(service ports.PaymentService, verifier CallbackVerifier, queue NotificationQueue, log zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{service: service, verifier: verifier, queue: queue, log: log}
}

type createPaymentRequest struct {
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	OrderInfo string `json:"order_info" validate:"required,max=255"`
}

type createPaymentResponse struct {
	TxnRef     string `json:"txn_ref"`
	PaymentURL string `json:"payment_url"`
}

type paymentStatusResponse struct {
	TxnRef       string               `json:"txn_ref"`
	Status       domain.PaymentStatus `json:"status"`
	Amount       int64                `json:"amount"`
	OrderInfo    string               `json:"order_info"`
	ResponseCode string               `json:"response_code,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

type ipnResponse struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

type returnResponse struct {
	Verified     bool                 `json:"verified"`
	TxnRef       string               `json:"txn_ref"`
	Status       domain.PaymentStatus `json:"status"`
	ResponseCode string               `json:"response_code"`
	Amount       int64                `json:"amount"`
}

// Create starts a checkout for the caller and returns the gateway redirect.
//
// @Summary      Create payment
// @Tags         payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createPaymentRequest  true  "Checkout details"
// @Success      201   {object}  createPaymentResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      422   {object}  ErrorResponse
// @Router       /v1/payments [post]
func (h *PaymentHandler) Create(c echo.Context) error {
	identity, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var req createPaymentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	res, err := h.service.Create(c.Request().Context(), ports.CreatePaymentInput{
		UserID:    identity.UserID,
		Amount:    req.Amount,
		OrderInfo: req.OrderInfo,
		ClientIP:  c.RealIP(),
	})
	if err != nil {
		return writeError(c, err)
	}

	metrics.PaymentsCreatedTotal.Inc()
	return c.JSON(http.StatusCreated, createPaymentResponse{TxnRef: res.TxnRef, PaymentURL: res.PaymentURL})
}

// Get returns the status of a payment owned by the caller. Admins may read
// any payment; other callers get 404 for payments they do not own.
//
// @Summary      Payment status
// @Tags         payments
// @Produce      json
// @Security     BearerAuth
// @Param        txn_ref  path      string  true  "Merchant transaction reference"
// @Success      200      {object}  paymentStatusResponse
// @Failure      401      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Router       /v1/payments/{txn_ref} [get]
func (h *PaymentHandler) Get(c echo.Context) error {
	identity, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	p, err := h.service.Get(c.Request().Context(), ports.GetPaymentInput{
		TxnRef:   c.Param("txn_ref"),
		Identity: identity,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, paymentStatusResponse{
		TxnRef:       p.TxnRef,
		Status:       p.Status,
		Amount:       p.Amount,
		OrderInfo:    p.OrderInfo,
		ResponseCode: p.ResponseCode,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	})
}

// IPN handles the gateway's server-to-server notification. The gateway only
// reads RspCode, so the HTTP status is always 200.
//
// @Summary      VNPay IPN
// @Tags         payments
// @Produce      json
// @Success      200  {object}  ipnResponse
// @Router       /v1/payments/vnpay/ipn [get]
func (h *PaymentHandler) IPN(c echo.Context) error {
	n, err := h.verifier.Verify(c.QueryParams())
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSignature) {
			metrics.PaymentNotificationsTotal.WithLabelValues("ipn", "invalid_signature").Inc()
			return c.JSON(http.StatusOK, ipnResponse{RspCode: ipnInvalidSignature, Message: "Invalid signature"})
		}
		metrics.PaymentNotificationsTotal.WithLabelValues("ipn", "not_found").Inc()
		return c.JSON(http.StatusOK, ipnResponse{RspCode: ipnOrderNotFound, Message: "Order not found"})
	}
	n.Source = "ipn"

	err = h.service.Apply(c.Request().Context(), n)
	switch {
	case err == nil:
		metrics.PaymentNotificationsTotal.WithLabelValues("ipn", "applied").Inc()
		return c.JSON(http.StatusOK, ipnResponse{RspCode: ipnConfirmed, Message: "Confirm Success"})
	case errors.Is(err, domain.ErrPaymentNotFound):
		metrics.PaymentNotificationsTotal.WithLabelValues("ipn", "not_found").Inc()
		return c.JSON(http.StatusOK, ipnResponse{RspCode: ipnOrderNotFound, Message: "Order not found"})
	case errors.Is(err, domain.ErrAmountMismatch):
		metrics.PaymentNotificationsTotal.WithLabelValues("ipn", "amount_mismatch").Inc()
		return c.JSON(http.StatusOK, ipnResponse{RspCode: ipnInvalidAmount, Message: "Invalid amount"})
	case errors.Is(err, domain.ErrPaymentFinalized):
		metrics.PaymentNotificationsTotal.WithLabelValues("ipn", "already_final").Inc()
		return c.JSON(http.StatusOK, ipnResponse{RspCode: ipnAlreadyConfirmed, Message: "Order already confirmed"})
	default:
		metrics.PaymentNotificationsTotal.WithLabelValues("ipn", "error").Inc()
		h.log.Error().Err(err).Str("txn_ref", n.TxnRef).Msg("ipn apply failed")
		return c.JSON(http.StatusOK, ipnResponse{RspCode: ipnUnknownError, Message: "Unknown error"})
	}
}

// Return handles the browser redirect back from the gateway. The parsed
// result is informational; entitlement is granted by the reconciled payment.
//
// @Summary      VNPay return
// @Tags         payments
// @Produce      json
// @Success      200  {object}  returnResponse
// @Failure      400  {object}  ErrorResponse
// @Router       /v1/payments/vnpay/return [get]
func (h *PaymentHandler) Return(c echo.Context) error {
	n, err := h.verifier.Verify(c.QueryParams())
	if err != nil {
		metrics.PaymentNotificationsTotal.WithLabelValues("return", "invalid_signature").Inc()
		return writeError(c, err)
	}
	n.Source = "return"
	h.queue.Enqueue(c.Request().Context(), n)

	return c.JSON(http.StatusOK, returnResponse{
		Verified:     true,
		TxnRef:       n.TxnRef,
		Status:       domain.StatusForCode(n.ResponseCode),
		ResponseCode: n.ResponseCode,
		Amount:       n.Amount,
	})
}
