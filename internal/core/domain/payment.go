package domain

import (
	"errors"
	"time"
)

// PaymentStatus is the lifecycle state of a gateway payment.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// GatewaySuccessCode is the response code the gateway uses for a settled payment.
const GatewaySuccessCode = "00"

var (
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrPaymentFinalized   = errors.New("payment already finalized")
	ErrAmountMismatch     = errors.New("payment amount mismatch")
	ErrInvalidSignature   = errors.New("invalid gateway signature")
	ErrInvalidPaymentData = errors.New("invalid payment data")
)

// Payment is a single checkout attempt routed through the gateway.
type Payment struct {
	ID            string        `json:"id" bson:"_id,omitempty"`
	TxnRef        string        `json:"txn_ref" bson:"txn_ref"`
	UserID        string        `json:"user_id" bson:"user_id"`
	Amount        int64         `json:"amount" bson:"amount"`
	OrderInfo     string        `json:"order_info" bson:"order_info"`
	Status        PaymentStatus `json:"status" bson:"status"`
	ResponseCode  string        `json:"response_code,omitempty" bson:"response_code,omitempty"`
	TransactionNo string        `json:"transaction_no,omitempty" bson:"transaction_no,omitempty"`
	BankCode      string        `json:"bank_code,omitempty" bson:"bank_code,omitempty"`
	CreatedAt     time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" bson:"updated_at"`
}

// Final reports whether the payment has left the pending state.
func (p *Payment) Final() bool {
	return p.Status != PaymentPending
}

// StatusForCode maps a gateway response code to a payment status.
func StatusForCode(code string) PaymentStatus {
	if code == GatewaySuccessCode {
		return PaymentSuccess
	}
	return PaymentFailed
}

// GatewayNotification is a verified callback from the payment gateway.
type GatewayNotification struct {
	TxnRef        string
	Amount        int64
	ResponseCode  string
	TransactionNo string
	BankCode      string
	ReceivedAt    time.Time
	Source        string
}
