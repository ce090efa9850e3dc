// Package vnpay builds signed checkout URLs for the VNPay gateway and
// verifies the query parameters it sends back on return and IPN callbacks.
package vnpay

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tunestream/streaming-api/internal/core/domain"
	"github.com/tunestream/streaming-api/internal/core/ports"
)

const (
	ParamResponseCode   = "vnp_ResponseCode"
	ParamAmount         = "vnp_Amount"
	ParamTxnRef         = "vnp_TxnRef"
	ParamTransactionNo  = "vnp_TransactionNo"
	ParamBankCode       = "vnp_BankCode"
	ParamTmnCode        = "vnp_TmnCode"
	ParamSecureHash     = "vnp_SecureHash"
	ParamSecureHashType = "vnp_SecureHashType"

	version     = "2.1.0"
	dateLayout  = "20060102150405"
	expireAfter = 15 * time.Minute
)

// Amounts travel in minor units: the gateway expects the VND amount x100.
const amountScale = 100

var gatewayZone = time.FixedZone("ICT", 7*60*60)

// Config holds the merchant credentials issued by the gateway.
type Config struct {
	TmnCode    string
	HashSecret string
	PayURL     string
	ReturnURL  string
}

// Gateway signs outgoing checkout requests and verifies callbacks.
type Gateway struct {
	cfg Config
	now func() time.Time
}

func New(cfg Config) *Gateway {
	return &Gateway{cfg: cfg, now: time.Now}
}

// PaymentURL returns the signed gateway URL the browser must be sent to.
func (g *Gateway) PaymentURL(req ports.CheckoutRequest) (string, error) {
	if req.TxnRef == "" || req.Amount <= 0 {
		return "", fmt.Errorf("vnpay checkout: %w", domain.ErrInvalidPaymentData)
	}
	base, err := url.Parse(g.cfg.PayURL)
	if err != nil {
		return "", fmt.Errorf("vnpay checkout: parse pay url: %w", err)
	}

	now := g.now().In(gatewayZone)
	params := url.Values{}
	params.Set("vnp_Version", version)
	params.Set("vnp_Command", "pay")
	params.Set(ParamTmnCode, g.cfg.TmnCode)
	params.Set(ParamAmount, strconv.FormatInt(req.Amount*amountScale, 10))
	params.Set("vnp_CurrCode", "VND")
	params.Set(ParamTxnRef, req.TxnRef)
	params.Set("vnp_OrderInfo", req.OrderInfo)
	params.Set("vnp_OrderType", "other")
	params.Set("vnp_Locale", "vn")
	params.Set("vnp_ReturnUrl", g.cfg.ReturnURL)
	params.Set("vnp_IpAddr", req.ClientIP)
	params.Set("vnp_CreateDate", now.Format(dateLayout))
	params.Set("vnp_ExpireDate", now.Add(expireAfter).Format(dateLayout))

	query := signedData(params)
	base.RawQuery = query + "&" + ParamSecureHash + "=" + sign(g.cfg.HashSecret, query)
	return base.String(), nil
}

// Verify checks the callback signature and extracts the notification it carries.
func (g *Gateway) Verify(q url.Values) (domain.GatewayNotification, error) {
	if !g.validSignature(q) {
		return domain.GatewayNotification{}, domain.ErrInvalidSignature
	}
	if tmn := q.Get(ParamTmnCode); tmn != "" && tmn != g.cfg.TmnCode {
		return domain.GatewayNotification{}, domain.ErrInvalidSignature
	}

	txnRef := q.Get(ParamTxnRef)
	if txnRef == "" {
		return domain.GatewayNotification{}, domain.ErrInvalidPaymentData
	}
	minor, err := strconv.ParseInt(q.Get(ParamAmount), 10, 64)
	if err != nil || minor < 0 {
		return domain.GatewayNotification{}, domain.ErrInvalidPaymentData
	}

	return domain.GatewayNotification{
		TxnRef:        txnRef,
		Amount:        minor / amountScale,
		ResponseCode:  q.Get(ParamResponseCode),
		TransactionNo: q.Get(ParamTransactionNo),
		BankCode:      q.Get(ParamBankCode),
		ReceivedAt:    g.now().UTC(),
	}, nil
}

func (g *Gateway) validSignature(q url.Values) bool {
	got, err := hex.DecodeString(strings.TrimSpace(q.Get(ParamSecureHash)))
	if err != nil || len(got) == 0 {
		return false
	}
	want, _ := hex.DecodeString(sign(g.cfg.HashSecret, signedData(q)))
	return hmac.Equal(got, want)
}

// signedData is the sorted, url-encoded vnp_* parameter string minus the hash fields.
func signedData(q url.Values) string {
	filtered := url.Values{}
	for k, v := range q {
		if k == ParamSecureHash || k == ParamSecureHashType || !strings.HasPrefix(k, "vnp_") {
			continue
		}
		if len(v) == 0 || v[0] == "" {
			continue
		}
		filtered.Set(k, v[0])
	}
	return filtered.Encode()
}

// Sign returns the hex HMAC-SHA512 the gateway expects for params.
func Sign(secret string, params url.Values) string {
	return sign(secret, signedData(params))
}

func sign(secret, data string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}
