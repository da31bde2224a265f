package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "aptbook/pkg/errors"
	httputil "aptbook/pkg/http"
	"aptbook/pkg/logger"
)

const PaymentSignatureHeader = "Stripe-Signature"

var (
	ErrMissingSecret     = errors.New("webhook secret not configured")
	ErrMissingSignature  = errors.New("missing signature header")
	ErrMalformedHeader   = errors.New("malformed signature header")
	ErrSignatureMismatch = errors.New("signature mismatch")
	ErrTimestampExpired  = errors.New("signature timestamp outside tolerance")
)

// PaymentSignatureVerification authenticates provider webhooks. The header
// has the form "t=<unix>,v1=<hex>" where the hex value is an HMAC-SHA256 of
// "<t>.<body>" keyed by the shared webhook secret.
func PaymentSignatureVerification(secret string, tolerance time.Duration, log *logger.Logger) func(http.Handler) http.Handler {
	if secret == "" {
		log.Error("Payment webhook secret is empty, all webhooks will be rejected")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := readAndRestoreBody(r)
			if err != nil {
				rejectWebhook(w, log, r, err)
				return
			}

			err = VerifyPaymentSignature(body, r.Header.Get(PaymentSignatureHeader), secret, tolerance, time.Now())
			if err != nil {
				rejectWebhook(w, log, r, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// VerifyPaymentSignature never accepts a payload when secret is empty, since
// an unkeyed HMAC can be computed by anyone.
func VerifyPaymentSignature(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	if secret == "" {
		return ErrMissingSecret
	}
	if header == "" {
		return ErrMissingSignature
	}

	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			timestamp = v
		case "v1":
			signatures = append(signatures, v)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return ErrMalformedHeader
	}

	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrMalformedHeader
	}
	if tolerance > 0 {
		age := now.Sub(time.Unix(unix, 0))
		if age > tolerance || age < -tolerance {
			return ErrTimestampExpired
		}
	}

	expected := []byte(computeSignature(payload, timestamp, secret))
	for _, sig := range signatures {
		if hmac.Equal(expected, []byte(sig)) {
			return nil
		}
	}
	return ErrSignatureMismatch
}

// SignPayload builds a header value accepted by VerifyPaymentSignature.
func SignPayload(payload []byte, secret string, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	return "t=" + ts + ",v1=" + computeSignature(payload, ts, secret)
}

func computeSignature(payload []byte, timestamp, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func readAndRestoreBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	return body, nil
}

func rejectWebhook(w http.ResponseWriter, log *logger.Logger, r *http.Request, reason error) {
	log.Warn("Payment webhook verification failed",
		"request_id", RequestIDFromContext(r.Context()),
		"reason", reason.Error(),
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
	)
	_ = httputil.WriteError(w, apperrors.Unauthorized("Invalid webhook signature"))
}
