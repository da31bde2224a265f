// Package provider is the client side of the hosted-checkout payment API.
// Only the call contract is implemented; card handling stays with the provider.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"aptbook/pkg/client"
	"aptbook/pkg/logger"

	"github.com/sony/gobreaker"
)

var (
	ErrUnavailable = errors.New("payment provider unavailable")
	ErrRejected    = errors.New("payment provider rejected the request")
)

type CheckoutRequest struct {
	// ClientReference comes back on the completion webhook.
	ClientReference string
	BookingID       string
	ProductName     string
	CustomerEmail   string
	Currency        string
	// AmountMinor is the total in the currency's minor unit, e.g. pence.
	AmountMinor int64
	SuccessURL  string
	CancelURL   string
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
}

// statusError keeps the provider's HTTP status so 4xx answers do not trip the breaker.
type statusError struct {
	status  int
	message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("provider returned %d: %s", e.status, e.message)
}

type StripeClient struct {
	http    *client.HttpClient
	breaker *gobreaker.CircuitBreaker
	log     *logger.Logger
}

func NewStripeClient(baseURL, apiKey string, timeout time.Duration, log *logger.Logger) *StripeClient {
	httpClient := client.NewHttpClient(baseURL, timeout)
	httpClient.Headers["Authorization"] = "Bearer " + apiKey

	return &StripeClient{
		http:    httpClient,
		breaker: newBreaker("payment-provider", log),
		log:     log,
	}
}

func newBreaker(name string, log *logger.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 2
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var se *statusError
			return errors.As(err, &se) && se.status >= 400 && se.status < 500
		},
	})
}

func (c *StripeClient) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	form := checkoutForm(req)

	result, err := c.breaker.Execute(func() (any, error) {
		resp, err := c.http.POSTForm(ctx, "/v1/checkout/sessions", form)
		if err != nil {
			return nil, err
		}
		if !resp.IsSuccess() {
			return nil, &statusError{status: resp.StatusCode, message: client.GetErrorMessage(resp)}
		}

		var session CheckoutSession
		if err := resp.DecodeJSON(&session); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		return &session, nil
	})
	if err != nil {
		c.log.Error("Checkout session request failed", "booking_id", req.BookingID, "error", err)

		var se *statusError
		if errors.As(err, &se) && se.status < 500 {
			return nil, fmt.Errorf("%w: %s", ErrRejected, se.message)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	session := result.(*CheckoutSession)
	c.log.Info("Checkout session created", "booking_id", req.BookingID, "session_id", session.ID)
	return session, nil
}

func checkoutForm(req CheckoutRequest) url.Values {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	form.Set("client_reference_id", req.ClientReference)
	form.Set("metadata[booking_id]", req.BookingID)
	if req.CustomerEmail != "" {
		form.Set("customer_email", req.CustomerEmail)
	}
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", req.Currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(req.AmountMinor, 10))
	form.Set("line_items[0][price_data][product_data][name]", req.ProductName)
	return form
}
