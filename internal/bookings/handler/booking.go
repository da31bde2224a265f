package handler

import (
	"io"
	"net/http"
	"time"

	"aptbook/internal/bookings/service"
	apperrors "aptbook/pkg/errors"
	httputil "aptbook/pkg/http"
	"aptbook/pkg/logger"
	"aptbook/pkg/middleware"
	"aptbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

const WebhookPath = "/api/v1/webhooks/payments"

type BookingHandler struct {
	service          service.BookingService
	log              *logger.Logger
	webhookSecret    string
	webhookTolerance time.Duration
}

func NewBookingHandler(service service.BookingService, webhookSecret string, webhookTolerance time.Duration, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service:          service,
		log:              log,
		webhookSecret:    webhookSecret,
		webhookTolerance: webhookTolerance,
	}
}

func (h *BookingHandler) ListForApartment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListForApartment", err)
		return
	}

	bookings, total, err := h.service.ListForApartment(r.Context(), ps.ByName("id"), limit, offset)
	if err != nil {
		h.writeError(w, "ListForApartment", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListForApartment", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var input model.CreateBookingInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	booking, err := h.service.Create(r.Context(), ps.ByName("id"), &input)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var input model.UpdateBookingInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	booking, err := h.service.Update(r.Context(), ps.ByName("id"), &input)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.Cancel(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListMine", err)
		return
	}

	bookings, total, err := h.service.ListMine(r.Context(), r.URL.Query().Get("role"), limit, offset)
	if err != nil {
		h.writeError(w, "ListMine", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListMine", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) Pay(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	checkout, err := h.service.CreateCheckout(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Pay", err)
		return
	}

	if err := httputil.WriteSuccess(w, checkout); err != nil {
		h.log.Error("failed to write success response", "handler", "Pay", "operation", "WriteSuccess", "error", err)
	}
}

// PaymentWebhook expects the signature middleware to have verified the body.
func (h *BookingHandler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, "PaymentWebhook", apperrors.InvalidInput("Failed to read webhook body"))
		return
	}

	if err := h.service.HandlePaymentEvent(r.Context(), payload); err != nil {
		h.writeError(w, "PaymentWebhook", err)
		return
	}

	if err := httputil.WriteSuccess(w, map[string]bool{"received": true}); err != nil {
		h.log.Error("failed to write success response", "handler", "PaymentWebhook", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/apartments/:id/bookings", h.ListForApartment)
	router.POST("/api/v1/apartments/:id/bookings", h.Create)
	router.GET("/api/v1/bookings/:id", h.GetByID)
	router.PATCH("/api/v1/bookings/:id", h.Update)
	router.POST("/api/v1/bookings/:id/cancel", h.Cancel)
	router.POST("/api/v1/bookings/:id/pay", h.Pay)
	router.GET("/api/v1/me/bookings", h.ListMine)

	verify := middleware.PaymentSignatureVerification(h.webhookSecret, h.webhookTolerance, h.log)
	router.Handler(http.MethodPost, WebhookPath, verify(http.HandlerFunc(h.PaymentWebhook)))
}
