package handler

import (
	"net/http"
	"strconv"

	"aptbook/internal/notifications/service"
	apperrors "aptbook/pkg/errors"
	httputil "aptbook/pkg/http"
	"aptbook/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type NotificationHandler struct {
	service service.NotificationService
	log     *logger.Logger
}

func NewNotificationHandler(service service.NotificationService, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		log:     log,
	}
}

func (h *NotificationHandler) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListMine", err)
		return
	}

	unreadOnly := false
	if s := r.URL.Query().Get("unread"); s != "" {
		unreadOnly, err = strconv.ParseBool(s)
		if err != nil {
			h.writeError(w, "ListMine", apperrors.InvalidInput("invalid unread parameter: "+s))
			return
		}
	}

	notifications, total, err := h.service.ListMine(r.Context(), unreadOnly, limit, offset)
	if err != nil {
		h.writeError(w, "ListMine", err)
		return
	}

	if err := httputil.WritePaginated(w, notifications, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListMine", "operation", "WritePaginated", "error", err)
	}
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.MarkRead(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "MarkRead", err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	n, err := h.service.MarkAllRead(r.Context())
	if err != nil {
		h.writeError(w, "MarkAllRead", err)
		return
	}

	if err := httputil.WriteSuccess(w, map[string]int64{"updated": n}); err != nil {
		h.log.Error("failed to write success response", "handler", "MarkAllRead", "operation", "WriteSuccess", "error", err)
	}
}

func (h *NotificationHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *NotificationHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/me/notifications", h.ListMine)
	router.POST("/api/v1/me/notifications/read", h.MarkAllRead)
	router.POST("/api/v1/notifications/:id/read", h.MarkRead)
}
