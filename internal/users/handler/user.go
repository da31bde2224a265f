package handler

import (
	"net/http"

	"aptbook/internal/users/repository"
	"aptbook/internal/users/service"
	apperrors "aptbook/pkg/errors"
	httputil "aptbook/pkg/http"
	"aptbook/pkg/logger"
	"aptbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type UserHandler struct {
	service service.UserService
	log     *logger.Logger
}

func NewUserHandler(service service.UserService, log *logger.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		log:     log,
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input model.RegisterInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		h.writeError(w, "Register", err)
		return
	}

	user, err := h.service.Register(r.Context(), &input)
	if err != nil {
		h.writeError(w, "Register", err)
		return
	}

	if err := httputil.WriteCreated(w, user); err != nil {
		h.log.Error("failed to write created response", "handler", "Register", "operation", "WriteCreated", "error", err)
	}
}

func (h *UserHandler) VerifyOTP(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input model.VerifyOTPInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		h.writeError(w, "VerifyOTP", err)
		return
	}

	resp, err := h.service.VerifyOTP(r.Context(), &input)
	if err != nil {
		h.writeError(w, "VerifyOTP", err)
		return
	}
	h.writeSuccess(w, "VerifyOTP", resp)
}

func (h *UserHandler) ResendOTP(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input model.EmailInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		h.writeError(w, "ResendOTP", err)
		return
	}

	if err := h.service.ResendOTP(r.Context(), &input); err != nil {
		h.writeError(w, "ResendOTP", err)
		return
	}
	h.writeAccepted(w, "ResendOTP", "A new verification code has been sent")
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input model.LoginInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		h.writeError(w, "Login", err)
		return
	}

	resp, err := h.service.Login(r.Context(), &input)
	if err != nil {
		h.writeError(w, "Login", err)
		return
	}
	h.writeSuccess(w, "Login", resp)
}

func (h *UserHandler) Refresh(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input model.RefreshInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		h.writeError(w, "Refresh", err)
		return
	}

	pair, err := h.service.Refresh(r.Context(), &input)
	if err != nil {
		h.writeError(w, "Refresh", err)
		return
	}
	h.writeSuccess(w, "Refresh", pair)
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	user, err := h.service.Me(r.Context())
	if err != nil {
		h.writeError(w, "Me", err)
		return
	}
	h.writeSuccess(w, "Me", user)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input model.ProfileUpdate
	if err := httputil.DecodeJSON(r, &input); err != nil {
		h.writeError(w, "UpdateProfile", err)
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), &input)
	if err != nil {
		h.writeError(w, "UpdateProfile", err)
		return
	}
	h.writeSuccess(w, "UpdateProfile", user)
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input model.ChangePasswordInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		h.writeError(w, "ChangePassword", err)
		return
	}

	if err := h.service.ChangePassword(r.Context(), &input); err != nil {
		h.writeError(w, "ChangePassword", err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *UserHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input model.EmailInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		h.writeError(w, "RequestPasswordReset", err)
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), &input); err != nil {
		h.writeError(w, "RequestPasswordReset", err)
		return
	}
	h.writeAccepted(w, "RequestPasswordReset", "If the address is registered, a reset code has been sent")
}

func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input model.ResetPasswordInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		h.writeError(w, "ResetPassword", err)
		return
	}

	if err := h.service.ResetPassword(r.Context(), &input); err != nil {
		h.writeError(w, "ResetPassword", err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	query := r.URL.Query()
	filter := repository.UserFilter{
		Status:   model.UserStatus(query.Get("status")),
		UserType: model.UserType(query.Get("user_type")),
	}
	if !validStatus(filter.Status) {
		h.writeError(w, "List", apperrors.InvalidInput("invalid status parameter: "+string(filter.Status)))
		return
	}

	users, total, err := h.service.List(r.Context(), filter, limit, offset)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, users, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "operation", "WritePaginated", "error", err)
	}
}

func validStatus(s model.UserStatus) bool {
	switch s {
	case "", model.UserStatusDefault, model.UserStatusActive, model.UserStatusInactive, model.UserStatusPending,
		model.UserStatusSuspended, model.UserStatusDeleted, model.UserStatusBlocked:
		return true
	}
	return false
}

func (h *UserHandler) writeSuccess(w http.ResponseWriter, handler string, data any) {
	if err := httputil.WriteSuccess(w, data); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}

func (h *UserHandler) writeAccepted(w http.ResponseWriter, handler, message string) {
	if err := httputil.WriteJSON(w, http.StatusAccepted, messageResponse{Message: message}); err != nil {
		h.log.Error("failed to write accepted response", "handler", handler, "operation", "WriteJSON", "error", err)
	}
}

func (h *UserHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *UserHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/auth/register", h.Register)
	router.POST("/api/v1/auth/verify-otp", h.VerifyOTP)
	router.POST("/api/v1/auth/resend-otp", h.ResendOTP)
	router.POST("/api/v1/auth/login", h.Login)
	router.POST("/api/v1/auth/refresh", h.Refresh)
	router.POST("/api/v1/auth/password-reset", h.RequestPasswordReset)
	router.POST("/api/v1/auth/password-reset/confirm", h.ResetPassword)
	router.GET("/api/v1/me", h.Me)
	router.PATCH("/api/v1/me", h.UpdateProfile)
	router.POST("/api/v1/me/password", h.ChangePassword)
	router.GET("/api/v1/users", h.List)
}
