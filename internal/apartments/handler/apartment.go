package handler

import (
	"io"
	"net/http"
	"strconv"

	"aptbook/internal/apartments/service"
	apperrors "aptbook/pkg/errors"
	httputil "aptbook/pkg/http"
	"aptbook/pkg/logger"
	"aptbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// ImageUploadPattern matches the multipart upload route for ContentTypeValidation.
const ImageUploadPattern = "/api/v1/apartments/*/images"

const maxImageSize = 8 << 20

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

type ApartmentHandler struct {
	service service.ApartmentService
	log     *logger.Logger
}

func NewApartmentHandler(service service.ApartmentService, log *logger.Logger) *ApartmentHandler {
	return &ApartmentHandler{
		service: service,
		log:     log,
	}
}

func (h *ApartmentHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	query := r.URL.Query()
	filter := model.ApartmentFilter{City: query.Get("city")}
	if s := query.Get("min_guests"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			h.writeError(w, "List", apperrors.InvalidInput("invalid min_guests parameter: "+s))
			return
		}
		filter.MinGuests = n
	}

	apartments, total, err := h.service.List(r.Context(), filter, limit, offset)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, apartments, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "operation", "WritePaginated", "error", err)
	}
}

func (h *ApartmentHandler) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListMine", err)
		return
	}

	apartments, total, err := h.service.ListMine(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, "ListMine", err)
		return
	}

	if err := httputil.WritePaginated(w, apartments, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListMine", "operation", "WritePaginated", "error", err)
	}
}

func (h *ApartmentHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input model.ApartmentInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	apartment, err := h.service.Create(r.Context(), &input)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, apartment); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *ApartmentHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	apartment, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, apartment); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ApartmentHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var input model.ApartmentUpdate
	if err := httputil.DecodeJSON(r, &input); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	apartment, err := h.service.Update(r.Context(), ps.ByName("id"), &input)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, apartment); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ApartmentHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Delete(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *ApartmentHandler) Verify(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	apartment, err := h.service.Verify(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Verify", err)
		return
	}

	if err := httputil.WriteSuccess(w, apartment); err != nil {
		h.log.Error("failed to write success response", "handler", "Verify", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ApartmentHandler) SetPricing(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var input model.PricingInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		h.writeError(w, "SetPricing", err)
		return
	}

	apartment, err := h.service.SetPricing(r.Context(), ps.ByName("id"), &input)
	if err != nil {
		h.writeError(w, "SetPricing", err)
		return
	}

	if err := httputil.WriteSuccess(w, apartment.Pricing); err != nil {
		h.log.Error("failed to write success response", "handler", "SetPricing", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ApartmentHandler) GetAvailability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	query := r.URL.Query()
	from, err := optionalDate(query.Get("from"), "from")
	if err != nil {
		h.writeError(w, "GetAvailability", err)
		return
	}
	to, err := optionalDate(query.Get("to"), "to")
	if err != nil {
		h.writeError(w, "GetAvailability", err)
		return
	}

	days, err := h.service.GetAvailability(r.Context(), ps.ByName("id"), from, to)
	if err != nil {
		h.writeError(w, "GetAvailability", err)
		return
	}

	if err := httputil.WriteSuccess(w, days); err != nil {
		h.log.Error("failed to write success response", "handler", "GetAvailability", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ApartmentHandler) SetAvailability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var input model.AvailabilityInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		h.writeError(w, "SetAvailability", err)
		return
	}

	days, err := h.service.SetAvailability(r.Context(), ps.ByName("id"), &input)
	if err != nil {
		h.writeError(w, "SetAvailability", err)
		return
	}

	if err := httputil.WriteSuccess(w, days); err != nil {
		h.log.Error("failed to write success response", "handler", "SetAvailability", "operation", "WriteSuccess", "error", err)
	}
}

// UploadImage accepts multipart/form-data with an "image" file part and an
// optional "is_cover" flag.
func (h *ApartmentHandler) UploadImage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		h.writeError(w, "UploadImage", apperrors.InvalidInput("Expected multipart/form-data with an 'image' file"))
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		h.writeError(w, "UploadImage", apperrors.InvalidInput("Missing 'image' file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
	if err != nil {
		h.writeError(w, "UploadImage", apperrors.InvalidInput("Failed to read image"))
		return
	}
	if len(data) > maxImageSize {
		h.writeError(w, "UploadImage", apperrors.InvalidInput("Image exceeds the 8MB limit"))
		return
	}
	if contentType := http.DetectContentType(data); !allowedImageTypes[contentType] {
		h.writeError(w, "UploadImage", apperrors.InvalidInput("Unsupported image type: "+contentType))
		return
	}

	isCover, _ := strconv.ParseBool(r.FormValue("is_cover"))
	apartment, err := h.service.UploadImage(r.Context(), ps.ByName("id"), data, isCover)
	if err != nil {
		h.writeError(w, "UploadImage", err)
		return
	}

	if err := httputil.WriteCreated(w, apartment.Images); err != nil {
		h.log.Error("failed to write created response", "handler", "UploadImage", "operation", "WriteCreated", "error", err)
	}
}

func (h *ApartmentHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func optionalDate(s, name string) (*model.Date, error) {
	if s == "" {
		return nil, nil
	}
	d, err := model.ParseDate(s)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid " + name + " parameter, expected YYYY-MM-DD: " + s)
	}
	return &d, nil
}

func (h *ApartmentHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/apartments", h.List)
	router.POST("/api/v1/apartments", h.Create)
	router.GET("/api/v1/me/apartments", h.ListMine)
	router.GET("/api/v1/apartments/:id", h.GetByID)
	router.PATCH("/api/v1/apartments/:id", h.Update)
	router.DELETE("/api/v1/apartments/:id", h.Delete)
	router.POST("/api/v1/apartments/:id/verify", h.Verify)
	router.PUT("/api/v1/apartments/:id/pricing", h.SetPricing)
	router.GET("/api/v1/apartments/:id/availability", h.GetAvailability)
	router.PUT("/api/v1/apartments/:id/availability", h.SetAvailability)
	router.POST("/api/v1/apartments/:id/images", h.UploadImage)
}
