package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"aptbook/internal/apartments/service"
	apperrors "aptbook/pkg/errors"
	"aptbook/pkg/logger"
	"aptbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type mockApartmentService struct {
	service.ApartmentService

	listFunc            func(ctx context.Context, f model.ApartmentFilter, limit int, offset int64) ([]*model.Apartment, int64, error)
	getAvailabilityFunc func(ctx context.Context, id string, from, to *model.Date) ([]*model.ApartmentAvailability, error)
	uploadFunc          func(ctx context.Context, id string, data []byte, isCover bool) (*model.Apartment, error)
}

func (m *mockApartmentService) List(ctx context.Context, f model.ApartmentFilter, limit int, offset int64) ([]*model.Apartment, int64, error) {
	return m.listFunc(ctx, f, limit, offset)
}

func (m *mockApartmentService) GetAvailability(ctx context.Context, id string, from, to *model.Date) ([]*model.ApartmentAvailability, error) {
	return m.getAvailabilityFunc(ctx, id, from, to)
}

func (m *mockApartmentService) UploadImage(ctx context.Context, id string, data []byte, isCover bool) (*model.Apartment, error) {
	return m.uploadFunc(ctx, id, data, isCover)
}

func (m *mockApartmentService) Delete(context.Context, string) error {
	return apperrors.Forbidden("Only the host can change this apartment")
}

func newRouter(svc service.ApartmentService) *httprouter.Router {
	router := httprouter.New()
	NewApartmentHandler(svc, logger.Discard()).RegisterRoutes(router)
	return router
}

func TestList_Filters(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantFilter model.ApartmentFilter
		wantLimit  int
	}{
		{"defaults", "", http.StatusOK, model.ApartmentFilter{}, 10},
		{"city and guests", "?city=London&min_guests=3&limit=20", http.StatusOK, model.ApartmentFilter{City: "London", MinGuests: 3}, 20},
		{"bad guests", "?min_guests=many", http.StatusBadRequest, model.ApartmentFilter{}, 0},
		{"negative guests", "?min_guests=-2", http.StatusBadRequest, model.ApartmentFilter{}, 0},
		{"bad limit", "?limit=x", http.StatusBadRequest, model.ApartmentFilter{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotFilter model.ApartmentFilter
			var gotLimit int
			svc := &mockApartmentService{
				listFunc: func(_ context.Context, f model.ApartmentFilter, limit int, _ int64) ([]*model.Apartment, int64, error) {
					gotFilter, gotLimit = f, limit
					return []*model.Apartment{}, 0, nil
				},
			}

			rec := httptest.NewRecorder()
			newRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/apartments"+tt.query, nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && (gotFilter != tt.wantFilter || gotLimit != tt.wantLimit) {
				t.Errorf("filter = %+v limit = %d", gotFilter, gotLimit)
			}
		})
	}
}

func TestGetAvailability_ParsesRange(t *testing.T) {
	var gotFrom, gotTo *model.Date
	svc := &mockApartmentService{
		getAvailabilityFunc: func(_ context.Context, _ string, from, to *model.Date) ([]*model.ApartmentAvailability, error) {
			gotFrom, gotTo = from, to
			return []*model.ApartmentAvailability{}, nil
		},
	}
	router := newRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/apartments/a1/availability?from=2025-07-01", nil))
	if rec.Code != http.StatusOK || gotFrom == nil || gotFrom.String() != "2025-07-01" || gotTo != nil {
		t.Errorf("status = %d from = %v to = %v", rec.Code, gotFrom, gotTo)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/apartments/a1/availability?to=01-07-2025", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad date status = %d", rec.Code)
	}
}

func multipartBody(t *testing.T, field string, data []byte, isCover string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		part, err := mw.CreateFormFile(field, "photo.png")
		if err != nil {
			t.Fatal(err)
		}
		_, _ = part.Write(data)
	}
	if isCover != "" {
		_ = mw.WriteField("is_cover", isCover)
	}
	_ = mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestUploadImage(t *testing.T) {
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

	tests := []struct {
		name       string
		field      string
		data       []byte
		isCover    string
		wantStatus int
		wantCover  bool
	}{
		{"png cover", "image", png, "true", http.StatusCreated, true},
		{"png gallery", "image", png, "", http.StatusCreated, false},
		{"wrong field", "file", png, "", http.StatusBadRequest, false},
		{"not an image", "image", []byte("just some text"), "", http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			var gotCover bool
			svc := &mockApartmentService{
				uploadFunc: func(_ context.Context, id string, data []byte, isCover bool) (*model.Apartment, error) {
					called, gotCover = true, isCover
					return &model.Apartment{ID: id, Images: []model.ApartmentImage{{URL: "https://cdn/x.png", IsCover: isCover}}}, nil
				},
			}

			body, contentType := multipartBody(t, tt.field, tt.data, tt.isCover)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/apartments/a1/images", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			newRouter(svc).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if called != (tt.wantStatus == http.StatusCreated) || gotCover != tt.wantCover {
				t.Errorf("called = %v cover = %v", called, gotCover)
			}
		})
	}
}

func TestDelete_ErrorStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&mockApartmentService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/apartments/a1", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d", rec.Code)
	}
}
