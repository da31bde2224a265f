package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"aptbook/internal/users/repository"
	"aptbook/internal/users/service"
	apperrors "aptbook/pkg/errors"
	"aptbook/pkg/logger"
	"aptbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type mockUserService struct {
	service.UserService

	loginFunc func(ctx context.Context, input *model.LoginInput) (*model.LoginResponse, error)
	resetFunc func(ctx context.Context, input *model.EmailInput) error
	listFunc  func(ctx context.Context, f repository.UserFilter, limit int, offset int64) ([]*model.User, int64, error)
}

func (m *mockUserService) Login(ctx context.Context, input *model.LoginInput) (*model.LoginResponse, error) {
	return m.loginFunc(ctx, input)
}

func (m *mockUserService) RequestPasswordReset(ctx context.Context, input *model.EmailInput) error {
	return m.resetFunc(ctx, input)
}

func (m *mockUserService) List(ctx context.Context, f repository.UserFilter, limit int, offset int64) ([]*model.User, int64, error) {
	return m.listFunc(ctx, f, limit, offset)
}

func newRouter(svc service.UserService) *httprouter.Router {
	router := httprouter.New()
	NewUserHandler(svc, logger.Discard()).RegisterRoutes(router)
	return router
}

func post(router http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{"ok", `{"email":"ann@example.com","password":"pw"}`, nil, http.StatusOK},
		{"bad credentials", `{"email":"ann@example.com","password":"pw"}`, apperrors.Unauthorized("Invalid email or password"), http.StatusUnauthorized},
		{"unverified", `{"email":"ann@example.com","password":"pw"}`, apperrors.Forbidden("Account is not verified"), http.StatusForbidden},
		{"malformed", `{"email":`, nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockUserService{
				loginFunc: func(_ context.Context, input *model.LoginInput) (*model.LoginResponse, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &model.LoginResponse{
						TokenPair: model.TokenPair{AccessToken: "a", RefreshToken: "r"},
						User:      &model.User{ID: "u1", Email: input.Email},
					}, nil
				},
			}

			rec := post(newRouter(svc), "/api/v1/auth/login", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp struct {
				Data map[string]any `json:"data"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			body := resp.Data
			if body["access"] != "a" || body["refresh"] != "r" {
				t.Errorf("body = %v, want flattened token pair", body)
			}
			if _, leaked := body["user"].(map[string]any)["password_hash"]; leaked {
				t.Error("password hash serialized")
			}
		})
	}
}

func TestRequestPasswordReset_Accepted(t *testing.T) {
	svc := &mockUserService{resetFunc: func(context.Context, *model.EmailInput) error { return nil }}

	rec := post(newRouter(svc), "/api/v1/auth/password-reset", `{"email":"ann@example.com"}`)
	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", rec.Code)
	}
}

func TestList_StatusFilter(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantFilter repository.UserFilter
	}{
		{"none", "", http.StatusOK, repository.UserFilter{}},
		{"pending admins", "?status=pending&user_type=admin", http.StatusOK, repository.UserFilter{Status: model.UserStatusPending, UserType: model.UserTypeAdmin}},
		{"unknown status", "?status=zombie", http.StatusBadRequest, repository.UserFilter{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got repository.UserFilter
			svc := &mockUserService{
				listFunc: func(_ context.Context, f repository.UserFilter, _ int, _ int64) ([]*model.User, int64, error) {
					got = f
					return []*model.User{}, 0, nil
				},
			}

			rec := httptest.NewRecorder()
			newRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users"+tt.query, nil))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got != tt.wantFilter {
				t.Errorf("filter = %+v, want %+v", got, tt.wantFilter)
			}
		})
	}
}
