package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"aptbook/pkg/logger"
	"aptbook/pkg/model"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestManager(t *testing.T) *TokenManager {
	t.Helper()
	m, err := NewTokenManager(testSecret, "aptbook", time.Hour, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}
	return m
}

func TestNewTokenManager_ShortSecret(t *testing.T) {
	if _, err := NewTokenManager("short", "aptbook", time.Hour, time.Hour); err == nil {
		t.Error("expected error for short secret")
	}
}

func TestTokenManager_IssueAndParse(t *testing.T) {
	m := newTestManager(t)
	user := &model.User{ID: "64b7f0c2e4b0a1a2b3c4d5e6", Email: "guest@example.com", UserType: model.UserTypeUser}

	pair, err := m.IssuePair(user)
	if err != nil {
		t.Fatalf("IssuePair() error = %v", err)
	}

	tests := []struct {
		name      string
		raw       string
		tokenType string
		wantErr   error
	}{
		{"access as access", pair.AccessToken, TokenTypeAccess, nil},
		{"refresh as refresh", pair.RefreshToken, TokenTypeRefresh, nil},
		{"refresh as access", pair.RefreshToken, TokenTypeAccess, ErrWrongType},
		{"access as refresh", pair.AccessToken, TokenTypeRefresh, ErrWrongType},
		{"garbage", "not.a.token", TokenTypeAccess, ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := m.Parse(tt.raw, tt.tokenType)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Parse() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if claims.Subject != user.ID || claims.Email != user.Email {
				t.Errorf("claims = %+v", claims)
			}
		})
	}
}

func TestTokenManager_Expired(t *testing.T) {
	m := newTestManager(t)
	issuedAt := time.Now()
	m.now = func() time.Time { return issuedAt }

	pair, err := m.IssuePair(&model.User{ID: "u1", Email: "a@b.c"})
	if err != nil {
		t.Fatalf("IssuePair() error = %v", err)
	}

	m.now = func() time.Time { return issuedAt.Add(2 * time.Hour) }
	if _, err := m.Parse(pair.AccessToken, TokenTypeAccess); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Parse() error = %v, want ErrExpiredToken", err)
	}
	if _, err := m.Parse(pair.RefreshToken, TokenTypeRefresh); err != nil {
		t.Errorf("refresh token should still be valid, got %v", err)
	}
}

func TestTokenManager_OtherSecretRejected(t *testing.T) {
	m := newTestManager(t)
	other, _ := NewTokenManager("ffffffffffffffffffffffffffffffff", "aptbook", time.Hour, time.Hour)

	pair, _ := other.IssuePair(&model.User{ID: "u1"})
	if _, err := m.Parse(pair.AccessToken, TokenTypeAccess); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
	}
}

func TestAuthenticate(t *testing.T) {
	m := newTestManager(t)
	pair, _ := m.IssuePair(&model.User{ID: "host-1", Email: "host@example.com", UserType: model.UserTypeAdmin})

	var seen *Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := Authenticate(m, logger.Discard())(next)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUser   string
	}{
		{"anonymous", "", http.StatusOK, ""},
		{"valid bearer", "Bearer " + pair.AccessToken, http.StatusOK, "host-1"},
		{"refresh token used as access", "Bearer " + pair.RefreshToken, http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, ""},
		{"bad token", "Bearer abc.def.ghi", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantUser == "" {
				if seen != nil {
					t.Errorf("identity = %+v, want nil", seen)
				}
				return
			}
			if seen == nil || seen.UserID != tt.wantUser || !seen.IsAdmin() {
				t.Errorf("identity = %+v, want admin %s", seen, tt.wantUser)
			}
		})
	}
}
