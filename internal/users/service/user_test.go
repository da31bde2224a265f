package service

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"aptbook/internal/users/repository"
	"aptbook/internal/users/validator"
	"aptbook/pkg/auth"
	"aptbook/pkg/config"
	apperrors "aptbook/pkg/errors"
	"aptbook/pkg/events"
	"aptbook/pkg/logger"
	"aptbook/pkg/model"

	"golang.org/x/crypto/bcrypt"
)

const password = "correct-horse"

func TestMain(m *testing.M) {
	hashCost = bcrypt.MinCost
	os.Exit(m.Run())
}

type fixture struct {
	svc       UserService
	repo      *memoryUserRepository
	mail      *recordingMailer
	publisher *events.RecordingPublisher
	clock     *manualClock
	tokens    *auth.TokenManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.Discard()
	tokens, err := auth.NewTokenManager(strings.Repeat("k", 32), "aptbook", time.Hour, 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	f := &fixture{
		repo:      newMemoryUserRepository(),
		mail:      &recordingMailer{},
		publisher: &events.RecordingPublisher{},
		clock:     &manualClock{now: time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)},
		tokens:    tokens,
	}
	cfg := &config.Config{Log: log, OTPTTL: 15 * time.Minute}
	f.svc = NewUserService(f.repo, validator.NewUserValidator(log), tokens, f.mail, f.publisher, f.clock, cfg)
	return f
}

func wantCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", code)
	}
	if got := apperrors.AsAppError(err).Code; got != code {
		t.Fatalf("code = %s (%v), want %s", got, err, code)
	}
}

func as(u *model.User) context.Context {
	return auth.WithIdentity(context.Background(), &auth.Identity{UserID: u.ID, Email: u.Email, UserType: u.UserType})
}

// register creates an account and returns it as stored.
func (f *fixture) register(t *testing.T, email string) *model.User {
	t.Helper()
	_, err := f.svc.Register(context.Background(), &model.RegisterInput{
		Email: email, FirstName: "Ann", LastName: "Lee", Password: password,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return f.repo.byEmail(strings.ToLower(email))
}

// activate registers and verifies an account.
func (f *fixture) activate(t *testing.T, email string) *model.User {
	t.Helper()
	u := f.register(t, email)
	if _, err := f.svc.VerifyOTP(context.Background(), &model.VerifyOTPInput{Email: email, OTP: u.OTP}); err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	return f.repo.byEmail(u.Email)
}

func TestRegister(t *testing.T) {
	f := newFixture(t)

	user, err := f.svc.Register(context.Background(), &model.RegisterInput{
		Email: "  Ann@Example.COM ", FirstName: " Ann ", LastName: "Lee", Password: password, Phone: "07700 900123",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if user.Email != "ann@example.com" || user.FirstName != "Ann" {
		t.Errorf("user = %+v, want sanitized", user)
	}
	if user.Phone != "+447700900123" {
		t.Errorf("phone = %q, want E.164", user.Phone)
	}
	if user.IsActive || user.Status != model.UserStatusPending || user.UserType != model.UserTypeUser {
		t.Errorf("new account is %s active=%v type=%s", user.Status, user.IsActive, user.UserType)
	}
	if len(user.OTP) != 6 {
		t.Errorf("otp = %q, want 6 digits", user.OTP)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		t.Error("password hash does not match")
	}

	mail := f.mail.last()
	if mail.To != "ann@example.com" || !strings.Contains(mail.TextBody, user.OTP) {
		t.Errorf("mail = %+v, want the code sent to the user", mail)
	}
	if got := f.publisher.Types(); len(got) != 1 || got[0] != events.UserRegistered {
		t.Errorf("events = %v", got)
	}
}

func TestRegister_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		input    model.RegisterInput
		wantCode string
	}{
		{"duplicate email", model.RegisterInput{Email: "ANN@example.com", FirstName: "A", LastName: "B", Password: password}, apperrors.CodeConflict},
		{"bad phone", model.RegisterInput{Email: "bob@example.com", FirstName: "A", LastName: "B", Password: password, Phone: "call me"}, apperrors.CodeValidation},
		{"short password", model.RegisterInput{Email: "bob@example.com", FirstName: "A", LastName: "B", Password: "123"}, apperrors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.register(t, "ann@example.com")
			_, err := f.svc.Register(context.Background(), &tt.input)
			wantCode(t, err, tt.wantCode)
		})
	}
}

func TestVerifyOTP(t *testing.T) {
	t.Run("activates and signs in", func(t *testing.T) {
		f := newFixture(t)
		u := f.register(t, "ann@example.com")

		_, err := f.svc.Login(context.Background(), &model.LoginInput{Email: u.Email, Password: password})
		wantCode(t, err, apperrors.CodeForbidden)

		resp, err := f.svc.VerifyOTP(context.Background(), &model.VerifyOTPInput{Email: u.Email, OTP: u.OTP})
		if err != nil {
			t.Fatalf("VerifyOTP: %v", err)
		}
		if resp.AccessToken == "" || resp.RefreshToken == "" {
			t.Error("missing tokens")
		}

		stored := f.repo.byEmail(u.Email)
		if !stored.IsActive || !stored.OTPVerified || stored.Status != model.UserStatusActive || stored.OTP != "" {
			t.Errorf("stored = %+v", stored)
		}

		_, err = f.svc.VerifyOTP(context.Background(), &model.VerifyOTPInput{Email: u.Email, OTP: u.OTP})
		wantCode(t, err, apperrors.CodeInvalidState)
	})

	t.Run("wrong code", func(t *testing.T) {
		f := newFixture(t)
		u := f.register(t, "ann@example.com")
		wrong := "000000"
		if u.OTP == wrong {
			wrong = "111111"
		}
		_, err := f.svc.VerifyOTP(context.Background(), &model.VerifyOTPInput{Email: u.Email, OTP: wrong})
		wantCode(t, err, apperrors.CodeInvalidInput)
	})

	t.Run("expired code", func(t *testing.T) {
		f := newFixture(t)
		u := f.register(t, "ann@example.com")
		f.clock.Advance(16 * time.Minute)
		_, err := f.svc.VerifyOTP(context.Background(), &model.VerifyOTPInput{Email: u.Email, OTP: u.OTP})
		wantCode(t, err, apperrors.CodeInvalidInput)
	})

	t.Run("resend issues a fresh code", func(t *testing.T) {
		f := newFixture(t)
		u := f.register(t, "ann@example.com")
		f.clock.Advance(16 * time.Minute)

		if err := f.svc.ResendOTP(context.Background(), &model.EmailInput{Email: u.Email}); err != nil {
			t.Fatalf("ResendOTP: %v", err)
		}
		fresh := f.repo.byEmail(u.Email)
		if _, err := f.svc.VerifyOTP(context.Background(), &model.VerifyOTPInput{Email: u.Email, OTP: fresh.OTP}); err != nil {
			t.Errorf("fresh code rejected: %v", err)
		}
	})
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	active := f.activate(t, "ann@example.com")
	suspended := f.activate(t, "sam@example.com")
	suspended.Status = model.UserStatusSuspended
	if err := f.repo.Update(context.Background(), suspended); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		input    model.LoginInput
		wantCode string
	}{
		{"ok", model.LoginInput{Email: "ANN@example.com", Password: password}, ""},
		{"wrong password", model.LoginInput{Email: active.Email, Password: "nope"}, apperrors.CodeUnauthorized},
		{"unknown email", model.LoginInput{Email: "who@example.com", Password: password}, apperrors.CodeUnauthorized},
		{"suspended", model.LoginInput{Email: suspended.Email, Password: password}, apperrors.CodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := f.svc.Login(context.Background(), &tt.input)
			if tt.wantCode != "" {
				wantCode(t, err, tt.wantCode)
				return
			}
			if err != nil {
				t.Fatalf("Login: %v", err)
			}
			claims, err := f.tokens.Parse(resp.AccessToken, auth.TokenTypeAccess)
			if err != nil {
				t.Fatalf("access token: %v", err)
			}
			if claims.Subject != active.ID || resp.User.ID != active.ID {
				t.Errorf("subject = %s, want %s", claims.Subject, active.ID)
			}
		})
	}
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)
	u := f.activate(t, "ann@example.com")
	resp, err := f.svc.Login(context.Background(), &model.LoginInput{Email: u.Email, Password: password})
	if err != nil {
		t.Fatal(err)
	}

	pair, err := f.svc.Refresh(context.Background(), &model.RefreshInput{RefreshToken: resp.RefreshToken})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if pair.AccessToken == "" {
		t.Error("no access token")
	}

	_, err = f.svc.Refresh(context.Background(), &model.RefreshInput{RefreshToken: resp.AccessToken})
	wantCode(t, err, apperrors.CodeUnauthorized)

	_, err = f.svc.Refresh(context.Background(), &model.RefreshInput{RefreshToken: "garbage"})
	wantCode(t, err, apperrors.CodeUnauthorized)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	u := f.activate(t, "ann@example.com")

	err := f.svc.ChangePassword(as(u), &model.ChangePasswordInput{OldPassword: "wrong-one", NewPassword: "brand-new-pass"})
	wantCode(t, err, apperrors.CodeValidation)

	if err := f.svc.ChangePassword(as(u), &model.ChangePasswordInput{OldPassword: password, NewPassword: "brand-new-pass"}); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := f.svc.Login(context.Background(), &model.LoginInput{Email: u.Email, Password: "brand-new-pass"}); err != nil {
		t.Errorf("login with new password: %v", err)
	}

	err = f.svc.ChangePassword(context.Background(), &model.ChangePasswordInput{OldPassword: password, NewPassword: "x-new-pass"})
	wantCode(t, err, apperrors.CodeUnauthorized)
}

func TestPasswordReset(t *testing.T) {
	f := newFixture(t)
	u := f.activate(t, "ann@example.com")
	sentBefore := len(f.mail.sent)

	if err := f.svc.RequestPasswordReset(context.Background(), &model.EmailInput{Email: "nobody@example.com"}); err != nil {
		t.Errorf("unknown email: %v", err)
	}
	if len(f.mail.sent) != sentBefore {
		t.Error("mail sent for unknown email")
	}

	if err := f.svc.RequestPasswordReset(context.Background(), &model.EmailInput{Email: u.Email}); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	code := f.repo.byEmail(u.Email).OTP
	if !strings.Contains(f.mail.last().TextBody, code) {
		t.Error("reset mail does not carry the code")
	}

	reset := &model.ResetPasswordInput{Email: u.Email, OTP: code, NewPassword: "reset-password"}
	if err := f.svc.ResetPassword(context.Background(), reset); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if _, err := f.svc.Login(context.Background(), &model.LoginInput{Email: u.Email, Password: "reset-password"}); err != nil {
		t.Errorf("login after reset: %v", err)
	}

	again := &model.ResetPasswordInput{Email: u.Email, OTP: code, NewPassword: "another-password"}
	wantCode(t, f.svc.ResetPassword(context.Background(), again), apperrors.CodeInvalidInput)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	u := f.activate(t, "ann@example.com")

	name, phone := "  Annie ", "+44 7700 900123"
	updated, err := f.svc.UpdateProfile(as(u), &model.ProfileUpdate{FirstName: &name, Phone: &phone})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.FirstName != "Annie" || updated.Phone != "+447700900123" || updated.LastName != "Lee" {
		t.Errorf("updated = %+v", updated)
	}

	empty := ""
	cleared, err := f.svc.UpdateProfile(as(u), &model.ProfileUpdate{Phone: &empty})
	if err != nil {
		t.Fatalf("clear phone: %v", err)
	}
	if cleared.Phone != "" {
		t.Errorf("phone = %q, want cleared", cleared.Phone)
	}

	bad := "not a number"
	_, err = f.svc.UpdateProfile(as(u), &model.ProfileUpdate{Phone: &bad})
	wantCode(t, err, apperrors.CodeValidation)
}

func TestList_AdminOnly(t *testing.T) {
	f := newFixture(t)
	u := f.activate(t, "ann@example.com")
	f.register(t, "bob@example.com")

	_, _, err := f.svc.List(as(u), repository.UserFilter{}, 10, 0)
	wantCode(t, err, apperrors.CodeForbidden)

	admin := &model.User{ID: "65b000000000000000000099", UserType: model.UserTypeAdmin}
	users, total, err := f.svc.List(as(admin), repository.UserFilter{Status: model.UserStatusPending}, 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(users) != 1 || users[0].Email != "bob@example.com" {
		t.Errorf("users = %v (total %d), want only bob", users, total)
	}
}
