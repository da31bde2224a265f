package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	userserrors "aptbook/internal/users/errors"
	"aptbook/internal/users/repository"
	"aptbook/internal/users/validator"
	"aptbook/pkg/auth"
	"aptbook/pkg/clock"
	"aptbook/pkg/config"
	apperrors "aptbook/pkg/errors"
	"aptbook/pkg/events"
	"aptbook/pkg/mailer"
	"aptbook/pkg/model"
	"aptbook/pkg/sanitizer"

	"golang.org/x/crypto/bcrypt"
)

const otpDigits = 6

// hashCost is lowered by tests.
var hashCost = bcrypt.DefaultCost

// badCredentials covers both an unknown email and a wrong password.
func badCredentials() error {
	return apperrors.Unauthorized("Invalid email or password")
}

type UserService interface {
	Register(ctx context.Context, input *model.RegisterInput) (*model.User, error)
	VerifyOTP(ctx context.Context, input *model.VerifyOTPInput) (*model.LoginResponse, error)
	ResendOTP(ctx context.Context, input *model.EmailInput) error
	Login(ctx context.Context, input *model.LoginInput) (*model.LoginResponse, error)
	Refresh(ctx context.Context, input *model.RefreshInput) (*model.TokenPair, error)
	Me(ctx context.Context) (*model.User, error)
	UpdateProfile(ctx context.Context, input *model.ProfileUpdate) (*model.User, error)
	ChangePassword(ctx context.Context, input *model.ChangePasswordInput) error
	RequestPasswordReset(ctx context.Context, input *model.EmailInput) error
	ResetPassword(ctx context.Context, input *model.ResetPasswordInput) error
	List(ctx context.Context, filter repository.UserFilter, limit int, offset int64) ([]*model.User, int64, error)
}

type userService struct {
	repo      repository.UserRepository
	validator *validator.UserValidator
	tokens    *auth.TokenManager
	mailer    mailer.Mailer
	publisher events.Publisher
	clock     clock.Clock
	cfg       *config.Config
}

func NewUserService(
	repo repository.UserRepository,
	validator *validator.UserValidator,
	tokens *auth.TokenManager,
	mail mailer.Mailer,
	publisher events.Publisher,
	clk clock.Clock,
	cfg *config.Config,
) UserService {
	return &userService{
		repo:      repo,
		validator: validator,
		tokens:    tokens,
		mailer:    mail,
		publisher: publisher,
		clock:     clk,
		cfg:       cfg,
	}
}

// Register creates an inactive account and mails a verification code.
func (s *userService) Register(ctx context.Context, input *model.RegisterInput) (*model.User, error) {
	input.Email = sanitizer.SanitizeEmail(input.Email)
	input.FirstName = sanitizer.SanitizeText(input.FirstName)
	input.LastName = sanitizer.SanitizeText(input.LastName)
	input.Phone = normalizePhone(input.Phone)
	if err := s.validate(input); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), hashCost)
	if err != nil {
		return nil, apperrors.Internal("Failed to hash password", err)
	}
	otp, err := generateOTP()
	if err != nil {
		return nil, apperrors.Internal("Failed to generate verification code", err)
	}

	now := s.clock.Now().UTC()
	user := &model.User{
		Email:        input.Email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        input.Phone,
		PasswordHash: string(hash),
		UserType:     model.UserTypeUser,
		Status:       model.UserStatusPending,
		IsActive:     false,
		OTP:          otp,
		OTPCreatedAt: &now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, userserrors.ErrEmailTaken) {
			return nil, apperrors.Conflict("A user with this email already exists")
		}
		s.cfg.Log.Error("Failed to create user", "email", user.Email, "error", err)
		return nil, apperrors.Internal("Failed to create user", err)
	}

	s.sendOTP(ctx, user, "Verify your email", "Use this code to verify your aptbook account.")
	event := events.UserEvent{UserID: user.ID, Email: user.Email, FirstName: user.FirstName}
	if err := s.publisher.Publish(ctx, events.TopicUsers, user.ID, events.UserRegistered, event); err != nil {
		s.cfg.Log.Error("Failed to publish user event", "event", events.UserRegistered, "user_id", user.ID, "error", err)
	}

	s.cfg.Log.Info("User registered", "id", user.ID, "email", user.Email)
	return user, nil
}

// VerifyOTP activates the account and signs the user in.
func (s *userService) VerifyOTP(ctx context.Context, input *model.VerifyOTPInput) (*model.LoginResponse, error) {
	input.Email = sanitizer.SanitizeEmail(input.Email)
	if err := s.validate(input); err != nil {
		return nil, err
	}

	user, err := s.findByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if user.OTPVerified {
		return nil, apperrors.InvalidState("Account is already verified", string(user.Status))
	}
	if err := s.checkOTP(user, input.OTP); err != nil {
		return nil, err
	}

	user.OTPVerified = true
	user.IsActive = true
	user.Status = model.UserStatusActive
	clearOTP(user)
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, s.mapStoreError(err, user.ID, "Failed to activate user")
	}

	s.cfg.Log.Info("User verified", "id", user.ID)
	return s.signIn(user)
}

func (s *userService) ResendOTP(ctx context.Context, input *model.EmailInput) error {
	input.Email = sanitizer.SanitizeEmail(input.Email)
	if err := s.validate(input); err != nil {
		return err
	}

	user, err := s.findByEmail(ctx, input.Email)
	if err != nil {
		return err
	}
	if user.OTPVerified {
		return apperrors.InvalidState("Account is already verified", string(user.Status))
	}

	if err := s.issueOTP(ctx, user); err != nil {
		return err
	}
	s.sendOTP(ctx, user, "Verify your email", "Use this code to verify your aptbook account.")
	return nil
}

func (s *userService) Login(ctx context.Context, input *model.LoginInput) (*model.LoginResponse, error) {
	input.Email = sanitizer.SanitizeEmail(input.Email)
	if err := s.validate(input); err != nil {
		return nil, err
	}

	user, err := s.repo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, badCredentials()
		}
		return nil, s.mapStoreError(err, input.Email, "Failed to retrieve user")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		s.cfg.Log.Warn("Failed login attempt", "user_id", user.ID)
		return nil, badCredentials()
	}
	if err := checkStatus(user); err != nil {
		return nil, err
	}

	return s.signIn(user)
}

// Refresh exchanges a refresh token for a new pair if the account is still usable.
func (s *userService) Refresh(ctx context.Context, input *model.RefreshInput) (*model.TokenPair, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}

	claims, err := s.tokens.Parse(input.RefreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return nil, apperrors.Unauthorized("Invalid or expired refresh token")
	}

	user, err := s.repo.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) || errors.Is(err, userserrors.ErrInvalidID) {
			return nil, apperrors.Unauthorized("Invalid or expired refresh token")
		}
		return nil, s.mapStoreError(err, claims.Subject, "Failed to retrieve user")
	}
	if err := checkStatus(user); err != nil {
		return nil, err
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, apperrors.Internal("Failed to issue tokens", err)
	}
	return pair, nil
}

func (s *userService) Me(ctx context.Context) (*model.User, error) {
	caller, err := auth.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	return s.findByID(ctx, caller.UserID)
}

func (s *userService) UpdateProfile(ctx context.Context, input *model.ProfileUpdate) (*model.User, error) {
	caller, err := auth.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	if input.FirstName != nil {
		v := sanitizer.SanitizeText(*input.FirstName)
		input.FirstName = &v
	}
	if input.LastName != nil {
		v := sanitizer.SanitizeText(*input.LastName)
		input.LastName = &v
	}
	// an empty phone clears the stored number
	clearPhone := input.Phone != nil && strings.TrimSpace(*input.Phone) == ""
	if clearPhone {
		input.Phone = nil
	} else if input.Phone != nil {
		v := normalizePhone(*input.Phone)
		input.Phone = &v
	}
	if err := s.validate(input); err != nil {
		return nil, err
	}

	user, err := s.findByID(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	if input.Phone != nil {
		user.Phone = *input.Phone
	}
	if clearPhone {
		user.Phone = ""
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, s.mapStoreError(err, user.ID, "Failed to update profile")
	}
	return user, nil
}

func (s *userService) ChangePassword(ctx context.Context, input *model.ChangePasswordInput) error {
	caller, err := auth.RequireIdentity(ctx)
	if err != nil {
		return err
	}
	if err := s.validate(input); err != nil {
		return err
	}

	user, err := s.findByID(ctx, caller.UserID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.OldPassword)) != nil {
		return apperrors.Validation("Current password is incorrect", map[string]any{"field": "old_password"})
	}

	return s.setPassword(ctx, user, input.NewPassword)
}

// RequestPasswordReset mails a reset code. Unknown addresses succeed silently
// so the endpoint cannot be used to enumerate accounts.
func (s *userService) RequestPasswordReset(ctx context.Context, input *model.EmailInput) error {
	input.Email = sanitizer.SanitizeEmail(input.Email)
	if err := s.validate(input); err != nil {
		return err
	}

	user, err := s.repo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			s.cfg.Log.Info("Password reset requested for unknown email")
			return nil
		}
		return s.mapStoreError(err, input.Email, "Failed to retrieve user")
	}

	if err := s.issueOTP(ctx, user); err != nil {
		return err
	}
	s.sendOTP(ctx, user, "Reset your password", "Use this code to choose a new aptbook password.")
	return nil
}

func (s *userService) ResetPassword(ctx context.Context, input *model.ResetPasswordInput) error {
	input.Email = sanitizer.SanitizeEmail(input.Email)
	if err := s.validate(input); err != nil {
		return err
	}

	user, err := s.findByEmail(ctx, input.Email)
	if err != nil {
		return err
	}
	if err := s.checkOTP(user, input.OTP); err != nil {
		return err
	}

	clearOTP(user)
	return s.setPassword(ctx, user, input.NewPassword)
}

func (s *userService) List(ctx context.Context, filter repository.UserFilter, limit int, offset int64) ([]*model.User, int64, error) {
	if _, err := auth.RequireAdmin(ctx); err != nil {
		return nil, 0, err
	}

	users, err := s.repo.Find(ctx, filter, limit, offset)
	if err != nil {
		s.cfg.Log.Error("Failed to list users", "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve users", err)
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		s.cfg.Log.Error("Failed to count users", "error", err)
		return nil, 0, apperrors.Internal("Failed to count users", err)
	}
	return users, total, nil
}

// --- Helpers ---

func (s *userService) validate(input any) error {
	if err := s.validator.Validate(input); err != nil {
		return apperrors.Validation("Validation failed", map[string]any{"errors": err})
	}
	return nil
}

func (s *userService) signIn(user *model.User) (*model.LoginResponse, error) {
	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, apperrors.Internal("Failed to issue tokens", err)
	}
	return &model.LoginResponse{TokenPair: *pair, User: user}, nil
}

func (s *userService) setPassword(ctx context.Context, user *model.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return apperrors.Internal("Failed to hash password", err)
	}
	user.PasswordHash = string(hash)
	if err := s.repo.Update(ctx, user); err != nil {
		return s.mapStoreError(err, user.ID, "Failed to update password")
	}
	s.cfg.Log.Info("Password changed", "id", user.ID)
	return nil
}

func (s *userService) issueOTP(ctx context.Context, user *model.User) error {
	otp, err := generateOTP()
	if err != nil {
		return apperrors.Internal("Failed to generate verification code", err)
	}
	now := s.clock.Now().UTC()
	user.OTP = otp
	user.OTPCreatedAt = &now
	if err := s.repo.Update(ctx, user); err != nil {
		return s.mapStoreError(err, user.ID, "Failed to store verification code")
	}
	return nil
}

// checkOTP accepts a code only within OTPTTL of it being issued.
func (s *userService) checkOTP(user *model.User, otp string) error {
	if user.OTP == "" || user.OTPCreatedAt == nil || user.OTP != otp {
		return apperrors.InvalidInput("Invalid verification code")
	}
	if s.clock.Now().After(user.OTPCreatedAt.Add(s.cfg.OTPTTL)) {
		return apperrors.InvalidInput("Verification code has expired")
	}
	return nil
}

// sendOTP logs failures. The user can ask for the code again.
func (s *userService) sendOTP(ctx context.Context, user *model.User, subject, intro string) {
	msg, err := mailer.Compose(user.Email, subject, user.OTP,
		fmt.Sprintf("Hello %s,", user.FirstName),
		intro,
		fmt.Sprintf("The code expires in %d minutes.", int(s.cfg.OTPTTL.Minutes())),
	)
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		s.cfg.Log.Error("Failed to send verification code", "user_id", user.ID, "error", err)
	}
}

func (s *userService) findByID(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapStoreError(err, id, "Failed to retrieve user")
	}
	return user, nil
}

func (s *userService) findByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, s.mapStoreError(err, email, "Failed to retrieve user")
	}
	return user, nil
}

func (s *userService) mapStoreError(err error, key, message string) error {
	switch {
	case errors.Is(err, userserrors.ErrNotFound), errors.Is(err, userserrors.ErrInvalidID):
		return apperrors.NotFoundWithID("User", key)
	default:
		s.cfg.Log.Error(message, "key", key, "error", err)
		return apperrors.Internal(message, err)
	}
}

// checkStatus rejects accounts that may not sign in.
func checkStatus(user *model.User) error {
	switch user.Status {
	case model.UserStatusSuspended, model.UserStatusBlocked, model.UserStatusDeleted, model.UserStatusInactive:
		return apperrors.Forbidden(fmt.Sprintf("Account is %s", user.Status))
	}
	if !user.OTPVerified || !user.IsActive {
		return apperrors.Forbidden("Account is not verified")
	}
	return nil
}

func clearOTP(user *model.User) {
	user.OTP = ""
	user.OTPCreatedAt = nil
}

// normalizePhone keeps unparseable input so validation reports it.
func normalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}
	if normalized := sanitizer.NormalizePhone(phone); normalized != "" {
		return normalized
	}
	return phone
}

func generateOTP() (string, error) {
	limit := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}
