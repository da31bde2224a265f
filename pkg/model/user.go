package model

import "time"

type UserType string

const (
	UserTypeUser  UserType = "user"
	UserTypeAdmin UserType = "admin"
	UserTypeStaff UserType = "staff"
)

type UserStatus string

const (
	UserStatusDefault   UserStatus = "default"
	UserStatusActive    UserStatus = "active"
	UserStatusInactive  UserStatus = "inactive"
	UserStatusPending   UserStatus = "pending"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusDeleted   UserStatus = "deleted"
	UserStatusBlocked   UserStatus = "blocked"
)

type User struct {
	ID           string     `json:"id,omitempty" bson:"_id,omitempty"`
	Email        string     `json:"email" bson:"email"`
	FirstName    string     `json:"first_name" bson:"first_name"`
	LastName     string     `json:"last_name" bson:"last_name"`
	Phone        string     `json:"phone,omitempty" bson:"phone,omitempty"`
	PasswordHash string     `json:"-" bson:"password_hash"`
	UserType     UserType   `json:"user_type" bson:"user_type"`
	Status       UserStatus `json:"status" bson:"status"`
	IsActive     bool       `json:"is_active" bson:"is_active"`
	OTP          string     `json:"-" bson:"otp,omitempty"`
	OTPCreatedAt *time.Time `json:"-" bson:"otp_created_at,omitempty"`
	OTPVerified  bool       `json:"otp_verified" bson:"otp_verified"`
	CreatedAt    time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" bson:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.UserType == UserTypeAdmin || u.UserType == UserTypeStaff
}

type RegisterInput struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	FirstName string `json:"first_name" validate:"required,min=1,max=100"`
	LastName  string `json:"last_name" validate:"required,min=1,max=100"`
	Phone     string `json:"phone,omitempty" validate:"omitempty,e164"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type VerifyOTPInput struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

type EmailInput struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordInput struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
}

type ChangePasswordInput struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=128,nefield=OldPassword"`
}

type RefreshInput struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type ProfileUpdate struct {
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,min=1,max=100"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,e164"`
}

type TokenPair struct {
	AccessToken  string    `json:"access"`
	RefreshToken string    `json:"refresh"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type LoginResponse struct {
	TokenPair
	User *User `json:"user"`
}
