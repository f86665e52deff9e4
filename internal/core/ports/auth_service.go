package ports

import (
	"context"

	"github.com/medibook/appointment-api/internal/core/domain"
)

// AuthService is the orchestration layer behind the auth handlers.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	GoogleLogin(ctx context.Context, accessToken, idToken string) (*GoogleLoginResult, error)
	VerifyEmail(ctx context.Context, token string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) (string, *domain.User, error)
	GetUser(ctx context.Context, userID string) (*domain.User, error)
}

// RegisterInput carries the validated registration payload.
type RegisterInput struct {
	FirstName      string
	LastName       string
	Email          string
	Password       string
	IsDoctor       bool
	Gender         domain.Gender
	ProfilePicture string
}

// GoogleLoginResult is the outcome of a Google sign-in, including whether the
// client should prompt for the still-unspecified gender.
type GoogleLoginResult struct {
	Token            string
	User             *domain.User
	MustUpdateGender bool
}
