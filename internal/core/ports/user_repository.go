package ports

import (
	"context"
	"time"

	"github.com/medibook/appointment-api/internal/core/domain"
)

// UserRepository defines the interface for user persistence.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)

	// FindByVerificationToken looks a user up by the stored hash of an
	// email-verification token. Expiry is the caller's concern.
	FindByVerificationToken(ctx context.Context, tokenHash string) (*domain.User, error)

	// FindByResetToken looks a user up by the stored hash of a password-reset
	// token. Expiry is the caller's concern.
	FindByResetToken(ctx context.Context, tokenHash string) (*domain.User, error)

	// LinkDoctor stores the doctor document reference on the user.
	LinkDoctor(ctx context.Context, userID, doctorID string) error

	// MarkVerified sets email_verified and clears the verification token
	// fields in one update.
	MarkVerified(ctx context.Context, userID string) error

	// SetResetToken stores a reset token hash and its expiry, replacing any
	// previous one.
	SetResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error

	// ClearResetToken removes the reset token fields without touching the
	// password. Used to roll back when the reset email cannot be delivered.
	ClearResetToken(ctx context.Context, userID string) error

	// CompletePasswordReset atomically stores the new password hash, switches
	// the account to a password credential, marks the email verified, stamps
	// password_changed_at, and clears the reset token fields.
	CompletePasswordReset(ctx context.Context, userID, passwordHash string) error
}
