package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/medibook/appointment-api/internal/api/metrics"
	"github.com/medibook/appointment-api/internal/core/domain"
	"github.com/medibook/appointment-api/internal/core/ports"
)

const (
	loginAttemptLimit  = 10
	loginAttemptWindow = 15 * time.Minute
	resetRequestLimit  = 3
	resetRequestWindow = time.Hour
)

// AuthConfig carries the token settings the service needs.
type AuthConfig struct {
	JWTSecret       string
	SessionTTL      time.Duration
	VerificationTTL time.Duration
	ResetTTL        time.Duration
}

// AuthService implements the six authentication flows.
type AuthService struct {
	users    ports.UserRepository
	doctors  ports.DoctorRepository
	mailer   ports.Mailer
	verifier ports.IdentityVerifier
	limiter  ports.RateLimiter
	cfg      AuthConfig
	log      zerolog.Logger
}

func NewAuthService(
	users ports.UserRepository,
	doctors ports.DoctorRepository,
	mailer ports.Mailer,
	verifier ports.IdentityVerifier,
	limiter ports.RateLimiter,
	cfg AuthConfig,
	log zerolog.Logger,
) *AuthService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.VerificationTTL <= 0 {
		cfg.VerificationTTL = 24 * time.Hour
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = 10 * time.Minute
	}
	return &AuthService{
		users:    users,
		doctors:  doctors,
		mailer:   mailer,
		verifier: verifier,
		limiter:  limiter,
		cfg:      cfg,
		log:      log,
	}
}

// Register creates an unverified account, the linked doctor profile when
// requested, and emails the verification code. No session is issued here:
// the account cannot pass CanIssueSession until the email is verified.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	if existing, err := s.users.FindByEmail(ctx, in.Email); err == nil && existing != nil {
		return nil, domain.ErrUserExists
	} else if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	token, err := domain.NewSecretToken(s.cfg.VerificationTTL)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		FirstName:             in.FirstName,
		LastName:              in.LastName,
		Email:                 in.Email,
		PasswordHash:          string(hash),
		CredentialKind:        domain.CredentialPassword,
		Gender:                in.Gender,
		IsDoctor:              in.IsDoctor,
		ProfilePicture:        in.ProfilePicture,
		VerificationTokenHash: token.Hash,
		VerificationExpiresAt: token.ExpiresAt,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	// Concurrent registrations racing on the same email are resolved by the
	// unique index; the loser surfaces here as ErrUserExists.
	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	if in.IsDoctor {
		doctor, err := s.doctors.Create(ctx, &domain.Doctor{
			UserID:         created.ID,
			FirstName:      in.FirstName,
			LastName:       in.LastName,
			Email:          in.Email,
			Gender:         in.Gender,
			ProfilePicture: in.ProfilePicture,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		if err != nil {
			return nil, err
		}
		if err := s.users.LinkDoctor(ctx, created.ID, doctor.ID); err != nil {
			return nil, err
		}
		created.DoctorID = doctor.ID
	}

	body := fmt.Sprintf(
		"Thank you for registering. Please verify your email by entering the verification code below:\n\n%s\n\nThe code expires in %s. If you did not request this, please ignore this email.",
		token.Plaintext, s.cfg.VerificationTTL,
	)
	if err := s.mailer.Send(created.Email, "Email Verification", body); err != nil {
		s.log.Error().Err(err).Str("email", created.Email).Msg("failed to send verification email")
		return nil, err
	}

	metrics.RegistrationsTotal.WithLabelValues(created.Role()).Inc()
	metrics.EmailsSentTotal.WithLabelValues("verification").Inc()
	s.log.Info().Str("user_id", created.ID).Bool("is_doctor", created.IsDoctor).Msg("user registered")

	return created, nil
}

// Login authenticates a password credential and issues a session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	if err := s.allow(ctx, "login", email, loginAttemptLimit, loginAttemptWindow); err != nil {
		return "", nil, err
	}

	// Unknown email stays distinct from a wrong password; the client shows
	// different guidance for each.
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.LoginsTotal.WithLabelValues("password", "failure").Inc()
		}
		return "", nil, err
	}

	// External-identity accounts carry no password hash; reject before any
	// comparison so a guessed placeholder can never work.
	if user.CredentialKind == domain.CredentialExternal {
		metrics.LoginsTotal.WithLabelValues("password", "failure").Inc()
		return "", nil, domain.ErrNoPasswordCredential
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		metrics.LoginsTotal.WithLabelValues("password", "failure").Inc()
		return "", nil, domain.ErrInvalidCredentials
	}

	if !user.CanIssueSession() {
		metrics.LoginsTotal.WithLabelValues("password", "failure").Inc()
		return "", nil, domain.ErrEmailNotVerified
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", nil, err
	}

	metrics.LoginsTotal.WithLabelValues("password", "success").Inc()
	return token, user, nil
}

// GoogleLogin validates the provider ID token, provisions the account on
// first sign-in, and issues a session token.
func (s *AuthService) GoogleLogin(ctx context.Context, accessToken, idToken string) (*ports.GoogleLoginResult, error) {
	identity, err := s.verifier.Verify(ctx, accessToken, idToken)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("google", "failure").Inc()
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, identity.Email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}

		now := time.Now().UTC()
		user, err = s.users.Create(ctx, &domain.User{
			FirstName:      identity.GivenName,
			LastName:       identity.FamilyName,
			Email:          identity.Email,
			CredentialKind: domain.CredentialExternal,
			Gender:         domain.GenderUnspecified,
			ProfilePicture: identity.ProfilePicture,
			EmailVerified:  true,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		if err != nil {
			return nil, err
		}
		metrics.RegistrationsTotal.WithLabelValues(user.Role()).Inc()
		s.log.Info().Str("user_id", user.ID).Msg("user provisioned from google identity")
	}

	// The provider vouched for the address, which is the same proof the
	// verification email collects. Recording it keeps password login and
	// Google sign-in in agreement about the account.
	if !user.EmailVerified {
		if err := s.users.MarkVerified(ctx, user.ID); err != nil {
			return nil, err
		}
		user.EmailVerified = true
		user.VerificationTokenHash = ""
		user.VerificationExpiresAt = time.Time{}
		metrics.EmailVerificationsTotal.Inc()
		s.log.Info().Str("user_id", user.ID).Msg("email verified via google identity")
	}

	if !user.CanIssueSession() {
		return nil, domain.ErrEmailNotVerified
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}

	metrics.LoginsTotal.WithLabelValues("google", "success").Inc()
	return &ports.GoogleLoginResult{
		Token:            token,
		User:             user,
		MustUpdateGender: user.Gender == domain.GenderUnspecified,
	}, nil
}

// VerifyEmail consumes a verification token: exactly one success per token.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	user, err := s.users.FindByVerificationToken(ctx, domain.HashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrTokenInvalid
		}
		return err
	}

	if time.Now().After(user.VerificationExpiresAt) {
		return domain.ErrTokenInvalid
	}

	if err := s.users.MarkVerified(ctx, user.ID); err != nil {
		return err
	}

	metrics.EmailVerificationsTotal.Inc()
	s.log.Info().Str("user_id", user.ID).Msg("email verified")
	return nil
}

// ForgotPassword stores a fresh reset token and emails the plaintext. If the
// email cannot be delivered the token fields are rolled back so no usable
// secret dangles on an account that was never notified.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	if err := s.allow(ctx, "forgot_password", email, resetRequestLimit, resetRequestWindow); err != nil {
		return err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	token, err := domain.NewSecretToken(s.cfg.ResetTTL)
	if err != nil {
		return err
	}

	if err := s.users.SetResetToken(ctx, user.ID, token.Hash, token.ExpiresAt); err != nil {
		return err
	}

	body := fmt.Sprintf(
		"We have received a password reset request. Please use the code below to reset your password:\n\n%s\n\nThe code is valid for %s.",
		token.Plaintext, s.cfg.ResetTTL,
	)
	if err := s.mailer.Send(user.Email, "Password change request received", body); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to send reset email, rolling back token")
		if rbErr := s.users.ClearResetToken(ctx, user.ID); rbErr != nil {
			s.log.Error().Err(rbErr).Str("user_id", user.ID).Msg("failed to roll back reset token")
		}
		return err
	}

	metrics.PasswordResetsTotal.WithLabelValues("requested").Inc()
	metrics.EmailsSentTotal.WithLabelValues("password_reset").Inc()
	return nil
}

// ResetPassword consumes a reset token, stores the new credential, and logs
// the user in. An unknown or expired token short-circuits with no mutation.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) (string, *domain.User, error) {
	user, err := s.users.FindByResetToken(ctx, domain.HashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", nil, domain.ErrTokenInvalid
		}
		return "", nil, err
	}

	if time.Now().After(user.ResetExpiresAt) {
		return "", nil, domain.ErrTokenInvalid
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, err
	}

	if err := s.users.CompletePasswordReset(ctx, user.ID, string(hash)); err != nil {
		return "", nil, err
	}

	// Completing the reset proved control of the mailbox, so the account is
	// now verified and holds a password credential.
	user.PasswordHash = string(hash)
	user.CredentialKind = domain.CredentialPassword
	user.EmailVerified = true
	user.ResetTokenHash = ""
	user.ResetExpiresAt = time.Time{}
	user.PasswordChangedAt = time.Now().UTC()

	if !user.CanIssueSession() {
		return "", nil, domain.ErrEmailNotVerified
	}

	sessionToken, err := s.generateToken(user)
	if err != nil {
		return "", nil, err
	}

	metrics.PasswordResetsTotal.WithLabelValues("completed").Inc()
	s.log.Info().Str("user_id", user.ID).Msg("password reset completed")
	return sessionToken, user, nil
}

// GetUser returns the account behind a session.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.FindByID(ctx, userID)
}

// allow applies the fixed-window limit. A limiter outage degrades open: the
// check is skipped with a warning rather than locking every caller out.
func (s *AuthService) allow(ctx context.Context, action, key string, limit int, window time.Duration) error {
	ok, err := s.limiter.Allow(ctx, action, key, limit, window)
	if err != nil {
		s.log.Warn().Err(err).Str("action", action).Msg("rate limiter unavailable, allowing request")
		return nil
	}
	if !ok {
		metrics.RateLimitedTotal.WithLabelValues(action).Inc()
		return domain.ErrTooManyRequests
	}
	return nil
}

func (s *AuthService) generateToken(user *domain.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id":   user.ID,
		"role":      user.Role(),
		"doctor_id": user.DoctorID,
		"exp":       time.Now().Add(s.cfg.SessionTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.cfg.JWTSecret))
}
