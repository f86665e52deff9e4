package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/medibook/appointment-api/internal/core/domain"
	"github.com/medibook/appointment-api/internal/core/ports"
)

// --- stubs ---

type stubUserRepo struct {
	users  map[string]*domain.User // keyed by ID
	nextID int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
	}
	r.nextID++
	copy := cloneUser(user)
	copy.ID = fmt.Sprintf("user_%d", r.nextID)
	r.users[copy.ID] = cloneUser(copy)
	return cloneUser(copy), nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := r.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByVerificationToken(_ context.Context, tokenHash string) (*domain.User, error) {
	for _, u := range r.users {
		if u.VerificationTokenHash != "" && u.VerificationTokenHash == tokenHash {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByResetToken(_ context.Context, tokenHash string) (*domain.User, error) {
	for _, u := range r.users {
		if u.ResetTokenHash != "" && u.ResetTokenHash == tokenHash {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) LinkDoctor(_ context.Context, userID, doctorID string) error {
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.DoctorID = doctorID
	return nil
}

func (r *stubUserRepo) MarkVerified(_ context.Context, userID string) error {
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.EmailVerified = true
	u.VerificationTokenHash = ""
	u.VerificationExpiresAt = time.Time{}
	return nil
}

func (r *stubUserRepo) SetResetToken(_ context.Context, userID, tokenHash string, expiresAt time.Time) error {
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.ResetTokenHash = tokenHash
	u.ResetExpiresAt = expiresAt
	return nil
}

func (r *stubUserRepo) ClearResetToken(_ context.Context, userID string) error {
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.ResetTokenHash = ""
	u.ResetExpiresAt = time.Time{}
	return nil
}

func (r *stubUserRepo) CompletePasswordReset(_ context.Context, userID, passwordHash string) error {
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.CredentialKind = domain.CredentialPassword
	u.EmailVerified = true
	u.ResetTokenHash = ""
	u.ResetExpiresAt = time.Time{}
	u.PasswordChangedAt = time.Now().UTC()
	return nil
}

type stubDoctorRepo struct {
	doctors map[string]*domain.Doctor // keyed by UserID
	nextID  int
}

func newStubDoctorRepo() *stubDoctorRepo {
	return &stubDoctorRepo{doctors: make(map[string]*domain.Doctor)}
}

func (r *stubDoctorRepo) Create(_ context.Context, doctor *domain.Doctor) (*domain.Doctor, error) {
	r.nextID++
	clone := *doctor
	clone.ID = fmt.Sprintf("doctor_%d", r.nextID)
	r.doctors[clone.UserID] = &clone
	return &clone, nil
}

func (r *stubDoctorRepo) FindByUserID(_ context.Context, userID string) (*domain.Doctor, error) {
	if d, ok := r.doctors[userID]; ok {
		clone := *d
		return &clone, nil
	}
	return nil, domain.ErrDoctorNotFound
}

type sentEmail struct {
	to      string
	subject string
	body    string
}

type stubMailer struct {
	sent []sentEmail
	fail bool
}

func (m *stubMailer) Send(to, subject, body string) error {
	if m.fail {
		return errors.New("smtp: connection refused")
	}
	m.sent = append(m.sent, sentEmail{to: to, subject: subject, body: body})
	return nil
}

// lastToken pulls the hex token code out of the most recent email body.
func (m *stubMailer) lastToken(t *testing.T) string {
	t.Helper()
	if len(m.sent) == 0 {
		t.Fatalf("no email sent")
	}
	match := regexp.MustCompile(`[0-9a-f]{64}`).FindString(m.sent[len(m.sent)-1].body)
	if match == "" {
		t.Fatalf("no token found in email body: %q", m.sent[len(m.sent)-1].body)
	}
	return match
}

type stubVerifier struct {
	identity *ports.GoogleIdentity
	err      error
}

func (v *stubVerifier) Verify(_ context.Context, _, _ string) (*ports.GoogleIdentity, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.identity, nil
}

type stubLimiter struct {
	deny bool
	err  error
}

func (l *stubLimiter) Allow(_ context.Context, _, _ string, _ int, _ time.Duration) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	return !l.deny, nil
}

type fixture struct {
	svc     *AuthService
	users   *stubUserRepo
	doctors *stubDoctorRepo
	mailer  *stubMailer
	limiter *stubLimiter
}

func newFixture(verifier ports.IdentityVerifier) *fixture {
	users := newStubUserRepo()
	doctors := newStubDoctorRepo()
	mailer := &stubMailer{}
	limiter := &stubLimiter{}
	svc := NewAuthService(users, doctors, mailer, verifier, limiter, AuthConfig{JWTSecret: "secret"}, testLogger())
	return &fixture{svc: svc, users: users, doctors: doctors, mailer: mailer, limiter: limiter}
}

func registerInput(email string, isDoctor bool) ports.RegisterInput {
	return ports.RegisterInput{
		FirstName: "Alice",
		LastName:  "Smith",
		Email:     email,
		Password:  "Secret123!",
		IsDoctor:  isDoctor,
		Gender:    domain.GenderFemale,
	}
}

// --- register ---

func TestAuthService_Register_Success(t *testing.T) {
	f := newFixture(&stubVerifier{})

	user, err := f.svc.Register(context.Background(), registerInput("a@x.com", false))
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.PasswordHash == "Secret123!" {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("Secret123!")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if user.EmailVerified {
		t.Fatalf("fresh registration must be unverified")
	}
	if user.CredentialKind != domain.CredentialPassword {
		t.Fatalf("expected password credential, got %s", user.CredentialKind)
	}

	token := f.mailer.lastToken(t)
	if domain.HashToken(token) != user.VerificationTokenHash {
		t.Fatalf("emailed token does not hash to the stored value")
	}
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	f := newFixture(&stubVerifier{})

	if _, err := f.svc.Register(context.Background(), registerInput("a@x.com", false)); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if _, err := f.svc.Register(context.Background(), registerInput("a@x.com", false)); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	if len(f.users.users) != 1 {
		t.Fatalf("duplicate register must not create a record, have %d", len(f.users.users))
	}
}

func TestAuthService_Register_DoctorLink(t *testing.T) {
	f := newFixture(&stubVerifier{})

	user, err := f.svc.Register(context.Background(), registerInput("doc@x.com", true))
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	doctor, err := f.doctors.FindByUserID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("doctor record missing: %v", err)
	}
	if user.DoctorID != doctor.ID {
		t.Fatalf("user.DoctorID = %q, want %q", user.DoctorID, doctor.ID)
	}
	if doctor.UserID != user.ID {
		t.Fatalf("doctor.UserID = %q, want %q", doctor.UserID, user.ID)
	}

	stored, _ := f.users.FindByID(context.Background(), user.ID)
	if stored.DoctorID != doctor.ID {
		t.Fatalf("doctor reference not persisted on user")
	}
}

func TestAuthService_Register_MailFailure(t *testing.T) {
	f := newFixture(&stubVerifier{})
	f.mailer.fail = true

	if _, err := f.svc.Register(context.Background(), registerInput("a@x.com", false)); err == nil {
		t.Fatalf("expected error when email dispatch fails")
	}
}

// --- login ---

func TestAuthService_Login_UnverifiedEmail(t *testing.T) {
	f := newFixture(&stubVerifier{})

	_, _ = f.svc.Register(context.Background(), registerInput("a@x.com", false))

	if _, _, err := f.svc.Login(context.Background(), "a@x.com", "Secret123!"); !errors.Is(err, domain.ErrEmailNotVerified) {
		t.Fatalf("expected ErrEmailNotVerified even with correct password, got %v", err)
	}
}

func TestAuthService_Login_AfterVerification(t *testing.T) {
	f := newFixture(&stubVerifier{})

	_, _ = f.svc.Register(context.Background(), registerInput("a@x.com", false))
	if err := f.svc.VerifyEmail(context.Background(), f.mailer.lastToken(t)); err != nil {
		t.Fatalf("VerifyEmail failed: %v", err)
	}

	token, user, err := f.svc.Login(context.Background(), "a@x.com", "Secret123!")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if user == nil || !user.EmailVerified {
		t.Fatalf("expected verified user, got %+v", user)
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("session token invalid: %v", err)
	}
	if claims["role"] != domain.RolePatient {
		t.Fatalf("expected role %s, got %v", domain.RolePatient, claims["role"])
	}
	if claims["user_id"] != user.ID {
		t.Fatalf("expected user_id %s, got %v", user.ID, claims["user_id"])
	}
}

func TestAuthService_Login_BadCredentials(t *testing.T) {
	f := newFixture(&stubVerifier{})

	_, _ = f.svc.Register(context.Background(), registerInput("a@x.com", false))

	if _, _, err := f.svc.Login(context.Background(), "a@x.com", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for bad password, got %v", err)
	}
	if _, _, err := f.svc.Login(context.Background(), "ghost@x.com", "whatever"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for unknown email, got %v", err)
	}
}

func TestAuthService_Login_ExternalAccount(t *testing.T) {
	verifier := &stubVerifier{identity: &ports.GoogleIdentity{
		Email:     "g@x.com",
		GivenName: "Grace",
	}}
	f := newFixture(verifier)

	if _, err := f.svc.GoogleLogin(context.Background(), "access", "id"); err != nil {
		t.Fatalf("GoogleLogin failed: %v", err)
	}

	if _, _, err := f.svc.Login(context.Background(), "g@x.com", "anything"); !errors.Is(err, domain.ErrNoPasswordCredential) {
		t.Fatalf("expected ErrNoPasswordCredential, got %v", err)
	}
}

func TestAuthService_Login_RateLimited(t *testing.T) {
	f := newFixture(&stubVerifier{})
	f.limiter.deny = true

	if _, _, err := f.svc.Login(context.Background(), "a@x.com", "pass"); !errors.Is(err, domain.ErrTooManyRequests) {
		t.Fatalf("expected ErrTooManyRequests, got %v", err)
	}
}

func TestAuthService_Login_LimiterOutageDegradesOpen(t *testing.T) {
	f := newFixture(&stubVerifier{})
	f.limiter.err = errors.New("redis down")

	// Limiter failure must not lock users out; the login proceeds to the
	// normal credential check.
	if _, _, err := f.svc.Login(context.Background(), "ghost@x.com", "pass"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

// --- google login ---

func TestAuthService_GoogleLogin_ProvisionsUser(t *testing.T) {
	verifier := &stubVerifier{identity: &ports.GoogleIdentity{
		Email:          "g@x.com",
		GivenName:      "Grace",
		FamilyName:     "Hopper",
		ProfilePicture: "https://example.com/p.jpg",
	}}
	f := newFixture(verifier)

	result, err := f.svc.GoogleLogin(context.Background(), "access", "id")
	if err != nil {
		t.Fatalf("GoogleLogin failed: %v", err)
	}
	if result.Token == "" {
		t.Fatalf("expected session token")
	}
	if !result.MustUpdateGender {
		t.Fatalf("expected MustUpdateGender for unspecified gender")
	}
	if result.User.CredentialKind != domain.CredentialExternal {
		t.Fatalf("expected external credential, got %s", result.User.CredentialKind)
	}
	if result.User.PasswordHash != "" {
		t.Fatalf("external account must not carry a password hash")
	}
	if !result.User.EmailVerified {
		t.Fatalf("provider-vouched account must be verified")
	}
}

func TestAuthService_GoogleLogin_ExistingUser(t *testing.T) {
	verifier := &stubVerifier{identity: &ports.GoogleIdentity{Email: "a@x.com"}}
	f := newFixture(verifier)

	_, _ = f.svc.Register(context.Background(), registerInput("a@x.com", false))

	result, err := f.svc.GoogleLogin(context.Background(), "access", "id")
	if err != nil {
		t.Fatalf("GoogleLogin failed: %v", err)
	}
	if len(f.users.users) != 1 {
		t.Fatalf("existing account must not be duplicated")
	}
	if result.MustUpdateGender {
		t.Fatalf("registered account has a gender, MustUpdateGender must be false")
	}
}

func TestAuthService_GoogleLogin_VerifiesExistingUnverifiedAccount(t *testing.T) {
	verifier := &stubVerifier{identity: &ports.GoogleIdentity{Email: "a@x.com"}}
	f := newFixture(verifier)

	user, _ := f.svc.Register(context.Background(), registerInput("a@x.com", false))

	result, err := f.svc.GoogleLogin(context.Background(), "access", "id")
	if err != nil {
		t.Fatalf("GoogleLogin failed: %v", err)
	}
	if result.Token == "" {
		t.Fatalf("expected session token")
	}

	stored, _ := f.users.FindByID(context.Background(), user.ID)
	if !stored.EmailVerified {
		t.Fatalf("provider-vouched email must be marked verified")
	}
	if !stored.CanIssueSession() {
		t.Fatalf("session was issued for an account the issuance policy refuses: %+v", stored)
	}
	if stored.VerificationTokenHash != "" {
		t.Fatalf("pending verification token must be cleared")
	}

	// Password login and Google sign-in now agree on the account.
	if _, _, err := f.svc.Login(context.Background(), "a@x.com", "Secret123!"); err != nil {
		t.Fatalf("password login after google sign-in failed: %v", err)
	}
}

func TestAuthService_GoogleLogin_InvalidToken(t *testing.T) {
	verifier := &stubVerifier{err: domain.ErrInvalidGoogleToken}
	f := newFixture(verifier)

	if _, err := f.svc.GoogleLogin(context.Background(), "access", "id"); !errors.Is(err, domain.ErrInvalidGoogleToken) {
		t.Fatalf("expected ErrInvalidGoogleToken, got %v", err)
	}
	if len(f.users.users) != 0 {
		t.Fatalf("no user may be created on a rejected token")
	}
}

// --- verify email ---

func TestAuthService_VerifyEmail_SingleUse(t *testing.T) {
	f := newFixture(&stubVerifier{})

	user, _ := f.svc.Register(context.Background(), registerInput("a@x.com", false))
	token := f.mailer.lastToken(t)

	if err := f.svc.VerifyEmail(context.Background(), token); err != nil {
		t.Fatalf("first VerifyEmail failed: %v", err)
	}
	stored, _ := f.users.FindByID(context.Background(), user.ID)
	if !stored.EmailVerified || stored.VerificationTokenHash != "" {
		t.Fatalf("expected verified user with cleared token, got %+v", stored)
	}

	if err := f.svc.VerifyEmail(context.Background(), token); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("second submit must fail, got %v", err)
	}
	if err := f.svc.VerifyEmail(context.Background(), "deadbeef"); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("garbage token must fail, got %v", err)
	}
}

func TestAuthService_VerifyEmail_Expired(t *testing.T) {
	f := newFixture(&stubVerifier{})

	user, _ := f.svc.Register(context.Background(), registerInput("a@x.com", false))
	f.users.users[user.ID].VerificationExpiresAt = time.Now().Add(-time.Minute)

	if err := f.svc.VerifyEmail(context.Background(), f.mailer.lastToken(t)); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for expired token, got %v", err)
	}
}

// --- forgot / reset password ---

func TestAuthService_ForgotPassword_UnknownEmail(t *testing.T) {
	f := newFixture(&stubVerifier{})

	if err := f.svc.ForgotPassword(context.Background(), "ghost@x.com"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthService_ForgotPassword_RollbackOnMailFailure(t *testing.T) {
	f := newFixture(&stubVerifier{})

	user, _ := f.svc.Register(context.Background(), registerInput("a@x.com", false))

	f.mailer.fail = true
	if err := f.svc.ForgotPassword(context.Background(), "a@x.com"); err == nil {
		t.Fatalf("expected error when reset email fails")
	}

	stored, _ := f.users.FindByID(context.Background(), user.ID)
	if stored.ResetTokenHash != "" || !stored.ResetExpiresAt.IsZero() {
		t.Fatalf("reset fields must be rolled back, got %+v", stored)
	}
}

func TestAuthService_ResetPassword_FullFlow(t *testing.T) {
	f := newFixture(&stubVerifier{})

	user, _ := f.svc.Register(context.Background(), registerInput("a@x.com", false))
	if err := f.svc.ForgotPassword(context.Background(), "a@x.com"); err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}
	token := f.mailer.lastToken(t)

	sessionToken, resetUser, err := f.svc.ResetPassword(context.Background(), token, "NewSecret456!")
	if err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}
	if sessionToken == "" {
		t.Fatalf("expected a usable session token after reset")
	}
	if resetUser.ID != user.ID {
		t.Fatalf("reset returned wrong user")
	}

	stored, _ := f.users.FindByID(context.Background(), user.ID)
	if stored.ResetTokenHash != "" || !stored.ResetExpiresAt.IsZero() {
		t.Fatalf("reset fields must be cleared, got %+v", stored)
	}
	if !stored.EmailVerified {
		t.Fatalf("completing a reset proves mailbox control, account must be verified")
	}
	if stored.PasswordChangedAt.IsZero() {
		t.Fatalf("password_changed_at must be stamped")
	}

	// new password works, old one does not
	if _, _, err := f.svc.Login(context.Background(), "a@x.com", "NewSecret456!"); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
	if _, _, err := f.svc.Login(context.Background(), "a@x.com", "Secret123!"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("old password must be rejected, got %v", err)
	}

	// token is single-use
	if _, _, err := f.svc.ResetPassword(context.Background(), token, "Another789!"); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("reused token must fail, got %v", err)
	}
}

func TestAuthService_ResetPassword_ExpiredToken(t *testing.T) {
	f := newFixture(&stubVerifier{})

	user, _ := f.svc.Register(context.Background(), registerInput("a@x.com", false))
	_ = f.svc.ForgotPassword(context.Background(), "a@x.com")
	token := f.mailer.lastToken(t)

	f.users.users[user.ID].ResetExpiresAt = time.Now().Add(-time.Minute)
	before := *f.users.users[user.ID]

	if _, _, err := f.svc.ResetPassword(context.Background(), token, "NewSecret456!"); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}

	after := *f.users.users[user.ID]
	if before.PasswordHash != after.PasswordHash || before.ResetTokenHash != after.ResetTokenHash {
		t.Fatalf("expired token must not mutate the record")
	}
}

func TestAuthService_ResetPassword_UnknownToken(t *testing.T) {
	f := newFixture(&stubVerifier{})

	if _, _, err := f.svc.ResetPassword(context.Background(), "deadbeef", "NewSecret456!"); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}
