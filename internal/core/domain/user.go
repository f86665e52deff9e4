package domain

import (
	"errors"
	"time"
)

// Gender is the self-reported gender on a user profile. Accounts provisioned
// from an external identity start as GenderUnspecified until the client
// collects the missing data.
type Gender string

const (
	GenderMale        Gender = "male"
	GenderFemale      Gender = "female"
	GenderOther       Gender = "other"
	GenderUnspecified Gender = "unspecified"
)

// CredentialKind distinguishes how an account authenticates.
// A CredentialExternal account has no password hash at all; password login
// for it is rejected before any hash comparison.
type CredentialKind string

const (
	CredentialPassword CredentialKind = "password"
	CredentialExternal CredentialKind = "external"
)

const (
	RoleDoctor  = "doctor"
	RolePatient = "patient"
)

var ErrUserExists = errors.New("email already exists")
var ErrUserNotFound = errors.New("user not found")
var ErrDoctorNotFound = errors.New("doctor profile not found")
var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrEmailNotVerified = errors.New("email not verified")
var ErrNoPasswordCredential = errors.New("account has no password credential")
var ErrInvalidGoogleToken = errors.New("invalid google token")
var ErrTokenInvalid = errors.New("token is invalid or has expired")
var ErrTooManyRequests = errors.New("too many requests")

// User is the identity and credential record.
type User struct {
	ID             string
	FirstName      string
	LastName       string
	Email          string
	PasswordHash   string
	CredentialKind CredentialKind
	Gender         Gender
	IsDoctor       bool
	DoctorID       string
	ProfilePicture string

	EmailVerified         bool
	VerificationTokenHash string
	VerificationExpiresAt time.Time
	ResetTokenHash        string
	ResetExpiresAt        time.Time
	PasswordChangedAt     time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Role derives the RBAC role from the account.
func (u *User) Role() string {
	if u.IsDoctor {
		return RoleDoctor
	}
	return RolePatient
}

// CanIssueSession is the single session-issuance policy. Every code path
// that mints a session token goes through this predicate: an account gets a
// session only once its email is verified, or when the identity was vouched
// for by an external provider.
func (u *User) CanIssueSession() bool {
	return u.EmailVerified || u.CredentialKind == CredentialExternal
}
