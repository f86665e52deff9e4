package handler

import "github.com/medibook/appointment-api/internal/core/domain"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// messageResponse is returned by operations whose only outcome is a status line.
type messageResponse struct {
	Message string `json:"message"`
}

// --- Request types ---
//
// Field names follow the public contract consumed by the web and mobile
// clients, hence the camelCase tags.

type registerRequest struct {
	FirstName       string `json:"firstName"       validate:"required"`
	LastName        string `json:"lastName"        validate:"required"`
	Email           string `json:"email"           validate:"required,email"`
	Password        string `json:"password"        validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	IsDoctor        bool   `json:"isDoctor"`
	Gender          string `json:"gender"          validate:"omitempty,oneof=male female other unspecified"`
	ProfilePicture  string `json:"profilePicture"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// googleLoginRequest carries the tokens obtained by the client from Google's
// OAuth flow: the access token for profile lookup and the ID token (code)
// for audience verification.
type googleLoginRequest struct {
	AccessToken string `json:"access_token" validate:"required"`
	Code        string `json:"code"         validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Password        string `json:"password"        validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// --- Response types ---
//
// Response-only types owned by the transport layer. These are intentionally
// separate from domain types so the JSON contract is not coupled to internal
// service changes.

type userResponse struct {
	UserID         string `json:"userId"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Gender         string `json:"gender"`
	IsDoctor       bool   `json:"isDoctor"`
	DoctorID       string `json:"doctorId,omitempty"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

type registerResponse struct {
	Message string       `json:"message"`
	User    userResponse `json:"user"`
}

type sessionResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type googleLoginResponse struct {
	Token            string       `json:"token"`
	User             userResponse `json:"user"`
	MustUpdateGender bool         `json:"mustUpdateGender"`
}

type forgotPasswordResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		UserID:         u.ID,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Gender:         string(u.Gender),
		IsDoctor:       u.IsDoctor,
		DoctorID:       u.DoctorID,
		ProfilePicture: u.ProfilePicture,
	}
}
