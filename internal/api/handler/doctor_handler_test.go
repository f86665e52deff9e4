package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/medibook/appointment-api/internal/core/domain"
)

type stubDoctorService struct {
	getOwnProfileFn func(ctx context.Context, userID string) (*domain.Doctor, error)
}

func (s *stubDoctorService) GetOwnProfile(ctx context.Context, userID string) (*domain.Doctor, error) {
	return s.getOwnProfileFn(ctx, userID)
}

func TestDoctorHandler_Me_Success(t *testing.T) {
	stub := &stubDoctorService{
		getOwnProfileFn: func(ctx context.Context, userID string) (*domain.Doctor, error) {
			if userID != "user_1" {
				t.Fatalf("unexpected userID: %s", userID)
			}
			return &domain.Doctor{
				ID:        "doc_1",
				UserID:    "user_1",
				FirstName: "Alice",
				LastName:  "Smith",
				Price:     150,
			}, nil
		},
	}
	handler := NewDoctorHandler(stub)

	c, rec := newTestContext(t, http.MethodGet, "/v1/doctors/me", "")
	c.Set("user_id", "user_1")
	c.Set("role", "doctor")

	if err := handler.Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	resp := decodeBody(t, rec)
	if resp["doctorId"] != "doc_1" || resp["userId"] != "user_1" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestDoctorHandler_Me_NotFound(t *testing.T) {
	stub := &stubDoctorService{
		getOwnProfileFn: func(ctx context.Context, userID string) (*domain.Doctor, error) {
			return nil, domain.ErrDoctorNotFound
		},
	}
	handler := NewDoctorHandler(stub)

	c, rec := newTestContext(t, http.MethodGet, "/v1/doctors/me", "")
	c.Set("user_id", "user_1")
	c.Set("role", "doctor")

	_ = handler.Me(c)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDoctorHandler_Me_MissingClaims(t *testing.T) {
	stub := &stubDoctorService{
		getOwnProfileFn: func(ctx context.Context, userID string) (*domain.Doctor, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	handler := NewDoctorHandler(stub)

	c, _ := newTestContext(t, http.MethodGet, "/v1/doctors/me", "")

	err := handler.Me(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 HTTPError, got %v", err)
	}
}
