package ports

import (
	"context"

	"github.com/medibook/appointment-api/internal/core/domain"
)

type DoctorService interface {
	GetOwnProfile(ctx context.Context, userID string) (*domain.Doctor, error)
}
