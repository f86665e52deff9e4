package ports

import (
	"context"

	"github.com/medibook/appointment-api/internal/core/domain"
)

// DoctorRepository defines the interface for doctor profile persistence.
type DoctorRepository interface {
	Create(ctx context.Context, doctor *domain.Doctor) (*domain.Doctor, error)
	FindByUserID(ctx context.Context, userID string) (*domain.Doctor, error)
}
