package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/medibook/appointment-api/internal/core/domain"
	"github.com/medibook/appointment-api/internal/core/ports"
)

// DoctorService exposes doctor profile lookups.
type DoctorService struct {
	repo ports.DoctorRepository
	log  zerolog.Logger
}

func NewDoctorService(repo ports.DoctorRepository, log zerolog.Logger) *DoctorService {
	return &DoctorService{repo: repo, log: log}
}

// GetOwnProfile returns the doctor record owned by the authenticated user.
func (s *DoctorService) GetOwnProfile(ctx context.Context, userID string) (*domain.Doctor, error) {
	doctor, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return doctor, nil
}
