package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medibook/appointment-api/internal/core/domain"
	"github.com/medibook/appointment-api/internal/core/ports"
)

// DoctorHandler handles HTTP requests for doctor profile operations.
type DoctorHandler struct {
	service ports.DoctorService
}

func NewDoctorHandler(service ports.DoctorService) *DoctorHandler {
	return &DoctorHandler{service: service}
}

type doctorResponse struct {
	DoctorID       string  `json:"doctorId"`
	UserID         string  `json:"userId"`
	FirstName      string  `json:"firstName"`
	LastName       string  `json:"lastName"`
	Email          string  `json:"email"`
	Gender         string  `json:"gender"`
	ProfilePicture string  `json:"profilePicture,omitempty"`
	Description    string  `json:"description"`
	Experience     string  `json:"experience"`
	Price          float64 `json:"price"`
}

// Me returns the authenticated doctor's own profile.
//
// @Summary      Current doctor profile
// @Tags         doctors
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  doctorResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/doctors/me [get]
func (h *DoctorHandler) Me(c echo.Context) error {
	userID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	doctor, err := h.service.GetOwnProfile(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrDoctorNotFound) {
			return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
		}
		return err
	}

	return c.JSON(http.StatusOK, doctorResponse{
		DoctorID:       doctor.ID,
		UserID:         doctor.UserID,
		FirstName:      doctor.FirstName,
		LastName:       doctor.LastName,
		Email:          doctor.Email,
		Gender:         string(doctor.Gender),
		ProfilePicture: doctor.ProfilePicture,
		Description:    doctor.Description,
		Experience:     doctor.Experience,
		Price:          doctor.Price,
	})
}
