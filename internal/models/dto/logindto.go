package dto

import "github.com/haguru/eduquest/internal/models"

type LoginRequestDTO struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponseDTO struct {
	Message string           `json:"message"`
	User    *models.UserView `json:"user,omitempty"`
}
