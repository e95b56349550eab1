package dto

type UserSignupRequestDTO struct {
	Username string `json:"username" validate:"required,min=3,max=20"`
	Password string `json:"password" validate:"required,min=6"`
}

type MessageResponseDTO struct {
	Message string `json:"message"`
}

type RateLimitResponse struct {
	Message string `json:"message"`
}
