package dto

// StreakRequestDTO proposes a streak value; the server keeps the larger one.
type StreakRequestDTO struct {
	Username string `json:"username" validate:"required"`
	Streak   *int   `json:"streak" validate:"required,min=0"`
}

type StreakResponseDTO struct {
	Message string `json:"message"`
	Streak  int    `json:"streak"`
}

type ProgressRequestDTO struct {
	Username string    `json:"username" validate:"required"`
	Progress []float64 `json:"progress" validate:"required,len=5,dive,min=0,max=100"`
}

type ProgressResponseDTO struct {
	Progress []float64 `json:"progress"`
}
