package auth

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email" validate:"required,email"`
	Password string `json:"password" binding:"required,min=8" validate:"required,min=8"`
	Name     string `json:"name" binding:"required" validate:"required"`
	Phone    string `json:"phone"`
	Role     string `json:"role" binding:"required,oneof=customer tailor" validate:"required,oneof=customer tailor"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}
