package validator

// RegisterRequest is the request body for account registration
type RegisterRequest struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// LoginRequest is the request body for credential login
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest is the request body for a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

// UpdateRoleRequest is the admin request body for a role change
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

// CardCreateRequest is the request body for manual flashcard creation
type CardCreateRequest struct {
	Question string `json:"question" validate:"required,notblank,max=5000"`
	Answer   string `json:"answer" validate:"required,notblank,max=5000"`
}
