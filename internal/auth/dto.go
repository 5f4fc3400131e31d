package auth

import (
	"github.com/biblionet/biblionet-backend/internal/customers"
	"github.com/biblionet/biblionet-backend/internal/users"
)

// LoginRequest captures the customer credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// StaffLoginRequest adds the role the employee signs in as. Role accepts
// "admin" as an alias of "administrador".
type StaffLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required"`
	Remember bool   `json:"remember"`
}

// LoginResponse contains the tokens and the signed-in identity.
type LoginResponse struct {
	AccessToken  string                 `json:"access_token"`
	RefreshToken string                 `json:"refresh_token"`
	User         *users.UserDTO         `json:"user"`
	Customer     *customers.CustomerDTO `json:"customer,omitempty"`
}

// ChangePasswordRequest is the self-service password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
	Confirmation    string `json:"confirmation" validate:"required"`
}
