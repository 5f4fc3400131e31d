package auth

import (
	"errors"

	"github.com/biblionet/biblionet-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID     uint
	Role       enums.Role
	CustomerID *uint
	JTI        string
}

// AccessTokenClaims is the BiblioNet principal carried in the bearer token.
// CustomerID is set exactly when Role is cliente.
type AccessTokenClaims struct {
	UserID     uint       `json:"user_id"`
	Role       enums.Role `json:"role"`
	CustomerID *uint      `json:"customer_id,omitempty"`
	jwt.RegisteredClaims
}

var (
	errMissingCustomer = errors.New("customer tokens require a customer id")
	errStaffCustomer   = errors.New("staff tokens must not carry a customer id")
)

// principalError checks the role and customer pairing shared by minting and
// parsing.
func principalError(userID uint, role enums.Role, customerID *uint) error {
	switch {
	case userID == 0:
		return errors.New("user id is required")
	case !role.IsValid():
		return errors.New("invalid role " + string(role))
	case role == enums.RoleCustomer && (customerID == nil || *customerID == 0):
		return errMissingCustomer
	case role != enums.RoleCustomer && customerID != nil:
		return errStaffCustomer
	}
	return nil
}
