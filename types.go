package marketgate

import (
	"context"
	"time"

	"github.com/MrEthical07/marketgate/jwt"
	"github.com/MrEthical07/marketgate/permission"
)

// Identity is the live view of an account, as stored by the identity store.
type Identity struct {
	ID     string          `json:"id"`
	Email  string          `json:"email"`
	Role   permission.Role `json:"role"`
	Active bool            `json:"active"`
}

// IdentityRecord is what an IdentityProvider returns. PasswordHash is only
// read during login.
type IdentityRecord struct {
	Identity
	PasswordHash string
	CreatedAt    time.Time
}

// CreateIdentityInput carries a new account to the store.
type CreateIdentityInput struct {
	Email        string
	PasswordHash string
	Role         permission.Role
}

// IdentityProvider is the external identity store.
//
// GetIdentityByID and GetIdentityByEmail must return an error matching
// ErrUserNotFound when no record exists. CreateIdentity must return an error
// matching ErrEmailTaken for a duplicate email. Any other error is treated
// as the store being unavailable.
type IdentityProvider interface {
	GetIdentityByID(ctx context.Context, id string) (IdentityRecord, error)
	GetIdentityByEmail(ctx context.Context, email string) (IdentityRecord, error)
	CreateIdentity(ctx context.Context, in CreateIdentityInput) (IdentityRecord, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// ProductOwnerLookup resolves the seller that owns a product. It must return
// an error matching ErrResourceNotFound for unknown products.
type ProductOwnerLookup interface {
	ProductOwnerID(ctx context.Context, productID string) (string, error)
}

// AuthResult is what a successfully authenticated request carries.
type AuthResult struct {
	Claims   jwt.Claims
	Identity Identity
}

// Session is returned by Login and Register.
type Session struct {
	Token    string
	Claims   jwt.Claims
	Identity Identity
}

// RegisterInput is a public registration request.
type RegisterInput struct {
	Email    string
	Password string
	Role     permission.Role
}
