package permission

import (
	"errors"
	"strings"
)

// Role is a marketplace role. The zero value is not a valid role.
type Role uint8

const (
	roleUnknown Role = iota
	// Admin may act on every resource and reaches the admin console.
	Admin
	// Seller manages the products they own.
	Seller
	// Buyer browses and orders.
	Buyer
)

// ErrUnknownRole is returned by Parse for strings outside the role set.
var ErrUnknownRole = errors.New("unknown role")

var roleNames = [...]string{
	roleUnknown: "",
	Admin:       "admin",
	Seller:      "seller",
	Buyer:       "buyer",
}

// All lists every valid role in declaration order.
func All() []Role {
	return []Role{Admin, Seller, Buyer}
}

// Parse maps the wire form of a role to a Role. Matching is exact; "Admin"
// and " admin" are rejected.
func Parse(s string) (Role, error) {
	for r := Admin; r <= Buyer; r++ {
		if roleNames[r] == s {
			return r, nil
		}
	}
	return roleUnknown, ErrUnknownRole
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	return r >= Admin && r <= Buyer
}

// String returns the wire form ("admin", "seller", "buyer"), or "" when r is invalid.
func (r Role) String() string {
	if !r.Valid() {
		return ""
	}
	return roleNames[r]
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, ErrUnknownRole
	}
	return []byte(roleNames[r]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// In reports whether r is a member of allowed. An empty allowed list
// admits nothing.
func (r Role) In(allowed ...Role) bool {
	if !r.Valid() {
		return false
	}
	for _, candidate := range allowed {
		if candidate == r {
			return true
		}
	}
	return false
}

// SelfRegistrable reports whether an account with this role may be created
// through public registration. Admin accounts are provisioned out of band.
func (r Role) SelfRegistrable() bool {
	return r == Seller || r == Buyer
}

// Join renders roles as a comma separated list, used in audit details.
func Join(roles []Role) string {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.String())
	}
	return strings.Join(names, ",")
}
