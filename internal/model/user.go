package model

import "strings"

// Role is the closed set of account kinds that can authenticate.  The
// string value is what travels in the token's "role" claim.
type Role string

const (
	RoleFarmer       Role = "farmer"
	RoleVeterinarian Role = "veterinarian"
)

// Roles lists every known role in login lookup order.  Farmers are
// tried first, matching the order accounts were historically resolved.
var Roles = []Role{RoleFarmer, RoleVeterinarian}

// ParseRole maps a raw claim value onto a Role.  Unknown values return
// false so callers can fail closed instead of comparing free-form strings.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.TrimSpace(s)) {
	case RoleFarmer:
		return RoleFarmer, true
	case RoleVeterinarian:
		return RoleVeterinarian, true
	}
	return "", false
}

func (r Role) String() string { return string(r) }

// Principal is the identity attached to an authenticated request.  It is
// never stored on its own: it is a read-through projection of either a
// farmer row or a veterinarian row, selected by Role.
//
// Fields:
//  ID     – farmer.id or veterinarian.id depending on Role.
//  Name   – display name.
//  Email  – unique address, used as the token subject.
//  Role   – which table the principal was read from.
//  FarmID – farm affiliation used for tenant checks; nil when unaffiliated.
type Principal struct {
	ID     uint64  `json:"id"`
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	Role   Role    `json:"role"`
	FarmID *uint64 `json:"farm_id"`
}

// BelongsTo reports whether the principal is affiliated with farmID.
func (p Principal) BelongsTo(farmID uint64) bool {
	return p.FarmID != nil && *p.FarmID == farmID
}

// Account couples a principal with the stored password hash.  It only
// exists inside the login path; the hash never leaves the service layer.
type Account struct {
	Principal    Principal
	PasswordHash string
}

// Farmer mirrors a row of the `farmer` table.  One farmer runs one farm.
type Farmer struct {
	ID           uint64 `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	FarmID       uint64 `json:"farm_id"`
}

// Veterinarian mirrors a row of the `veterinarian` table.  A vet is
// attached to a farm and to the farmer who registered them.
type Veterinarian struct {
	ID           uint64 `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	FarmID       uint64 `json:"farm_id"`
	FarmerID     uint64 `json:"farmer_id"`
}

// Farm is the tenant every scoped resource belongs to.
type Farm struct {
	ID       uint64  `json:"id"`
	Name     string  `json:"name"`
	Location *string `json:"location"`
}
