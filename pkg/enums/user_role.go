package enums

import "slices"

// UserRole maps to the user_role enum in Postgres.
type UserRole string

const (
	RoleAdmin          UserRole = "admin"
	RoleFarmer         UserRole = "farmer"
	RoleBuyer          UserRole = "buyer"
	RoleMinagriOfficer UserRole = "minagri_officer"
)

var validUserRoles = []UserRole{
	RoleAdmin,
	RoleFarmer,
	RoleBuyer,
	RoleMinagriOfficer,
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known role.
func (r UserRole) IsValid() bool {
	return slices.Contains(validUserRoles, r)
}

// IsStaff reports whether the role has back-office visibility over every record.
func (r UserRole) IsStaff() bool {
	return r == RoleAdmin || r == RoleMinagriOfficer
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	return parseEnum(value, validUserRoles, "user role")
}
