package domain

import "fmt"

// Role is a user's privilege level. Roles are totally ordered; a higher role
// satisfies every check a lower role does.
type Role int

const (
	RoleReadonly Role = iota + 1
	RoleMember
	RoleOrgAdmin
	RoleSystemAdmin
)

var roleNames = map[Role]string{
	RoleReadonly:    "readonly",
	RoleMember:      "member",
	RoleOrgAdmin:    "org_admin",
	RoleSystemAdmin: "system_admin",
}

// ParseRole maps a persisted role name to a Role. Unknown names are an error.
func ParseRole(name string) (Role, error) {
	for r, n := range roleNames {
		if n == name {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", name)
}

func (r Role) String() string {
	if n, ok := roleNames[r]; ok {
		return n
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// AtLeast reports whether r has at least the privileges of required.
func (r Role) AtLeast(required Role) bool {
	return r.Valid() && r >= required
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// SignupRole is the role given to the creator of a new organization.
func SignupRole(b2b bool) Role {
	if b2b {
		return RoleMember
	}
	return RoleOrgAdmin
}
