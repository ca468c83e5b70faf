package auth

// Identity represents an authenticated principal.
type Identity struct {
	// Principal is the unique identifier (e.g., user ID).
	Principal string

	// Roles are the roles assigned to this identity.
	Roles []string

	// Claims contains the raw claims from the token.
	Claims map[string]any
}

// HasRole checks if the identity has a specific role.
func (id *Identity) HasRole(role string) bool {
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAnonymous returns true if no principal is attached.
func (id *Identity) IsAnonymous() bool {
	return id == nil || id.Principal == ""
}
