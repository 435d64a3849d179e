package models

// ClaimAdmin is the reserved custom-claim key carrying administrator status.
const ClaimAdmin = "admin"

// Claims is the custom claim set attached to an identity by the identity provider.
// Admin is typed explicitly; every other key is carried untouched in Extra.
type Claims struct {
	Admin bool
	Extra map[string]interface{}
}

// ClaimsFromMap decodes a raw claim map. Only a literal boolean true grants admin;
// "true", 1 or any other value decodes as Admin=false.
func ClaimsFromMap(m map[string]interface{}) Claims {
	c := Claims{Extra: make(map[string]interface{}, len(m))}
	for k, v := range m {
		if k == ClaimAdmin {
			if b, ok := v.(bool); ok && b {
				c.Admin = true
			}
			continue
		}
		c.Extra[k] = v
	}
	return c
}

// ToMap encodes the claim set for the identity provider. The admin key is always
// present so the stored claim is explicit.
func (c Claims) ToMap() map[string]interface{} {
	m := make(map[string]interface{}, len(c.Extra)+1)
	for k, v := range c.Extra {
		m[k] = v
	}
	m[ClaimAdmin] = c.Admin
	return m
}

// Merge returns a new claim set with other layered over c.
// Keys present only in c are preserved.
func (c Claims) Merge(other Claims) Claims {
	out := Claims{
		Admin: other.Admin,
		Extra: make(map[string]interface{}, len(c.Extra)+len(other.Extra)),
	}
	for k, v := range c.Extra {
		out.Extra[k] = v
	}
	for k, v := range other.Extra {
		out.Extra[k] = v
	}
	return out
}

// WithAdmin returns a copy of c with the admin flag set to admin.
func (c Claims) WithAdmin(admin bool) Claims {
	out := c.Merge(Claims{})
	out.Admin = admin
	return out
}

// IsAdmin reports whether the claim set grants administrator status.
func (c Claims) IsAdmin() bool {
	return c.Admin
}
