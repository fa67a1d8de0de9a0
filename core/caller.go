package core

// Caller identifies the authenticated caller of an admin-gated operation.
// It is resolved from the request's token claims and passed explicitly into
// services; there is no ambient global auth state.
type Caller struct {
	ID      string
	Email   string
	IsAdmin bool
	// Token is the raw bearer credential, forwarded to the external
	// identity provider when provisioning identities on the caller's behalf.
	Token string
}
