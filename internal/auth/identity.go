package auth

// Identity is a normalized external authentication identity returned by
// an OAuth provider. It carries facts only, no decisions.
type Identity struct {
	Provider       string  // e.g. "google"
	ProviderUserID string  // provider-scoped unique user identifier (sub)
	Email          string  // email asserted by the provider
	EmailVerified  bool    // whether the provider asserts email ownership
	Name           *string // display name, when the provider shares one
}
