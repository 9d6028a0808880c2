// Package oauth2 signs readers in through an external identity provider.
// A Provider knows the provider's endpoints; a Flow carries one sign-in from
// the redirect to the verified identity.
package oauth2

import "context"

// Identity is the account the provider vouched for.
type Identity struct {
	Subject       string // stable provider account id
	Email         string
	EmailVerified bool
	Name          string
}

type Provider interface {
	Name() string

	// AuthCodeURL builds the consent page URL for a state and PKCE verifier.
	AuthCodeURL(state, verifier string) string

	// Identify exchanges an authorization code and looks up the account.
	Identify(ctx context.Context, code, verifier string) (*Identity, error)
}
