package oauth2

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	xoauth2 "golang.org/x/oauth2"
)

// Pending is what the browser must bring back to the callback.
type Pending struct {
	State    string
	Verifier string
}

// Encode packs p into a single cookie value.
func (p Pending) Encode() string {
	return p.State + "." + p.Verifier
}

// DecodePending reverses Encode.
func DecodePending(value string) (Pending, bool) {
	state, verifier, ok := strings.Cut(value, ".")
	if !ok || state == "" || verifier == "" {
		return Pending{}, false
	}
	return Pending{State: state, Verifier: verifier}, true
}

type Flow struct {
	provider Provider
}

func NewFlow(provider Provider) *Flow {
	return &Flow{provider: provider}
}

func (f *Flow) Provider() string {
	return f.provider.Name()
}

// Start returns the consent URL and the state the callback has to match.
func (f *Flow) Start() (string, Pending, error) {
	state, err := randomState()
	if err != nil {
		return "", Pending{}, fmt.Errorf("failed to generate state: %w", err)
	}
	pending := Pending{State: state, Verifier: xoauth2.GenerateVerifier()}
	return f.provider.AuthCodeURL(pending.State, pending.Verifier), pending, nil
}

// Complete checks the returned state against pending and resolves the code
// to an identity.
func (f *Flow) Complete(ctx context.Context, pending Pending, state, code string) (*Identity, error) {
	if state == "" || subtle.ConstantTimeCompare([]byte(state), []byte(pending.State)) != 1 {
		return nil, ErrStateMismatch
	}
	if code == "" {
		return nil, ErrMissingCode
	}
	identity, err := f.provider.Identify(ctx, code, pending.Verifier)
	if err != nil {
		return nil, fmt.Errorf("%s sign-in: %w", f.provider.Name(), err)
	}
	return identity, nil
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
