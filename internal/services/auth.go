package services

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
)

// GuestUser is the caller identity when no X-User-ID header is present.
const GuestUser = "guest"

// Authorizer implements the configurable auth policy for the callable
// functions. With an empty key, authentication is disabled and every caller
// runs as a guest (the MVP posture); with a key set, callers must present it
// as a bearer token.
type Authorizer struct {
	apiKey string
}

// NewAuthorizer returns an Authorizer for the given shared key. An empty key
// disables enforcement.
func NewAuthorizer(apiKey string) *Authorizer {
	return &Authorizer{apiKey: apiKey}
}

// Authorize checks the request against the policy and returns the caller's
// user id. It returns ErrUnauthenticated when a required key is missing or
// wrong.
func (a *Authorizer) Authorize(r *http.Request) (string, error) {
	if a.apiKey != "" {
		token := bearerToken(r.Header.Get("Authorization"))
		if subtle.ConstantTimeCompare([]byte(token), []byte(a.apiKey)) != 1 {
			return "", fmt.Errorf("%w: missing or invalid API key", ErrUnauthenticated)
		}
	}
	if user := r.Header.Get("X-User-ID"); user != "" {
		return user, nil
	}
	return GuestUser, nil
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}
