package paymentwebhook

import (
	"crypto/subtle"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Authenticator checks the shared callback token the provider sends with
// every webhook.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) Authenticator {
	return Authenticator{secret: []byte(secret)}
}

// Verify compares token against the configured secret in constant time. A
// missing secret rejects every request.
func (a Authenticator) Verify(token string) error {
	if len(a.secret) == 0 || token == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid callback token")
	}
	if subtle.ConstantTimeCompare(a.secret, []byte(token)) != 1 {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid callback token")
	}
	return nil
}
