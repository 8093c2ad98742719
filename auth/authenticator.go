package auth

import (
	"devmatch/contract"
	"devmatch/errors"
)

var _ contract.IAuthenticator = (*Authenticator)(nil)

// Authenticator resolves the identity of a connection at connect time.
type Authenticator struct {
	issuer *TokenIssuer
}

func NewAuthenticator(issuer *TokenIssuer) *Authenticator {
	return &Authenticator{issuer: issuer}
}

// Authenticate cross-checks the identity claimed by a client with its session token.
//
//   - no claim, no token: anonymous connection, empty identity
//   - token only: the token subject is the identity
//   - claim and token: they must match
//   - claim without token: rejected
func (a *Authenticator) Authenticate(claimed, token string) (string, error) {
	if token == "" {
		if claimed == "" {
			return "", nil
		}
		return "", errors.ErrUnauthenticated
	}

	claims, err := a.issuer.Validate(token)
	if err != nil {
		return "", err
	}
	if claimed != "" && claimed != claims.UserID {
		return "", errors.ErrIdentityMismatch
	}
	return claims.UserID, nil
}
