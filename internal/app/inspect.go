package app

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tonimelisma/eduapi-client/pkg/eduapi"
	"golang.org/x/oauth2"
)

// CredentialInfo describes the stored credential as far as it can be
// decoded locally. The signature is never verified; the server stays the
// authority on validity.
type CredentialInfo struct {
	Present   bool
	JWT       bool
	Subject   string
	Email     string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
	// Valid is false once ExpiresAt has passed. Opaque credentials are
	// always reported valid.
	Valid bool
}

// Inspect decodes credential.
func Inspect(credential string) CredentialInfo {
	if credential == "" {
		return CredentialInfo{}
	}
	info := CredentialInfo{Present: true}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(credential, claims); err == nil {
		info.JWT = true
		info.Subject, _ = claims.GetSubject()
		info.Issuer, _ = claims.GetIssuer()
		if email, ok := claims["email"].(string); ok {
			info.Email = email
		}
		if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
			info.IssuedAt = iat.Time
		}
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			info.ExpiresAt = exp.Time
		}
	}

	tok := &oauth2.Token{AccessToken: credential, Expiry: info.ExpiresAt}
	info.Valid = tok.Valid()
	return info
}

// Inspect decodes the stored credential.
func (a *App) Inspect() (CredentialInfo, error) {
	tok, err := eduapi.StoreTokenSource(a.credentials).Token()
	if errors.Is(err, eduapi.ErrNoCredential) {
		return CredentialInfo{}, nil
	}
	if err != nil {
		return CredentialInfo{}, err
	}
	return Inspect(tok.AccessToken), nil
}
