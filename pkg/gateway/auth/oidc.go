package auth

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
)

// OIDCAuthenticator drives the hospital SSO login flow. Staff who sign in
// through the identity provider are exchanged for the same local JWT the
// password flow issues, so downstream services validate one token format.
type OIDCAuthenticator struct {
	config *oauth2.Config
	issuer string
}

func NewOIDCAuthenticator(issuer, clientID, clientSecret, redirectURL string) (*OIDCAuthenticator, error) {
	if issuer == "" || clientID == "" {
		return nil, fmt.Errorf("OIDC configuration incomplete")
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:  fmt.Sprintf("%s/authorize", issuer),
			TokenURL: fmt.Sprintf("%s/token", issuer),
		},
		Scopes: []string{"openid", "profile", "email"},
	}

	return &OIDCAuthenticator{
		config: config,
		issuer: issuer,
	}, nil
}

// AuthCodeURL returns the provider login URL for the given CSRF state.
func (a *OIDCAuthenticator) AuthCodeURL(state string) string {
	return a.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for provider tokens and returns
// the email claim carried in the ID token, which is the key used to look
// up the local staff account.
func (a *OIDCAuthenticator) Exchange(ctx context.Context, code string) (string, error) {
	token, err := a.config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("oidc code exchange failed: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return "", fmt.Errorf("oidc response missing id_token")
	}

	email, err := emailFromIDToken(rawIDToken)
	if err != nil {
		return "", err
	}
	return email, nil
}

func emailFromIDToken(rawIDToken string) (string, error) {
	parts := strings.Split(rawIDToken, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("malformed id_token")
	}

	var claims struct {
		Email string `json:"email"`
	}
	if err := decodeSegment(parts[1], &claims); err != nil {
		return "", fmt.Errorf("failed to decode id_token claims: %w", err)
	}
	if claims.Email == "" {
		return "", fmt.Errorf("id_token has no email claim")
	}
	return claims.Email, nil
}
