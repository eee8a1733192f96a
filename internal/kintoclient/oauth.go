package kintoclient

import "golang.org/x/oauth2"

// OAuth2TokenSource adapts an oauth2.TokenSource (as used throughout the
// golang.org/x/oauth2 ecosystem: static tokens, refresh tokens, or a
// client-credentials flow for server-to-server Kinto deployments) to the
// minimal TokenSource interface this package depends on.
type OAuth2TokenSource struct {
	Source oauth2.TokenSource
}

// Token implements TokenSource.
func (o OAuth2TokenSource) Token() (string, error) {
	tok, err := o.Source.Token()
	if err != nil {
		return "", err
	}

	return tok.AccessToken, nil
}

// StaticToken returns a TokenSource that always returns the same bearer
// token, for Kinto deployments using a long-lived API key rather than
// OAuth2 refresh.
func StaticToken(token string) TokenSource {
	return OAuth2TokenSource{Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})}
}
