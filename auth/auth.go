// Package auth obtains OAuth2 client-credentials tokens for the day-ahead
// market API and keeps them cached between price fetches.
package auth

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Conf carries the credentials for the market API's token endpoint.
type Conf struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	AuthURL      string `json:"auth_url"`
}

// ClientCred is a client-credentials session. Tokens are fetched lazily and
// reused until they expire.
type ClientCred struct {
	conf  clientcredentials.Config
	token *oauth2.Token
}

// NewClientCred builds a session from the configured credentials.
func NewClientCred(conf Conf) *ClientCred {
	return &ClientCred{conf: clientcredentials.Config{
		ClientID:     conf.ClientID,
		ClientSecret: conf.ClientSecret,
		TokenURL:     conf.AuthURL,
	}}
}

// GetToken returns a valid access token, fetching a fresh one when the cache
// is empty or expired.
func (c *ClientCred) GetToken() (string, error) {
	if err := c.ensure(); err != nil {
		return "", err
	}
	return c.token.AccessToken, nil
}

// ForceRefresh discards the cached token and fetches a new one.
func (c *ClientCred) ForceRefresh() (string, error) {
	c.token = nil
	return c.GetToken()
}

// SetAuthHeader puts the bearer token on the request, refreshing first if
// needed.
func (c *ClientCred) SetAuthHeader(r *http.Request) error {
	if err := c.ensure(); err != nil {
		return err
	}
	c.token.SetAuthHeader(r)
	return nil
}

func (c *ClientCred) ensure() error {
	if c.token != nil && c.token.Valid() {
		return nil
	}
	tok, err := c.conf.Token(context.Background())
	if err != nil {
		return fmt.Errorf("auth: token request: %w", err)
	}
	c.token = tok
	return nil
}
