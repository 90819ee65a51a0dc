package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func tokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"bearer","expires_in":3600}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGetTokenCachesUntilExpiry(t *testing.T) {
	srv := tokenServer(t)
	c := NewClientCred(Conf{ClientID: "plant", ClientSecret: "secret", AuthURL: srv.URL})

	tok, err := c.GetToken()
	require.NoError(t, err)
	require.Equal(t, "tok-1", tok)

	// A second call must reuse the cached token, not hit the endpoint again.
	again, err := c.GetToken()
	require.NoError(t, err)
	require.Equal(t, tok, again)
}

func TestSetAuthHeaderAttachesBearer(t *testing.T) {
	srv := tokenServer(t)
	c := NewClientCred(Conf{ClientID: "plant", ClientSecret: "secret", AuthURL: srv.URL})

	req := httptest.NewRequest(http.MethodGet, "http://market.example/prices", nil)
	require.NoError(t, c.SetAuthHeader(req))
	require.Equal(t, "Bearer tok-1", req.Header.Get("Authorization"))
}

func TestGetTokenFailsOnUnreachableEndpoint(t *testing.T) {
	c := NewClientCred(Conf{ClientID: "plant", ClientSecret: "secret", AuthURL: "http://127.0.0.1:1"})
	_, err := c.GetToken()
	require.Error(t, err)
}
