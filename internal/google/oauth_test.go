package google

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func testConfig() Config {
	return Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://skill.example.com/oauth/callback",
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "complete registration",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing client ID",
			mutate:  func(c *Config) { c.ClientID = "" },
			wantErr: "client ID",
		},
		{
			name:    "missing client secret",
			mutate:  func(c *Config) { c.ClientSecret = "" },
			wantErr: "client secret",
		},
		{
			name:    "missing redirect URL",
			mutate:  func(c *Config) { c.RedirectURL = "" },
			wantErr: "redirect URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := testConfig()
			tt.mutate(&config)

			err := config.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestAuthURLCarriesPhoneAsState(t *testing.T) {
	o := NewOAuth(testConfig())

	raw := o.AuthURL("5551234567")

	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "5551234567", q.Get("state"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "force", q.Get("approval_prompt"))
	assert.Contains(t, q.Get("scope"), "gmail.readonly")
	assert.Contains(t, q.Get("scope"), "openid")
}

func signedIDToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	raw, err := token.SignedString([]byte("test-key"))
	require.NoError(t, err)
	return raw
}

func TestExchangeExtractsEmail(t *testing.T) {
	idToken := signedIDToken(t, jwt.MapClaims{
		"email": "user@example.com",
		"sub":   "12345",
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "auth-code", r.FormValue("code"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
			"access_token": "ya29.access",
			"refresh_token": "1//refresh",
			"expires_in": 3600,
			"token_type": "Bearer",
			"id_token": %q
		}`, idToken)
	}))
	defer srv.Close()

	o := NewOAuth(testConfig())
	o.conf.Endpoint = oauth2.Endpoint{TokenURL: srv.URL}

	set, err := o.Exchange(t.Context(), "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "ya29.access", set.AccessToken)
	assert.Equal(t, "1//refresh", set.RefreshToken)
	assert.Equal(t, "user@example.com", set.Email)
	assert.WithinDuration(t, time.Now().Add(time.Hour), set.Expiry, 10*time.Second)
}

func TestExchangeRejectsIDTokenWithoutEmail(t *testing.T) {
	idToken := signedIDToken(t, jwt.MapClaims{"sub": "12345"})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token": "ya29.access", "token_type": "Bearer", "id_token": %q}`, idToken)
	}))
	defer srv.Close()

	o := NewOAuth(testConfig())
	o.conf.Endpoint = oauth2.Endpoint{TokenURL: srv.URL}

	_, err := o.Exchange(t.Context(), "auth-code")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email claim")
}

func TestRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.FormValue("grant_type"))
		assert.Equal(t, "1//refresh", r.FormValue("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token": "ya29.fresh", "expires_in": 3600, "token_type": "Bearer"}`)
	}))
	defer srv.Close()

	o := NewOAuth(testConfig())
	o.conf.Endpoint = oauth2.Endpoint{TokenURL: srv.URL}

	token, expiry, err := o.Refresh(t.Context(), "1//refresh")
	require.NoError(t, err)
	assert.Equal(t, "ya29.fresh", token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiry, 10*time.Second)
}

func TestRefreshFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": "invalid_grant"}`)
	}))
	defer srv.Close()

	o := NewOAuth(testConfig())
	o.conf.Endpoint = oauth2.Endpoint{TokenURL: srv.URL}

	_, _, err := o.Refresh(t.Context(), "1//stale")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to refresh access token")
}
