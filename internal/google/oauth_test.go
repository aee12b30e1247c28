package google

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestValidateAccountName(t *testing.T) {
	tests := []struct {
		name    string
		account string
		wantErr bool
	}{
		{"valid default", "default", false},
		{"valid work", "work", false},
		{"valid with hyphen", "work-email", false},
		{"valid with underscore", "personal_email", false},
		{"valid alphanumeric", "account123", false},
		{"empty", "", true},
		{"with spaces", "my account", true},
		{"with special chars", "account@work", true},
		{"with slash", "work/personal", true},
		{"with dot", "work.email", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAccountName(tt.account)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateAccountName() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetTokenFilePath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvTokenDir, dir)

	tests := []struct {
		name    string
		account string
		want    string
	}{
		{"default account", "default", "google-default.token"},
		{"work account", "work", "google-work.token"},
		{"org account", "org", "google-org.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := getTokenFilePath(tt.account)
			assert.Equal(t, filepath.Join(dir, tt.want), got)
		})
	}
}

func TestTokenRoundTrip(t *testing.T) {
	t.Setenv(EnvTokenDir, t.TempDir())

	assert.False(t, HasTokenForAccount("work"))
	_, err := readToken("work")
	assert.Error(t, err)

	token := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour).Round(time.Second),
	}
	require.NoError(t, writeToken("work", token))
	assert.True(t, HasTokenForAccount("work"))

	info, err := os.Stat(getTokenFilePath("work"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err := readToken("work")
	require.NoError(t, err)
	assert.Equal(t, "access", got.AccessToken)
	assert.Equal(t, "refresh", got.RefreshToken)
	assert.True(t, token.Expiry.Equal(got.Expiry))
}

func TestFileTokenProvider_ValidToken(t *testing.T) {
	t.Setenv(EnvTokenDir, t.TempDir())

	require.NoError(t, writeToken("org", &oauth2.Token{
		AccessToken: "still-valid",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Hour),
	}))

	provider := NewFileTokenProvider()
	assert.True(t, provider.HasTokenForAccount("org"))

	token, err := provider.GetTokenForAccount(context.Background(), "org")
	require.NoError(t, err)
	assert.Equal(t, "still-valid", token.AccessToken)

	_, err = provider.GetTokenForAccount(context.Background(), "missing")
	assert.Error(t, err)
}

func TestHasTokenForAccount_InvalidNames(t *testing.T) {
	assert.False(t, HasTokenForAccount("invalid account"))
	assert.False(t, HasTokenForAccount(""))
}

func TestSaveTokenForAccount_Validation(t *testing.T) {
	ctx := context.Background()
	assert.Error(t, SaveTokenForAccount(ctx, "bad name", "code"))
	assert.Error(t, SaveTokenForAccount(ctx, "work", ""))
}

func TestGetOAuthConfig(t *testing.T) {
	t.Setenv(EnvCredentialsFile, "")
	t.Setenv(EnvClientID, "client-id")
	t.Setenv(EnvClientSecret, "client-secret")
	t.Setenv(EnvRedirectURL, "")

	conf := GetOAuthConfig()
	assert.Equal(t, "client-id", conf.ClientID)
	assert.Equal(t, "client-secret", conf.ClientSecret)
	assert.Equal(t, oobRedirectURL, conf.RedirectURL)
	assert.ElementsMatch(t, DefaultOAuthScopes, conf.Scopes)

	url := GetAuthURLForAccount("work")
	assert.Contains(t, url, "client_id=client-id")
	assert.Contains(t, url, "state=work")
	assert.Contains(t, url, "access_type=offline")
}

func TestGetOAuthConfig_CredentialsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	creds := `{"installed":{"client_id":"file-id","client_secret":"file-secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`
	require.NoError(t, os.WriteFile(path, []byte(creds), 0600))

	t.Setenv(EnvCredentialsFile, path)
	t.Setenv(EnvClientID, "env-id")
	t.Setenv(EnvRedirectURL, "http://localhost:8085")

	conf := GetOAuthConfig()
	assert.Equal(t, "file-id", conf.ClientID)
	assert.Equal(t, "http://localhost:8085", conf.RedirectURL)
}

func TestGetAuthenticationErrorMessage(t *testing.T) {
	for _, account := range []string{"default", "work", "org"} {
		t.Run(account, func(t *testing.T) {
			msg := GetAuthenticationErrorMessage(account)
			assert.True(t, strings.Contains(msg, account))
			assert.Contains(t, msg, "OAuth")
		})
	}
}

func TestHTTPClientForAccount_NilProvider(t *testing.T) {
	_, err := HTTPClientForAccount(context.Background(), nil, "default")
	assert.Error(t, err)
}
