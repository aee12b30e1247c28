package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Environment variables read by GetOAuthConfig and the token store.
const (
	EnvCredentialsFile = "GOOGLE_CREDENTIALS_FILE"
	EnvClientID        = "GOOGLE_CLIENT_ID"
	EnvClientSecret    = "GOOGLE_CLIENT_SECRET"
	EnvRedirectURL     = "GOOGLE_REDIRECT_URL"
	EnvTokenDir        = "MEETSLOTS_TOKEN_DIR"
)

// DefaultAccount is the account name used when none is given.
const DefaultAccount = "default"

const oobRedirectURL = "urn:ietf:wg:oauth:2.0:oob"

var accountNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// fileMu serializes token file writes within the process.
var fileMu sync.Mutex

// validateAccountName ensures the account name can be used as part of a file name.
func validateAccountName(account string) error {
	if account == "" {
		return fmt.Errorf("account name cannot be empty")
	}
	if !accountNamePattern.MatchString(account) {
		return fmt.Errorf("invalid account name %q: only letters, digits, '-' and '_' are allowed", account)
	}
	return nil
}

// ValidateAccountName is the exported form of the account name check.
func ValidateAccountName(account string) error {
	return validateAccountName(account)
}

// tokenDir returns the directory holding per-account token files.
func tokenDir() string {
	if dir := os.Getenv(EnvTokenDir); dir != "" {
		return dir
	}
	return filepath.Join(userCacheDir(), "meetslots")
}

// getTokenFilePath returns the token file path for an account.
func getTokenFilePath(account string) string {
	return filepath.Join(tokenDir(), "google-"+account+".token")
}

// GetOAuthConfig returns the OAuth2 client configuration.
//
// A downloaded client secret file (GOOGLE_CREDENTIALS_FILE) takes precedence
// over GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET.
func GetOAuthConfig() *oauth2.Config {
	redirect := os.Getenv(EnvRedirectURL)
	if redirect == "" {
		redirect = oobRedirectURL
	}

	if path := os.Getenv(EnvCredentialsFile); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if conf, err := google.ConfigFromJSON(data, DefaultOAuthScopes...); err == nil {
				conf.RedirectURL = redirect
				return conf
			}
		}
	}

	return &oauth2.Config{
		ClientID:     os.Getenv(EnvClientID),
		ClientSecret: os.Getenv(EnvClientSecret),
		Endpoint:     google.Endpoint,
		RedirectURL:  redirect,
		Scopes:       DefaultOAuthScopes,
	}
}

// HasTokenForAccount reports whether a token file exists for the account.
func HasTokenForAccount(account string) bool {
	if err := validateAccountName(account); err != nil {
		return false
	}
	_, err := os.Stat(getTokenFilePath(account))
	return err == nil
}

// HasToken reports whether a token exists for the default account.
func HasToken() bool {
	return HasTokenForAccount(DefaultAccount)
}

// GetAuthURLForAccount returns the consent URL for an account. The account
// name is carried in the state parameter.
func GetAuthURLForAccount(account string) string {
	conf := GetOAuthConfig()
	return conf.AuthCodeURL(account, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// SaveTokenForAccount exchanges an authorization code and stores the token.
func SaveTokenForAccount(ctx context.Context, account, authCode string) error {
	if err := validateAccountName(account); err != nil {
		return err
	}
	if authCode == "" {
		return fmt.Errorf("authorization code cannot be empty")
	}

	conf := GetOAuthConfig()
	token, err := conf.Exchange(ctx, authCode)
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return writeToken(account, token)
}

// readToken loads the stored token for an account.
func readToken(account string) (*oauth2.Token, error) {
	if err := validateAccountName(account); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(getTokenFilePath(account))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("no Google OAuth token found for account %s", account)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token for account %s: %w", account, err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("invalid token file for account %s: %w", account, err)
	}
	return &token, nil
}

// writeToken persists a token for an account with owner-only permissions.
func writeToken(account string, token *oauth2.Token) error {
	fileMu.Lock()
	defer fileMu.Unlock()

	if err := os.MkdirAll(tokenDir(), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.WriteFile(getTokenFilePath(account), data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// persistingTokenSource writes refreshed tokens back to disk.
type persistingTokenSource struct {
	account string
	base    oauth2.TokenSource

	mu   sync.Mutex
	last string
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if token.AccessToken != p.last {
		p.last = token.AccessToken
		// A failed write only means the next process refreshes again.
		_ = writeToken(p.account, token)
	}
	return token, nil
}

// GetTokenSourceForAccount returns a refreshing token source for an account.
func GetTokenSourceForAccount(ctx context.Context, account string) (oauth2.TokenSource, error) {
	token, err := readToken(account)
	if err != nil {
		return nil, err
	}

	conf := GetOAuthConfig()
	return &persistingTokenSource{
		account: account,
		base:    oauth2.ReuseTokenSource(token, conf.TokenSource(ctx, token)),
		last:    token.AccessToken,
	}, nil
}

// GetHTTPClientForAccount returns an authenticated HTTP client for an account.
// The client uses HTTP/1.1 to avoid HTTP/2 stream errors seen with Google APIs.
func GetHTTPClientForAccount(ctx context.Context, account string) (*http.Client, error) {
	ts, err := GetTokenSourceForAccount(ctx, account)
	if err != nil {
		return nil, err
	}
	return NewHTTPClient(ctx, ts), nil
}

// NewHTTPClient wraps a token source in an HTTP/1.1 client.
func NewHTTPClient(ctx context.Context, ts oauth2.TokenSource) *http.Client {
	client := oauth2.NewClient(ctx, ts)
	if transport, ok := client.Transport.(*oauth2.Transport); ok {
		transport.Base = &http.Transport{
			Proxy:             http.ProxyFromEnvironment,
			ForceAttemptHTTP2: false,
		}
	}
	return client
}

// GetAuthenticationErrorMessage explains how to authorize an account.
func GetAuthenticationErrorMessage(account string) string {
	return fmt.Sprintf(`Google OAuth token not found for account "%s". To authorize access:

1. Run: meetslots auth url --account %s
2. Visit the printed URL and grant access to Calendar and Gmail
3. Run: meetslots auth save --account %s --code <authorization code>`, account, account, account)
}

func userCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return dir
	}
	if runtime.GOOS == "windows" {
		return os.TempDir()
	}
	return filepath.Join(os.Getenv("HOME"), ".cache")
}
