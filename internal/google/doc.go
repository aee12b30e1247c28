// Package google provides OAuth2 authentication and token management for Google APIs.
//
// Tokens are stored per account under the user cache directory (or
// MEETSLOTS_TOKEN_DIR) and refreshed tokens are written back to disk. The
// TokenProvider interface lets the calendar and mail clients obtain tokens
// without knowing where they are stored.
package google
