// Package google_tools provides MCP tools for authorizing Google accounts.
//
// Each account (the invitee's and the organization's) needs one token that
// covers Google Calendar and Gmail:
//  1. Call google_get_auth_url to get the authorization URL
//  2. The user visits the URL and authorizes access
//  3. Call google_save_auth_code with the code to save the token
//
// Saved tokens are refreshed automatically.
package google_tools
