package google_tools

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/teemow/meetslots/internal/server"
)

type staticTokens map[string]bool

func (s staticTokens) GetTokenForAccount(_ context.Context, account string) (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: account}, nil
}

func (s staticTokens) HasTokenForAccount(account string) bool {
	return s[account]
}

func newServerContext(t *testing.T) *server.ServerContext {
	t.Helper()
	sc, err := server.NewServerContext(context.Background(), staticTokens{"org": true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func request(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	return text.Text
}

func TestRegisterGoogleTools(t *testing.T) {
	s := mcpserver.NewMCPServer("test-server", "1.0.0", mcpserver.WithToolCapabilities(true))
	require.NoError(t, RegisterGoogleTools(s, newServerContext(t)))

	tools := s.ListTools()
	assert.Contains(t, tools, "google_get_auth_url")
	assert.Contains(t, tools, "google_save_auth_code")
}

func TestHandleGetAuthURL(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "client-id")
	sc := newServerContext(t)

	tests := []struct {
		name     string
		args     map[string]interface{}
		wantErr  bool
		contains string
	}{
		{name: "default account", args: map[string]interface{}{}, contains: `account "default"`},
		{name: "already authorized", args: map[string]interface{}{"account": "org"}, contains: "already authorized"},
		{name: "invalid account", args: map[string]interface{}{"account": "a/b"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := handleGetAuthURL(context.Background(), request(tt.args), sc)
			require.NoError(t, err)
			assert.Equal(t, tt.wantErr, result.IsError)
			if tt.contains != "" {
				assert.Contains(t, textOf(t, result), tt.contains)
			}
		})
	}
}

func TestHandleSaveAuthCode_Validation(t *testing.T) {
	sc := newServerContext(t)

	for _, args := range []map[string]interface{}{
		{},
		{"authCode": ""},
		{"account": "../x", "authCode": "code"},
	} {
		result, err := handleSaveAuthCode(context.Background(), request(args), sc)
		require.NoError(t, err)
		assert.True(t, result.IsError, "%v", args)
	}
}
