package outlook

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

// Scopes requested by the device code flow.
var Scopes = []string{"Calendars.Read", "OnlineMeetings.Read", "offline_access"}

// OAuthConfig returns the public-client config for tenant.
func OAuthConfig(clientID, tenant string) *oauth2.Config {
	if tenant == "" {
		tenant = "common"
	}
	return &oauth2.Config{
		ClientID: clientID,
		Scopes:   Scopes,
		Endpoint: microsoft.AzureADEndpoint(tenant),
	}
}

// Authenticate runs the device code flow, calls prompt with the code the user
// must enter, waits for approval and saves the token to tokenPath.
func Authenticate(ctx context.Context, cfg *oauth2.Config, tokenPath string, prompt func(*oauth2.DeviceAuthResponse)) error {
	if cfg.ClientID == "" {
		return fmt.Errorf("OUTLOOK_CLIENT_ID not set. Register an app in the Azure portal first")
	}

	auth, err := cfg.DeviceAuth(ctx)
	if err != nil {
		return fmt.Errorf("failed to start device code flow: %w", err)
	}
	prompt(auth)

	token, err := cfg.DeviceAccessToken(ctx, auth)
	if err != nil {
		return fmt.Errorf("failed to complete device code flow: %w", err)
	}
	return SaveToken(tokenPath, token)
}

// SaveToken saves a token to a file path.
func SaveToken(path string, token *oauth2.Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("unable to write token file: %w", err)
	}
	return nil
}

// LoadToken reads a token saved by SaveToken.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal(data, tok); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	return tok, nil
}

// savingTokenSource writes every newly issued token back to disk, so the
// rotated refresh token survives the process.
type savingTokenSource struct {
	src  oauth2.TokenSource
	path string

	mu   sync.Mutex
	last string
}

func newSavingTokenSource(src oauth2.TokenSource, path string, initial *oauth2.Token) *savingTokenSource {
	s := &savingTokenSource{src: src, path: path}
	if initial != nil {
		s.last = initial.AccessToken
	}
	return s
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		if err := SaveToken(s.path, tok); err != nil {
			return nil, err
		}
		s.last = tok.AccessToken
	}
	return tok, nil
}
