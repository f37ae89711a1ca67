package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// GitHubClient exchanges an OAuth authorization code for a verified profile.
// The API base URL is configurable so tests can point it at a fake server.
type GitHubClient struct {
	oauth  *oauth2.Config
	apiURL string
}

func NewGitHubClient(clientID, clientSecret string) *GitHubClient {
	return &GitHubClient{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     github.Endpoint,
			Scopes:       []string{"read:user", "user:email"},
		},
		apiURL: "https://api.github.com",
	}
}

type githubProfile struct {
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email   string `json:"email"`
	Primary bool   `json:"primary"`
}

// Exchange trades the authorization code for an access token and fetches the
// account profile. Accounts without a public email fall back to the email
// list, preferring the primary address.
func (g *GitHubClient) Exchange(ctx context.Context, code string) (*ProviderIdentity, error) {
	ctx, cancel := context.WithTimeout(ctx, providerTimeout)
	defer cancel()

	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, ErrInvalidAssertion
	}

	client := g.oauth.Client(ctx, token)

	var profile githubProfile
	if err := g.getJSON(ctx, client, "/user", &profile); err != nil {
		return nil, ErrProviderUnavailable
	}

	email := profile.Email
	if email == "" {
		var emails []githubEmail
		if err := g.getJSON(ctx, client, "/user/emails", &emails); err == nil {
			for _, e := range emails {
				if e.Primary {
					email = e.Email
					break
				}
			}
			if email == "" && len(emails) > 0 {
				email = emails[0].Email
			}
		}
	}
	if email == "" {
		return nil, ErrMissingEmail
	}

	name := profile.Name
	if name == "" {
		name = profile.Login
	}

	return &ProviderIdentity{
		Email:      email,
		Name:       name,
		Username:   profile.Login,
		PictureURL: profile.AvatarURL,
	}, nil
}

func (g *GitHubClient) getJSON(ctx context.Context, client *http.Client, path string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github api returned %d for %s", resp.StatusCode, path)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}
