package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeGitHub simulates the token exchange plus the user and emails endpoints.
func fakeGitHub(t *testing.T, profile string, emails string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"gho_test","token_type":"bearer"}`))
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(profile))
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		if emails == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(emails))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newFakeGitHubClient(srv *httptest.Server) *GitHubClient {
	return &GitHubClient{
		oauth: &oauth2.Config{
			ClientID:     "test-client",
			ClientSecret: "test-secret",
			Endpoint: oauth2.Endpoint{
				AuthURL:  srv.URL + "/authorize",
				TokenURL: srv.URL + "/token",
			},
		},
		apiURL: srv.URL,
	}
}

func TestGitHubExchange_PublicEmail(t *testing.T) {
	srv := fakeGitHub(t,
		`{"login":"octocat","name":"Mona Lisa","email":"mona@example.com","avatar_url":"https://example.com/a.png"}`,
		"")
	client := newFakeGitHubClient(srv)

	identity, err := client.Exchange(context.Background(), "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "mona@example.com", identity.Email)
	assert.Equal(t, "Mona Lisa", identity.Name)
	assert.Equal(t, "octocat", identity.Username)
	assert.Equal(t, "https://example.com/a.png", identity.PictureURL)
}

func TestGitHubExchange_PrimaryEmailFallback(t *testing.T) {
	srv := fakeGitHub(t,
		`{"login":"octocat","name":""}`,
		`[{"email":"secondary@example.com","primary":false},{"email":"primary@example.com","primary":true}]`)
	client := newFakeGitHubClient(srv)

	identity, err := client.Exchange(context.Background(), "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "primary@example.com", identity.Email)
	assert.Equal(t, "octocat", identity.Name, "login stands in for a missing display name")
}

func TestGitHubExchange_FirstEmailFallback(t *testing.T) {
	srv := fakeGitHub(t,
		`{"login":"octocat"}`,
		`[{"email":"only@example.com","primary":false}]`)
	client := newFakeGitHubClient(srv)

	identity, err := client.Exchange(context.Background(), "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "only@example.com", identity.Email)
}

func TestGitHubExchange_NoEmail(t *testing.T) {
	srv := fakeGitHub(t, `{"login":"octocat"}`, "")
	client := newFakeGitHubClient(srv)

	_, err := client.Exchange(context.Background(), "auth-code")
	assert.ErrorIs(t, err, ErrMissingEmail)
}

func TestGitHubExchange_BadCode(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := newFakeGitHubClient(srv)

	_, err := client.Exchange(context.Background(), "bad-code")
	assert.ErrorIs(t, err, ErrInvalidAssertion)
}
