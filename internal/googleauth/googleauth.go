// Package googleauth builds client options for the Google APIs used by the
// mail source and the Sheets exporter.
package googleauth

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// Settings selects how a Google API client authenticates.
type Settings struct {
	// CredentialsFile is an OAuth client secret (with TokenFile) or a
	// service account key (without).
	CredentialsFile string
	// TokenFile holds an authorized user token.
	TokenFile string
	// Endpoint overrides the API base URL. With no credentials configured
	// the client is unauthenticated, which is what local fakes expect.
	Endpoint string
	Scopes   []string
}

// userToken accepts both the oauth2.Token layout and the authorized-user
// layout written by Google's Python and gcloud tooling.
type userToken struct {
	AccessToken  string    `json:"access_token"`
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	Expiry       time.Time `json:"expiry"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
	TokenURI     string    `json:"token_uri"`
}

// ClientOptions returns the options for s.
func ClientOptions(ctx context.Context, s Settings) ([]option.ClientOption, error) {
	var opts []option.ClientOption
	if s.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.Endpoint))
	}

	switch {
	case s.TokenFile != "":
		ts, err := userTokenSource(ctx, s)
		if err != nil {
			return nil, err
		}
		opts = append(opts, option.WithTokenSource(ts))
	case s.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(s.CredentialsFile), option.WithScopes(s.Scopes...))
	case s.Endpoint != "":
		opts = append(opts, option.WithoutAuthentication())
	default:
		opts = append(opts, option.WithScopes(s.Scopes...))
	}
	return opts, nil
}

func userTokenSource(ctx context.Context, s Settings) (oauth2.TokenSource, error) {
	raw, err := os.ReadFile(s.TokenFile)
	if err != nil {
		return nil, eris.Wrapf(err, "googleauth: read token file %s", s.TokenFile)
	}
	var ut userToken
	if err := json.Unmarshal(raw, &ut); err != nil {
		return nil, eris.Wrapf(err, "googleauth: parse token file %s", s.TokenFile)
	}

	cfg, err := oauthConfig(s, ut)
	if err != nil {
		return nil, err
	}

	tok := &oauth2.Token{
		AccessToken:  ut.AccessToken,
		RefreshToken: ut.RefreshToken,
		TokenType:    ut.TokenType,
		Expiry:       ut.Expiry,
	}
	if tok.AccessToken == "" {
		tok.AccessToken = ut.Token
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, eris.Errorf("googleauth: token file %s has neither access nor refresh token", s.TokenFile)
	}
	return cfg.TokenSource(ctx, tok), nil
}

func oauthConfig(s Settings, ut userToken) (*oauth2.Config, error) {
	if s.CredentialsFile != "" {
		secret, err := os.ReadFile(s.CredentialsFile)
		if err != nil {
			return nil, eris.Wrapf(err, "googleauth: read credentials file %s", s.CredentialsFile)
		}
		cfg, err := google.ConfigFromJSON(secret, s.Scopes...)
		return cfg, eris.Wrap(err, "googleauth: parse client secret")
	}
	if ut.ClientID == "" {
		return nil, eris.New("googleauth: token file has no client_id and no credentials_file is set")
	}
	cfg := &oauth2.Config{
		ClientID:     ut.ClientID,
		ClientSecret: ut.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       s.Scopes,
	}
	if ut.TokenURI != "" {
		cfg.Endpoint.TokenURL = ut.TokenURI
	}
	return cfg, nil
}
