package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/jakechorley/category-allocator/internal/config"
)

const (
	AuthPort     = 3000
	authTimeout  = 5 * time.Minute
	callbackPath = "/oauth/callback"
	tokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"
)

// ScopeSheets grants read/write access to spreadsheets, used by the Sheets record store
const ScopeSheets = "https://www.googleapis.com/auth/spreadsheets"

var requiredScopes = []string{ScopeSheets}

// GetOAuthConfig builds the installed-app OAuth2 config for the Sheets scope.
// Google's endpoints are used when the client file leaves them out.
func GetOAuthConfig(client *config.GoogleClient) (*oauth2.Config, error) {
	if client == nil || client.ClientID == "" {
		return nil, errors.New("oauth client has no client ID")
	}

	endpoint := google.Endpoint
	if client.AuthURI != "" {
		endpoint.AuthURL = client.AuthURI
	}
	if client.TokenURI != "" {
		endpoint.TokenURL = client.TokenURI
	}

	return &oauth2.Config{
		ClientID:     client.ClientID,
		ClientSecret: client.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       requiredScopes,
		// The installed-app flow redirects to our local callback server
		RedirectURL: fmt.Sprintf("http://localhost:%d%s", AuthPort, callbackPath),
	}, nil
}

// Authenticator obtains a Google token for one environment. A token saved on
// disk is reused while it is valid (or refreshable) and carries the required
// scopes; otherwise the browser consent flow runs.
type Authenticator struct {
	config       *oauth2.Config
	tokens       *TokenFile
	out          io.Writer
	httpClient   *http.Client
	tokenInfoURL string

	mu     sync.Mutex
	cached *oauth2.Token
}

// NewAuthenticator creates an authenticator storing tokens for env
func NewAuthenticator(oauthConfig *oauth2.Config, env string) (*Authenticator, error) {
	tokens, err := NewTokenFile(env)
	if err != nil {
		return nil, err
	}
	return &Authenticator{
		config:       oauthConfig,
		tokens:       tokens,
		out:          os.Stdout,
		httpClient:   http.DefaultClient,
		tokenInfoURL: tokenInfoURL,
	}, nil
}

// Token returns a token with the required scopes, running the consent flow if needed
func (a *Authenticator) Token(ctx context.Context) (*oauth2.Token, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cached != nil && a.cached.Valid() {
		return a.cached, nil
	}

	if token := a.savedToken(ctx); token != nil {
		a.cached = token
		return token, nil
	}

	fmt.Fprintln(a.out, "No valid token found - starting OAuth flow")
	token, err := a.runFlow(ctx)
	if err != nil {
		return nil, err
	}

	if err := a.tokens.Save(token); err != nil {
		fmt.Fprintf(a.out, "Warning: failed to save token to file: %v\n", err)
	}
	a.cached = token
	return token, nil
}

// TokenSource refreshes from token and writes every refreshed token back to disk
func (a *Authenticator) TokenSource(ctx context.Context, token *oauth2.Token) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(token, &savingTokenSource{
		base:   a.config.TokenSource(ctx, token),
		tokens: a.tokens,
		last:   token.AccessToken,
	})
}

// savedToken returns the token on disk if it is usable, refreshing it when
// expired. Unusable tokens are removed so the next run starts clean.
func (a *Authenticator) savedToken(ctx context.Context) *oauth2.Token {
	token, err := a.tokens.Load()
	if err != nil {
		fmt.Fprintf(a.out, "Warning: failed to load token from file: %v\n", err)
		return nil
	}
	if token == nil {
		return nil
	}

	if !token.Valid() {
		if token.RefreshToken == "" {
			return nil
		}
		refreshed, err := a.config.TokenSource(ctx, token).Token()
		if err != nil || refreshed.AccessToken == token.AccessToken {
			return nil
		}
		if err := a.tokens.Save(refreshed); err != nil {
			fmt.Fprintf(a.out, "Warning: failed to save refreshed token: %v\n", err)
		}
		fmt.Fprintln(a.out, "Token refreshed successfully")
		token = refreshed
	}

	if err := a.checkTokenScopes(ctx, token); err != nil {
		fmt.Fprintf(a.out, "Saved token cannot be used: %v\n", err)
		fmt.Fprintln(a.out, "Deleting it and starting a new OAuth flow...")
		a.tokens.Delete()
		return nil
	}
	return token
}

// checkTokenScopes asks Google's tokeninfo endpoint which scopes the token carries
func (a *Authenticator) checkTokenScopes(ctx context.Context, token *oauth2.Token) error {
	query := url.Values{"access_token": {token.AccessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.tokenInfoURL+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create tokeninfo request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call tokeninfo endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("tokeninfo request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenInfo struct {
		Scope string `json:"scope"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenInfo); err != nil {
		return fmt.Errorf("failed to decode tokeninfo response: %w", err)
	}

	if missing := missingScopes(tokenInfo.Scope); len(missing) > 0 {
		return fmt.Errorf("token is missing required scopes: %v", missing)
	}
	return nil
}

// missingScopes lists the required scopes absent from a space separated grant
func missingScopes(granted string) []string {
	grantedScopes := strings.Fields(granted)

	var missing []string
	for _, scope := range requiredScopes {
		if !slices.Contains(grantedScopes, scope) {
			missing = append(missing, scope)
		}
	}
	return missing
}

// runFlow prints the consent URL and exchanges the code delivered to the local callback
func (a *Authenticator) runFlow(ctx context.Context) (*oauth2.Token, error) {
	state := uuid.New().String()
	authURL := a.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
	fmt.Fprintf(a.out, "\nVisit this URL to authorize the application:\n%s\n\n", authURL)

	code, err := listenForAuthCallback(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("failed to get authorization code: %w", err)
	}

	token, err := a.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code for token: %w", err)
	}

	if err := a.checkTokenScopes(ctx, token); err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	return token, nil
}

// callbackHandler delivers the authorization code for the expected state
func callbackHandler(state string, codeChan chan<- string, errChan chan<- error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("state") != state {
			http.Error(w, "Authorization failed: state mismatch", http.StatusBadRequest)
			return
		}

		code := query.Get("code")
		if code == "" {
			select {
			case errChan <- fmt.Errorf("no authorization code received: %s", query.Get("error")):
			default:
			}
			http.Error(w, "Authorization failed", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html>
	<head><title>Authorization Successful</title></head>
	<body>
		<h1>Authorization successful!</h1>
		<p>You can close this window and return to the category allocator.</p>
	</body>
</html>`)

		select {
		case codeChan <- code:
		default:
		}
	}
}

// listenForAuthCallback serves the callback on localhost until a code arrives or the flow times out
func listenForAuthCallback(ctx context.Context, state string) (string, error) {
	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, callbackHandler(state, codeChan, errChan))
	server := &http.Server{
		Addr:              fmt.Sprintf("localhost:%d", AuthPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- fmt.Errorf("server error: %w", err):
			default:
			}
		}
	}()

	timeoutCtx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		server.Shutdown(shutdownCtx)
	}()

	select {
	case code := <-codeChan:
		return code, nil
	case err := <-errChan:
		return "", err
	case <-timeoutCtx.Done():
		return "", fmt.Errorf("authorization timeout after %v", authTimeout)
	}
}

// savingTokenSource persists each newly refreshed token
type savingTokenSource struct {
	base   oauth2.TokenSource
	tokens *TokenFile

	mu   sync.Mutex
	last string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token.AccessToken != s.last {
		s.last = token.AccessToken
		// A failed save only costs a refresh on the next run
		s.tokens.Save(token)
	}
	return token, nil
}
