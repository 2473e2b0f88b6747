package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	ytapi "google.golang.org/api/youtube/v3"
)

// ErrNoToken is returned when no cached OAuth token exists yet.
var ErrNoToken = errors.New("no cached YouTube token; run the youtube-auth command first")

// LoadOAuthConfig reads an installed-app client secrets file downloaded from the Google Cloud
// console and requests the scope needed to rate videos and manage subscriptions.
func LoadOAuthConfig(clientSecretsFile string) (*oauth2.Config, error) {
	data, err := os.ReadFile(clientSecretsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read client secrets %s: %w", clientSecretsFile, err)
	}
	cfg, err := google.ConfigFromJSON(data, ytapi.YoutubeForceSslScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client secrets: %w", err)
	}
	return cfg, nil
}

// LoadToken reads a cached token. A missing file yields ErrNoToken.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	return &tok, nil
}

// SaveToken writes tok to path with owner-only permissions.
func SaveToken(path string, tok *oauth2.Token) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create token directory: %w", err)
		}
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// savingTokenSource persists refreshed tokens so the next run starts with a valid one.
type savingTokenSource struct {
	base oauth2.TokenSource
	path string

	mu   sync.Mutex
	last string
}

func newSavingTokenSource(base oauth2.TokenSource, path string, initial *oauth2.Token) *savingTokenSource {
	s := &savingTokenSource{base: base, path: path}
	if initial != nil {
		s.last = initial.AccessToken
	}
	return s
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		if err := SaveToken(s.path, tok); err != nil {
			log.Warn().Err(err).Msg("Failed to persist refreshed YouTube token")
		} else {
			log.Debug().Msg("Persisted refreshed YouTube token")
		}
		s.last = tok.AccessToken
	}
	return tok, nil
}

// TokenSource returns a token source backed by the cached token at tokenFile.
func TokenSource(ctx context.Context, cfg *oauth2.Config, tokenFile string) (oauth2.TokenSource, error) {
	tok, err := LoadToken(tokenFile)
	if err != nil {
		return nil, err
	}
	return newSavingTokenSource(cfg.TokenSource(ctx, tok), tokenFile, tok), nil
}

// AuthorizeInteractive runs the installed-app loopback flow: it prints the consent URL to out,
// waits for Google to redirect back to a local listener and stores the resulting token.
func AuthorizeInteractive(ctx context.Context, cfg *oauth2.Config, tokenFile string, out io.Writer) error {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to open loopback listener: %w", err)
	}
	defer listener.Close()

	flowCfg := *cfg
	flowCfg.RedirectURL = fmt.Sprintf("http://%s/", listener.Addr().String())
	state := uuid.New().String()

	codes := make(chan string, 1)
	failures := make(chan error, 1)
	server := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		if e := q.Get("error"); e != "" {
			http.Error(w, "authorization failed: "+e, http.StatusBadRequest)
			select {
			case failures <- fmt.Errorf("authorization failed: %s", e):
			default:
			}
			return
		}
		fmt.Fprintln(w, "Authorization complete. You can close this window.")
		select {
		case codes <- q.Get("code"):
		default:
		}
	})}
	go server.Serve(listener)
	defer server.Close()

	authURL := flowCfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Fprintf(out, "Open the following URL in a browser to authorize YouTube access:\n\n%s\n\n", authURL)

	var code string
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-failures:
		return err
	case code = <-codes:
	}

	tok, err := flowCfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	if err := SaveToken(tokenFile, tok); err != nil {
		return err
	}
	log.Info().Str("token_file", tokenFile).Msg("YouTube token stored")
	return nil
}
