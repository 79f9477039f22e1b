package wildapricot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/uniusa/verify-bot/internal/domain"
	"github.com/uniusa/verify-bot/internal/metrics"
)

// DefaultAuthURL is the Wild Apricot OAuth token endpoint.
const DefaultAuthURL = "https://oauth.wildapricot.org/auth/token"

// TokenSource owns the process-wide access token: it loads the persisted
// pair at startup, hands out the current access token while it is valid,
// and exchanges the refresh token for a new pair once it expires.
// Concurrent expiries are collapsed into a single refresh call.
type TokenSource struct {
	authURL      string
	clientID     string
	clientSecret string
	store        TokenStore
	client       *http.Client
	logger       *slog.Logger

	mu    sync.Mutex
	token domain.AccessToken
	group singleflight.Group
}

// NewTokenSource loads the persisted token and returns a source ready for
// use. A failed load is logged, not fatal: the zero token is expired, so
// the first API call triggers a refresh, which surfaces any real problem.
func NewTokenSource(authURL, clientID, clientSecret string, store TokenStore, client *http.Client, logger *slog.Logger) *TokenSource {
	ts := &TokenSource{
		authURL:      authURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		store:        store,
		client:       client,
		logger:       logger.With("component", "token_source"),
	}

	tok, err := store.Load()
	if err != nil {
		ts.logger.Warn("load persisted token, starting without one", "error", err)
	} else {
		ts.token = tok
		ts.logger.Info("persisted token loaded", "expires_at", tok.ExpiresAt)
	}
	return ts
}

// Token returns a currently valid access token, refreshing first when the
// held one is expired.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	tok := ts.token
	ts.mu.Unlock()

	if !tok.Expired(time.Now()) {
		return tok.AccessToken, nil
	}

	v, err, _ := ts.group.Do("refresh", func() (any, error) {
		ts.mu.Lock()
		current := ts.token
		ts.mu.Unlock()

		// Another caller may have refreshed while we waited for the flight.
		if !current.Expired(time.Now()) {
			return current.AccessToken, nil
		}

		fresh, err := ts.refresh(ctx, current.RefreshToken)
		if err != nil {
			metrics.TokenRefreshesTotal.WithLabelValues("failure").Inc()
			return nil, err
		}
		metrics.TokenRefreshesTotal.WithLabelValues("success").Inc()

		ts.mu.Lock()
		ts.token = fresh
		ts.mu.Unlock()

		// The in-memory token stays authoritative even if persistence fails.
		if err := ts.store.Save(fresh); err != nil {
			ts.logger.Error("persist refreshed token", "error", err)
		}

		ts.logger.Info("token refreshed", "expires_at", fresh.ExpiresAt)
		return fresh.AccessToken, nil
	})
	if err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}
	return v.(string), nil
}

func (ts *TokenSource) refresh(ctx context.Context, refreshToken string) (domain.AccessToken, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.AccessToken{}, fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(ts.clientID, ts.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.client.Do(req)
	if err != nil {
		return domain.AccessToken{}, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return domain.AccessToken{}, fmt.Errorf("auth endpoint returned %d", resp.StatusCode)
	}

	var body struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.AccessToken{}, fmt.Errorf("decode response: %w", err)
	}

	return domain.AccessToken{
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(body.ExpiresIn) * time.Second),
	}, nil
}
