package wildapricot_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/uniusa/verify-bot/internal/domain"
	"github.com/uniusa/verify-bot/internal/wildapricot"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// seedStore writes a token with the given expiry and returns the store.
func seedStore(t *testing.T, expiresAt time.Time) *wildapricot.FileStore {
	t.Helper()
	store := wildapricot.NewFileStore(filepath.Join(t.TempDir(), "config.json"))
	err := store.Save(domain.AccessToken{
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
		ExpiresAt:    expiresAt,
	})
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}
	return store
}

func newAuthServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)

		user, pass, ok := r.BasicAuth()
		if !ok || user != "client-id" || pass != "client-secret" {
			t.Errorf("basic auth = (%q, %q, %v), want client credentials", user, pass, ok)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "refresh_token" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.PostForm.Get("refresh_token"); got != "old-refresh" {
			t.Errorf("refresh_token = %q", got)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "new-access",
			"refresh_token": "new-refresh",
			"expires_in":    1800,
		})
	}))
}

func newSource(authURL string, store wildapricot.TokenStore) *wildapricot.TokenSource {
	return wildapricot.NewTokenSource(
		authURL, "client-id", "client-secret",
		store, &http.Client{Timeout: 5 * time.Second}, discardLogger(),
	)
}

func TestToken_Expired_RefreshesExactlyOnce(t *testing.T) {
	var hits atomic.Int64
	srv := newAuthServer(t, &hits)
	defer srv.Close()

	store := seedStore(t, time.Now().Add(-time.Hour))
	ts := newSource(srv.URL, store)

	for range 3 {
		token, err := ts.Token(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if token != "new-access" {
			t.Fatalf("token = %q, want refreshed token", token)
		}
	}

	if got := hits.Load(); got != 1 {
		t.Errorf("auth endpoint hit %d times, want exactly once", got)
	}
}

func TestToken_Valid_NoRefresh(t *testing.T) {
	var hits atomic.Int64
	srv := newAuthServer(t, &hits)
	defer srv.Close()

	store := seedStore(t, time.Now().Add(time.Hour))
	ts := newSource(srv.URL, store)

	token, err := ts.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "old-access" {
		t.Errorf("token = %q, want the still-valid token", token)
	}
	if got := hits.Load(); got != 0 {
		t.Errorf("auth endpoint hit %d times, want none", got)
	}
}

func TestToken_ConcurrentExpiry_SingleRefresh(t *testing.T) {
	var hits atomic.Int64
	srv := newAuthServer(t, &hits)
	defer srv.Close()

	store := seedStore(t, time.Now().Add(-time.Hour))
	ts := newSource(srv.URL, store)

	const callers = 20
	var wg sync.WaitGroup
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := ts.Token(context.Background())
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if token != "new-access" {
				t.Errorf("token = %q, want refreshed token", token)
			}
		}()
	}
	wg.Wait()

	if got := hits.Load(); got != 1 {
		t.Errorf("auth endpoint hit %d times, want a single refresh", got)
	}
}

func TestToken_RefreshFailure_Propagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := seedStore(t, time.Now().Add(-time.Hour))
	ts := newSource(srv.URL, store)

	if _, err := ts.Token(context.Background()); err == nil {
		t.Error("expected an error when the auth endpoint fails")
	}
}

func TestToken_PersistsRefreshedToken(t *testing.T) {
	var hits atomic.Int64
	srv := newAuthServer(t, &hits)
	defer srv.Close()

	store := seedStore(t, time.Now().Add(-time.Hour))
	ts := newSource(srv.URL, store)

	if _, err := ts.Token(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	saved, err := store.Load()
	if err != nil {
		t.Fatalf("load saved token: %v", err)
	}
	if saved.AccessToken != "new-access" || saved.RefreshToken != "new-refresh" {
		t.Errorf("saved token = %+v, want the refreshed pair", saved)
	}
	if !saved.ExpiresAt.After(time.Now()) {
		t.Errorf("saved expiry %v is not in the future", saved.ExpiresAt)
	}
}

type failingStore struct {
	wildapricot.TokenStore
	saveErr error
}

func (s *failingStore) Save(domain.AccessToken) error { return s.saveErr }

func TestToken_SaveFailure_TokenStillUsable(t *testing.T) {
	var hits atomic.Int64
	srv := newAuthServer(t, &hits)
	defer srv.Close()

	inner := seedStore(t, time.Now().Add(-time.Hour))
	store := &failingStore{TokenStore: inner, saveErr: context.DeadlineExceeded}
	ts := newSource(srv.URL, store)

	token, err := ts.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "new-access" {
		t.Errorf("token = %q, want refreshed token despite persistence failure", token)
	}
}

// An expired token is refreshed exactly once before the dependent
// directory call, which then carries the fresh bearer token.
func TestClient_ExpiredToken_RefreshedBeforeLookup(t *testing.T) {
	var authHits atomic.Int64
	authSrv := newAuthServer(t, &authHits)
	defer authSrv.Close()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer new-access" {
			t.Errorf("Authorization = %q, want the refreshed token", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"Contacts": []any{}})
	}))
	defer apiSrv.Close()

	store := seedStore(t, time.Now().Add(-time.Hour))
	ts := newSource(authSrv.URL, store)
	client := wildapricot.NewClient(
		apiSrv.URL, "12345", "https://discord.gg/test-invite",
		ts, &http.Client{Timeout: 5 * time.Second}, discardLogger(),
	)

	if _, err := client.FindActiveMember(context.Background(), "a@b.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := authHits.Load(); got != 1 {
		t.Errorf("auth endpoint hit %d times, want exactly one refresh", got)
	}
}

// A missing token file is tolerated at startup; the zero token forces a
// refresh on first use, which is where a real problem surfaces.
func TestNewTokenSource_MissingFile_RefreshesOnFirstUse(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "new-access",
			"refresh_token": "new-refresh",
			"expires_in":    1800,
		})
	}))
	defer srv.Close()

	store := wildapricot.NewFileStore(filepath.Join(t.TempDir(), "absent.json"))
	ts := newSource(srv.URL, store)

	token, err := ts.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "new-access" {
		t.Errorf("token = %q, want refreshed token", token)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("auth endpoint hit %d times, want once", got)
	}
}
