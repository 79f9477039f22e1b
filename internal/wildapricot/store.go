package wildapricot

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/uniusa/verify-bot/internal/domain"
)

// TokenStore persists the OAuth credential pair across restarts.
type TokenStore interface {
	Load() (domain.AccessToken, error)
	Save(domain.AccessToken) error
}

// tokenFile is the on-disk schema. The key names and the epoch-millisecond
// expiration are a compatibility contract with existing side files.
type tokenFile struct {
	RefreshToken string `json:"refresh_token"`
	AccessToken  string `json:"token"`
	Expiration   int64  `json:"expiration"`
}

// FileStore reads and writes the token to a JSON side file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the token from disk. Absence or corruption is an error the
// caller is expected to log and continue from; the zero token forces a
// refresh on first use.
func (s *FileStore) Load() (domain.AccessToken, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return domain.AccessToken{}, fmt.Errorf("read token file: %w", err)
	}

	var f tokenFile
	if err := json.Unmarshal(data, &f); err != nil {
		return domain.AccessToken{}, fmt.Errorf("parse token file: %w", err)
	}

	return domain.AccessToken{
		AccessToken:  f.AccessToken,
		RefreshToken: f.RefreshToken,
		ExpiresAt:    time.UnixMilli(f.Expiration),
	}, nil
}

// Save writes the token to disk. The file holds a live credential, hence 0600.
func (s *FileStore) Save(t domain.AccessToken) error {
	data, err := json.Marshal(tokenFile{
		RefreshToken: t.RefreshToken,
		AccessToken:  t.AccessToken,
		Expiration:   t.ExpiresAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("encode token file: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}
