package domain

import "time"

// AccessToken is the membership-API OAuth credential pair. It is replaced
// wholesale on refresh, never mutated field by field.
type AccessToken struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired reports whether the access token is past its expiry at the given
// instant. The zero value is always expired, which forces a refresh on
// first use after a failed or absent load.
func (t AccessToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
