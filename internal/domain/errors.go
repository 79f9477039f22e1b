package domain

import "errors"

var (
	// ErrIncompleteMember is returned when a directory record is missing a
	// field required to email the member. Treated as fail-closed: no email
	// is dispatched.
	ErrIncompleteMember = errors.New("member record is missing required fields")
)
