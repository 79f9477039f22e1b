package domain

// MemberRecord is a contact returned by the membership directory. It is
// read-only to this system; only Active-status records are ever handed out
// by the directory client.
type MemberRecord struct {
	ID          int64
	DisplayName string
	Email       string
	Status      string
}

// Complete reports whether every field needed to address a verification
// email is populated. Upstream records are not trusted to be well-formed.
func (m *MemberRecord) Complete() bool {
	return m != nil && m.ID != 0 && m.DisplayName != "" && m.Email != ""
}
