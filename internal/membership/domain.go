// internal/membership/domain.go
package membership

import (
	"time"
)

// Member represents a library member.
type Member struct {
	ID             int64     `db:"id"`
	Name           string    `db:"name"`
	Email          string    `db:"email"`
	Phone          string    `db:"phone"`
	MembershipDate time.Time `db:"membership_date"`
}

// MemberInput holds the writable fields of a member; nil fields are left
// unchanged on update. A nil MembershipDate on create means today.
type MemberInput struct {
	Name           *string
	Email          *string
	Phone          *string
	MembershipDate *time.Time
}

func (in MemberInput) apply(m *Member) {
	if in.Name != nil {
		m.Name = *in.Name
	}
	if in.Email != nil {
		m.Email = *in.Email
	}
	if in.Phone != nil {
		m.Phone = *in.Phone
	}
	if in.MembershipDate != nil {
		m.MembershipDate = dateOf(*in.MembershipDate)
	}
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
