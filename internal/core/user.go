package core

import (
	"strings"
	"time"
)

// User is the single resident identity of a device. It is fabricated from
// whatever credentials were typed; nothing is ever verified against it.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// NameFromEmail returns the local part of an email address, used as the
// display name when logging in without registering.
func NameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

// Initials returns up to two upper-case initials for the avatar badge.
func (u User) Initials() string {
	fields := strings.Fields(u.Name)
	if len(fields) == 0 {
		fields = []string{u.Email}
	}
	var b strings.Builder
	n := 0
	for _, f := range fields {
		r := []rune(f)
		if len(r) == 0 {
			continue
		}
		b.WriteString(strings.ToUpper(string(r[0])))
		if n++; n == 2 {
			break
		}
	}
	return b.String()
}
