package domain

import "time"

// LoginAttempt tracks failed logins per (ip, username) for lockout.
type LoginAttempt struct {
	IP            string
	Username      string
	FailCount     int
	LastAttemptAt time.Time
	LockedUntil   *time.Time
}

// Locked reports whether the record still blocks logins at now.
func (a *LoginAttempt) Locked(now time.Time) bool {
	return a != nil && a.LockedUntil != nil && a.LockedUntil.After(now)
}
