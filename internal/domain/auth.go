package domain

import "time"

// IssuedToken is an encoded token and its expiry as handed to clients.
type IssuedToken struct {
	Token   string
	Expires time.Time
}

// Session is the result of a login or refresh. Refresh is nil when a
// refresh call did not rotate the refresh token.
type Session struct {
	User    *User
	Access  IssuedToken
	Refresh *IssuedToken
}
