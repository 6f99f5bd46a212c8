package models

import (
	"sort"
	"strings"
)

// Placeholder values shipped in the sample configuration. Credentials still set to
// these have not been configured by the user.
const (
	PlaceholderLoginName = "username"
	PlaceholderPassword  = "password"
)

// Credentials holds the login name and password exchanged for a bearer token
type Credentials struct {
	LoginName string `toml:"login_name" json:"login_name"`
	Password  string `toml:"password" json:"password"`
}

// IsPlaceholder reports whether the credentials are missing or still the sample values
func (c Credentials) IsPlaceholder() bool {
	if c.LoginName == "" || c.Password == "" {
		return true
	}
	return c.LoginName == PlaceholderLoginName && c.Password == PlaceholderPassword
}

// SessionContext is the identity derived from an authenticated page load.
// Cookies is the only credential sent on the listing request; CSRFToken is
// carried for callers that need it and may be empty.
type SessionContext struct {
	CSRFToken string            `json:"csrf_token"`
	Cookies   map[string]string `json:"cookies"`
}

// CookieHeader joins the cookie map as name=value pairs separated by ";".
// Names are sorted so the header is stable between runs.
func (s *SessionContext) CookieHeader() string {
	if s == nil || len(s.Cookies) == 0 {
		return ""
	}

	names := make([]string, 0, len(s.Cookies))
	for name := range s.Cookies {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+s.Cookies[name])
	}
	return strings.Join(pairs, ";")
}
