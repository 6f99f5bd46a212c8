package common

// Site endpoints. The origin is fixed in production; services accept an
// override so tests can point them at a local server.
const (
	// DefaultBaseURL is the origin of the bootcamp site
	DefaultBaseURL = "https://bootcamp.fjord.jp"

	// SessionPath exchanges credentials for a bearer token
	SessionPath = "/api/session"

	// RootPath is loaded with the bearer token to obtain the session cookie and CSRF token
	RootPath = "/"

	// ReportsPath is the report listing
	ReportsPath = "/reports"
)
