package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/bootcamp-reports/internal/common"
	"github.com/ternarybob/bootcamp-reports/internal/httpclient"
	"github.com/ternarybob/bootcamp-reports/internal/interfaces"
	"github.com/ternarybob/bootcamp-reports/internal/models"
)

// AuthenticationError is returned when the site rejects the credentials or the
// bearer token. It is fatal to the run.
type AuthenticationError struct {
	Step       string // "login" or "session"
	StatusCode int
	Reason     string
}

func (e *AuthenticationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("authentication failed at %s step: %s (status %d)", e.Step, e.Reason, e.StatusCode)
	}
	return fmt.Sprintf("authentication failed at %s step: %s", e.Step, e.Reason)
}

// Service runs the two-step login against the bootcamp site
type Service struct {
	baseURL string
	client  interfaces.HTTPExecutor
	logger  arbor.ILogger
}

var _ interfaces.AuthService = (*Service)(nil)

// NewService creates a new authentication service. An empty baseURL selects common.DefaultBaseURL.
func NewService(client interfaces.HTTPExecutor, baseURL string, logger arbor.ILogger) *Service {
	if baseURL == "" {
		baseURL = common.DefaultBaseURL
	}
	return &Service{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger,
	}
}

type loginRequest struct {
	LoginName string `json:"login_name"`
	Password  string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// FetchBearerToken posts the credentials to the login endpoint and returns the token field
func (s *Service) FetchBearerToken(ctx context.Context, credentials models.Credentials) (string, error) {
	payload, err := json.Marshal(loginRequest{
		LoginName: credentials.LoginName,
		Password:  credentials.Password,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode login request: %w", err)
	}

	resp, err := s.client.Execute(ctx, &httpclient.Request{
		Method:  http.MethodPost,
		URL:     common.JoinPath(s.baseURL, common.SessionPath),
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    payload,
	})
	if err != nil {
		return "", fmt.Errorf("login request failed: %w", err)
	}

	if !resp.IsSuccess() {
		return "", &AuthenticationError{Step: "login", StatusCode: resp.StatusCode, Reason: "login rejected"}
	}

	var body loginResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return "", &AuthenticationError{Step: "login", StatusCode: resp.StatusCode, Reason: "malformed login response"}
	}
	if body.Token == "" {
		return "", &AuthenticationError{Step: "login", StatusCode: resp.StatusCode, Reason: "token missing from login response"}
	}

	s.logger.Debug().Str("login_name", credentials.LoginName).Msg("Bearer token obtained")

	return body.Token, nil
}

// BootstrapSession loads the site root with the bearer token and collects the
// CSRF token and every cookie the server sets
func (s *Service) BootstrapSession(ctx context.Context, bearerToken string) (*models.SessionContext, error) {
	resp, err := s.client.Execute(ctx, &httpclient.Request{
		Method:  http.MethodGet,
		URL:     common.JoinPath(s.baseURL, common.RootPath),
		Headers: map[string]string{"Authorization": bearerToken},
	})
	if err != nil {
		return nil, fmt.Errorf("session request failed: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &AuthenticationError{Step: "session", StatusCode: resp.StatusCode, Reason: "bearer token rejected"}
	}

	session := &models.SessionContext{
		CSRFToken: ExtractCSRFToken(string(resp.Body)),
		Cookies:   ParseSetCookies(resp.Header.Values("Set-Cookie")),
	}

	if session.CSRFToken == "" {
		s.logger.Warn().Msg("CSRF token not found in root page")
	}
	if len(session.Cookies) == 0 {
		s.logger.Warn().Int("status", resp.StatusCode).Msg("No cookies set by root page")
	}

	s.logger.Debug().
		Int("cookies", len(session.Cookies)).
		Bool("csrf_token", session.CSRFToken != "").
		Msg("Session bootstrapped")

	return session, nil
}

// ExtractCSRFToken reads the content attribute of the csrf-token meta tag.
// Missing tags and unparsable markup yield "".
func ExtractCSRFToken(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	content, exists := doc.Find(`meta[name="csrf-token"]`).First().Attr("content")
	if !exists {
		return ""
	}
	return strings.TrimSpace(content)
}

// ParseSetCookies builds the cookie map from Set-Cookie header values. Each value
// is cut at its first ";" and then at its first "="; later names overwrite
// earlier ones and values without a name are skipped.
func ParseSetCookies(values []string) map[string]string {
	cookies := make(map[string]string, len(values))

	for _, value := range values {
		pair, _, _ := strings.Cut(value, ";")
		name, cookieValue, found := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !found || name == "" {
			continue
		}
		cookies[name] = strings.TrimSpace(cookieValue)
	}

	return cookies
}
