package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/bootcamp-reports/internal/common"
	"github.com/ternarybob/bootcamp-reports/internal/httpclient"
	"github.com/ternarybob/bootcamp-reports/internal/models"
)

const rootPageHTML = `<!DOCTYPE html>
<html>
<head>
<meta name="csrf-param" content="authenticity_token">
<meta name="csrf-token" content="Xk2pQ9vA7b/1+zZ==">
</head>
<body>dashboard</body>
</html>`

func newTestService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewService(httpclient.NewClient(), server.URL, arbor.NewNoOpLogger())
}

func TestFetchBearerToken_ReturnsTokenField(t *testing.T) {
	var gotBody map[string]string
	var gotContentType string

	service := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, common.SessionPath, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"token":"abc123"}`))
	})

	token, err := service.FetchBearerToken(context.Background(), models.Credentials{LoginName: "komagata", Password: "secret"})
	require.NoError(t, err)

	assert.Equal(t, "abc123", token)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, map[string]string{"login_name": "komagata", "password": "secret"}, gotBody)
}

func TestFetchBearerToken_ToleratesExtraFields(t *testing.T) {
	service := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user":{"id":1},"token":"eyJhbGciOi.J9","expires_in":3600}`))
	})

	token, err := service.FetchBearerToken(context.Background(), models.Credentials{LoginName: "a", Password: "b"})
	require.NoError(t, err)
	assert.Equal(t, "eyJhbGciOi.J9", token)
}

func TestFetchBearerToken_AuthenticationErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"invalid"}`},
		{"missing token", http.StatusOK, `{"error":"invalid"}`},
		{"empty token", http.StatusOK, `{"token":""}`},
		{"not json", http.StatusOK, `<html>maintenance</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := service.FetchBearerToken(context.Background(), models.Credentials{LoginName: "a", Password: "b"})

			var authErr *AuthenticationError
			require.True(t, errors.As(err, &authErr), "got %v", err)
			assert.Equal(t, "login", authErr.Step)
			assert.Equal(t, tt.status, authErr.StatusCode)
		})
	}
}

func TestFetchBearerToken_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	service := NewService(httpclient.NewClient(), baseURL, arbor.NewNoOpLogger())
	_, err := service.FetchBearerToken(context.Background(), models.Credentials{LoginName: "a", Password: "b"})

	var transportErr *httpclient.TransportError
	assert.True(t, errors.As(err, &transportErr))
}

func TestBootstrapSession_ExtractsCSRFAndCookies(t *testing.T) {
	var gotAuthorization string

	service := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, common.RootPath, r.URL.Path)
		gotAuthorization = r.Header.Get("Authorization")
		w.Header().Add("Set-Cookie", "a=1; Path=/")
		w.Header().Add("Set-Cookie", "b=2; HttpOnly")
		_, _ = w.Write([]byte(rootPageHTML))
	})

	session, err := service.BootstrapSession(context.Background(), "abc123")
	require.NoError(t, err)

	assert.Equal(t, "abc123", gotAuthorization)
	assert.Equal(t, "Xk2pQ9vA7b/1+zZ==", session.CSRFToken)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, session.Cookies)
}

func TestBootstrapSession_KeepsCookiesFromRedirect(t *testing.T) {
	service := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != common.RootPath {
			t.Errorf("redirect was followed to %s", r.URL.Path)
			return
		}
		w.Header().Add("Set-Cookie", "_bootcamp_session=s3ss; Path=/; HttpOnly")
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	})

	session, err := service.BootstrapSession(context.Background(), "abc123")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"_bootcamp_session": "s3ss"}, session.Cookies)
	assert.Equal(t, "", session.CSRFToken)
}

func TestBootstrapSession_MissingCSRFIsSoft(t *testing.T) {
	service := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Set-Cookie", "a=1; Path=/")
		_, _ = w.Write([]byte(`<html><head><title>no token</title></head></html>`))
	})

	session, err := service.BootstrapSession(context.Background(), "abc123")
	require.NoError(t, err)

	assert.Equal(t, "", session.CSRFToken)
	assert.Equal(t, map[string]string{"a": "1"}, session.Cookies)
}

func TestBootstrapSession_RejectedToken(t *testing.T) {
	service := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := service.BootstrapSession(context.Background(), "expired")

	var authErr *AuthenticationError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "session", authErr.Step)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
}

func TestParseSetCookies(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   map[string]string
	}{
		{
			name:   "attributes are dropped",
			values: []string{"a=1; Path=/", "b=2; HttpOnly"},
			want:   map[string]string{"a": "1", "b": "2"},
		},
		{
			name:   "later duplicate wins",
			values: []string{"a=1; Path=/", "a=3; Path=/"},
			want:   map[string]string{"a": "3"},
		},
		{
			name:   "value keeps text after first equals",
			values: []string{"remember_token=dG9r==; Secure"},
			want:   map[string]string{"remember_token": "dG9r=="},
		},
		{
			name:   "no attributes",
			values: []string{"plain=value"},
			want:   map[string]string{"plain": "value"},
		},
		{
			name:   "nameless values skipped",
			values: []string{"novalue; Path=/", "=orphan"},
			want:   map[string]string{},
		},
		{
			name:   "no headers",
			values: nil,
			want:   map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSetCookies(tt.values))
		})
	}
}

func TestExtractCSRFToken(t *testing.T) {
	assert.Equal(t, "Xk2pQ9vA7b/1+zZ==", ExtractCSRFToken(rootPageHTML))
	assert.Equal(t, "", ExtractCSRFToken(`<meta name="description" content="csrf-token">`))
	assert.Equal(t, "", ExtractCSRFToken(""))
}
