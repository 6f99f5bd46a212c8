package interfaces

import (
	"context"

	"github.com/ternarybob/bootcamp-reports/internal/httpclient"
	"github.com/ternarybob/bootcamp-reports/internal/models"
)

// HTTPExecutor issues a single request and returns the fully read response
type HTTPExecutor interface {
	Execute(ctx context.Context, request *httpclient.Request) (*httpclient.Response, error)
}

// AuthService performs the two-step login: credentials to bearer token, bearer
// token to session cookie and CSRF token
type AuthService interface {
	FetchBearerToken(ctx context.Context, credentials models.Credentials) (string, error)
	BootstrapSession(ctx context.Context, bearerToken string) (*models.SessionContext, error)
}
