package interfaces

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/bootcamp-reports/internal/models"
)

// ReportService fetches and parses the report listing for a session
type ReportService interface {
	FetchReports(ctx context.Context, session *models.SessionContext, filterWIP bool) ([]models.ReportRecord, error)
}

// ReportExtractor turns one listing item node into a record. All knowledge of
// the listing markup lives behind this interface.
type ReportExtractor interface {
	ItemSelector() string
	Extract(ctx context.Context, item *goquery.Selection) (*models.ReportRecord, error)
}

// AvatarCache returns the local path of a user's avatar, downloading it on first use
type AvatarCache interface {
	EnsureAvatar(ctx context.Context, username, imageURL string) (string, error)
}
