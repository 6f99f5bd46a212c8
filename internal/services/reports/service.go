package reports

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/bootcamp-reports/internal/common"
	"github.com/ternarybob/bootcamp-reports/internal/httpclient"
	"github.com/ternarybob/bootcamp-reports/internal/interfaces"
	"github.com/ternarybob/bootcamp-reports/internal/models"
)

// ListingError is returned when the listing page is not served, usually because
// the session cookie was not accepted and the site redirected to its login page
type ListingError struct {
	StatusCode int
	Location   string
}

func (e *ListingError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("report listing unavailable: status %d (redirect to %s)", e.StatusCode, e.Location)
	}
	return fmt.Sprintf("report listing unavailable: status %d", e.StatusCode)
}

// Service fetches the report listing with a session cookie
type Service struct {
	baseURL   string
	client    interfaces.HTTPExecutor
	extractor interfaces.ReportExtractor
	logger    arbor.ILogger
}

var _ interfaces.ReportService = (*Service)(nil)

// NewService creates a new report service. An empty baseURL selects common.DefaultBaseURL.
func NewService(client interfaces.HTTPExecutor, baseURL string, extractor interfaces.ReportExtractor, logger arbor.ILogger) *Service {
	if baseURL == "" {
		baseURL = common.DefaultBaseURL
	}
	return &Service{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    client,
		extractor: extractor,
		logger:    logger,
	}
}

// FetchReports requests the listing and parses every row. Avatars are cached for
// every row before WIP filtering is applied.
func (s *Service) FetchReports(ctx context.Context, session *models.SessionContext, filterWIP bool) ([]models.ReportRecord, error) {
	resp, err := s.client.Execute(ctx, &httpclient.Request{
		Method: http.MethodGet,
		URL:    common.JoinPath(s.baseURL, common.ReportsPath),
		Headers: map[string]string{
			"Content-Type": "text/html",
			"Cookie":       session.CookieHeader(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("listing request failed: %w", err)
	}

	if !resp.IsSuccess() {
		return nil, &ListingError{StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")}
	}

	records, err := ParseReportList(ctx, bytes.NewReader(resp.Body), s.extractor)
	if err != nil {
		return nil, fmt.Errorf("failed to parse report listing: %w", err)
	}

	total := len(records)
	if filterWIP {
		records = FilterWIP(records)
	}

	s.logger.Info().
		Int("total", total).
		Int("returned", len(records)).
		Bool("filter_wip", filterWIP).
		Msg("Report listing parsed")

	return records, nil
}
