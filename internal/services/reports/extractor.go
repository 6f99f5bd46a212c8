package reports

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/bootcamp-reports/internal/common"
	"github.com/ternarybob/bootcamp-reports/internal/interfaces"
	"github.com/ternarybob/bootcamp-reports/internal/models"
)

// Listing markup selectors
const (
	itemSelector     = ".thread-list-item"
	titleSelector    = ".thread-list-item__title-link"
	wipSelector      = ".is-wip"
	authorSelector   = ".thread-list-item-meta .thread-header__author"
	datetimeSelector = ".thread-list-item-meta__datetime"
	iconSelector     = ".thread-list-item__author-icon"
)

// ThreadListExtractor reads report records out of the thread-list markup used
// by the reports page
type ThreadListExtractor struct {
	baseURL *url.URL
	avatars interfaces.AvatarCache
}

var _ interfaces.ReportExtractor = (*ThreadListExtractor)(nil)

// NewThreadListExtractor creates an extractor resolving links against baseURL
func NewThreadListExtractor(baseURL string, avatars interfaces.AvatarCache) (*ThreadListExtractor, error) {
	if baseURL == "" {
		baseURL = common.DefaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	return &ThreadListExtractor{baseURL: parsed, avatars: avatars}, nil
}

// ItemSelector returns the selector matching one report row
func (e *ThreadListExtractor) ItemSelector() string {
	return itemSelector
}

// Extract builds a record from one list item and makes sure the author's avatar is cached
func (e *ThreadListExtractor) Extract(ctx context.Context, item *goquery.Selection) (*models.ReportRecord, error) {
	titleLink := item.Find(titleSelector).First()
	if titleLink.Length() == 0 {
		return nil, fmt.Errorf("report item has no title link")
	}

	href, _ := titleLink.Attr("href")
	reportURL, err := common.ResolveURL(e.baseURL, href)
	if err != nil {
		return nil, fmt.Errorf("report link: %w", err)
	}

	isWIP := item.Find(wipSelector).Length() > 0
	title := strings.TrimSpace(titleLink.Text())
	if isWIP {
		title = models.WIPMarker + title
	}

	username := strings.TrimSpace(item.Find(authorSelector).First().Text())
	datetime := strings.TrimSpace(item.Find(datetimeSelector).First().Text())

	iconURL := ""
	if src, ok := item.Find(iconSelector).First().Attr("src"); ok && strings.TrimSpace(src) != "" {
		if resolved, err := common.ResolveURL(e.baseURL, src); err == nil {
			iconURL = resolved
		}
	}

	iconPath, err := e.avatars.EnsureAvatar(ctx, username, iconURL)
	if err != nil {
		return nil, err
	}

	return &models.ReportRecord{
		Title:    title,
		Subtitle: username + " " + datetime,
		URL:      reportURL,
		IsWIP:    isWIP,
		IconPath: iconPath,
	}, nil
}
