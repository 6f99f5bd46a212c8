package reports

import (
	"context"
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/bootcamp-reports/internal/interfaces"
	"github.com/ternarybob/bootcamp-reports/internal/models"
)

// ParseReportList extracts one record per list item, in document order
func ParseReportList(ctx context.Context, html io.Reader, extractor interfaces.ReportExtractor) ([]models.ReportRecord, error) {
	doc, err := goquery.NewDocumentFromReader(html)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	items := doc.Find(extractor.ItemSelector())
	records := make([]models.ReportRecord, 0, items.Length())

	var extractErr error
	items.EachWithBreak(func(i int, item *goquery.Selection) bool {
		if err := ctx.Err(); err != nil {
			extractErr = err
			return false
		}

		record, err := extractor.Extract(ctx, item)
		if err != nil {
			extractErr = fmt.Errorf("item %d: %w", i, err)
			return false
		}
		records = append(records, *record)
		return true
	})
	if extractErr != nil {
		return nil, extractErr
	}

	return records, nil
}

// FilterWIP drops work-in-progress records, keeping the order of the rest
func FilterWIP(records []models.ReportRecord) []models.ReportRecord {
	kept := make([]models.ReportRecord, 0, len(records))
	for _, r := range records {
		if !r.IsWIP {
			kept = append(kept, r)
		}
	}
	return kept
}
