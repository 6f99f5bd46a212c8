package reports

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/bootcamp-reports/internal/common"
	"github.com/ternarybob/bootcamp-reports/internal/httpclient"
	"github.com/ternarybob/bootcamp-reports/internal/models"
	"github.com/ternarybob/bootcamp-reports/internal/services/avatars"
)

type listingSite struct {
	server        *httptest.Server
	gotCookie     string
	gotType       string
	avatarFetches int32
}

func newListingSite(t *testing.T, html string) *listingSite {
	t.Helper()
	site := &listingSite{}
	site.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == common.ReportsPath:
			site.gotCookie = r.Header.Get("Cookie")
			site.gotType = r.Header.Get("Content-Type")
			_, _ = w.Write([]byte(strings.ReplaceAll(html, "https://cdn.example.com", site.server.URL+"/avatars")))
		case strings.HasPrefix(r.URL.Path, "/avatars/"):
			atomic.AddInt32(&site.avatarFetches, 1)
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("png:" + r.URL.Path))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(site.server.Close)
	return site
}

func newTestService(t *testing.T, baseURL, avatarDir string) *Service {
	t.Helper()
	logger := arbor.NewNoOpLogger()
	client := httpclient.NewClient()

	cache := avatars.NewCache(client, avatarDir, true, logger)
	extractor, err := NewThreadListExtractor(baseURL, cache)
	require.NoError(t, err)

	return NewService(client, baseURL, extractor, logger)
}

func TestFetchReports_SendsCookieAndParses(t *testing.T) {
	site := newListingSite(t, loadFixture(t))
	dir := t.TempDir()
	service := newTestService(t, site.server.URL, dir)

	session := &models.SessionContext{
		CSRFToken: "unused",
		Cookies:   map[string]string{"_bootcamp_session": "s3ss", "remember": "1"},
	}

	records, err := service.FetchReports(context.Background(), session, false)
	require.NoError(t, err)

	assert.Equal(t, "_bootcamp_session=s3ss;remember=1", site.gotCookie)
	assert.Equal(t, "text/html", site.gotType)

	require.Len(t, records, 4)
	assert.Equal(t, site.server.URL+"/reports/101", records[0].URL)
	assert.Equal(t, filepath.Join(dir, "komagata.png"), records[0].IconPath)
	assert.Equal(t, "【WIP】JavaScriptの課題", records[1].Title)

	// komagata appears twice but is downloaded once.
	assert.Equal(t, int32(3), atomic.LoadInt32(&site.avatarFetches))
}

func TestFetchReports_FilterKeepsAvatarSideEffects(t *testing.T) {
	site := newListingSite(t, loadFixture(t))
	dir := t.TempDir()
	service := newTestService(t, site.server.URL, dir)

	records, err := service.FetchReports(context.Background(), &models.SessionContext{Cookies: map[string]string{"a": "1"}}, true)
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "Rubyの学習を進めました", records[0].Title)
	assert.Equal(t, "SQLの復習", records[1].Title)
	for _, r := range records {
		assert.False(t, r.IsWIP)
	}

	// machida only has a WIP report, which was dropped, but the avatar is still cached.
	data, err := os.ReadFile(filepath.Join(dir, "machida.png"))
	require.NoError(t, err)
	assert.Equal(t, "png:/avatars/machida.png", string(data))
}

func TestFetchReports_RejectedSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	}))
	t.Cleanup(server.Close)

	service := newTestService(t, server.URL, t.TempDir())

	_, err := service.FetchReports(context.Background(), &models.SessionContext{}, false)

	var listingErr *ListingError
	require.True(t, errors.As(err, &listingErr))
	assert.Equal(t, http.StatusFound, listingErr.StatusCode)
	assert.Equal(t, "/login", listingErr.Location)
}

func TestFetchReports_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	service := newTestService(t, baseURL, t.TempDir())

	_, err := service.FetchReports(context.Background(), &models.SessionContext{}, false)

	var transportErr *httpclient.TransportError
	assert.True(t, errors.As(err, &transportErr))
}
