// -----------------------------------------------------------------------
// Avatar Cache
// Downloads author avatars once and keeps them on disk as <username>.png
// -----------------------------------------------------------------------

package avatars

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/bootcamp-reports/internal/httpclient"
	"github.com/ternarybob/bootcamp-reports/internal/interfaces"
)

// FetchError is returned when an avatar could not be downloaded or written
type FetchError struct {
	Username   string
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("avatar for %s: HTTP %d from %s", e.Username, e.StatusCode, e.URL)
	}
	return fmt.Sprintf("avatar for %s: %v", e.Username, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Cache stores avatars in a flat directory keyed by username. Files are written
// at most once and never refreshed.
type Cache struct {
	dir    string
	strict bool
	client interfaces.HTTPExecutor
	logger arbor.ILogger
}

var _ interfaces.AvatarCache = (*Cache)(nil)

// NewCache creates a new avatar cache. In non-strict mode download failures are
// logged and the path is returned anyway so the caller can keep going.
func NewCache(client interfaces.HTTPExecutor, dir string, strict bool, logger arbor.ILogger) *Cache {
	if dir == "" {
		dir = "."
	}
	return &Cache{
		dir:    dir,
		strict: strict,
		client: client,
		logger: logger,
	}
}

var unsafeNameChars = strings.NewReplacer("/", "_", "\\", "_", "\x00", "_")

// PathFor returns the cache path for username. With the default directory the
// path has the form ./<username>.png.
func (c *Cache) PathFor(username string) string {
	name := unsafeNameChars.Replace(strings.TrimSpace(username))
	if name == "" || strings.Trim(name, ".") == "" {
		name = strings.Repeat("_", len(name)+1)
	}

	filename := name + ".png"
	if c.dir == "." {
		return "./" + filename
	}
	return filepath.Join(c.dir, filename)
}

// EnsureAvatar returns the local avatar path for username, downloading imageURL
// only when no file exists yet
func (c *Cache) EnsureAvatar(ctx context.Context, username, imageURL string) (string, error) {
	path := c.PathFor(username)

	if _, err := os.Stat(path); err == nil {
		c.logger.Debug().Str("username", username).Str("path", path).Msg("Avatar already cached")
		return path, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		c.logger.Warn().Err(err).Str("path", path).Msg("Failed to stat avatar, downloading again")
	}

	if err := c.download(ctx, username, imageURL, path); err != nil {
		if c.strict {
			return "", err
		}
		c.logger.Warn().Err(err).Str("username", username).Msg("Avatar unavailable, continuing without it")
		return path, nil
	}

	c.logger.Debug().Str("username", username).Str("path", path).Msg("Avatar downloaded")
	return path, nil
}

func (c *Cache) download(ctx context.Context, username, imageURL, path string) error {
	if imageURL == "" {
		return &FetchError{Username: username, Err: errors.New("no avatar URL in listing")}
	}

	resp, err := c.client.Execute(ctx, &httpclient.Request{
		Method: http.MethodGet,
		URL:    imageURL,
	})
	if err != nil {
		return &FetchError{Username: username, URL: imageURL, Err: err}
	}
	if !resp.IsSuccess() {
		return &FetchError{Username: username, URL: imageURL, StatusCode: resp.StatusCode}
	}

	if err := writeFileAtomic(path, resp.Body); err != nil {
		return &FetchError{Username: username, URL: imageURL, Err: err}
	}
	return nil
}

// writeFileAtomic writes data to a temp file in the target directory and renames
// it into place, so a concurrent run never sees a partial image
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".avatar-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
