package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/bootcamp-reports/internal/common"
	"github.com/ternarybob/bootcamp-reports/internal/httpclient"
	"github.com/ternarybob/bootcamp-reports/internal/interfaces"
	"github.com/ternarybob/bootcamp-reports/internal/models"
	"github.com/ternarybob/bootcamp-reports/internal/services/auth"
	"github.com/ternarybob/bootcamp-reports/internal/services/avatars"
	"github.com/ternarybob/bootcamp-reports/internal/services/reports"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger
	RunID  string

	baseURL string

	// Transport
	SiteClient   *httpclient.Client // Site requests; redirects are not followed
	AvatarClient *httpclient.Client // Avatar downloads; redirects to storage are followed

	// Services
	AuthService   interfaces.AuthService
	AvatarCache   interfaces.AvatarCache
	ReportService interfaces.ReportService
}

// Option configures the App.
type Option func(*App)

// WithBaseURL points every service at another origin
func WithBaseURL(baseURL string) Option {
	return func(a *App) {
		a.baseURL = baseURL
	}
}

// New creates the application from a validated configuration
func New(cfg *common.Config, logger arbor.ILogger, opts ...Option) (*App, error) {
	app := &App{
		Config:  cfg,
		Logger:  logger,
		RunID:   common.NewRunID(),
		baseURL: common.DefaultBaseURL,
	}

	for _, opt := range opts {
		opt(app)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	logger.Debug().
		Str("run_id", app.RunID).
		Str("base_url", app.baseURL).
		Str("avatar_dir", cfg.Avatars.Dir).
		Bool("avatar_strict", cfg.Avatars.Strict).
		Msg("Application initialization complete")

	return app, nil
}

func (a *App) initServices() error {
	timeout, err := a.Config.HTTP.TimeoutDuration()
	if err != nil {
		return err
	}
	interval, err := a.Config.HTTP.RequestIntervalDuration()
	if err != nil {
		return err
	}

	clientOpts := []httpclient.ClientOption{
		httpclient.WithTimeout(timeout),
		httpclient.WithUserAgent(a.Config.HTTP.UserAgent),
		httpclient.WithRequestInterval(interval),
		httpclient.WithLogger(a.Logger),
	}
	a.SiteClient = httpclient.NewClient(clientOpts...)
	a.AvatarClient = httpclient.NewClient(append(clientOpts, httpclient.WithFollowRedirects())...)

	a.AuthService = auth.NewService(a.SiteClient, a.baseURL, a.Logger)
	a.AvatarCache = avatars.NewCache(a.AvatarClient, a.Config.Avatars.Dir, a.Config.Avatars.Strict, a.Logger)

	extractor, err := reports.NewThreadListExtractor(a.baseURL, a.AvatarCache)
	if err != nil {
		return fmt.Errorf("failed to create report extractor: %w", err)
	}
	a.ReportService = reports.NewService(a.SiteClient, a.baseURL, extractor, a.Logger)

	return nil
}

// Run performs the login, session bootstrap and listing fetch in sequence.
// Credentials are checked before any request is made.
func (a *App) Run(ctx context.Context, filterWIP bool) (*models.LauncherOutput, error) {
	if err := a.Config.CheckCredentials(); err != nil {
		return nil, err
	}

	a.Logger.Info().
		Str("run_id", a.RunID).
		Bool("filter_wip", filterWIP).
		Msg("Fetching reports")

	token, err := a.AuthService.FetchBearerToken(ctx, a.Config.Credentials)
	if err != nil {
		return nil, err
	}

	session, err := a.AuthService.BootstrapSession(ctx, token)
	if err != nil {
		return nil, err
	}

	records, err := a.ReportService.FetchReports(ctx, session, filterWIP)
	if err != nil {
		return nil, err
	}

	a.Logger.Info().
		Str("run_id", a.RunID).
		Int("items", len(records)).
		Msg("Reports fetched")

	return models.NewLauncherOutput(records), nil
}

// WriteItems serializes the launcher document. HTML escaping is off so titles
// and URLs are printed verbatim.
func WriteItems(w io.Writer, output *models.LauncherOutput) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(output); err != nil {
		return fmt.Errorf("failed to write items: %w", err)
	}
	return nil
}
