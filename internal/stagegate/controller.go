package stagegate

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/abrezinsky/hackportal/internal/browser"
	"github.com/abrezinsky/hackportal/internal/errors"
	"github.com/abrezinsky/hackportal/internal/logger"
	"github.com/abrezinsky/hackportal/internal/validation"
	"github.com/abrezinsky/hackportal/pkg/portal"
)

var (
	// ErrNoDownload is returned when the presentation has no download action
	ErrNoDownload = stderrors.New("no download available for this view")
	// ErrNoCredentials is returned when the timer must start but no team has signed in
	ErrNoCredentials = stderrors.New("no team credentials; register or log in first")
)

// TimerFailedNotice is shown when the timer request fails but the file still opened
const TimerFailedNotice = "Failed to start timer. Please try again."

// loginRegion is sent with login and start-timer calls when the form has no
// region; the backend requires the field but ignores it for those calls.
const loginRegion = portal.RegionEMEA

// Endpoint selects the team call a page's form issues
type Endpoint int

const (
	EndpointCreate Endpoint = iota
	EndpointLogin
)

// PageConfig describes one form page
type PageConfig struct {
	Name     string
	Endpoint Endpoint
	// RequireRegion makes region a required field
	RequireRegion bool
	// MissingFields is shown when a required field is empty
	MissingFields string
	// Greeting builds the success headline from the returned progress
	Greeting func(p *portal.TeamProgress) string
	// ShowProgress adds the "n/4 stages unlocked" line
	ShowProgress bool
	// Fallback is shown for a rejected response without a detail
	Fallback string
}

// RegisterPage creates a team
var RegisterPage = PageConfig{
	Name:          "register",
	Endpoint:      EndpointCreate,
	RequireRegion: true,
	MissingFields: "Please fill in all required fields (Team Name, Password, and Region)",
	Greeting: func(p *portal.TeamProgress) string {
		return fmt.Sprintf("Team %q registered successfully for %s!", p.TeamName, p.Region)
	},
	Fallback: "Failed to create team",
}

// LoginPage signs an existing team in
var LoginPage = PageConfig{
	Name:          "login",
	Endpoint:      EndpointLogin,
	MissingFields: "Please enter your Team Name and Password",
	Greeting: func(p *portal.TeamProgress) string {
		return fmt.Sprintf("Welcome back, %s!", p.TeamName)
	},
	ShowProgress: true,
	Fallback:     "Login failed. Please check your credentials.",
}

// Form is the team form shared by the register and login pages
type Form struct {
	TeamName string `json:"team_name"`
	Password string `json:"password"`
	Region   string `json:"region"`
}

type registerForm struct {
	TeamName string `json:"team_name" validate:"required,max=64"`
	Password string `json:"password" validate:"required"`
	Region   string `json:"region" validate:"required,oneof=EMEA AMRS APAC"`
}

type loginForm struct {
	TeamName string `json:"team_name" validate:"required"`
	Password string `json:"password" validate:"required"`
	Region   string `json:"region" validate:"omitempty,oneof=EMEA AMRS APAC"`
}

// Outcome is the result of a form submission
type Outcome struct {
	Page         string               `json:"page"`
	Presentation Presentation         `json:"presentation"`
	Progress     *portal.TeamProgress `json:"progress,omitempty"`
	Greeting     string               `json:"greeting,omitempty"`
	ShowProgress bool                 `json:"show_progress,omitempty"`
	Err          error                `json:"-"`
}

// OK reports whether the submission succeeded
func (o Outcome) OK() bool {
	return o.Err == nil && o.Presentation.Kind != Failed
}

// DownloadResult describes what a download action did
type DownloadResult struct {
	// URL is the file URL that was opened
	URL string `json:"url"`
	// Location is where the opener put the file (the URL or a local path)
	Location string `json:"location"`
	// TimerRequested is true when a start-timer call was issued
	TimerRequested bool `json:"timer_requested"`
	// TimerErr is the non-blocking start-timer failure, if any
	TimerErr error `json:"-"`
}

// Notice returns the non-blocking warning to show next to the download, or ""
func (r DownloadResult) Notice() string {
	if r.TimerErr == nil {
		return ""
	}
	return TimerFailedNotice
}

// Controller runs one form page: submit, derive, download
type Controller struct {
	client    portal.Client
	opener    browser.Opener
	validator *validation.Validator
	log       logger.Logger
	page      PageConfig

	mu           sync.Mutex
	creds        *portal.Credentials
	progress     *portal.TeamProgress
	presentation Presentation
	timerStarted bool
}

// New creates a Controller for a page
func New(client portal.Client, opener browser.Opener, log logger.Logger, page PageConfig) *Controller {
	return &Controller{
		client:       client,
		opener:       opener,
		validator:    validation.New(),
		log:          log,
		page:         page,
		presentation: FailedWith("not signed in"),
	}
}

// Page returns the controller's page configuration
func (c *Controller) Page() PageConfig {
	return c.page
}

// Submit validates the form, calls the page endpoint and derives the presentation
func (c *Controller) Submit(ctx context.Context, form Form) Outcome {
	if err := c.validate(form); err != nil {
		return c.fail(err, errors.UserMessage(err, c.page.MissingFields))
	}

	creds := portal.Credentials{
		TeamName: form.TeamName,
		Password: form.Password,
		Region:   portal.Region(form.Region),
	}
	if creds.Region == "" {
		creds.Region = loginRegion
	}

	var (
		progress *portal.TeamProgress
		err      error
	)
	switch c.page.Endpoint {
	case EndpointCreate:
		progress, err = c.client.CreateTeam(ctx, creds)
	default:
		progress, err = c.client.Login(ctx, creds)
	}
	if err != nil {
		c.log.Warn("Team request failed", "page", c.page.Name, "team", creds.TeamName, "error", err)
		return c.fail(err, errors.UserMessage(err, c.page.Fallback))
	}

	if progress.TeamName == "" {
		progress.TeamName = creds.TeamName
	}
	if c.page.Endpoint == EndpointCreate && progress.Stage1PDFURL != "" {
		progress.ChallengeOpen = true
	}

	p := Derive(progress.ChallengeOpen, progress.CurrentStage, progress.StartTime)

	c.mu.Lock()
	if c.creds == nil || c.creds.TeamName != creds.TeamName {
		c.timerStarted = false
	}
	c.creds = &creds
	c.progress = progress
	c.presentation = p
	c.mu.Unlock()

	c.log.Info("Team signed in", "page", c.page.Name, "team", progress.TeamName,
		"stage", progress.CurrentStage, "view", p.Kind.String())

	return Outcome{
		Page:         c.page.Name,
		Presentation: p,
		Progress:     progress,
		Greeting:     c.page.Greeting(progress),
		ShowProgress: c.page.ShowProgress,
	}
}

func (c *Controller) validate(form Form) error {
	if c.page.RequireRegion {
		return c.validator.Validate(registerForm(form), c.page.MissingFields)
	}
	return c.validator.Validate(loginForm(form), c.page.MissingFields)
}

func (c *Controller) fail(err error, msg string) Outcome {
	p := FailedWith(msg)
	c.mu.Lock()
	c.presentation = p
	c.mu.Unlock()
	return Outcome{Page: c.page.Name, Presentation: p, Err: err}
}

// Download runs the download action of p.
//
// The first download of an AwaitingFirstDownload view starts the timer and
// then opens the file whether or not the timer call succeeded. Every other
// download opens the file directly. The timer counts as started only after a
// successful call, so a failure is retried on the next download.
func (c *Controller) Download(ctx context.Context, p Presentation) (DownloadResult, error) {
	if !p.HasDownload() {
		return DownloadResult{}, ErrNoDownload
	}

	c.mu.Lock()
	creds := c.creds
	startTimer := p.StartsTimer() && !c.timerStarted
	fileURL := c.fileURL(p)
	c.mu.Unlock()

	var result DownloadResult
	if startTimer {
		if creds == nil {
			return DownloadResult{}, ErrNoCredentials
		}
		result.TimerRequested = true
		if err := c.client.StartTimer(ctx, *creds); err != nil {
			c.log.Warn("Failed to start timer, opening file anyway", "team", creds.TeamName, "error", err)
			result.TimerErr = err
		} else {
			c.mu.Lock()
			c.timerStarted = true
			c.mu.Unlock()
			c.log.Info("Timer started", "team", creds.TeamName)
		}
	}

	location, err := c.opener.Open(ctx, fileURL)
	if err != nil {
		return result, errors.Wrap(err, errors.ErrInternal, "failed to open "+fileURL)
	}
	result.URL = fileURL
	result.Location = location

	c.log.Debug("Stage material opened", "stage", p.PDFStage, "location", location)
	return result, nil
}

// fileURL returns the file for p. The create endpoint may name the stage 1
// PDF itself. Callers hold c.mu.
func (c *Controller) fileURL(p Presentation) string {
	if p.Kind == AwaitingFirstDownload && c.progress != nil && c.progress.Stage1PDFURL != "" {
		return c.client.ResolveURL(c.progress.Stage1PDFURL)
	}
	return c.client.PDFURL(p.PDFStage)
}

// DownloadCurrent runs the download action of the last derived presentation
func (c *Controller) DownloadCurrent(ctx context.Context) (DownloadResult, error) {
	return c.Download(ctx, c.Presentation())
}

// OpenDataset opens a challenge dataset. It never starts the timer.
func (c *Controller) OpenDataset(ctx context.Context, name string) (DownloadResult, error) {
	if name == "" {
		return DownloadResult{}, errors.Validation("dataset name is required")
	}
	fileURL := c.client.DatasetURL(name)
	location, err := c.opener.Open(ctx, fileURL)
	if err != nil {
		return DownloadResult{}, errors.Wrap(err, errors.ErrInternal, "failed to open "+fileURL)
	}
	return DownloadResult{URL: fileURL, Location: location}, nil
}

// Resume restores a previously signed-in session
func (c *Controller) Resume(creds portal.Credentials, progress *portal.TeamProgress, timerStarted bool) Presentation {
	p := Derive(progress.ChallengeOpen, progress.CurrentStage, progress.StartTime)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds = &creds
	c.progress = progress
	c.presentation = p
	c.timerStarted = timerStarted
	return p
}

// TimerStarted reports whether the timer was started in this session
func (c *Controller) TimerStarted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timerStarted
}

// Presentation returns the last derived presentation
func (c *Controller) Presentation() Presentation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.presentation
}

// Credentials returns the signed-in team's credentials
func (c *Controller) Credentials() (portal.Credentials, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.creds == nil {
		return portal.Credentials{}, false
	}
	return *c.creds, true
}

// Progress returns the last progress payload
func (c *Controller) Progress() *portal.TeamProgress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}
