package services

import (
	"context"
	stderrors "errors"

	"github.com/abrezinsky/hackportal/internal/browser"
	"github.com/abrezinsky/hackportal/internal/errors"
	"github.com/abrezinsky/hackportal/internal/logger"
	"github.com/abrezinsky/hackportal/internal/models"
	"github.com/abrezinsky/hackportal/internal/repository"
	"github.com/abrezinsky/hackportal/internal/stagegate"
	"github.com/abrezinsky/hackportal/internal/validation"
	"github.com/abrezinsky/hackportal/pkg/portal"
)

// SubmissionFailed is shown for a rejected final submission without a detail
const SubmissionFailed = "Submission failed"

// ValidationFailed is shown for a rejected answer URL without a detail
const ValidationFailed = "Validation failed"

// TeamServiceRepository defines the repository methods needed by TeamService
type TeamServiceRepository interface {
	repository.SessionRepository
	repository.DownloadRepository
}

// TeamService runs the team pages against the portal and keeps the signed-in
// session between runs
type TeamService struct {
	log       logger.Logger
	repo      TeamServiceRepository
	client    portal.Client
	opener    browser.Opener
	validator *validation.Validator
}

// NewTeamService creates a new TeamService
func NewTeamService(log logger.Logger, repo TeamServiceRepository, client portal.Client, opener browser.Opener) *TeamService {
	return &TeamService{
		log:       log,
		repo:      repo,
		client:    client,
		opener:    opener,
		validator: validation.New(),
	}
}

// submissionForm is the final submission form
type submissionForm struct {
	BitbucketURL string `json:"bitbucket_url" validate:"required,http_url"`
}

// Register creates a team and stores the session
func (s *TeamService) Register(ctx context.Context, form stagegate.Form) (stagegate.Outcome, error) {
	return s.submit(ctx, stagegate.RegisterPage, form)
}

// Login signs a team in and stores the session
func (s *TeamService) Login(ctx context.Context, form stagegate.Form) (stagegate.Outcome, error) {
	return s.submit(ctx, stagegate.LoginPage, form)
}

// Status re-fetches the active team's progress and derives a fresh presentation
func (s *TeamService) Status(ctx context.Context) (stagegate.Outcome, error) {
	session, err := s.activeSession(ctx)
	if err != nil {
		return stagegate.Outcome{}, err
	}
	return s.submit(ctx, stagegate.LoginPage, stagegate.Form{
		TeamName: session.TeamName,
		Password: session.Password,
		Region:   session.Region,
	})
}

func (s *TeamService) submit(ctx context.Context, page stagegate.PageConfig, form stagegate.Form) (stagegate.Outcome, error) {
	c := stagegate.New(s.client, s.opener, s.log, page)

	// a team signing in again keeps the timer state of its stored session
	if stored := s.findSession(ctx, form.TeamName); stored != nil {
		c.Resume(credentials(stored), progress(stored), stored.TimerStarted)
	}

	out := c.Submit(ctx, form)
	if !out.OK() {
		return out, nil
	}

	session := sessionFrom(c)
	if err := s.repo.SaveSession(ctx, session); err != nil {
		s.log.Error("Failed to save session", "team", session.TeamName, "error", err)
		return out, errors.Wrap(err, errors.ErrInternal, "failed to save session")
	}
	return out, nil
}

// findSession returns the stored session of a team, or nil
func (s *TeamService) findSession(ctx context.Context, teamName string) *models.Session {
	if teamName == "" {
		return nil
	}
	sessions, err := s.repo.ListSessions(ctx)
	if err != nil {
		s.log.Warn("Failed to list sessions", "error", err)
		return nil
	}
	for i := range sessions {
		if sessions[i].TeamName == teamName {
			return &sessions[i]
		}
	}
	return nil
}

// Current returns the active session and the presentation derived from its stored progress
func (s *TeamService) Current(ctx context.Context) (*models.Session, stagegate.Presentation, error) {
	session, err := s.activeSession(ctx)
	if err != nil {
		return nil, stagegate.Presentation{}, err
	}
	return session, stagegate.Derive(session.ChallengeOpen, session.CurrentStage, session.StartTime), nil
}

// Download runs the download action of the active session's presentation
func (s *TeamService) Download(ctx context.Context) (stagegate.DownloadResult, error) {
	session, err := s.activeSession(ctx)
	if err != nil {
		return stagegate.DownloadResult{}, err
	}

	c := stagegate.New(s.client, s.opener, s.log, stagegate.LoginPage)
	p := c.Resume(credentials(session), progress(session), session.TimerStarted)

	result, err := c.Download(ctx, p)
	if err != nil {
		return result, err
	}

	if result.TimerRequested && result.TimerErr == nil {
		if err := s.repo.MarkTimerStarted(ctx, session.ID); err != nil {
			s.log.Error("Failed to record timer start", "team", session.TeamName, "error", err)
		}
	}
	s.record(ctx, session.ID, result, p.PDFStage)
	return result, nil
}

// OpenDataset opens a challenge dataset for the active session
func (s *TeamService) OpenDataset(ctx context.Context, name string) (stagegate.DownloadResult, error) {
	c := stagegate.New(s.client, s.opener, s.log, stagegate.LoginPage)
	result, err := c.OpenDataset(ctx, name)
	if err != nil {
		return result, err
	}

	if session, err := s.repo.GetActiveSession(ctx); err == nil {
		s.record(ctx, session.ID, result, 0)
	}
	return result, nil
}

func (s *TeamService) record(ctx context.Context, sessionID string, result stagegate.DownloadResult, stage int) {
	d := &models.Download{
		SessionID:      sessionID,
		URL:            result.URL,
		Location:       result.Location,
		Stage:          stage,
		TimerRequested: result.TimerRequested,
	}
	if result.TimerErr != nil {
		d.TimerError = result.TimerErr.Error()
	}
	if err := s.repo.RecordDownload(ctx, d); err != nil {
		s.log.Warn("Failed to record download", "url", result.URL, "error", err)
	}
}

// Downloads lists the active session's opened files
func (s *TeamService) Downloads(ctx context.Context) ([]models.Download, error) {
	session, err := s.activeSession(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListDownloads(ctx, session.ID)
}

// Submit records the team's final repository URL. Empty credentials are
// taken from the active session.
func (s *TeamService) Submit(ctx context.Context, sub portal.FinalSubmission) (*portal.SubmissionReceipt, error) {
	if err := s.validator.Validate(submissionForm{BitbucketURL: sub.BitbucketURL}, "Please enter a valid BitBucket URL"); err != nil {
		return nil, err
	}
	if sub.TeamName == "" || sub.Password == "" {
		session, err := s.activeSession(ctx)
		if err != nil {
			return nil, err
		}
		sub.TeamName = session.TeamName
		sub.Password = session.Password
	}

	receipt, err := s.client.SubmitFinal(ctx, sub)
	if err != nil {
		s.log.Warn("Final submission failed", "team", sub.TeamName, "error", err)
		return nil, err
	}
	s.log.Info("Final submission recorded", "team", sub.TeamName, "url", receipt.BitbucketURL)
	return receipt, nil
}

// ValidateChallenge checks a stage answer URL for the active session. A full
// match refreshes the stored progress so the next download opens the new stage.
func (s *TeamService) ValidateChallenge(ctx context.Context, submittedURL string) (*portal.ValidationResult, error) {
	answer, err := portal.ParseChallengeURL(submittedURL)
	if err != nil {
		return nil, &InvalidChallengeURLError{URL: submittedURL, Err: err}
	}

	session, err := s.activeSession(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.client.ValidateChallenge(ctx, portal.ChallengeValidation{
		TeamName:     session.TeamName,
		Password:     session.Password,
		SubmittedURL: answer.Path(),
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Challenge answer checked", "team", session.TeamName, "stage", answer.Stage, "correct", result.CorrectCount)
	if result.PDFURL != "" {
		if _, err := s.Status(ctx); err != nil {
			s.log.Warn("Failed to refresh progress after unlock", "error", err)
		}
	}
	return result, nil
}

// Logout forgets the active session
func (s *TeamService) Logout(ctx context.Context) error {
	return s.repo.ClearActiveSession(ctx)
}

// Forget deletes the active session, including its stored password and downloads
func (s *TeamService) Forget(ctx context.Context) error {
	session, err := s.activeSession(ctx)
	if err != nil {
		return err
	}
	return s.repo.DeleteSession(ctx, session.ID)
}

func (s *TeamService) activeSession(ctx context.Context) (*models.Session, error) {
	session, err := s.repo.GetActiveSession(ctx)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to load session")
	}
	return session, nil
}

func credentials(s *models.Session) portal.Credentials {
	return portal.Credentials{
		TeamName: s.TeamName,
		Password: s.Password,
		Region:   portal.Region(s.Region),
	}
}

func progress(s *models.Session) *portal.TeamProgress {
	return &portal.TeamProgress{
		TeamName:      s.TeamName,
		Region:        portal.Region(s.Region),
		CurrentStage:  s.CurrentStage,
		ChallengeOpen: s.ChallengeOpen,
		StartTime:     s.StartTime,
		TotalTime:     s.TotalTime,
		Stage1PDFURL:  s.Stage1PDFURL,
	}
}

func sessionFrom(c *stagegate.Controller) *models.Session {
	creds, _ := c.Credentials()
	p := c.Progress()

	region := string(p.Region)
	if region == "" {
		region = string(creds.Region)
	}
	return &models.Session{
		TeamName:      creds.TeamName,
		Password:      creds.Password,
		Region:        region,
		CurrentStage:  p.CurrentStage,
		ChallengeOpen: p.ChallengeOpen,
		StartTime:     p.StartTime,
		TotalTime:     p.TotalTime,
		Stage1PDFURL:  p.Stage1PDFURL,
		TimerStarted:  c.TimerStarted(),
	}
}
