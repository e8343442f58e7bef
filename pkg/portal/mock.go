package portal

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	apperrors "github.com/abrezinsky/hackportal/internal/errors"
)

// MockClient is an in-memory portal for tests and demo mode.
// It is safe for concurrent use since the leaderboard poller calls it from timer goroutines.
type MockClient struct {
	mu sync.Mutex

	baseURL       string
	teams         map[string]*mockTeam
	challengeOpen bool
	startTime     string
	leaderboard   []LeaderboardEntry
	answers       map[int][3]string
	submissions   []FinalSubmission

	createErr      error
	loginErr       error
	startTimerErr  error
	leaderboardErr error
	submitErr      error
	validateErr    error

	startTimerCalls  int
	leaderboardCalls int
	scopesRequested  []Scope
}

type mockTeam struct {
	password string
	progress TeamProgress
}

// MockOption configures the mock client
type MockOption func(*MockClient)

// WithTeam seeds a registered team
func WithTeam(creds Credentials, progress TeamProgress) MockOption {
	return func(m *MockClient) {
		if progress.TeamName == "" {
			progress.TeamName = creds.TeamName
		}
		if progress.Region == "" {
			progress.Region = creds.Region
		}
		m.teams[creds.TeamName] = &mockTeam{password: creds.Password, progress: progress}
	}
}

// WithChallengeOpen sets whether newly created teams see the challenge open
func WithChallengeOpen(open bool, startTime string) MockOption {
	return func(m *MockClient) {
		m.challengeOpen = open
		m.startTime = startTime
	}
}

// WithLeaderboard sets the global leaderboard in rank order
func WithLeaderboard(entries []LeaderboardEntry) MockOption {
	return func(m *MockClient) {
		m.leaderboard = entries
	}
}

// WithAnswers sets the accepted p1/p2/p3 values per stage for ValidateChallenge
func WithAnswers(answers map[int][3]string) MockOption {
	return func(m *MockClient) {
		m.answers = answers
	}
}

// WithCreateError sets an error to return from CreateTeam
func WithCreateError(err error) MockOption {
	return func(m *MockClient) {
		m.createErr = err
	}
}

// WithLoginError sets an error to return from Login
func WithLoginError(err error) MockOption {
	return func(m *MockClient) {
		m.loginErr = err
	}
}

// WithStartTimerError sets an error to return from StartTimer
func WithStartTimerError(err error) MockOption {
	return func(m *MockClient) {
		m.startTimerErr = err
	}
}

// WithLeaderboardError sets an error to return from Leaderboard
func WithLeaderboardError(err error) MockOption {
	return func(m *MockClient) {
		m.leaderboardErr = err
	}
}

// WithSubmitError sets an error to return from SubmitFinal
func WithSubmitError(err error) MockOption {
	return func(m *MockClient) {
		m.submitErr = err
	}
}

// WithValidateError sets an error to return from ValidateChallenge
func WithValidateError(err error) MockOption {
	return func(m *MockClient) {
		m.validateErr = err
	}
}

// WithBaseURL sets the base URL
func WithBaseURL(url string) MockOption {
	return func(m *MockClient) {
		m.baseURL = url
	}
}

// NewMockClient creates a new mock portal client
func NewMockClient(opts ...MockOption) *MockClient {
	m := &MockClient{
		baseURL:       "http://mock-portal.local",
		teams:         make(map[string]*mockTeam),
		challengeOpen: true,
		leaderboard:   DefaultMockLeaderboard(),
		answers:       DefaultMockAnswers(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// BaseURL returns the configured base URL
func (m *MockClient) BaseURL() string {
	return m.baseURL
}

// PDFURL returns the URL of a stage requirements PDF
func (m *MockClient) PDFURL(stage int) string {
	return fmt.Sprintf("%s/pdfs/stage%d.pdf", m.baseURL, stage)
}

// DatasetURL returns the URL of a challenge dataset CSV
func (m *MockClient) DatasetURL(name string) string {
	return fmt.Sprintf("%s/data/%s.csv", m.baseURL, name)
}

// ResolveURL turns a server-relative reference into an absolute URL
func (m *MockClient) ResolveURL(ref string) string {
	return resolveURL(m.baseURL, ref)
}

// CreateTeam registers a team, rejecting duplicates and unknown regions like the real API
func (m *MockClient) CreateTeam(ctx context.Context, creds Credentials) (*TeamProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return nil, m.createErr
	}
	if _, exists := m.teams[creds.TeamName]; exists {
		return nil, apperrors.Rejected(http.StatusBadRequest, "Team name already exists")
	}
	if _, err := ParseRegion(string(creds.Region)); err != nil {
		return nil, apperrors.Rejected(http.StatusBadRequest, "Region must be one of ['EMEA', 'AMRS', 'APAC']")
	}

	progress := TeamProgress{
		TeamName:      creds.TeamName,
		Region:        creds.Region,
		ChallengeOpen: m.challengeOpen,
		StartTime:     m.startTime,
	}
	m.teams[creds.TeamName] = &mockTeam{password: creds.Password, progress: progress}
	return &progress, nil
}

// Login returns the stored progress for matching credentials
func (m *MockClient) Login(ctx context.Context, creds Credentials) (*TeamProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loginErr != nil {
		return nil, m.loginErr
	}
	team, err := m.authenticate(creds.TeamName, creds.Password)
	if err != nil {
		return nil, err
	}
	progress := team.progress
	return &progress, nil
}

// StartTimer counts calls and checks credentials
func (m *MockClient) StartTimer(ctx context.Context, creds Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.startTimerCalls++
	if m.startTimerErr != nil {
		return m.startTimerErr
	}
	_, err := m.authenticate(creds.TeamName, creds.Password)
	return err
}

// Leaderboard returns the global board, or the region's entries re-ranked densely
func (m *MockClient) Leaderboard(ctx context.Context, scope Scope) ([]LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.leaderboardCalls++
	m.scopesRequested = append(m.scopesRequested, scope)
	if m.leaderboardErr != nil {
		return nil, m.leaderboardErr
	}

	region, regional := scope.Region()
	entries := make([]LeaderboardEntry, 0, len(m.leaderboard))
	for _, e := range m.leaderboard {
		if regional && e.Region != region {
			continue
		}
		if regional {
			e.Rank = FlexString(fmt.Sprintf("%d", len(entries)+1))
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// SubmitFinal records the submission
func (m *MockClient) SubmitFinal(ctx context.Context, sub FinalSubmission) (*SubmissionReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.submitErr != nil {
		return nil, m.submitErr
	}
	if _, err := m.authenticate(sub.TeamName, sub.Password); err != nil {
		return nil, err
	}
	m.submissions = append(m.submissions, sub)
	return &SubmissionReceipt{BitbucketURL: sub.BitbucketURL}, nil
}

// ValidateChallenge counts matching answers and unlocks the stage on a full match
func (m *MockClient) ValidateChallenge(ctx context.Context, v ChallengeValidation) (*ValidationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.validateErr != nil {
		return nil, m.validateErr
	}
	team, err := m.authenticate(v.TeamName, v.Password)
	if err != nil {
		return nil, err
	}
	answer, err := ParseChallengeURL(v.SubmittedURL)
	if err != nil {
		return nil, apperrors.Rejected(http.StatusBadRequest, "Invalid URL format. Expected: ERFT_stage{N}_p1-{val1}_p2-{val2}_p3-{val3}")
	}
	want, ok := m.answers[answer.Stage]
	if !ok {
		return nil, apperrors.Rejected(http.StatusNotFound, fmt.Sprintf("Challenge stage %d not found", answer.Stage))
	}

	correct := 0
	for i, got := range []string{answer.P1, answer.P2, answer.P3} {
		if got == want[i] {
			correct++
		}
	}

	if correct == 3 && team.progress.CurrentStage < answer.Stage {
		team.progress.CurrentStage = answer.Stage
		return &ValidationResult{
			CorrectCount: 3,
			Message:      "All correct! Stage unlocked.",
			PDFURL:       fmt.Sprintf("/pdfs/stage%d.pdf", answer.Stage),
		}, nil
	}
	return &ValidationResult{
		CorrectCount: correct,
		Message:      fmt.Sprintf("%d out of 3 values correct", correct),
	}, nil
}

// Health always succeeds
func (m *MockClient) Health(ctx context.Context) error {
	return nil
}

func (m *MockClient) authenticate(name, password string) (*mockTeam, error) {
	team, ok := m.teams[name]
	if !ok || team.password != password {
		return nil, apperrors.Rejected(http.StatusUnauthorized, "Invalid team credentials")
	}
	return team, nil
}

// StartTimerCalls returns how many times StartTimer was called (for testing)
func (m *MockClient) StartTimerCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startTimerCalls
}

// LeaderboardCalls returns how many times Leaderboard was called (for testing)
func (m *MockClient) LeaderboardCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leaderboardCalls
}

// ScopesRequested returns the scopes passed to Leaderboard in call order (for testing)
func (m *MockClient) ScopesRequested() []Scope {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Scope(nil), m.scopesRequested...)
}

// Submissions returns the recorded final submissions (for testing)
func (m *MockClient) Submissions() []FinalSubmission {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]FinalSubmission(nil), m.submissions...)
}

// SetProgress overwrites a seeded team's progress, e.g. to simulate a stage unlock
func (m *MockClient) SetProgress(teamName string, progress TeamProgress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if team, ok := m.teams[teamName]; ok {
		progress.TeamName = teamName
		team.progress = progress
	}
}

// SetLeaderboard replaces the global leaderboard
func (m *MockClient) SetLeaderboard(entries []LeaderboardEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaderboard = entries
}

// DefaultMockLeaderboard returns a sample global leaderboard across all regions
func DefaultMockLeaderboard() []LeaderboardEntry {
	return []LeaderboardEntry{
		{Rank: "1", TeamName: "Null Pointers", Region: RegionEMEA, StagesCompleted: 4, TotalTime: "03:12:45"},
		{Rank: "2", TeamName: "Byte Me", Region: RegionAPAC, StagesCompleted: 4, TotalTime: "03:40:02"},
		{Rank: "3", TeamName: "Stack Smashers", Region: RegionAMRS, StagesCompleted: 3, TotalTime: "02:05:31"},
		{Rank: "4", TeamName: "Race Conditions", Region: RegionEMEA, StagesCompleted: 3, TotalTime: "02:48:10"},
		{Rank: "5", TeamName: "Off By One", Region: RegionAMRS, StagesCompleted: 2, TotalTime: "01:22:09"},
		{Rank: "6", TeamName: "Segfault Society", Region: RegionAPAC, StagesCompleted: 1, TotalTime: "00:41:57"},
	}
}

// DefaultMockAnswers returns answers where stage N+1 is unlocked by stage N's values
func DefaultMockAnswers() map[int][3]string {
	return map[int][3]string{
		2: {"1", "2", "3"},
		3: {"4", "5", "6"},
		4: {"7", "8", "9"},
		5: {"10", "11", "12"},
	}
}

// Ensure MockClient implements Client
var _ Client = (*MockClient)(nil)
