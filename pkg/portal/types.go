package portal

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// FlexString is a string type that can be unmarshaled from either a string or a number.
// The portal sends leaderboard ranks as numbers, but ties may come back as "T".
type FlexString string

// UnmarshalJSON implements json.Unmarshaler for FlexString
func (f *FlexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexString(n.String())
		return nil
	}

	return fmt.Errorf("FlexString: cannot unmarshal %s", string(data))
}

// String returns the string value
func (f FlexString) String() string {
	return string(f)
}

// Region partitions teams by challenge open time and leaderboard
type Region string

const (
	RegionEMEA Region = "EMEA"
	RegionAMRS Region = "AMRS"
	RegionAPAC Region = "APAC"
)

// Regions lists every region in display order
var Regions = []Region{RegionEMEA, RegionAMRS, RegionAPAC}

// ParseRegion converts user input to a Region (case-insensitive)
func ParseRegion(s string) (Region, error) {
	r := Region(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Regions {
		if r == known {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown region %q (must be one of EMEA, AMRS, APAC)", s)
}

// Scope selects which leaderboard to fetch: global or a single region
type Scope string

// ScopeGlobal is the all-regions leaderboard
const ScopeGlobal Scope = "global"

// Scopes lists the leaderboard tabs in display order
var Scopes = []Scope{ScopeGlobal, Scope(RegionEMEA), Scope(RegionAMRS), Scope(RegionAPAC)}

// ParseScope accepts "global" or a region name (case-insensitive)
func ParseScope(s string) (Scope, error) {
	if strings.EqualFold(strings.TrimSpace(s), string(ScopeGlobal)) {
		return ScopeGlobal, nil
	}
	r, err := ParseRegion(s)
	if err != nil {
		return "", fmt.Errorf("unknown leaderboard scope %q (must be global, EMEA, AMRS or APAC)", s)
	}
	return Scope(r), nil
}

// Region returns the region of a regional scope. ok is false for global.
func (s Scope) Region() (Region, bool) {
	if s == ScopeGlobal || s == "" {
		return "", false
	}
	return Region(s), true
}

// Label is the human tab name for the scope
func (s Scope) Label() string {
	if s == ScopeGlobal || s == "" {
		return "Global"
	}
	return string(s)
}

// Credentials identify a team for create, login and start-timer calls
type Credentials struct {
	TeamName string `json:"team_name"`
	Password string `json:"password"`
	Region   Region `json:"region"`
}

// TeamProgress is the status payload returned by create and login
type TeamProgress struct {
	TeamName      string  `json:"team_name"`
	Region        Region  `json:"region"`
	CurrentStage  int     `json:"current_stage"`
	ChallengeOpen bool    `json:"challenge_open"`
	StartTime     string  `json:"start_time"`
	TotalTime     float64 `json:"total_time"`
	// Stage1PDFURL is set by the create endpoint's alternate response shape
	Stage1PDFURL string `json:"stage1_pdf_url,omitempty"`
}

// LeaderboardEntry is one ranked row of a leaderboard
type LeaderboardEntry struct {
	Rank            FlexString `json:"rank"`
	TeamName        string     `json:"team_name"`
	Region          Region     `json:"region"`
	StagesCompleted int        `json:"stages_completed"`
	TotalTime       FlexString `json:"total_time"`
}

// UnmarshalJSON accepts stages_unlocked as an alias for stages_completed
func (e *LeaderboardEntry) UnmarshalJSON(data []byte) error {
	type plain LeaderboardEntry
	var aux struct {
		plain
		StagesUnlocked *int `json:"stages_unlocked"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*e = LeaderboardEntry(aux.plain)
	if aux.StagesUnlocked != nil && e.StagesCompleted == 0 {
		e.StagesCompleted = *aux.StagesUnlocked
	}
	return nil
}

// FinalSubmission is the body of the final repository submission
type FinalSubmission struct {
	TeamName     string `json:"team_name"`
	Password     string `json:"password"`
	BitbucketURL string `json:"bitbucket_url"`
}

// SubmissionReceipt echoes the recorded repository URL
type SubmissionReceipt struct {
	BitbucketURL string `json:"bitbucket_url"`
}

// ChallengeValidation submits a stage answer URL for checking
type ChallengeValidation struct {
	TeamName     string `json:"team_name"`
	Password     string `json:"password"`
	SubmittedURL string `json:"submitted_url"`
}

// ValidationResult reports how many of the three answers were correct.
// PDFURL is only set when all three are correct and a new stage unlocked.
type ValidationResult struct {
	CorrectCount int    `json:"correct_count"`
	Message      string `json:"message"`
	PDFURL       string `json:"pdf_url,omitempty"`
}

// ChallengeAnswer is a parsed ERFT_stage{N}_p1-{v}_p2-{v}_p3-{v} answer URL
type ChallengeAnswer struct {
	Stage int
	P1    string
	P2    string
	P3    string
}

var challengeURLPattern = regexp.MustCompile(`^ERFT_stage(\d+)_p1-([^_]+)_p2-([^_]+)_p3-(.+)$`)

// ParseChallengeURL parses an answer URL. A full URL is accepted; only its
// last path segment is matched.
func ParseChallengeURL(raw string) (ChallengeAnswer, error) {
	s := strings.TrimSpace(raw)
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(s, "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}

	m := challengeURLPattern.FindStringSubmatch(s)
	if m == nil {
		return ChallengeAnswer{}, fmt.Errorf("invalid URL format %q, expected ERFT_stage{N}_p1-{val1}_p2-{val2}_p3-{val3}", raw)
	}

	var stage int
	if _, err := fmt.Sscanf(m[1], "%d", &stage); err != nil {
		return ChallengeAnswer{}, fmt.Errorf("invalid stage in %q: %w", raw, err)
	}
	return ChallengeAnswer{Stage: stage, P1: m[2], P2: m[3], P3: m[4]}, nil
}

// Path returns the canonical answer path segment
func (a ChallengeAnswer) Path() string {
	return fmt.Sprintf("ERFT_stage%d_p1-%s_p2-%s_p3-%s", a.Stage, a.P1, a.P2, a.P3)
}

// errorBody is the JSON shape of a rejected response. FastAPI sends detail as
// a string for HTTPException and as a list for request validation failures.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

// detailString extracts a string detail from an error body, or "" if absent
func detailString(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(eb.Detail, &s); err != nil {
		return ""
	}
	return s
}
