package view

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/abrezinsky/hackportal/internal/leaderboard"
	"github.com/abrezinsky/hackportal/internal/stagegate"
	"github.com/abrezinsky/hackportal/pkg/portal"
)

// Template names
const (
	pageTemplate         = "dashboard.html"
	presentationTemplate = "presentation"
	boardTemplate        = "board"
)

// TeamData feeds the team panel fragment
type TeamData struct {
	TeamName     string
	Region       string
	CurrentStage int
	TotalTime    float64
	Presentation stagegate.Presentation
	Countdown    string
}

// PageData feeds the dashboard page
type PageData struct {
	Version string
	Scope   portal.Scope
	Scopes  []portal.Scope
	Board   leaderboard.Board
	// Team is nil when nobody is signed in
	Team *TeamData
	// Share shows the QR code of the dashboard link
	Share bool
}

// HTML renders the dashboard page and its fragments
type HTML struct {
	tmpl *template.Template
}

// NewHTML parses the dashboard templates from fsys
func NewHTML(fsys fs.FS) (*HTML, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"isKind":   isKind,
		"duration": formatSeconds,
		"ago":      humanize.Time,
		"finalStage": func() int {
			return stagegate.FinalStage
		},
	}).ParseFS(fsys, "*.html", "fragments/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &HTML{tmpl: tmpl}, nil
}

// Page renders the full dashboard
func (h *HTML) Page(w io.Writer, data PageData) error {
	return h.tmpl.ExecuteTemplate(w, pageTemplate, data)
}

// Team renders the team panel fragment
func (h *HTML) Team(w io.Writer, data *TeamData) error {
	return h.tmpl.ExecuteTemplate(w, presentationTemplate, data)
}

// Board renders the leaderboard table body fragment
func (h *HTML) Board(w io.Writer, b leaderboard.Board) error {
	return h.tmpl.ExecuteTemplate(w, boardTemplate, b)
}

// NewTeamData builds the team panel data, filling the countdown for a
// challenge that has not opened yet
func NewTeamData(teamName, region string, stage int, totalTime float64, p stagegate.Presentation, now time.Time) *TeamData {
	d := &TeamData{
		TeamName:     teamName,
		Region:       region,
		CurrentStage: stage,
		TotalTime:    totalTime,
		Presentation: p,
	}
	if p.Kind == stagegate.NotYetOpen {
		d.Countdown = Countdown(p.StartTime, now)
	}
	return d
}

func isKind(p stagegate.Presentation, name string) bool {
	return p.Kind.String() == name
}

// formatSeconds renders a total time in seconds as h:mm:ss
func formatSeconds(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}
