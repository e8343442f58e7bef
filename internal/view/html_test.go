package view

import (
	"bytes"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abrezinsky/hackportal/internal/leaderboard"
	"github.com/abrezinsky/hackportal/internal/stagegate"
	"github.com/abrezinsky/hackportal/pkg/portal"
	"github.com/abrezinsky/hackportal/web"
)

func newHTML(t *testing.T) *HTML {
	t.Helper()
	h, err := NewHTML(web.GetTemplatesFS())
	require.NoError(t, err)
	return h
}

func TestNewHTML_MissingTemplates(t *testing.T) {
	_, err := NewHTML(fstest.MapFS{})
	assert.Error(t, err)
}

func TestHTML_BoardPlaceholder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newHTML(t).Board(&buf, leaderboard.BuildBoard(portal.ScopeGlobal, nil, now)))

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "<tr"))
	assert.Contains(t, out, `class="placeholder"`)
	assert.Contains(t, out, leaderboard.Placeholder)
}

func TestHTML_BoardEscapesTeamNames(t *testing.T) {
	var buf bytes.Buffer
	b := leaderboard.BuildBoard(portal.ScopeGlobal, []portal.LeaderboardEntry{
		{Rank: "1", TeamName: "<script>x</script>", Region: portal.RegionAPAC, StagesCompleted: 1, TotalTime: "00:10:00"},
	}, now)
	require.NoError(t, newHTML(t).Board(&buf, b))

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "<tr"))
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, "1/5")
}

func TestHTML_TeamPanels(t *testing.T) {
	tests := []struct {
		name     string
		p        stagegate.Presentation
		contains []string
		excludes []string
	}{
		{
			name:     "not yet open",
			p:        stagegate.Derive(false, 0, "2026-03-10 12:00:00"),
			contains: []string{"Challenge not yet open in EMEA", "2026-03-10 12:00:00", "3 hours from now"},
			excludes: []string{`data-action="download"`},
		},
		{
			name:     "awaiting first download",
			p:        stagegate.Derive(true, 0, ""),
			contains: []string{"Download Stage 1 requirements", "timer will start"},
		},
		{
			name:     "in progress",
			p:        stagegate.Derive(true, 2, ""),
			contains: []string{"Download Stage 3 requirements", "Next answer to submit: stage 4"},
			excludes: []string{"timer"},
		},
		{
			name:     "all stages complete",
			p:        stagegate.Derive(true, 4, ""),
			contains: []string{"Stage 5 accessibility review", "hackportal submit"},
		},
		{
			name:     "failed",
			p:        stagegate.FailedWith("Invalid credentials"),
			contains: []string{`class="message error"`, "Invalid credentials"},
			excludes: []string{`data-action="download"`},
		},
	}

	h := newHTML(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			data := NewTeamData("Alpha", "EMEA", 2, 0, tt.p, now)
			require.NoError(t, h.Team(&buf, data))

			out := buf.String()
			assert.Contains(t, out, `data-kind="`+tt.p.Kind.String()+`"`)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestHTML_TeamNotSignedIn(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newHTML(t).Team(&buf, nil))
	assert.Contains(t, buf.String(), "No team signed in")
}

func TestHTML_Page(t *testing.T) {
	var buf bytes.Buffer
	err := newHTML(t).Page(&buf, PageData{
		Version: "v1.2.3",
		Scope:   portal.Scope(portal.RegionAMRS),
		Scopes:  portal.Scopes,
		Board:   leaderboard.BuildBoard(portal.Scope(portal.RegionAMRS), nil, now),
		Team:    NewTeamData("Alpha", "AMRS", 1, 3725, stagegate.Derive(true, 1, ""), now),
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "v1.2.3")
	assert.Contains(t, out, `class="tab active" data-scope="AMRS"`)
	assert.Contains(t, out, `class="tab" data-scope="global"`)
	assert.Contains(t, out, leaderboard.Placeholder)
	assert.Contains(t, out, "1:02:05")
	assert.Contains(t, out, "/static/js/dashboard.js")
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "0:00:00", formatSeconds(0))
	assert.Equal(t, "1:02:05", formatSeconds(3725))
	assert.Equal(t, "26:00:01", formatSeconds(93601.4))
}

func TestNewTeamData_CountdownOnlyWhenClosed(t *testing.T) {
	closed := NewTeamData("A", "EMEA", 0, 0, stagegate.Derive(false, 0, "2026-03-10 10:00:00"), now)
	assert.Equal(t, "1 hour from now", closed.Countdown)

	open := NewTeamData("A", "EMEA", 0, 0, stagegate.Derive(true, 0, "2026-03-10 10:00:00"), now)
	assert.Empty(t, open.Countdown)
}
