// Package leaderboard fetches ranked teams and keeps the view refreshed.
package leaderboard

import (
	"fmt"
	"time"

	"github.com/abrezinsky/hackportal/pkg/portal"
)

// Placeholder is the single row shown for an empty leaderboard
const Placeholder = "No teams have completed any stages yet."

// TotalStages is the denominator of the stages column
const TotalStages = 5

// Row is one rendered leaderboard row
type Row struct {
	Rank      string `json:"rank"`
	TeamName  string `json:"team_name"`
	Region    string `json:"region"`
	Stages    string `json:"stages"`
	TotalTime string `json:"total_time"`
	// Placeholder rows carry only the placeholder text in TeamName
	Placeholder bool `json:"placeholder,omitempty"`
}

// Board is a rendered leaderboard for one scope. It always has at least one row.
type Board struct {
	Scope     portal.Scope `json:"scope"`
	Label     string       `json:"label"`
	Rows      []Row        `json:"rows"`
	Teams     int          `json:"teams"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Empty reports whether the board holds only the placeholder row
func (b Board) Empty() bool {
	return b.Teams == 0
}

// BuildBoard renders entries in the order the portal returned them
func BuildBoard(scope portal.Scope, entries []portal.LeaderboardEntry, now time.Time) Board {
	b := Board{
		Scope:     scope,
		Label:     scope.Label(),
		Teams:     len(entries),
		UpdatedAt: now,
	}

	if len(entries) == 0 {
		b.Rows = []Row{{TeamName: Placeholder, Placeholder: true}}
		return b
	}

	b.Rows = make([]Row, 0, len(entries))
	for _, e := range entries {
		b.Rows = append(b.Rows, Row{
			Rank:      e.Rank.String(),
			TeamName:  e.TeamName,
			Region:    string(e.Region),
			Stages:    fmt.Sprintf("%d/%d", e.StagesCompleted, TotalStages),
			TotalTime: e.TotalTime.String(),
		})
	}
	return b
}
