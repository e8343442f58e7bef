// Package view renders stage presentations, leaderboards and notices for the
// terminal and for the dashboard's HTML fragments.
package view

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/abrezinsky/hackportal/internal/leaderboard"
	"github.com/abrezinsky/hackportal/internal/stagegate"
	"github.com/abrezinsky/hackportal/pkg/portal"
)

// ANSI escape codes
const (
	Reset  = "\033[0m"
	Yellow = "\033[33m"
	Red    = "\033[31m"
	Blue   = "\033[34m"
	Green  = "\033[32m"
	Cyan   = "\033[36m"
	Bold   = "\033[1m"
)

// startTimeLayouts are the start_time formats the portal has been seen to send
var startTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Text renders for a terminal. Color disables ANSI codes when false.
type Text struct {
	Color bool
}

func (t Text) paint(code, s string) string {
	if !t.Color {
		return s
	}
	return code + s + Reset
}

// ParseStartTime parses the informational start time. ok is false for
// formats it does not recognize.
func ParseStartTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range startTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Countdown describes when the challenge opens relative to now, e.g.
// "3 hours from now". It returns "" when the start time can't be parsed.
func Countdown(startTime string, now time.Time) string {
	t, ok := ParseStartTime(startTime)
	if !ok {
		return ""
	}
	if !t.After(now) {
		return "any moment now"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// Outcome renders the result of a register or login submission
func (t Text) Outcome(out stagegate.Outcome, now time.Time) string {
	if !out.OK() {
		return t.Failure(out.Presentation.Message)
	}

	var b strings.Builder
	b.WriteString(t.paint(Green, "✅ "+out.Greeting))
	b.WriteString("\n\n")
	if out.ShowProgress && out.Progress != nil {
		fmt.Fprintf(&b, "📊 %s %d/%d stages unlocked\n\n",
			t.paint(Bold, "Your Progress:"), out.Progress.CurrentStage, stagegate.FinalStage-1)
	}

	region := ""
	if out.Progress != nil {
		region = string(out.Progress.Region)
	}
	b.WriteString(t.Presentation(out.Presentation, region, now))
	return b.String()
}

// Presentation renders what the team can do next
func (t Text) Presentation(p stagegate.Presentation, region string, now time.Time) string {
	var b strings.Builder
	switch p.Kind {
	case stagegate.NotYetOpen:
		where := ""
		if region != "" {
			where = " in " + region
		}
		fmt.Fprintf(&b, "⏰ %s\n\n", t.paint(Bold, "Challenge not yet open"+where))
		b.WriteString("The next challenge opens at:\n")
		fmt.Fprintf(&b, "  %s", t.paint(Cyan, p.StartTime))
		if c := Countdown(p.StartTime, now); c != "" {
			fmt.Fprintf(&b, " (%s)", c)
		}
		b.WriteString("\n\nCheck back after the start time to download the next stage PDF.\n")

	case stagegate.AwaitingFirstDownload:
		fmt.Fprintf(&b, "📄 %s\n", t.paint(Bold, "The challenge is now open!"))
		fmt.Fprintf(&b, "Download the Stage 1 PDF to begin: %s\n\n", t.paint(Cyan, "hackportal download"))
		fmt.Fprintf(&b, "%s\n", t.paint(Yellow, "⏱️  Your timer will start when you download the PDF"))

	case stagegate.InProgress:
		fmt.Fprintf(&b, "📄 Stage %d requirements are unlocked: %s\n", p.PDFStage, t.paint(Cyan, "hackportal download"))
		fmt.Fprintf(&b, "Next answer to submit: stage %d (%s)\n", p.NextSubmissionStage, t.paint(Cyan, "hackportal validate <url>"))

	case stagegate.AllStagesComplete:
		fmt.Fprintf(&b, "🎉 %s\n", t.paint(Bold, "All challenge stages are complete!"))
		fmt.Fprintf(&b, "Stage %d accessibility review: %s\n", p.PDFStage, t.paint(Cyan, "hackportal download"))
		if p.SubmissionLinkEnabled {
			fmt.Fprintf(&b, "Final submission is open: %s\n", t.paint(Cyan, "hackportal submit <bitbucket-url>"))
		}

	case stagegate.Failed:
		return t.Failure(p.Message)
	}
	return b.String()
}

// Failure renders an error message
func (t Text) Failure(msg string) string {
	return t.paint(Red, "❌ "+msg) + "\n"
}

// Download renders the result of a download action
func (t Text) Download(r stagegate.DownloadResult) string {
	var b strings.Builder
	if r.TimerRequested && r.TimerErr == nil {
		fmt.Fprintf(&b, "%s\n", t.paint(Yellow, "⏱️  Timer started"))
	}
	if n := r.Notice(); n != "" {
		fmt.Fprintf(&b, "%s\n", t.paint(Yellow, "⚠️  "+n))
	}
	if r.Location != "" && r.Location != r.URL {
		fmt.Fprintf(&b, "Saved %s to %s\n", r.URL, t.paint(Cyan, r.Location))
	} else {
		fmt.Fprintf(&b, "Opened %s\n", t.paint(Cyan, r.URL))
	}
	return b.String()
}

// Submission renders a recorded final submission
func (t Text) Submission(r *portal.SubmissionReceipt) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", t.paint(Green, "✅ Final Submission Successful!"))
	fmt.Fprintf(&b, "Your BitBucket URL has been recorded:\n  %s\n\n", t.paint(Cyan, r.BitbucketURL))
	b.WriteString("🎉 Congratulations on completing the hackathon!\n")
	return b.String()
}

// Validation renders the answer check result
func (t Text) Validation(r *portal.ValidationResult) string {
	var b strings.Builder
	color := Yellow
	if r.PDFURL != "" {
		color = Green
	}
	fmt.Fprintf(&b, "%s\n", t.paint(color, fmt.Sprintf("%d/3 parameters correct", r.CorrectCount)))
	if r.Message != "" {
		fmt.Fprintf(&b, "%s\n", r.Message)
	}
	if r.PDFURL != "" {
		fmt.Fprintf(&b, "Next stage unlocked: %s\n", t.paint(Cyan, "hackportal download"))
	}
	return b.String()
}

// Board renders a leaderboard table
func (t Text) Board(board leaderboard.Board) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n\n",
		t.paint(Bold, board.Label+" leaderboard"),
		t.paint(Blue, "updated "+board.UpdatedAt.Format("15:04:05")))

	if board.Empty() {
		fmt.Fprintf(&b, "  %s\n", board.Rows[0].TeamName)
		return b.String()
	}

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  RANK\tTEAM\tREGION\tSTAGES\tTOTAL TIME")
	for _, r := range board.Rows {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n", r.Rank, r.TeamName, r.Region, r.Stages, r.TotalTime)
	}
	tw.Flush()
	return b.String()
}
