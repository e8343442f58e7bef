// Package stagegate derives what a team sees after a status fetch and runs
// the download action attached to that view.
package stagegate

// Kind identifies a presentation variant
type Kind int

const (
	NotYetOpen Kind = iota
	AwaitingFirstDownload
	InProgress
	AllStagesComplete
	Failed
)

// FinalStage is the accessibility-review stage that precedes final submission
const FinalStage = 5

// lastSolvedStage is the highest current_stage the backend reports
const lastSolvedStage = 4

func (k Kind) String() string {
	switch k {
	case NotYetOpen:
		return "not_yet_open"
	case AwaitingFirstDownload:
		return "awaiting_first_download"
	case InProgress:
		return "in_progress"
	case AllStagesComplete:
		return "all_stages_complete"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Presentation is the view derived from a team's progress. Only the fields
// relevant to Kind are set.
type Presentation struct {
	Kind Kind `json:"kind"`

	// StartTime is the informational challenge open time (NotYetOpen)
	StartTime string `json:"start_time,omitempty"`

	// PDFStage is the requirements PDF the download action opens
	PDFStage int `json:"pdf_stage,omitempty"`

	// NextSubmissionStage is the stage whose answer the team submits next (InProgress)
	NextSubmissionStage int `json:"next_submission_stage,omitempty"`

	// SubmissionLinkEnabled exposes the final submission page (AllStagesComplete)
	SubmissionLinkEnabled bool `json:"submission_link_enabled,omitempty"`

	// Message is the error text of a Failed presentation
	Message string `json:"message,omitempty"`
}

// Derive maps a team's progress onto a presentation.
//
//	closed            -> NotYetOpen
//	open, stage 0     -> AwaitingFirstDownload, PDF 1
//	open, stage 1..3  -> InProgress, PDF n+1, next submission n+2
//	open, stage >= 4  -> AllStagesComplete, PDF 5
//
// A negative stage is treated as 0.
func Derive(challengeOpen bool, currentStage int, startTime string) Presentation {
	if !challengeOpen {
		return Presentation{Kind: NotYetOpen, StartTime: startTime}
	}

	switch {
	case currentStage <= 0:
		return Presentation{Kind: AwaitingFirstDownload, PDFStage: 1}
	case currentStage < lastSolvedStage:
		return Presentation{
			Kind:                InProgress,
			PDFStage:            currentStage + 1,
			NextSubmissionStage: currentStage + 2,
		}
	default:
		return Presentation{
			Kind:                  AllStagesComplete,
			PDFStage:              FinalStage,
			SubmissionLinkEnabled: true,
		}
	}
}

// FailedWith returns the terminal error presentation
func FailedWith(msg string) Presentation {
	return Presentation{Kind: Failed, Message: msg}
}

// HasDownload reports whether the presentation exposes a download action
func (p Presentation) HasDownload() bool {
	return p.Kind == AwaitingFirstDownload || p.Kind == InProgress || p.Kind == AllStagesComplete
}

// StartsTimer reports whether downloading from this presentation should
// start the team's timer
func (p Presentation) StartsTimer() bool {
	return p.Kind == AwaitingFirstDownload
}
