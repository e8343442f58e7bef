package handlers

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/skip2/go-qrcode"

	"github.com/abrezinsky/hackportal/internal/leaderboard"
	"github.com/abrezinsky/hackportal/internal/services"
	"github.com/abrezinsky/hackportal/internal/stagegate"
	"github.com/abrezinsky/hackportal/internal/view"
	"github.com/abrezinsky/hackportal/pkg/portal"
)

// ScopeRequest switches the leaderboard tab
type ScopeRequest struct {
	Scope string `json:"scope"`
}

// TeamResponse is the JSON form of the team panel
type TeamResponse struct {
	TeamName     string                 `json:"team_name"`
	Region       string                 `json:"region"`
	CurrentStage int                    `json:"current_stage"`
	TotalTime    float64                `json:"total_time"`
	TimerStarted bool                   `json:"timer_started"`
	Presentation stagegate.Presentation `json:"presentation"`
	Countdown    string                 `json:"countdown,omitempty"`
}

// DownloadResponse tells the page which file to open
type DownloadResponse struct {
	URL            string `json:"url"`
	Location       string `json:"location"`
	TimerRequested bool   `json:"timer_requested"`
	Notice         string `json:"notice,omitempty"`
}

func (h *Handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	scope := h.Board.Scope()
	if scope == "" {
		scope = portal.ScopeGlobal
	}

	data := view.PageData{
		Version: h.Version,
		Scope:   scope,
		Scopes:  portal.Scopes,
	}
	if b, ok := h.Board.Last(); ok {
		data.Board = b
	} else {
		data.Board = leaderboard.Board{Scope: scope, Label: scope.Label()}
	}
	if h.Auth.Allowed(r) {
		data.Team = h.teamData(r.Context())
		data.Share = h.ShareURL != ""
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.views.Page(w, data); err != nil {
		h.Log.Error("Failed to render dashboard", "error", err)
	}
}

// teamData loads the team panel for the stored session, or nil when nobody
// is signed in
func (h *Handlers) teamData(ctx context.Context) *view.TeamData {
	session, p, err := h.Team.Current(ctx)
	if err != nil {
		if !stderrors.Is(err, services.ErrNoSession) {
			h.Log.Warn("Failed to load team session", "error", err)
		}
		return nil
	}
	return view.NewTeamData(session.TeamName, session.Region, session.CurrentStage, session.TotalTime, p, h.now())
}

func (h *Handlers) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		session, p, err := h.Team.Current(r.Context())
		if err != nil {
			h.respondError(w, err)
			return
		}
		resp := TeamResponse{
			TeamName:     session.TeamName,
			Region:       session.Region,
			CurrentStage: session.CurrentStage,
			TotalTime:    session.TotalTime,
			TimerStarted: session.TimerStarted,
			Presentation: p,
		}
		if p.Kind == stagegate.NotYetOpen {
			resp.Countdown = view.Countdown(p.StartTime, h.now())
		}
		respondOK(w, resp)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.views.Team(w, h.teamData(r.Context())); err != nil {
		h.Log.Error("Failed to render team panel", "error", err)
	}
}

func (h *Handlers) handleDownload(w http.ResponseWriter, r *http.Request) {
	result, err := h.Team.Download(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondOK(w, DownloadResponse{
		URL:            result.URL,
		Location:       result.Location,
		TimerRequested: result.TimerRequested,
		Notice:         result.Notice(),
	})
}

func (h *Handlers) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	b, ok := h.Board.Last()
	if !ok {
		h.respondError(w, NotFound("Leaderboard not loaded yet"))
		return
	}
	respondOK(w, b)
}

func (h *Handlers) handleSetScope(w http.ResponseWriter, r *http.Request) {
	var req ScopeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, err)
		return
	}

	scope, err := portal.ParseScope(req.Scope)
	if err != nil {
		h.respondError(w, BadRequest(err.Error()))
		return
	}

	if err := h.Board.SetScope(r.Context(), scope); err != nil {
		h.respondError(w, err)
		return
	}

	b, _ := h.Board.Last()
	respondOK(w, b)
}

func (h *Handlers) handleQRCode(w http.ResponseWriter, r *http.Request) {
	if h.ShareURL == "" {
		h.respondError(w, NotFound("No share link configured"))
		return
	}

	png, err := qrcode.Encode(h.ShareURL, qrcode.Medium, 256)
	if err != nil {
		h.respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(png)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
