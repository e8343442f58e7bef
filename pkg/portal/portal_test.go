package portal

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/abrezinsky/hackportal/internal/errors"
	"github.com/abrezinsky/hackportal/internal/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewHTTPClient(server.URL, logger.Nop{})
}

func TestHTTPClient_Login_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/teams/login" {
			t.Errorf("expected path /teams/login, got %s", r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected JSON content type, got %q", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header")
		}

		var creds Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if creds.TeamName != "rockets" || creds.Password != "pw" || creds.Region != RegionAPAC {
			t.Errorf("unexpected credentials: %+v", creds)
		}

		w.Write([]byte(`{"team_name":"rockets","region":"APAC","current_stage":2,"challenge_open":true,"start_time":"2025-10-15 00:00:00 UTC"}`))
	})

	progress, err := client.Login(context.Background(), Credentials{TeamName: "rockets", Password: "pw", Region: RegionAPAC})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if progress.CurrentStage != 2 || !progress.ChallengeOpen || progress.Region != RegionAPAC {
		t.Errorf("unexpected progress: %+v", progress)
	}
}

func TestHTTPClient_Login_RejectedWithDetail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Invalid team credentials"}`))
	})

	_, err := client.Login(context.Background(), Credentials{TeamName: "x", Password: "y"})
	if err == nil {
		t.Fatal("expected error for 401")
	}
	if !apperrors.IsRejected(err) {
		t.Fatalf("expected rejected error, got %v", err)
	}
	if got := apperrors.UserMessage(err, "fallback"); got != "Invalid team credentials" {
		t.Errorf("expected detail surfaced verbatim, got %q", got)
	}
}

func TestHTTPClient_Rejected_NonStringDetailUsesFallback(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail":[{"loc":["body","region"],"msg":"field required"}]}`))
	})

	_, err := client.CreateTeam(context.Background(), Credentials{TeamName: "x", Password: "y"})
	if got := apperrors.UserMessage(err, "Failed to create team"); got != "Failed to create team" {
		t.Errorf("expected fallback, got %q", got)
	}
}

func TestHTTPClient_Rejected_HTMLBodyUsesFallback(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	})

	_, err := client.Leaderboard(context.Background(), ScopeGlobal)
	if !apperrors.IsRejected(err) {
		t.Fatalf("expected rejected error, got %v", err)
	}
	if got := apperrors.UserMessage(err, "Failed to load leaderboard"); got != "Failed to load leaderboard" {
		t.Errorf("expected fallback, got %q", got)
	}
}

func TestHTTPClient_ConnectionError(t *testing.T) {
	client := NewHTTPClient("http://localhost:99999", logger.Nop{})
	_, err := client.Login(context.Background(), Credentials{TeamName: "x", Password: "y"})
	if err == nil {
		t.Fatal("expected error for connection failure")
	}
	if !apperrors.IsTransport(err) {
		t.Errorf("expected transport error, got %v", err)
	}
	if msg := apperrors.UserMessage(err, ""); !strings.HasSuffix(msg, "Make sure the API server is running.") {
		t.Errorf("unexpected banner %q", msg)
	}
}

func TestHTTPClient_CreateTeam_FillsMissingFields(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/teams/create" {
			t.Errorf("expected /teams/create, got %s", r.URL.Path)
		}
		// Alternate response shape without team_name/region
		w.Write([]byte(`{"current_stage":0,"stage1_pdf_url":"/pdfs/stage1.pdf"}`))
	})

	progress, err := client.CreateTeam(context.Background(), Credentials{TeamName: "rockets", Password: "pw", Region: RegionEMEA})
	if err != nil {
		t.Fatalf("CreateTeam failed: %v", err)
	}
	if progress.TeamName != "rockets" || progress.Region != RegionEMEA {
		t.Errorf("expected team/region filled from credentials, got %+v", progress)
	}
	if progress.Stage1PDFURL != "/pdfs/stage1.pdf" {
		t.Errorf("expected stage1 pdf url, got %q", progress.Stage1PDFURL)
	}
}

func TestHTTPClient_StartTimer(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/teams/start-timer" {
			t.Errorf("expected /teams/start-timer, got %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if err := client.StartTimer(context.Background(), Credentials{TeamName: "a", Password: "b", Region: RegionAMRS}); err != nil {
		t.Fatalf("StartTimer failed: %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestHTTPClient_Leaderboard_Paths(t *testing.T) {
	tests := []struct {
		scope Scope
		path  string
	}{
		{ScopeGlobal, "/leaderboard/global"},
		{Scope(RegionEMEA), "/leaderboard/regional/EMEA"},
		{Scope(RegionAPAC), "/leaderboard/regional/APAC"},
	}

	for _, tt := range tests {
		t.Run(string(tt.scope), func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("expected GET, got %s", r.Method)
				}
				if r.URL.Path != tt.path {
					t.Errorf("expected %s, got %s", tt.path, r.URL.Path)
				}
				w.Write([]byte(`[{"rank":1,"team_name":"a","region":"EMEA","stages_completed":3,"total_time":"01:00:00"},{"rank":"T","team_name":"b","region":"EMEA","stages_unlocked":2,"total_time":"-"}]`))
			})

			entries, err := client.Leaderboard(context.Background(), tt.scope)
			if err != nil {
				t.Fatalf("Leaderboard failed: %v", err)
			}
			if len(entries) != 2 {
				t.Fatalf("expected 2 entries, got %d", len(entries))
			}
			if entries[0].Rank != "1" || entries[1].Rank != "T" {
				t.Errorf("unexpected ranks %q %q", entries[0].Rank, entries[1].Rank)
			}
			if entries[1].StagesCompleted != 2 {
				t.Errorf("expected stages_unlocked alias to populate StagesCompleted, got %d", entries[1].StagesCompleted)
			}
		})
	}
}

func TestHTTPClient_Leaderboard_Empty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	entries, err := client.Leaderboard(context.Background(), ScopeGlobal)
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}

func TestHTTPClient_InvalidJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})

	_, err := client.Leaderboard(context.Background(), ScopeGlobal)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if apperrors.IsTransport(err) || apperrors.IsRejected(err) {
		t.Errorf("expected parse error to be internal, got kind %v", apperrors.KindOf(err))
	}
}

func TestHTTPClient_SubmitFinal(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/submit" {
			t.Errorf("expected /api/submit, got %s", r.URL.Path)
		}
		var sub FinalSubmission
		json.NewDecoder(r.Body).Decode(&sub)
		json.NewEncoder(w).Encode(SubmissionReceipt{BitbucketURL: sub.BitbucketURL})
	})

	receipt, err := client.SubmitFinal(context.Background(), FinalSubmission{
		TeamName: "a", Password: "b", BitbucketURL: "https://bitbucket.org/a/b",
	})
	if err != nil {
		t.Fatalf("SubmitFinal failed: %v", err)
	}
	if receipt.BitbucketURL != "https://bitbucket.org/a/b" {
		t.Errorf("unexpected receipt %+v", receipt)
	}
}

func TestHTTPClient_ValidateChallenge(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/challenges/validate" {
			t.Errorf("expected /api/challenges/validate, got %s", r.URL.Path)
		}
		w.Write([]byte(`{"correct_count":2,"message":"2 out of 3 values correct","pdf_url":null}`))
	})

	result, err := client.ValidateChallenge(context.Background(), ChallengeValidation{
		TeamName: "a", Password: "b", SubmittedURL: "ERFT_stage2_p1-1_p2-2_p3-4",
	})
	if err != nil {
		t.Fatalf("ValidateChallenge failed: %v", err)
	}
	if result.CorrectCount != 2 || result.PDFURL != "" {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestHTTPClient_Health(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})
	if err := client.Health(context.Background()); err != nil {
		t.Errorf("Health failed: %v", err)
	}

	bad := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"degraded"}`))
	})
	if err := bad.Health(context.Background()); err == nil {
		t.Error("expected error for degraded status")
	}
}

func TestHTTPClient_RequestTracingRedactsPassword(t *testing.T) {
	got := redactPassword([]byte(`{"team_name":"a","password":"secret"}`))
	if strings.Contains(got, "secret") {
		t.Errorf("password leaked into trace: %s", got)
	}
	if !strings.Contains(got, `"team_name":"a"`) {
		t.Errorf("expected other fields kept: %s", got)
	}
}

func TestHTTPClient_RateLimitHonoursContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[]`)
	})
	WithRateLimit(0.001, 1)(client)

	// First request consumes the burst
	if _, err := client.Leaderboard(context.Background(), ScopeGlobal); err != nil {
		t.Fatalf("first request failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := client.Leaderboard(ctx, ScopeGlobal)
	if !apperrors.IsTransport(err) {
		t.Errorf("expected transport error from limiter, got %v", err)
	}
}

func TestHTTPClient_URLs(t *testing.T) {
	client := NewHTTPClient("http://portal.example/", logger.Nop{})

	if client.BaseURL() != "http://portal.example" {
		t.Errorf("expected trailing slash trimmed, got %q", client.BaseURL())
	}
	if got := client.PDFURL(3); got != "http://portal.example/pdfs/stage3.pdf" {
		t.Errorf("unexpected PDF URL %q", got)
	}
	if got := client.DatasetURL("fraud payments"); got != "http://portal.example/data/fraud%20payments.csv" {
		t.Errorf("unexpected dataset URL %q", got)
	}
	if got := client.ResolveURL("/pdfs/stage1.pdf"); got != "http://portal.example/pdfs/stage1.pdf" {
		t.Errorf("unexpected resolved URL %q", got)
	}
	if got := client.ResolveURL("pdfs/stage1.pdf"); got != "http://portal.example/pdfs/stage1.pdf" {
		t.Errorf("unexpected resolved relative URL %q", got)
	}
	if got := client.ResolveURL("https://cdn.example/s1.pdf"); got != "https://cdn.example/s1.pdf" {
		t.Errorf("absolute URLs must pass through, got %q", got)
	}
}
