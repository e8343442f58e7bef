package portal

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/abrezinsky/hackportal/internal/errors"
)

func TestMockClient_CreateThenLogin(t *testing.T) {
	client := NewMockClient(WithChallengeOpen(false, "2025-10-15 14:00:00 UTC"))
	ctx := context.Background()
	creds := Credentials{TeamName: "rockets", Password: "pw", Region: RegionAMRS}

	progress, err := client.CreateTeam(ctx, creds)
	if err != nil {
		t.Fatalf("CreateTeam failed: %v", err)
	}
	if progress.ChallengeOpen || progress.StartTime != "2025-10-15 14:00:00 UTC" {
		t.Errorf("unexpected progress %+v", progress)
	}

	if _, err := client.CreateTeam(ctx, creds); !apperrors.IsRejected(err) {
		t.Errorf("expected duplicate team to be rejected, got %v", err)
	}

	got, err := client.Login(ctx, Credentials{TeamName: "rockets", Password: "pw"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if got.Region != RegionAMRS {
		t.Errorf("expected stored region, got %q", got.Region)
	}

	if _, err := client.Login(ctx, Credentials{TeamName: "rockets", Password: "wrong"}); !apperrors.IsRejected(err) {
		t.Errorf("expected bad password to be rejected, got %v", err)
	}
}

func TestMockClient_CreateTeam_BadRegion(t *testing.T) {
	client := NewMockClient()
	_, err := client.CreateTeam(context.Background(), Credentials{TeamName: "a", Password: "b", Region: "MARS"})
	if !apperrors.IsRejected(err) {
		t.Errorf("expected rejection, got %v", err)
	}
}

func TestMockClient_StartTimer_CountsCalls(t *testing.T) {
	creds := Credentials{TeamName: "a", Password: "b", Region: RegionEMEA}
	client := NewMockClient(WithTeam(creds, TeamProgress{ChallengeOpen: true}))

	client.StartTimer(context.Background(), creds)
	client.StartTimer(context.Background(), creds)
	if client.StartTimerCalls() != 2 {
		t.Errorf("expected 2 calls, got %d", client.StartTimerCalls())
	}

	testErr := errors.New("boom")
	failing := NewMockClient(WithStartTimerError(testErr))
	if err := failing.StartTimer(context.Background(), creds); err != testErr {
		t.Errorf("expected injected error, got %v", err)
	}
}

func TestMockClient_Leaderboard_RegionalReRanks(t *testing.T) {
	client := NewMockClient()

	entries, err := client.Leaderboard(context.Background(), Scope(RegionAMRS))
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 AMRS entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.Region != RegionAMRS {
			t.Errorf("unexpected region %q", e.Region)
		}
		if want := FlexString([]string{"1", "2"}[i]); e.Rank != want {
			t.Errorf("expected dense rank %q, got %q", want, e.Rank)
		}
	}

	global, _ := client.Leaderboard(context.Background(), ScopeGlobal)
	if len(global) != len(DefaultMockLeaderboard()) {
		t.Errorf("expected full global board, got %d", len(global))
	}
	if global[2].Rank != "3" {
		t.Error("regional re-ranking must not mutate the global board")
	}

	scopes := client.ScopesRequested()
	if len(scopes) != 2 || scopes[0] != Scope(RegionAMRS) || scopes[1] != ScopeGlobal {
		t.Errorf("unexpected scope log %v", scopes)
	}
}

func TestMockClient_ValidateChallenge(t *testing.T) {
	creds := Credentials{TeamName: "a", Password: "b", Region: RegionEMEA}
	client := NewMockClient(WithTeam(creds, TeamProgress{ChallengeOpen: true, CurrentStage: 1}))
	ctx := context.Background()

	partial, err := client.ValidateChallenge(ctx, ChallengeValidation{TeamName: "a", Password: "b", SubmittedURL: "ERFT_stage2_p1-1_p2-9_p3-3"})
	if err != nil {
		t.Fatalf("ValidateChallenge failed: %v", err)
	}
	if partial.CorrectCount != 2 || partial.PDFURL != "" {
		t.Errorf("unexpected partial result %+v", partial)
	}

	full, err := client.ValidateChallenge(ctx, ChallengeValidation{TeamName: "a", Password: "b", SubmittedURL: "ERFT_stage2_p1-1_p2-2_p3-3"})
	if err != nil {
		t.Fatalf("ValidateChallenge failed: %v", err)
	}
	if full.CorrectCount != 3 || full.PDFURL != "/pdfs/stage2.pdf" {
		t.Errorf("unexpected full result %+v", full)
	}

	progress, _ := client.Login(ctx, creds)
	if progress.CurrentStage != 2 {
		t.Errorf("expected stage advanced to 2, got %d", progress.CurrentStage)
	}

	if _, err := client.ValidateChallenge(ctx, ChallengeValidation{TeamName: "a", Password: "b", SubmittedURL: "garbage"}); !apperrors.IsRejected(err) {
		t.Errorf("expected malformed URL rejected, got %v", err)
	}
	if _, err := client.ValidateChallenge(ctx, ChallengeValidation{TeamName: "a", Password: "b", SubmittedURL: "ERFT_stage9_p1-1_p2-2_p3-3"}); !apperrors.IsRejected(err) {
		t.Errorf("expected unknown stage rejected, got %v", err)
	}
}

func TestMockClient_SubmitFinal(t *testing.T) {
	creds := Credentials{TeamName: "a", Password: "b", Region: RegionEMEA}
	client := NewMockClient(WithTeam(creds, TeamProgress{}))

	_, err := client.SubmitFinal(context.Background(), FinalSubmission{TeamName: "a", Password: "b", BitbucketURL: "https://bitbucket.org/a/repo"})
	if err != nil {
		t.Fatalf("SubmitFinal failed: %v", err)
	}
	if subs := client.Submissions(); len(subs) != 1 || subs[0].BitbucketURL != "https://bitbucket.org/a/repo" {
		t.Errorf("unexpected submissions %v", subs)
	}
}

func TestMockClient_URLs(t *testing.T) {
	client := NewMockClient(WithBaseURL("http://test.local"))
	if client.BaseURL() != "http://test.local" {
		t.Errorf("unexpected base URL %q", client.BaseURL())
	}
	if client.PDFURL(1) != "http://test.local/pdfs/stage1.pdf" {
		t.Errorf("unexpected PDF URL %q", client.PDFURL(1))
	}
	if client.ResolveURL("/pdfs/stage2.pdf") != "http://test.local/pdfs/stage2.pdf" {
		t.Errorf("unexpected resolved URL")
	}
}
