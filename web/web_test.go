package web

import (
	"io/fs"
	"strings"
	"testing"
)

func TestEmbeddedTemplatesExist(t *testing.T) {
	templatesFS := GetTemplatesFS()

	requiredFiles := []string{
		"dashboard.html",
		"fragments/presentation.html",
		"fragments/board.html",
	}

	for _, file := range requiredFiles {
		if _, err := fs.Stat(templatesFS, file); err != nil {
			t.Errorf("required template %q not found: %v", file, err)
		}
	}
}

func TestEmbeddedStaticFilesExist(t *testing.T) {
	staticFS := GetStaticFS()

	requiredFiles := []string{
		"css/dashboard.css",
		"js/dashboard.js",
	}

	for _, file := range requiredFiles {
		if _, err := fs.Stat(staticFS, file); err != nil {
			t.Errorf("required static file %q not found: %v", file, err)
		}
	}
}

func TestDashboardScriptReportsVisibility(t *testing.T) {
	content, err := fs.ReadFile(GetStaticFS(), "js/dashboard.js")
	if err != nil {
		t.Fatalf("failed to read js/dashboard.js: %v", err)
	}

	// the server only polls while a viewer reports a visible page
	for _, want := range []string{"visibilitychange", "'visibility'", "/ws"} {
		if !strings.Contains(string(content), want) {
			t.Errorf("dashboard.js missing %q", want)
		}
	}
}

func TestTemplatesReadable(t *testing.T) {
	content, err := fs.ReadFile(GetTemplatesFS(), "dashboard.html")
	if err != nil {
		t.Fatalf("failed to read dashboard.html: %v", err)
	}
	if len(content) == 0 {
		t.Error("dashboard.html is empty")
	}
}
