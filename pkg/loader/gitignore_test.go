package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCoversDir(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{".treegrid", true},
		{".treegrid/", true},
		{"/.treegrid/", true},
		{".treegrid/*", true},
		{".treegrid/**", true},
		{".treegrid/**/*", true},
		{".treegrid/tree-state.json", false},
		{".treegridx", false},
		{"treegrid", false},
	}
	for _, tt := range tests {
		if got := coversDir(tt.line, ".treegrid"); got != tt.want {
			t.Errorf("coversDir(%q) = %t, want %t", tt.line, got, tt.want)
		}
	}
}

func TestEnsureIgnoredCreatesFile(t *testing.T) {
	dir := t.TempDir()
	if err := EnsureIgnored(dir, ".treegrid"); err != nil {
		t.Fatalf("EnsureIgnored: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		t.Fatal(err)
	}
	want := gitignoreComment + "\n.treegrid/\n"
	if string(data) != want {
		t.Errorf("content = %q, want %q", data, want)
	}
}

func TestEnsureIgnoredAppendsAndIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".gitignore")
	if err := os.WriteFile(path, []byte("node_modules"), 0o644); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if err := EnsureIgnored(dir, ".treegrid/"); err != nil {
			t.Fatalf("EnsureIgnored #%d: %v", i, err)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "node_modules\n\n") {
		t.Errorf("existing content should be separated by a blank line: %q", content)
	}
	if strings.Count(content, ".treegrid/") != 1 {
		t.Errorf("pattern should appear once: %q", content)
	}
}

func TestEnsureIgnoredRespectsExistingPattern(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".gitignore")
	original := "# local\n/.treegrid\n"
	if err := os.WriteFile(path, []byte(original), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := EnsureIgnored(dir, ".treegrid"); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != original {
		t.Errorf("file changed: %q", data)
	}
}

func TestEnsureIgnoredRejectsEmptyName(t *testing.T) {
	if err := EnsureIgnored(t.TempDir(), "/"); err == nil {
		t.Error("expected an error for an empty directory name")
	}
}
