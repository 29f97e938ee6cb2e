package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/treegrid/pkg/treetable"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigDirName, ConfigFileName)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	l := cfg.Layout()
	if !l.ShowRoot || !l.ShowRootHandles || l.Direction != treetable.LeftToRight {
		t.Errorf("unexpected default layout %+v", l)
	}
	if l.LeftIndent != 1 || l.RightIndent != 2 || l.HandleWidth != 1 || l.RowHeight != 1 {
		t.Errorf("unexpected default geometry %+v", l)
	}
	if cfg.ExpandDepth() != 1 || !cfg.WatchEnabled() || cfg.Debounce() != 200*time.Millisecond {
		t.Errorf("unexpected defaults: depth=%d watch=%t debounce=%s", cfg.ExpandDepth(), cfg.WatchEnabled(), cfg.Debounce())
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
show_root: false
direction: rtl
indent:
  left: 2
  right: 3
default_expand_depth: 0
watch: false
debounce_ms: 50
state_dir: state
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	l := cfg.Layout()
	if l.ShowRoot || !l.ShowRootHandles {
		t.Errorf("show flags = %t/%t, want false/true", l.ShowRoot, l.ShowRootHandles)
	}
	if l.Direction != treetable.RightToLeft || l.TotalIndent() != 5 {
		t.Errorf("layout = %+v", l)
	}
	if cfg.ExpandDepth() != 0 {
		t.Errorf("explicit zero depth was overridden: %d", cfg.ExpandDepth())
	}
	if cfg.WatchEnabled() || cfg.Debounce() != 50*time.Millisecond {
		t.Errorf("watch=%t debounce=%s", cfg.WatchEnabled(), cfg.Debounce())
	}
	if got, want := cfg.StatePath(), filepath.Join(dir, "state", "tree-state.json"); got != want {
		t.Errorf("StatePath = %q, want %q", got, want)
	}
	if cfg.Dir() != dir {
		t.Errorf("Dir = %q, want %q", cfg.Dir(), dir)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"direction", "direction: up\n", "direction"},
		{"negative indent", "indent:\n  left: -1\n", "indent"},
		{"handle too wide", "indent:\n  left: 1\n  right: 1\nhandle_width: 3\n", "handle_width"},
		{"negative depth", "default_expand_depth: -2\n", "default_expand_depth"},
		{"bad yaml", "show_root: [\n", "parsing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.content)
			_, err := LoadConfig(path)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestResolveFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got, want := cfg.StatePath(), filepath.Join(dir, ".treegrid", "tree-state.json"); got != want {
		t.Errorf("StatePath = %q, want %q", got, want)
	}
}

func TestWriteExampleRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteExample(dir)
	if err != nil {
		t.Fatalf("WriteExample: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Layout().ShowRoot || cfg.ExpandDepth() != 2 {
		t.Errorf("example config did not round trip: %+v", cfg)
	}
}
