package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/freeze/compiler"
)

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[project]
name = "adder"

[grammar]
set-delimiter = "->"
arg-delimiter = ";"
ignore-case = true

[keywords]
declare = "def"
end = "enddef"

[run]
entry = "start"
max-steps = 5000
max-call-depth = 64
strict-io = true

[cache]
path = ".freeze/cache.db"

[log]
verbosity = 2
file = "freeze.log"
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "adder" {
		t.Errorf("project name = %q, want adder", m.Project.Name)
	}
	if m.Run.Entry != "start" || m.Run.MaxSteps != 5000 || m.Run.MaxCallDepth != 64 || !m.Run.StrictIO {
		t.Errorf("run = %+v", m.Run)
	}
	if m.Log.Verbosity != 2 || m.Log.File != "freeze.log" {
		t.Errorf("log = %+v", m.Log)
	}
	if got, want := m.CachePath(), filepath.Join(m.Dir, ".freeze", "cache.db"); got != want {
		t.Errorf("cache path = %q, want %q", got, want)
	}

	g, err := m.CompilerGrammar()
	if err != nil {
		t.Fatalf("CompilerGrammar: %v", err)
	}
	if g.SetDelimiter != "->" || g.ArgDelimiter != ';' || !g.IgnoreCase {
		t.Errorf("grammar delimiters = %q %q %v", g.SetDelimiter, g.ArgDelimiter, g.IgnoreCase)
	}
	if g.Keywords.Declare != "def" || g.Keywords.End != "enddef" {
		t.Errorf("keywords = %+v", g.Keywords)
	}
	if g.Keywords.Print != "print" {
		t.Errorf("unset keyword print = %q, want default", g.Keywords.Print)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("[project]\nname = \"minimal\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	g, err := m.CompilerGrammar()
	if err != nil {
		t.Fatal(err)
	}
	if g != compiler.DefaultGrammar() {
		t.Errorf("grammar = %+v, want default", g)
	}
	if m.CachePath() != "" {
		t.Errorf("cache path = %q, want empty", m.CachePath())
	}
}

func TestLoadManifestRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		grammar bool
	}{
		{"long arg delimiter", "[grammar]\narg-delimiter = \"::\"\n", true},
		{"duplicate keyword", "[keywords]\nwrite = \"print\"\n", true},
		{"unknown key", "[run]\nentri = \"main\"\n", false},
		{"syntax", "[run\n", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, FileName), []byte(tc.content), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(dir)
			if err == nil {
				t.Fatal("expected error")
			}
			if tc.grammar && !errors.Is(err, compiler.ErrInvalidGrammar) {
				t.Errorf("err = %v, want ErrInvalidGrammar", err)
			}
		})
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "scripts", "deep")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, FileName), []byte("[run]\nentry = \"go\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(sub)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("expected manifest, got nil")
	}
	if m.Run.Entry != "go" {
		t.Errorf("entry = %q, want go", m.Run.Entry)
	}
	absRoot, _ := filepath.Abs(root)
	if m.Dir != absRoot {
		t.Errorf("dir = %q, want %q", m.Dir, absRoot)
	}
}

func TestFindAndLoadNoManifest(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m != nil {
		t.Skip("a freeze.toml exists above the temp directory")
	}
}
