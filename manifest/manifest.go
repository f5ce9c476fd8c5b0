// Package manifest handles freeze.toml project configuration.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/freeze/compiler"
)

// FileName is the manifest looked up next to scripts and in their parents.
const FileName = "freeze.toml"

// Manifest represents a freeze.toml configuration.
type Manifest struct {
	Project  Project        `toml:"project"`
	Grammar  GrammarConfig  `toml:"grammar"`
	Keywords KeywordsConfig `toml:"keywords"`
	Run      RunConfig      `toml:"run"`
	Cache    CacheConfig    `toml:"cache"`
	Log      LogConfig      `toml:"log"`

	// Dir is the directory containing the freeze.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name string `toml:"name"`
}

// GrammarConfig configures line splitting.
type GrammarConfig struct {
	SetDelimiter string `toml:"set-delimiter"`
	ArgDelimiter string `toml:"arg-delimiter"`
	IgnoreCase   bool   `toml:"ignore-case"`
}

// KeywordsConfig overrides individual keywords. Empty fields keep the
// default spelling.
type KeywordsConfig struct {
	Declare  string `toml:"declare"`
	End      string `toml:"end"`
	Set      string `toml:"set"`
	Add      string `toml:"add"`
	GotoLine string `toml:"goto-line"`
	GotoFunc string `toml:"goto-function"`
	Print    string `toml:"print"`
	Read     string `toml:"read"`
	Write    string `toml:"write"`
	System   string `toml:"system"`
}

// RunConfig configures execution.
type RunConfig struct {
	Entry        string `toml:"entry"`
	MaxSteps     int    `toml:"max-steps"`
	MaxCallDepth int    `toml:"max-call-depth"`
	StrictIO     bool   `toml:"strict-io"`
}

// CacheConfig configures the compiled-program cache.
type CacheConfig struct {
	Path string `toml:"path"`
}

// LogConfig configures commonlog.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no freeze.toml exists.
func Default() *Manifest {
	return &Manifest{}
}

// Load parses a freeze.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	m, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return m, nil
}

// LoadFile parses the manifest at path.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	if abs, err := filepath.Abs(filepath.Dir(path)); err == nil {
		m.Dir = abs
	}
	if _, err := m.CompilerGrammar(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a freeze.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// CompilerGrammar merges the configured delimiters and keywords over the
// default grammar and validates the result.
func (m *Manifest) CompilerGrammar() (compiler.Grammar, error) {
	g := compiler.DefaultGrammar()
	if m.Grammar.SetDelimiter != "" {
		g.SetDelimiter = m.Grammar.SetDelimiter
	}
	switch len(m.Grammar.ArgDelimiter) {
	case 0:
	case 1:
		g.ArgDelimiter = m.Grammar.ArgDelimiter[0]
	default:
		return g, fmt.Errorf("%w: arg-delimiter %q must be a single byte",
			compiler.ErrInvalidGrammar, m.Grammar.ArgDelimiter)
	}
	g.IgnoreCase = m.Grammar.IgnoreCase

	override := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	kw := m.Keywords
	override(&g.Keywords.Declare, kw.Declare)
	override(&g.Keywords.End, kw.End)
	override(&g.Keywords.Set, kw.Set)
	override(&g.Keywords.Add, kw.Add)
	override(&g.Keywords.GotoLine, kw.GotoLine)
	override(&g.Keywords.GotoFunc, kw.GotoFunc)
	override(&g.Keywords.Print, kw.Print)
	override(&g.Keywords.Read, kw.Read)
	override(&g.Keywords.Write, kw.Write)
	override(&g.Keywords.System, kw.System)

	return g, g.Validate()
}

// CachePath returns the cache database path, resolved against Dir.
// Empty when caching is not configured.
func (m *Manifest) CachePath() string {
	if m.Cache.Path == "" || filepath.IsAbs(m.Cache.Path) || m.Dir == "" {
		return m.Cache.Path
	}
	return filepath.Join(m.Dir, m.Cache.Path)
}
