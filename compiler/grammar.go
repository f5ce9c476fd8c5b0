package compiler

import (
	"fmt"
	"strings"

	"github.com/chazu/freeze/container"
)

// ---------------------------------------------------------------------------
// Grammar: delimiters and keyword identifiers
// ---------------------------------------------------------------------------

// Keywords holds the identifiers the interpreter recognizes.
type Keywords struct {
	Declare  string
	End      string
	Set      string
	Add      string
	GotoLine string
	GotoFunc string
	Print    string
	Read     string
	Write    string
	System   string
}

// Grammar configures how source lines are split and which instruction
// names are keywords.
type Grammar struct {
	// SetDelimiter separates the instruction name from its arguments.
	SetDelimiter string
	// ArgDelimiter separates arguments outside of quotes.
	ArgDelimiter byte
	// IgnoreCase makes keyword matching case-insensitive.
	IgnoreCase bool
	Keywords   Keywords
}

// DefaultGrammar returns the stock grammar: `name arg, arg` lines with the
// keywords function/functionend/set/add/gotoline/gotofunc/print/read/write/system.
func DefaultGrammar() Grammar {
	return Grammar{
		SetDelimiter: " ",
		ArgDelimiter: ',',
		Keywords: Keywords{
			Declare:  "function",
			End:      "functionend",
			Set:      "set",
			Add:      "add",
			GotoLine: "gotoline",
			GotoFunc: "gotofunc",
			Print:    "print",
			Read:     "read",
			Write:    "write",
			System:   "system",
		},
	}
}

// Keyword identifies a configured keyword.
type Keyword int

const (
	KwNone Keyword = iota
	KwDeclare
	KwEnd
	KwSet
	KwAdd
	KwGotoLine
	KwGotoFunc
	KwPrint
	KwRead
	KwWrite
	KwSystem
	kwCount
)

var keywordNames = [kwCount]string{
	KwNone:     "none",
	KwDeclare:  "function-declare",
	KwEnd:      "function-end",
	KwSet:      "variable-declare",
	KwAdd:      "variable-add",
	KwGotoLine: "goto-line",
	KwGotoFunc: "goto-function",
	KwPrint:    "print",
	KwRead:     "read",
	KwWrite:    "write",
	KwSystem:   "system",
}

func (k Keyword) String() string {
	if k < 0 || k >= kwCount {
		return fmt.Sprintf("Keyword(%d)", int(k))
	}
	return keywordNames[k]
}

func (g Grammar) words() [kwCount]string {
	kw := g.Keywords
	return [kwCount]string{
		KwDeclare:  kw.Declare,
		KwEnd:      kw.End,
		KwSet:      kw.Set,
		KwAdd:      kw.Add,
		KwGotoLine: kw.GotoLine,
		KwGotoFunc: kw.GotoFunc,
		KwPrint:    kw.Print,
		KwRead:     kw.Read,
		KwWrite:    kw.Write,
		KwSystem:   kw.System,
	}
}

// Validate checks that the delimiters are usable and that every keyword is
// a distinct alphanumeric identifier.
func (g Grammar) Validate() error {
	if g.SetDelimiter == "" {
		return fmt.Errorf("%w: empty set delimiter", ErrInvalidGrammar)
	}
	if g.ArgDelimiter == '"' || g.ArgDelimiter == '\'' || g.ArgDelimiter == '\t' {
		return fmt.Errorf("%w: argument delimiter %q is reserved", ErrInvalidGrammar, g.ArgDelimiter)
	}
	seen := make(map[string]Keyword)
	words := g.words()
	for k := KwDeclare; k < kwCount; k++ {
		w := words[k]
		if w == "" {
			return fmt.Errorf("%w: %s keyword is empty", ErrInvalidGrammar, k)
		}
		for i := 0; i < len(w); i++ {
			if !isAlnum(w[i]) {
				return fmt.Errorf("%w: %s keyword %q must be alphanumeric", ErrInvalidGrammar, k, w)
			}
		}
		key := w
		if g.IgnoreCase {
			key = strings.ToLower(w)
		}
		if prev, dup := seen[key]; dup {
			return fmt.Errorf("%w: %s and %s share keyword %q", ErrInvalidGrammar, prev, k, w)
		}
		seen[key] = k
	}
	return nil
}

// Fingerprint returns a stable description of the grammar. Two grammars
// with the same fingerprint parse every source identically.
func (g Grammar) Fingerprint() string {
	var b strings.Builder
	fmt.Fprintf(&b, "set=%q;arg=%q;fold=%t", g.SetDelimiter, g.ArgDelimiter, g.IgnoreCase)
	words := g.words()
	for k := KwDeclare; k < kwCount; k++ {
		fmt.Fprintf(&b, ";%s=%s", k, words[k])
	}
	return b.String()
}

// ---------------------------------------------------------------------------
// KeywordTable: bound keyword texts
// ---------------------------------------------------------------------------

// KeywordTable matches instruction names against the grammar's keywords.
type KeywordTable struct {
	words      [kwCount]*container.Text
	ignoreCase bool
}

// NewKeywordTable binds the grammar's keywords. With IgnoreCase the bound
// texts are lowercased.
func NewKeywordTable(g Grammar) *KeywordTable {
	t := &KeywordTable{ignoreCase: g.IgnoreCase}
	words := g.words()
	for k := KwDeclare; k < kwCount; k++ {
		txt := container.TextOf(words[k])
		if g.IgnoreCase {
			txt.ToLower()
		}
		t.words[k] = txt
	}
	return t
}

// Lookup returns the keyword name matches, or KwNone.
func (t *KeywordTable) Lookup(name *container.Text) Keyword {
	for k := KwDeclare; k < kwCount; k++ {
		w := t.words[k]
		if t.ignoreCase {
			if w.EqualsIgnoreCase(name) {
				return k
			}
		} else if w.Equals(name) {
			return k
		}
	}
	return KwNone
}

// Word returns the bound text of k.
func (t *KeywordTable) Word(k Keyword) string {
	if k <= KwNone || k >= kwCount {
		return ""
	}
	return t.words[k].String()
}

// Release drops the bound keyword texts.
func (t *KeywordTable) Release() {
	for k := KwDeclare; k < kwCount; k++ {
		if t.words[k] != nil {
			t.words[k].Release()
		}
	}
}

func isAlnum(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}
