package server

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/freeze/compiler"
	"github.com/chazu/freeze/container"
)

// document is an open script and the result of its last build.
type document struct {
	lines []string
	prog  *compiler.Program // nil when the build failed
}

// Workspace builds open documents and answers editor queries about them.
type Workspace struct {
	grammar  compiler.Grammar
	keywords *compiler.KeywordTable
	docs     map[string]*document
}

// NewWorkspace creates a workspace that parses with g.
func NewWorkspace(g compiler.Grammar) *Workspace {
	return &Workspace{
		grammar:  g,
		keywords: compiler.NewKeywordTable(g),
		docs:     make(map[string]*document),
	}
}

// Update rebuilds uri from text and returns its diagnostics.
func (w *Workspace) Update(uri, text string) []protocol.Diagnostic {
	w.Close(uri)
	doc := &document{lines: strings.Split(text, "\n")}
	w.docs[uri] = doc

	prog, err := compiler.BuildString(w.grammar, text)
	if err != nil {
		return []protocol.Diagnostic{doc.diagnostic(buildErrorLine(err), protocol.DiagnosticSeverityError, err.Error())}
	}
	doc.prog = prog
	return w.lint(doc)
}

// Close forgets uri.
func (w *Workspace) Close(uri string) {
	if doc, ok := w.docs[uri]; ok {
		if doc.prog != nil {
			doc.prog.Release()
		}
		delete(w.docs, uri)
	}
}

// Release drops every document.
func (w *Workspace) Release() {
	for uri := range w.docs {
		w.Close(uri)
	}
	w.keywords.Release()
}

func buildErrorLine(err error) int {
	var cerr *compiler.Error
	if errors.As(err, &cerr) {
		return cerr.Line
	}
	return 0
}

// diagnostic spans the whole of the 1-based source line.
func (d *document) diagnostic(line int, severity protocol.DiagnosticSeverity, msg string) protocol.Diagnostic {
	idx := max(line-1, 0)
	width := 0
	if idx < len(d.lines) {
		width = len(d.lines[idx])
	}
	source := lspName
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: protocol.UInteger(idx), Character: 0},
			End:   protocol.Position{Line: protocol.UInteger(idx), Character: protocol.UInteger(width)},
		},
		Severity: &severity,
		Source:   &source,
		Message:  msg,
	}
}

// lint reports instructions that build but would fail at run time.
func (w *Workspace) lint(doc *document) []protocol.Diagnostic {
	diags := []protocol.Diagnostic{}
	warn := func(ins *compiler.Instruction, format string, args ...any) {
		diags = append(diags, doc.diagnostic(ins.Line, protocol.DiagnosticSeverityWarning, fmt.Sprintf(format, args...)))
	}

	for _, fn := range doc.prog.Functions.All() {
		for _, ins := range fn.Body.All() {
			switch w.keywords.Lookup(ins.Name) {
			case compiler.KwNone:
				warn(ins, "unknown instruction %q", ins.Name.String())
			case compiler.KwGotoFunc:
				name := ins.Arg(0)
				callee, ok := doc.prog.Lookup(name)
				if !ok {
					warn(ins, "undefined function %q", name)
					continue
				}
				if got := ins.Args.Len() - 1; got != callee.Params.Len() {
					warn(ins, "%s takes %d arguments, got %d", callee.Signature(), callee.Params.Len(), got)
				}
			case compiler.KwGotoLine:
				target, err := strconv.Atoi(ins.Arg(0))
				if err == nil && (target < 0 || target >= fn.Body.Len()) {
					warn(ins, "jump target %d outside %s (0..%d)", target, fn.Name.String(), fn.Body.Len()-1)
				}
			}
		}
	}
	return diags
}

// Complete returns keywords and function names starting with prefix.
func (w *Workspace) Complete(uri, prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	lower := strings.ToLower(prefix)

	for k := compiler.KwDeclare; k <= compiler.KwSystem; k++ {
		word := w.keywords.Word(k)
		if strings.HasPrefix(strings.ToLower(word), lower) {
			kind := protocol.CompletionItemKindKeyword
			detail := k.String()
			items = append(items, protocol.CompletionItem{
				Label:      word,
				Kind:       &kind,
				Detail:     &detail,
				InsertText: &word,
			})
		}
	}

	if doc, ok := w.docs[uri]; ok && doc.prog != nil {
		for _, fn := range doc.prog.Functions.All() {
			name := fn.Name.String()
			if strings.HasPrefix(strings.ToLower(name), lower) {
				kind := protocol.CompletionItemKindFunction
				detail := fn.Signature()
				items = append(items, protocol.CompletionItem{
					Label:      name,
					Kind:       &kind,
					Detail:     &detail,
					InsertText: &name,
				})
			}
		}
	}

	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	return items
}

// Hover describes the function or keyword named word.
func (w *Workspace) Hover(uri, word string) *protocol.Hover {
	var b strings.Builder
	if doc, ok := w.docs[uri]; ok && doc.prog != nil {
		if fn, ok := doc.prog.Lookup(word); ok {
			fmt.Fprintf(&b, "**%s**\n\n", fn.Signature())
			fmt.Fprintf(&b, "Declared on line %d, %d instructions", fn.Line, fn.Body.Len())
			if fn.Depth > 0 {
				fmt.Fprintf(&b, ", nested %d deep", fn.Depth)
			}
		}
	}
	if b.Len() == 0 {
		kw := w.keywords.Lookup(container.TextOf(word))
		if kw == compiler.KwNone {
			return nil
		}
		fmt.Fprintf(&b, "**%s** (%s)\n\n%s", word, kw, keywordUsage(w.grammar, kw))
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
	}
}

// Definition locates the declaration of the function named word.
func (w *Workspace) Definition(uri, word string) []protocol.Location {
	doc, ok := w.docs[uri]
	if !ok || doc.prog == nil {
		return nil
	}
	fn, ok := doc.prog.Lookup(word)
	if !ok {
		return nil
	}
	line := protocol.UInteger(fn.Line - 1)
	return []protocol.Location{{
		URI: protocol.DocumentUri(uri),
		Range: protocol.Range{
			Start: protocol.Position{Line: line, Character: 0},
			End:   protocol.Position{Line: line, Character: protocol.UInteger(len(doc.lines[fn.Line-1]))},
		},
	}}
}

// References lists the gotofunc lines that call the function named word.
func (w *Workspace) References(uri, word string) []protocol.Location {
	doc, ok := w.docs[uri]
	if !ok || doc.prog == nil {
		return nil
	}
	var lines []int
	for _, fn := range doc.prog.Functions.All() {
		for _, ins := range fn.Body.All() {
			if w.keywords.Lookup(ins.Name) == compiler.KwGotoFunc && ins.Arg(0) == word {
				lines = append(lines, ins.Line)
			}
		}
	}
	slices.Sort(lines)

	locations := make([]protocol.Location, 0, len(lines))
	for _, l := range lines {
		idx := protocol.UInteger(l - 1)
		locations = append(locations, protocol.Location{
			URI: protocol.DocumentUri(uri),
			Range: protocol.Range{
				Start: protocol.Position{Line: idx, Character: 0},
				End:   protocol.Position{Line: idx, Character: protocol.UInteger(len(doc.lines[l-1]))},
			},
		})
	}
	return locations
}

func keywordUsage(g compiler.Grammar, kw compiler.Keyword) string {
	d, a := g.SetDelimiter, string(g.ArgDelimiter)+" "
	k := g.Keywords
	switch kw {
	case compiler.KwDeclare:
		return "`" + k.Declare + d + "name" + a + "param...`"
	case compiler.KwEnd:
		return "Closes the innermost open function and returns from it."
	case compiler.KwSet:
		return "`" + k.Set + d + "name" + a + "expression`"
	case compiler.KwAdd:
		return "`" + k.Add + d + "name" + a + "expression`"
	case compiler.KwGotoLine:
		return "`" + k.GotoLine + d + "index" + a + "condition`, index is 0-based within the function"
	case compiler.KwGotoFunc:
		return "`" + k.GotoFunc + d + "name" + a + "arg...`"
	case compiler.KwRead:
		return "`" + k.Read + d + "variable" + a + "file`"
	case compiler.KwWrite:
		return "`" + k.Write + d + "file" + a + "text...`"
	case compiler.KwSystem:
		return "`" + k.System + d + "command`"
	default:
		return "`" + k.Print + d + "text-or-variable...`"
	}
}
