package compiler

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"

	"github.com/chazu/freeze/container"
	"github.com/chazu/freeze/value"
)

// ---------------------------------------------------------------------------
// Function and Program
// ---------------------------------------------------------------------------

// Function is a region of the script bounded by declare/end markers.
type Function struct {
	Name   *container.Text
	Params *container.Owned[*container.Text]
	Body   *container.Owned[*Instruction]
	// Locals persist across invocations of the function.
	Locals map[string]value.Value
	Line   int // line of the declaration
	Depth  int // nesting depth of the declaration, 0 for top level
}

func newFunction(name *container.Text, params *container.Owned[*container.Text], line, depth int) *Function {
	return &Function{
		Name:   name,
		Params: params,
		Body:   container.NewOwned[*Instruction](0),
		Locals: make(map[string]value.Value),
		Line:   line,
		Depth:  depth,
	}
}

// Release drops the function's name, parameters, body and locals.
func (f *Function) Release() {
	f.Name.Release()
	f.Params.Release()
	f.Body.Release()
	f.Locals = nil
}

// ParamNames returns copies of the parameter names.
func (f *Function) ParamNames() []string {
	out := make([]string, 0, f.Params.Len())
	for _, p := range f.Params.All() {
		out = append(out, p.String())
	}
	return out
}

// Signature renders the function as `name(a, b)`.
func (f *Function) Signature() string {
	return f.Name.String() + "(" + strings.Join(f.ParamNames(), ", ") + ")"
}

// Program is the function table: every function in declaration order.
type Program struct {
	Functions *container.Owned[*Function]
	index     map[string]int
}

func newProgram() *Program {
	return &Program{
		Functions: container.NewOwned[*Function](0),
		index:     make(map[string]int),
	}
}

func (p *Program) add(f *Function) error {
	name := f.Name.String()
	if _, dup := p.index[name]; dup {
		return fmt.Errorf("function %q already declared", name)
	}
	p.index[name] = p.Functions.Len()
	p.Functions.Add(f)
	return nil
}

// Lookup returns the function declared under name.
func (p *Program) Lookup(name string) (*Function, bool) {
	i, ok := p.index[name]
	if !ok {
		return nil, false
	}
	f, err := p.Functions.Get(i)
	if err != nil {
		return nil, false
	}
	return f, true
}

// Len returns the number of functions.
func (p *Program) Len() int { return p.Functions.Len() }

// Names returns function names in declaration order.
func (p *Program) Names() []string {
	out := make([]string, 0, p.Functions.Len())
	for _, f := range p.Functions.All() {
		out = append(out, f.Name.String())
	}
	return out
}

// Release drops every function.
func (p *Program) Release() {
	p.Functions.Release()
	clear(p.index)
}

// ---------------------------------------------------------------------------
// Builder: partitions parsed lines into functions
// ---------------------------------------------------------------------------

// Builder consumes source lines one at a time and assembles the function
// table. Declarations may nest; each instruction belongs to the innermost
// open function.
type Builder struct {
	grammar  Grammar
	keywords *KeywordTable
	prog     *Program
	open     []*Function // open[d] is the function active at depth d
	depth    int
	line     int
	scratch  *container.Text
}

// NewBuilder returns a builder for the given grammar.
func NewBuilder(g Grammar) (*Builder, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &Builder{
		grammar:  g,
		keywords: NewKeywordTable(g),
		prog:     newProgram(),
		scratch:  container.NewText(),
	}, nil
}

// Depth returns the number of currently open functions.
func (b *Builder) Depth() int { return b.depth }

func (b *Builder) errorf(kind error, format string, args ...any) error {
	return &Error{Line: b.line, Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// AddLine parses one raw source line and files it into the table.
func (b *Builder) AddLine(raw string) error {
	b.line++
	b.scratch.Reset()
	b.scratch.Append(raw)

	if strings.Trim(raw, lineSpace) == "" {
		return nil
	}
	ins := Parse(b.grammar.SetDelimiter, b.grammar.ArgDelimiter, b.scratch)
	ins.Line = b.line

	kw := b.keywords.Lookup(ins.Name)
	if kw == KwDeclare {
		return b.declare(ins)
	}

	if b.depth == 0 {
		name := ins.Name.String()
		if name == "" {
			name = strings.Trim(raw, lineSpace)
		}
		ins.Release()
		if kw == KwEnd {
			return b.errorf(ErrStructural, "%q without a matching declaration", name)
		}
		return b.errorf(ErrStructural, "instruction %q outside any function", name)
	}

	fn := b.open[b.depth-1]
	fn.Body.Add(ins)

	if kw == KwEnd {
		b.depth--
		b.open[b.depth] = nil
		b.open = b.open[:b.depth]
	}
	return nil
}

// declare opens a new function. The first argument names it and the rest
// become its parameters; with no arguments the function is keyed by its
// declaration index, which an explicit numeric name may already hold.
func (b *Builder) declare(ins *Instruction) error {
	var name *container.Text
	if ins.Args.Len() > 0 {
		first, _ := ins.Args.Take(0)
		if first.Len() > 0 {
			name = first
		} else {
			first.Release()
		}
	}
	unnamed := name == nil
	if unnamed {
		name = container.TextOf(strconv.Itoa(b.prog.Len()))
	}

	fn := newFunction(name, ins.Args, ins.Line, b.depth)
	ins.Name.Release()
	ins.Quoted.DestroyShallow()
	ins.Args = nil

	if prev, ok := b.prog.Lookup(fn.Name.String()); ok && unnamed {
		err := b.errorf(ErrDuplicateDefinition,
			"unnamed function %d is keyed %q, already declared at line %d; give it a name",
			b.prog.Len(), prev.Name.String(), prev.Line)
		fn.Release()
		return err
	}
	if err := b.prog.add(fn); err != nil {
		fn.Release()
		return b.errorf(ErrDuplicateDefinition, "%v", err)
	}
	b.open = append(b.open, fn)
	b.depth++
	return nil
}

// Finish returns the completed program. It fails when a function is still
// open. The builder can be reused afterwards.
func (b *Builder) Finish() (*Program, error) {
	defer b.reset()
	if b.depth != 0 {
		fn := b.open[b.depth-1]
		err := &Error{
			Line:   b.line,
			Kind:   ErrUnterminated,
			Detail: fmt.Sprintf("function %q declared at line %d has no %q", fn.Name.String(), fn.Line, b.grammar.Keywords.End),
		}
		b.prog.Release()
		return nil, err
	}
	return b.prog, nil
}

// Abort releases everything built so far.
func (b *Builder) Abort() {
	b.prog.Release()
	b.reset()
}

func (b *Builder) reset() {
	b.prog = newProgram()
	b.open = nil
	b.depth = 0
	b.line = 0
}

// Build assembles a program from a sequence of raw lines.
func Build(g Grammar, lines iter.Seq[string]) (*Program, error) {
	b, err := NewBuilder(g)
	if err != nil {
		return nil, err
	}
	for line := range lines {
		if err := b.AddLine(line); err != nil {
			b.Abort()
			return nil, err
		}
	}
	return b.Finish()
}

// BuildReader assembles a program from newline-delimited source.
func BuildReader(g Grammar, r io.Reader) (*Program, error) {
	b, err := NewBuilder(g)
	if err != nil {
		return nil, err
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		if err := b.AddLine(sc.Text()); err != nil {
			b.Abort()
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		b.Abort()
		return nil, fmt.Errorf("reading source: %w", err)
	}
	return b.Finish()
}

// BuildString assembles a program from source text.
func BuildString(g Grammar, src string) (*Program, error) {
	return BuildReader(g, strings.NewReader(src))
}
