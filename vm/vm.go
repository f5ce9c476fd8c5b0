package vm

import (
	"github.com/tliron/commonlog"

	"github.com/chazu/freeze/compiler"
	"github.com/chazu/freeze/value"
)

// DefaultMaxCallDepth bounds the call stack unless overridden.
const DefaultMaxCallDepth = 1024

// ---------------------------------------------------------------------------
// VM: one interpretation session
// ---------------------------------------------------------------------------

// VM holds the state of one interpretation session. It is not safe for
// concurrent use.
type VM struct {
	Grammar compiler.Grammar
	Globals map[string]value.Value

	keywords  *compiler.KeywordTable
	program   *compiler.Program
	evaluator Evaluator
	host      Host
	log       commonlog.Logger

	frames []frame
	state  State
	steps  int

	maxSteps     int
	maxCallDepth int
	strictIO     bool
}

// Option configures a VM.
type Option func(*VM)

// WithEvaluator sets the expression evaluator.
func WithEvaluator(e Evaluator) Option {
	return func(v *VM) { v.evaluator = e }
}

// WithHost sets the collaborator for print, read, write and system.
func WithHost(h Host) Option {
	return func(v *VM) { v.host = h }
}

// WithMaxSteps stops a run after n instructions; 0 means no limit.
func WithMaxSteps(n int) Option {
	return func(v *VM) { v.maxSteps = n }
}

// WithMaxCallDepth bounds the number of nested gotofunc frames.
func WithMaxCallDepth(n int) Option {
	return func(v *VM) {
		if n > 0 {
			v.maxCallDepth = n
		}
	}
}

// WithStrictIO makes collaborator I/O failures halt execution instead of
// being logged.
func WithStrictIO(strict bool) Option {
	return func(v *VM) { v.strictIO = strict }
}

// WithLogger replaces the default "freeze.vm" logger.
func WithLogger(l commonlog.Logger) Option {
	return func(v *VM) { v.log = l }
}

// NewVM creates a session for the given grammar. The grammar must be valid.
func NewVM(g compiler.Grammar, opts ...Option) (*VM, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	v := &VM{
		Grammar:      g,
		Globals:      make(map[string]value.Value),
		keywords:     compiler.NewKeywordTable(g),
		log:          commonlog.GetLogger("freeze.vm"),
		state:        Halted,
		maxCallDepth: DefaultMaxCallDepth,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Load installs p as the session's function table. The VM takes ownership
// of p and releases any previously loaded program.
func (v *VM) Load(p *compiler.Program) {
	if v.program != nil && v.program != p {
		v.program.Release()
	}
	v.program = p
}

// Program returns the loaded function table, or nil.
func (v *VM) Program() *compiler.Program { return v.program }

// State returns the state of the current or most recent run.
func (v *VM) State() State { return v.state }

// Steps returns the number of instructions executed by the most recent run.
func (v *VM) Steps() int { return v.steps }

// SetGlobal binds a global variable.
func (v *VM) SetGlobal(name string, val value.Value) {
	v.Globals[name] = val
}

// Close releases the function table and the bound keywords.
func (v *VM) Close() {
	if v.program != nil {
		v.program.Release()
		v.program = nil
	}
	v.keywords.Release()
	v.frames = nil
	clear(v.Globals)
	v.state = Halted
}
