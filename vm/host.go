package vm

import "github.com/chazu/freeze/value"

// Evaluator computes the value of an expression against variable bindings.
type Evaluator interface {
	Evaluate(expr string, env map[string]value.Value) (value.Value, error)
}

// Call is a print, read, write or system instruction handed to the Host
// verbatim. Quoted[i] reports whether Args[i] was written in quotes. Env
// holds the bindings visible to the instruction, locals shadowing globals.
type Call struct {
	Name   string
	Args   []string
	Quoted []bool
	Line   int
	Env    map[string]value.Value
}

// IsQuoted reports whether argument i was quoted.
func (c Call) IsQuoted(i int) bool {
	return i < len(c.Quoted) && c.Quoted[i]
}

// Host performs the effects the VM does not interpret itself. Each method
// blocks until the effect completes.
type Host interface {
	Print(call Call) error
	// Read returns text for the variable named by call.Args[0]; any further
	// arguments describe the source.
	Read(call Call) (string, error)
	Write(call Call) error
	// System runs a command and returns its exit status.
	System(call Call) (int, error)
}
