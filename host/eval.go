// Package host provides the default collaborators for the freeze VM: an
// expression evaluator backed by expr-lang and a Host that talks to the
// process's standard streams, the filesystem and the platform shell.
package host

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"

	"github.com/chazu/freeze/value"
	"github.com/chazu/freeze/vm"
)

// maxCompiled bounds the compiled-expression cache.
const maxCompiled = 4096

// Evaluator evaluates expressions with expr-lang. Compiled programs are
// cached by source text since scripts loop over the same lines.
type Evaluator struct {
	compiled map[string]*exprvm.Program
}

// NewEvaluator returns an evaluator with an empty cache.
func NewEvaluator() *Evaluator {
	return &Evaluator{compiled: make(map[string]*exprvm.Program)}
}

// Evaluate compiles src (once) and runs it against env. Failures wrap
// vm.ErrEvaluation.
func (e *Evaluator) Evaluate(src string, env map[string]value.Value) (value.Value, error) {
	prog, err := e.compile(src)
	if err != nil {
		return value.Value{}, err
	}

	bindings := make(map[string]any, len(env))
	for name, v := range env {
		bindings[name] = v.Interface()
	}
	out, err := expr.Run(prog, bindings)
	if err != nil {
		return value.Value{}, fmt.Errorf("%w: %v", vm.ErrEvaluation, err)
	}
	if out == nil {
		// The parser strips quotes, so a lone unbound word is a string.
		if word := strings.TrimSpace(src); isWord(word) {
			return value.String(word), nil
		}
		return value.Value{}, fmt.Errorf("%w: %q has no value", vm.ErrEvaluation, src)
	}
	v, err := value.FromInterface(out)
	if err != nil {
		return value.Value{}, fmt.Errorf("%w: %v", vm.ErrEvaluation, err)
	}
	return v, nil
}

func (e *Evaluator) compile(src string) (*exprvm.Program, error) {
	if prog, ok := e.compiled[src]; ok {
		return prog, nil
	}
	prog, err := expr.Compile(src, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vm.ErrEvaluation, err)
	}
	if len(e.compiled) >= maxCompiled {
		clear(e.compiled)
	}
	e.compiled[src] = prog
	return prog, nil
}

func isWord(s string) bool {
	if s == "" || s == "nil" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}
