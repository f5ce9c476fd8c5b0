package vm

import (
	"errors"
	"fmt"

	"github.com/chazu/freeze/container"
)

var (
	ErrUnknownInstruction = errors.New("unknown instruction")
	ErrUndefinedFunction  = errors.New("undefined function")
	ErrOutOfRange         = fmt.Errorf("jump target out of range: %w", container.ErrIndexOutOfBounds)
	ErrEvaluation         = errors.New("evaluation error")
	ErrErrno              = errors.New("i/o error")
	ErrArity              = errors.New("argument count mismatch")
	ErrMissingArgument    = errors.New("missing argument")
	ErrStepLimit          = errors.New("step limit exceeded")
	ErrCallDepth          = errors.New("call depth exceeded")
	ErrNoProgram          = errors.New("no program loaded")
)

// RuntimeError reports a failure while executing an instruction.
type RuntimeError struct {
	Function string // empty for instructions run outside any function
	Line     int    // 1-based source line, 0 when unknown
	Kind     error
	Detail   string
	Err      error // underlying collaborator error, if any
}

func (e *RuntimeError) Error() string {
	where := "line " + fmt.Sprint(e.Line)
	if e.Function != "" {
		where += " in " + e.Function
	}
	msg := fmt.Sprintf("%s: %v", where, e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RuntimeError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
