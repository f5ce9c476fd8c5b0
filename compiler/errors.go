package compiler

import (
	"errors"
	"fmt"
)

var (
	ErrStructural          = errors.New("structural error")
	ErrUnterminated        = fmt.Errorf("%w: unterminated function", ErrStructural)
	ErrDuplicateDefinition = errors.New("duplicate definition")
	ErrInvalidGrammar      = errors.New("invalid grammar")
	ErrCorruptProgram      = errors.New("corrupt program data")
)

// Error reports a problem found while building the function table.
type Error struct {
	Line   int // 1-based source line
	Kind   error
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %v: %s", e.Line, e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Kind }
