package vm

import (
	"errors"
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/chazu/freeze/compiler"
	"github.com/chazu/freeze/container"
	"github.com/chazu/freeze/value"
)

// ---------------------------------------------------------------------------
// Execution state
// ---------------------------------------------------------------------------

// State is the execution state of a session.
type State int

const (
	Halted State = iota
	Running
	Jumping
)

func (s State) String() string {
	switch s {
	case Halted:
		return "halted"
	case Running:
		return "running"
	case Jumping:
		return "jumping"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// frame is one activation: the function being walked and its program counter.
type frame struct {
	fn *compiler.Function
	pc int
}

// ---------------------------------------------------------------------------
// Entry points
// ---------------------------------------------------------------------------

// Call runs the named function to completion. args are bound to the
// function's parameters by position.
func (v *VM) Call(name string, args ...value.Value) error {
	if v.program == nil {
		return ErrNoProgram
	}
	fn, ok := v.program.Lookup(name)
	if !ok {
		return &RuntimeError{Kind: ErrUndefinedFunction, Detail: strconv.Quote(name)}
	}
	if fn.Params.Len() != len(args) {
		return &RuntimeError{
			Function: name,
			Line:     fn.Line,
			Kind:     ErrArity,
			Detail:   fmt.Sprintf("%s takes %d arguments, got %d", fn.Signature(), fn.Params.Len(), len(args)),
		}
	}
	for i, p := range fn.Params.All() {
		fn.Locals[p.String()] = args[i]
	}

	v.frames = v.frames[:0]
	v.steps = 0
	v.frames = append(v.frames, frame{fn: fn})
	v.log.Debugf("call %s", fn.Signature())
	return v.run()
}

// Exec runs a single instruction outside any function. Bindings go to the
// globals; gotoline and the end marker have no meaning there.
func (v *VM) Exec(ins *compiler.Instruction) (err error) {
	defer recoverAllocation(&err, "", ins.Line)
	v.state = Running
	defer func() { v.state = Halted }()
	return v.step(nil, ins)
}

// run walks frames until the call stack empties or an instruction fails.
func (v *VM) run() (err error) {
	v.state = Running
	line := 0 // source line of the instruction being executed
	defer func() {
		if r := recover(); r != nil {
			aerr, ok := r.(*container.AllocationError)
			if !ok {
				panic(r)
			}
			err = &RuntimeError{Function: v.currentName(), Line: line, Kind: container.ErrAllocation, Err: aerr}
		}
		if err != nil {
			v.log.Errorf("%v", err)
			v.frames = v.frames[:0]
		}
		v.state = Halted
	}()

	for len(v.frames) > 0 {
		top := len(v.frames) - 1
		fr := &v.frames[top]
		if fr.pc >= fr.fn.Body.Len() {
			v.ret()
			continue
		}
		ins, err := fr.fn.Body.Get(fr.pc)
		if err != nil {
			return &RuntimeError{Function: fr.fn.Name.String(), Kind: ErrOutOfRange, Err: err}
		}
		line = ins.Line
		if v.maxSteps > 0 && v.steps >= v.maxSteps {
			return &RuntimeError{
				Function: fr.fn.Name.String(),
				Line:     ins.Line,
				Kind:     ErrStepLimit,
				Detail:   fmt.Sprintf("after %d instructions", v.steps),
			}
		}
		v.steps++
		v.state = Running
		if err := v.step(fr, ins); err != nil {
			return err
		}
	}
	return nil
}

// ret pops the top frame and resumes the caller after its gotofunc.
func (v *VM) ret() {
	v.frames = v.frames[:len(v.frames)-1]
	if n := len(v.frames); n > 0 {
		v.frames[n-1].pc++
	}
}

func (v *VM) currentName() string {
	if n := len(v.frames); n > 0 {
		return v.frames[n-1].fn.Name.String()
	}
	return ""
}

func recoverAllocation(err *error, fn string, line int) {
	r := recover()
	if r == nil {
		return
	}
	aerr, ok := r.(*container.AllocationError)
	if !ok {
		panic(r)
	}
	*err = &RuntimeError{Function: fn, Line: line, Kind: container.ErrAllocation, Err: aerr}
}

// ---------------------------------------------------------------------------
// Dispatch
// ---------------------------------------------------------------------------

// step executes ins in fr, or in the global context when fr is nil, and
// moves the program counter.
func (v *VM) step(fr *frame, ins *compiler.Instruction) error {
	kw := v.keywords.Lookup(ins.Name)
	var err error
	switch kw {
	case compiler.KwSet, compiler.KwAdd:
		err = v.assign(fr, ins, kw == compiler.KwAdd)
	case compiler.KwGotoLine:
		// A taken jump sets pc itself.
		var jumped bool
		jumped, err = v.gotoLine(fr, ins)
		if err == nil && jumped {
			return nil
		}
	case compiler.KwGotoFunc:
		// The caller's pc advances when the callee returns.
		var called bool
		called, err = v.gotoFunc(fr, ins)
		if err == nil && called {
			return nil
		}
	case compiler.KwEnd:
		if fr == nil {
			return v.fail(fr, ins, ErrUnknownInstruction, "end marker outside any function", nil)
		}
		v.ret()
		return nil
	case compiler.KwPrint, compiler.KwRead, compiler.KwWrite, compiler.KwSystem:
		err = v.forward(fr, ins, kw)
	default:
		return v.fail(fr, ins, ErrUnknownInstruction, strconv.Quote(ins.Name.String()), nil)
	}
	if err != nil {
		return err
	}
	if fr != nil {
		fr.pc++
	}
	return nil
}

func (v *VM) fail(fr *frame, ins *compiler.Instruction, kind error, detail string, err error) error {
	name := ""
	if fr != nil {
		name = fr.fn.Name.String()
	}
	return &RuntimeError{Function: name, Line: ins.Line, Kind: kind, Detail: detail, Err: err}
}

// env returns the bindings visible in fr: globals overlaid by locals.
func (v *VM) env(fr *frame) map[string]value.Value {
	env := maps.Clone(v.Globals)
	if fr != nil {
		maps.Copy(env, fr.fn.Locals)
	}
	return env
}

// expression re-joins the arguments starting at index from; the argument
// delimiter may legitimately appear inside an expression.
func (v *VM) expression(ins *compiler.Instruction, from int) string {
	args := ins.ArgStrings()
	if from >= len(args) {
		return ""
	}
	return strings.Join(args[from:], string(v.Grammar.ArgDelimiter))
}

// literal reports whether the arguments from index from on were all
// quoted, making them text rather than an expression.
func literal(ins *compiler.Instruction, from int) bool {
	if from >= ins.Args.Len() {
		return false
	}
	for i := from; i < ins.Args.Len(); i++ {
		if !ins.IsQuoted(i) {
			return false
		}
	}
	return true
}

func (v *VM) evaluate(fr *frame, ins *compiler.Instruction, expr string) (value.Value, error) {
	if v.evaluator == nil {
		return value.Value{}, v.fail(fr, ins, ErrEvaluation, "no evaluator configured", nil)
	}
	val, err := v.evaluator.Evaluate(expr, v.env(fr))
	if err != nil {
		return value.Value{}, v.fail(fr, ins, ErrEvaluation, strconv.Quote(expr), err)
	}
	return val, nil
}

// ---------------------------------------------------------------------------
// Variables
// ---------------------------------------------------------------------------

func (v *VM) scope(fr *frame) map[string]value.Value {
	if fr == nil {
		return v.Globals
	}
	return fr.fn.Locals
}

// assign implements set and add. add accumulates into whichever scope
// already binds the name, preferring locals; an unbound name is bound in
// the current scope.
func (v *VM) assign(fr *frame, ins *compiler.Instruction, accumulate bool) error {
	name := ins.Arg(0)
	if name == "" {
		return v.fail(fr, ins, ErrMissingArgument, "variable name", nil)
	}
	var val value.Value
	if literal(ins, 1) {
		val = value.String(v.expression(ins, 1))
	} else {
		expr := v.expression(ins, 1)
		if strings.TrimSpace(expr) == "" {
			return v.fail(fr, ins, ErrMissingArgument, "expression for "+strconv.Quote(name), nil)
		}
		var err error
		if val, err = v.evaluate(fr, ins, expr); err != nil {
			return err
		}
	}

	target := v.scope(fr)
	if accumulate {
		if fr != nil {
			if _, ok := fr.fn.Locals[name]; !ok {
				if _, ok := v.Globals[name]; ok {
					target = v.Globals
				}
			}
		}
		if prev, ok := target[name]; ok {
			sum, err := prev.Add(val)
			if err != nil {
				return v.fail(fr, ins, ErrEvaluation, name, err)
			}
			val = sum
		}
	}
	target[name] = val
	return nil
}

// ---------------------------------------------------------------------------
// Control flow
// ---------------------------------------------------------------------------

// gotoLine moves pc to a 0-based index in the current body. With a
// condition argument the jump is taken only when it is truthy.
func (v *VM) gotoLine(fr *frame, ins *compiler.Instruction) (bool, error) {
	if fr == nil {
		return false, v.fail(fr, ins, ErrOutOfRange, "no function body to jump in", nil)
	}
	raw := ins.Arg(0)
	if raw == "" {
		return false, v.fail(fr, ins, ErrMissingArgument, "jump target", nil)
	}

	if ins.Args.Len() > 1 {
		cond, err := v.evaluate(fr, ins, v.expression(ins, 1))
		if err != nil {
			return false, err
		}
		if !cond.Truthy() {
			return false, nil
		}
	}

	target, err := strconv.Atoi(raw)
	if err != nil {
		val, err := v.evaluate(fr, ins, raw)
		if err != nil {
			return false, err
		}
		idx, ok := val.AsIndex()
		if !ok {
			return false, v.fail(fr, ins, ErrEvaluation, fmt.Sprintf("jump target %s is not an integer", val), nil)
		}
		target = idx
	}
	if target < 0 || target >= fr.fn.Body.Len() {
		return false, v.fail(fr, ins, ErrOutOfRange,
			fmt.Sprintf("target %d outside [0, %d)", target, fr.fn.Body.Len()), nil)
	}

	v.state = Jumping
	fr.pc = target
	return true, nil
}

// gotoFunc pushes a frame for the named function after binding the
// evaluated arguments to its parameters.
func (v *VM) gotoFunc(fr *frame, ins *compiler.Instruction) (bool, error) {
	name := ins.Arg(0)
	if name == "" {
		return false, v.fail(fr, ins, ErrMissingArgument, "function name", nil)
	}
	if v.program == nil {
		return false, v.fail(fr, ins, ErrNoProgram, name, nil)
	}
	callee, ok := v.program.Lookup(name)
	if !ok {
		return false, v.fail(fr, ins, ErrUndefinedFunction, strconv.Quote(name), nil)
	}
	nargs := ins.Args.Len() - 1
	if nargs != callee.Params.Len() {
		return false, v.fail(fr, ins, ErrArity,
			fmt.Sprintf("%s takes %d arguments, got %d", callee.Signature(), callee.Params.Len(), nargs), nil)
	}
	if len(v.frames) >= v.maxCallDepth {
		return false, v.fail(fr, ins, ErrCallDepth, fmt.Sprintf("%d frames", len(v.frames)), nil)
	}

	// Evaluate every argument before binding any, so a parameter named
	// like a caller variable sees the caller's value.
	vals := make([]value.Value, nargs)
	for i := range nargs {
		if ins.IsQuoted(i + 1) {
			vals[i] = value.String(ins.Arg(i + 1))
			continue
		}
		val, err := v.evaluate(fr, ins, ins.Arg(i+1))
		if err != nil {
			return false, err
		}
		vals[i] = val
	}
	for i, p := range callee.Params.All() {
		callee.Locals[p.String()] = vals[i]
	}

	if fr == nil {
		// From the global context the callee runs to completion here,
		// with its own step budget.
		v.frames = append(v.frames[:0], frame{fn: callee})
		v.steps = 0
		return true, v.run()
	}
	v.frames = append(v.frames, frame{fn: callee})
	return true, nil
}

// ---------------------------------------------------------------------------
// Collaborators
// ---------------------------------------------------------------------------

func (v *VM) forward(fr *frame, ins *compiler.Instruction, kw compiler.Keyword) error {
	if v.host == nil {
		return v.fail(fr, ins, ErrErrno, "no host configured for "+kw.String(), nil)
	}
	call := Call{
		Name: ins.Name.String(),
		Args:   ins.ArgStrings(),
		Quoted: ins.QuotedFlags(),
		Line:   ins.Line,
		Env:    v.env(fr),
	}

	var err error
	switch kw {
	case compiler.KwPrint:
		err = v.host.Print(call)
	case compiler.KwWrite:
		err = v.host.Write(call)
	case compiler.KwSystem:
		var status int
		status, err = v.host.System(call)
		if err == nil && status != 0 {
			v.log.Infof("line %d: %s exited with status %d", ins.Line, call.Name, status)
		}
	case compiler.KwRead:
		if len(call.Args) == 0 || call.Args[0] == "" {
			return v.fail(fr, ins, ErrMissingArgument, "variable to read into", nil)
		}
		var text string
		text, err = v.host.Read(call)
		if err == nil {
			v.scope(fr)[call.Args[0]] = value.String(text)
		}
	}
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrEvaluation) {
		return v.fail(fr, ins, ErrEvaluation, kw.String(), err)
	}
	rerr := v.fail(fr, ins, ErrErrno, kw.String(), err)
	if v.strictIO {
		return rerr
	}
	v.log.Warningf("%v", rerr)
	return nil
}
