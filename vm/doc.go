// Package vm executes programs built by the compiler package.
//
// A VM is one interpretation session: it owns the keyword table, the
// global bindings and the loaded function table. Execution walks a
// function body with an explicit program counter; gotoline moves the
// counter within the body and gotofunc pushes a call frame. Effects
// (print, read, write, system) and expression evaluation are delegated
// to the Host and Evaluator collaborators.
package vm
