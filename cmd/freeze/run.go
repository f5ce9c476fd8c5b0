package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/chazu/freeze/compiler"
	"github.com/chazu/freeze/container"
	"github.com/chazu/freeze/image"
	"github.com/chazu/freeze/vm"
)

// loadProgram builds the script at path, or decodes it when it is an
// image. With a cache path, source builds go through the image cache.
func loadProgram(g compiler.Grammar, path, cachePath string) (*compiler.Program, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	if image.IsImage(data) {
		img, err := image.Unmarshal(data)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		prog, err := img.Decode(g)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		return prog, nil, nil
	}

	if cachePath != "" {
		cache, err := image.OpenCache(cachePath)
		if err != nil {
			return nil, nil, err
		}
		defer cache.Close()
		prog, err := cache.Build(g, data)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		return prog, data, nil
	}

	prog, err := compiler.BuildString(g, string(data))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return prog, data, nil
}

// resolveEntry picks the function to run: the flag, then the configured
// entry, then main, then the first declared function.
func resolveEntry(prog *compiler.Program, flagEntry, configEntry string) (string, error) {
	for _, name := range []string{flagEntry, configEntry} {
		if name == "" {
			continue
		}
		if _, ok := prog.Lookup(name); !ok {
			return "", fmt.Errorf("entry %q: %w", name, vm.ErrUndefinedFunction)
		}
		return name, nil
	}
	if _, ok := prog.Lookup("main"); ok {
		return "main", nil
	}
	if names := prog.Names(); len(names) > 0 {
		return names[0], nil
	}
	return "", errors.New("script declares no functions")
}

// runREPL executes lines in the global context until EOF.
func runREPL(v *vm.VM) {
	prompt := ""
	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Println("Freeze REPL (Ctrl-D to exit)")
		prompt = "> "
	}
	repl(v, os.Stdin, os.Stdout, os.Stderr, prompt)
}

func repl(v *vm.VM, in io.Reader, out, errOut io.Writer, prompt string) {
	g := v.Grammar
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, prompt)
		if !sc.Scan() {
			break
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		ins := compiler.Parse(g.SetDelimiter, g.ArgDelimiter, container.TextOf(line))
		if err := v.Exec(ins); err != nil {
			fmt.Fprintf(errOut, "Error: %v\n", err)
		}
		ins.Release()
	}
	if prompt != "" {
		fmt.Fprintln(out)
	}
}
