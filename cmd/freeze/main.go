// Freeze CLI - runs line-oriented freeze scripts
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/freeze/host"
	"github.com/chazu/freeze/image"
	"github.com/chazu/freeze/manifest"
	"github.com/chazu/freeze/server"
	"github.com/chazu/freeze/vm"
)

func main() {
	configPath := flag.String("config", "", "Path to freeze.toml (default: search upward from the script)")
	mainEntry := flag.String("m", "", "Function to run (default: [run] entry, then main, then the first function)")
	output := flag.String("o", "", "Write the built program as an image instead of running it")
	cachePath := flag.String("cache", "", "SQLite database caching built programs")
	maxSteps := flag.Int("max-steps", -1, "Stop after this many instructions (0 for no limit)")
	verbose := flag.Int("v", -1, "Log verbosity (0 quiet .. 4 debug)")
	interactive := flag.Bool("i", false, "Start interactive REPL")
	lspMode := flag.Bool("lsp", false, "Start language server on stdio")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: freeze [options] [script|image]\n\n")
		fmt.Fprintf(os.Stderr, "Builds a script into its function table and runs one function.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  freeze hello.frz              # Run main in hello.frz\n")
		fmt.Fprintf(os.Stderr, "  freeze -m setup hello.frz     # Run setup instead\n")
		fmt.Fprintf(os.Stderr, "  freeze -o hello.img hello.frz # Save a prebuilt image\n")
		fmt.Fprintf(os.Stderr, "  freeze hello.img              # Run a prebuilt image\n")
		fmt.Fprintf(os.Stderr, "  freeze -i                     # Start REPL\n")
		fmt.Fprintf(os.Stderr, "  freeze -lsp                   # Serve editors over stdio\n")
	}
	flag.Parse()

	script := flag.Arg(0)
	m, err := loadManifest(*configPath, script)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	verbosity := m.Log.Verbosity
	if *verbose >= 0 {
		verbosity = *verbose
	}
	var logFile *string
	if m.Log.File != "" {
		logFile = &m.Log.File
	}
	commonlog.Configure(verbosity, logFile)

	grammar, err := m.CompilerGrammar()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *lspMode {
		if err := server.NewLSP(grammar).Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	steps := m.Run.MaxSteps
	if *maxSteps >= 0 {
		steps = *maxSteps
	}
	v, err := vm.NewVM(grammar,
		vm.WithEvaluator(host.NewEvaluator()),
		vm.WithHost(host.Stdio()),
		vm.WithMaxSteps(steps),
		vm.WithMaxCallDepth(m.Run.MaxCallDepth),
		vm.WithStrictIO(m.Run.StrictIO),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer v.Close()

	if script == "" {
		if *interactive || *mainEntry == "" {
			runREPL(v)
			return
		}
		flag.Usage()
		os.Exit(2)
	}

	cache := *cachePath
	if cache == "" {
		cache = m.CachePath()
	}
	prog, source, err := loadProgram(grammar, script, cache)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *output != "" {
		img, err := image.New(grammar, source, prog)
		prog.Release()
		if err == nil {
			err = image.WriteFile(*output, img)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	v.Load(prog)
	entry, err := resolveEntry(prog, *mainEntry, m.Run.Entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := v.Call(entry); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		v.Close()
		os.Exit(1)
	}

	if *interactive {
		runREPL(v)
	}
}

// loadManifest reads the explicit config, or the freeze.toml nearest the
// script, or falls back to defaults.
func loadManifest(configPath, script string) (*manifest.Manifest, error) {
	if configPath != "" {
		return manifest.LoadFile(configPath)
	}
	start := "."
	if script != "" {
		start = filepath.Dir(script)
	}
	m, err := manifest.FindAndLoad(start)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return manifest.Default(), nil
	}
	return m, nil
}
