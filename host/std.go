package host

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/tliron/commonlog"
	"golang.org/x/term"

	"github.com/chazu/freeze/vm"
)

// Std is a vm.Host bound to a pair of streams and a working directory.
type Std struct {
	In  io.Reader
	Out io.Writer
	// Dir resolves relative paths for read, write and system. Empty means
	// the process working directory.
	Dir string
	// Prompt, if set, is shown before reading from an interactive stdin.
	Prompt string

	in  *bufio.Reader
	log commonlog.Logger
}

// NewStd returns a host reading from in and printing to out.
func NewStd(in io.Reader, out io.Writer) *Std {
	return &Std{
		In:  in,
		Out: out,
		log: commonlog.GetLogger("freeze.host"),
	}
}

// Stdio returns a host on the process's standard streams.
func Stdio() *Std { return NewStd(os.Stdin, os.Stdout) }

var _ vm.Host = (*Std)(nil)

// ---------------------------------------------------------------------------
// print
// ---------------------------------------------------------------------------

// Print writes its arguments back to back. An unquoted argument naming a
// bound variable prints the variable's value; anything else prints
// literally with surrounding quotes removed and backslash escapes decoded.
func (s *Std) Print(call vm.Call) error {
	if _, err := io.WriteString(s.Out, render(call, 0)); err != nil {
		return fmt.Errorf("%w: %v", vm.ErrErrno, err)
	}
	return nil
}

// render joins the arguments from index from on, substituting the values
// of unquoted arguments that name bound variables.
func render(call vm.Call, from int) string {
	var b strings.Builder
	for i := from; i < len(call.Args); i++ {
		arg := call.Args[i]
		if v, ok := call.Env[arg]; ok && !call.IsQuoted(i) {
			b.WriteString(v.String())
			continue
		}
		b.WriteString(Unescape(Unquote(arg)))
	}
	return b.String()
}

// Unquote strips one pair of matching surrounding quotes.
func Unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// Unescape decodes \n, \t, \r, \\ and \" sequences. Unknown escapes are
// kept as written.
func Unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\', '"', '\'':
			b.WriteByte(s[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// ---------------------------------------------------------------------------
// read / write
// ---------------------------------------------------------------------------

// Read returns one line from the input stream, or the whole contents of
// the file named by the second argument.
func (s *Std) Read(call vm.Call) (string, error) {
	if len(call.Args) > 1 {
		data, err := os.ReadFile(s.path(call.Args[1]))
		if err != nil {
			return "", fmt.Errorf("%w: %v", vm.ErrErrno, err)
		}
		return string(data), nil
	}

	if s.in == nil {
		s.in = bufio.NewReader(s.In)
	}
	if s.Prompt != "" && s.interactive() {
		fmt.Fprint(s.Out, s.Prompt)
	}
	line, err := s.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("%w: reading %s: %v", vm.ErrErrno, call.Args[0], err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (s *Std) interactive() bool {
	f, ok := s.In.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Write appends the remaining arguments, rendered as for Print, to the
// file named by the first argument.
func (s *Std) Write(call vm.Call) error {
	if len(call.Args) == 0 {
		return fmt.Errorf("%w: write needs a file name", vm.ErrErrno)
	}
	f, err := os.OpenFile(s.path(call.Args[0]), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %v", vm.ErrErrno, err)
	}
	defer f.Close()

	if _, err := f.WriteString(render(call, 1)); err != nil {
		return fmt.Errorf("%w: %v", vm.ErrErrno, err)
	}
	return nil
}

func (s *Std) path(name string) string {
	name = Unquote(name)
	if s.Dir == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.Dir, name)
}

// ---------------------------------------------------------------------------
// system
// ---------------------------------------------------------------------------

// System runs the arguments, joined by spaces, through the platform shell
// and returns its exit status. A non-zero status is not an error.
func (s *Std) System(call vm.Call) (int, error) {
	parts := make([]string, len(call.Args))
	for i, arg := range call.Args {
		parts[i] = Unquote(arg)
	}
	line := strings.Join(parts, " ")
	if strings.TrimSpace(line) == "" {
		return 0, fmt.Errorf("%w: empty command", vm.ErrErrno)
	}

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("cmd", "/C", line)
	} else {
		cmd = exec.Command("sh", "-c", line)
	}
	cmd.Dir = s.Dir
	cmd.Stdin = s.In
	cmd.Stdout = s.Out
	cmd.Stderr = os.Stderr

	s.log.Debugf("line %d: system %q", call.Line, line)
	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, fmt.Errorf("%w: %v", vm.ErrErrno, err)
	}
	return 0, nil
}
