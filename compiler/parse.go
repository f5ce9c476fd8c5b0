package compiler

import (
	"strings"

	"github.com/chazu/freeze/container"
)

// ---------------------------------------------------------------------------
// Instruction: one parsed source line
// ---------------------------------------------------------------------------

// Instruction is an instruction name with its argument list.
type Instruction struct {
	Name *container.Text
	Args *container.Owned[*container.Text]
	// Quoted runs parallel to Args: Quoted[i] reports whether argument i
	// was written with quotes and is therefore literal text.
	Quoted *container.Array[bool]
	Line   int // 1-based source line, 0 when not read from a source
}

// Release drops the name and every argument.
func (in *Instruction) Release() {
	in.Name.Release()
	in.Args.Release()
	if in.Quoted != nil {
		in.Quoted.DestroyShallow()
	}
}

// IsQuoted reports whether argument i was quoted in the source.
func (in *Instruction) IsQuoted(i int) bool {
	if in.Quoted == nil {
		return false
	}
	q, err := in.Quoted.Get(i)
	return err == nil && q
}

// QuotedFlags returns a copy of the quoted flag of every argument.
func (in *Instruction) QuotedFlags() []bool {
	out := make([]bool, in.Args.Len())
	for i := range out {
		out[i] = in.IsQuoted(i)
	}
	return out
}

// Arg returns argument i as a string, or "" when absent.
func (in *Instruction) Arg(i int) string {
	a, err := in.Args.Get(i)
	if err != nil {
		return ""
	}
	return a.String()
}

// ArgStrings returns copies of all arguments.
func (in *Instruction) ArgStrings() []string {
	out := make([]string, 0, in.Args.Len())
	for _, a := range in.Args.All() {
		out = append(out, a.String())
	}
	return out
}

func (in *Instruction) String() string {
	if in.Args.Len() == 0 {
		return in.Name.String()
	}
	return in.Name.String() + " " + strings.Join(in.ArgStrings(), ", ")
}

// ---------------------------------------------------------------------------
// Parse
// ---------------------------------------------------------------------------

const lineSpace = " \t\r\n"

// Parse splits line into an instruction name and its arguments.
//
// The name is everything before the first setDelim; the rest is split on
// argDelim. A `"` or `'` toggles quoted mode, in which argDelim is literal.
// Tabs outside quotes are dropped and unquoted spaces around an argument
// are trimmed. A line without setDelim, or too short to split, becomes a
// bare instruction whose name keeps only its alphanumeric characters.
func Parse(setDelim string, argDelim byte, line *container.Text) *Instruction {
	src := container.TextOf(strings.Trim(line.String(), lineSpace))
	in := &Instruction{
		Args:   container.NewOwned[*container.Text](0),
		Quoted: container.NewArray[bool](0),
	}

	if src.Len() <= container.MinSplitLen {
		in.Name = onlyWords(src)
		return in
	}
	head, tail, found, err := src.Split(setDelim)
	if err != nil || !found {
		in.Name = onlyWords(src)
		return in
	}
	in.Name = container.TextOf(strings.Trim(head.String(), lineSpace))
	splitOffQuotes(argDelim, tail, in.Args, in.Quoted)
	return in
}

// onlyWords keeps the alphanumeric characters of s.
func onlyWords(s *container.Text) *container.Text {
	out := container.NewText()
	for _, c := range s.Bytes() {
		if isAlnum(c) {
			out.AppendByte(c)
		}
	}
	return out
}

// splitOffQuotes splits payload on delim outside of quotes into args,
// recording in quoted whether each argument contained a quote.
// A payload holding nothing but whitespace yields no arguments; otherwise
// the last argument is added even when empty.
func splitOffQuotes(delim byte, payload *container.Text, args *container.Owned[*container.Text], quoted *container.Array[bool]) {
	if strings.Trim(payload.String(), lineSpace) == "" {
		return
	}

	cur := container.NewText()
	keep := 0 // length of cur up to its last quoted or non-space byte
	inString := false
	sawQuote := false
	flush := func() {
		cur.Truncate(keep)
		args.Add(cur)
		quoted.Add(sawQuote)
		cur = container.NewText()
		keep = 0
		sawQuote = false
	}

	for _, c := range payload.Bytes() {
		switch {
		case c == '"' || c == '\'':
			inString = !inString
			sawQuote = true
		case inString:
			cur.AppendByte(c)
			keep = cur.Len()
		case c == delim:
			flush()
		case c == '\t':
		case c == ' ':
			if cur.Len() > 0 {
				cur.AppendByte(c)
			}
		default:
			cur.AppendByte(c)
			keep = cur.Len()
		}
	}
	flush()
}
