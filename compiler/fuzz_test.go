package compiler

import (
	"bytes"
	"testing"

	"github.com/chazu/freeze/container"
)

// ---------------------------------------------------------------------------
// FuzzParse: the parser never panics and never yields an empty argument
// list for a whitespace-only payload.
// ---------------------------------------------------------------------------

func FuzzParse(f *testing.F) {
	seeds := []string{
		`print -> "hello"`,
		`x -> 1, "a,b", 3`,
		`print ->`,
		`set x, 1 + 2`,
		`gotoline 3, i < 10`,
		`print 'it,s', "  padded  "`,
		`print "unterminated`,
		"print a\t\tb",
		"functionend",
		"",
		"   ",
		"\t\r\n",
		"->",
		",,,",
		`"""`,
		"a b",
		"café -> naïve",
	}
	for _, s := range seeds {
		f.Add(s, "->")
		f.Add(s, " ")
	}

	f.Fuzz(func(t *testing.T, line, delim string) {
		if delim == "" {
			return
		}
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("parser panicked on %q with delimiter %q: %v", line, delim, r)
			}
		}()

		in := Parse(delim, ',', container.TextOf(line))
		defer in.Release()
		for _, a := range in.Args.All() {
			if a == nil {
				t.Fatalf("nil argument parsing %q", line)
			}
		}
	})
}

// ---------------------------------------------------------------------------
// FuzzBuild: building arbitrary source either fails with a line-tagged
// error or yields a program whose binary form round-trips.
// ---------------------------------------------------------------------------

func FuzzBuild(f *testing.F) {
	seeds := []string{
		nestedSource,
		"function f\n",
		"functionend\n",
		"print 1\n",
		"function f\nfunction f\nfunctionend\nfunctionend\n",
		"function\nfunction\nfunctionend\nfunctionend\n",
		"function a, b, c\n\tgotofunc a, 1, 2\nfunctionend\n",
		"",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, src string) {
		prog, err := BuildString(DefaultGrammar(), src)
		if err != nil {
			return
		}
		defer prog.Release()

		data, err := prog.MarshalBinary()
		if err != nil {
			t.Fatalf("MarshalBinary: %v", err)
		}
		got, err := UnmarshalProgram(data)
		if err != nil {
			t.Fatalf("UnmarshalProgram of a built program: %v", err)
		}
		defer got.Release()
		if got.Len() != prog.Len() {
			t.Fatalf("decoded %d functions, want %d", got.Len(), prog.Len())
		}
	})
}

// ---------------------------------------------------------------------------
// FuzzDecodeProgram: arbitrary bytes never panic the decoder.
// ---------------------------------------------------------------------------

func FuzzDecodeProgram(f *testing.F) {
	prog, err := BuildString(DefaultGrammar(), nestedSource)
	if err != nil {
		f.Fatal(err)
	}
	valid, err := prog.MarshalBinary()
	if err != nil {
		f.Fatal(err)
	}
	f.Add(valid)
	f.Add(valid[:len(valid)/2])
	f.Add(programMagic[:])
	f.Add([]byte{})
	f.Add([]byte("FRZP\x02\xff\xff\xff\x7f"))

	f.Fuzz(func(t *testing.T, data []byte) {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("decoder panicked: %v", r)
			}
		}()
		if p, err := DecodeProgram(bytes.NewReader(data)); err == nil {
			p.Release()
		}
	})
}
