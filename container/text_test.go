package container

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestTextAppendTracksLength(t *testing.T) {
	txt := NewText()
	if txt.Len() != 0 || txt.Cap() == 0 {
		t.Fatalf("new text: len=%d cap=%d", txt.Len(), txt.Cap())
	}

	var want strings.Builder
	pieces := []string{"a", "bc", "", "defghijklmnop", "q", strings.Repeat("xyz", 40)}
	for _, p := range pieces {
		txt.Append(p)
		want.WriteString(p)
		if txt.Len() != want.Len() {
			t.Fatalf("after Append(%q): len = %d, want %d", p, txt.Len(), want.Len())
		}
		if txt.Len() >= txt.Cap() {
			t.Fatalf("after Append(%q): len %d not below cap %d", p, txt.Len(), txt.Cap())
		}
	}
	for i := 0; i < 100; i++ {
		c := byte('a' + i%26)
		txt.AppendByte(c)
		want.WriteByte(c)
		if txt.Len() >= txt.Cap() {
			t.Fatalf("after AppendByte: len %d not below cap %d", txt.Len(), txt.Cap())
		}
	}
	if txt.String() != want.String() {
		t.Errorf("contents = %q, want %q", txt.String(), want.String())
	}
}

func TestTextGrowthIsAmortized(t *testing.T) {
	txt := NewText()
	grows := 0
	last := txt.Cap()
	for i := 0; i < 10000; i++ {
		txt.AppendByte('x')
		if txt.Cap() != last {
			grows++
			last = txt.Cap()
		}
	}
	if grows > 40 {
		t.Errorf("capacity changed %d times for 10000 appends", grows)
	}
}

func TestTextCopiesDoNotAlias(t *testing.T) {
	src := TextOf("hello")
	clone := src.Clone()
	b := src.Bytes()
	src.Append(" world")
	b[0] = 'J'

	if clone.String() != "hello" {
		t.Errorf("clone = %q, want hello", clone.String())
	}
	if src.String() != "hello world" {
		t.Errorf("src = %q, want %q", src.String(), "hello world")
	}
}

func TestTextEquality(t *testing.T) {
	tests := []struct {
		a, b      string
		equal     bool
		equalFold bool
	}{
		{"print", "print", true, true},
		{"Print", "print", false, true},
		{"print", "prin", false, false},
		{"", "", true, true},
		{"GOTOLINE", "gotoline", false, true},
		{"abc", "abd", false, false},
	}
	for _, tc := range tests {
		a, b := TextOf(tc.a), TextOf(tc.b)
		if got := a.Equals(b); got != tc.equal {
			t.Errorf("Equals(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.equal)
		}
		if got := a.EqualsString(tc.b); got != tc.equal {
			t.Errorf("EqualsString(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.equal)
		}
		if got := a.EqualsIgnoreCase(b); got != tc.equalFold {
			t.Errorf("EqualsIgnoreCase(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.equalFold)
		}
	}
}

func TestTextSplit(t *testing.T) {
	tests := []struct {
		input, delim string
		found        bool
		head, tail   string
	}{
		{"print hello", " ", true, "print", "hello"},
		{"print ->", "->", true, "print ", ""},
		{`print -> "hello"`, "->", true, "print ", ` "hello"`},
		{"functionend", " ", false, "", ""},
		{"a b c", " ", true, "a", "b c"},
	}
	for _, tc := range tests {
		head, tail, found, err := TextOf(tc.input).Split(tc.delim)
		if err != nil {
			t.Fatalf("Split(%q): %v", tc.input, err)
		}
		if found != tc.found {
			t.Errorf("Split(%q) found = %v, want %v", tc.input, found, tc.found)
			continue
		}
		if !found {
			continue
		}
		if head.String() != tc.head || tail.String() != tc.tail {
			t.Errorf("Split(%q) = (%q, %q), want (%q, %q)", tc.input, head, tail, tc.head, tc.tail)
		}
	}
}

func TestTextSplitTooShort(t *testing.T) {
	for _, s := range []string{"", "a"} {
		_, _, _, err := TextOf(s).Split(" ")
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Split(%q) err = %v, want ErrInvalidArgument", s, err)
		}
	}
}

func TestTextResetKeepsCapacity(t *testing.T) {
	txt := TextOf(strings.Repeat("x", 50))
	capBefore := txt.Cap()
	txt.Reset()
	if txt.Len() != 0 {
		t.Errorf("len after Reset = %d", txt.Len())
	}
	if txt.Cap() != capBefore {
		t.Errorf("cap after Reset = %d, want %d", txt.Cap(), capBefore)
	}
	txt.Append("again")
	if txt.String() != "again" {
		t.Errorf("contents after reuse = %q", txt.String())
	}
}

func TestTextToLower(t *testing.T) {
	txt := TextOf("GotoFunc_42 Ä")
	txt.ToLower()
	if txt.String() != "gotofunc_42 Ä" {
		t.Errorf("ToLower = %q", txt.String())
	}
}

func TestTextAt(t *testing.T) {
	txt := TextOf("ab")
	if c, err := txt.At(1); err != nil || c != 'b' {
		t.Errorf("At(1) = %q, %v", c, err)
	}
	if _, err := txt.At(2); !errors.Is(err, ErrIndexOutOfBounds) {
		t.Errorf("At(2) err = %v, want ErrIndexOutOfBounds", err)
	}
}

func TestTextSerializeRoundTrip(t *testing.T) {
	for _, s := range []string{"", "x", "hello, world", strings.Repeat("\x00\xff", 300)} {
		var buf bytes.Buffer
		n, err := TextOf(s).WriteTo(&buf)
		if err != nil {
			t.Fatalf("WriteTo: %v", err)
		}
		if n != int64(4+len(s)) {
			t.Errorf("WriteTo wrote %d bytes, want %d", n, 4+len(s))
		}
		got, err := ReadText(&buf)
		if err != nil {
			t.Fatalf("ReadText: %v", err)
		}
		if got.Len() != len(s) || got.String() != s {
			t.Errorf("round trip = %q (len %d), want %q", got.String(), got.Len(), s)
		}
		if got.Len() >= got.Cap() {
			t.Errorf("deserialized len %d not below cap %d", got.Len(), got.Cap())
		}
	}
}

func TestReadTextTruncated(t *testing.T) {
	var buf bytes.Buffer
	TextOf("hello").WriteTo(&buf)
	data := buf.Bytes()[:6]
	if _, err := ReadText(bytes.NewReader(data)); err == nil {
		t.Error("expected error for truncated text")
	}
}

func TestGrowCapacityPanicsPastMaximum(t *testing.T) {
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrAllocation) {
			t.Errorf("recovered %v, want ErrAllocation", r)
		}
	}()
	growCapacity(MaxCapacity-1, MaxCapacity-2, 10, MaxCapacity-3)
}
