// Package container provides the growable text buffer and the ordered,
// capacity-tracked arrays the interpreter is built on.
package container

import (
	"bytes"
	"errors"
	"fmt"
)

// TextInitialCapacity is the capacity of a freshly created Text.
const TextInitialCapacity = 5

// MinSplitLen is the shortest text Split will accept.
const MinSplitLen = 2

// MaxCapacity bounds every container so its length always fits the
// uint32 length prefix used by the binary format.
const MaxCapacity = 1<<31 - 1

var (
	ErrIndexOutOfBounds = errors.New("index out of bounds")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrAllocation       = errors.New("allocation failure")
)

// AllocationError is the panic value raised when a container cannot grow.
// Like bytes.ErrTooLarge it is not returned: correct execution cannot
// continue, so the session that owns the container recovers it.
type AllocationError struct {
	Need int
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("%v: cannot grow to %d elements", ErrAllocation, e.Need)
}

func (e *AllocationError) Unwrap() error { return ErrAllocation }

// growCapacity returns the capacity a container holding length elements
// must move to before accepting added more. The threshold argument is the
// largest length+added the current capacity can hold.
func growCapacity(capacity, length, added, threshold int) int {
	if length+added <= threshold {
		return capacity
	}
	next := capacity + added + length/2
	if next > MaxCapacity || next < capacity {
		panic(&AllocationError{Need: length + added})
	}
	return next
}

// ---------------------------------------------------------------------------
// Text: growable character buffer
// ---------------------------------------------------------------------------

// Text is a mutable byte buffer with an explicit capacity. The buffer always
// keeps room for one more byte than its length, so Len() < Cap() holds after
// every operation. Views returned by Bytes or String are copies; nothing
// aliases the internal buffer across a mutating call.
type Text struct {
	buf []byte // len(buf) is the text length, cap(buf) the capacity
}

// NewText returns an empty text.
func NewText() *Text {
	return newTextCap(TextInitialCapacity)
}

func newTextCap(capacity int) *Text {
	if capacity < 1 {
		capacity = 1
	}
	return &Text{buf: make([]byte, 0, capacity)}
}

// TextOf returns a text holding a copy of s.
func TextOf(s string) *Text {
	t := newTextCap(len(s) + TextInitialCapacity)
	t.buf = append(t.buf, s...)
	return t
}

// Clone returns a deep copy of t.
func (t *Text) Clone() *Text {
	c := newTextCap(len(t.buf) + TextInitialCapacity)
	c.buf = append(c.buf, t.buf...)
	return c
}

// Len returns the number of bytes in the text.
func (t *Text) Len() int { return len(t.buf) }

// Cap returns the allocated capacity.
func (t *Text) Cap() int { return cap(t.buf) }

// String returns a copy of the contents.
func (t *Text) String() string { return string(t.buf) }

// Bytes returns a copy of the contents.
func (t *Text) Bytes() []byte { return bytes.Clone(t.buf) }

// At returns the byte at index i.
func (t *Text) At(i int) (byte, error) {
	if i < 0 || i >= len(t.buf) {
		return 0, fmt.Errorf("%w: %d (length %d)", ErrIndexOutOfBounds, i, len(t.buf))
	}
	return t.buf[i], nil
}

// reserve makes room for added more bytes plus the terminator slot.
func (t *Text) reserve(added int) {
	next := growCapacity(cap(t.buf), len(t.buf), added, cap(t.buf)-2)
	if next == cap(t.buf) {
		return
	}
	grown := make([]byte, len(t.buf), next)
	copy(grown, t.buf)
	t.buf = grown
}

// Append appends s.
func (t *Text) Append(s string) {
	t.reserve(len(s))
	t.buf = append(t.buf, s...)
}

// AppendText appends the contents of o.
func (t *Text) AppendText(o *Text) {
	t.reserve(len(o.buf))
	t.buf = append(t.buf, o.buf...)
}

// AppendByte appends a single byte.
func (t *Text) AppendByte(c byte) {
	t.reserve(1)
	t.buf = append(t.buf, c)
}

// Truncate shortens the text to n bytes, keeping its capacity.
func (t *Text) Truncate(n int) {
	if n < 0 || n > len(t.buf) {
		return
	}
	t.buf = t.buf[:n]
}

// Reset empties the text without releasing capacity.
func (t *Text) Reset() {
	t.buf = t.buf[:0]
}

// Release drops the backing buffer. The text is empty afterwards and grows
// again from the initial capacity if reused.
func (t *Text) Release() {
	t.buf = make([]byte, 0, TextInitialCapacity)
}

// ToLower lowercases ASCII letters in place.
func (t *Text) ToLower() {
	for i, c := range t.buf {
		if 'A' <= c && c <= 'Z' {
			t.buf[i] = c + ('a' - 'A')
		}
	}
}

// Equals reports whether t and o hold the same bytes.
func (t *Text) Equals(o *Text) bool {
	if len(t.buf) != len(o.buf) {
		return false
	}
	return bytes.Equal(t.buf, o.buf)
}

// EqualsString reports whether t holds exactly s.
func (t *Text) EqualsString(s string) bool {
	if len(t.buf) != len(s) {
		return false
	}
	return string(t.buf) == s
}

// EqualsIgnoreCase compares under ASCII case folding.
func (t *Text) EqualsIgnoreCase(o *Text) bool {
	if len(t.buf) != len(o.buf) {
		return false
	}
	for i := range t.buf {
		if lower(t.buf[i]) != lower(o.buf[i]) {
			return false
		}
	}
	return true
}

func lower(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

// Split returns the texts before and after the first occurrence of delim.
// found is false when delim does not occur; an empty tail with found set
// is a valid result. Texts shorter than MinSplitLen cannot be split.
func (t *Text) Split(delim string) (head, tail *Text, found bool, err error) {
	if len(t.buf) < MinSplitLen {
		return nil, nil, false, fmt.Errorf("%w: cannot split text of length %d", ErrInvalidArgument, len(t.buf))
	}
	if delim == "" {
		return nil, nil, false, fmt.Errorf("%w: empty delimiter", ErrInvalidArgument)
	}
	idx := bytes.Index(t.buf, []byte(delim))
	if idx < 0 {
		return nil, nil, false, nil
	}
	head = newTextCap(idx + TextInitialCapacity)
	head.buf = append(head.buf, t.buf[:idx]...)
	rest := t.buf[idx+len(delim):]
	tail = newTextCap(len(rest) + TextInitialCapacity)
	tail.buf = append(tail.buf, rest...)
	return head, tail, true, nil
}
