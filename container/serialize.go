package container

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ---------------------------------------------------------------------------
// Binary format: little-endian uint32 length prefix followed by contents
// ---------------------------------------------------------------------------

// WriteUint32 writes n as four little-endian bytes.
func WriteUint32(w io.Writer, n uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], n)
	_, err := w.Write(b[:])
	return err
}

// ReadUint32 reads four little-endian bytes.
func ReadUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// preallocLimit caps capacity reserved from a length prefix before the
// contents have been read.
const preallocLimit = 1 << 16

type textWriter struct{ t *Text }

func (w textWriter) Write(p []byte) (int, error) {
	w.t.Append(string(p))
	return len(p), nil
}

func readLength(r io.Reader) (int, error) {
	n, err := ReadUint32(r)
	if err != nil {
		return 0, err
	}
	if n > MaxCapacity {
		return 0, fmt.Errorf("%w: length prefix %d exceeds maximum", ErrInvalidArgument, n)
	}
	return int(n), nil
}

// WriteTo writes the length-prefixed text to w.
func (t *Text) WriteTo(w io.Writer) (int64, error) {
	if err := WriteUint32(w, uint32(len(t.buf))); err != nil {
		return 0, err
	}
	n, err := w.Write(t.buf)
	return int64(n) + 4, err
}

// ReadText reads a text written by Text.WriteTo.
func ReadText(r io.Reader) (*Text, error) {
	n, err := readLength(r)
	if err != nil {
		return nil, fmt.Errorf("reading text length: %w", err)
	}
	// The prefix is untrusted; grow with the bytes actually read.
	t := newTextCap(min(n, preallocLimit) + TextInitialCapacity)
	got, err := io.Copy(textWriter{t}, io.LimitReader(r, int64(n)))
	if err == nil && got < int64(n) {
		err = io.ErrUnexpectedEOF
	}
	if err != nil {
		return nil, fmt.Errorf("reading text contents: %w", err)
	}
	return t, nil
}

// WriteArray writes the element count followed by each element encoded with enc.
func WriteArray[T any](w io.Writer, a *Array[T], enc func(io.Writer, T) error) error {
	if err := WriteUint32(w, uint32(a.Len())); err != nil {
		return err
	}
	for i, item := range a.All() {
		if err := enc(w, item); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

// ReadArray reads an array written by WriteArray, decoding elements with dec.
func ReadArray[T any](r io.Reader, dec func(io.Reader) (T, error)) (*Array[T], error) {
	n, err := readLength(r)
	if err != nil {
		return nil, fmt.Errorf("reading array length: %w", err)
	}
	a := NewArray[T](min(n, preallocLimit) + 1)
	for i := 0; i < n; i++ {
		item, err := dec(r)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		a.Add(item)
	}
	return a, nil
}

// WriteOwned is WriteArray for an owning array.
func WriteOwned[T Releaser](w io.Writer, o *Owned[T], enc func(io.Writer, T) error) error {
	return WriteArray(w, &o.arr, enc)
}

// ReadOwned is ReadArray for an owning array. Elements decoded before a
// failure are released.
func ReadOwned[T Releaser](r io.Reader, dec func(io.Reader) (T, error)) (*Owned[T], error) {
	o := NewOwned[T](0)
	n, err := readLength(r)
	if err != nil {
		return nil, fmt.Errorf("reading array length: %w", err)
	}
	for i := 0; i < n; i++ {
		item, err := dec(r)
		if err != nil {
			o.Release()
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		o.Add(item)
	}
	return o, nil
}

// WriteText adapts Text.WriteTo to the element encoder signature.
func WriteText(w io.Writer, t *Text) error {
	_, err := t.WriteTo(w)
	return err
}
