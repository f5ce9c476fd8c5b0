package compiler

import (
	"bytes"
	"fmt"
	"io"

	"github.com/chazu/freeze/container"
)

// ---------------------------------------------------------------------------
// Binary program format
// ---------------------------------------------------------------------------
//
//	program     := magic:"FRZP" version:u8 functions:array<function>
//	function    := name:text line:u32 depth:u32 params:array<text> body:array<instruction>
//	instruction := name:text line:u32 args:array<text> quoted:array<u8>
//
// array and text are the container length-prefixed encodings.

var programMagic = [4]byte{'F', 'R', 'Z', 'P'}

const programVersion = 2

// Encode writes p in the binary program format.
func (p *Program) Encode(w io.Writer) error {
	if _, err := w.Write(programMagic[:]); err != nil {
		return err
	}
	if _, err := w.Write([]byte{programVersion}); err != nil {
		return err
	}
	return container.WriteOwned(w, p.Functions, encodeFunction)
}

// MarshalBinary returns p in the binary program format.
func (p *Program) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeProgram reads a program written by Program.Encode.
func DecodeProgram(r io.Reader) (*Program, error) {
	var header [5]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrCorruptProgram, err)
	}
	if !bytes.Equal(header[:4], programMagic[:]) {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorruptProgram, header[:4])
	}
	if header[4] != programVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptProgram, header[4])
	}

	fns, err := container.ReadOwned(r, decodeFunction)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptProgram, err)
	}
	p := newProgram()
	for _, f := range fns.Values() {
		if err := p.add(f); err != nil {
			fns.Release()
			return nil, fmt.Errorf("%w: %v", ErrCorruptProgram, err)
		}
	}
	return p, nil
}

// UnmarshalProgram decodes a program from data.
func UnmarshalProgram(data []byte) (*Program, error) {
	return DecodeProgram(bytes.NewReader(data))
}

func encodeFunction(w io.Writer, f *Function) error {
	if err := container.WriteText(w, f.Name); err != nil {
		return err
	}
	if err := container.WriteUint32(w, uint32(f.Line)); err != nil {
		return err
	}
	if err := container.WriteUint32(w, uint32(f.Depth)); err != nil {
		return err
	}
	if err := container.WriteOwned(w, f.Params, container.WriteText); err != nil {
		return err
	}
	return container.WriteOwned(w, f.Body, encodeInstruction)
}

func decodeFunction(r io.Reader) (*Function, error) {
	name, err := container.ReadText(r)
	if err != nil {
		return nil, err
	}
	line, err := container.ReadUint32(r)
	if err != nil {
		return nil, err
	}
	depth, err := container.ReadUint32(r)
	if err != nil {
		return nil, err
	}
	params, err := container.ReadOwned(r, container.ReadText)
	if err != nil {
		return nil, err
	}
	body, err := container.ReadOwned(r, decodeInstruction)
	if err != nil {
		params.Release()
		return nil, err
	}
	f := newFunction(name, params, int(line), int(depth))
	f.Body = body
	return f, nil
}

func encodeInstruction(w io.Writer, in *Instruction) error {
	if err := container.WriteText(w, in.Name); err != nil {
		return err
	}
	if err := container.WriteUint32(w, uint32(in.Line)); err != nil {
		return err
	}
	if err := container.WriteOwned(w, in.Args, container.WriteText); err != nil {
		return err
	}
	return container.WriteArray(w, quotedFlags(in), writeFlag)
}

func quotedFlags(in *Instruction) *container.Array[bool] {
	if in.Quoted != nil && in.Quoted.Len() == in.Args.Len() {
		return in.Quoted
	}
	flags := container.NewArray[bool](in.Args.Len())
	for i := range in.Args.Len() {
		flags.Add(in.IsQuoted(i))
	}
	return flags
}

func writeFlag(w io.Writer, b bool) error {
	var flag [1]byte
	if b {
		flag[0] = 1
	}
	_, err := w.Write(flag[:])
	return err
}

func readFlag(r io.Reader) (bool, error) {
	var flag [1]byte
	if _, err := io.ReadFull(r, flag[:]); err != nil {
		return false, err
	}
	switch flag[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, fmt.Errorf("invalid quoted flag %d", flag[0])
}

func decodeInstruction(r io.Reader) (*Instruction, error) {
	name, err := container.ReadText(r)
	if err != nil {
		return nil, err
	}
	line, err := container.ReadUint32(r)
	if err != nil {
		return nil, err
	}
	args, err := container.ReadOwned(r, container.ReadText)
	if err != nil {
		return nil, err
	}
	quoted, err := container.ReadArray(r, readFlag)
	if err != nil {
		args.Release()
		return nil, err
	}
	if quoted.Len() != args.Len() {
		args.Release()
		return nil, fmt.Errorf("%d quoted flags for %d arguments", quoted.Len(), args.Len())
	}
	return &Instruction{Name: name, Args: args, Quoted: quoted, Line: int(line)}, nil
}
