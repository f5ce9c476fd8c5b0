// Package image stores built programs so a script can be run again without
// re-parsing. An image is a CBOR envelope around the program's binary form;
// a Cache keeps images in SQLite keyed by source and grammar.
package image

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/freeze/compiler"
)

// Version is the envelope format version.
const Version = 1

var (
	ErrVersion  = errors.New("image: unsupported version")
	ErrMismatch = errors.New("image: grammar mismatch")
)

// Image wraps an encoded program with what is needed to trust it.
type Image struct {
	Version    uint   `cbor:"1,keyasint"`
	SourceHash string `cbor:"2,keyasint"`
	Grammar    string `cbor:"3,keyasint"`
	Program    []byte `cbor:"4,keyasint"`
}

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Key identifies source text built under a grammar.
func Key(g compiler.Grammar, source []byte) string {
	h := sha256.New()
	io.WriteString(h, g.Fingerprint())
	h.Write([]byte{0})
	h.Write(source)
	return hex.EncodeToString(h.Sum(nil))
}

// New encodes prog into an image for source built under g.
func New(g compiler.Grammar, source []byte, prog *compiler.Program) (*Image, error) {
	data, err := prog.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("image: encode program: %w", err)
	}
	return &Image{
		Version:    Version,
		SourceHash: Key(g, source),
		Grammar:    g.Fingerprint(),
		Program:    data,
	}, nil
}

// Marshal serializes an Image to CBOR bytes.
func Marshal(img *Image) ([]byte, error) {
	return encMode.Marshal(img)
}

// Unmarshal deserializes an Image from CBOR bytes.
func Unmarshal(data []byte) (*Image, error) {
	var img Image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("image: unmarshal: %w", err)
	}
	if img.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, img.Version)
	}
	return &img, nil
}

// Decode decodes the wrapped program. g must be the grammar the image was
// built under.
func (img *Image) Decode(g compiler.Grammar) (*compiler.Program, error) {
	if img.Grammar != g.Fingerprint() {
		return nil, ErrMismatch
	}
	return compiler.DecodeProgram(bytes.NewReader(img.Program))
}

// WriteFile saves img to path.
func WriteFile(path string, img *Image) error {
	data, err := Marshal(img)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadFile loads an image from path.
func ReadFile(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}

// IsImage reports whether data starts like a CBOR-encoded Image rather
// than script source.
func IsImage(data []byte) bool {
	// A definite-length map of four entries.
	return len(data) > 0 && data[0] == 0xa4
}
