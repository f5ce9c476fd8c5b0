package image

import (
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/chazu/freeze/compiler"
)

const source = `function main
	set x, 1
	gotofunc twice, x
functionend
function twice, n
	print n * 2
functionend
`

func buildImage(t *testing.T) (*Image, *compiler.Program) {
	t.Helper()
	g := compiler.DefaultGrammar()
	prog, err := compiler.BuildString(g, source)
	if err != nil {
		t.Fatal(err)
	}
	img, err := New(g, []byte(source), prog)
	if err != nil {
		t.Fatal(err)
	}
	return img, prog
}

func TestImageRoundTrip(t *testing.T) {
	img, prog := buildImage(t)
	data, err := Marshal(img)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !IsImage(data) {
		t.Errorf("IsImage(%x...) = false", data[:1])
	}
	if IsImage([]byte(source)) {
		t.Error("source text detected as an image")
	}

	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.SourceHash != img.SourceHash || got.Grammar != img.Grammar {
		t.Errorf("envelope = %+v, want %+v", got, img)
	}
	decoded, err := got.Decode(compiler.DefaultGrammar())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !slices.Equal(decoded.Names(), prog.Names()) {
		t.Errorf("names = %q, want %q", decoded.Names(), prog.Names())
	}
}

func TestMarshalIsDeterministic(t *testing.T) {
	img, _ := buildImage(t)
	a, _ := Marshal(img)
	b, _ := Marshal(img)
	if string(a) != string(b) {
		t.Error("two encodings of the same image differ")
	}
}

func TestDecodeRejectsOtherGrammar(t *testing.T) {
	img, _ := buildImage(t)
	g := compiler.DefaultGrammar()
	g.SetDelimiter = "->"
	if _, err := img.Decode(g); !errors.Is(err, ErrMismatch) {
		t.Errorf("err = %v, want ErrMismatch", err)
	}
}

func TestUnmarshalRejectsVersion(t *testing.T) {
	img, _ := buildImage(t)
	img.Version = 99
	data, _ := Marshal(img)
	if _, err := Unmarshal(data); !errors.Is(err, ErrVersion) {
		t.Errorf("err = %v, want ErrVersion", err)
	}
	if _, err := Unmarshal([]byte{0xff, 0x00}); err == nil {
		t.Error("expected error for garbage")
	}
}

func TestKeyDependsOnGrammar(t *testing.T) {
	g := compiler.DefaultGrammar()
	folded := g
	folded.IgnoreCase = true
	if Key(g, []byte(source)) == Key(folded, []byte(source)) {
		t.Error("different grammars share a key")
	}
	if Key(g, []byte(source)) != Key(g, []byte(source)) {
		t.Error("key is not stable")
	}
}

func TestFileRoundTrip(t *testing.T) {
	img, _ := buildImage(t)
	path := filepath.Join(t.TempDir(), "main.frz")
	if err := WriteFile(path, img); err != nil {
		t.Fatal(err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.SourceHash != img.SourceHash {
		t.Errorf("hash = %q, want %q", got.SourceHash, img.SourceHash)
	}
}

func TestCache(t *testing.T) {
	c, err := OpenCache(filepath.Join(t.TempDir(), "cache", "images.db"))
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	defer c.Close()

	g := compiler.DefaultGrammar()
	key := Key(g, []byte(source))
	if _, err := c.Get(key); !errors.Is(err, ErrNotCached) {
		t.Fatalf("empty cache err = %v, want ErrNotCached", err)
	}

	prog, err := c.Build(g, []byte(source))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if n, _ := c.Count(); n != 1 {
		t.Errorf("count after build = %d, want 1", n)
	}
	again, err := c.Build(g, []byte(source))
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(again.Names(), prog.Names()) {
		t.Errorf("cached names = %q, want %q", again.Names(), prog.Names())
	}
	if n, _ := c.Count(); n != 1 {
		t.Errorf("count after hit = %d, want 1", n)
	}

	if err := c.Delete(key); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(key); !errors.Is(err, ErrNotCached) {
		t.Errorf("after delete err = %v, want ErrNotCached", err)
	}
}

func TestCacheDoesNotStoreBrokenSource(t *testing.T) {
	c, err := OpenCache(filepath.Join(t.TempDir(), "images.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, err := c.Build(compiler.DefaultGrammar(), []byte("function f\n")); !errors.Is(err, compiler.ErrStructural) {
		t.Errorf("err = %v, want ErrStructural", err)
	}
	if n, _ := c.Count(); n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
}
