package buffer

import (
	"bytes"
	"io"
	"testing"
)

func TestBufferStaysInMemoryUnderLimit(t *testing.T) {
	b := New(1024)
	if _, err := b.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	if b.IsSpilled() {
		t.Fatal("expected buffer to stay in memory")
	}
	if got := string(b.Bytes()); got != "hello" {
		t.Fatalf("Bytes() = %q", got)
	}
	if b.Size() != 5 {
		t.Fatalf("Size() = %d, want 5", b.Size())
	}
}

func TestBufferSpillsPastLimit(t *testing.T) {
	b := New(4)
	if _, err := b.Write([]byte("hello world")); err != nil {
		t.Fatal(err)
	}
	if !b.IsSpilled() {
		t.Fatal("expected buffer to spill to disk past its limit")
	}
	if b.Bytes() != nil {
		t.Fatal("Bytes() must return nil once spilled")
	}

	r, err := b.Reader()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("hello world")) {
		t.Fatalf("Reader() = %q, want %q", got, "hello world")
	}
}

func TestBufferWriteAfterCloseFails(t *testing.T) {
	b := New(1024)
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Write([]byte("x")); err == nil {
		t.Fatal("expected write-after-close to fail")
	}
}

func TestNewWithData(t *testing.T) {
	b := NewWithData([]byte("seed"))
	if b.Size() != 4 {
		t.Fatalf("Size() = %d, want 4", b.Size())
	}
	if string(b.Bytes()) != "seed" {
		t.Fatalf("Bytes() = %q", b.Bytes())
	}
}
