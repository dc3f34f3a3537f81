package core

import (
	"io"
	"strings"
	"testing"
)

func TestCountingReader(t *testing.T) {
	input := "name\nAlice\nBob\n"
	r := newCountingReader(strings.NewReader(input))

	buf := make([]byte, 4)
	if _, err := r.Read(buf); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got := r.BytesRead(); got != 4 {
		t.Errorf("BytesRead() after first read = %d, want 4", got)
	}

	if _, err := io.Copy(io.Discard, r); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if got := r.BytesRead(); got != int64(len(input)) {
		t.Errorf("BytesRead() = %d, want %d", got, len(input))
	}
}
